// Zaparoo Timekeeper
// Copyright (c) 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Zaparoo Timekeeper.
//
// Zaparoo Timekeeper is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Zaparoo Timekeeper is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Zaparoo Timekeeper.  If not, see <http://www.gnu.org/licenses/>.

package gps

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ZaparooProject/zaparoo-timekeeper/pkg/rtc"
)

var (
	ErrChecksum = errors.New("nmea checksum mismatch")
	// ErrNoTime is returned for well formed sentences that carry no usable
	// UTC time, such as position only sentences or an RMC without a fix.
	ErrNoTime = errors.New("sentence has no valid time")
)

// ParseSentence extracts the UTC date and time from an RMC or ZDA sentence
// from any talker. The trailing checksum is required.
func ParseSentence(line string) (rtc.BrokenDownTime, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "$") {
		return rtc.BrokenDownTime{}, fmt.Errorf("not an nmea sentence: %q", line)
	}

	body, sum, ok := strings.Cut(line[1:], "*")
	if !ok {
		return rtc.BrokenDownTime{}, fmt.Errorf("missing checksum: %q", line)
	}
	want, err := strconv.ParseUint(sum, 16, 8)
	if err != nil {
		return rtc.BrokenDownTime{}, fmt.Errorf("bad checksum field %q: %w", sum, err)
	}
	if uint64(checksum(body)) != want {
		return rtc.BrokenDownTime{}, ErrChecksum
	}

	fields := strings.Split(body, ",")
	if len(fields[0]) != 5 {
		return rtc.BrokenDownTime{}, fmt.Errorf("bad sentence address: %q", fields[0])
	}

	switch fields[0][2:] {
	case "RMC":
		return parseRMC(fields)
	case "ZDA":
		return parseZDA(fields)
	default:
		return rtc.BrokenDownTime{}, ErrNoTime
	}
}

func checksum(s string) byte {
	var c byte
	for i := range len(s) {
		c ^= s[i]
	}
	return c
}

// $GPRMC,hhmmss.ss,A,lat,N,lon,E,spd,cog,ddmmyy,...
func parseRMC(f []string) (rtc.BrokenDownTime, error) {
	if len(f) < 10 || f[2] != "A" {
		return rtc.BrokenDownTime{}, ErrNoTime
	}
	t, err := parseClock(f[1])
	if err != nil {
		return rtc.BrokenDownTime{}, err
	}
	d := f[9]
	if len(d) != 6 {
		return rtc.BrokenDownTime{}, ErrNoTime
	}
	day, err1 := strconv.Atoi(d[0:2])
	month, err2 := strconv.Atoi(d[2:4])
	year, err3 := strconv.Atoi(d[4:6])
	if err := errors.Join(err1, err2, err3); err != nil {
		return rtc.BrokenDownTime{}, fmt.Errorf("bad rmc date %q: %w", d, err)
	}
	t.Day = day
	t.Month = month - 1
	t.Year = 2000 + year - rtc.ReferenceYear
	return t, nil
}

// $GPZDA,hhmmss.ss,dd,mm,yyyy,zh,zm
func parseZDA(f []string) (rtc.BrokenDownTime, error) {
	if len(f) < 5 || f[1] == "" || f[4] == "" {
		return rtc.BrokenDownTime{}, ErrNoTime
	}
	t, err := parseClock(f[1])
	if err != nil {
		return rtc.BrokenDownTime{}, err
	}
	day, err1 := strconv.Atoi(f[2])
	month, err2 := strconv.Atoi(f[3])
	year, err3 := strconv.Atoi(f[4])
	if err := errors.Join(err1, err2, err3); err != nil {
		return rtc.BrokenDownTime{}, fmt.Errorf("bad zda date: %w", err)
	}
	t.Day = day
	t.Month = month - 1
	t.Year = year - rtc.ReferenceYear
	return t, nil
}

// parseClock reads hhmmss with optional fractional seconds, which are
// dropped.
func parseClock(s string) (rtc.BrokenDownTime, error) {
	s, _, _ = strings.Cut(s, ".")
	if len(s) != 6 {
		return rtc.BrokenDownTime{}, ErrNoTime
	}
	h, err1 := strconv.Atoi(s[0:2])
	m, err2 := strconv.Atoi(s[2:4])
	sec, err3 := strconv.Atoi(s[4:6])
	if err := errors.Join(err1, err2, err3); err != nil {
		return rtc.BrokenDownTime{}, fmt.Errorf("bad nmea time %q: %w", s, err)
	}
	return rtc.BrokenDownTime{Hour: h, Minute: m, Second: sec}, nil
}
