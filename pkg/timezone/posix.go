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

package timezone

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrNotPOSIX is returned by ParsePOSIX for strings that are not POSIX TZ
// rules.
var ErrNotPOSIX = errors.New("not a POSIX TZ string")

const (
	tzName   = `(<[+\-0-9A-Za-z]+>|[A-Za-z]{3,})`
	tzOffset = `([+-]?\d{1,2}(?::\d{1,2}){0,2})`
	tzDate   = `(?:M\d{1,2}\.\d\.\d|J\d{1,3}|\d{1,3})`
	tzTime   = `(?:/[+-]?\d{1,3}(?::\d{1,2}){0,2})?`
)

// std[offset] then optionally dst[offset][,start[/time],end[/time]]
var posixRe = regexp.MustCompile(
	`^` + tzName + tzOffset +
		`(?:` + tzName + tzOffset + `?` +
		`(?:,` + tzDate + tzTime + `,` + tzDate + tzTime + `)?)?$`,
)

// ParsePOSIX turns a POSIX TZ string such as "EST5EDT,M3.2.0,M11.1.0" into a
// Location. The rule itself is evaluated by the time package: the string is
// wrapped in a TZif blob with no transitions, whose footer rule then covers
// every instant.
func ParsePOSIX(tz string) (*time.Location, error) {
	m := posixRe.FindStringSubmatch(tz)
	if m == nil {
		return nil, fmt.Errorf("%w: %q", ErrNotPOSIX, tz)
	}

	std := strings.Trim(m[1], "<>")
	west, err := parseOffset(m[2])
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrNotPOSIX, tz, err)
	}

	// POSIX offsets count hours west of Greenwich
	loc, err := time.LoadLocationFromTZData(tz, tzif(std, -west, tz))
	if err != nil {
		return nil, fmt.Errorf("failed to build location for %q: %w", tz, err)
	}
	return loc, nil
}

func parseOffset(s string) (int32, error) {
	sign := int32(1)
	switch {
	case strings.HasPrefix(s, "-"):
		sign = -1
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}

	parts := strings.Split(s, ":")
	mult := []int32{3600, 60, 1}
	limit := []int{24, 59, 59}
	var secs int32
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return 0, fmt.Errorf("bad offset %q: %w", s, err)
		}
		if v > limit[i] {
			return 0, fmt.Errorf("offset field out of range: %d", v)
		}
		//nolint:gosec // bounded by limit above
		secs += int32(v) * mult[i]
	}
	return sign * secs, nil
}

// tzif encodes a minimal version 2 TZif file: one local time type, no
// transitions, and the POSIX rule as footer.
func tzif(abbr string, utoff int32, rule string) []byte {
	var b bytes.Buffer
	block := func() {
		b.WriteString("TZif2")
		b.Write(make([]byte, 15))
		// isutcnt, isstdcnt, leapcnt, timecnt, typecnt, charcnt
		//nolint:gosec // abbreviations are short
		counts := []uint32{0, 0, 0, 0, 1, uint32(len(abbr) + 1)}
		for _, c := range counts {
			_ = binary.Write(&b, binary.BigEndian, c)
		}
		_ = binary.Write(&b, binary.BigEndian, utoff)
		b.WriteByte(0) // isdst
		b.WriteByte(0) // abbreviation index
		b.WriteString(abbr)
		b.WriteByte(0)
	}
	// v1 block followed by the v2 block the time package actually reads
	block()
	block()
	b.WriteString("\n" + rule + "\n")
	return b.Bytes()
}
