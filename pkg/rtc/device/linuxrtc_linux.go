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

//go:build linux

package device

import (
	"fmt"
	"os"
	"time"

	"github.com/ZaparooProject/zaparoo-timekeeper/pkg/rtc"
	"golang.org/x/sys/unix"
)

func readLinuxRTC(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open rtc: %w", err)
	}
	defer func() { _ = f.Close() }()

	tm, err := unix.IoctlGetRTCTime(int(f.Fd()))
	if err != nil {
		return 0, fmt.Errorf("RTC_RD_TIME: %w", err)
	}
	return rtcTimeToEpoch(tm), nil
}

func writeLinuxRTC(path string, epoch int64) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("failed to open rtc: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := unix.IoctlSetRTCTime(int(f.Fd()), epochToRTCTime(epoch)); err != nil {
		return fmt.Errorf("RTC_SET_TIME: %w", err)
	}
	return nil
}

// The kernel struct rtc_time uses the same struct tm conventions as
// BrokenDownTime.
func rtcTimeToEpoch(tm *unix.RTCTime) int64 {
	return rtc.Normalize(rtc.BrokenDownTime{
		Year:   int(tm.Year),
		Month:  int(tm.Mon),
		Day:    int(tm.Mday),
		Hour:   int(tm.Hour),
		Minute: int(tm.Min),
		Second: int(tm.Sec),
	})
}

//nolint:gosec // calendar fields fit in int32
func epochToRTCTime(epoch int64) *unix.RTCTime {
	t := time.Unix(epoch, 0).UTC()
	bt := rtc.FromTime(t)
	return &unix.RTCTime{
		Sec:  int32(bt.Second),
		Min:  int32(bt.Minute),
		Hour: int32(bt.Hour),
		Mday: int32(bt.Day),
		Mon:  int32(bt.Month),
		Year: int32(bt.Year),
		Wday: int32(t.Weekday()),
		Yday: int32(t.YearDay() - 1),
	}
}
