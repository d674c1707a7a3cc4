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

//go:build !notz

package rtc

import "time"

// TimezoneSupport reports whether local time conversion is compiled in.
const TimezoneSupport = true

// offsetAt returns the UTC offset of loc in seconds at the given instant,
// including any daylight saving adjustment in force at that moment.
func offsetAt(epoch int64, loc *time.Location) int32 {
	if loc == nil {
		return 0
	}
	_, offset := time.Unix(epoch, 0).In(loc).Zone()
	//nolint:gosec // real zone offsets are well inside int32
	return int32(offset)
}
