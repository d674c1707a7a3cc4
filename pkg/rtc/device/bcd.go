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

package device

import "errors"

// ErrYearRange is returned when a chip cannot represent the year of a time.
var ErrYearRange = errors.New("year out of range for rtc chip")

func fromBCD(b byte) int {
	return int(b>>4)*10 + int(b&0x0f)
}

// toBCD expects 0 <= v <= 99.
func toBCD(v int) byte {
	//nolint:gosec // callers keep v within two digits
	return byte(v/10)<<4 | byte(v%10)
}
