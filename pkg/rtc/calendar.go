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

package rtc

import "time"

// ReferenceYear is the year BrokenDownTime.Year is counted from.
const ReferenceYear = 1900

// maxYearOffset bounds plausible calendar years to before 2200.
const maxYearOffset = 300

// BrokenDownTime is a calendar time without a zone. It is always interpreted
// as UTC. Year counts from ReferenceYear and Month is zero based.
type BrokenDownTime struct {
	Year   int
	Month  int
	Day    int
	Hour   int
	Minute int
	Second int
}

// Normalize returns the Unix epoch seconds for t read as UTC. Fields outside
// their usual range are carried into the next unit, so day 32 of January is
// the 1st of February.
func Normalize(t BrokenDownTime) int64 {
	return time.Date(
		ReferenceYear+t.Year,
		time.Month(t.Month+1),
		t.Day,
		t.Hour,
		t.Minute,
		t.Second,
		0,
		time.UTC,
	).Unix()
}

// FromTime breaks t down into UTC calendar fields.
func FromTime(t time.Time) BrokenDownTime {
	t = t.UTC()
	return BrokenDownTime{
		Year:   t.Year() - ReferenceYear,
		Month:  int(t.Month()) - 1,
		Day:    t.Day(),
		Hour:   t.Hour(),
		Minute: t.Minute(),
		Second: t.Second(),
	}
}

// FromEpoch breaks Unix epoch seconds down into UTC calendar fields.
func FromEpoch(epoch int64) BrokenDownTime {
	return FromTime(time.Unix(epoch, 0))
}

// plausibleYear reports whether the raw year field is inside the window
// accepted from calendar sources.
func (t BrokenDownTime) plausibleYear() bool {
	return t.Year >= 0 && t.Year < maxYearOffset
}
