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

// DeviceClock is a hardware clock the time base can persist accepted times
// to and read back from. A failed read is reported as ok == false. Write
// returns an error if the time was not stored.
type DeviceClock interface {
	Name() string
	Read() (epoch int64, ok bool)
	Write(epoch int64) error
}

// HostClock is implemented by device clocks that mirror the operating
// system clock instead of a battery backed chip. Reading one seeds the
// projection but does not count as a Device quality time.
type HostClock interface {
	HostClock() bool
}

func isHostClock(d DeviceClock) bool {
	hc, ok := d.(HostClock)
	return ok && hc.HostClock()
}
