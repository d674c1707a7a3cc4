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

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// TickSource is a free running millisecond counter. It is expected to wrap
// around at the 32-bit boundary, roughly every 49.7 days.
type TickSource interface {
	Millis() uint32
}

// UptimeSource is implemented by tick sources that also know how long they
// have been running without wrapping. The time base then measures the NTP
// cooldown and time since an external set from it. With a bare counter
// those measures are only exact for gaps shorter than one wraparound.
type UptimeSource interface {
	Uptime() time.Duration
}

// ClockTicks emulates a 32-bit millisecond counter that starts at zero when
// it is created.
type ClockTicks struct {
	clock clockwork.Clock
	start time.Time
}

// NewClockTicks returns a counter driven by clock, or by the real monotonic
// clock if clock is nil.
func NewClockTicks(clock clockwork.Clock) *ClockTicks {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ClockTicks{
		clock: clock,
		start: clock.Now(),
	}
}

func (t *ClockTicks) Millis() uint32 {
	//nolint:gosec // truncation to 32 bits is the counter wraparound
	return uint32(t.Uptime().Milliseconds())
}

func (t *ClockTicks) Uptime() time.Duration {
	return t.clock.Since(t.start)
}

// ticksSince returns the elapsed milliseconds from then to now, correct
// across a single counter wraparound.
func ticksSince(now, then uint32) uint32 {
	return now - then
}
