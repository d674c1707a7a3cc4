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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"
)

func TestRTCTimeConversion(t *testing.T) {
	t.Parallel()

	tm := epochToRTCTime(time.Date(2024, 2, 29, 23, 59, 58, 0, time.UTC).Unix())
	assert.Equal(t, &unix.RTCTime{
		Sec: 58, Min: 59, Hour: 23, Mday: 29, Mon: 1, Year: 124, Wday: 4, Yday: 59,
	}, tm)
	assert.Equal(t, time.Date(2024, 2, 29, 23, 59, 58, 0, time.UTC).Unix(), rtcTimeToEpoch(tm))
}
