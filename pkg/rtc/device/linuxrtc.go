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

import (
	"errors"
	"fmt"
)

// DefaultLinuxRTC is the kernel RTC device node probed by auto detection.
const DefaultLinuxRTC = "/dev/rtc0"

var errNoLinuxRTC = errors.New("kernel rtc not supported on this platform")

// Linux reads and writes a kernel managed RTC through /dev/rtcN.
type Linux struct {
	path string
}

func NewLinux(path string) *Linux {
	if path == "" {
		path = DefaultLinuxRTC
	}
	return &Linux{path: path}
}

func (l *Linux) Name() string {
	return fmt.Sprintf("RTC(%s)", l.path)
}

func (l *Linux) Read() (int64, bool) {
	epoch, err := readLinuxRTC(l.path)
	if err != nil {
		logDeviceError(err, "failed to read "+l.path)
		return 0, false
	}
	return epoch, true
}

func (l *Linux) Write(epoch int64) error {
	if err := writeLinuxRTC(l.path, epoch); err != nil {
		logDeviceError(err, "failed to write "+l.path)
		return fmt.Errorf("failed to write %s: %w", l.path, err)
	}
	return nil
}
