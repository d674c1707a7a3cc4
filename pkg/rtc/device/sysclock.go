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
	"os"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// System mirrors the host wall clock. Boards without an RTC chip still get
// a starting point for the projection from it, usually restored by the OS
// from a saved timestamp or its own NTP client, but that time is not
// trusted as Device quality.
type System struct {
	clock  clockwork.Clock
	setter func(epoch int64) error
}

// NewSystem returns a System clock. A nil clock uses the real wall clock.
// A nil setter sets the operating system clock, which needs privileges.
func NewSystem(clock clockwork.Clock, setter func(epoch int64) error) *System {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if setter == nil {
		setter = setSystemClock
	}
	return &System{clock: clock, setter: setter}
}

func (*System) Name() string {
	return "system clock"
}

func (*System) HostClock() bool {
	return true
}

func (s *System) Read() (int64, bool) {
	return s.clock.Now().Unix(), true
}

func (s *System) Write(epoch int64) error {
	if err := s.setter(epoch); err != nil {
		logDeviceError(err, "failed to set system clock")
		return fmt.Errorf("failed to set system clock: %w", err)
	}
	return nil
}

// logDeviceError keeps permission and platform errors out of the error log
// on machines where the daemon runs unprivileged.
func logDeviceError(err error, msg string) {
	if errors.Is(err, os.ErrPermission) || errors.Is(err, errNoLinuxRTC) ||
		errors.Is(err, errors.ErrUnsupported) {
		log.Debug().Err(err).Msg(msg)
		return
	}
	log.Error().Err(err).Msg(msg)
}
