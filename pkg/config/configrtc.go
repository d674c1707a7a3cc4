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

package config

import "time"

const DefaultRefreshMinutes = 60

type RTC struct {
	// Driver is auto, rv3028, pcf8563, linux, system or none.
	Driver string `toml:"driver" validate:"omitempty,oneof=auto rv3028 pcf8563 linux system none"`
	I2CBus string `toml:"i2c_bus,omitempty"`
	Device string `toml:"device,omitempty"`
	// RefreshMinutes re-reads the chip while no better time is known.
	// Zero disables the refresh.
	RefreshMinutes int `toml:"refresh_minutes" validate:"gte=0"`
}

func (r RTC) RefreshInterval() time.Duration {
	return time.Duration(r.RefreshMinutes) * time.Minute
}

func (c *Instance) RTC() RTC {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.RTC
}
