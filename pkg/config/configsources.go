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

import (
	"slices"
	"time"
)

// GPS.Port may be "auto" to search the serial ports for a receiver.
type GPS struct {
	Port     string `toml:"port,omitempty" validate:"required_if=Enabled true"`
	BaudRate int    `toml:"baud_rate,omitempty" validate:"omitempty,oneof=4800 9600 19200 38400 57600 115200"`
	Enabled  bool   `toml:"enabled"`
}

type NTP struct {
	Servers        []string `toml:"servers,omitempty" validate:"dive,hostname_port|hostname"`
	PollMinutes    int      `toml:"poll_minutes,omitempty" validate:"gte=0"`
	TimeoutSeconds int      `toml:"timeout_seconds,omitempty" validate:"gte=0"`
	Enabled        bool     `toml:"enabled"`
	// NTS uses Network Time Security key exchange with the servers.
	NTS bool `toml:"nts,omitempty"`
}

func (n NTP) PollInterval() time.Duration {
	return time.Duration(n.PollMinutes) * time.Minute
}

func (n NTP) Timeout() time.Duration {
	return time.Duration(n.TimeoutSeconds) * time.Second
}

type MQTT struct {
	// Broker is "host:port/topic", optionally with an mqtts:// scheme.
	Broker   string `toml:"broker,omitempty" validate:"required_if=Enabled true"`
	Username string `toml:"username,omitempty"`
	Password string `toml:"password,omitempty"`
	Enabled  bool   `toml:"enabled"`
}

func (c *Instance) GPS() GPS {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.GPS
}

func (c *Instance) NTP() NTP {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := c.vals.NTP
	n.Servers = slices.Clone(n.Servers)
	return n
}

func (c *Instance) MQTT() MQTT {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.MQTT
}
