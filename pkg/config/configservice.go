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

import "slices"

const DefaultAPIListen = "localhost:7498"

type API struct {
	Listen         string   `toml:"listen,omitempty" validate:"listen"`
	AllowedOrigins []string `toml:"allowed_origins,omitempty"`
	Enabled        bool     `toml:"enabled"`
}

type Telemetry struct {
	DSN            string `toml:"dsn,omitempty" validate:"omitempty,url"`
	ErrorReporting bool   `toml:"error_reporting"`
}

func (c *Instance) API() API {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a := c.vals.API
	if a.Listen == "" {
		a.Listen = DefaultAPIListen
	}
	a.AllowedOrigins = slices.Clone(a.AllowedOrigins)
	return a
}

func (c *Instance) Telemetry() Telemetry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Telemetry
}

func (c *Instance) SetErrorReporting(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Telemetry.ErrorReporting = enabled
}

// Discovery advertises the API over mDNS. It has no effect while the API
// only listens on loopback.
type Discovery struct {
	InstanceName string `toml:"instance_name,omitempty"`
	Enabled      bool   `toml:"enabled"`
}

func (c *Instance) Discovery() Discovery {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Discovery
}
