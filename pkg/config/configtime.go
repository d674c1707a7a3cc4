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
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// BuildEpoch is the Unix time the binary was built, set at link time:
//
//	-ldflags "-X github.com/ZaparooProject/zaparoo-timekeeper/pkg/config.BuildEpoch=$(date +%s)"
//
// No real clock can be earlier, so it bounds every time the daemon accepts.
var BuildEpoch = ""

type Time struct {
	// Timezone is a POSIX TZ rule such as "EST5EDT,M3.2.0,M11.1.0" or a
	// zoneinfo name. Empty means UTC.
	Timezone      string `toml:"timezone" validate:"timezone"`
	MinValidEpoch int64  `toml:"min_valid_epoch,omitempty" validate:"gte=0"`
}

func (c *Instance) Timezone() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Time.Timezone
}

func (c *Instance) SetTimezone(tz string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Time.Timezone = tz
}

// MinValidEpoch is the configured lower bound for accepted times, falling
// back to the build time. Zero disables the check.
func (c *Instance) MinValidEpoch() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Time.MinValidEpoch > 0 {
		return c.vals.Time.MinValidEpoch
	}
	return buildEpoch()
}

func buildEpoch() int64 {
	if BuildEpoch == "" {
		return 0
	}
	epoch, err := strconv.ParseInt(BuildEpoch, 10, 64)
	if err != nil || epoch < 0 {
		log.Warn().Msgf("ignoring invalid build epoch: %q", BuildEpoch)
		return 0
	}
	return epoch
}

// BuildTime returns BuildEpoch as a time, or the zero time if unset.
func BuildTime() time.Time {
	epoch := buildEpoch()
	if epoch == 0 {
		return time.Time{}
	}
	return time.Unix(epoch, 0).UTC()
}
