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

// Package timezone resolves the configured timezone string into a
// time.Location. Device configs use POSIX TZ rules so they work without a
// zoneinfo database; IANA names are accepted as a fallback.
package timezone

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Load returns the Location for tzdef. An empty string means UTC.
func Load(tzdef string) (*time.Location, error) {
	tzdef = strings.TrimSpace(tzdef)
	if tzdef == "" {
		return time.UTC, nil
	}

	loc, err := ParsePOSIX(tzdef)
	if err == nil {
		return loc, nil
	}
	log.Debug().Err(err).Msgf("timezone %q is not a POSIX rule, trying zoneinfo", tzdef)

	loc, err = time.LoadLocation(tzdef)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", tzdef, err)
	}
	return loc, nil
}
