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

// Package models holds the JSON bodies of the time API.
package models

import "github.com/ZaparooProject/zaparoo-timekeeper/pkg/rtc"

// TimeResponse is returned by GET /api/time.
type TimeResponse struct {
	// SinceExternalSet is nil until a network or GPS source has set the time.
	SinceExternalSet *float64    `json:"sinceExternalSet"`
	Time             string      `json:"time"`
	Timezone         string      `json:"timezone"`
	Now              int64       `json:"now"`
	Local            int64       `json:"local"`
	Quality          rtc.Quality `json:"quality"`
	TZOffset         int32       `json:"tzOffset"`
	Valid            bool        `json:"valid"`
}

// SetTimeParams is the body of POST /api/time. An empty quality means NTP.
type SetTimeParams struct {
	Quality string `json:"quality,omitempty" validate:"omitempty,quality"`
	Time    int64  `json:"time" validate:"required,gt=0"`
	Force   bool   `json:"force,omitempty"`
}

type SetTimeResponse struct {
	Result  rtc.SetResult `json:"result"`
	Quality rtc.Quality   `json:"quality"`
	Now     int64         `json:"now"`
}

// SetTimezoneParams is the body of PUT /api/timezone.
type SetTimezoneParams struct {
	Timezone string `json:"timezone" validate:"required,timezone"`
}

type TimezoneResponse struct {
	Timezone string `json:"timezone"`
	TZOffset int32  `json:"tzOffset"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
