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

import "fmt"

// SetResult is the outcome of submitting a candidate time. It is a plain
// value, not an error: rejection by the trust ranking is expected.
type SetResult int

const (
	// SetResultNotSet means the current time base already has equal or
	// better quality and the candidate was ignored.
	SetResultNotSet SetResult = iota
	// SetResultSuccess means the candidate replaced the time base.
	SetResultSuccess
	// SetResultInvalidTime means the candidate failed a sanity bound.
	SetResultInvalidTime
)

func (r SetResult) String() string {
	switch r {
	case SetResultNotSet:
		return "not_set"
	case SetResultSuccess:
		return "success"
	case SetResultInvalidTime:
		return "invalid_time"
	default:
		return "unknown"
	}
}

// MarshalText encodes the result by name.
func (r SetResult) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText is the inverse of MarshalText.
func (r *SetResult) UnmarshalText(text []byte) error {
	switch string(text) {
	case "not_set":
		*r = SetResultNotSet
	case "success":
		*r = SetResultSuccess
	case "invalid_time":
		*r = SetResultInvalidTime
	default:
		return fmt.Errorf("unknown set result: %q", text)
	}
	return nil
}
