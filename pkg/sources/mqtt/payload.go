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

package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrEmptyPayload = errors.New("empty payload")

type timeMessage struct {
	Time *int64 `json:"time"`
}

// ParsePayload reads epoch seconds from a bare number or a JSON object
// with a "time" field.
func ParsePayload(payload []byte) (int64, error) {
	s := strings.TrimSpace(string(payload))
	if s == "" {
		return 0, ErrEmptyPayload
	}

	if strings.HasPrefix(s, "{") {
		var msg timeMessage
		if err := json.Unmarshal([]byte(s), &msg); err != nil {
			return 0, fmt.Errorf("invalid time message: %w", err)
		}
		if msg.Time == nil {
			return 0, errors.New("time message has no time field")
		}
		return *msg.Time, nil
	}

	epoch, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid epoch %q: %w", s, err)
	}
	return epoch, nil
}
