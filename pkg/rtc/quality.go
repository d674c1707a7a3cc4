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

import (
	"fmt"
	"strings"
)

// Quality is the trust level of a time source. Higher values always outrank
// lower ones during arbitration.
type Quality int

const (
	// QualityNone means no time has been set since boot.
	QualityNone Quality = iota
	// QualityDevice is time read from an on-board RTC chip.
	QualityDevice
	// QualityFromNet is time relayed by another node on the mesh.
	QualityFromNet
	// QualityNTP is time from an NTP server or a connected phone.
	QualityNTP
	// QualityGPS is time from a GPS fix.
	QualityGPS
)

func (q Quality) String() string {
	switch q {
	case QualityNone:
		return "None"
	case QualityDevice:
		return "Device"
	case QualityFromNet:
		return "Net"
	case QualityNTP:
		return "NTP"
	case QualityGPS:
		return "GPS"
	default:
		return "Unknown"
	}
}

// ParseQuality converts a quality name to a Quality. Matching is case
// insensitive; "fromnet" is accepted for Net and "phone" maps to NTP, since
// phone-supplied time is trusted the same as a network time server.
func ParseQuality(s string) (Quality, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none":
		return QualityNone, nil
	case "device":
		return QualityDevice, nil
	case "net", "fromnet":
		return QualityFromNet, nil
	case "ntp", "phone":
		return QualityNTP, nil
	case "gps":
		return QualityGPS, nil
	default:
		return QualityNone, fmt.Errorf("unknown time quality: %q", s)
	}
}

// MarshalText encodes the quality by name so it reads well in JSON and TOML.
func (q Quality) MarshalText() ([]byte, error) {
	return []byte(q.String()), nil
}

// UnmarshalText is the inverse of MarshalText.
func (q *Quality) UnmarshalText(text []byte) error {
	parsed, err := ParseQuality(string(text))
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}
