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
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQualityOrdering(t *testing.T) {
	t.Parallel()

	ordered := []Quality{QualityNone, QualityDevice, QualityFromNet, QualityNTP, QualityGPS}
	for i := range ordered {
		for j := range ordered {
			assert.Equal(t, i < j, ordered[i] < ordered[j],
				"%s < %s should be %v", ordered[i], ordered[j], i < j)
		}
	}
}

func TestQualityString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		want string
		q    Quality
	}{
		{q: QualityNone, want: "None"},
		{q: QualityDevice, want: "Device"},
		{q: QualityFromNet, want: "Net"},
		{q: QualityNTP, want: "NTP"},
		{q: QualityGPS, want: "GPS"},
		{q: Quality(42), want: "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.q.String())
		})
	}
}

func TestParseQuality(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    Quality
		wantErr bool
	}{
		{name: "none", input: "none", want: QualityNone},
		{name: "device mixed case", input: "Device", want: QualityDevice},
		{name: "net", input: "net", want: QualityFromNet},
		{name: "fromnet alias", input: "FromNet", want: QualityFromNet},
		{name: "ntp", input: "NTP", want: QualityNTP},
		{name: "phone maps to ntp", input: "phone", want: QualityNTP},
		{name: "gps with spaces", input: "  gps ", want: QualityGPS},
		{name: "unknown", input: "sundial", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseQuality(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQualityJSON(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(struct {
		Q Quality `json:"q"`
	}{Q: QualityGPS})
	require.NoError(t, err)
	assert.JSONEq(t, `{"q":"GPS"}`, string(data))

	var decoded struct {
		Q Quality `json:"q"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"q":"ntp"}`), &decoded))
	assert.Equal(t, QualityNTP, decoded.Q)

	require.Error(t, json.Unmarshal([]byte(`{"q":"bogus"}`), &decoded))
}

func TestSetResultString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "not_set", SetResultNotSet.String())
	assert.Equal(t, "success", SetResultSuccess.String())
	assert.Equal(t, "invalid_time", SetResultInvalidTime.String())
	assert.Equal(t, "unknown", SetResult(9).String())
}

func TestSetResultText(t *testing.T) {
	t.Parallel()

	for _, r := range []SetResult{SetResultNotSet, SetResultSuccess, SetResultInvalidTime} {
		text, err := r.MarshalText()
		require.NoError(t, err)
		var decoded SetResult
		require.NoError(t, decoded.UnmarshalText(text))
		assert.Equal(t, r, decoded)
	}

	var r SetResult
	require.Error(t, r.UnmarshalText([]byte("maybe")))
}
