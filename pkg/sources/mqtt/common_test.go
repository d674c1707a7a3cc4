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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMQTTPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		path        string
		wantBroker  string
		wantTopic   string
		errContains string
		wantErr     bool
	}{
		{
			name:       "host port and topic",
			path:       "localhost:1883/mesh/time",
			wantBroker: "localhost:1883",
			wantTopic:  "mesh/time",
		},
		{
			name:       "mqtts scheme",
			path:       "mqtts://broker.example.com:8883/mesh/time",
			wantBroker: "broker.example.com:8883",
			wantTopic:  "mesh/time",
		},
		{
			name:       "ip address",
			path:       "192.168.1.100:1883/time",
			wantBroker: "192.168.1.100:1883",
			wantTopic:  "time",
		},
		{
			name:        "empty path",
			path:        "",
			wantErr:     true,
			errContains: "path cannot be empty",
		},
		{
			name:        "missing topic",
			path:        "localhost:1883/",
			wantErr:     true,
			errContains: "topic is required",
		},
		{
			name:        "missing broker",
			path:        "/topic/only",
			wantErr:     true,
			errContains: "broker address",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			broker, topic, err := ParseMQTTPath(tt.path)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				assert.Empty(t, broker)
				assert.Empty(t, topic)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBroker, broker)
			assert.Equal(t, tt.wantTopic, topic)
		})
	}
}

func TestNewClientOptions(t *testing.T) {
	t.Parallel()

	opts, topic, err := NewClientOptions("mqtts://broker:8883/mesh/time", Credentials{
		Username: "node",
		Password: "secret",
	})
	require.NoError(t, err)
	assert.Equal(t, "mesh/time", topic)
	require.Len(t, opts.Servers, 1)
	assert.Equal(t, "ssl://broker:8883", opts.Servers[0].String())
	assert.Equal(t, "node", opts.Username)
	assert.NotNil(t, opts.TLSConfig)
	assert.Regexp(t, `^timekeeper-[0-9a-f]{8}$`, opts.ClientID)

	opts, _, err = NewClientOptions("broker:1883/t", Credentials{})
	require.NoError(t, err)
	assert.Equal(t, "tcp://broker:1883", opts.Servers[0].String())
	assert.Empty(t, opts.Username)

	_, _, err = NewClientOptions("", Credentials{})
	require.Error(t, err)
}

func TestParsePayload(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload string
		want    int64
		wantErr bool
	}{
		{name: "bare", payload: "1700000000", want: 1_700_000_000},
		{name: "whitespace", payload: " 1700000000\n", want: 1_700_000_000},
		{name: "json", payload: `{"time": 1700000000}`, want: 1_700_000_000},
		{name: "json extra fields", payload: `{"time":1700000000,"node":"a1"}`, want: 1_700_000_000},
		{name: "empty", payload: "", wantErr: true},
		{name: "json without time", payload: `{"node":"a1"}`, wantErr: true},
		{name: "json bad", payload: `{"time":`, wantErr: true},
		{name: "text", payload: "noon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParsePayload([]byte(tt.payload))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
