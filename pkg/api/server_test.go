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

package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ZaparooProject/zaparoo-timekeeper/pkg/api/models"
	"github.com/ZaparooProject/zaparoo-timekeeper/pkg/rtc"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testEpoch int64 = 1_760_000_000

type mockStore struct {
	mock.Mock
}

func (m *mockStore) SetTimezone(tz string) {
	m.Called(tz)
}

func (m *mockStore) Save() error {
	args := m.Called()
	return args.Error(0) //nolint:wrapcheck // mock passthrough
}

func newTestServer(t *testing.T, store TimezoneStore) (*Server, *rtc.TimeBase) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	tb := rtc.New(rtc.Options{Ticks: rtc.NewClockTicks(clock)})
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "timekeeper_quality 0\n")
	})
	return NewServer(Options{TimeBase: tb, Store: store, Metrics: metrics, Clock: clock}), tb
}

func do(t *testing.T, h http.Handler, method, path, body, remote string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader = http.NoBody
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if remote != "" {
		req.RemoteAddr = remote
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestGetTime_Unset(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t, nil)

	rec := do(t, s.Handler(), http.MethodGet, "/api/time", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp models.TimeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, rtc.QualityNone, resp.Quality)
	assert.False(t, resp.Valid)
	assert.Nil(t, resp.SinceExternalSet)
	assert.Equal(t, "UTC", resp.Timezone)
}

func TestSetTime_DefaultsToNTP(t *testing.T) {
	t.Parallel()
	s, tb := newTestServer(t, nil)

	rec := do(t, s.Handler(), http.MethodPost, "/api/time", `{"time":1760000000}`, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.SetTimeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, rtc.SetResultSuccess, resp.Result)
	assert.Equal(t, rtc.QualityNTP, tb.Quality())
	assert.Equal(t, testEpoch, tb.Now(false))

	rec = do(t, s.Handler(), http.MethodGet, "/api/time", "", "")
	var status models.TimeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.True(t, status.Valid)
	require.NotNil(t, status.SinceExternalSet)
	assert.InDelta(t, 0, *status.SinceExternalSet, 0.001)
	assert.Equal(t, time.Unix(testEpoch, 0).UTC().Format(time.RFC3339), status.Time)
}

func TestSetTime_LowerQualityNotSet(t *testing.T) {
	t.Parallel()
	s, tb := newTestServer(t, nil)
	require.Equal(t, rtc.SetResultSuccess, tb.SubmitTime(rtc.QualityGPS, testEpoch, false))

	rec := do(t, s.Handler(), http.MethodPost, "/api/time", `{"time":1760000500,"quality":"net"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"result":"not_set"`)
	assert.Contains(t, rec.Body.String(), `"quality":"GPS"`)
}

func TestSetTime_BadRequests(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{name: "empty body", body: ""},
		{name: "not json", body: "nope"},
		{name: "missing time", body: `{"quality":"gps"}`},
		{name: "negative time", body: `{"time":-5}`},
		{name: "unknown quality", body: `{"time":1760000000,"quality":"sundial"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s, tb := newTestServer(t, nil)
			rec := do(t, s.Handler(), http.MethodPost, "/api/time", tt.body, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
			assert.Equal(t, rtc.QualityNone, tb.Quality())
		})
	}
}

func TestSetTime_ForceRequiresLoopback(t *testing.T) {
	t.Parallel()
	s, tb := newTestServer(t, nil)
	require.Equal(t, rtc.SetResultSuccess, tb.SubmitTime(rtc.QualityGPS, testEpoch, false))

	body := `{"time":1700000000,"quality":"device","force":true}`
	rec := do(t, s.Handler(), http.MethodPost, "/api/time", body, "192.168.1.20:4000")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, testEpoch, tb.Now(false))

	rec = do(t, s.Handler(), http.MethodPost, "/api/time", body, "127.0.0.1:4000")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1_700_000_000), tb.Now(false))
	assert.Equal(t, rtc.QualityDevice, tb.Quality())
}

func TestSetTime_RateLimited(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t, nil)

	var last int
	for range 20 {
		last = do(t, s.Handler(), http.MethodPost, "/api/time", `{"time":1760000000}`, "10.0.0.9:1").Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}

func TestSetTimezone(t *testing.T) {
	t.Parallel()
	store := &mockStore{}
	store.On("SetTimezone", "CET-1CEST,M3.5.0,M10.5.0/3").Return()
	store.On("Save").Return(nil)

	s, tb := newTestServer(t, store)
	require.Equal(t, rtc.SetResultSuccess, tb.SubmitTime(rtc.QualityNTP, testEpoch, false))

	rec := do(t, s.Handler(), http.MethodPut, "/api/timezone",
		`{"timezone":"CET-1CEST,M3.5.0,M10.5.0/3"}`, "127.0.0.1:1")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.TimezoneResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	// October 2025 is still summer time in central Europe
	assert.Equal(t, int32(7200), resp.TZOffset)
	assert.Equal(t, testEpoch+7200, tb.Now(true))
	store.AssertExpectations(t)
}

func TestSetTimezone_Invalid(t *testing.T) {
	t.Parallel()
	store := &mockStore{}
	s, tb := newTestServer(t, store)

	rec := do(t, s.Handler(), http.MethodPut, "/api/timezone", `{"timezone":"Not/AZone"}`, "127.0.0.1:1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, time.UTC, tb.Location())
	store.AssertNotCalled(t, "SetTimezone", mock.Anything)
}

func TestSetTimezone_SaveFails(t *testing.T) {
	t.Parallel()
	store := &mockStore{}
	store.On("SetTimezone", "UTC0").Return()
	store.On("Save").Return(errors.New("read-only filesystem"))
	s, _ := newTestServer(t, store)

	rec := do(t, s.Handler(), http.MethodPut, "/api/timezone", `{"timezone":"UTC0"}`, "127.0.0.1:1")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSetTimezone_RemoteRejected(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t, nil)
	rec := do(t, s.Handler(), http.MethodPut, "/api/timezone", `{"timezone":"UTC0"}`, "192.168.1.2:1")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMetricsMounted(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t, nil)
	rec := do(t, s.Handler(), http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "timekeeper_quality")
}

func TestStartShutdown(t *testing.T) {
	t.Parallel()
	clock := clockwork.NewFakeClock()
	tb := rtc.New(rtc.Options{Ticks: rtc.NewClockTicks(clock)})
	s := NewServer(Options{TimeBase: tb, Listen: "127.0.0.1:0"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addr, err := s.Start(ctx)
	require.NoError(t, err)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+addr.String()+"/api/time", http.NoBody)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer shutdownCancel()
	require.NoError(t, s.Shutdown(shutdownCtx))
}
