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

package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ZaparooProject/zaparoo-timekeeper/pkg/rtc"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserve(t *testing.T) {
	t.Parallel()

	m := New()
	m.Observe(rtc.Update{Observation: rtc.Observation{Quality: rtc.QualityGPS}, Result: rtc.SetResultSuccess})
	m.Observe(rtc.Update{Observation: rtc.Observation{Quality: rtc.QualityGPS}, Result: rtc.SetResultSuccess})
	m.Observe(rtc.Update{Observation: rtc.Observation{Quality: rtc.QualityFromNet}, Result: rtc.SetResultNotSet})

	assert.InDelta(t, 2, testutil.ToFloat64(m.submissions.WithLabelValues("GPS", "success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.submissions.WithLabelValues("Net", "not_set")), 0)
}

func TestTrack(t *testing.T) {
	t.Parallel()

	m := New()
	status := rtc.Status{
		Quality:          rtc.QualityNTP,
		ExternalSet:      true,
		SinceExternalSet: 90 * time.Second,
		TZOffset:         3600,
	}
	m.Track(func() rtc.Status { return status })

	expected := `
# HELP timekeeper_quality Quality of the current time base (0 none, 1 device, 2 net, 3 ntp, 4 gps).
# TYPE timekeeper_quality gauge
timekeeper_quality 3
# HELP timekeeper_seconds_since_external_set Seconds since an NTP or GPS time was accepted, -1 if never.
# TYPE timekeeper_seconds_since_external_set gauge
timekeeper_seconds_since_external_set 90
# HELP timekeeper_tz_offset_seconds Offset of the configured timezone from UTC.
# TYPE timekeeper_tz_offset_seconds gauge
timekeeper_tz_offset_seconds 3600
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected),
		"timekeeper_quality", "timekeeper_seconds_since_external_set", "timekeeper_tz_offset_seconds"))

	status = rtc.Status{}
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(`
# HELP timekeeper_seconds_since_external_set Seconds since an NTP or GPS time was accepted, -1 if never.
# TYPE timekeeper_seconds_since_external_set gauge
timekeeper_seconds_since_external_set -1
`), "timekeeper_seconds_since_external_set"))
}

func TestHandler(t *testing.T) {
	t.Parallel()

	m := New()
	m.Observe(rtc.Update{Observation: rtc.Observation{Quality: rtc.QualityNTP}, Result: rtc.SetResultSuccess})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `timekeeper_submissions_total{quality="NTP",result="success"} 1`)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
