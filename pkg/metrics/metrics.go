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

// Package metrics exports the state of the time base to Prometheus.
package metrics

import (
	"net/http"

	"github.com/ZaparooProject/zaparoo-timekeeper/pkg/rtc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "timekeeper"

type Metrics struct {
	registry    *prometheus.Registry
	submissions *prometheus.CounterVec
}

// New creates a registry with the submission counter and the Go runtime
// collectors. Call Track once the time base exists to export its state.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Candidate times offered to the time base, by quality and result.",
		}, []string{"quality", "result"}),
	}
	reg.MustRegister(
		m.submissions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Observe counts one arbitration decision. It matches the observer hook of
// rtc.Options.
func (m *Metrics) Observe(u rtc.Update) {
	m.submissions.WithLabelValues(u.Observation.Quality.String(), u.Result.String()).Inc()
}

// Track exports gauges read from status on every scrape.
func (m *Metrics) Track(status func() rtc.Status) {
	m.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "quality",
			Help:      "Quality of the current time base (0 none, 1 device, 2 net, 3 ntp, 4 gps).",
		}, func() float64 {
			return float64(status().Quality)
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "seconds_since_external_set",
			Help:      "Seconds since an NTP or GPS time was accepted, -1 if never.",
		}, func() float64 {
			s := status()
			if !s.ExternalSet {
				return -1
			}
			return s.SinceExternalSet.Seconds()
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tz_offset_seconds",
			Help:      "Offset of the configured timezone from UTC.",
		}, func() float64 {
			return float64(status().TZOffset)
		}),
	)
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
