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

// Package ntp polls network time servers and offers their time as
// QualityNTP.
package ntp

import (
	"context"
	"time"

	"github.com/ZaparooProject/zaparoo-timekeeper/pkg/rtc"
	"github.com/ZaparooProject/zaparoo-timekeeper/pkg/sources"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const (
	DefaultPollInterval = time.Hour
	DefaultTimeout      = 5 * time.Second
	minRetry            = 30 * time.Second
)

// DefaultServers is used when no servers are configured.
var DefaultServers = []string{"pool.ntp.org"}

// Options configures a Source.
type Options struct {
	Querier Querier
	Clock   clockwork.Clock
	Servers []string
	Poll    time.Duration
}

// Source polls the configured servers in turn. A successful poll waits the
// full interval; failures back off from 30 seconds up to the interval, moving
// to the next server after each failure.
type Source struct {
	sink    sources.Sink
	querier Querier
	clock   clockwork.Clock
	servers []string
	poll    time.Duration
	next    int
}

//nolint:gocritic // options struct copied once at construction
func New(sink sources.Sink, opts Options) *Source {
	s := &Source{
		sink:    sink,
		querier: opts.Querier,
		clock:   opts.Clock,
		servers: opts.Servers,
		poll:    opts.Poll,
	}
	if s.querier == nil {
		s.querier = SNTP{Timeout: DefaultTimeout}
	}
	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	if len(s.servers) == 0 {
		s.servers = DefaultServers
	}
	if s.poll <= 0 {
		s.poll = DefaultPollInterval
	}
	return s
}

func (*Source) Name() string {
	return "ntp"
}

func (s *Source) Run(ctx context.Context) error {
	retry := minRetry
	for {
		wait := s.poll
		if s.pollOnce() {
			retry = minRetry
		} else {
			wait = retry
			retry = min(retry*2, s.poll)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.clock.After(wait):
		}
	}
}

// pollOnce queries the current server and submits its time. It reports
// whether a time was obtained.
func (s *Source) pollOnce() bool {
	server := s.servers[s.next%len(s.servers)]
	offset, err := s.querier.Query(server)
	if err != nil {
		log.Warn().Err(err).Msgf("ntp: query to %s failed", server)
		s.next = (s.next + 1) % len(s.servers)
		return false
	}

	now := s.clock.Now().Add(offset)
	res := s.sink.SubmitTime(rtc.QualityNTP, now.Unix(), false)
	log.Debug().Msgf("ntp: %s offset %s: %s", server, offset, res)
	return true
}
