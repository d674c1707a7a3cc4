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

package ntp

import (
	"fmt"
	"time"

	"github.com/ZaparooProject/zaparoo-timekeeper/pkg/helpers/syncutil"
	"github.com/beevik/ntp"
	"github.com/beevik/nts"
	"github.com/rs/zerolog/log"
)

// Querier measures the offset of the local clock against a server.
type Querier interface {
	Query(server string) (time.Duration, error)
}

// SNTP queries plain NTP servers.
type SNTP struct {
	Timeout time.Duration
}

func (q SNTP) Query(server string) (time.Duration, error) {
	resp, err := ntp.QueryWithOptions(server, ntp.QueryOptions{Timeout: q.Timeout})
	if err != nil {
		return 0, fmt.Errorf("ntp query failed: %w", err)
	}
	if err := resp.Validate(); err != nil {
		return 0, fmt.Errorf("invalid ntp response: %w", err)
	}
	return resp.ClockOffset, nil
}

// NTS queries Network Time Security servers. The key exchange is done once
// per server and the session reused until a query fails.
type NTS struct {
	sessions map[string]*nts.Session
	mu       syncutil.Mutex
}

func NewNTS() *NTS {
	return &NTS{sessions: make(map[string]*nts.Session)}
}

func (q *NTS) session(server string) (*nts.Session, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if s, ok := q.sessions[server]; ok {
		return s, nil
	}
	s, err := nts.NewSession(server)
	if err != nil {
		return nil, fmt.Errorf("nts key exchange with %s failed: %w", server, err)
	}
	log.Debug().Msgf("ntp: established NTS session with %s", server)
	q.sessions[server] = s
	return s, nil
}

func (q *NTS) drop(server string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.sessions, server)
}

func (q *NTS) Query(server string) (time.Duration, error) {
	s, err := q.session(server)
	if err != nil {
		return 0, err
	}
	resp, err := s.Query()
	if err != nil {
		q.drop(server)
		return 0, fmt.Errorf("nts query failed: %w", err)
	}
	if err := resp.Validate(); err != nil {
		return 0, fmt.Errorf("invalid nts response: %w", err)
	}
	return resp.ClockOffset, nil
}
