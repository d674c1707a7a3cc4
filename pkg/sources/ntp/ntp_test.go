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
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ZaparooProject/zaparoo-timekeeper/pkg/rtc"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockQuerier struct {
	mock.Mock
}

func (m *mockQuerier) Query(server string) (time.Duration, error) {
	args := m.Called(server)
	return args.Get(0).(time.Duration), args.Error(1) //nolint:forcetypeassert // test mock
}

type submission struct {
	q     rtc.Quality
	epoch int64
}

type recordingSink struct {
	got []submission
	mu  sync.Mutex
}

func (s *recordingSink) SubmitTime(q rtc.Quality, epoch int64, _ bool) rtc.SetResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, submission{q: q, epoch: epoch})
	return rtc.SetResultSuccess
}

func (*recordingSink) SubmitCalendarTime(rtc.Quality, rtc.BrokenDownTime) rtc.SetResult {
	return rtc.SetResultNotSet
}

func (s *recordingSink) submissions() []submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]submission(nil), s.got...)
}

var start = time.Unix(1_700_000_000, 0)

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	s := New(&recordingSink{}, Options{})
	assert.Equal(t, DefaultServers, s.servers)
	assert.Equal(t, DefaultPollInterval, s.poll)
	assert.IsType(t, SNTP{}, s.querier)
	assert.Equal(t, "ntp", s.Name())
}

func TestPollOnce_SubmitsCorrectedTime(t *testing.T) {
	t.Parallel()

	q := &mockQuerier{}
	q.On("Query", "time.example").Return(90*time.Second, nil)
	sink := &recordingSink{}
	s := New(sink, Options{
		Querier: q,
		Clock:   clockwork.NewFakeClockAt(start),
		Servers: []string{"time.example"},
	})

	require.True(t, s.pollOnce())
	assert.Equal(t, []submission{{q: rtc.QualityNTP, epoch: start.Unix() + 90}}, sink.submissions())
	q.AssertExpectations(t)
}

func TestPollOnce_RotatesOnFailure(t *testing.T) {
	t.Parallel()

	q := &mockQuerier{}
	q.On("Query", "a").Return(time.Duration(0), errors.New("timeout")).Once()
	q.On("Query", "b").Return(time.Duration(0), nil).Once()
	sink := &recordingSink{}
	s := New(sink, Options{
		Querier: q,
		Clock:   clockwork.NewFakeClockAt(start),
		Servers: []string{"a", "b"},
	})

	assert.False(t, s.pollOnce())
	assert.Empty(t, sink.submissions())
	assert.True(t, s.pollOnce())
	assert.Len(t, sink.submissions(), 1)
	q.AssertExpectations(t)
}

func TestRun_BacksOffThenPolls(t *testing.T) {
	t.Parallel()

	q := &mockQuerier{}
	q.On("Query", "a").Return(time.Duration(0), errors.New("unreachable")).Twice()
	q.On("Query", "a").Return(time.Second, nil)
	clock := clockwork.NewFakeClockAt(start)
	sink := &recordingSink{}
	s := New(sink, Options{
		Querier: q,
		Clock:   clock,
		Servers: []string{"a"},
		Poll:    time.Hour,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	// first failure waits the minimum retry, the second twice as long
	for _, wait := range []time.Duration{minRetry, 2 * minRetry} {
		require.NoError(t, clock.BlockUntilContext(ctx, 1))
		assert.Empty(t, sink.submissions())
		clock.Advance(wait)
	}

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	assert.Len(t, sink.submissions(), 1)

	// after success only the full interval triggers another poll
	clock.Advance(time.Hour - time.Second)
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	assert.Len(t, sink.submissions(), 1)
	clock.Advance(time.Second)
	require.Eventually(t, func() bool { return len(sink.submissions()) == 2 },
		2*time.Second, 5*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestNTS_SessionCache(t *testing.T) {
	t.Parallel()

	q := NewNTS()
	q.drop("missing")
	assert.Empty(t, q.sessions)
}
