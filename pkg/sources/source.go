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

// Package sources contains the producers of candidate times: GPS receivers,
// NTP servers and the mesh. Each runs independently and offers what it
// receives to the time base, which decides whether to use it.
package sources

import (
	"context"
	"errors"
	"fmt"

	"github.com/ZaparooProject/zaparoo-timekeeper/pkg/rtc"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Source produces candidate times until its context is cancelled.
type Source interface {
	Name() string
	Run(ctx context.Context) error
}

// Sink accepts candidate times. It is satisfied by *rtc.TimeBase.
type Sink interface {
	SubmitTime(q rtc.Quality, epoch int64, force bool) rtc.SetResult
	SubmitCalendarTime(q rtc.Quality, t rtc.BrokenDownTime) rtc.SetResult
}

// RunAll runs every source until ctx is cancelled. A failing source does not
// stop the others; the first failure is returned once all have exited.
func RunAll(ctx context.Context, srcs []Source) error {
	var g errgroup.Group
	for _, src := range srcs {
		g.Go(func() error {
			log.Info().Msgf("starting time source: %s", src.Name())
			err := src.Run(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msgf("time source stopped: %s", src.Name())
				return fmt.Errorf("%s: %w", src.Name(), err)
			}
			log.Debug().Msgf("time source exited: %s", src.Name())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("time source failed: %w", err)
	}
	return nil
}
