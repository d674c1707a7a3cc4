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

// Package gps reads UTC time from an NMEA 0183 receiver on a serial port.
package gps

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ZaparooProject/zaparoo-timekeeper/pkg/rtc"
	"github.com/ZaparooProject/zaparoo-timekeeper/pkg/sources"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
	"golang.org/x/time/rate"
)

const (
	DefaultBaudRate = 9600
	// NMEA limits sentences to 82 characters.
	maxLineLength = 128
	reopenDelay   = 10 * time.Second
	readTimeout   = 500 * time.Millisecond
)

// SubmitInterval limits how often accepted fixes are offered to the time
// base. Receivers emit several time sentences per second and every accepted
// GPS time is also written to the device clock. Rejected fixes do not count.
const SubmitInterval = time.Minute

// SerialPort is the part of a serial port the reader uses.
type SerialPort interface {
	Read(p []byte) (n int, err error)
	Close() error
	SetReadTimeout(t time.Duration) error
}

// PortFactory opens a serial port.
type PortFactory func(path string, mode *serial.Mode) (SerialPort, error)

// DefaultPortFactory opens real serial ports.
//
//nolint:ireturn // factory for test injection
func DefaultPortFactory(path string, mode *serial.Mode) (SerialPort, error) {
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port: %w", err)
	}
	return port, nil
}

// Source offers GPS receiver time as QualityGPS.
type Source struct {
	sink        sources.Sink
	portFactory PortFactory
	clock       clockwork.Clock
	limiter     *rate.Limiter
	listPorts   func() ([]string, error)
	path        string
	baudRate    int
}

func New(sink sources.Sink, path string, baudRate int) *Source {
	if baudRate <= 0 {
		baudRate = DefaultBaudRate
	}
	return &Source{
		sink:        sink,
		path:        path,
		baudRate:    baudRate,
		portFactory: DefaultPortFactory,
		clock:       clockwork.NewRealClock(),
		listPorts:   ListPorts,
		limiter:     rate.NewLimiter(rate.Every(SubmitInterval), 1),
	}
}

func (s *Source) Name() string {
	return "gps:" + s.path
}

// Run reads the receiver until ctx is cancelled, reopening the port after
// errors. With AutoPort the receiver is searched for before every open.
func (s *Source) Run(ctx context.Context) error {
	for {
		err := s.readPort(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn().Err(err).Msgf("gps: %s unavailable, retrying in %s", s.path, reopenDelay)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.clock.After(reopenDelay):
		}
	}
}

func (s *Source) openPort(path string) (SerialPort, error) {
	port, err := s.portFactory(path, &serial.Mode{
		BaudRate: s.baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, err
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		closePort(port)
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}
	return port, nil
}

func closePort(port SerialPort) {
	if err := port.Close(); err != nil {
		log.Debug().Err(err).Msg("gps: failed to close port")
	}
}

func (s *Source) readPort(ctx context.Context) error {
	path := s.path
	if path == AutoPort {
		found, err := s.detect(ctx)
		if err != nil {
			return err
		}
		path = found
	}

	port, err := s.openPort(path)
	if err != nil {
		return err
	}
	defer closePort(port)

	log.Info().Msgf("gps: reading NMEA from %s at %d baud", path, s.baudRate)
	return scanLines(ctx, port, func(line string) bool {
		s.handleLine(line)
		return true
	})
}

// scanLines calls fn with each complete line until fn returns false, the
// port fails or ctx is done.
func scanLines(ctx context.Context, port SerialPort, fn func(line string) bool) error {
	buf := make([]byte, 256)
	var line []byte
	overflowed := false
	for ctx.Err() == nil {
		// a timeout returns n == 0 and no error
		n, err := port.Read(buf)
		for _, b := range buf[:n] {
			switch {
			case b == '\n' || b == '\r':
				if !overflowed && len(line) > 0 && !fn(string(line)) {
					return nil
				}
				line = line[:0]
				overflowed = false
			case overflowed:
			case len(line) >= maxLineLength:
				overflowed = true
			default:
				line = append(line, b)
			}
		}
		if err != nil {
			return fmt.Errorf("read failed: %w", err)
		}
	}
	return ctx.Err()
}

func (s *Source) handleLine(line string) {
	t, err := ParseSentence(line)
	switch {
	case errors.Is(err, ErrNoTime):
		return
	case err != nil:
		log.Debug().Err(err).Msg("gps: ignoring sentence")
		return
	}

	now := s.clock.Now()
	if s.limiter.TokensAt(now) < 1 {
		return
	}
	res := s.sink.SubmitCalendarTime(rtc.QualityGPS, t)
	log.Debug().Msgf("gps: submitted %04d-%02d-%02d %02d:%02d:%02d: %s",
		t.Year+rtc.ReferenceYear, t.Month+1, t.Day, t.Hour, t.Minute, t.Second, res)
	if res == rtc.SetResultSuccess {
		s.limiter.AllowN(now, 1)
	}
}
