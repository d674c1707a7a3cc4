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

package gps

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
)

// AutoPort as the port path searches the serial ports for a receiver.
const AutoPort = "auto"

const probeTimeout = 3 * time.Second

var ErrNoReceiver = errors.New("no gps receiver found")

func portPrefixes(goos string) []string {
	switch goos {
	case "linux":
		return []string{"/dev/ttyUSB", "/dev/ttyACM", "/dev/ttyAMA", "/dev/serial", "/dev/ttyS0"}
	case "darwin":
		return []string{"/dev/tty.usbserial", "/dev/tty.usbmodem"}
	case "windows":
		return []string{"COM"}
	default:
		return nil
	}
}

func filterPorts(ports, prefixes []string) []string {
	if prefixes == nil {
		return ports
	}
	var out []string
	for _, p := range ports {
		for _, prefix := range prefixes {
			if strings.HasPrefix(p, prefix) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

// ListPorts returns the serial ports a receiver is likely attached to.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to get serial ports list: %w", err)
	}
	return filterPorts(ports, portPrefixes(runtime.GOOS)), nil
}

// looksLikeNMEA accepts any checksummed sentence, not only time sentences,
// so a receiver without a fix is still found.
func looksLikeNMEA(line string) bool {
	_, err := ParseSentence(line)
	return err == nil || errors.Is(err, ErrNoTime)
}

func (s *Source) detect(ctx context.Context) (string, error) {
	ports, err := s.listPorts()
	if err != nil {
		return "", err
	}

	for _, path := range ports {
		if s.probe(ctx, path) {
			log.Info().Msgf("gps: found receiver on %s", path)
			return path, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}
	return "", fmt.Errorf("%w on %d ports", ErrNoReceiver, len(ports))
}

func (s *Source) probe(ctx context.Context, path string) bool {
	port, err := s.openPort(path)
	if err != nil {
		log.Debug().Err(err).Msgf("gps: skipping %s", path)
		return false
	}
	defer closePort(port)

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	found := false
	_ = scanLines(probeCtx, port, func(line string) bool {
		found = looksLikeNMEA(line)
		return !found
	})
	return found
}
