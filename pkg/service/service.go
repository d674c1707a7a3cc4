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

// Package service wires the configured device clock, time sources and API
// around a single time base.
package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/ZaparooProject/zaparoo-timekeeper/pkg/api"
	"github.com/ZaparooProject/zaparoo-timekeeper/pkg/config"
	"github.com/ZaparooProject/zaparoo-timekeeper/pkg/helpers"
	"github.com/ZaparooProject/zaparoo-timekeeper/pkg/metrics"
	"github.com/ZaparooProject/zaparoo-timekeeper/pkg/rtc"
	"github.com/ZaparooProject/zaparoo-timekeeper/pkg/rtc/device"
	"github.com/ZaparooProject/zaparoo-timekeeper/pkg/service/discovery"
	"github.com/ZaparooProject/zaparoo-timekeeper/pkg/sources"
	"github.com/ZaparooProject/zaparoo-timekeeper/pkg/sources/gps"
	"github.com/ZaparooProject/zaparoo-timekeeper/pkg/sources/mqtt"
	"github.com/ZaparooProject/zaparoo-timekeeper/pkg/sources/ntp"
	"github.com/ZaparooProject/zaparoo-timekeeper/pkg/timezone"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 5 * time.Second

// DeviceOpener opens the device clock for a driver config.
type DeviceOpener func(cfg device.Config) (rtc.DeviceClock, func() error, error)

// Options holds the seams used by tests. The zero value runs on real
// hardware and the real clock.
type Options struct {
	OpenDevice DeviceOpener
	Clock      clockwork.Clock
	// ExtraSources builds sources run alongside the configured ones.
	ExtraSources func(sink sources.Sink) []sources.Source
	// WatchConfig reloads the config whenever its file changes.
	WatchConfig bool
}

type Service struct {
	cfg         *config.Instance
	clock       clockwork.Clock
	tb          *rtc.TimeBase
	metrics     *metrics.Metrics
	api         *api.Server
	apiAddr     net.Addr
	discovery   *discovery.Service
	closeDevice func() error
	cancel      context.CancelFunc
	done        chan struct{}
	stopOnce    sync.Once
	stopErr     error
}

//nolint:gocritic // options struct copied once at startup
func Start(cfg *config.Instance, opts Options) (*Service, error) {
	log.Info().Str("boot", uuid.New().String()).Msg("starting timekeeper")

	if opts.OpenDevice == nil {
		opts.OpenDevice = device.Open
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	loc, err := timezone.Load(cfg.Timezone())
	if err != nil {
		log.Error().Err(err).Msg("invalid timezone, using UTC")
		loc = time.UTC
	}

	rtcCfg := cfg.RTC()
	dev, closeDevice, err := opts.OpenDevice(device.Config{
		Driver: rtcCfg.Driver,
		I2CBus: rtcCfg.I2CBus,
		Device: rtcCfg.Device,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open rtc device: %w", err)
	}
	if closeDevice == nil {
		closeDevice = func() error { return nil }
	}

	m := metrics.New()
	tb := rtc.New(rtc.Options{
		Ticks:         rtc.NewClockTicks(opts.Clock),
		Device:        dev,
		Location:      loc,
		Observer:      m.Observe,
		MinValidEpoch: cfg.MinValidEpoch(),
	})
	m.Track(tb.Status)

	if dev != nil {
		if tb.ReadFromDevice() {
			log.Info().
				Str("device", dev.Name()).
				Stringer("quality", tb.Quality()).
				Time("time", time.Unix(tb.Now(false), 0)).
				Msg("loaded time from device")
		} else {
			log.Warn().Str("device", dev.Name()).Msg("no valid time on device")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		cfg:         cfg,
		clock:       opts.Clock,
		tb:          tb,
		metrics:     m,
		closeDevice: closeDevice,
		cancel:      cancel,
		done:        make(chan struct{}),
	}

	apiCfg := cfg.API()
	if apiCfg.Enabled {
		s.api = api.NewServer(api.Options{
			TimeBase:       tb,
			Store:          cfg,
			Metrics:        m.Handler(),
			Listen:         apiCfg.Listen,
			AllowedOrigins: apiCfg.AllowedOrigins,
			Clock:          opts.Clock,
		})
		s.apiAddr, err = s.api.Start(ctx)
		if err != nil {
			cancel()
			if cerr := closeDevice(); cerr != nil {
				log.Warn().Err(cerr).Msg("error closing rtc device")
			}
			return nil, fmt.Errorf("failed to start api: %w", err)
		}
		s.startDiscovery()
	}

	srcs := s.configuredSources()
	if opts.ExtraSources != nil {
		srcs = append(srcs, opts.ExtraSources(tb)...)
	}
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := sources.RunAll(ctx, srcs); err != nil {
			log.Error().Err(err).Msg("time sources stopped")
		}
		// the API and device refresh keep the service useful without sources
		<-ctx.Done()
	}()

	if interval := rtcCfg.RefreshInterval(); dev != nil && interval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.refreshLoop(ctx, interval)
		}()
	}

	if opts.WatchConfig {
		if err := s.watchConfig(ctx, &wg); err != nil {
			log.Warn().Err(err).Msg("config changes will need a reload signal")
		}
	}

	go func() {
		wg.Wait()
		close(s.done)
	}()

	return s, nil
}

func (s *Service) startDiscovery() {
	d := s.cfg.Discovery()
	if !d.Enabled {
		return
	}
	if !discovery.Advertisable(s.apiAddr) {
		log.Info().Str("addr", s.apiAddr.String()).Msg("api is loopback only, not advertising")
		return
	}
	tcp, ok := s.apiAddr.(*net.TCPAddr)
	if !ok {
		return
	}
	s.discovery = discovery.New(discovery.Options{
		InstanceName: d.InstanceName,
		Port:         tcp.Port,
	})
	s.discovery.Start()
}

func (s *Service) configuredSources() []sources.Source {
	var srcs []sources.Source

	if g := s.cfg.GPS(); g.Enabled {
		srcs = append(srcs, gps.New(s.tb, g.Port, g.BaudRate))
	}

	if n := s.cfg.NTP(); n.Enabled {
		var q ntp.Querier
		if n.NTS {
			q = ntp.NewNTS()
		} else {
			timeout := n.Timeout()
			if timeout <= 0 {
				timeout = ntp.DefaultTimeout
			}
			q = ntp.SNTP{Timeout: timeout}
		}
		srcs = append(srcs, ntp.New(s.tb, ntp.Options{
			Querier: q,
			Clock:   s.clock,
			Servers: n.Servers,
			Poll:    n.PollInterval(),
		}))
	}

	if mc := s.cfg.MQTT(); mc.Enabled {
		srcs = append(srcs, mqtt.New(s.tb, mc.Broker, mqtt.Credentials{
			Username: mc.Username,
			Password: mc.Password,
		}))
	}

	return srcs
}

// refreshLoop keeps a device-only time base tracking the chip, which drifts
// less than the tick counter.
func (s *Service) refreshLoop(ctx context.Context, interval time.Duration) {
	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if s.tb.RefreshFromDevice() {
				log.Debug().Msg("refreshed time from device")
			}
		}
	}
}

func (s *Service) TimeBase() *rtc.TimeBase {
	return s.tb
}

func (s *Service) Metrics() *metrics.Metrics {
	return s.metrics
}

// APIAddr returns the bound API address, or nil if the API is disabled.
func (s *Service) APIAddr() net.Addr {
	return s.apiAddr
}

// Done is closed once all background work has stopped.
func (s *Service) Done() <-chan struct{} {
	return s.done
}

// Reload re-reads the config file and applies the settings that can change
// at runtime: timezone and debug logging.
func (s *Service) Reload() error {
	if err := s.cfg.Load(); err != nil {
		return fmt.Errorf("failed to reload config: %w", err)
	}
	helpers.SetDebugLogging(s.cfg.DebugLogging())

	loc, err := timezone.Load(s.cfg.Timezone())
	if err != nil {
		return fmt.Errorf("failed to apply timezone: %w", err)
	}
	s.tb.SetLocation(loc)
	log.Info().Str("timezone", loc.String()).Msg("config reloaded")
	return nil
}

// Stop shuts down the API and sources, then releases the device.
func (s *Service) Stop() error {
	s.stopOnce.Do(func() {
		var errs []error
		if s.discovery != nil {
			s.discovery.Stop()
		}
		if s.api != nil {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			errs = append(errs, s.api.Shutdown(ctx))
			cancel()
		}
		s.cancel()
		<-s.done
		if err := s.closeDevice(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close rtc device: %w", err))
		}
		s.stopErr = errors.Join(errs...)
		log.Info().Msg("timekeeper stopped")
	})
	return s.stopErr
}
