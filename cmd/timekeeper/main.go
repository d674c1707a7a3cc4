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

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/ZaparooProject/zaparoo-timekeeper/internal/telemetry"
	"github.com/ZaparooProject/zaparoo-timekeeper/pkg/api/client"
	"github.com/ZaparooProject/zaparoo-timekeeper/pkg/cli"
	"github.com/ZaparooProject/zaparoo-timekeeper/pkg/config"
	"github.com/ZaparooProject/zaparoo-timekeeper/pkg/helpers"
	"github.com/ZaparooProject/zaparoo-timekeeper/pkg/service"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	flags := cli.SetupFlags(flag.CommandLine)
	if exit, err := flags.Pre(os.Args[1:], os.Stdout); exit {
		return err
	}

	cfg, err := flags.Setup(config.BaseDefaults, nil)
	if err != nil {
		return err
	}
	defer telemetry.Close()

	defer func() {
		if err := recover(); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Panic: %s\n", err)
			telemetry.Flush()
			log.Fatal().Msgf("panic: %v", err)
		}
	}()

	if handled, err := flags.Post(context.Background(), client.LocalClient(cfg), os.Stdout); handled {
		return err
	}

	pid := helpers.NewPidFile(flags.PidPath())
	if err := pid.Create(); err != nil {
		return fmt.Errorf("error creating pid file: %w", err)
	}
	defer func() {
		if err := pid.Remove(); err != nil {
			log.Warn().Err(err).Msg("error removing pid file")
		}
	}()

	log.Info().Msgf("version: %s", config.AppVersion)
	svc, err := service.Start(cfg, service.Options{WatchConfig: true})
	if err != nil {
		log.Error().Err(err).Msg("error starting service")
		return fmt.Errorf("error starting service: %w", err)
	}
	defer func() {
		if err := svc.Stop(); err != nil {
			log.Error().Err(err).Msg("error stopping service")
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigs)

	for sig := range sigs {
		if sig != syscall.SIGHUP {
			log.Info().Msgf("received %s, shutting down", sig)
			break
		}
		if err := svc.Reload(); err != nil {
			log.Error().Err(err).Msg("error reloading config")
		}
	}
	return nil
}
