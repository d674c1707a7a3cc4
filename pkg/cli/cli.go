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

// Package cli holds the command line flags shared by the timekeeper binaries.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ZaparooProject/zaparoo-timekeeper/internal/telemetry"
	"github.com/ZaparooProject/zaparoo-timekeeper/pkg/api/client"
	"github.com/ZaparooProject/zaparoo-timekeeper/pkg/api/models"
	"github.com/ZaparooProject/zaparoo-timekeeper/pkg/config"
	"github.com/ZaparooProject/zaparoo-timekeeper/pkg/helpers"
	"github.com/rs/zerolog/log"
)

const (
	DefaultConfigDir = "/etc/timekeeper"
	DefaultDataDir   = "/var/lib/timekeeper"
)

var ErrFlagValue = errors.New("flag requires a value")

type Flags struct {
	set         *flag.FlagSet
	ConfigDir   *string
	DataDir     *string
	SetTimezone *string
	Quality     *string
	SetTime     *int64
	Version     *bool
	Status      *bool
	Force       *bool
	Daemon      *bool
}

// SetupFlags defines all flags on fs.
func SetupFlags(fs *flag.FlagSet) *Flags {
	return &Flags{
		set: fs,
		ConfigDir: fs.String(
			"config-dir",
			DefaultConfigDir,
			"directory holding "+config.CfgFile,
		),
		DataDir: fs.String(
			"data-dir",
			DefaultDataDir,
			"directory for logs and the pid file",
		),
		Version: fs.Bool(
			"version",
			false,
			"print version and exit",
		),
		Status: fs.Bool(
			"status",
			false,
			"print the running daemon's time status",
		),
		SetTime: fs.Int64(
			"set-time",
			0,
			"submit a Unix time to the running daemon",
		),
		Quality: fs.String(
			"quality",
			"ntp",
			"quality of the time given to -set-time",
		),
		Force: fs.Bool(
			"force",
			false,
			"override the current time regardless of quality",
		),
		SetTimezone: fs.String(
			"set-timezone",
			"",
			"change the running daemon's timezone",
		),
		Daemon: fs.Bool(
			"daemon",
			false,
			"log to stderr as well as the log file",
		),
	}
}

func (f *Flags) passed(name string) bool {
	found := false
	f.set.Visit(func(fl *flag.Flag) {
		if fl.Name == name {
			found = true
		}
	})
	return found
}

// Pre parses args and handles flags that need no environment. It returns
// true if the process should exit.
func (f *Flags) Pre(args []string, out io.Writer) (bool, error) {
	if err := f.set.Parse(args); err != nil {
		return true, fmt.Errorf("failed to parse flags: %w", err)
	}

	if *f.Version {
		_, _ = fmt.Fprintf(out, "Zaparoo Timekeeper v%s\n", config.AppVersion)
		return true, nil
	}
	return false, nil
}

// Post handles the client flags, which talk to a running daemon. It returns
// true if one was handled and the process should exit.
func (f *Flags) Post(ctx context.Context, c *client.Client, out io.Writer) (bool, error) {
	switch {
	case *f.Status:
		resp, err := c.Time(ctx)
		if err != nil {
			return true, fmt.Errorf("error getting status: %w", err)
		}
		return true, printJSON(out, resp)
	case f.passed("set-time"):
		if *f.SetTime <= 0 {
			return true, fmt.Errorf("set-time: %w", ErrFlagValue)
		}
		resp, err := c.SetTime(ctx, models.SetTimeParams{
			Time:    *f.SetTime,
			Quality: *f.Quality,
			Force:   *f.Force,
		})
		if err != nil {
			return true, fmt.Errorf("error setting time: %w", err)
		}
		return true, printJSON(out, resp)
	case f.passed("set-timezone"):
		if *f.SetTimezone == "" {
			return true, fmt.Errorf("set-timezone: %w", ErrFlagValue)
		}
		resp, err := c.SetTimezone(ctx, *f.SetTimezone)
		if err != nil {
			return true, fmt.Errorf("error setting timezone: %w", err)
		}
		return true, printJSON(out, resp)
	}
	return false, nil
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to print response: %w", err)
	}
	return nil
}

// PidPath is where the daemon records its PID.
func (f *Flags) PidPath() string {
	return filepath.Join(*f.DataDir, config.PidFile)
}

// Setup initializes logging, the user config and error reporting.
//
//nolint:gocritic // config struct copied for immutability
func (f *Flags) Setup(defaults config.Values, writers []io.Writer) (*config.Instance, error) {
	if *f.Daemon {
		writers = append(writers, os.Stderr)
	}
	if err := helpers.InitLogging(*f.DataDir, writers); err != nil {
		return nil, fmt.Errorf("error initializing logging: %w", err)
	}

	cfg, err := config.NewConfig(*f.ConfigDir, defaults)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	helpers.SetDebugLogging(cfg.DebugLogging())

	tel := cfg.Telemetry()
	if err := telemetry.Init(telemetry.Options{
		DSN:        tel.DSN,
		AppVersion: config.AppVersion,
		Driver:     cfg.RTC().Driver,
		Enabled:    tel.ErrorReporting,
	}); err != nil {
		log.Warn().Err(err).Msg("failed to initialize error reporting")
	}

	return cfg, nil
}
