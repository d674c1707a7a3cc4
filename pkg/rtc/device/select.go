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

package device

import (
	"fmt"
	"os"
	"strings"

	"github.com/ZaparooProject/zaparoo-timekeeper/pkg/rtc"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const (
	DriverAuto    = "auto"
	DriverRV3028  = "rv3028"
	DriverPCF8563 = "pcf8563"
	DriverLinux   = "linux"
	DriverSystem  = "system"
	DriverNone    = "none"
)

// Drivers lists every accepted driver name.
var Drivers = []string{
	DriverAuto, DriverRV3028, DriverPCF8563, DriverLinux, DriverSystem, DriverNone,
}

// Config selects the device clock.
type Config struct {
	// Driver is one of Drivers. Empty means auto.
	Driver string
	// I2CBus names the periph bus for the I2C chips. Empty opens the first.
	I2CBus string
	// Device is the kernel RTC node for the linux driver.
	Device string
}

// Opener builds device clocks. The zero value uses real hardware.
type Opener struct {
	OpenBus func(name string) (BusCloser, error)
	Exists  func(path string) bool
	Clock   clockwork.Clock
}

func noClose() error { return nil }

// Open returns the device clock described by cfg with the closer releasing
// its resources. Driver "none" returns a nil clock.
func Open(cfg Config) (rtc.DeviceClock, func() error, error) {
	return Opener{}.Open(cfg)
}

//nolint:ireturn // the time base only needs the interface
func (o Opener) Open(cfg Config) (rtc.DeviceClock, func() error, error) {
	if o.OpenBus == nil {
		o.OpenBus = OpenI2C
	}
	if o.Exists == nil {
		o.Exists = pathExists
	}

	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "", DriverAuto:
		dev, closer := o.detect(cfg)
		log.Info().Msgf("using %s as device clock", dev.Name())
		return dev, closer, nil
	case DriverRV3028, DriverPCF8563:
		bus, err := o.OpenBus(cfg.I2CBus)
		if err != nil {
			return nil, noClose, err
		}
		if driver == DriverRV3028 {
			return NewRV3028(bus), bus.Close, nil
		}
		return NewPCF8563(bus), bus.Close, nil
	case DriverLinux:
		return NewLinux(cfg.Device), noClose, nil
	case DriverSystem:
		return NewSystem(o.Clock, nil), noClose, nil
	case DriverNone:
		return nil, noClose, nil
	default:
		return nil, noClose, fmt.Errorf("unknown rtc driver: %s", cfg.Driver)
	}
}

// detect probes the I2C chips, then the kernel RTC, and falls back to the
// system clock.
func (o Opener) detect(cfg Config) (rtc.DeviceClock, func() error) {
	bus, err := o.OpenBus(cfg.I2CBus)
	if err != nil {
		log.Debug().Err(err).Msg("no i2c bus for rtc detection")
	} else {
		switch {
		case Probe(bus, RV3028Addr):
			return NewRV3028(bus), bus.Close
		case Probe(bus, PCF8563Addr):
			return NewPCF8563(bus), bus.Close
		}
		if err := bus.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close i2c bus")
		}
	}

	path := cfg.Device
	if path == "" {
		path = DefaultLinuxRTC
	}
	if o.Exists(path) {
		return NewLinux(path), noClose
	}

	return NewSystem(o.Clock, nil), noClose
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
