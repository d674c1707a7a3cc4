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
	"io"

	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// Bus is the part of an I2C bus the chip drivers use. It is satisfied by
// periph.io i2c.Bus.
type Bus interface {
	Tx(addr uint16, w, r []byte) error
}

// BusCloser is a Bus that owns an open handle.
type BusCloser interface {
	Bus
	io.Closer
}

// OpenI2C initialises the host drivers and opens the named I2C bus. An
// empty name opens the first bus found.
func OpenI2C(name string) (BusCloser, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialise host drivers: %w", err)
	}
	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open i2c bus %q: %w", name, err)
	}
	return bus, nil
}

// readRegs reads n consecutive registers starting at reg.
func readRegs(bus Bus, addr uint16, reg byte, n int) ([]byte, error) {
	buf := make([]byte, n)
	if err := bus.Tx(addr, []byte{reg}, buf); err != nil {
		return nil, fmt.Errorf("failed to read register 0x%02x at 0x%02x: %w", reg, addr, err)
	}
	return buf, nil
}

// writeRegs writes vals to consecutive registers starting at reg.
func writeRegs(bus Bus, addr uint16, reg byte, vals ...byte) error {
	w := append([]byte{reg}, vals...)
	if err := bus.Tx(addr, w, nil); err != nil {
		return fmt.Errorf("failed to write register 0x%02x at 0x%02x: %w", reg, addr, err)
	}
	return nil
}

// Probe reports whether a device acknowledges a register read at addr.
func Probe(bus Bus, addr uint16) bool {
	_, err := readRegs(bus, addr, 0x00, 1)
	return err == nil
}
