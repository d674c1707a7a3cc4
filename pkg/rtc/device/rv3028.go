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
	"time"

	"github.com/ZaparooProject/zaparoo-timekeeper/pkg/rtc"
	"github.com/rs/zerolog/log"
)

// RV3028Addr is the fixed I2C address of the Micro Crystal RV-3028-C7.
const RV3028Addr uint16 = 0x52

const (
	rv3028RegSeconds = 0x00
	rv3028RegStatus  = 0x0e
	rv3028StatusPORF = 0x01
	rv3028TimeRegs   = 7
)

// RV3028 drives an RV-3028-C7 in 24 hour mode. The chip stores a two digit
// year which is read as 20xx.
type RV3028 struct {
	bus  Bus
	addr uint16
}

func NewRV3028(bus Bus) *RV3028 {
	return &RV3028{bus: bus, addr: RV3028Addr}
}

func (*RV3028) Name() string {
	return "RV3028"
}

func (d *RV3028) Read() (int64, bool) {
	status, err := readRegs(d.bus, d.addr, rv3028RegStatus, 1)
	if err != nil {
		log.Error().Err(err).Msg("failed to read RV3028 status")
		return 0, false
	}
	if status[0]&rv3028StatusPORF != 0 {
		log.Warn().Msg("RV3028 power on reset flag set, time not valid")
		return 0, false
	}

	regs, err := readRegs(d.bus, d.addr, rv3028RegSeconds, rv3028TimeRegs)
	if err != nil {
		log.Error().Err(err).Msg("failed to read RV3028 time")
		return 0, false
	}

	// regs[3] is the weekday, derived from the date on write
	t := rtc.BrokenDownTime{
		Second: fromBCD(regs[0] & 0x7f),
		Minute: fromBCD(regs[1] & 0x7f),
		Hour:   fromBCD(regs[2] & 0x3f),
		Day:    fromBCD(regs[4] & 0x3f),
		Month:  fromBCD(regs[5]&0x1f) - 1,
		Year:   100 + fromBCD(regs[6]),
	}
	return rtc.Normalize(t), true
}

func (d *RV3028) Write(epoch int64) error {
	tm := time.Unix(epoch, 0).UTC()
	if tm.Year() < 2000 || tm.Year() > 2099 {
		log.Warn().Msgf("RV3028 cannot store year %d", tm.Year())
		return fmt.Errorf("%w: RV3028 year %d", ErrYearRange, tm.Year())
	}

	err := writeRegs(d.bus, d.addr, rv3028RegSeconds,
		toBCD(tm.Second()),
		toBCD(tm.Minute()),
		toBCD(tm.Hour()),
		byte(tm.Weekday()),
		toBCD(tm.Day()),
		toBCD(int(tm.Month())),
		toBCD(tm.Year()-2000),
	)
	if err != nil {
		log.Error().Err(err).Msg("failed to write RV3028 time")
		return fmt.Errorf("failed to write RV3028 time: %w", err)
	}

	// clears PORF so the next boot trusts the stored time
	if err := writeRegs(d.bus, d.addr, rv3028RegStatus, 0x00); err != nil {
		log.Error().Err(err).Msg("failed to clear RV3028 status")
		return fmt.Errorf("failed to clear RV3028 status: %w", err)
	}
	return nil
}
