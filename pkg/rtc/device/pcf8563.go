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

// PCF8563Addr is the fixed I2C address of the NXP PCF8563.
const PCF8563Addr uint16 = 0x51

const (
	pcf8563RegSeconds = 0x02
	pcf8563TimeRegs   = 7
	pcf8563VL         = 0x80 // seconds register: clock integrity lost
	pcf8563Century    = 0x80 // months register: year is 21xx
)

// PCF8563 drives an NXP PCF8563 or a compatible BM8563.
type PCF8563 struct {
	bus  Bus
	addr uint16
}

func NewPCF8563(bus Bus) *PCF8563 {
	return &PCF8563{bus: bus, addr: PCF8563Addr}
}

func (*PCF8563) Name() string {
	return "PCF8563"
}

func (d *PCF8563) Read() (int64, bool) {
	regs, err := readRegs(d.bus, d.addr, pcf8563RegSeconds, pcf8563TimeRegs)
	if err != nil {
		log.Error().Err(err).Msg("failed to read PCF8563 time")
		return 0, false
	}
	if regs[0]&pcf8563VL != 0 {
		log.Warn().Msg("PCF8563 voltage low flag set, time not valid")
		return 0, false
	}

	year := 100 + fromBCD(regs[6])
	if regs[5]&pcf8563Century != 0 {
		year += 100
	}
	t := rtc.BrokenDownTime{
		Second: fromBCD(regs[0] & 0x7f),
		Minute: fromBCD(regs[1] & 0x7f),
		Hour:   fromBCD(regs[2] & 0x3f),
		Day:    fromBCD(regs[3] & 0x3f),
		Month:  fromBCD(regs[5]&0x1f) - 1,
		Year:   year,
	}
	return rtc.Normalize(t), true
}

func (d *PCF8563) Write(epoch int64) error {
	tm := time.Unix(epoch, 0).UTC()
	if tm.Year() < 2000 || tm.Year() > 2199 {
		log.Warn().Msgf("PCF8563 cannot store year %d", tm.Year())
		return fmt.Errorf("%w: PCF8563 year %d", ErrYearRange, tm.Year())
	}

	month := toBCD(int(tm.Month()))
	if tm.Year() >= 2100 {
		month |= pcf8563Century
	}
	// writing the seconds register also clears VL
	err := writeRegs(d.bus, d.addr, pcf8563RegSeconds,
		toBCD(tm.Second()),
		toBCD(tm.Minute()),
		toBCD(tm.Hour()),
		toBCD(tm.Day()),
		byte(tm.Weekday()),
		month,
		toBCD(tm.Year()%100),
	)
	if err != nil {
		log.Error().Err(err).Msg("failed to write PCF8563 time")
		return fmt.Errorf("failed to write PCF8563 time: %w", err)
	}
	return nil
}
