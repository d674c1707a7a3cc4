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

package rtc

import (
	"time"

	"github.com/ZaparooProject/zaparoo-timekeeper/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
)

// NTPReapplyInterval is how long an NTP grade time must wait before it is
// allowed to replace a time base of equal or better quality. It corrects
// drift of the local tick counter without hammering the device clock.
const NTPReapplyInterval = 12 * time.Hour

// Observation is a candidate time reading. It is not retained after
// arbitration.
type Observation struct {
	Quality Quality
	Epoch   int64
	Force   bool
}

// Update describes one arbitration decision. It is handed to the observer
// configured in Options after the time base lock has been released.
type Update struct {
	Observation Observation
	Previous    Quality
	Current     Quality
	Result      SetResult
}

// Options configures a TimeBase. The zero value is usable: real ticks, no
// device clock, UTC and no minimum epoch.
type Options struct {
	Ticks    TickSource
	Device   DeviceClock
	Location *time.Location
	Observer func(Update)
	// MinValidEpoch rejects any time before it. Zero disables the check.
	MinValidEpoch int64
}

// Status is a consistent snapshot of the time base.
type Status struct {
	Quality          Quality
	Now              int64
	Local            int64
	SinceExternalSet time.Duration
	TZOffset         int32
	ExternalSet      bool
}

// TimeBase holds the best current estimate of wall clock time and the trust
// level of the source it came from. Absolute time is the epoch offset plus
// the ticks elapsed since the snapshot; both are always written together.
type TimeBase struct {
	ticks    TickSource
	device   DeviceClock
	loc      *time.Location
	observer func(Update)

	minValidEpoch int64
	epochOffset   int64
	quality       Quality
	tickSnapshot  uint32

	lastAcceptedTick    uint32
	lastExternalSetTick uint32
	hasExternalSet      bool
	// uptime of the same moments, when the tick source reports it
	lastAcceptedUptime    time.Duration
	lastExternalSetUptime time.Duration

	mu syncutil.RWMutex
}

// New creates a time base at QualityNone with the projection anchored at
// epoch zero.
//
//nolint:gocritic // options struct copied once at construction
func New(opts Options) *TimeBase {
	ticks := opts.Ticks
	if ticks == nil {
		ticks = NewClockTicks(nil)
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	tb := &TimeBase{
		ticks:         ticks,
		device:        opts.Device,
		loc:           loc,
		observer:      opts.Observer,
		minValidEpoch: opts.MinValidEpoch,
	}
	tb.tickSnapshot = ticks.Millis()
	return tb
}

// Quality returns the trust level of the current time base.
func (tb *TimeBase) Quality() Quality {
	tb.mu.RLock()
	defer tb.mu.RUnlock()
	return tb.quality
}

// SubmitTime offers epoch seconds of quality q. With force set the time is
// applied regardless of the current quality.
func (tb *TimeBase) SubmitTime(q Quality, epoch int64, force bool) SetResult {
	return tb.Accept(Observation{Quality: q, Epoch: epoch, Force: force})
}

// SubmitCalendarTime offers a UTC calendar time of quality q. Besides the
// checks done by Accept, calendar years before 1900 or from 2200 on are
// rejected.
func (tb *TimeBase) SubmitCalendarTime(q Quality, t BrokenDownTime) SetResult {
	epoch := Normalize(t)
	if tb.belowMinEpoch(epoch) {
		log.Warn().Msgf("ignore time (%d) before build epoch (%d)", epoch, tb.minValidEpoch)
		tb.notify(Update{
			Observation: Observation{Quality: q, Epoch: epoch},
			Previous:    tb.Quality(),
			Current:     tb.Quality(),
			Result:      SetResultInvalidTime,
		})
		return SetResultInvalidTime
	}
	if !t.plausibleYear() {
		log.Debug().Msgf("ignore invalid calendar time: year=%d month=%d epoch=%d",
			ReferenceYear+t.Year, t.Month+1, epoch)
		tb.notify(Update{
			Observation: Observation{Quality: q, Epoch: epoch},
			Previous:    tb.Quality(),
			Current:     tb.Quality(),
			Result:      SetResultInvalidTime,
		})
		return SetResultInvalidTime
	}
	return tb.SubmitTime(q, epoch, false)
}

// Accept arbitrates a candidate observation against the current time base.
func (tb *TimeBase) Accept(obs Observation) SetResult {
	u := tb.accept(obs)
	tb.notify(u)
	return u.Result
}

func (tb *TimeBase) accept(obs Observation) Update {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	u := Update{Observation: obs, Previous: tb.quality, Current: tb.quality}

	if tb.belowMinEpoch(obs.Epoch) {
		log.Warn().Msgf("ignore time (%d) before build epoch (%d)", obs.Epoch, tb.minValidEpoch)
		u.Result = SetResultInvalidTime
		return u
	}

	now := tb.ticks.Millis()

	switch {
	case obs.Force:
		log.Debug().Msgf("override current RTC quality (%s) with incoming time of RTC quality of %s",
			tb.quality, obs.Quality)
	case obs.Quality > tb.quality:
		log.Debug().Msgf("upgrade time to quality %s", obs.Quality)
	case obs.Quality == QualityGPS:
		log.Debug().Msgf("reapply GPS time: %d secs", obs.Epoch)
	case obs.Quality == QualityNTP &&
		tb.elapsedLocked(now, tb.lastAcceptedTick, tb.lastAcceptedUptime) >= NTPReapplyInterval:
		log.Debug().Msgf("reapply external time to correct clock drift %d secs", obs.Epoch)
	default:
		log.Debug().Msgf("current RTC quality: %s. ignore time of RTC quality of %s",
			tb.quality, obs.Quality)
		u.Result = SetResultNotSet
		return u
	}

	uptime := tb.uptime()
	tb.quality = obs.Quality
	tb.lastAcceptedTick = now
	tb.lastAcceptedUptime = uptime
	if obs.Quality >= QualityNTP {
		tb.lastExternalSetTick = now
		tb.lastExternalSetUptime = uptime
		tb.hasExternalSet = true
	}
	tb.setLocked(now, obs.Epoch)

	if tb.device != nil {
		if err := tb.device.Write(obs.Epoch); err != nil {
			// nothing was stored, the device still holds its old time
			log.Debug().Err(err).Msgf("keeping accepted time, %s not updated", tb.device.Name())
		} else {
			// keep the projection in line with what the chip actually stored
			tb.readDeviceLocked()
		}
	}

	u.Current = tb.quality
	u.Result = SetResultSuccess
	return u
}

// ReadFromDevice reloads the projection from the device clock. It is used
// at boot, where a successful read of a battery backed chip lifts the
// quality from None to Device. It returns false if there is no device or
// the read failed.
func (tb *TimeBase) ReadFromDevice() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	if tb.device == nil {
		return false
	}
	return tb.readDeviceLocked()
}

// RefreshFromDevice re-reads the device clock, but only while nothing better
// than the device itself has set the time. A chip keeps time more accurately
// than the tick counter, so a device-only time base tracks the chip.
func (tb *TimeBase) RefreshFromDevice() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	if tb.device == nil || tb.quality > QualityDevice {
		return false
	}
	return tb.readDeviceLocked()
}

// readDeviceLocked must be called with mu held for writing.
func (tb *TimeBase) readDeviceLocked() bool {
	now := tb.ticks.Millis()
	epoch, ok := tb.device.Read()
	if !ok {
		log.Debug().Msgf("no time available from %s", tb.device.Name())
		return false
	}
	if tb.belowMinEpoch(epoch) {
		log.Warn().Msgf("ignore %s time (%d) before build epoch (%d)",
			tb.device.Name(), epoch, tb.minValidEpoch)
		return false
	}

	log.Debug().Msgf("read RTC time from %s as %s (%d)",
		tb.device.Name(), time.Unix(epoch, 0).UTC().Format(time.DateTime), epoch)
	tb.setLocked(now, epoch)
	if tb.quality == QualityNone && !isHostClock(tb.device) {
		tb.quality = QualityDevice
	}
	return true
}

func (tb *TimeBase) uptime() time.Duration {
	if up, ok := tb.ticks.(UptimeSource); ok {
		return up.Uptime()
	}
	return 0
}

// elapsedLocked returns the time since a moment recorded as both a tick and
// an uptime. now is the current tick.
func (tb *TimeBase) elapsedLocked(now, tick uint32, uptime time.Duration) time.Duration {
	if up, ok := tb.ticks.(UptimeSource); ok {
		return up.Uptime() - uptime
	}
	return time.Duration(ticksSince(now, tick)) * time.Millisecond
}

func (tb *TimeBase) setLocked(now uint32, epoch int64) {
	tb.tickSnapshot = now
	tb.epochOffset = epoch
}

func (tb *TimeBase) projectLocked() int64 {
	elapsed := ticksSince(tb.ticks.Millis(), tb.tickSnapshot)
	return tb.epochOffset + int64(elapsed/1000)
}

func (tb *TimeBase) belowMinEpoch(epoch int64) bool {
	return tb.minValidEpoch > 0 && epoch < tb.minValidEpoch
}

func (tb *TimeBase) notify(u Update) {
	if tb.observer != nil {
		tb.observer(u)
	}
}

// Now returns the projected epoch seconds, shifted to the configured
// timezone when local is set.
func (tb *TimeBase) Now(local bool) int64 {
	tb.mu.RLock()
	now := tb.projectLocked()
	loc := tb.loc
	tb.mu.RUnlock()
	if local {
		now += int64(offsetAt(now, loc))
	}
	return now
}

// ValidNow is Now, except that it returns 0 when the current quality is
// below minQuality. Zero is the "no valid time" value for all callers.
func (tb *TimeBase) ValidNow(minQuality Quality, local bool) int64 {
	tb.mu.RLock()
	if tb.quality < minQuality {
		tb.mu.RUnlock()
		return 0
	}
	now := tb.projectLocked()
	loc := tb.loc
	tb.mu.RUnlock()
	if local {
		now += int64(offsetAt(now, loc))
	}
	return now
}

// TimezoneOffset returns the offset of the configured timezone in seconds
// at the current projected time. It is 0 when timezone support is compiled
// out.
func (tb *TimeBase) TimezoneOffset() int32 {
	tb.mu.RLock()
	now := tb.projectLocked()
	loc := tb.loc
	tb.mu.RUnlock()
	return offsetAt(now, loc)
}

// SetLocation changes the timezone used for local time. A nil location
// means UTC.
func (tb *TimeBase) SetLocation(loc *time.Location) {
	if loc == nil {
		loc = time.UTC
	}
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.loc = loc
}

// Location returns the timezone used for local time.
func (tb *TimeBase) Location() *time.Location {
	tb.mu.RLock()
	defer tb.mu.RUnlock()
	return tb.loc
}

// SinceExternalSet returns how long ago an NTP or GPS grade time was last
// accepted. ok is false if none has been accepted since boot.
func (tb *TimeBase) SinceExternalSet() (d time.Duration, ok bool) {
	tb.mu.RLock()
	defer tb.mu.RUnlock()
	return tb.sinceExternalSetLocked()
}

func (tb *TimeBase) sinceExternalSetLocked() (time.Duration, bool) {
	if !tb.hasExternalSet {
		return 0, false
	}
	return tb.elapsedLocked(tb.ticks.Millis(), tb.lastExternalSetTick, tb.lastExternalSetUptime), true
}

// Status returns a snapshot of quality and time taken under one lock.
func (tb *TimeBase) Status() Status {
	tb.mu.RLock()
	now := tb.projectLocked()
	s := Status{
		Quality: tb.quality,
		Now:     now,
	}
	s.SinceExternalSet, s.ExternalSet = tb.sinceExternalSetLocked()
	loc := tb.loc
	tb.mu.RUnlock()

	s.TZOffset = offsetAt(now, loc)
	s.Local = now + int64(s.TZOffset)
	return s
}
