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

package service

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ZaparooProject/zaparoo-timekeeper/pkg/config"
	"github.com/ZaparooProject/zaparoo-timekeeper/pkg/rtc"
	"github.com/ZaparooProject/zaparoo-timekeeper/pkg/rtc/device"
	"github.com/ZaparooProject/zaparoo-timekeeper/pkg/sources"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testDir   = "/etc/timekeeper"
	bootEpoch = int64(1_760_000_000)
)

type fakeDevice struct {
	epoch  int64
	writes int
	closed bool
	mu     sync.Mutex
}

func (*fakeDevice) Name() string { return "fake" }

func (d *fakeDevice) Read() (int64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.epoch, d.epoch > 0
}

func (d *fakeDevice) Write(epoch int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.epoch = epoch
	d.writes++
	return nil
}

func (d *fakeDevice) set(epoch int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.epoch = epoch
}

func (d *fakeDevice) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func (d *fakeDevice) opener() DeviceOpener {
	return func(device.Config) (rtc.DeviceClock, func() error, error) {
		return d, func() error {
			d.mu.Lock()
			defer d.mu.Unlock()
			d.closed = true
			return nil
		}, nil
	}
}

type funcSource struct {
	run func(ctx context.Context) error
}

func (funcSource) Name() string { return "func" }

func (s funcSource) Run(ctx context.Context) error { return s.run(ctx) }

func testConfig(t *testing.T, body string) (*config.Instance, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll(testDir, 0o750))
	require.NoError(t, afero.WriteFile(fs, filepath.Join(testDir, config.CfgFile), []byte(body), 0o600))
	cfg, err := config.NewConfigWithFs(fs, testDir, config.BaseDefaults)
	require.NoError(t, err)
	return cfg, fs
}

const quietConfig = `config_schema = 1

[ntp]
enabled = false

[api]
enabled = false
`

func TestStart_BootReadsDevice(t *testing.T) {
	t.Parallel()
	cfg, _ := testConfig(t, quietConfig)
	dev := &fakeDevice{epoch: bootEpoch}

	svc, err := Start(cfg, Options{OpenDevice: dev.opener(), Clock: clockwork.NewFakeClock()})
	require.NoError(t, err)

	assert.Equal(t, rtc.QualityDevice, svc.TimeBase().Quality())
	assert.Equal(t, bootEpoch, svc.TimeBase().Now(false))
	assert.Nil(t, svc.APIAddr())

	require.NoError(t, svc.Stop())
	assert.True(t, dev.isClosed())
	<-svc.Done()
}

func TestStart_NoDevice(t *testing.T) {
	t.Parallel()
	cfg, _ := testConfig(t, quietConfig)
	open := func(device.Config) (rtc.DeviceClock, func() error, error) {
		return nil, nil, nil
	}

	svc, err := Start(cfg, Options{OpenDevice: open, Clock: clockwork.NewFakeClock()})
	require.NoError(t, err)
	assert.Equal(t, rtc.QualityNone, svc.TimeBase().Quality())
	require.NoError(t, svc.Stop())
}

func TestStart_DeviceOpenFails(t *testing.T) {
	t.Parallel()
	cfg, _ := testConfig(t, quietConfig)
	open := func(device.Config) (rtc.DeviceClock, func() error, error) {
		return nil, nil, errors.New("bus busy")
	}

	_, err := Start(cfg, Options{OpenDevice: open})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bus busy")
}

func TestRefreshLoopTracksDevice(t *testing.T) {
	t.Parallel()
	cfg, _ := testConfig(t, quietConfig)
	dev := &fakeDevice{epoch: bootEpoch}
	clock := clockwork.NewFakeClock()

	svc, err := Start(cfg, Options{OpenDevice: dev.opener(), Clock: clock})
	require.NoError(t, err)
	defer func() { _ = svc.Stop() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))

	interval := cfg.RTC().RefreshInterval()
	chipTime := bootEpoch + int64(interval/time.Second) + 42
	dev.set(chipTime)
	clock.Advance(interval)

	assert.Eventually(t, func() bool {
		return svc.TimeBase().Now(false) == chipTime
	}, time.Second, 5*time.Millisecond)
}

func TestExtraSourcesFeedTimeBase(t *testing.T) {
	t.Parallel()
	cfg, _ := testConfig(t, quietConfig)
	dev := &fakeDevice{epoch: bootEpoch}

	extra := func(sink sources.Sink) []sources.Source {
		return []sources.Source{funcSource{run: func(ctx context.Context) error {
			sink.SubmitTime(rtc.QualityGPS, bootEpoch+100, false)
			<-ctx.Done()
			return ctx.Err()
		}}}
	}

	svc, err := Start(cfg, Options{
		OpenDevice:   dev.opener(),
		Clock:        clockwork.NewFakeClock(),
		ExtraSources: extra,
	})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return svc.TimeBase().Quality() == rtc.QualityGPS
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, bootEpoch+100, svc.TimeBase().Now(false))

	require.NoError(t, svc.Stop())
	dev.mu.Lock()
	defer dev.mu.Unlock()
	assert.Equal(t, 1, dev.writes)
	assert.Equal(t, bootEpoch+100, dev.epoch)
}

func TestStart_ServesAPI(t *testing.T) {
	t.Parallel()
	cfg, _ := testConfig(t, `config_schema = 1

[ntp]
enabled = false

[api]
enabled = true
listen = "127.0.0.1:0"
`)
	dev := &fakeDevice{epoch: bootEpoch}

	svc, err := Start(cfg, Options{OpenDevice: dev.opener(), Clock: clockwork.NewFakeClock()})
	require.NoError(t, err)
	require.NotNil(t, svc.APIAddr())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for _, path := range []string{"/api/time", "/metrics"} {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+svc.APIAddr().String()+path, http.NoBody)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}

	require.NoError(t, svc.Stop())
	assert.True(t, dev.isClosed())
}

func TestReloadAppliesTimezone(t *testing.T) {
	t.Parallel()
	cfg, fs := testConfig(t, quietConfig)
	dev := &fakeDevice{epoch: bootEpoch}

	svc, err := Start(cfg, Options{OpenDevice: dev.opener(), Clock: clockwork.NewFakeClock()})
	require.NoError(t, err)
	defer func() { _ = svc.Stop() }()
	assert.Equal(t, int32(0), svc.TimeBase().TimezoneOffset())

	require.NoError(t, afero.WriteFile(fs, filepath.Join(testDir, config.CfgFile), []byte(quietConfig+`
[time]
timezone = "EST5EDT,M3.2.0,M11.1.0"
`), 0o600))
	require.NoError(t, svc.Reload())

	// early October is daylight time in the eastern US
	assert.Equal(t, int32(-4*3600), svc.TimeBase().TimezoneOffset())
}

func TestStopIsIdempotent(t *testing.T) {
	t.Parallel()
	cfg, _ := testConfig(t, quietConfig)
	dev := &fakeDevice{epoch: bootEpoch}

	svc, err := Start(cfg, Options{OpenDevice: dev.opener(), Clock: clockwork.NewFakeClock()})
	require.NoError(t, err)
	require.NoError(t, svc.Stop())
	require.NoError(t, svc.Stop())
}

func TestWatchConfigReloadsOnWrite(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, config.CfgFile)
	require.NoError(t, afero.WriteFile(afero.NewOsFs(), cfgPath, []byte(quietConfig), 0o600))
	cfg, err := config.NewConfig(dir, config.BaseDefaults)
	require.NoError(t, err)

	dev := &fakeDevice{epoch: bootEpoch}
	svc, err := Start(cfg, Options{
		OpenDevice:  dev.opener(),
		Clock:       clockwork.NewFakeClock(),
		WatchConfig: true,
	})
	require.NoError(t, err)
	defer func() { _ = svc.Stop() }()

	require.NoError(t, afero.WriteFile(afero.NewOsFs(), cfgPath, []byte(quietConfig+`
[time]
timezone = "CET-1CEST,M3.5.0,M10.5.0/3"
`), 0o600))

	assert.Eventually(t, func() bool {
		return svc.TimeBase().TimezoneOffset() == 7200
	}, 2*time.Second, 10*time.Millisecond)
}
