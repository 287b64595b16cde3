// PixelRadio Core
// Copyright (c) 2025 The PixelRadio Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of PixelRadio Core.
//
// PixelRadio Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// PixelRadio Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with PixelRadio Core.  If not, see <http://www.gnu.org/licenses/>.

package service

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/PixelRadioProject/pixelradio-core/pkg/commands"
	"github.com/PixelRadioProject/pixelradio-core/pkg/config"
	"github.com/PixelRadioProject/pixelradio-core/pkg/device"
	"github.com/PixelRadioProject/pixelradio-core/pkg/device/devicetest"
	"github.com/PixelRadioProject/pixelradio-core/pkg/device/qn8027"
	"github.com/PixelRadioProject/pixelradio-core/pkg/device/simbus"
	"github.com/PixelRadioProject/pixelradio-core/pkg/gpio"
	"github.com/PixelRadioProject/pixelradio-core/pkg/helpers"
	"github.com/PixelRadioProject/pixelradio-core/pkg/models"
	"github.com/PixelRadioProject/pixelradio-core/pkg/scheduler"
	"github.com/PixelRadioProject/pixelradio-core/pkg/service/broker"
	testhelpers "github.com/PixelRadioProject/pixelradio-core/pkg/testing/helpers"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testConfig = `config_schema = 1

[rds]
display_seconds = 900

[gpio]
pin19 = "outlow"

[service.discovery]
enabled = false
`

type harness struct {
	svc      *Service
	core     *Core
	clock    *clockwork.FakeClock
	bus      *simbus.Bus
	pins     *gpio.MemoryDriver
	terminal *helpers.SilenceableWriter
	notifs   <-chan models.Notification
}

func startService(t *testing.T, bus *simbus.Bus) *harness {
	t.Helper()
	return startServiceWithConfig(t, bus, testConfig)
}

func startServiceWithConfig(t *testing.T, bus *simbus.Bus, contents string) *harness {
	t.Helper()

	cfg, _ := testhelpers.NewTestConfig(t, contents)
	h := &harness{
		clock:    clockwork.NewFakeClock(),
		bus:      bus,
		pins:     gpio.NewMemoryDriver(),
		terminal: helpers.NewSilenceableWriter(io.Discard),
	}
	svc, err := Start(cfg, Options{
		Bus:      bus,
		GPIO:     h.pins,
		Sleeper:  &devicetest.Sleeper{},
		Clock:    h.clock,
		Terminal: h.terminal,
		Transports: func(_ *Core, b *broker.Broker) []Transport {
			h.notifs, _ = b.Subscribe(100)
			return nil
		},
	})
	require.NoError(t, err)
	t.Cleanup(svc.Stop)

	h.svc = svc
	h.core = svc.Core()
	return h
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// awaitNotification drains notifications until one with method satisfies
// match.
func (h *harness) awaitNotification(t *testing.T, method string, match func(json.RawMessage) bool) {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case n, ok := <-h.notifs:
			require.True(t, ok, "notification channel closed")
			if n.Method == method && match(n.Params) {
				return
			}
		case <-timeout:
			t.Fatalf("no %s notification", method)
		}
	}
}

// advanceUntil moves the fake clock one update interval at a time until
// cond holds.
func (h *harness) advanceUntil(t *testing.T, cond func() bool) {
	t.Helper()
	ctx := testContext(t)
	require.NoError(t, h.clock.BlockUntilContext(ctx, 1))
	require.Eventually(t, func() bool {
		if cond() {
			return true
		}
		h.clock.Advance(scheduler.UpdateInterval)
		return false
	}, 5*time.Second, 10*time.Millisecond)
}

func TestService_LocalContentOnBoot(t *testing.T) {
	t.Parallel()

	h := startService(t, simbus.New())

	require.Eventually(t, func() bool {
		return h.core.Snapshot().Active == models.ProducerLocal
	}, 5*time.Second, 10*time.Millisecond)

	snap := h.core.Snapshot()
	assert.Equal(t, "PixeyFM", snap.StationName)
	assert.Equal(t, "Welcome to Our Drive-by Holiday Light Show", snap.Text)
	assert.Equal(t, device.StateIdle.String(), snap.Device)
	assert.True(t, snap.OnAir)
	assert.Equal(t, 900, snap.Remaining)
	// local available and sending
	assert.Equal(t, uint8(0x11), h.core.GetStatus()&0x1F)
	assert.NotEmpty(t, h.bus.Groups())

	h.awaitNotification(t, models.NotificationActive, func(p json.RawMessage) bool {
		var params models.ActiveParams
		require.NoError(t, json.Unmarshal(p, &params))
		return params.Producer == models.ProducerLocal
	})
}

func TestService_RemoteTextPreemptsLocal(t *testing.T) {
	t.Parallel()

	h := startService(t, simbus.New())
	ctx := testContext(t)

	require.Eventually(t, func() bool {
		return h.core.Snapshot().Active == models.ProducerLocal
	}, 5*time.Second, 10*time.Millisecond)

	reply, err := h.core.SetText(ctx, models.ProducerHTTP, "Tune in to 88.7")
	require.NoError(t, err)
	assert.True(t, reply.OK)
	assert.True(t, reply.Changed)
	assert.Equal(t, "rtm", reply.Command)

	h.advanceUntil(t, func() bool {
		return h.core.Snapshot().Active == models.ProducerHTTP
	})

	snap := h.core.Snapshot()
	assert.Equal(t, "Tune in to 88.7", snap.Text)
	// http enabled and sending, local no longer sending
	assert.Equal(t, uint8(0x02), h.core.GetStatus()&0x0F)
}

func TestService_StopEndsWindow(t *testing.T) {
	t.Parallel()

	h := startService(t, simbus.New())
	ctx := testContext(t)

	_, err := h.core.SetText(ctx, models.ProducerSerial, "serial text")
	require.NoError(t, err)
	h.advanceUntil(t, func() bool {
		return h.core.Snapshot().Active == models.ProducerSerial
	})

	reply, err := h.core.StopRDS(ctx, models.ProducerSerial)
	require.NoError(t, err)
	assert.True(t, reply.OK)

	h.advanceUntil(t, func() bool {
		return h.core.Snapshot().Active != models.ProducerSerial
	})
}

func TestService_RecordCommands(t *testing.T) {
	t.Parallel()

	h := startService(t, simbus.New())
	ctx := testContext(t)

	reply, err := h.core.SetStationName(ctx, models.ProducerHTTP, "Lights")
	require.NoError(t, err)
	assert.Equal(t, "psn", reply.Command)

	_, err = h.core.SetPTYCode(ctx, models.ProducerHTTP, 10)
	require.NoError(t, err)
	_, err = h.core.SetPICode(ctx, models.ProducerHTTP, "0x6401")
	require.NoError(t, err)

	reply, err = h.core.SetDisplayPeriod(ctx, models.ProducerHTTP, 2)
	require.NoError(t, err)
	assert.True(t, reply.OK)
	assert.True(t, reply.Capped)

	_, err = h.core.SetText(ctx, models.ProducerHTTP, "Show starts at dusk")
	require.NoError(t, err)

	h.advanceUntil(t, func() bool {
		snap := h.core.Snapshot()
		return snap.Active == models.ProducerHTTP && snap.Text == "Show starts at dusk"
	})
	assert.Equal(t, "Lights", h.core.Snapshot().StationName)

	_, err = h.core.StopRDS(ctx, models.ProducerHTTP)
	require.NoError(t, err)
	reply, err = h.core.StartRDS(ctx, models.ProducerHTTP)
	require.NoError(t, err)
	assert.True(t, reply.OK)
	assert.True(t, reply.Changed)

	reply, err = h.core.SetAudioMode(ctx, models.ProducerSerial, false)
	require.NoError(t, err)
	assert.Equal(t, "aud", reply.Command)
	assert.True(t, reply.OK)
}

func TestService_ValidationError(t *testing.T) {
	t.Parallel()

	h := startService(t, simbus.New())
	ctx := testContext(t)

	reply, err := h.core.SetFrequency(ctx, models.ProducerHTTP, 1200)
	require.ErrorIs(t, err, commands.ErrValidation)
	assert.Equal(t, commands.KindOutOfRange, commands.KindOf(err))
	assert.False(t, reply.OK)
	assert.Equal(t, "freq", reply.Command)
	assert.NotEmpty(t, reply.Error)
}

func TestService_FrequencyDrainedOnTick(t *testing.T) {
	t.Parallel()

	h := startService(t, simbus.New())
	ctx := testContext(t)

	reply, err := h.core.SetFrequency(ctx, models.ProducerMQTT, 1000)
	require.NoError(t, err)
	assert.True(t, reply.OK)
	assert.True(t, reply.Changed)
	assert.Equal(t, 1000, h.core.Snapshot().Frequency)

	require.NoError(t, h.clock.BlockUntilContext(ctx, 1))
	h.clock.Advance(scheduler.TickInterval)

	h.awaitNotification(t, models.NotificationSettings, func(p json.RawMessage) bool {
		var params models.SettingsParams
		require.NoError(t, json.Unmarshal(p, &params))
		return assert.ObjectsAreEqual([]string{"frequency"}, params.Applied)
	})
}

func TestService_GPIO(t *testing.T) {
	t.Parallel()

	h := startService(t, simbus.New())
	ctx := testContext(t)

	reply, err := h.core.SetGPIO(ctx, models.ProducerHTTP, 19, "outhigh")
	require.NoError(t, err)
	assert.Equal(t, "gpio19", reply.Command)
	require.NotNil(t, reply.Level)
	assert.True(t, *reply.Level)
	level, err := h.pins.Read(19)
	require.NoError(t, err)
	assert.True(t, level)

	h.pins.Set(23, true)
	reply, err = h.core.SetGPIO(ctx, models.ProducerMQTT, 23, "read")
	require.NoError(t, err)
	require.NotNil(t, reply.Level)
	assert.True(t, *reply.Level)

	_, err = h.core.SetGPIO(ctx, models.ProducerMQTT, 23, "outlow")
	assert.Equal(t, commands.KindWrongDirection, commands.KindOf(err))
}

func TestService_OnAirSignFollowsCarrier(t *testing.T) {
	t.Parallel()

	h := startServiceWithConfig(t, simbus.New(), strings.Replace(testConfig, "[gpio]\n", "[gpio]\non_air_pin = 33\n", 1))
	ctx := testContext(t)

	lit := func() bool {
		level, err := h.pins.Read(33)
		return err == nil && level
	}
	require.Eventually(t, lit, 5*time.Second, 10*time.Millisecond)

	_, err := h.core.SetCarrier(ctx, models.ProducerHTTP, false)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return !lit() }, 5*time.Second, 10*time.Millisecond)

	_, err = h.core.SetGPIO(ctx, models.ProducerMQTT, 33, "outhigh")
	assert.Equal(t, commands.KindWrongDirection, commands.KindOf(err))
	assert.False(t, lit())

	_, err = h.core.SetCarrier(ctx, models.ProducerHTTP, true)
	require.NoError(t, err)
	require.Eventually(t, lit, 5*time.Second, 10*time.Millisecond)
}

func TestService_LogOnlyFromSerial(t *testing.T) {
	t.Parallel()

	h := startService(t, simbus.New())
	ctx := testContext(t)

	reply, err := h.core.SetLogLevel(ctx, models.ProducerSerial, true)
	require.NoError(t, err)
	assert.True(t, reply.OK)
	assert.True(t, h.terminal.Silent())

	_, err = h.core.SetLogLevel(ctx, models.ProducerMQTT, false)
	assert.Equal(t, commands.KindUnsupported, commands.KindOf(err))
	assert.True(t, h.terminal.Silent())

	_, err = h.core.SetLogLevel(ctx, models.ProducerSerial, false)
	require.NoError(t, err)
	assert.False(t, h.terminal.Silent())
}

func TestService_Info(t *testing.T) {
	t.Parallel()

	h := startService(t, simbus.New())
	h.core.hostInfo = func() hostDetails {
		return hostDetails{Hostname: "pixel", Platform: "test", UptimeSeconds: 42}
	}

	reply, err := h.core.Info(testContext(t), models.ProducerMQTT)
	require.NoError(t, err)
	require.NotNil(t, reply.Info)
	assert.Equal(t, config.AppVersion, reply.Info.Version)
	assert.Equal(t, "pixel", reply.Info.Hostname)
	assert.Equal(t, int64(42), reply.Info.Uptime)
	assert.Equal(t, 887, reply.Info.Frequency)
	assert.Equal(t, device.StateIdle.String(), reply.Info.Device)
}

func TestService_DeviceAbsent(t *testing.T) {
	t.Parallel()

	h := startService(t, simbus.New().Absent())
	ctx := testContext(t)

	h.awaitNotification(t, models.NotificationDevice, func(p json.RawMessage) bool {
		var params models.DeviceParams
		require.NoError(t, json.Unmarshal(p, &params))
		return params.State == device.StateFaulted.String() && !params.OnAir
	})

	reply, err := h.core.SetText(ctx, models.ProducerSerial, "nobody hears this")
	require.NoError(t, err)
	assert.True(t, reply.OK)

	require.NoError(t, h.clock.BlockUntilContext(ctx, 1))
	h.clock.Advance(2 * scheduler.UpdateInterval)
	assert.Never(t, func() bool {
		return h.core.Snapshot().Active != models.ProducerNone
	}, 200*time.Millisecond, 20*time.Millisecond)
	assert.Equal(t, device.CalibrationDeviceAbsent.String(), h.core.Snapshot().Calibration)
}

func TestService_Reboot(t *testing.T) {
	t.Parallel()

	h := startService(t, simbus.New())

	reply, err := h.core.Reboot(testContext(t), models.ProducerHTTP)
	require.NoError(t, err)
	assert.True(t, reply.OK)

	select {
	case <-h.svc.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("service did not stop after reboot")
	}
	require.ErrorIs(t, h.svc.Err(), ErrRebootRequested)

	_, err = h.core.Info(testContext(t), models.ProducerHTTP)
	require.ErrorIs(t, err, ErrStopped)
}

func TestService_StopClosesNotifications(t *testing.T) {
	t.Parallel()

	h := startService(t, simbus.New())
	h.svc.Stop()
	assert.NoError(t, h.svc.Err())

	for range h.notifs { //nolint:revive // drain until closed
	}
}

func TestOpenBus(t *testing.T) {
	t.Parallel()

	t.Run("simulated", func(t *testing.T) {
		t.Parallel()
		cfg, _ := testhelpers.NewTestConfig(t, "config_schema = 1\n[device]\nsimulate = true\n")
		bus := openBus(cfg, nil)
		require.IsType(t, &simbus.Bus{}, bus)
		_, err := bus.ReadReg(qn8027.RegStatus)
		require.NoError(t, err)
		require.NoError(t, bus.Close())
	})

	t.Run("missing i2c bus", func(t *testing.T) {
		t.Parallel()
		cfg, _ := testhelpers.NewTestConfig(t, "config_schema = 1\n[device]\ni2c_bus = \"no-such-bus\"\n")
		bus := openBus(cfg, nil)
		require.IsType(t, &simbus.Bus{}, bus)
		_, err := bus.ReadReg(qn8027.RegStatus)
		require.ErrorIs(t, err, simbus.ErrNoDevice)
	})
}
