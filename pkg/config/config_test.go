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

package config

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PixelRadioProject/pixelradio-core/pkg/gpio"
	"github.com/PixelRadioProject/pixelradio-core/pkg/models"
	"github.com/PixelRadioProject/pixelradio-core/pkg/radio"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDir = "/etc/pixelradio"

func newMemConfig(t *testing.T, contents string) (*Instance, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	if contents != "" {
		require.NoError(t, fs.MkdirAll(testDir, 0o750))
		require.NoError(t, afero.WriteFile(fs, filepath.Join(testDir, CfgFile), []byte(contents), 0o600))
	}
	cfg, err := NewConfigWithFs(fs, testDir, BaseDefaults)
	require.NoError(t, err)
	return cfg, fs
}

func TestNewConfig_WritesDefaults(t *testing.T) {
	t.Parallel()

	cfg, fs := newMemConfig(t, "")

	exists, err := afero.Exists(fs, filepath.Join(testDir, CfgFile))
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NotEmpty(t, cfg.DeviceID())
	assert.Equal(t, radio.DefaultSettings(), cfg.RadioSettings())
	assert.Equal(t, ":8080", cfg.HTTPListen())
	assert.True(t, cfg.DiscoveryEnabled())

	local := cfg.LocalConfig()
	assert.Equal(t, "PixeyFM", local.StationName)
	assert.Equal(t, uint16(0x6400), local.PICode)
	assert.Equal(t, 15*time.Second, local.DisplayDuration)
	assert.True(t, local.Slots[2].Enabled)
}

func TestLoad_OverlaysDefaults(t *testing.T) {
	t.Parallel()

	cfg, _ := newMemConfig(t, `
config_schema = 1

[radio]
frequency = 1000
pre_emphasis = "eur"
rf_power = "high"
input_impedance = 20
analog_gain = 3
stereo = true
rf_carrier = true

[controllers.mqtt]
enabled = true
broker = "tcp://broker.lan:1883"
name = "showradio"
`)

	s := cfg.RadioSettings()
	assert.Equal(t, 1000, s.Frequency)
	assert.Equal(t, radio.PreEmphasisEUR, s.PreEmphasis)

	mq := cfg.MQTTController()
	assert.True(t, mq.Enabled)
	assert.Equal(t, "showradio", mq.Name)

	cc := cfg.ControllersConfig()
	assert.True(t, cc.Enabled[models.ProducerMQTT])
	assert.True(t, cc.Enabled[models.ProducerSerial])
	assert.True(t, cc.Enabled[models.ProducerHTTP])

	// untouched sections keep their defaults
	assert.Equal(t, "PixeyFM", cc.Local.StationName)
	assert.Equal(t, DefaultBaudRate, cfg.SerialController().BaudRate)
}

func TestLoad_MessagesReplacedAsWhole(t *testing.T) {
	t.Parallel()

	cfg, _ := newMemConfig(t, `
config_schema = 1

[[rds.messages]]
text = "Tune in"
enabled = true
`)

	local := cfg.LocalConfig()
	assert.Equal(t, "Tune in", local.Slots[0].Text)
	assert.Empty(t, local.Slots[1].Text)
	assert.Empty(t, local.Slots[2].Text)
}

func TestLoad_SchemaMismatch(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll(testDir, 0o750))
	require.NoError(t, afero.WriteFile(fs, filepath.Join(testDir, CfgFile), []byte("config_schema = 9\n"), 0o600))

	_, err := NewConfigWithFs(fs, testDir, BaseDefaults)
	require.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestLoad_InvalidKeepsCurrentValues(t *testing.T) {
	t.Parallel()

	cfg, fs := newMemConfig(t, "")
	before := cfg.RadioSettings()

	tests := []struct {
		name string
		body string
	}{
		{name: "frequency", body: "config_schema = 1\n[radio]\nfrequency = 1200\n"},
		{name: "station name", body: "config_schema = 1\n[rds]\nstation_name = \"TooLongName\"\n"},
		{name: "too many messages", body: "config_schema = 1\n" +
			"[[rds.messages]]\ntext = \"a\"\n[[rds.messages]]\ntext = \"b\"\n" +
			"[[rds.messages]]\ntext = \"c\"\n[[rds.messages]]\ntext = \"d\"\n"},
		{name: "mqtt without broker", body: "config_schema = 1\n[controllers.mqtt]\nenabled = true\nname = \"x\"\n"},
		{name: "gpio mode", body: "config_schema = 1\n[gpio]\npin19 = \"blink\"\n"},
		{name: "on air pin", body: "config_schema = 1\n[gpio]\non_air_pin = 12\n"},
	}

	for _, tt := range tests {
		require.NoError(t, afero.WriteFile(fs, cfg.Path(), []byte(tt.body), 0o600), tt.name)
		err := cfg.Load()
		require.ErrorIs(t, err, ErrInvalidConfig, tt.name)
		assert.Equal(t, before, cfg.RadioSettings(), tt.name)
	}
}

func TestSave_RoundTrip(t *testing.T) {
	t.Parallel()

	cfg, fs := newMemConfig(t, "")
	id := cfg.DeviceID()

	s := radio.DefaultSettings()
	s.Frequency = 1015
	s.RFPower = radio.RFPowerLow
	s.Impedance = radio.Impedance40K
	cfg.SetRadioSettings(s)
	cfg.SetControllerEnabled(models.ProducerSerial, false)
	cfg.SetHTTPPort(9090)
	cfg.SetDebugLogging(true)
	require.NoError(t, cfg.Save())

	reloaded, err := NewConfigWithFs(fs, testDir, BaseDefaults)
	require.NoError(t, err)
	assert.Equal(t, s, reloaded.RadioSettings())
	assert.Equal(t, id, reloaded.DeviceID())
	assert.False(t, reloaded.SerialController().Enabled)
	assert.Equal(t, ":9090", reloaded.HTTPListen())
	assert.True(t, reloaded.DebugLogging())
}

func TestGPIOModes(t *testing.T) {
	t.Parallel()

	cfg, _ := newMemConfig(t, "config_schema = 1\n[gpio]\npin19 = \"outhigh\"\npin33 = \"inputpu\"\n")

	modes := cfg.GPIOModes()
	assert.Equal(t, gpio.Modes{
		19: gpio.ModeOutHigh,
		23: gpio.ModeInputPullDown,
		33: gpio.ModeInputPullUp,
	}, modes)
}

func TestGPIOModes_OnAirPinIsOutput(t *testing.T) {
	t.Parallel()

	cfg, _ := newMemConfig(t, "config_schema = 1\n[gpio]\npin33 = \"inputpu\"\non_air_pin = 33\n")

	assert.Equal(t, 33, cfg.OnAirPin())
	assert.Equal(t, gpio.ModeOutLow, cfg.GPIOModes()[33])

	plain, _ := newMemConfig(t, "")
	assert.Zero(t, plain.OnAirPin())
}

func TestDevice_DefaultAddress(t *testing.T) {
	t.Parallel()

	cfg, _ := newMemConfig(t, "config_schema = 1\n[device]\nsimulate = true\n")
	d := cfg.Device()
	assert.True(t, d.Simulate)
	assert.Equal(t, uint16(DefaultI2CAddress), d.Address)
}

func TestHTTPRateLimitDefaults(t *testing.T) {
	t.Parallel()

	cfg, _ := newMemConfig(t, "")
	limit, burst := cfg.HTTPRateLimit()
	assert.Equal(t, DefaultHTTPRateLimit, limit)
	assert.Equal(t, DefaultHTTPRateBurst, burst)
}

//nolint:paralleltest // writes the global auth config
func TestLoad_AuthFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll(testDir, 0o750))
	require.NoError(t, afero.WriteFile(fs, filepath.Join(testDir, AuthFile), []byte(`
[creds."mqtt://broker.lan:1883"]
username = "radio"
password = "secret"
`), 0o600))

	_, err := NewConfigWithFs(fs, testDir, BaseDefaults)
	require.NoError(t, err)

	creds := LookupAuth("tcp://broker.lan:1883")
	require.NotNil(t, creds)
	assert.Equal(t, "radio", creds.Username)
	assert.Equal(t, "secret", creds.Password)
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg, err := NewConfigWithFs(afero.NewOsFs(), dir, BaseDefaults)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var reloads atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- cfg.Watch(ctx, func() { reloads.Add(1) })
	}()

	body := "config_schema = 1\n[rds]\nstation_name = \"Lights\"\ndisplay_seconds = 30\npi_code = 25600\npty_code = 9\n"
	assert.Eventually(t, func() bool {
		// rewrite until the watcher has been registered and picked it up
		if err := os.WriteFile(cfg.Path(), []byte(body), 0o600); err != nil {
			return false
		}
		return reloads.Load() > 0
	}, 5*time.Second, 300*time.Millisecond)

	local := cfg.LocalConfig()
	assert.Equal(t, "Lights", local.StationName)
	assert.Equal(t, 30*time.Second, local.DisplayDuration)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
