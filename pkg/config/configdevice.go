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
	"github.com/PixelRadioProject/pixelradio-core/pkg/gpio"
	"github.com/rs/zerolog/log"
)

const (
	DefaultI2CBus     = ""
	DefaultI2CAddress = 0x2C
)

// Device selects the encoder bus. Simulate swaps the I2C bus for an
// in-memory register model.
type Device struct {
	I2CBus   string `toml:"i2c_bus,omitempty"`
	Address  uint16 `toml:"address,omitempty" validate:"omitempty,max=127"`
	Simulate bool   `toml:"simulate,omitempty"`
}

// GPIO holds the boot modes of the user pins. OnAirPin, when set, claims
// one of them as the On Air sign output.
type GPIO struct {
	Pin19    string `toml:"pin19,omitempty" validate:"omitempty,oneof=inputpd inputpu input outlow outhigh"`
	Pin23    string `toml:"pin23,omitempty" validate:"omitempty,oneof=inputpd inputpu input outlow outhigh"`
	Pin33    string `toml:"pin33,omitempty" validate:"omitempty,oneof=inputpd inputpu input outlow outhigh"`
	OnAirPin int    `toml:"on_air_pin,omitempty" validate:"omitempty,oneof=19 23 33"`
	Simulate bool   `toml:"simulate,omitempty"`
}

func (c *Instance) Device() Device {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d := c.vals.Device
	if d.Address == 0 {
		d.Address = DefaultI2CAddress
	}
	return d
}

func (c *Instance) GPIOSimulated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.GPIO.Simulate
}

// OnAirPin returns the pin driving the On Air sign, or 0 when there is none.
func (c *Instance) OnAirPin() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !gpio.ValidPin(c.vals.GPIO.OnAirPin) {
		return 0
	}
	return c.vals.GPIO.OnAirPin
}

// GPIOModes returns the boot mode for each whitelisted pin. The On Air
// sign pin always boots as a low output.
func (c *Instance) GPIOModes() gpio.Modes {
	c.mu.RLock()
	defer c.mu.RUnlock()

	modes := make(gpio.Modes, 3)
	for pin, raw := range map[int]string{
		19: c.vals.GPIO.Pin19,
		23: c.vals.GPIO.Pin23,
		33: c.vals.GPIO.Pin33,
	} {
		m, err := gpio.ParseMode(raw)
		if err != nil {
			log.Warn().Err(err).Int("pin", pin).Msg("using default gpio mode")
		}
		modes[pin] = m
	}
	if sign := c.vals.GPIO.OnAirPin; gpio.ValidPin(sign) {
		if modes[sign] != gpio.ModeOutLow && c.pinMode(sign) != "" {
			log.Warn().Int("pin", sign).Msg("on air sign pin overrides configured gpio mode")
		}
		modes[sign] = gpio.ModeOutLow
	}
	return modes
}

func (c *Instance) pinMode(pin int) string {
	switch pin {
	case 19:
		return c.vals.GPIO.Pin19
	case 23:
		return c.vals.GPIO.Pin23
	case 33:
		return c.vals.GPIO.Pin33
	default:
		return ""
	}
}
