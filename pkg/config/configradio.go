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
	"github.com/PixelRadioProject/pixelradio-core/pkg/radio"
	"github.com/rs/zerolog/log"
)

type Radio struct {
	PreEmphasis string `toml:"pre_emphasis" validate:"oneof=usa eur"`
	RFPower     string `toml:"rf_power" validate:"oneof=low med high"`
	Frequency   int    `toml:"frequency" validate:"min=881,max=1079"`
	AnalogGain  int    `toml:"analog_gain" validate:"min=0,max=5"`
	DigitalGain int    `toml:"digital_gain" validate:"min=0,max=2"`
	Impedance   int    `toml:"input_impedance" validate:"oneof=5 10 20 40"`
	Stereo      bool   `toml:"stereo"`
	Mute        bool   `toml:"mute"`
	AutoOff     bool   `toml:"rf_auto_off"`
	Carrier     bool   `toml:"rf_carrier"`
}

func defaultRadio() Radio {
	d := radio.DefaultSettings()
	return Radio{
		Frequency:   d.Frequency,
		AnalogGain:  d.AnalogGain,
		DigitalGain: d.DigitalGain,
		Impedance:   int(d.Impedance),
		PreEmphasis: d.PreEmphasis.String(),
		RFPower:     d.RFPower.String(),
		Stereo:      d.Stereo,
		Mute:        d.Mute,
		AutoOff:     d.AutoOff,
		Carrier:     d.Carrier,
	}
}

// RadioSettings converts the [radio] section to encoder settings.
func (c *Instance) RadioSettings() radio.Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r := c.vals.Radio

	s := radio.Settings{
		Frequency:   r.Frequency,
		AnalogGain:  r.AnalogGain,
		DigitalGain: r.DigitalGain,
		Stereo:      r.Stereo,
		Mute:        r.Mute,
		AutoOff:     r.AutoOff,
		Carrier:     r.Carrier,
	}

	var err error
	if s.PreEmphasis, err = radio.ParsePreEmphasis(r.PreEmphasis); err != nil {
		log.Warn().Err(err).Msg("using default pre-emphasis")
	}
	if s.RFPower, err = radio.ParseRFPower(r.RFPower); err != nil {
		log.Warn().Err(err).Msg("using default rf power")
	}
	if s.Impedance, err = radio.ParseImpedance(r.Impedance); err != nil {
		log.Warn().Err(err).Msg("using default input impedance")
	}
	return s
}

// SetRadioSettings stores s so the next Save persists it.
func (c *Instance) SetRadioSettings(s radio.Settings) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Radio = Radio{
		Frequency:   s.Frequency,
		AnalogGain:  s.AnalogGain,
		DigitalGain: s.DigitalGain,
		Impedance:   int(s.Impedance),
		PreEmphasis: s.PreEmphasis.String(),
		RFPower:     s.RFPower.String(),
		Stereo:      s.Stereo,
		Mute:        s.Mute,
		AutoOff:     s.AutoOff,
		Carrier:     s.Carrier,
	}
}
