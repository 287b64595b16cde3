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

// Package radio holds the desired encoder settings and tracks which of them
// still have to be written to hardware.
package radio

// Setting names one settable encoder field.
type Setting int

const (
	SettingAnalogGain Setting = iota
	SettingImpedance
	SettingDigitalGain
	SettingFrequency
	SettingAudioMode
	SettingMute
	SettingPreEmphasis
	SettingRFPower
	SettingAutoOff
	SettingCarrier
	settingCount
)

// DrainOrder is the order pending settings are written to the chip. The
// carrier is always last so no other change happens while it toggles.
var DrainOrder = []Setting{
	SettingAnalogGain,
	SettingImpedance,
	SettingDigitalGain,
	SettingFrequency,
	SettingAudioMode,
	SettingMute,
	SettingPreEmphasis,
	SettingRFPower,
	SettingAutoOff,
	SettingCarrier,
}

func (s Setting) String() string {
	switch s {
	case SettingAnalogGain:
		return "analog_gain"
	case SettingImpedance:
		return "input_impedance"
	case SettingDigitalGain:
		return "digital_gain"
	case SettingFrequency:
		return "frequency"
	case SettingAudioMode:
		return "audio_mode"
	case SettingMute:
		return "mute"
	case SettingPreEmphasis:
		return "pre_emphasis"
	case SettingRFPower:
		return "rf_power"
	case SettingAutoOff:
		return "rf_auto_off"
	case SettingCarrier:
		return "rf_carrier"
	default:
		return "unknown"
	}
}

// State mirrors the encoder's settable parameters with a dirty flag per
// field. It is owned by the service loop and is not safe for concurrent use.
type State struct {
	settings Settings
	dirty    [settingCount]bool
}

// NewState returns a state whose settings are all clean. Boot-time hardware
// init writes every field anyway.
func NewState(s Settings) *State {
	return &State{settings: s}
}

func (st *State) Settings() Settings {
	return st.settings
}

func (st *State) Dirty(s Setting) bool {
	return st.dirty[s]
}

func (st *State) MarkDirty(s Setting) {
	st.dirty[s] = true
}

func (st *State) ClearDirty(s Setting) {
	st.dirty[s] = false
}

func (st *State) ClearAll() {
	st.dirty = [settingCount]bool{}
}

// Pending lists dirty settings in drain order.
func (st *State) Pending() []Setting {
	var pending []Setting
	for _, s := range DrainOrder {
		if st.dirty[s] {
			pending = append(pending, s)
		}
	}
	return pending
}

// update marks s dirty when changed is true and reports it back.
func (st *State) update(s Setting, changed bool) bool {
	if changed {
		st.dirty[s] = true
	}
	return changed
}

func (st *State) SetAnalogGain(v int) bool {
	changed := st.settings.AnalogGain != v
	st.settings.AnalogGain = v
	return st.update(SettingAnalogGain, changed)
}

func (st *State) SetImpedance(v Impedance) bool {
	changed := st.settings.Impedance != v
	st.settings.Impedance = v
	return st.update(SettingImpedance, changed)
}

func (st *State) SetDigitalGain(v int) bool {
	changed := st.settings.DigitalGain != v
	st.settings.DigitalGain = v
	return st.update(SettingDigitalGain, changed)
}

func (st *State) SetFrequency(v int) bool {
	changed := st.settings.Frequency != v
	st.settings.Frequency = v
	return st.update(SettingFrequency, changed)
}

func (st *State) SetStereo(v bool) bool {
	changed := st.settings.Stereo != v
	st.settings.Stereo = v
	return st.update(SettingAudioMode, changed)
}

func (st *State) SetMute(v bool) bool {
	changed := st.settings.Mute != v
	st.settings.Mute = v
	return st.update(SettingMute, changed)
}

func (st *State) SetPreEmphasis(v PreEmphasis) bool {
	changed := st.settings.PreEmphasis != v
	st.settings.PreEmphasis = v
	return st.update(SettingPreEmphasis, changed)
}

func (st *State) SetRFPower(v RFPower) bool {
	changed := st.settings.RFPower != v
	st.settings.RFPower = v
	return st.update(SettingRFPower, changed)
}

func (st *State) SetAutoOff(v bool) bool {
	changed := st.settings.AutoOff != v
	st.settings.AutoOff = v
	return st.update(SettingAutoOff, changed)
}

func (st *State) SetCarrier(v bool) bool {
	changed := st.settings.Carrier != v
	st.settings.Carrier = v
	return st.update(SettingCarrier, changed)
}

// ForceCarrierOff turns the carrier off without scheduling a hardware
// write, used when the device is gone.
func (st *State) ForceCarrierOff() {
	st.settings.Carrier = false
	st.dirty[SettingCarrier] = false
}
