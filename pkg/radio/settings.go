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

package radio

import (
	"fmt"
	"strings"
)

// Frequencies are in tenths of a MHz.
const (
	FrequencyMin     = 881
	FrequencyMax     = 1079
	FrequencyDefault = 887
)

const (
	AnalogGainMin     = 0
	AnalogGainMax     = 5
	AnalogGainDefault = 3
	DigitalGainMax    = 2
)

type PreEmphasis int

const (
	PreEmphasisUSA PreEmphasis = iota // 75 µs, North America and Japan
	PreEmphasisEUR                    // 50 µs, Europe, Australia, China
)

func (p PreEmphasis) String() string {
	if p == PreEmphasisEUR {
		return "eur"
	}
	return "usa"
}

func ParsePreEmphasis(s string) (PreEmphasis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "usa", "75us", "":
		return PreEmphasisUSA, nil
	case "eur", "50us":
		return PreEmphasisEUR, nil
	default:
		return PreEmphasisUSA, fmt.Errorf("invalid pre-emphasis: %q", s)
	}
}

type RFPower int

const (
	RFPowerLow RFPower = iota
	RFPowerMed
	RFPowerHigh
)

// Level is the chip's PA target value for the tier.
func (p RFPower) Level() byte {
	switch p {
	case RFPowerLow:
		return 27
	case RFPowerMed:
		return 40
	default:
		return 78
	}
}

func (p RFPower) String() string {
	switch p {
	case RFPowerLow:
		return "low"
	case RFPowerMed:
		return "med"
	default:
		return "high"
	}
}

func ParseRFPower(s string) (RFPower, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return RFPowerLow, nil
	case "med", "medium":
		return RFPowerMed, nil
	case "high", "":
		return RFPowerHigh, nil
	default:
		return RFPowerHigh, fmt.Errorf("invalid rf power: %q", s)
	}
}

// Impedance is the audio input impedance in kΩ.
type Impedance int

const (
	Impedance5K  Impedance = 5
	Impedance10K Impedance = 10
	Impedance20K Impedance = 20
	Impedance40K Impedance = 40
)

// Index is the chip's RIN field value.
func (i Impedance) Index() byte {
	switch i {
	case Impedance5K:
		return 0
	case Impedance10K:
		return 1
	case Impedance40K:
		return 3
	default:
		return 2
	}
}

func ParseImpedance(kohm int) (Impedance, error) {
	switch Impedance(kohm) {
	case Impedance5K, Impedance10K, Impedance20K, Impedance40K:
		return Impedance(kohm), nil
	default:
		return Impedance20K, fmt.Errorf("invalid input impedance: %dk", kohm)
	}
}

// Settings is the desired encoder configuration.
type Settings struct {
	Impedance   Impedance
	PreEmphasis PreEmphasis
	RFPower     RFPower
	AnalogGain  int
	DigitalGain int
	Frequency   int
	Stereo      bool
	Mute        bool
	AutoOff     bool
	Carrier     bool
}

func DefaultSettings() Settings {
	return Settings{
		AnalogGain:  AnalogGainDefault,
		Impedance:   Impedance20K,
		DigitalGain: 0,
		Frequency:   FrequencyDefault,
		Stereo:      true,
		Mute:        false,
		PreEmphasis: PreEmphasisUSA,
		RFPower:     RFPowerHigh,
		AutoOff:     false,
		Carrier:     true,
	}
}

// FrequencyString renders tenths of MHz as "88.7".
func FrequencyString(tenths int) string {
	return fmt.Sprintf("%d.%d", tenths/10, tenths%10)
}
