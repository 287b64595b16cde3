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

package controllers

import (
	"time"

	"github.com/PixelRadioProject/pixelradio-core/pkg/models"
)

const (
	TextMaxLen         = 64
	StationNameMaxLen  = 8
	StationNameDefault = "PixeyFM"

	PICodeMin     = 0x00FF
	PICodeMax     = 0xFFFF
	PICodeDefault = 0x6400

	PTYCodeMax     = 29
	PTYCodeDefault = 9

	DisplayDurationMin     = 5 * time.Second
	DisplayDurationMax     = 900 * time.Second
	DisplayDurationDefault = 15 * time.Second

	LocalSlotCount = 3
)

// Record is a remote producer's RDS content and arbitration flags.
type Record struct {
	Text            string
	StationName     string
	DisplayDuration time.Duration
	ID              models.ProducerID
	PICode          uint16
	PTYCode         uint8
	Enabled         bool
	HasNewContent   bool
	StopRequested   bool
	Active          bool
}

func (r *Record) Identity() models.Identity {
	return models.Identity{
		StationName: r.StationName,
		PICode:      r.PICode,
		PTYCode:     r.PTYCode,
	}
}

type LocalSlot struct {
	Text    string
	Enabled bool
}

// LocalConfig is the operator-configured local schedule.
type LocalConfig struct {
	StationName     string
	Slots           [LocalSlotCount]LocalSlot
	DisplayDuration time.Duration
	PICode          uint16
	PTYCode         uint8
	Enabled         bool
}

func DefaultLocalConfig() LocalConfig {
	return LocalConfig{
		Enabled:         true,
		StationName:     StationNameDefault,
		PICode:          PICodeDefault,
		PTYCode:         PTYCodeDefault,
		DisplayDuration: DisplayDurationDefault,
		Slots: [LocalSlotCount]LocalSlot{
			{Text: "Welcome to Our Drive-by Holiday Light Show", Enabled: true},
			{Text: "For Safety Keep Automobile Running Lights On", Enabled: true},
			{Text: "Please Drive Slowly and Watch Out for Children and Pets", Enabled: true},
		},
	}
}

func (c *LocalConfig) Identity() models.Identity {
	return models.Identity{
		StationName: c.StationName,
		PICode:      c.PICode,
		PTYCode:     c.PTYCode,
	}
}

// Local is the lowest-priority pseudo-producer cycling through its slots.
type Local struct {
	LocalConfig
	cursor  int
	current int
	Active  bool
}

// CurrentText is the text of the slot last handed out by NextLocalSlot.
func (l *Local) CurrentText() string {
	return l.Slots[l.current].Text
}

func (l *Local) usable(i int) bool {
	return l.Slots[i].Enabled && l.Slots[i].Text != ""
}
