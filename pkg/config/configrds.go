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
	"time"

	"github.com/PixelRadioProject/pixelradio-core/pkg/controllers"
)

type RDS struct {
	StationName    string       `toml:"station_name" validate:"max=8"`
	Messages       []RDSMessage `toml:"messages,omitempty" validate:"max=3,dive"`
	PICode         int          `toml:"pi_code" validate:"min=255,max=65535"`
	PTYCode        int          `toml:"pty_code" validate:"min=0,max=29"`
	DisplaySeconds int          `toml:"display_seconds" validate:"min=5,max=900"`
	LocalEnabled   bool         `toml:"local_enabled"`
}

type RDSMessage struct {
	Text    string `toml:"text" validate:"max=64"`
	Enabled bool   `toml:"enabled"`
}

func defaultRDS() RDS {
	local := controllers.DefaultLocalConfig()
	msgs := make([]RDSMessage, 0, len(local.Slots))
	for _, slot := range local.Slots {
		msgs = append(msgs, RDSMessage{Text: slot.Text, Enabled: slot.Enabled})
	}
	return RDS{
		LocalEnabled:   local.Enabled,
		StationName:    local.StationName,
		PICode:         int(local.PICode),
		PTYCode:        int(local.PTYCode),
		DisplaySeconds: int(local.DisplayDuration / time.Second),
		Messages:       msgs,
	}
}

// LocalConfig converts the [rds] section to the local schedule.
func (c *Instance) LocalConfig() controllers.LocalConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r := c.vals.RDS

	cfg := controllers.LocalConfig{
		Enabled:         r.LocalEnabled,
		StationName:     r.StationName,
		PICode:          uint16(r.PICode), //nolint:gosec // validated on load
		PTYCode:         uint8(r.PTYCode), //nolint:gosec // validated on load
		DisplayDuration: time.Duration(r.DisplaySeconds) * time.Second,
	}
	for i, msg := range r.Messages {
		if i >= controllers.LocalSlotCount {
			break
		}
		cfg.Slots[i] = controllers.LocalSlot{Text: msg.Text, Enabled: msg.Enabled}
	}
	return cfg
}

// ControllersConfig seeds the controller registry.
func (c *Instance) ControllersConfig() controllers.Config {
	local := c.LocalConfig()
	c.mu.RLock()
	defer c.mu.RUnlock()
	return controllers.Config{
		Enabled: controllerEnabled(c.vals.Controllers),
		Local:   local,
	}
}
