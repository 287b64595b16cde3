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

package models

import "encoding/json"

const (
	NotificationActive    = "rds.active"
	NotificationCountdown = "rds.countdown"
	NotificationDevice    = "device.status"
	NotificationSettings  = "radio.settings"
)

type Notification struct {
	Method string
	Params json.RawMessage
}

type ActiveParams struct {
	Producer    ProducerID `json:"producer"`
	Text        string     `json:"text"`
	StationName string     `json:"stationName"`
	NoContent   bool       `json:"noContent,omitempty"`
}

type CountdownParams struct {
	RemainingSeconds int `json:"remainingSeconds"`
}

type DeviceParams struct {
	State       string `json:"state"`
	Calibration string `json:"calibration"`
	OnAir       bool   `json:"onAir"`
}

type SettingsParams struct {
	Applied []string `json:"applied"`
	Failed  []string `json:"failed,omitempty"`
}

// StatusResponse is the snapshot served to transports asking for status.
type StatusResponse struct {
	Active      ProducerID `json:"active"`
	Text        string     `json:"text"`
	StationName string     `json:"stationName"`
	Device      string     `json:"device"`
	Calibration string     `json:"calibration"`
	Status      string     `json:"status"`
	Remaining   int        `json:"remainingSeconds"`
	Frequency   int        `json:"frequency"`
	OnAir       bool       `json:"onAir"`
}
