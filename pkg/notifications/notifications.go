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

package notifications

import (
	"encoding/json"

	"github.com/PixelRadioProject/pixelradio-core/pkg/models"
	"github.com/rs/zerolog/log"
)

// send never blocks the caller; the tick loop must keep its cadence even
// when nobody drains the channel.
func send(ns chan<- models.Notification, method string, payload any) {
	params, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("method", method).Msg("marshalling notification")
		return
	}
	select {
	case ns <- models.Notification{Method: method, Params: params}:
	default:
		log.Warn().Str("method", method).Msg("notification channel full, dropping")
	}
}

func Active(ns chan<- models.Notification, payload models.ActiveParams) {
	send(ns, models.NotificationActive, payload)
}

func Countdown(ns chan<- models.Notification, payload models.CountdownParams) {
	send(ns, models.NotificationCountdown, payload)
}

func Device(ns chan<- models.Notification, payload models.DeviceParams) {
	send(ns, models.NotificationDevice, payload)
}

func Settings(ns chan<- models.Notification, payload models.SettingsParams) {
	send(ns, models.NotificationSettings, payload)
}
