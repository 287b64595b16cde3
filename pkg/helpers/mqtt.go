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

package helpers

import (
	"strings"
	"time"

	"github.com/PixelRadioProject/pixelradio-core/pkg/config"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// MQTTBrokerURL adds the tcp scheme to a bare host:port.
func MQTTBrokerURL(broker string) string {
	if strings.Contains(broker, "://") {
		return broker
	}
	return "tcp://" + broker
}

// MQTTClientOptions returns reconnecting client options for broker with a
// unique client id and any credentials from auth.toml.
func MQTTClientOptions(broker, clientPrefix string) *mqtt.ClientOptions {
	url := MQTTBrokerURL(broker)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(url)
	opts.SetClientID(clientPrefix + "-" + uuid.New().String()[:8])
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(10 * time.Second)

	if creds := config.LookupAuth(url); creds != nil {
		opts.SetUsername(creds.Username)
		opts.SetPassword(creds.Password)
	}
	return opts
}
