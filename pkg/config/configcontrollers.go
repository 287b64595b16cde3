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
	"strconv"

	"github.com/PixelRadioProject/pixelradio-core/pkg/models"
)

const (
	DefaultBaudRate = 115200
	DefaultMQTTName = "pixelradio"
	DefaultHTTPPort = 8080

	DefaultHTTPRateLimit = 10
	DefaultHTTPRateBurst = 20
)

type Controllers struct {
	Serial SerialController `toml:"serial"`
	MQTT   MQTTController   `toml:"mqtt"`
	HTTP   HTTPController   `toml:"http"`
}

type SerialController struct {
	Port     string `toml:"port,omitempty"`
	BaudRate int    `toml:"baud_rate" validate:"min=1200,max=921600"`
	Enabled  bool   `toml:"enabled"`
}

// MQTTController subscribes to <name>/cmd/# on the broker. Credentials are
// looked up in auth.toml by broker URL.
type MQTTController struct {
	Broker  string `toml:"broker,omitempty" validate:"required_if=Enabled true"`
	Name    string `toml:"name" validate:"required,max=64,excludesall=#+/"`
	Enabled bool   `toml:"enabled"`
}

type HTTPController struct {
	Port           *int     `toml:"port,omitempty" validate:"omitempty,min=1,max=65535"`
	Listen         string   `toml:"listen,omitempty"`
	AllowedOrigins []string `toml:"allowed_origins,omitempty"`
	RateLimit      int      `toml:"rate_limit,omitempty" validate:"min=0"`
	RateBurst      int      `toml:"rate_burst,omitempty" validate:"min=0"`
	Enabled        bool     `toml:"enabled"`
}

func controllerEnabled(c Controllers) map[models.ProducerID]bool {
	return map[models.ProducerID]bool{
		models.ProducerSerial: c.Serial.Enabled,
		models.ProducerMQTT:   c.MQTT.Enabled,
		models.ProducerHTTP:   c.HTTP.Enabled,
	}
}

func (c *Instance) SerialController() SerialController {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Controllers.Serial
}

func (c *Instance) MQTTController() MQTTController {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Controllers.MQTT
}

func (c *Instance) HTTPController() HTTPController {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Controllers.HTTP
}

// SetControllerEnabled persists a controller toggle for the next Save.
func (c *Instance) SetControllerEnabled(p models.ProducerID, enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch p {
	case models.ProducerSerial:
		c.vals.Controllers.Serial.Enabled = enabled
	case models.ProducerMQTT:
		c.vals.Controllers.MQTT.Enabled = enabled
	case models.ProducerHTTP:
		c.vals.Controllers.HTTP.Enabled = enabled
	}
}

func (c *Instance) HTTPPort() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.httpPortLocked()
}

// httpPortLocked returns the HTTP port. Caller must hold mu.
func (c *Instance) httpPortLocked() int {
	if c.vals.Controllers.HTTP.Port == nil {
		return DefaultHTTPPort
	}
	return *c.vals.Controllers.HTTP.Port
}

func (c *Instance) SetHTTPPort(port int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Controllers.HTTP.Port = &port
}

func (c *Instance) HTTPListen() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Controllers.HTTP.Listen == "" {
		return ":" + strconv.Itoa(c.httpPortLocked())
	}
	return c.vals.Controllers.HTTP.Listen
}

// HTTPRateLimit returns requests per second and burst per client address.
func (c *Instance) HTTPRateLimit() (limit, burst int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	limit, burst = c.vals.Controllers.HTTP.RateLimit, c.vals.Controllers.HTTP.RateBurst
	if limit == 0 {
		limit = DefaultHTTPRateLimit
	}
	if burst == 0 {
		burst = DefaultHTTPRateBurst
	}
	return limit, burst
}
