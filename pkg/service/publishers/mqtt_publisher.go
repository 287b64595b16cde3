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

// Package publishers forwards service notifications to external systems.
package publishers

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/PixelRadioProject/pixelradio-core/pkg/config"
	"github.com/PixelRadioProject/pixelradio-core/pkg/helpers"
	"github.com/PixelRadioProject/pixelradio-core/pkg/models"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
)

// envelope is the MQTT payload; one topic carries every method.
type envelope struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// MQTTPublisher publishes notifications to one topic on a broker.
type MQTTPublisher struct {
	client    mqtt.Client
	newClient func(*mqtt.ClientOptions) mqtt.Client
	stopCh    chan struct{}
	done      chan struct{}
	broker    string
	topic     string
	filter    []string
}

func NewMQTTPublisher(cfg config.MQTTPublisher) *MQTTPublisher {
	return &MQTTPublisher{
		broker:    cfg.Broker,
		topic:     cfg.Topic,
		filter:    cfg.Filter,
		newClient: mqtt.NewClient,
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start connects and forwards notifications until Stop or until ns closes.
func (p *MQTTPublisher) Start(ns <-chan models.Notification) error {
	opts := helpers.MQTTClientOptions(p.broker, config.AppName+"-publisher")
	opts.OnConnect = func(mqtt.Client) {
		log.Info().Msgf("mqtt publisher: connected to %s", p.broker)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Msgf("mqtt publisher: lost connection to %s", p.broker)
	}

	p.client = p.newClient(opts)
	if tok := p.client.Connect(); tok.Wait() && tok.Error() != nil {
		close(p.done)
		return fmt.Errorf("failed to connect to mqtt broker %s: %w", p.broker, tok.Error())
	}

	go p.forward(ns)
	return nil
}

func (p *MQTTPublisher) Stop() {
	select {
	case <-p.stopCh:
		return
	default:
		close(p.stopCh)
	}
	<-p.done
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}

func (p *MQTTPublisher) forward(ns <-chan models.Notification) {
	defer close(p.done)
	for {
		select {
		case <-p.stopCh:
			return
		case n, ok := <-ns:
			if !ok {
				return
			}
			if !p.wants(n.Method) {
				continue
			}
			payload, err := json.Marshal(envelope{Method: n.Method, Params: n.Params})
			if err != nil {
				log.Error().Err(err).Msg("mqtt publisher: failed to marshal notification")
				continue
			}
			if tok := p.client.Publish(p.topic, 0, false, payload); tok.Wait() && tok.Error() != nil {
				log.Warn().Err(tok.Error()).Str("method", n.Method).Msg("mqtt publisher: publish failed")
			}
		}
	}
}

func (p *MQTTPublisher) wants(method string) bool {
	return len(p.filter) == 0 || slices.Contains(p.filter, method)
}
