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

// Package mqtt takes commands from <name>/cmd/<command> topics on an MQTT
// broker. The payload is the command argument.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/PixelRadioProject/pixelradio-core/pkg/config"
	"github.com/PixelRadioProject/pixelradio-core/pkg/helpers"
	"github.com/PixelRadioProject/pixelradio-core/pkg/models"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
)

const (
	topicCmd     = "cmd"
	topicConnect = "connect"
	topicInfo    = "info"
	topicGPIO    = "gpio"

	disconnectQuiesceMs = 250
)

var ErrNoBroker = errors.New("no mqtt broker configured")

type Core interface {
	Submit(ctx context.Context, p models.ProducerID, command, payload string) (models.Reply, error)
}

type Transport struct {
	core      Core
	newClient func(*paho.ClientOptions) paho.Client
	broker    string
	name      string
	connects  atomic.Int32
}

func New(cfg config.MQTTController, core Core) *Transport {
	name := cfg.Name
	if name == "" {
		name = config.DefaultMQTTName
	}
	return &Transport{
		core:      core,
		newClient: paho.NewClient,
		broker:    cfg.Broker,
		name:      name,
	}
}

func (*Transport) Name() string {
	return "mqtt"
}

func (t *Transport) topic(parts ...string) string {
	return t.name + "/" + strings.Join(parts, "/")
}

// Run connects and serves commands until ctx is done. The client
// reconnects by itself; each connect re-subscribes and announces.
func (t *Transport) Run(ctx context.Context) error {
	if t.broker == "" {
		return ErrNoBroker
	}

	opts := helpers.MQTTClientOptions(t.broker, config.AppName)
	opts.OnConnect = func(c paho.Client) {
		t.onConnect(ctx, c)
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Warn().Err(err).Msgf("mqtt: lost connection to %s", t.broker)
	}

	client := t.newClient(opts)
	tok := client.Connect()
	select {
	case <-tok.Done():
		if err := tok.Error(); err != nil {
			return fmt.Errorf("failed to connect to mqtt broker %s: %w", t.broker, err)
		}
	case <-ctx.Done():
		client.Disconnect(disconnectQuiesceMs)
		return nil
	}

	<-ctx.Done()
	client.Disconnect(disconnectQuiesceMs)
	log.Debug().Msg("mqtt: disconnected")
	return nil
}

func (t *Transport) onConnect(ctx context.Context, c paho.Client) {
	n := t.connects.Add(1)
	log.Info().Msgf("mqtt: connected to %s as %s", t.broker, t.name)

	announce := map[string]int32{"boot": 0}
	if n > 1 {
		announce = map[string]int32{"reconnect": n - 1}
	}
	t.publishJSON(c, t.topic(topicConnect), announce)

	filter := t.topic(topicCmd, "#")
	tok := c.Subscribe(filter, 0, func(c paho.Client, m paho.Message) {
		t.handle(ctx, c, m)
	})
	if tok.Wait() && tok.Error() != nil {
		log.Error().Err(tok.Error()).Msgf("mqtt: failed to subscribe to %s", filter)
	}
}

func (t *Transport) handle(ctx context.Context, c paho.Client, m paho.Message) {
	cmd := strings.TrimPrefix(m.Topic(), t.topic(topicCmd)+"/")
	if cmd == "" || cmd == m.Topic() || strings.Contains(cmd, "/") {
		log.Debug().Msgf("mqtt: ignoring message on %s", m.Topic())
		return
	}

	reply, err := t.core.Submit(ctx, models.ProducerMQTT, cmd, string(m.Payload()))
	if err != nil {
		log.Warn().Err(err).Msgf("mqtt: command %s failed", cmd)
		return
	}

	switch {
	case reply.Info != nil:
		t.publishJSON(c, t.topic(topicInfo), reply.Info)
	case reply.Level != nil:
		level := 0
		if *reply.Level {
			level = 1
		}
		t.publishJSON(c, t.topic(topicGPIO), map[string]int{reply.Command: level})
	}
}

func (t *Transport) publishJSON(c paho.Client, topic string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msgf("mqtt: failed to marshal payload for %s", topic)
		return
	}
	if tok := c.Publish(topic, 0, false, payload); tok.Wait() && tok.Error() != nil {
		log.Warn().Err(tok.Error()).Msgf("mqtt: publish to %s failed", topic)
	}
}
