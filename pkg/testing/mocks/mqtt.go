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

// Package mocks holds test doubles shared across packages.
package mocks

import (
	"errors"
	"time"

	"github.com/PixelRadioProject/pixelradio-core/pkg/helpers/syncutil"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTClient is an in-memory mqtt.Client. Publishes are recorded and
// Deliver feeds a message to the handler subscribed to its topic filter.
type MQTTClient struct {
	ConnectErr   error
	PublishErr   error
	SubscribeErr error
	handlers     map[string]mqtt.MessageHandler
	published    []PublishedMessage
	disconnects  int
	mu           syncutil.Mutex
	connected    bool
}

type PublishedMessage struct {
	Topic    string
	Payload  []byte
	QoS      byte
	Retained bool
}

func NewMQTTClient() *MQTTClient {
	return &MQTTClient{handlers: make(map[string]mqtt.MessageHandler)}
}

func (m *MQTTClient) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *MQTTClient) IsConnectionOpen() bool {
	return m.IsConnected()
}

func (m *MQTTClient) Connect() mqtt.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ConnectErr != nil {
		return &MQTTToken{Err: m.ConnectErr}
	}
	m.connected = true
	return &MQTTToken{}
}

func (m *MQTTClient) Disconnect(uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
	m.disconnects++
}

func (m *MQTTClient) Disconnects() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.disconnects
}

func (m *MQTTClient) Publish(topic string, qos byte, retained bool, payload any) mqtt.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PublishErr != nil {
		return &MQTTToken{Err: m.PublishErr}
	}
	var data []byte
	switch p := payload.(type) {
	case []byte:
		data = p
	case string:
		data = []byte(p)
	default:
		return &MQTTToken{Err: errors.New("unsupported payload type")}
	}
	m.published = append(m.published, PublishedMessage{
		Topic:    topic,
		Payload:  data,
		QoS:      qos,
		Retained: retained,
	})
	return &MQTTToken{}
}

// Published returns a copy of every recorded publish.
func (m *MQTTClient) Published() []PublishedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PublishedMessage(nil), m.published...)
}

// PublishedTo returns the payloads published to topic.
func (m *MQTTClient) PublishedTo(topic string) [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out [][]byte
	for _, p := range m.published {
		if p.Topic == topic {
			out = append(out, p.Payload)
		}
	}
	return out
}

func (m *MQTTClient) Subscribe(topic string, _ byte, cb mqtt.MessageHandler) mqtt.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SubscribeErr != nil {
		return &MQTTToken{Err: m.SubscribeErr}
	}
	m.handlers[topic] = cb
	return &MQTTToken{}
}

func (m *MQTTClient) SubscribeMultiple(filters map[string]byte, cb mqtt.MessageHandler) mqtt.Token {
	for topic, qos := range filters {
		if tok := m.Subscribe(topic, qos, cb); tok.Error() != nil {
			return tok
		}
	}
	return &MQTTToken{}
}

func (m *MQTTClient) Unsubscribe(topics ...string) mqtt.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range topics {
		delete(m.handlers, t)
	}
	return &MQTTToken{}
}

func (m *MQTTClient) Subscribed(filter string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.handlers[filter]
	return ok
}

func (*MQTTClient) AddRoute(string, mqtt.MessageHandler) {}

func (*MQTTClient) OptionsReader() mqtt.ClientOptionsReader {
	return mqtt.ClientOptionsReader{}
}

// Deliver calls the handler registered for filter with a message on topic.
// It reports false if nothing is subscribed to filter.
func (m *MQTTClient) Deliver(filter, topic string, payload []byte) bool {
	m.mu.Lock()
	cb, ok := m.handlers[filter]
	m.mu.Unlock()
	if !ok {
		return false
	}
	cb(m, &MQTTMessage{topic: topic, payload: payload})
	return true
}

// MQTTToken is an already-completed token.
type MQTTToken struct {
	Err error
}

func (*MQTTToken) Wait() bool {
	return true
}

func (*MQTTToken) WaitTimeout(time.Duration) bool {
	return true
}

func (*MQTTToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func (t *MQTTToken) Error() error {
	return t.Err
}

// MQTTMessage is an inbound message handed to subscription handlers.
type MQTTMessage struct {
	topic   string
	payload []byte
}

func (*MQTTMessage) Duplicate() bool   { return false }
func (*MQTTMessage) Qos() byte         { return 0 }
func (*MQTTMessage) Retained() bool    { return false }
func (m *MQTTMessage) Topic() string   { return m.topic }
func (*MQTTMessage) MessageID() uint16 { return 0 }
func (m *MQTTMessage) Payload() []byte { return m.payload }
func (*MQTTMessage) Ack()              {}
