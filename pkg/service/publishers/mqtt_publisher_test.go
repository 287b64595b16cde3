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

package publishers

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/PixelRadioProject/pixelradio-core/pkg/config"
	"github.com/PixelRadioProject/pixelradio-core/pkg/models"
	"github.com/PixelRadioProject/pixelradio-core/pkg/testing/mocks"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPublisher(client *mocks.MQTTClient, filter []string) *MQTTPublisher {
	p := NewMQTTPublisher(config.MQTTPublisher{
		Broker: "broker.lan:1883",
		Topic:  "pixelradio/status",
		Filter: filter,
	})
	p.newClient = func(*mqtt.ClientOptions) mqtt.Client { return client }
	return p
}

func TestWants(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		method string
		filter []string
		want   bool
	}{
		{name: "no filter", method: models.NotificationCountdown, want: true},
		{name: "listed", method: models.NotificationActive, filter: []string{models.NotificationActive}, want: true},
		{name: "not listed", method: models.NotificationCountdown, filter: []string{models.NotificationActive}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := NewMQTTPublisher(config.MQTTPublisher{Filter: tt.filter})
			assert.Equal(t, tt.want, p.wants(tt.method))
		})
	}
}

func TestPublisher_ForwardsFiltered(t *testing.T) {
	t.Parallel()

	client := mocks.NewMQTTClient()
	p := newTestPublisher(client, []string{models.NotificationActive})
	ns := make(chan models.Notification, 4)
	require.NoError(t, p.Start(ns))

	ns <- models.Notification{Method: models.NotificationCountdown, Params: json.RawMessage(`{"remainingSeconds":4}`)}
	ns <- models.Notification{Method: models.NotificationActive, Params: json.RawMessage(`{"producer":"mqtt"}`)}

	require.Eventually(t, func() bool {
		return len(client.PublishedTo("pixelradio/status")) == 1
	}, time.Second, 10*time.Millisecond)

	var env envelope
	require.NoError(t, json.Unmarshal(client.PublishedTo("pixelradio/status")[0], &env))
	assert.Equal(t, models.NotificationActive, env.Method)
	assert.JSONEq(t, `{"producer":"mqtt"}`, string(env.Params))

	p.Stop()
	p.Stop()
	assert.Equal(t, 1, client.Disconnects())
}

func TestPublisher_ConnectError(t *testing.T) {
	t.Parallel()

	client := mocks.NewMQTTClient()
	client.ConnectErr = errors.New("refused")
	p := newTestPublisher(client, nil)

	err := p.Start(make(chan models.Notification))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker.lan:1883")
	p.Stop()
}

func TestPublisher_PublishErrorKeepsRunning(t *testing.T) {
	t.Parallel()

	client := mocks.NewMQTTClient()
	client.PublishErr = errors.New("offline")
	p := newTestPublisher(client, nil)
	ns := make(chan models.Notification)
	require.NoError(t, p.Start(ns))

	for range 3 {
		select {
		case ns <- models.Notification{Method: models.NotificationDevice}:
		case <-time.After(time.Second):
			t.Fatal("publisher stopped reading")
		}
	}
	p.Stop()
}

func TestPublisher_ChannelClosed(t *testing.T) {
	t.Parallel()

	client := mocks.NewMQTTClient()
	p := newTestPublisher(client, nil)
	ns := make(chan models.Notification)
	require.NoError(t, p.Start(ns))
	close(ns)

	select {
	case <-p.done:
	case <-time.After(time.Second):
		t.Fatal("forwarder did not exit")
	}
	p.Stop()
}
