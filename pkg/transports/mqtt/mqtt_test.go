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

package mqtt

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/PixelRadioProject/pixelradio-core/pkg/config"
	"github.com/PixelRadioProject/pixelradio-core/pkg/models"
	"github.com/PixelRadioProject/pixelradio-core/pkg/testing/mocks"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type testRig struct {
	transport *Transport
	client    *mocks.MQTTClient
	opts      chan *paho.ClientOptions
	core      *mocks.Core
}

func newRig() *testRig {
	rig := &testRig{
		client: mocks.NewMQTTClient(),
		opts:   make(chan *paho.ClientOptions, 1),
		core:   &mocks.Core{},
	}
	rig.transport = New(config.MQTTController{Broker: "localhost:1883", Name: "radio1"}, rig.core)
	rig.transport.newClient = func(o *paho.ClientOptions) paho.Client {
		rig.opts <- o
		return rig.client
	}
	return rig
}

// run starts the transport and simulates the broker accepting the
// connection by calling OnConnect.
func (r *testRig) run(t *testing.T) (cancel func(), done <-chan error) {
	t.Helper()
	ctx, cancelFn := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- r.transport.Run(ctx) }()

	var opts *paho.ClientOptions
	select {
	case opts = <-r.opts:
	case <-time.After(time.Second):
		t.Fatal("client never created")
	}
	require.Eventually(t, r.client.IsConnected, time.Second, 5*time.Millisecond)
	opts.OnConnect(r.client)
	return cancelFn, errCh
}

func TestRun_AnnouncesAndSubscribes(t *testing.T) {
	t.Parallel()

	rig := newRig()
	cancel, done := rig.run(t)

	assert.True(t, rig.client.Subscribed("radio1/cmd/#"))
	assert.Equal(t, [][]byte{[]byte(`{"boot":0}`)}, rig.client.PublishedTo("radio1/connect"))

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, 1, rig.client.Disconnects())
}

func TestOnConnect_CountsReconnects(t *testing.T) {
	t.Parallel()

	rig := newRig()
	ctx := context.Background()
	rig.transport.onConnect(ctx, rig.client)
	rig.transport.onConnect(ctx, rig.client)
	rig.transport.onConnect(ctx, rig.client)

	assert.Equal(t, [][]byte{
		[]byte(`{"boot":0}`),
		[]byte(`{"reconnect":1}`),
		[]byte(`{"reconnect":2}`),
	}, rig.client.PublishedTo("radio1/connect"))
}

func TestHandle_SubmitsCommand(t *testing.T) {
	t.Parallel()

	rig := newRig()
	rig.core.On("Submit", mock.Anything, models.ProducerMQTT, "rtm", "Now playing: Carol").
		Return(models.Reply{Command: "rtm", OK: true, Changed: true}, nil).Once()

	rig.transport.onConnect(context.Background(), rig.client)
	require.True(t, rig.client.Deliver("radio1/cmd/#", "radio1/cmd/rtm", []byte("Now playing: Carol")))

	rig.core.AssertExpectations(t)
	assert.Empty(t, rig.client.PublishedTo("radio1/info"))
	assert.Empty(t, rig.client.PublishedTo("radio1/gpio"))
}

func TestHandle_IgnoresBadTopics(t *testing.T) {
	t.Parallel()

	rig := newRig()
	rig.transport.onConnect(context.Background(), rig.client)
	rig.client.Deliver("radio1/cmd/#", "radio1/cmd/", []byte("x"))
	rig.client.Deliver("radio1/cmd/#", "radio1/cmd/rtm/extra", []byte("x"))

	rig.core.AssertNotCalled(t, "Submit")
}

func TestHandle_InfoAndGPIOReplies(t *testing.T) {
	t.Parallel()

	rig := newRig()
	level := true
	rig.core.On("Submit", mock.Anything, models.ProducerMQTT, "info", "system").
		Return(models.Reply{Command: "info", OK: true, Info: &models.InfoResponse{Version: "1.2.3"}}, nil)
	rig.core.On("Submit", mock.Anything, models.ProducerMQTT, "gpio23", "read").
		Return(models.Reply{Command: "gpio23", OK: true, Level: &level}, nil)

	rig.transport.onConnect(context.Background(), rig.client)
	rig.client.Deliver("radio1/cmd/#", "radio1/cmd/info", []byte("system"))
	rig.client.Deliver("radio1/cmd/#", "radio1/cmd/gpio23", []byte("read"))

	info := rig.client.PublishedTo("radio1/info")
	require.Len(t, info, 1)
	assert.Contains(t, string(info[0]), `"version":"1.2.3"`)
	assert.Equal(t, [][]byte{[]byte(`{"gpio23":1}`)}, rig.client.PublishedTo("radio1/gpio"))
}

func TestHandle_FailedCommandPublishesNothing(t *testing.T) {
	t.Parallel()

	rig := newRig()
	rig.core.On("Submit", mock.Anything, models.ProducerMQTT, "freq", "2000").
		Return(models.Reply{Command: "freq", Error: "out of range"}, errors.New("out of range"))

	rig.transport.onConnect(context.Background(), rig.client)
	rig.client.Deliver("radio1/cmd/#", "radio1/cmd/freq", []byte("2000"))

	assert.Len(t, rig.client.Published(), 1, "only the boot announcement")
}

func TestRun_ConnectError(t *testing.T) {
	t.Parallel()

	rig := newRig()
	rig.client.ConnectErr = errors.New("connection refused")
	go func() { <-rig.opts }()

	err := rig.transport.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestRun_NoBroker(t *testing.T) {
	t.Parallel()

	tr := New(config.MQTTController{}, &mocks.Core{})
	require.ErrorIs(t, tr.Run(context.Background()), ErrNoBroker)
	assert.Equal(t, "pixelradio/connect", tr.topic(topicConnect))
}
