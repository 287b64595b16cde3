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
	"testing"
	"time"

	"github.com/PixelRadioProject/pixelradio-core/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSend_NonBlocking(t *testing.T) {
	t.Parallel()

	// unbuffered and never read
	ns := make(chan models.Notification)

	done := make(chan struct{})
	go func() {
		Countdown(ns, models.CountdownParams{RemainingSeconds: 3})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("notification send blocked on a full channel")
	}
}

func TestActive_EncodesProducerByName(t *testing.T) {
	t.Parallel()

	ns := make(chan models.Notification, 1)
	Active(ns, models.ActiveParams{
		Producer:    models.ProducerMQTT,
		Text:        "Now playing",
		StationName: "PixeyFM",
	})

	notif := <-ns
	assert.Equal(t, models.NotificationActive, notif.Method)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(notif.Params, &decoded))
	assert.Equal(t, "mqtt", decoded["producer"])
	assert.Equal(t, "Now playing", decoded["text"])
	assert.NotContains(t, decoded, "noContent")
}

func TestDevice_Payload(t *testing.T) {
	t.Parallel()

	ns := make(chan models.Notification, 1)
	Device(ns, models.DeviceParams{State: "faulted", Calibration: "device absent"})

	notif := <-ns
	assert.Equal(t, models.NotificationDevice, notif.Method)
	assert.JSONEq(t, `{"state":"faulted","calibration":"device absent","onAir":false}`, string(notif.Params))
}
