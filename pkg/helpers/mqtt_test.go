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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMQTTBrokerURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "broker.lan:1883", want: "tcp://broker.lan:1883"},
		{in: "ssl://broker.lan:8883", want: "ssl://broker.lan:8883"},
		{in: "ws://broker.lan/mqtt", want: "ws://broker.lan/mqtt"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MQTTBrokerURL(tt.in))
	}
}

func TestMQTTClientOptions(t *testing.T) {
	t.Parallel()

	a := MQTTClientOptions("broker.lan:1883", "pixelradio")
	b := MQTTClientOptions("broker.lan:1883", "pixelradio")

	require.Len(t, a.Servers, 1)
	assert.Equal(t, "tcp", a.Servers[0].Scheme)
	assert.Equal(t, "broker.lan:1883", a.Servers[0].Host)
	assert.True(t, strings.HasPrefix(a.ClientID, "pixelradio-"))
	assert.NotEqual(t, a.ClientID, b.ClientID)
	assert.True(t, a.AutoReconnect)
}
