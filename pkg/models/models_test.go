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

package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriorities(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 3, ProducerSerial.Rank())
	assert.Equal(t, 2, ProducerMQTT.Rank())
	assert.Equal(t, 1, ProducerHTTP.Rank())
	assert.Equal(t, 0, ProducerLocal.Rank())
	assert.Equal(t, -1, ProducerNone.Rank())
	assert.False(t, ProducerNone.Valid())

	assert.Equal(t, []ProducerID{ProducerSerial, ProducerMQTT, ProducerHTTP}, RemoteProducers())
}

func TestProducerJSON(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(ActiveParams{Producer: ProducerMQTT, Text: "hi"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"producer":"mqtt","text":"hi","stationName":""}`, string(data))

	var params ActiveParams
	require.NoError(t, json.Unmarshal(data, &params))
	assert.Equal(t, ProducerMQTT, params.Producer)

	err = json.Unmarshal([]byte(`{"producer":"radio"}`), &params)
	assert.Error(t, err)
}

func TestCommandClass(t *testing.T) {
	t.Parallel()

	tests := []struct {
		cmd  Command
		want Class
	}{
		{CmdText, ClassRecord},
		{CmdStationName, ClassRecord},
		{CmdStop, ClassRecord},
		{CmdFrequency, ClassSetting},
		{CmdCarrier, ClassSetting},
		{CmdGPIO, ClassSystem},
		{CmdLog, ClassSystem},
		{CmdReboot, ClassSystem},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.cmd.Class(), string(tt.cmd))
	}
}
