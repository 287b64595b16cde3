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

package commands

import (
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/PixelRadioProject/pixelradio-core/pkg/gpio"
	"github.com/PixelRadioProject/pixelradio-core/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func newTestValidator() *Validator {
	return NewValidator(gpio.Modes{
		19: gpio.ModeOutLow,
		23: gpio.ModeInputPullDown,
		33: gpio.ModeOutHigh,
	})
}

func TestValidate_Frequency(t *testing.T) {
	t.Parallel()

	v := newTestValidator()

	_, err := v.Validate("freq", "1200", models.ProducerHTTP)
	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, KindOutOfRange, KindOf(err))

	in, err := v.Validate("freq", "1000", models.ProducerHTTP)
	require.NoError(t, err)
	assert.Equal(t, models.CmdFrequency, in.Command)
	assert.Equal(t, 1000, in.Number)
	assert.Equal(t, models.ProducerHTTP, in.Producer)
}

func TestValidate_Table(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		command  string
		payload  string
		producer models.ProducerID
		kind     ErrorKind
		check    func(t *testing.T, in models.Instruction)
	}{
		{
			name: "stereo", command: "aud", payload: " STEREO ", producer: models.ProducerSerial,
			check: func(t *testing.T, in models.Instruction) { assert.True(t, in.Enabled) },
		},
		{
			name: "mono", command: "AUD", payload: "mono", producer: models.ProducerSerial,
			check: func(t *testing.T, in models.Instruction) { assert.False(t, in.Enabled) },
		},
		{name: "bad audio", command: "aud", payload: "quad", producer: models.ProducerSerial, kind: KindInvalidToken},
		{name: "freq low", command: "freq", payload: "880", producer: models.ProducerMQTT, kind: KindOutOfRange},
		{
			name: "freq edge", command: "freq", payload: "881", producer: models.ProducerMQTT,
			check: func(t *testing.T, in models.Instruction) { assert.Equal(t, 881, in.Number) },
		},
		{
			name: "freq truncated to four chars", command: "freq", payload: "10795", producer: models.ProducerMQTT,
			check: func(t *testing.T, in models.Instruction) { assert.Equal(t, 1079, in.Number) },
		},
		{name: "freq not a number", command: "freq", payload: "88.7", producer: models.ProducerMQTT, kind: KindInvalidNumber},
		{name: "freq negative", command: "freq", payload: "-900", producer: models.ProducerMQTT, kind: KindInvalidNumber},
		{
			name: "mute on", command: "mute", payload: "ON", producer: models.ProducerHTTP,
			check: func(t *testing.T, in models.Instruction) { assert.True(t, in.Enabled) },
		},
		{name: "mute bad", command: "mute", payload: "maybe", producer: models.ProducerHTTP, kind: KindInvalidToken},
		{
			name: "carrier off", command: "rfc", payload: "off", producer: models.ProducerHTTP,
			check: func(t *testing.T, in models.Instruction) {
				assert.Equal(t, models.CmdCarrier, in.Command)
				assert.False(t, in.Enabled)
			},
		},
		{
			name: "pi hex", command: "pic", payload: "0x6401", producer: models.ProducerSerial,
			check: func(t *testing.T, in models.Instruction) { assert.Equal(t, 0x6401, in.Number) },
		},
		{
			name: "pi bare hex", command: "pic", payload: "abcd", producer: models.ProducerSerial,
			check: func(t *testing.T, in models.Instruction) { assert.Equal(t, 0xABCD, in.Number) },
		},
		{
			name: "pi empty uses default", command: "pic", payload: "", producer: models.ProducerSerial,
			check: func(t *testing.T, in models.Instruction) { assert.True(t, in.UseDefault) },
		},
		{name: "pi too small", command: "pic", payload: "0xFE", producer: models.ProducerSerial, kind: KindOutOfRange},
		{name: "pi too big", command: "pic", payload: "0x10000", producer: models.ProducerSerial, kind: KindOutOfRange},
		{name: "pi garbage", command: "pic", payload: "zz", producer: models.ProducerSerial, kind: KindInvalidNumber},
		{
			name: "pty", command: "pty", payload: "29", producer: models.ProducerMQTT,
			check: func(t *testing.T, in models.Instruction) { assert.Equal(t, 29, in.Number) },
		},
		{name: "pty high", command: "pty", payload: "30", producer: models.ProducerMQTT, kind: KindOutOfRange},
		{
			name: "psn truncated", command: "psn", payload: "  PixelRadio  ", producer: models.ProducerMQTT,
			check: func(t *testing.T, in models.Instruction) { assert.Equal(t, "PixelRad", in.Text) },
		},
		{
			name: "text keeps case", command: "rtm", payload: strings.Repeat("Ab", 40), producer: models.ProducerHTTP,
			check: func(t *testing.T, in models.Instruction) {
				assert.Len(t, in.Text, 64)
				assert.True(t, strings.HasPrefix(in.Text, "AbAb"))
			},
		},
		{
			name: "period capped low", command: "rtper", payload: "2", producer: models.ProducerHTTP,
			check: func(t *testing.T, in models.Instruction) {
				assert.Equal(t, 5, in.Number)
				assert.True(t, in.Capped)
			},
		},
		{
			name: "period capped high", command: "rtper", payload: "9999", producer: models.ProducerHTTP,
			check: func(t *testing.T, in models.Instruction) {
				assert.Equal(t, 900, in.Number)
				assert.True(t, in.Capped)
			},
		},
		{
			name: "period in range", command: "rtper", payload: "30", producer: models.ProducerHTTP,
			check: func(t *testing.T, in models.Instruction) {
				assert.Equal(t, 30, in.Number)
				assert.False(t, in.Capped)
			},
		},
		{name: "period zero", command: "rtper", payload: "0", producer: models.ProducerHTTP, kind: KindInvalidNumber},
		{name: "period too long", command: "rtper", payload: "10000", producer: models.ProducerHTTP, kind: KindInvalidNumber},
		{name: "start", command: "start", payload: "RDS", producer: models.ProducerMQTT},
		{name: "stop bad token", command: "stop", payload: "all", producer: models.ProducerMQTT, kind: KindInvalidToken},
		{name: "reboot", command: "reboot", payload: "system", producer: models.ProducerHTTP},
		{name: "reboot bad", command: "reboot", payload: "now", producer: models.ProducerHTTP, kind: KindInvalidToken},
		{name: "info", command: "info", payload: "system", producer: models.ProducerMQTT},
		{
			name: "log silent", command: "log", payload: "silent", producer: models.ProducerSerial,
			check: func(t *testing.T, in models.Instruction) { assert.Equal(t, models.LogSilent, in.LogAction) },
		},
		{name: "log from mqtt", command: "log", payload: "silent", producer: models.ProducerMQTT, kind: KindUnsupported},
		{
			name: "gpio read input", command: "gpio23", payload: "read", producer: models.ProducerHTTP,
			check: func(t *testing.T, in models.Instruction) {
				assert.Equal(t, 23, in.Pin)
				assert.Equal(t, models.GPIORead, in.GPIOAction)
			},
		},
		{
			name: "gpio write output", command: "gpio19", payload: "outhigh", producer: models.ProducerHTTP,
			check: func(t *testing.T, in models.Instruction) {
				assert.Equal(t, 19, in.Pin)
				assert.Equal(t, models.GPIOOutHigh, in.GPIOAction)
			},
		},
		{name: "gpio write input", command: "gpio23", payload: "outlow", producer: models.ProducerHTTP, kind: KindWrongDirection},
		{name: "gpio bad pin", command: "gpio21", payload: "read", producer: models.ProducerHTTP, kind: KindInvalidPin},
		{name: "gpio bad token", command: "gpio33", payload: "toggle", producer: models.ProducerHTTP, kind: KindInvalidToken},
		{name: "unknown command", command: "volume", payload: "11", producer: models.ProducerHTTP, kind: KindUnknownCommand},
		{name: "local text", command: "rtm", payload: "hi", producer: models.ProducerLocal, kind: KindUnsupported},
		{name: "local setting", command: "mute", payload: "on", producer: models.ProducerLocal},
	}

	v := newTestValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			in, err := v.Validate(tt.command, tt.payload, tt.producer)
			if tt.kind != 0 {
				require.Error(t, err)
				assert.Equal(t, tt.kind, KindOf(err), err.Error())
				assert.Equal(t, models.Instruction{}, in)
				return
			}
			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t, in)
			}
		})
	}
}

func TestValidate_UnknownProducerShortCircuits(t *testing.T) {
	t.Parallel()

	v := newTestValidator()
	for _, p := range []models.ProducerID{models.ProducerNone, models.ProducerID(42)} {
		// the command is also unknown, but the producer wins
		_, err := v.Validate("volume", "whatever", p)
		require.Error(t, err)
		assert.Equal(t, KindUnknownProducer, KindOf(err))
	}
}

func TestValidationError_Message(t *testing.T) {
	t.Parallel()

	v := newTestValidator()
	_, err := v.Validate("freq", "2000", models.ProducerSerial)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "freq", ve.Command)
	assert.Equal(t, `freq: out of range "2000"`, err.Error())
}

func TestPropertyFrequencyRange(t *testing.T) {
	t.Parallel()
	v := newTestValidator()
	rapid.Check(t, func(t *rapid.T) {
		f := rapid.IntRange(0, 9999).Draw(t, "freq")
		in, err := v.Validate("freq", strconv.Itoa(f), models.ProducerSerial)
		inRange := f >= 881 && f <= 1079
		if inRange && (err != nil || in.Number != f) {
			t.Fatalf("expected %d to be accepted, got %v", f, err)
		}
		if !inRange && KindOf(err) != KindOutOfRange {
			t.Fatalf("expected %d to be out of range, got %v", f, err)
		}
	})
}

func TestPropertyDisplayPeriodAlwaysInBounds(t *testing.T) {
	t.Parallel()
	v := newTestValidator()
	rapid.Check(t, func(t *rapid.T) {
		secs := rapid.IntRange(1, 9999).Draw(t, "secs")
		in, err := v.Validate("rtper", strconv.Itoa(secs), models.ProducerMQTT)
		if err != nil {
			t.Fatalf("unexpected error for %d: %v", secs, err)
		}
		if in.Number < 5 || in.Number > 900 {
			t.Fatalf("period %d out of bounds", in.Number)
		}
		if in.Capped != (secs < 5 || secs > 900) {
			t.Fatalf("capped flag wrong for %d", secs)
		}
	})
}

func TestCatalog_EveryEntryParses(t *testing.T) {
	t.Parallel()

	for _, entry := range Catalog {
		_, _, err := parseCommand(entry.Name, "")
		assert.NoError(t, err, entry.Name)
	}
}
