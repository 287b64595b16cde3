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

package gpio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{in: "outlow", want: ModeOutLow},
		{in: "OUTHIGH", want: ModeOutHigh},
		{in: "input", want: ModeInput},
		{in: "inputpu", want: ModeInputPullUp},
		{in: "", want: ModeInputPullDown},
		{in: "analog", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBank_InitAppliesBootModes(t *testing.T) {
	t.Parallel()

	drv := NewMemoryDriver()
	bank := NewBank(drv, Modes{19: ModeOutHigh, 23: ModeInputPullUp})
	require.NoError(t, bank.Init())

	high, err := bank.Read(19)
	require.NoError(t, err)
	assert.True(t, high)

	// 33 has no configured mode and boots as a pulled-down input
	high, err = bank.Read(33)
	require.NoError(t, err)
	assert.False(t, high)
}

func TestBank_Write(t *testing.T) {
	t.Parallel()

	drv := NewMemoryDriver()
	bank := NewBank(drv, Modes{19: ModeOutLow, 23: ModeInput})
	require.NoError(t, bank.Init())

	require.NoError(t, bank.Write(19, true))
	high, err := bank.Read(19)
	require.NoError(t, err)
	assert.True(t, high)

	require.ErrorIs(t, bank.Write(23, true), ErrWrongDirection)
	require.ErrorIs(t, bank.Write(5, true), ErrInvalidPin)

	_, err = bank.Read(4)
	require.ErrorIs(t, err, ErrInvalidPin)
}

func TestBank_ModesIsACopy(t *testing.T) {
	t.Parallel()

	modes := Modes{19: ModeOutLow}
	bank := NewBank(NewMemoryDriver(), modes)
	modes[19] = ModeInput

	assert.True(t, bank.Modes().Output(19))

	got := bank.Modes()
	got[19] = ModeInput
	assert.True(t, bank.Modes().Output(19))
}
