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

// Package device sequences every hardware access to the FM encoder: cold
// init, antenna calibration, settings drains and RDS sends.
package device

import (
	"errors"
	"time"
)

var (
	ErrDeviceAbsent        = errors.New("fm encoder not found")
	ErrCalibrationDegraded = errors.New("antenna calibration degraded, high reflected power")
	ErrApplyFailed         = errors.New("setting did not apply")
	ErrBusy                = errors.New("device busy with another operation")
)

// Bus is the single hardware resource. Only the sequencer writes to it.
type Bus interface {
	ReadReg(reg byte) (byte, error)
	WriteReg(reg, val byte) error
	Close() error
}

// Sleeper blocks for a duration. clockwork.Clock satisfies it.
type Sleeper interface {
	Sleep(d time.Duration)
}

type State int32

const (
	StateUninitialized State = iota
	StateCalibrating
	StateIdle
	StateTransmitting
	StateFaulted
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateCalibrating:
		return "calibrating"
	case StateIdle:
		return "idle"
	case StateTransmitting:
		return "transmitting"
	case StateFaulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// CalibrationResult is decided once per boot.
type CalibrationResult int32

const (
	CalibrationPending CalibrationResult = iota
	CalibrationOK
	CalibrationHighReflectedPower
	CalibrationDeviceAbsent
)

func (c CalibrationResult) String() string {
	switch c {
	case CalibrationOK:
		return "ok"
	case CalibrationHighReflectedPower:
		return "high_reflected_power"
	case CalibrationDeviceAbsent:
		return "device_absent"
	default:
		return "pending"
	}
}
