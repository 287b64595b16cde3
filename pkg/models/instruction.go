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

// Command is the wire keyword of an instruction, shared by every transport.
type Command string

const (
	CmdAudioMode     Command = "aud"
	CmdFrequency     Command = "freq"
	CmdMute          Command = "mute"
	CmdPICode        Command = "pic"
	CmdPTYCode       Command = "pty"
	CmdStationName   Command = "psn"
	CmdText          Command = "rtm"
	CmdDisplayPeriod Command = "rtper"
	CmdStart         Command = "start"
	CmdStop          Command = "stop"
	CmdCarrier       Command = "rfc"
	CmdGPIO          Command = "gpio"
	CmdReboot        Command = "reboot"
	CmdInfo          Command = "info"
	CmdLog           Command = "log"
)

// Class groups commands by what they mutate.
type Class int

const (
	// ClassRecord commands change a producer's RDS record.
	ClassRecord Class = iota
	// ClassSetting commands change encoder settings.
	ClassSetting
	// ClassSystem commands act outside the registry (pins, reboot, logging).
	ClassSystem
)

func (c Command) Class() Class {
	switch c {
	case CmdAudioMode, CmdFrequency, CmdMute, CmdCarrier:
		return ClassSetting
	case CmdGPIO, CmdReboot, CmdInfo, CmdLog:
		return ClassSystem
	default:
		return ClassRecord
	}
}

type GPIOAction int

const (
	GPIORead GPIOAction = iota
	GPIOOutHigh
	GPIOOutLow
)

type LogAction int

const (
	LogRestore LogAction = iota
	LogSilent
)

// Instruction is a validated, range-checked command ready to be applied.
// Which fields are meaningful depends on Command.
type Instruction struct {
	Command  Command
	Text     string
	Producer ProducerID
	// Number carries frequency (tenths of MHz), PI code, PTY code or the
	// display period in seconds.
	Number     int
	Pin        int
	GPIOAction GPIOAction
	LogAction  LogAction
	// Enabled carries stereo, mute-on and carrier-on.
	Enabled bool
	// UseDefault asks for the configured default instead of Number.
	UseDefault bool
	// Capped is set when Number was clamped into range.
	Capped bool
}

// Identity is the station identification sent ahead of RadioText.
type Identity struct {
	StationName string
	PICode      uint16
	PTYCode     uint8
}
