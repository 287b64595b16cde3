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

// Package commands validates raw command invocations from any transport
// into typed instructions. Validation is pure and never changes state.
package commands

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PixelRadioProject/pixelradio-core/pkg/controllers"
	"github.com/PixelRadioProject/pixelradio-core/pkg/gpio"
	"github.com/PixelRadioProject/pixelradio-core/pkg/models"
	"github.com/PixelRadioProject/pixelradio-core/pkg/radio"
)

// Payload ceilings, in characters. Longer payloads are truncated before
// any other check.
const (
	maxAudioMode = 6
	maxFrequency = 4
	maxGPIO      = 7
	maxLog       = 7
	maxMute      = 3
	maxPICode    = 7
	maxPTYCode   = 3
	maxRDSToken  = 3
	maxCarrier   = 3
	maxSystem    = 6
	maxPeriod    = 4
)

const (
	tokenRDS    = "rds"
	tokenSystem = "system"
)

// Entry describes one wire command for help output.
type Entry struct {
	Name  string
	Usage string
	Help  string
}

// Catalog lists every command in the order help prints them.
var Catalog = []Entry{
	{Name: "aud", Usage: "aud=mono|stereo", Help: "audio mode"},
	{Name: "freq", Usage: "freq=881..1079", Help: "frequency in tenths of MHz"},
	{Name: "gpio19", Usage: "gpio19=read|outhigh|outlow", Help: "user pin 19"},
	{Name: "gpio23", Usage: "gpio23=read|outhigh|outlow", Help: "user pin 23"},
	{Name: "gpio33", Usage: "gpio33=read|outhigh|outlow", Help: "user pin 33"},
	{Name: "info", Usage: "info=system", Help: "system information"},
	{Name: "log", Usage: "log=silent|restore", Help: "serial log output (serial only)"},
	{Name: "mute", Usage: "mute=on|off", Help: "audio mute"},
	{Name: "pic", Usage: "pic=0x00FF..0xFFFF", Help: "RDS program identification code"},
	{Name: "psn", Usage: "psn=<8 chars>", Help: "RDS program service name"},
	{Name: "pty", Usage: "pty=0..29", Help: "RDS program type code"},
	{Name: "reboot", Usage: "reboot=system", Help: "restart the service"},
	{Name: "rfc", Usage: "rfc=on|off", Help: "RF carrier"},
	{Name: "rtm", Usage: "rtm=<64 chars>", Help: "RadioText message"},
	{Name: "rtper", Usage: "rtper=5..900", Help: "RadioText display period in seconds"},
	{Name: "start", Usage: "start=rds", Help: "resume this controller's RDS"},
	{Name: "stop", Usage: "stop=rds", Help: "suspend this controller's RDS"},
}

// Validator turns (command, payload, producer) into an Instruction.
type Validator struct {
	pins gpio.Modes
}

// NewValidator takes the configured pin modes used for gpio direction checks.
func NewValidator(pins gpio.Modes) *Validator {
	copied := make(gpio.Modes, len(pins))
	for pin, mode := range pins {
		copied[pin] = mode
	}
	return &Validator{pins: copied}
}

// Validate checks the producer first, then the command name, then the
// payload against the command's rules.
func (v *Validator) Validate(
	command string,
	payload string,
	producer models.ProducerID,
) (models.Instruction, error) {
	name := strings.ToLower(strings.TrimSpace(command))
	if !producer.Valid() {
		return models.Instruction{}, invalid(KindUnknownProducer, name, payload)
	}

	cmd, pin, err := parseCommand(name, payload)
	if err != nil {
		return models.Instruction{}, err
	}

	if producer == models.ProducerLocal && cmd.Class() == models.ClassRecord {
		return models.Instruction{}, invalid(KindUnsupported, name, payload)
	}

	in := models.Instruction{Command: cmd, Producer: producer}
	payload = strings.TrimSpace(payload)

	switch cmd {
	case models.CmdAudioMode:
		tok := token(payload, maxAudioMode)
		switch tok {
		case "stereo":
			in.Enabled = true
		case "mono":
			in.Enabled = false
		default:
			return models.Instruction{}, invalid(KindInvalidToken, name, payload)
		}
	case models.CmdMute, models.CmdCarrier:
		limit := maxMute
		if cmd == models.CmdCarrier {
			limit = maxCarrier
		}
		on, ok := onOff(token(payload, limit))
		if !ok {
			return models.Instruction{}, invalid(KindInvalidToken, name, payload)
		}
		in.Enabled = on
	case models.CmdFrequency:
		f, err := parseDecimal(truncate(payload, maxFrequency))
		if err != nil {
			return models.Instruction{}, invalid(KindInvalidNumber, name, payload)
		}
		if f < radio.FrequencyMin || f > radio.FrequencyMax {
			return models.Instruction{}, invalid(KindOutOfRange, name, payload)
		}
		in.Number = f
	case models.CmdPICode:
		raw := truncate(payload, maxPICode)
		if raw == "" {
			in.UseDefault = true
			break
		}
		pi, err := parseHex(raw)
		if err != nil {
			return models.Instruction{}, invalid(KindInvalidNumber, name, payload)
		}
		if pi < controllers.PICodeMin || pi > controllers.PICodeMax {
			return models.Instruction{}, invalid(KindOutOfRange, name, payload)
		}
		in.Number = pi
	case models.CmdPTYCode:
		pty, err := parseDecimal(truncate(payload, maxPTYCode))
		if err != nil {
			return models.Instruction{}, invalid(KindInvalidNumber, name, payload)
		}
		if pty > controllers.PTYCodeMax {
			return models.Instruction{}, invalid(KindOutOfRange, name, payload)
		}
		in.Number = pty
	case models.CmdStationName:
		in.Text = truncate(payload, controllers.StationNameMaxLen)
	case models.CmdText:
		in.Text = truncate(payload, controllers.TextMaxLen)
	case models.CmdDisplayPeriod:
		if utf8.RuneCountInString(payload) > maxPeriod {
			return models.Instruction{}, invalid(KindInvalidNumber, name, payload)
		}
		secs, err := parseDecimal(payload)
		if err != nil || secs <= 0 {
			return models.Instruction{}, invalid(KindInvalidNumber, name, payload)
		}
		in.Number, in.Capped = clampPeriod(secs)
	case models.CmdStart, models.CmdStop:
		if token(payload, maxRDSToken) != tokenRDS {
			return models.Instruction{}, invalid(KindInvalidToken, name, payload)
		}
	case models.CmdReboot, models.CmdInfo:
		if token(payload, maxSystem) != tokenSystem {
			return models.Instruction{}, invalid(KindInvalidToken, name, payload)
		}
	case models.CmdLog:
		if producer != models.ProducerSerial {
			return models.Instruction{}, invalid(KindUnsupported, name, payload)
		}
		switch token(payload, maxLog) {
		case "silent":
			in.LogAction = models.LogSilent
		case "restore":
			in.LogAction = models.LogRestore
		default:
			return models.Instruction{}, invalid(KindInvalidToken, name, payload)
		}
	case models.CmdGPIO:
		in.Pin = pin
		switch token(payload, maxGPIO) {
		case "read":
			in.GPIOAction = models.GPIORead
		case "outhigh":
			in.GPIOAction = models.GPIOOutHigh
		case "outlow":
			in.GPIOAction = models.GPIOOutLow
		default:
			return models.Instruction{}, invalid(KindInvalidToken, name, payload)
		}
		if in.GPIOAction != models.GPIORead && !v.pins.Output(pin) {
			return models.Instruction{}, invalid(KindWrongDirection, name, payload)
		}
	}

	return in, nil
}

func parseCommand(name, payload string) (models.Command, int, error) {
	if rest, ok := strings.CutPrefix(name, string(models.CmdGPIO)); ok {
		pin, err := strconv.Atoi(rest)
		if err != nil || !gpio.ValidPin(pin) {
			return "", 0, invalid(KindInvalidPin, name, payload)
		}
		return models.CmdGPIO, pin, nil
	}

	switch cmd := models.Command(name); cmd {
	case models.CmdAudioMode, models.CmdFrequency, models.CmdMute,
		models.CmdPICode, models.CmdPTYCode, models.CmdStationName,
		models.CmdText, models.CmdDisplayPeriod, models.CmdStart,
		models.CmdStop, models.CmdCarrier, models.CmdReboot,
		models.CmdInfo, models.CmdLog:
		return cmd, 0, nil
	default:
		return "", 0, invalid(KindUnknownCommand, name, payload)
	}
}

// truncate cuts s to at most n characters.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func token(s string, n int) string {
	return strings.ToLower(truncate(s, n))
}

func onOff(s string) (on, ok bool) {
	switch s {
	case "on":
		return true, true
	case "off":
		return false, true
	default:
		return false, false
	}
}

// parseDecimal accepts only unsigned decimal digits.
func parseDecimal(s string) (int, error) {
	if s == "" || strings.TrimLeft(s, "0123456789") != "" {
		return 0, strconv.ErrSyntax
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err //nolint:wrapcheck // mapped to a ValidationError by the caller
	}
	return n, nil
}

func parseHex(s string) (int, error) {
	s = strings.ToLower(s)
	s = strings.TrimPrefix(s, "0x")
	n, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, err //nolint:wrapcheck // mapped to a ValidationError by the caller
	}
	return int(n), nil
}

func clampPeriod(secs int) (int, bool) {
	lo := int(controllers.DisplayDurationMin.Seconds())
	hi := int(controllers.DisplayDurationMax.Seconds())
	switch {
	case secs < lo:
		return lo, true
	case secs > hi:
		return hi, true
	default:
		return secs, false
	}
}
