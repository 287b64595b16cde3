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

// Package gpio drives the user-controllable pins exposed to the command
// transports.
package gpio

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PixelRadioProject/pixelradio-core/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
)

// Pins is the whitelist of user pins.
var Pins = []int{19, 23, 33}

var (
	ErrInvalidPin     = errors.New("pin is not a user gpio")
	ErrWrongDirection = errors.New("pin is not configured as an output")
)

func ValidPin(pin int) bool {
	for _, p := range Pins {
		if p == pin {
			return true
		}
	}
	return false
}

// Mode is a pin's boot configuration.
type Mode int

const (
	ModeInputPullDown Mode = iota
	ModeInputPullUp
	ModeInput
	ModeOutLow
	ModeOutHigh
)

func (m Mode) IsOutput() bool {
	return m == ModeOutLow || m == ModeOutHigh
}

func (m Mode) String() string {
	switch m {
	case ModeInputPullUp:
		return "inputpu"
	case ModeInput:
		return "input"
	case ModeOutLow:
		return "outlow"
	case ModeOutHigh:
		return "outhigh"
	default:
		return "inputpd"
	}
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "inputpd", "":
		return ModeInputPullDown, nil
	case "inputpu":
		return ModeInputPullUp, nil
	case "input":
		return ModeInput, nil
	case "outlow":
		return ModeOutLow, nil
	case "outhigh":
		return ModeOutHigh, nil
	default:
		return ModeInputPullDown, fmt.Errorf("invalid gpio mode: %q", s)
	}
}

// Modes maps pin number to its configured mode. Missing pins are inputs.
type Modes map[int]Mode

func (m Modes) Output(pin int) bool {
	mode, ok := m[pin]
	return ok && mode.IsOutput()
}

// Driver is the pin hardware.
type Driver interface {
	Configure(pin int, mode Mode) error
	Read(pin int) (bool, error)
	Write(pin int, high bool) error
}

// Bank is the set of user pins with their configured directions.
type Bank struct {
	driver Driver
	modes  Modes
}

func NewBank(driver Driver, modes Modes) *Bank {
	copied := make(Modes, len(modes))
	for pin, mode := range modes {
		copied[pin] = mode
	}
	return &Bank{driver: driver, modes: copied}
}

// Init applies the boot mode of every whitelisted pin. A pin that fails is
// logged and skipped.
func (b *Bank) Init() error {
	var errs []error
	for _, pin := range Pins {
		mode := b.modes[pin]
		if err := b.driver.Configure(pin, mode); err != nil {
			log.Error().Err(err).Int("pin", pin).Msg("failed to configure gpio boot mode")
			errs = append(errs, fmt.Errorf("gpio%d: %w", pin, err))
			continue
		}
		log.Debug().Int("pin", pin).Str("mode", mode.String()).Msg("gpio boot mode set")
	}
	return errors.Join(errs...)
}

func (b *Bank) Modes() Modes {
	copied := make(Modes, len(b.modes))
	for pin, mode := range b.modes {
		copied[pin] = mode
	}
	return copied
}

func (b *Bank) Read(pin int) (bool, error) {
	if !ValidPin(pin) {
		return false, ErrInvalidPin
	}
	high, err := b.driver.Read(pin)
	if err != nil {
		return false, fmt.Errorf("read gpio%d: %w", pin, err)
	}
	return high, nil
}

func (b *Bank) Write(pin int, high bool) error {
	if !ValidPin(pin) {
		return ErrInvalidPin
	}
	if !b.modes.Output(pin) {
		return ErrWrongDirection
	}
	if err := b.driver.Write(pin, high); err != nil {
		return fmt.Errorf("write gpio%d: %w", pin, err)
	}
	return nil
}

// MemoryDriver keeps pin levels in memory. It stands in for hardware on
// hosts without user pins and in tests.
type MemoryDriver struct {
	levels     map[int]bool
	configured map[int]Mode
	mu         syncutil.Mutex
}

func NewMemoryDriver() *MemoryDriver {
	return &MemoryDriver{
		levels:     make(map[int]bool),
		configured: make(map[int]Mode),
	}
}

func (d *MemoryDriver) Configure(pin int, mode Mode) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.configured[pin] = mode
	switch mode {
	case ModeOutHigh, ModeInputPullUp:
		d.levels[pin] = true
	default:
		d.levels[pin] = false
	}
	return nil
}

func (d *MemoryDriver) Read(pin int) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.levels[pin], nil
}

func (d *MemoryDriver) Write(pin int, high bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.levels[pin] = high
	return nil
}

// Set forces an input level, for simulating external signals.
func (d *MemoryDriver) Set(pin int, high bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.levels[pin] = high
}
