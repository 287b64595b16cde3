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
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// PeriphDriver drives the user pins through periph.io.
type PeriphDriver struct {
	pins map[int]gpio.PinIO
}

// NewPeriphDriver initializes the host drivers and resolves every
// whitelisted pin by its "GPIOnn" name.
func NewPeriphDriver() (*PeriphDriver, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to init periph host: %w", err)
	}

	pins := make(map[int]gpio.PinIO, len(Pins))
	for _, n := range Pins {
		name := fmt.Sprintf("GPIO%d", n)
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("gpio pin not found: %s", name)
		}
		pins[n] = p
	}

	return &PeriphDriver{pins: pins}, nil
}

func (d *PeriphDriver) pin(n int) (gpio.PinIO, error) {
	p, ok := d.pins[n]
	if !ok {
		return nil, ErrInvalidPin
	}
	return p, nil
}

func (d *PeriphDriver) Configure(n int, mode Mode) error {
	p, err := d.pin(n)
	if err != nil {
		return err
	}

	switch mode {
	case ModeOutLow:
		err = p.Out(gpio.Low)
	case ModeOutHigh:
		err = p.Out(gpio.High)
	case ModeInput:
		err = p.In(gpio.Float, gpio.NoEdge)
	case ModeInputPullUp:
		err = p.In(gpio.PullUp, gpio.NoEdge)
	default:
		err = p.In(gpio.PullDown, gpio.NoEdge)
	}
	if err != nil {
		return fmt.Errorf("configure %s: %w", p.Name(), err)
	}
	return nil
}

func (d *PeriphDriver) Read(n int) (bool, error) {
	p, err := d.pin(n)
	if err != nil {
		return false, err
	}
	return p.Read() == gpio.High, nil
}

func (d *PeriphDriver) Write(n int, high bool) error {
	p, err := d.pin(n)
	if err != nil {
		return err
	}
	level := gpio.Low
	if high {
		level = gpio.High
	}
	if err := p.Out(level); err != nil {
		return fmt.Errorf("write %s: %w", p.Name(), err)
	}
	return nil
}
