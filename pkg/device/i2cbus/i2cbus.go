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

// Package i2cbus opens the FM encoder on a host I2C bus.
package i2cbus

import (
	"fmt"

	"github.com/PixelRadioProject/pixelradio-core/pkg/device/qn8027"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// Bus is a register bus on a single I2C address.
type Bus struct {
	closer i2c.BusCloser
	dev    *i2c.Dev
}

// Open initializes the host drivers and opens the named bus, "" for the
// first one found.
func Open(name string, addr uint16) (*Bus, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to init periph host: %w", err)
	}
	b, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open i2c bus %q: %w", name, err)
	}
	if addr == 0 {
		addr = qn8027.Address
	}
	return &Bus{
		closer: b,
		dev:    &i2c.Dev{Bus: b, Addr: addr},
	}, nil
}

func (b *Bus) ReadReg(reg byte) (byte, error) {
	r := make([]byte, 1)
	if err := b.dev.Tx([]byte{reg}, r); err != nil {
		return 0, fmt.Errorf("i2c read 0x%02X: %w", reg, err)
	}
	return r[0], nil
}

func (b *Bus) WriteReg(reg, val byte) error {
	if err := b.dev.Tx([]byte{reg, val}, nil); err != nil {
		return fmt.Errorf("i2c write 0x%02X: %w", reg, err)
	}
	return nil
}

func (b *Bus) Close() error {
	if err := b.closer.Close(); err != nil {
		return fmt.Errorf("close i2c bus: %w", err)
	}
	return nil
}
