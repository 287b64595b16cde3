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

// Package qn8027 drives the QN8027 FM transmitter over a register bus.
package qn8027

import (
	"errors"
	"fmt"
)

// Address is the chip's fixed 7-bit I2C address.
const Address = 0x2C

const (
	RegSystem byte = 0x00
	RegCH1    byte = 0x01
	RegGPLT   byte = 0x02
	RegXTL    byte = 0x03
	RegVGA    byte = 0x04
	RegCID1   byte = 0x05
	RegCID2   byte = 0x06
	RegStatus byte = 0x07
	RegRDSD0  byte = 0x08
	RegRDSD7  byte = 0x0F
	RegPAC    byte = 0x10
	RegFDEV   byte = 0x11
	RegRDS    byte = 0x12
	RegANT    byte = 0x1E
)

// SYSTEM bits.
const (
	SystemSoftReset   byte = 0x80
	SystemRecalibrate byte = 0x40
	SystemTxRequest   byte = 0x20
	SystemMono        byte = 0x10
	SystemMute        byte = 0x08
	SystemRDSReady    byte = 0x04
	systemChannelHigh byte = 0x03
)

// STATUS bits.
const (
	StatusRDSUpdate byte = 0x08
	StatusFSMMask   byte = 0x07
)

// FSM codes reported in STATUS.
const (
	FSMReset       byte = 0x00
	FSMCalibrating byte = 0x01
	FSMIdle        byte = 0x02
	FSMTxReset     byte = 0x03
	FSMPACalibrate byte = 0x04
	FSMTransmit    byte = 0x05
	FSMPAOff       byte = 0x06
)

const (
	gpltPreEmphasis75 byte = 0x80
	gpltPrivacy       byte = 0x40
	gpltAutoOffMask   byte = 0x30
	gpltAutoOff60s    byte = 0x20
	gpltAutoOffNever  byte = 0x30
	gpltPilotMask     byte = 0x0F

	xtlInjectMask  byte = 0xC0
	xtlCurrentMask byte = 0x3F

	vgaCrystal24MHz byte = 0x80
	vgaGainMask     byte = 0x70
	vgaDigitalMask  byte = 0x0C
	vgaImpedMask    byte = 0x03

	pacPeakClear  byte = 0x80
	pacTargetMask byte = 0x7F

	rdsEnable        byte = 0x80
	rdsDeviationMask byte = 0x7F
)

// ErrReadback means a register did not hold the value just written to it.
var ErrReadback = errors.New("register readback mismatch")

// Bus is register-level access to the chip.
type Bus interface {
	ReadReg(reg byte) (byte, error)
	WriteReg(reg, val byte) error
}

// Chip keeps a shadow copy of the writable registers so single fields can
// be changed without a read-modify-write on the bus.
type Chip struct {
	bus    Bus
	shadow map[byte]byte
}

func New(bus Bus) *Chip {
	c := &Chip{bus: bus}
	c.resetShadow()
	return c
}

// power-on register values
func (c *Chip) resetShadow() {
	c.shadow = map[byte]byte{
		RegSystem: 0x00,
		RegCH1:    0x00,
		RegGPLT:   gpltPreEmphasis75 | gpltAutoOff60s | 0x09,
		RegXTL:    0x10,
		RegVGA:    0xB2,
		RegPAC:    0x7F,
		RegFDEV:   0x81,
		RegRDS:    0x06,
	}
}

func (c *Chip) write(reg, val byte) error {
	c.shadow[reg] = val
	if err := c.bus.WriteReg(reg, val); err != nil {
		return fmt.Errorf("write register 0x%02X: %w", reg, err)
	}
	return nil
}

func (c *Chip) update(reg, mask, val byte) error {
	return c.write(reg, (c.shadow[reg]&^mask)|(val&mask))
}

func (c *Chip) read(reg byte) (byte, error) {
	v, err := c.bus.ReadReg(reg)
	if err != nil {
		return 0, fmt.Errorf("read register 0x%02X: %w", reg, err)
	}
	return v, nil
}

// Present reads the chip id registers. Any bus error means no chip.
func (c *Chip) Present() (cid1, cid2 byte, err error) {
	if cid1, err = c.read(RegCID1); err != nil {
		return 0, 0, err
	}
	if cid2, err = c.read(RegCID2); err != nil {
		return 0, 0, err
	}
	return cid1, cid2, nil
}

func (c *Chip) Reset() error {
	if err := c.bus.WriteReg(RegSystem, SystemSoftReset); err != nil {
		return fmt.Errorf("soft reset: %w", err)
	}
	c.resetShadow()
	return nil
}

func (c *Chip) Recalibrate() error {
	sys := c.shadow[RegSystem]
	if err := c.bus.WriteReg(RegSystem, sys|SystemRecalibrate); err != nil {
		return fmt.Errorf("recalibrate: %w", err)
	}
	return c.write(RegSystem, sys)
}

// SetClockSource selects the XINJ reference input, 0 for a crystal on
// XTAL1/XTAL2.
func (c *Chip) SetClockSource(src byte) error {
	return c.update(RegXTL, xtlInjectMask, src<<6)
}

// SetCrystal selects a 12 or 24 MHz reference.
func (c *Chip) SetCrystal(mhz int) error {
	var v byte
	if mhz == 24 {
		v = vgaCrystal24MHz
	}
	return c.update(RegVGA, vgaCrystal24MHz, v)
}

// SetCrystalCurrent sets the oscillator bias as a percentage of 400 µA in
// 6.25 µA steps.
func (c *Chip) SetCrystalCurrent(percent int) error {
	percent = max(0, min(100, percent))
	n := min(percent*64/100, int(xtlCurrentMask))
	return c.update(RegXTL, xtlCurrentMask, byte(n)) //nolint:gosec // bounded above
}

// SetFreqDeviation sets the total deviation in 0.58 kHz steps.
func (c *Chip) SetFreqDeviation(v byte) error {
	return c.write(RegFDEV, v)
}

// SetPilotDeviation sets the pilot tone level as a percentage of 75 kHz.
func (c *Chip) SetPilotDeviation(percent int) error {
	percent = max(7, min(10, percent))
	return c.update(RegGPLT, gpltPilotMask, byte(percent)) //nolint:gosec // bounded above
}

// SetTxPower sets the PA output target, 0.62*N+71 dBµV.
func (c *Chip) SetTxPower(level byte) error {
	return c.update(RegPAC, pacTargetMask, level)
}

func (c *Chip) ClearAudioPeak() error {
	return c.write(RegPAC, c.shadow[RegPAC]^pacPeakClear)
}

// SetFrequency tunes to tenths of a MHz, 76.0 to 108.0 MHz.
func (c *Chip) SetFrequency(tenths int) error {
	ch := ChannelFor(tenths)
	if err := c.update(RegSystem, systemChannelHigh, byte(ch>>8)); err != nil {
		return err
	}
	return c.write(RegCH1, byte(ch))
}

// ChannelFor converts tenths of a MHz to the chip's 50 kHz channel index.
func ChannelFor(tenths int) uint16 {
	tenths = max(760, min(1080, tenths))
	return uint16((tenths - 760) * 2) //nolint:gosec // bounded above
}

func (c *Chip) setSystemBit(bit byte, on bool) error {
	var v byte
	if on {
		v = bit
	}
	return c.update(RegSystem, bit, v)
}

func (c *Chip) SetCarrier(on bool) error {
	return c.setSystemBit(SystemTxRequest, on)
}

// Carrier reports the last carrier state written to the chip.
func (c *Chip) Carrier() bool {
	return c.shadow[RegSystem]&SystemTxRequest != 0
}

func (c *Chip) SetMono(mono bool) error {
	return c.setSystemBit(SystemMono, mono)
}

func (c *Chip) SetMute(mute bool) error {
	return c.setSystemBit(SystemMute, mute)
}

// SetPrivacy enables audio scrambling.
func (c *Chip) SetPrivacy(on bool) error {
	var v byte
	if on {
		v = gpltPrivacy
	}
	return c.update(RegGPLT, gpltPrivacy, v)
}

// SetPreEmphasis selects 75 µs when us75 is set, 50 µs otherwise.
func (c *Chip) SetPreEmphasis(us75 bool) error {
	var v byte
	if us75 {
		v = gpltPreEmphasis75
	}
	return c.update(RegGPLT, gpltPreEmphasis75, v)
}

// SetAutoOff shuts the PA down after 60 s without audio when enabled.
func (c *Chip) SetAutoOff(on bool) error {
	v := gpltAutoOffNever
	if on {
		v = gpltAutoOff60s
	}
	return c.update(RegGPLT, gpltAutoOffMask, v)
}

// SetInputGain sets the input buffer gain step, 0 to 5.
func (c *Chip) SetInputGain(n int) error {
	n = max(0, min(5, n))
	return c.update(RegVGA, vgaGainMask, byte(n)<<4) //nolint:gosec // bounded above
}

// SetDigitalGain sets the digital gain, 0 to 2 dB.
func (c *Chip) SetDigitalGain(n int) error {
	n = max(0, min(2, n))
	return c.update(RegVGA, vgaDigitalMask, byte(n)<<2) //nolint:gosec // bounded above
}

// SetImpedance sets the RIN index, 5 kΩ·2^n.
func (c *Chip) SetImpedance(index byte) error {
	return c.update(RegVGA, vgaImpedMask, index)
}

// SetRDSDeviation sets the RDS deviation in 0.35 kHz steps.
func (c *Chip) SetRDSDeviation(n byte) error {
	return c.update(RegRDS, rdsDeviationMask, n)
}

func (c *Chip) EnableRDS(on bool) error {
	var v byte
	if on {
		v = rdsEnable
	}
	return c.update(RegRDS, rdsEnable, v)
}

func (c *Chip) Status() (byte, error) {
	return c.read(RegStatus)
}

// FSM returns the state machine code from STATUS.
func (c *Chip) FSM() (byte, error) {
	st, err := c.Status()
	return st & StatusFSMMask, err
}

// Antenna reads the undocumented antenna matching register.
func (c *Chip) Antenna() (byte, error) {
	return c.read(RegANT)
}

// volatile bits never compared on readback
func verifyMask(reg byte) byte {
	switch reg {
	case RegSystem:
		return SystemTxRequest | SystemMono | SystemMute | systemChannelHigh
	case RegPAC:
		return pacTargetMask
	default:
		return 0xFF
	}
}

// Verify reads reg back and compares it with the last value written.
func (c *Chip) Verify(reg byte) error {
	got, err := c.read(reg)
	if err != nil {
		return err
	}
	mask := verifyMask(reg)
	if want := c.shadow[reg]; got&mask != want&mask {
		return fmt.Errorf("%w: register 0x%02X is 0x%02X, want 0x%02X", ErrReadback, reg, got, want)
	}
	return nil
}

// LoadGroup writes one RDS group into RDSD0-7 and toggles RDSRDY so the
// chip picks it up.
func (c *Chip) LoadGroup(g Group) error {
	for i, b := range g {
		if err := c.write(RegRDSD0+byte(i), b); err != nil { //nolint:gosec // group is 8 bytes
			return err
		}
	}
	return c.write(RegSystem, c.shadow[RegSystem]^SystemRDSReady)
}

// RDSToggle returns the RDS_UPD bit, which flips each time the chip has
// sent a group.
func (c *Chip) RDSToggle() (bool, error) {
	st, err := c.Status()
	return st&StatusRDSUpdate != 0, err
}
