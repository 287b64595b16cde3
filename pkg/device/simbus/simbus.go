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

// Package simbus is an in-memory QN8027 register model. It backs the
// simulated encoder and the sequencer tests.
package simbus

import (
	"errors"
	"fmt"

	"github.com/PixelRadioProject/pixelradio-core/pkg/device/qn8027"
	"github.com/PixelRadioProject/pixelradio-core/pkg/helpers/syncutil"
)

var ErrNoDevice = errors.New("no device at address")

// Op is one recorded bus access.
type Op struct {
	Reg   byte
	Val   byte
	Write bool
}

// Bus simulates the chip's register file. STATUS returns scripted FSM
// codes (then FSMIdle), ANT returns scripted readings (then a good
// match), and every RDSRDY toggle captures the loaded group and flips
// RDS_UPD.
type Bus struct {
	regs        [0x20]byte
	stuck       map[byte]bool
	fsm         []byte
	antenna     []byte
	groups      []qn8027.Group
	ops         []Op
	failReads   map[byte]error
	mu          syncutil.Mutex
	limit       int
	rdsUpdate   bool
	absent      bool
	closed      bool
	antennaDflt byte
}

func New() *Bus {
	return &Bus{
		stuck:       make(map[byte]bool),
		failReads:   make(map[byte]error),
		antennaDflt: 0x10,
	}
}

// Absent makes every access fail like an unanswered address.
func (b *Bus) Absent() *Bus {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.absent = true
	return b
}

// Bounded keeps only the last n recorded accesses and groups, for
// long-running simulation.
func (b *Bus) Bounded(n int) *Bus {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.limit = n
	return b
}

func (b *Bus) record(op Op) {
	b.ops = append(b.ops, op)
	if b.limit > 0 && len(b.ops) > b.limit {
		b.ops = append(b.ops[:0], b.ops[len(b.ops)-b.limit:]...)
	}
}

// Stick makes writes to reg silently ignored, so readback fails.
func (b *Bus) Stick(reg byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stuck[reg] = true
}

func (b *Bus) Unstick(reg byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.stuck, reg)
}

// ScriptFSM queues FSM codes returned by successive STATUS reads.
func (b *Bus) ScriptFSM(codes ...byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fsm = append(b.fsm, codes...)
}

// ScriptAntenna queues ANT readings. Once exhausted, reads return the
// default.
func (b *Bus) ScriptAntenna(vals ...byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.antenna = append(b.antenna, vals...)
}

func (b *Bus) SetAntennaDefault(v byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.antennaDflt = v
}

func (b *Bus) FailReads(reg byte, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failReads[reg] = err
}

func (b *Bus) ReadReg(reg byte) (byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.absent || b.closed {
		return 0, ErrNoDevice
	}
	if err := b.failReads[reg]; err != nil {
		return 0, err
	}
	var v byte
	switch reg {
	case qn8027.RegStatus:
		code := qn8027.FSMIdle
		if len(b.fsm) > 0 {
			code = b.fsm[0]
			b.fsm = b.fsm[1:]
		}
		v = code
		if b.rdsUpdate {
			v |= qn8027.StatusRDSUpdate
		}
	case qn8027.RegANT:
		v = b.antennaDflt
		if len(b.antenna) > 0 {
			v = b.antenna[0]
			b.antenna = b.antenna[1:]
		}
	case qn8027.RegCID1:
		v = 0x00
	case qn8027.RegCID2:
		v = 0x44
	default:
		if int(reg) >= len(b.regs) {
			return 0, fmt.Errorf("register 0x%02X out of range", reg)
		}
		v = b.regs[reg]
	}
	b.record(Op{Reg: reg, Val: v})
	return v, nil
}

func (b *Bus) WriteReg(reg, val byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.absent || b.closed {
		return ErrNoDevice
	}
	if int(reg) >= len(b.regs) {
		return fmt.Errorf("register 0x%02X out of range", reg)
	}
	b.record(Op{Reg: reg, Val: val, Write: true})
	if b.stuck[reg] {
		return nil
	}
	if reg == qn8027.RegSystem && (b.regs[reg]^val)&qn8027.SystemRDSReady != 0 {
		var g qn8027.Group
		copy(g[:], b.regs[qn8027.RegRDSD0:qn8027.RegRDSD7+1])
		b.groups = append(b.groups, g)
		if b.limit > 0 && len(b.groups) > b.limit {
			b.groups = append(b.groups[:0], b.groups[len(b.groups)-b.limit:]...)
		}
		b.rdsUpdate = !b.rdsUpdate
	}
	b.regs[reg] = val
	return nil
}

func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// Reg returns the stored register value without recording an access.
func (b *Bus) Reg(reg byte) byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.regs[reg]
}

// Groups returns the RDS groups handed to the chip so far.
func (b *Bus) Groups() []qn8027.Group {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]qn8027.Group(nil), b.groups...)
}

func (b *Bus) ResetGroups() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.groups = nil
}

// Ops returns every recorded access in order.
func (b *Bus) Ops() []Op {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Op(nil), b.ops...)
}

// Writes returns recorded writes to reg, in order.
func (b *Bus) Writes(reg byte) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []byte
	for _, op := range b.ops {
		if op.Write && op.Reg == reg {
			out = append(out, op.Val)
		}
	}
	return out
}

// Reads counts recorded reads of reg.
func (b *Bus) Reads(reg byte) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, op := range b.ops {
		if !op.Write && op.Reg == reg {
			n++
		}
	}
	return n
}

func (b *Bus) ResetOps() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ops = nil
}
