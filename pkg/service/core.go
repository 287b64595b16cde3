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

package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/PixelRadioProject/pixelradio-core/pkg/commands"
	"github.com/PixelRadioProject/pixelradio-core/pkg/models"
	"github.com/PixelRadioProject/pixelradio-core/pkg/service/state"
	"github.com/rs/zerolog/log"
)

var ErrStopped = errors.New("service stopped")

type result struct {
	err   error
	reply models.Reply
}

// invocation is one validated instruction waiting for the loop goroutine.
type invocation struct {
	reply chan result
	in    models.Instruction
}

// Core is the inbound surface shared by every transport. Validation runs
// on the caller's goroutine; the instruction is then applied by the service
// loop and the reply handed back.
type Core struct {
	validator   *commands.Validator
	st          *state.State
	invocations chan invocation
	hostInfo    func() hostDetails
}

func newCore(validator *commands.Validator, st *state.State) *Core {
	return &Core{
		validator:   validator,
		st:          st,
		invocations: make(chan invocation),
		hostInfo:    readHostDetails,
	}
}

// Submit validates and applies one command. Validation failures return a
// reply carrying the error text along with the error itself.
func (c *Core) Submit(
	ctx context.Context,
	producer models.ProducerID,
	command, payload string,
) (models.Reply, error) {
	name := strings.ToLower(strings.TrimSpace(command))
	in, err := c.validator.Validate(command, payload, producer)
	if err != nil {
		log.Debug().Err(err).Str("producer", producer.String()).Msg("command rejected")
		return models.Reply{Command: name, Error: err.Error()}, err
	}

	inv := invocation{in: in, reply: make(chan result, 1)}
	select {
	case c.invocations <- inv:
	case <-ctx.Done():
		return models.Reply{Command: name, Error: ctx.Err().Error()}, fmt.Errorf("submit %s: %w", name, ctx.Err())
	case <-c.st.GetContext().Done():
		return models.Reply{Command: name, Error: ErrStopped.Error()}, ErrStopped
	}

	var res result
	select {
	case res = <-inv.reply:
	case <-ctx.Done():
		return models.Reply{Command: name, Error: ctx.Err().Error()}, fmt.Errorf("await %s: %w", name, ctx.Err())
	}

	if res.reply.Info != nil {
		host := c.hostInfo()
		res.reply.Info.Hostname = host.Hostname
		res.reply.Info.Platform = host.Platform
		res.reply.Info.Uptime = host.UptimeSeconds
	}
	return res.reply, res.err
}

// GetStatus returns the controller bitfield without blocking.
func (c *Core) GetStatus() uint8 {
	return c.st.Status()
}

func (c *Core) Snapshot() models.StatusResponse {
	return c.st.Snapshot()
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

func (c *Core) SetAudioMode(ctx context.Context, p models.ProducerID, stereo bool) (models.Reply, error) {
	mode := "mono"
	if stereo {
		mode = "stereo"
	}
	return c.Submit(ctx, p, string(models.CmdAudioMode), mode)
}

// SetFrequency takes tenths of MHz, 881 for 88.1.
func (c *Core) SetFrequency(ctx context.Context, p models.ProducerID, tenths int) (models.Reply, error) {
	return c.Submit(ctx, p, string(models.CmdFrequency), strconv.Itoa(tenths))
}

func (c *Core) SetMute(ctx context.Context, p models.ProducerID, mute bool) (models.Reply, error) {
	return c.Submit(ctx, p, string(models.CmdMute), onOff(mute))
}

// SetPICode accepts hex with or without 0x. An empty code restores the
// configured default.
func (c *Core) SetPICode(ctx context.Context, p models.ProducerID, code string) (models.Reply, error) {
	return c.Submit(ctx, p, string(models.CmdPICode), code)
}

func (c *Core) SetPTYCode(ctx context.Context, p models.ProducerID, code int) (models.Reply, error) {
	return c.Submit(ctx, p, string(models.CmdPTYCode), strconv.Itoa(code))
}

func (c *Core) SetStationName(ctx context.Context, p models.ProducerID, name string) (models.Reply, error) {
	return c.Submit(ctx, p, string(models.CmdStationName), name)
}

func (c *Core) SetText(ctx context.Context, p models.ProducerID, text string) (models.Reply, error) {
	return c.Submit(ctx, p, string(models.CmdText), text)
}

func (c *Core) SetDisplayPeriod(ctx context.Context, p models.ProducerID, seconds int) (models.Reply, error) {
	return c.Submit(ctx, p, string(models.CmdDisplayPeriod), strconv.Itoa(seconds))
}

func (c *Core) StartRDS(ctx context.Context, p models.ProducerID) (models.Reply, error) {
	return c.Submit(ctx, p, string(models.CmdStart), "rds")
}

func (c *Core) StopRDS(ctx context.Context, p models.ProducerID) (models.Reply, error) {
	return c.Submit(ctx, p, string(models.CmdStop), "rds")
}

// SetGPIO reads or drives one whitelisted pin. action is read, outhigh or
// outlow.
func (c *Core) SetGPIO(ctx context.Context, p models.ProducerID, pin int, action string) (models.Reply, error) {
	return c.Submit(ctx, p, string(models.CmdGPIO)+strconv.Itoa(pin), action)
}

func (c *Core) SetCarrier(ctx context.Context, p models.ProducerID, on bool) (models.Reply, error) {
	return c.Submit(ctx, p, string(models.CmdCarrier), onOff(on))
}

func (c *Core) Reboot(ctx context.Context, p models.ProducerID) (models.Reply, error) {
	return c.Submit(ctx, p, string(models.CmdReboot), "system")
}

func (c *Core) Info(ctx context.Context, p models.ProducerID) (models.Reply, error) {
	return c.Submit(ctx, p, string(models.CmdInfo), "system")
}

// SetLogLevel silences or restores log output on the serial terminal.
func (c *Core) SetLogLevel(ctx context.Context, p models.ProducerID, silent bool) (models.Reply, error) {
	action := "restore"
	if silent {
		action = "silent"
	}
	return c.Submit(ctx, p, string(models.CmdLog), action)
}
