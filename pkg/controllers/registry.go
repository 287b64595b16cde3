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

// Package controllers keeps per-producer RDS records and answers the
// priority and availability questions the scheduler asks every tick.
package controllers

import (
	"errors"
	"fmt"
	"time"

	"github.com/PixelRadioProject/pixelradio-core/pkg/models"
	"github.com/PixelRadioProject/pixelradio-core/pkg/radio"
	"github.com/rs/zerolog/log"
)

var (
	ErrNotRegistryInstruction = errors.New("instruction is not handled by the registry")
	ErrNoRecord               = errors.New("producer has no record")
)

// Config seeds the registry at boot.
type Config struct {
	Enabled map[models.ProducerID]bool
	Local   LocalConfig
}

// Outcome reports whether an applied instruction changed anything.
type Outcome struct {
	Changed bool
}

// Registry owns every producer record. It is used only from the service
// loop goroutine.
type Registry struct {
	radio   *radio.State
	records map[models.ProducerID]*Record
	local   Local
}

// NewRegistry builds remote records that start out mirroring the local
// station identity.
func NewRegistry(cfg Config, st *radio.State) *Registry {
	r := &Registry{
		radio:   st,
		records: make(map[models.ProducerID]*Record),
		local:   Local{LocalConfig: cfg.Local},
	}
	for _, id := range models.RemoteProducers() {
		r.records[id] = &Record{
			ID:              id,
			Enabled:         cfg.Enabled[id],
			StationName:     cfg.Local.StationName,
			PICode:          cfg.Local.PICode,
			PTYCode:         cfg.Local.PTYCode,
			DisplayDuration: cfg.Local.DisplayDuration,
		}
	}
	return r
}

// Record returns the remote producer's record, or nil for Local.
func (r *Registry) Record(p models.ProducerID) *Record {
	return r.records[p]
}

func (r *Registry) Local() *Local {
	return &r.local
}

// Apply routes a validated instruction. Setting-class instructions mark
// radio state dirty; record-class ones update the producer's record.
func (r *Registry) Apply(in models.Instruction) (Outcome, error) {
	switch in.Command.Class() {
	case models.ClassSetting:
		return r.applySetting(in), nil
	case models.ClassRecord:
		return r.applyRecord(in)
	default:
		return Outcome{}, ErrNotRegistryInstruction
	}
}

func (r *Registry) applySetting(in models.Instruction) Outcome {
	var changed bool
	switch in.Command {
	case models.CmdAudioMode:
		changed = r.radio.SetStereo(in.Enabled)
	case models.CmdFrequency:
		changed = r.radio.SetFrequency(in.Number)
	case models.CmdMute:
		changed = r.radio.SetMute(in.Enabled)
	case models.CmdCarrier:
		changed = r.radio.SetCarrier(in.Enabled)
	}
	log.Debug().
		Str("producer", in.Producer.String()).
		Str("command", string(in.Command)).
		Bool("changed", changed).
		Msg("setting applied")
	return Outcome{Changed: changed}
}

func (r *Registry) applyRecord(in models.Instruction) (Outcome, error) {
	rec := r.records[in.Producer]
	if rec == nil {
		return Outcome{}, fmt.Errorf("%w: %s", ErrNoRecord, in.Producer)
	}

	logger := log.With().Str("producer", in.Producer.String()).Logger()

	switch in.Command {
	case models.CmdText:
		rec.Text = in.Text
		rec.HasNewContent = true
		logger.Info().Msgf("radiotext set: %q", in.Text)
		return Outcome{Changed: true}, nil
	case models.CmdStationName:
		if rec.StationName == in.Text {
			return Outcome{}, nil
		}
		rec.StationName = in.Text
		rec.HasNewContent = true
		logger.Info().Msgf("station name set: %q", in.Text)
	case models.CmdPICode:
		pi := uint16(in.Number) //nolint:gosec // range checked by the validator
		if in.UseDefault {
			pi = r.local.PICode
		}
		if rec.PICode == pi {
			logger.Info().Msgf("pi code unchanged: 0x%04X", pi)
			return Outcome{}, nil
		}
		rec.PICode = pi
		rec.HasNewContent = true
		logger.Info().Msgf("pi code set: 0x%04X", pi)
	case models.CmdPTYCode:
		pty := uint8(in.Number) //nolint:gosec // range checked by the validator
		if rec.PTYCode == pty {
			logger.Info().Msgf("pty code unchanged: %d", pty)
			return Outcome{}, nil
		}
		rec.PTYCode = pty
		rec.HasNewContent = true
		logger.Info().Msgf("pty code set: %d", pty)
	case models.CmdDisplayPeriod:
		d := time.Duration(in.Number) * time.Second
		if in.Capped {
			logger.Warn().Msgf("display period capped to %s", d)
		}
		if rec.DisplayDuration == d {
			return Outcome{}, nil
		}
		rec.DisplayDuration = d
		logger.Info().Msgf("display period set: %s", d)
	case models.CmdStart:
		if rec.Text == "" {
			logger.Info().Msg("start ignored, no radiotext")
			return Outcome{}, nil
		}
		rec.HasNewContent = true
		rec.StopRequested = false
		logger.Info().Msg("rds restarted")
	case models.CmdStop:
		rec.StopRequested = true
		logger.Info().Msg("rds stop requested")
	default:
		return Outcome{}, ErrNotRegistryInstruction
	}
	return Outcome{Changed: true}, nil
}

func (r *Registry) isActive(p models.ProducerID) bool {
	if p == models.ProducerLocal {
		return r.local.Active
	}
	if rec := r.records[p]; rec != nil {
		return rec.Active
	}
	return false
}

// PriorityAvailable reports whether no strictly higher ranked producer owns
// the channel. The top-ranked producer is always available.
func (r *Registry) PriorityAvailable(p models.ProducerID) bool {
	rank := p.Rank()
	for _, pr := range models.Priorities {
		if pr.Rank > rank && r.isActive(pr.ID) {
			return false
		}
	}
	return true
}

// Active returns the channel owner, or ProducerNone.
func (r *Registry) Active() models.ProducerID {
	for _, pr := range models.Priorities {
		if r.isActive(pr.ID) {
			return pr.ID
		}
	}
	return models.ProducerNone
}

// SetActive makes p the only owner.
func (r *Registry) SetActive(p models.ProducerID) {
	r.ClearActive()
	if p == models.ProducerLocal {
		r.local.Active = true
		return
	}
	if rec := r.records[p]; rec != nil {
		rec.Active = true
	}
}

func (r *Registry) ClearActive() {
	r.local.Active = false
	for _, rec := range r.records {
		rec.Active = false
	}
}

// RemotePending reports whether any enabled remote has unconsumed content.
func (r *Registry) RemotePending() bool {
	for _, id := range models.RemoteProducers() {
		rec := r.records[id]
		if rec.Enabled && rec.HasNewContent {
			return true
		}
	}
	return false
}

// LocalAvailable reports whether the local schedule has anything to send.
func (r *Registry) LocalAvailable() bool {
	if !r.local.Enabled {
		return false
	}
	for i := range r.local.Slots {
		if r.local.usable(i) {
			return true
		}
	}
	return false
}

func (r *Registry) AnyTextAvailable() bool {
	return r.RemotePending() || r.LocalAvailable()
}

// AnyEnabled reports whether at least one producer may send content.
func (r *Registry) AnyEnabled() bool {
	if r.local.Enabled {
		return true
	}
	for _, rec := range r.records {
		if rec.Enabled {
			return true
		}
	}
	return false
}

// NextLocalSlot picks the next usable slot after the last one handed out,
// wrapping around. It returns false when every slot is disabled or empty.
func (r *Registry) NextLocalSlot() (int, bool) {
	for i := range LocalSlotCount {
		idx := (r.local.cursor + i) % LocalSlotCount
		if r.local.usable(idx) {
			r.local.current = idx
			r.local.cursor = (idx + 1) % LocalSlotCount
			return idx, true
		}
	}
	return 0, false
}

func (r *Registry) ResetLocalCursor() {
	r.local.cursor = 0
}

// ReloadLocal swaps in a new local schedule, keeping ownership as is.
func (r *Registry) ReloadLocal(cfg LocalConfig) {
	r.local.LocalConfig = cfg
	if r.local.cursor >= LocalSlotCount {
		r.local.cursor = 0
	}
}

// SetEnabled toggles a remote controller.
func (r *Registry) SetEnabled(p models.ProducerID, enabled bool) {
	if rec := r.records[p]; rec != nil {
		rec.Enabled = enabled
	}
}

// ActiveContent returns what the owner is sending.
func (r *Registry) ActiveContent() (models.ProducerID, models.Identity, string) {
	owner := r.Active()
	switch owner {
	case models.ProducerNone:
		return owner, models.Identity{}, ""
	case models.ProducerLocal:
		return owner, r.local.Identity(), r.local.CurrentText()
	default:
		rec := r.records[owner]
		return owner, rec.Identity(), rec.Text
	}
}

// Status packs the controller bitfield:
//
//	D7 serial enabled   D3 serial sending
//	D6 mqtt enabled     D2 mqtt sending
//	D5 http enabled     D1 http sending
//	D4 local available  D0 local sending
func (r *Registry) Status() uint8 {
	var status uint8
	if r.records[models.ProducerSerial].Enabled {
		status |= 0x80
	}
	if r.records[models.ProducerMQTT].Enabled {
		status |= 0x40
	}
	if r.records[models.ProducerHTTP].Enabled {
		status |= 0x20
	}
	if r.LocalAvailable() {
		status |= 0x10
	}
	if r.records[models.ProducerSerial].Active {
		status |= 0x08
	}
	if r.records[models.ProducerMQTT].Active {
		status |= 0x04
	}
	if r.records[models.ProducerHTTP].Active {
		status |= 0x02
	}
	if r.local.Active {
		status |= 0x01
	}
	return status
}
