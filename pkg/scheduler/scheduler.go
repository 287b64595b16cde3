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

// Package scheduler arbitrates which producer owns the RDS channel and
// paces station identification and RadioText sends.
package scheduler

import (
	"time"

	"github.com/PixelRadioProject/pixelradio-core/pkg/controllers"
	"github.com/PixelRadioProject/pixelradio-core/pkg/models"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const (
	UpdateInterval  = time.Second
	TextRefresh     = 5 * time.Second
	TickInterval    = 100 * time.Millisecond
	idleRestartWait = 500 * time.Millisecond
)

// Transmitter is the device side of the scheduler.
type Transmitter interface {
	OnAir() bool
	SendIdentification(id models.Identity) error
	SendText(text string) error
}

// Presenter is told about ownership changes and the display countdown.
type Presenter interface {
	Present(owner models.ProducerID, id models.Identity, text string)
	NoContent()
	Countdown(remaining time.Duration)
}

// Scheduler is driven by Tick from the service loop goroutine.
type Scheduler struct {
	clock      clockwork.Clock
	tx         Transmitter
	presenter  Presenter
	registry   *controllers.Registry
	lastUpdate time.Time
	windowEnd  time.Time
	lastText   time.Time
	idle       bool
	noContent  bool
	started    bool
}

func New(
	registry *controllers.Registry,
	tx Transmitter,
	presenter Presenter,
	clock clockwork.Clock,
) *Scheduler {
	return &Scheduler{
		registry:  registry,
		tx:        tx,
		presenter: presenter,
		clock:     clock,
	}
}

// Remaining is the time left in the current display window.
func (s *Scheduler) Remaining() time.Duration {
	if s.registry.Active() == models.ProducerNone {
		return 0
	}
	return max(0, s.windowEnd.Sub(s.clock.Now()))
}

// Tick runs the one-second update when it is due and checks the display
// window on every call.
func (s *Scheduler) Tick() {
	now := s.clock.Now()
	if !s.started || now.Sub(s.lastUpdate) >= UpdateInterval {
		s.started = true
		s.lastUpdate = now
		s.update(now)
	}
	s.checkExpiry(now)
}

func (s *Scheduler) live() bool {
	return s.tx.OnAir() && s.registry.AnyEnabled()
}

func (s *Scheduler) update(now time.Time) {
	if !s.live() {
		s.goIdle(now)
		return
	}
	s.idle = false

	s.handleStops(now)
	if s.preempt(now) {
		return
	}

	owner := s.registry.Active()
	if owner == models.ProducerNone || !now.Before(s.windowEnd) {
		return
	}
	s.refresh(now, owner)
}

// goIdle drops the owner and back-dates the window so the first message
// after the carrier returns starts within half a second.
func (s *Scheduler) goIdle(now time.Time) {
	s.windowEnd = now.Add(idleRestartWait - UpdateInterval)
	if s.idle {
		return
	}
	s.idle = true
	s.registry.ClearActive()
	s.presenter.Present(models.ProducerNone, models.Identity{}, "")
	s.presenter.Countdown(0)
	log.Info().Msg("rds idle, carrier off or no controller enabled")
}

func (s *Scheduler) handleStops(now time.Time) {
	for _, id := range models.RemoteProducers() {
		rec := s.registry.Record(id)
		if rec == nil || !rec.StopRequested {
			continue
		}
		rec.StopRequested = false
		if rec.Active {
			rec.Active = false
			s.windowEnd = now
			log.Info().Str("producer", id.String()).Msg("radiotext stopped")
			continue
		}
		rec.HasNewContent = false
		log.Debug().Str("producer", id.String()).Msg("pending radiotext dropped by stop")
	}
}

// preempt hands the channel to the highest ranked remote with new content
// that nothing above it is holding.
func (s *Scheduler) preempt(now time.Time) bool {
	for _, id := range models.RemoteProducers() {
		rec := s.registry.Record(id)
		if rec == nil || !rec.Enabled || !rec.HasNewContent || !s.registry.PriorityAvailable(id) {
			continue
		}
		rec.HasNewContent = false
		s.activate(now, id, rec.Identity(), rec.Text, rec.DisplayDuration)
		return true
	}
	return false
}

func (s *Scheduler) activate(
	now time.Time,
	owner models.ProducerID,
	id models.Identity,
	text string,
	window time.Duration,
) {
	prev := s.registry.Active()
	s.registry.SetActive(owner)
	s.windowEnd = now.Add(window)
	s.lastText = now
	s.noContent = false

	logger := log.With().Str("producer", owner.String()).Logger()
	if prev != owner && prev != models.ProducerNone {
		logger.Info().Str("previous", prev.String()).Msg("channel preempted")
	}
	logger.Info().Msgf("sending station name %q", id.StationName)
	if err := s.tx.SendIdentification(id); err != nil {
		logger.Warn().Err(err).Msg("failed to send station identification")
	}
	if text != "" {
		logger.Info().Msgf("sending radiotext %q", text)
		if err := s.tx.SendText(text); err != nil {
			logger.Warn().Err(err).Msg("failed to send radiotext")
		}
	}

	s.presenter.Present(owner, id, text)
	s.presenter.Countdown(window)
}

// refresh keeps the encoder primed while the window is open.
func (s *Scheduler) refresh(now time.Time, owner models.ProducerID) {
	_, id, text := s.registry.ActiveContent()
	if err := s.tx.SendIdentification(id); err != nil {
		log.Warn().Err(err).Str("producer", owner.String()).Msg("failed to refresh station identification")
	}
	if text != "" && now.Sub(s.lastText) >= TextRefresh {
		s.lastText = now
		log.Trace().Str("producer", owner.String()).Msgf("refreshing radiotext %q", text)
		if err := s.tx.SendText(text); err != nil {
			log.Warn().Err(err).Str("producer", owner.String()).Msg("failed to refresh radiotext")
		}
	}
	s.presenter.Countdown(s.windowEnd.Sub(now))
}

func (s *Scheduler) checkExpiry(now time.Time) {
	if !s.live() || now.Before(s.windowEnd) {
		return
	}

	if owner := s.registry.Active(); owner != models.ProducerNone {
		s.registry.ClearActive()
		log.Info().Str("producer", owner.String()).Msg("radiotext display time ended")
	}
	if s.registry.RemotePending() {
		return
	}

	if _, ok := s.registry.NextLocalSlot(); !ok {
		s.registry.ResetLocalCursor()
		if !s.noContent {
			s.noContent = true
			s.presenter.NoContent()
			s.presenter.Countdown(0)
			log.Warn().Msg("no radiotext available, nothing sent")
		}
		return
	}

	local := s.registry.Local()
	s.activate(now, models.ProducerLocal, local.Identity(), local.CurrentText(), local.DisplayDuration)
}
