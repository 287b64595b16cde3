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

package state

import (
	"context"
	"sync/atomic"

	"github.com/PixelRadioProject/pixelradio-core/pkg/helpers/syncutil"
	"github.com/PixelRadioProject/pixelradio-core/pkg/models"
	"github.com/PixelRadioProject/pixelradio-core/pkg/notifications"
)

// State is the runtime state shared between the service loop and the
// transports. The loop is the only writer.
//
// LOCKING RULES: mu protects snapshot and the stop flags. Never send
// notifications while holding it: lock, copy, unlock, then send.
type State struct {
	ctx           context.Context
	ctxCancelFunc context.CancelFunc
	Notifications chan<- models.Notification
	snapshot      models.StatusResponse
	status        atomic.Uint32
	mu            syncutil.RWMutex
	stopService   bool
	reboot        bool
}

func NewState() (state *State, notificationCh <-chan models.Notification) {
	ns := make(chan models.Notification, 100)
	ctx, ctxCancelFunc := context.WithCancel(context.Background())
	return &State{
		Notifications: ns,
		ctx:           ctx,
		ctxCancelFunc: ctxCancelFunc,
	}, ns
}

func (s *State) GetContext() context.Context {
	return s.ctx
}

func (s *State) StopService() {
	s.mu.Lock()
	s.stopService = true
	s.mu.Unlock()
	s.ctxCancelFunc()
}

func (s *State) ShouldStopService() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stopService
}

// RequestReboot stops the service and marks the exit as a restart.
func (s *State) RequestReboot() {
	s.mu.Lock()
	s.reboot = true
	s.mu.Unlock()
	s.StopService()
}

func (s *State) RebootRequested() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reboot
}

// Status is the controller bitfield. It never takes the lock.
func (s *State) Status() uint8 {
	return uint8(s.status.Load()) //nolint:gosec // stored from a uint8
}

func (s *State) Snapshot() models.StatusResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// SetSnapshot stores the latest status. A change in device state or
// calibration is announced.
func (s *State) SetSnapshot(snap models.StatusResponse, status uint8) {
	s.status.Store(uint32(status))

	s.mu.Lock()
	prev := s.snapshot
	s.snapshot = snap
	s.mu.Unlock()

	if prev.Device != snap.Device || prev.Calibration != snap.Calibration || prev.OnAir != snap.OnAir {
		notifications.Device(s.Notifications, models.DeviceParams{
			State:       snap.Device,
			Calibration: snap.Calibration,
			OnAir:       snap.OnAir,
		})
	}
}
