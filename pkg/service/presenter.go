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
	"math"
	"time"

	"github.com/PixelRadioProject/pixelradio-core/pkg/models"
	"github.com/PixelRadioProject/pixelradio-core/pkg/notifications"
)

// presenter turns scheduler events into notifications. The countdown is
// only sent when the whole-second value changes.
type presenter struct {
	ns       chan<- models.Notification
	lastSecs int
}

func newPresenter(ns chan<- models.Notification) *presenter {
	return &presenter{ns: ns, lastSecs: -1}
}

func (p *presenter) Present(owner models.ProducerID, id models.Identity, text string) {
	notifications.Active(p.ns, models.ActiveParams{
		Producer:    owner,
		Text:        text,
		StationName: id.StationName,
	})
}

func (p *presenter) NoContent() {
	notifications.Active(p.ns, models.ActiveParams{
		Producer:  models.ProducerNone,
		NoContent: true,
	})
}

func (p *presenter) Countdown(remaining time.Duration) {
	secs := remainingSeconds(remaining)
	if secs == p.lastSecs {
		return
	}
	p.lastSecs = secs
	notifications.Countdown(p.ns, models.CountdownParams{RemainingSeconds: secs})
}

func remainingSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}
