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

// Package broker fans notifications out from the service loop to every
// interested consumer. Sends never block: a full subscriber misses the
// notification.
package broker

import (
	"context"

	"github.com/PixelRadioProject/pixelradio-core/pkg/helpers/syncutil"
	"github.com/PixelRadioProject/pixelradio-core/pkg/models"
	"github.com/rs/zerolog/log"
)

type Broker struct {
	ctx    context.Context
	source <-chan models.Notification
	subs   map[int]chan models.Notification
	done   chan struct{}
	mu     syncutil.RWMutex
	nextID int
	closed bool
}

func NewBroker(ctx context.Context, source <-chan models.Notification) *Broker {
	return &Broker{
		ctx:    ctx,
		source: source,
		subs:   make(map[int]chan models.Notification),
		done:   make(chan struct{}),
	}
}

// Start runs the fan-out until the source closes or the context ends, then
// closes every subscriber channel.
func (b *Broker) Start() {
	go func() {
		defer close(b.done)
		defer b.closeAll()
		for {
			select {
			case <-b.ctx.Done():
				return
			case n, ok := <-b.source:
				if !ok {
					return
				}
				b.publish(n)
			}
		}
	}()
}

// Done is closed once the fan-out goroutine has exited.
func (b *Broker) Done() <-chan struct{} {
	return b.done
}

func (b *Broker) publish(n models.Notification) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, ch := range b.subs {
		select {
		case ch <- n:
		default:
			log.Warn().Int("subscriber", id).Str("method", n.Method).
				Msg("subscriber full, dropping notification")
		}
	}
}

// Subscribe returns a buffered channel of notifications and its id. After
// shutdown the returned channel is already closed.
func (b *Broker) Subscribe(size int) (ch <-chan models.Notification, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c := make(chan models.Notification, size)
	id = b.nextID
	b.nextID++
	if b.closed {
		close(c)
		return c, id
	}
	b.subs[id] = c
	log.Debug().Int("subscriber", id).Int("size", size).Msg("subscriber added")
	return c, id
}

// Unsubscribe closes and forgets a subscription. Unknown ids are ignored.
func (b *Broker) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if c, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(c)
	}
}

func (b *Broker) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, c := range b.subs {
		close(c)
		delete(b.subs, id)
	}
	b.closed = true
}
