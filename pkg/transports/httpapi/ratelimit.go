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

package httpapi

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/PixelRadioProject/pixelradio-core/pkg/helpers/syncutil"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	clientIdleExpiry = 10 * time.Minute
	sweepInterval    = 5 * time.Minute
)

type bucket struct {
	tokens *rate.Limiter
	seen   time.Time
}

// ClientLimiter keeps a token bucket per client address. Buckets idle for
// longer than clientIdleExpiry are swept.
type ClientLimiter struct {
	clock   clockwork.Clock
	buckets map[string]*bucket
	every   rate.Limit
	burst   int
	mu      syncutil.Mutex
}

func NewClientLimiter(clock clockwork.Clock, perSecond, burst int) *ClientLimiter {
	return &ClientLimiter{
		clock:   clock,
		buckets: make(map[string]*bucket),
		every:   rate.Limit(perSecond),
		burst:   burst,
	}
}

// Allow spends one token from addr's bucket.
func (cl *ClientLimiter) Allow(addr string) bool {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	now := cl.clock.Now()
	b, ok := cl.buckets[addr]
	if !ok {
		b = &bucket{tokens: rate.NewLimiter(cl.every, cl.burst)}
		cl.buckets[addr] = b
	}
	b.seen = now
	return b.tokens.AllowN(now, 1)
}

func (cl *ClientLimiter) Clients() int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return len(cl.buckets)
}

func (cl *ClientLimiter) sweep() {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	cutoff := cl.clock.Now().Add(-clientIdleExpiry)
	for addr, b := range cl.buckets {
		if b.seen.Before(cutoff) {
			delete(cl.buckets, addr)
			log.Debug().Str("addr", addr).Msg("dropped idle http client bucket")
		}
	}
}

// Sweep drops idle buckets every sweepInterval until ctx is done.
func (cl *ClientLimiter) Sweep(ctx context.Context) {
	ticker := cl.clock.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			cl.sweep()
		}
	}
}

// Middleware answers 429 once the client's bucket is empty.
func (cl *ClientLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		addr := clientAddr(r.RemoteAddr)
		if !cl.Allow(addr) {
			log.Warn().Str("addr", addr).Str("path", r.URL.Path).Msg("http rate limit exceeded")
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientAddr strips the port from a RemoteAddr.
func clientAddr(remote string) string {
	host, _, err := net.SplitHostPort(remote)
	if err != nil {
		return remote
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.String()
	}
	return host
}
