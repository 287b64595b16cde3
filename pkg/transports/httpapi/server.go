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

// Package httpapi serves GET /cmd?<command>=<payload>, a JSON status
// snapshot and a websocket stream of notifications.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/PixelRadioProject/pixelradio-core/pkg/commands"
	"github.com/PixelRadioProject/pixelradio-core/pkg/config"
	"github.com/PixelRadioProject/pixelradio-core/pkg/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jonboulle/clockwork"
	"github.com/olahol/melody"
	"github.com/rs/zerolog/log"
)

const (
	requestTimeout    = 5 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 2 * time.Second
	subscriberBuffer  = 100
)

var defaultOrigins = []string{"https://*", "http://*"}

type Core interface {
	Submit(ctx context.Context, p models.ProducerID, command, payload string) (models.Reply, error)
	Snapshot() models.StatusResponse
}

// Subscriber is the notification broker.
type Subscriber interface {
	Subscribe(size int) (ch <-chan models.Notification, id int)
	Unsubscribe(id int)
}

// notification is a JSON-RPC 2.0 notification frame.
type notification struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type Server struct {
	core          Core
	notifications Subscriber
	limiter       *ClientLimiter
	ws            *melody.Melody
	listen        string
	origins       []string
}

func New(cfg *config.Instance, core Core, notifications Subscriber) *Server {
	limit, burst := cfg.HTTPRateLimit()
	origins := cfg.HTTPController().AllowedOrigins
	if len(origins) == 0 {
		origins = defaultOrigins
	}

	ws := melody.New()
	ws.Upgrader.CheckOrigin = func(*http.Request) bool { return true }

	return &Server{
		core:          core,
		notifications: notifications,
		limiter:       NewClientLimiter(clockwork.NewRealClock(), limit, burst),
		ws:            ws,
		listen:        cfg.HTTPListen(),
		origins:       origins,
	}
}

func (*Server) Name() string {
	return "http"
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.NoCache)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET"},
		AllowedHeaders: []string{"Accept"},
	}))

	r.Group(func(r chi.Router) {
		r.Use(s.limiter.Middleware)
		r.With(middleware.Timeout(requestTimeout)).Get("/cmd", s.handleCommand)
		r.With(middleware.Timeout(requestTimeout)).Get("/status", s.handleStatus)
		r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
			if err := s.ws.HandleRequest(w, r); err != nil {
				log.Error().Err(err).Msg("handling websocket request")
			}
		})
	})

	return r
}

// Run serves until ctx is done, then closes websocket sessions and shuts
// the server down.
func (s *Server) Run(ctx context.Context) error {
	ns, id := s.notifications.Subscribe(subscriberBuffer)
	defer s.notifications.Unsubscribe(id)
	go s.broadcast(ns)

	go s.limiter.Sweep(ctx)

	srv := &http.Server{
		Addr:              s.listen,
		Handler:           s.Router(),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	log.Info().Msgf("http api listening on %s", s.listen)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.ws.Close(); err != nil {
		log.Debug().Err(err).Msg("closing websocket sessions")
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}

// broadcast forwards notifications to every websocket session until ns
// is closed.
func (s *Server) broadcast(ns <-chan models.Notification) {
	for n := range ns {
		data, err := json.Marshal(notification{JSONRPC: "2.0", Method: n.Method, Params: n.Params})
		if err != nil {
			log.Error().Err(err).Msg("marshalling notification")
			continue
		}
		if err := s.ws.Broadcast(data); err != nil && !errors.Is(err, melody.ErrClosed) {
			log.Error().Err(err).Msg("broadcasting notification")
		}
	}
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if len(query) != 1 {
		writeJSON(w, http.StatusBadRequest, models.Reply{Error: "expected exactly one command"})
		return
	}

	var cmd, payload string
	for k, v := range query {
		cmd = k
		if len(v) > 0 {
			payload = v[0]
		}
	}

	reply, err := s.core.Submit(r.Context(), models.ProducerHTTP, cmd, payload)
	status := http.StatusOK
	switch {
	case errors.Is(err, commands.ErrValidation):
		status = http.StatusBadRequest
	case err != nil:
		log.Warn().Err(err).Msgf("http command %s failed", cmd)
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, reply)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.core.Snapshot())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("writing json response")
	}
}
