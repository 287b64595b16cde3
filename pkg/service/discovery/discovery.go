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

// Package discovery advertises the HTTP controller over mDNS so phones and
// show controllers can find the transmitter without an IP address.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/PixelRadioProject/pixelradio-core/pkg/config"
	"github.com/PixelRadioProject/pixelradio-core/pkg/helpers/syncutil"
	"github.com/grandcat/zeroconf"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const (
	ServiceType     = "_pixelradio._tcp"
	DefaultInstance = "PixelRadio"

	retryInterval = 30 * time.Second
	retryFor      = 5 * time.Minute
)

var errNoInterfaces = errors.New("no multicast interfaces up")

var skipInterfacePrefixes = []string{"docker", "br-", "veth", "virbr", "lxc", "wg", "tun", "tap"}

// usableInterfaces keeps interfaces that are up, multicast-capable, not
// loopback, and not container or VPN bridges.
func usableInterfaces(all []net.Interface) []net.Interface {
	return slices.DeleteFunc(slices.Clone(all), func(iface net.Interface) bool {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			return true
		}
		if iface.Flags&net.FlagMulticast == 0 {
			return true
		}
		name := strings.ToLower(iface.Name)
		for _, p := range skipInterfacePrefixes {
			if strings.HasPrefix(name, p) {
				return true
			}
		}
		return false
	})
}

type registerFunc func(instance string, port int, txt []string, ifaces []net.Interface) (func(), error)

func zeroconfRegister(instance string, port int, txt []string, ifaces []net.Interface) (func(), error) {
	srv, err := zeroconf.Register(instance, ServiceType, "local.", port, txt, ifaces)
	if err != nil {
		return nil, fmt.Errorf("mdns register: %w", err)
	}
	return srv.Shutdown, nil
}

// Service owns one mDNS registration. If the network is not ready at boot
// it keeps retrying in the background for a few minutes.
type Service struct {
	cfg        *config.Instance
	clock      clockwork.Clock
	register   registerFunc
	interfaces func() ([]net.Interface, error)
	shutdown   func()
	cancel     context.CancelFunc
	instance   string
	mu         syncutil.Mutex
	stopped    bool
}

func New(cfg *config.Instance) *Service {
	return &Service{
		cfg:        cfg,
		clock:      clockwork.NewRealClock(),
		register:   zeroconfRegister,
		interfaces: net.Interfaces,
	}
}

func (s *Service) Start() {
	if !s.cfg.DiscoveryEnabled() {
		log.Info().Msg("mdns discovery disabled")
		return
	}
	s.instance = instanceName(s.cfg.DiscoveryInstanceName(), os.Hostname)

	err := s.advertise()
	if err == nil {
		return
	}
	log.Info().Err(err).Msgf("mdns not ready, retrying every %s", retryInterval)

	ctx, cancel := context.WithTimeout(context.Background(), retryFor)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	go s.retry(ctx)
}

func (s *Service) advertise() error {
	all, err := s.interfaces()
	if err != nil {
		return fmt.Errorf("list interfaces: %w", err)
	}
	ifaces := usableInterfaces(all)
	if len(ifaces) == 0 {
		return errNoInterfaces
	}

	port := s.cfg.HTTPPort()
	txt := []string{
		"id=" + s.cfg.DeviceID(),
		"version=" + config.AppVersion,
	}
	shutdown, err := s.register(s.instance, port, txt, ifaces)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		shutdown()
		return nil
	}
	s.shutdown = shutdown
	s.mu.Unlock()

	log.Info().Str("instance", s.instance).Int("port", port).Msg("mdns advertising started")
	return nil
}

func (s *Service) retry(ctx context.Context) {
	ticker := s.clock.NewTicker(retryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Warn().Msg("mdns registration gave up")
			return
		case <-ticker.Chan():
			if err := s.advertise(); err != nil {
				log.Debug().Err(err).Msg("mdns retry failed")
				continue
			}
			return
		}
	}
}

// Stop withdraws the advertisement. It is safe to call more than once.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.shutdown != nil {
		s.shutdown()
		s.shutdown = nil
	}
}

func (s *Service) InstanceName() string {
	return s.instance
}

// instanceName prefers the configured name, then the host name.
func instanceName(configured string, hostname func() (string, error)) string {
	if configured != "" {
		return configured
	}
	if h, err := hostname(); err == nil && h != "" {
		return h
	}
	return DefaultInstance
}
