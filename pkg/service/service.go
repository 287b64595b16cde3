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

// Package service wires the engine together: it opens the encoder bus,
// starts the transports and runs the loop that owns arbitration.
package service

import (
	"context"
	"errors"

	"github.com/PixelRadioProject/pixelradio-core/pkg/commands"
	"github.com/PixelRadioProject/pixelradio-core/pkg/config"
	"github.com/PixelRadioProject/pixelradio-core/pkg/controllers"
	"github.com/PixelRadioProject/pixelradio-core/pkg/device"
	"github.com/PixelRadioProject/pixelradio-core/pkg/device/i2cbus"
	"github.com/PixelRadioProject/pixelradio-core/pkg/device/simbus"
	"github.com/PixelRadioProject/pixelradio-core/pkg/gpio"
	"github.com/PixelRadioProject/pixelradio-core/pkg/helpers"
	"github.com/PixelRadioProject/pixelradio-core/pkg/radio"
	"github.com/PixelRadioProject/pixelradio-core/pkg/scheduler"
	"github.com/PixelRadioProject/pixelradio-core/pkg/service/broker"
	"github.com/PixelRadioProject/pixelradio-core/pkg/service/discovery"
	"github.com/PixelRadioProject/pixelradio-core/pkg/service/publishers"
	"github.com/PixelRadioProject/pixelradio-core/pkg/service/state"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ErrRebootRequested is the exit reason after a reboot command.
var ErrRebootRequested = errors.New("reboot requested")

const (
	simulatedBusHistory = 512
	subscriberBuffer    = 100
)

// Transport is an inbound command surface. Run blocks until ctx is done.
type Transport interface {
	Name() string
	Run(ctx context.Context) error
}

type Options struct {
	// Bus overrides the configured encoder bus.
	Bus device.Bus
	// GPIO overrides the configured pin driver.
	GPIO    gpio.Driver
	Sleeper device.Sleeper
	Clock   clockwork.Clock
	// Terminal is the serial console log writer silenced by log=silent.
	Terminal   *helpers.SilenceableWriter
	Transports func(core *Core, notifications *broker.Broker) []Transport
}

type Service struct {
	core *Core
	st   *state.State
	done chan struct{}
	err  error
}

func openBus(cfg *config.Instance, override device.Bus) device.Bus {
	if override != nil {
		return override
	}
	d := cfg.Device()
	if d.Simulate {
		log.Info().Msg("using simulated fm encoder")
		return simbus.New().Bounded(simulatedBusHistory)
	}
	bus, err := i2cbus.Open(d.I2CBus, d.Address)
	if err != nil {
		log.Error().Err(err).Msg("i2c bus unavailable, continuing without fm encoder")
		return simbus.New().Absent()
	}
	return bus
}

func openPins(cfg *config.Instance, override gpio.Driver) *gpio.Bank {
	driver := override
	if driver == nil && !cfg.GPIOSimulated() {
		pd, err := gpio.NewPeriphDriver()
		if err != nil {
			log.Warn().Err(err).Msg("gpio unavailable, pins are simulated")
		} else {
			driver = pd
		}
	}
	if driver == nil {
		driver = gpio.NewMemoryDriver()
	}

	bank := gpio.NewBank(driver, cfg.GPIOModes())
	if err := bank.Init(); err != nil {
		log.Error().Err(err).Msg("failed to apply gpio boot modes")
	}
	return bank
}

func startPublishers(cfg *config.Instance, b *broker.Broker) []*publishers.MQTTPublisher {
	active := make([]*publishers.MQTTPublisher, 0)
	for _, pc := range cfg.MQTTPublishers() {
		if !pc.IsEnabled() {
			continue
		}
		log.Info().Msgf("starting mqtt publisher: %s (topic: %s)", pc.Broker, pc.Topic)
		ns, id := b.Subscribe(subscriberBuffer)
		pub := publishers.NewMQTTPublisher(pc)
		if err := pub.Start(ns); err != nil {
			log.Error().Err(err).Msgf("failed to start mqtt publisher for %s", pc.Broker)
			b.Unsubscribe(id)
			continue
		}
		active = append(active, pub)
	}
	if len(active) > 0 {
		log.Info().Msgf("started %d mqtt publisher(s)", len(active))
	}
	return active
}

// Start brings the encoder up and runs the service loop in the background.
// A missing encoder is not an error: the service runs with the carrier off
// and reports the device as absent.
func Start(cfg *config.Instance, opts Options) (*Service, error) {
	log.Info().Msgf("version: %s", config.AppVersion)
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	st, ns := state.NewState()
	ctx := st.GetContext()

	notifBroker := broker.NewBroker(ctx, ns)
	notifBroker.Start()

	fileRadio := cfg.RadioSettings()
	rs := radio.NewState(fileRadio)
	seq := device.New(openBus(cfg, opts.Bus), rs, device.Options{Sleeper: opts.Sleeper})

	log.Info().Msg("starting fm encoder")
	switch err := seq.Start(); {
	case err == nil:
	case errors.Is(err, device.ErrCalibrationDegraded):
		log.Warn().Err(err).Msg("antenna calibration degraded, check the antenna")
	default:
		log.Error().Err(err).Msg("fm encoder unavailable, rds disabled")
	}

	pins := openPins(cfg, opts.GPIO)
	registry := controllers.NewRegistry(cfg.ControllersConfig(), rs)
	sched := scheduler.New(registry, seq, newPresenter(st.Notifications), opts.Clock)
	// the sign pin is not user writable
	userModes := pins.Modes()
	if sign := cfg.OnAirPin(); sign != 0 {
		delete(userModes, sign)
	}
	core := newCore(commands.NewValidator(userModes), st)

	reloads := make(chan struct{}, 1)
	e := &engine{
		clock:       opts.Clock,
		cfg:         cfg,
		st:          st,
		radio:       rs,
		registry:    registry,
		seq:         seq,
		sched:       sched,
		pins:        pins,
		onAirPin:    cfg.OnAirPin(),
		terminal:    opts.Terminal,
		invocations: core.invocations,
		reloads:     reloads,
		fileRadio:   fileRadio,
	}

	log.Info().Msg("starting publishers")
	activePublishers := startPublishers(cfg, notifBroker)

	log.Info().Msg("starting mdns discovery")
	discoveryService := discovery.New(cfg)
	discoveryService.Start()

	go func() {
		err := cfg.Watch(ctx, func() {
			select {
			case reloads <- struct{}{}:
			default:
			}
		})
		if err != nil {
			log.Warn().Err(err).Msg("config hot reload disabled")
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	if opts.Transports != nil {
		for _, t := range opts.Transports(core, notifBroker) {
			log.Info().Msgf("starting %s transport", t.Name())
			g.Go(func() error {
				if err := t.Run(gctx); err != nil {
					log.Error().Err(err).Msgf("%s transport stopped", t.Name())
				}
				return nil
			})
		}
	}

	svc := &Service{
		core: core,
		st:   st,
		done: make(chan struct{}),
	}

	go func() {
		err := e.run(ctx)
		if errors.Is(err, ErrRebootRequested) {
			svc.err = err
			st.RequestReboot()
		} else {
			st.StopService()
		}
		log.Info().Msg("service loop stopped, running cleanup")

		_ = g.Wait()
		discoveryService.Stop()
		for _, pub := range activePublishers {
			pub.Stop()
		}
		<-notifBroker.Done()
		if closeErr := seq.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("error closing fm encoder bus")
		}

		log.Info().Msg("service cleanup completed")
		close(svc.done)
	}()

	return svc, nil
}

func (s *Service) Core() *Core {
	return s.core
}

// Stop cancels the loop and waits for cleanup.
func (s *Service) Stop() {
	s.st.StopService()
	<-s.done
}

func (s *Service) Done() <-chan struct{} {
	return s.done
}

// Err is the exit reason once Done is closed: ErrRebootRequested or nil.
func (s *Service) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}
