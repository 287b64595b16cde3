//go:build linux

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

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/PixelRadioProject/pixelradio-core/pkg/config"
	"github.com/PixelRadioProject/pixelradio-core/pkg/helpers"
	"github.com/PixelRadioProject/pixelradio-core/pkg/service"
	"github.com/PixelRadioProject/pixelradio-core/pkg/service/broker"
	"github.com/PixelRadioProject/pixelradio-core/pkg/transports/httpapi"
	"github.com/PixelRadioProject/pixelradio-core/pkg/transports/mqtt"
	"github.com/PixelRadioProject/pixelradio-core/pkg/transports/serialcli"
	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"
)

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	dirs := helpers.DefaultDirs()
	configDir := flag.String("config", dirs.ConfigDir, "directory holding config.toml")
	logDir := flag.String("logs", dirs.LogDir, "directory for the rotating log file")
	quiet := flag.Bool("quiet", false, "do not log to stderr")
	debug := flag.Bool("debug", false, "enable debug logging")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		_, _ = fmt.Println(config.AppVersion)
		return nil
	}

	dirs = helpers.Dirs{ConfigDir: *configDir, LogDir: *logDir}
	if err := helpers.EnsureDirectories(dirs); err != nil {
		return fmt.Errorf("error creating directories: %w", err)
	}

	terminal := helpers.NewSilenceableWriter(nil)
	writers := []io.Writer{terminal}
	if !*quiet {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr})
	}
	if err := helpers.InitLogging(dirs.LogDir, writers); err != nil {
		return fmt.Errorf("error initializing logging: %w", err)
	}

	cfg, err := config.NewConfig(dirs.ConfigDir, config.BaseDefaults)
	if err != nil {
		log.Error().Err(err).Msg("error loading config")
		return fmt.Errorf("error loading config: %w", err)
	}
	helpers.SetDebugLogging(*debug || cfg.DebugLogging())

	defer func() {
		if err := recover(); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Panic: %s\n", err)
			log.Fatal().Msgf("panic: %v", err)
		}
	}()

	svc, err := service.Start(cfg, service.Options{
		Terminal: terminal,
		Transports: func(core *service.Core, notifications *broker.Broker) []service.Transport {
			ts := []service.Transport{
				serialcli.New(cfg.SerialController(), core, terminal),
				httpapi.New(cfg, core, notifications),
			}
			if mc := cfg.MQTTController(); mc.Enabled {
				ts = append(ts, mqtt.New(mc, core))
			}
			return ts
		},
	})
	if err != nil {
		log.Error().Msgf("error starting service: %s", err)
		return fmt.Errorf("error starting service: %w", err)
	}

	notifySystemd(daemon.SdNotifyReady)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	select {
	case sig := <-sigs:
		log.Info().Msgf("received %s, stopping", sig)
		notifySystemd(daemon.SdNotifyStopping)
		svc.Stop()
		return nil
	case <-svc.Done():
	}

	if errors.Is(svc.Err(), service.ErrRebootRequested) {
		return restart()
	}
	return nil
}

// notifySystemd is a no-op when not running under systemd.
func notifySystemd(state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		log.Warn().Err(err).Msg("systemd notify failed")
		return
	}
	if sent {
		log.Debug().Msgf("systemd notified: %s", state)
	}
}

// restart replaces the process with a fresh copy of itself.
func restart() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("error locating executable: %w", err)
	}
	log.Info().Msgf("restarting %s", exe)
	if err := unix.Exec(exe, os.Args, os.Environ()); err != nil {
		return fmt.Errorf("error restarting: %w", err)
	}
	return nil
}
