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
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/PixelRadioProject/pixelradio-core/pkg/config"
	"github.com/PixelRadioProject/pixelradio-core/pkg/controllers"
	"github.com/PixelRadioProject/pixelradio-core/pkg/device"
	"github.com/PixelRadioProject/pixelradio-core/pkg/gpio"
	"github.com/PixelRadioProject/pixelradio-core/pkg/helpers"
	"github.com/PixelRadioProject/pixelradio-core/pkg/models"
	"github.com/PixelRadioProject/pixelradio-core/pkg/notifications"
	"github.com/PixelRadioProject/pixelradio-core/pkg/radio"
	"github.com/PixelRadioProject/pixelradio-core/pkg/scheduler"
	"github.com/PixelRadioProject/pixelradio-core/pkg/service/state"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// engine is the service loop. It is the only goroutine touching the
// registry, radio state, scheduler and sequencer.
type engine struct {
	clock       clockwork.Clock
	cfg         *config.Instance
	st          *state.State
	radio       *radio.State
	registry    *controllers.Registry
	seq         *device.Sequencer
	sched       *scheduler.Scheduler
	pins        *gpio.Bank
	onAirPin    int // 0 when no On Air sign is wired
	signLit     bool
	signSet     bool
	terminal    *helpers.SilenceableWriter
	invocations <-chan invocation
	reloads     <-chan struct{}
	// radio settings as last read from the config file
	fileRadio radio.Settings
}

// run ticks until ctx is cancelled or a reboot is requested.
func (e *engine) run(ctx context.Context) error {
	ticker := e.clock.NewTicker(scheduler.TickInterval)
	defer ticker.Stop()

	e.tick()
	for {
		select {
		case <-ctx.Done():
			return nil
		case inv := <-e.invocations:
			reply, err := e.apply(inv.in)
			e.publish()
			inv.reply <- result{reply: reply, err: err}
			if err == nil && inv.in.Command == models.CmdReboot {
				log.Info().Str("producer", inv.in.Producer.String()).Msg("reboot requested")
				return ErrRebootRequested
			}
		case <-e.reloads:
			e.reload()
		case <-ticker.Chan():
			e.tick()
		}
	}
}

func (e *engine) tick() {
	e.sched.Tick()

	before := e.radio.Pending()
	err := e.seq.DrainSettings()
	if err != nil && !errors.Is(err, device.ErrBusy) {
		log.Debug().Err(err).Msg("settings drain incomplete")
	}
	e.reportSettings(before, err)

	e.publish()
}

func (e *engine) reportSettings(before []radio.Setting, drainErr error) {
	if len(before) == 0 {
		return
	}
	after := e.radio.Pending()
	var params models.SettingsParams
	for _, s := range before {
		if !slices.Contains(after, s) {
			params.Applied = append(params.Applied, s.String())
		} else if drainErr != nil {
			params.Failed = append(params.Failed, s.String())
		}
	}
	if len(params.Applied) == 0 && len(params.Failed) == 0 {
		return
	}
	notifications.Settings(e.st.Notifications, params)
}

// updateSign drives the On Air sign pin when the carrier state changes.
func (e *engine) updateSign(onAir bool) {
	if e.onAirPin == 0 || (e.signSet && e.signLit == onAir) {
		return
	}
	if err := e.pins.Write(e.onAirPin, onAir); err != nil {
		log.Error().Err(err).Int("pin", e.onAirPin).Msg("failed to drive on air sign")
		return
	}
	e.signLit, e.signSet = onAir, true
	log.Debug().Bool("on_air", onAir).Msg("on air sign updated")
}

func (e *engine) publish() {
	onAir := e.seq.OnAir()
	e.updateSign(onAir)

	owner, id, text := e.registry.ActiveContent()
	status := e.registry.Status()
	e.st.SetSnapshot(models.StatusResponse{
		Active:      owner,
		Text:        text,
		StationName: id.StationName,
		Device:      e.seq.State().String(),
		Calibration: e.seq.Calibration().String(),
		Status:      fmt.Sprintf("0x%02X", status),
		Remaining:   remainingSeconds(e.sched.Remaining()),
		Frequency:   e.radio.Settings().Frequency,
		OnAir:       onAir,
	}, status)
}

func (e *engine) apply(in models.Instruction) (models.Reply, error) {
	reply := models.Reply{Command: string(in.Command), Capped: in.Capped}
	if in.Command.Class() == models.ClassSystem {
		return e.applySystem(in, reply)
	}

	out, err := e.registry.Apply(in)
	if err != nil {
		reply.Error = err.Error()
		return reply, fmt.Errorf("apply %s: %w", in.Command, err)
	}
	reply.OK = true
	reply.Changed = out.Changed
	return reply, nil
}

func (e *engine) applySystem(in models.Instruction, reply models.Reply) (models.Reply, error) {
	switch in.Command {
	case models.CmdGPIO:
		reply.Command = fmt.Sprintf("%s%d", models.CmdGPIO, in.Pin)
		level, err := e.applyGPIO(in)
		if err != nil {
			reply.Error = err.Error()
			return reply, err
		}
		reply.Level = &level
	case models.CmdReboot:
	case models.CmdInfo:
		reply.Info = &models.InfoResponse{
			Version:     config.AppVersion,
			Device:      e.seq.State().String(),
			Calibration: e.seq.Calibration().String(),
			Status:      fmt.Sprintf("0x%02X", e.registry.Status()),
			Frequency:   e.radio.Settings().Frequency,
		}
	case models.CmdLog:
		silent := in.LogAction == models.LogSilent
		if e.terminal != nil {
			e.terminal.SetSilent(silent)
		}
		log.Info().Bool("silent", silent).Msg("serial log output changed")
	default:
		err := fmt.Errorf("unhandled system command %q", in.Command)
		reply.Error = err.Error()
		return reply, err
	}
	reply.OK = true
	return reply, nil
}

func (e *engine) applyGPIO(in models.Instruction) (bool, error) {
	if in.GPIOAction == models.GPIORead {
		return e.pins.Read(in.Pin) //nolint:wrapcheck // bank errors name the pin
	}
	high := in.GPIOAction == models.GPIOOutHigh
	if err := e.pins.Write(in.Pin, high); err != nil {
		return false, err //nolint:wrapcheck // bank errors name the pin
	}
	return high, nil
}

// reload picks up an edited config file. Radio settings are only touched
// where the file itself changed, so values set by a controller since the
// last load survive an unrelated edit.
func (e *engine) reload() {
	e.registry.ReloadLocal(e.cfg.LocalConfig())
	for p, enabled := range e.cfg.ControllersConfig().Enabled {
		e.registry.SetEnabled(p, enabled)
	}

	next := e.cfg.RadioSettings()
	changed := applyRadioDiff(e.radio, e.fileRadio, next)
	e.fileRadio = next

	log.Info().Int("radio_changes", changed).Msg("config reloaded")
	e.publish()
}

func applyRadioDiff(st *radio.State, prev, next radio.Settings) int {
	var n int
	mark := func(changed bool) {
		if changed {
			n++
		}
	}
	if prev.AnalogGain != next.AnalogGain {
		mark(st.SetAnalogGain(next.AnalogGain))
	}
	if prev.Impedance != next.Impedance {
		mark(st.SetImpedance(next.Impedance))
	}
	if prev.DigitalGain != next.DigitalGain {
		mark(st.SetDigitalGain(next.DigitalGain))
	}
	if prev.Frequency != next.Frequency {
		mark(st.SetFrequency(next.Frequency))
	}
	if prev.Stereo != next.Stereo {
		mark(st.SetStereo(next.Stereo))
	}
	if prev.Mute != next.Mute {
		mark(st.SetMute(next.Mute))
	}
	if prev.PreEmphasis != next.PreEmphasis {
		mark(st.SetPreEmphasis(next.PreEmphasis))
	}
	if prev.RFPower != next.RFPower {
		mark(st.SetRFPower(next.RFPower))
	}
	if prev.AutoOff != next.AutoOff {
		mark(st.SetAutoOff(next.AutoOff))
	}
	if prev.Carrier != next.Carrier {
		mark(st.SetCarrier(next.Carrier))
	}
	return n
}
