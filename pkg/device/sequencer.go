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

package device

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/PixelRadioProject/pixelradio-core/pkg/device/qn8027"
	"github.com/PixelRadioProject/pixelradio-core/pkg/models"
	"github.com/PixelRadioProject/pixelradio-core/pkg/radio"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const (
	pollInterval = 5 * time.Millisecond

	calibrationAttempts = 3
	calibrationSettle   = 120 * time.Millisecond
	calibrationHigh     = 1080
	calibrationLow      = 850
	antennaMin          = 0x01
	antennaMax          = 0x1F

	crystalMHz          = 12
	crystalCurrentPct   = 30
	txDeviation         = 0x81
	pilotDeviationPct   = 9
	rdsDeviation        = 10
	rdsGroupBudget      = 100 * time.Millisecond
	carrierToggleBudget = 25 * time.Millisecond
)

type opClass int32

const (
	opNone opClass = iota
	opSettings
	opRDS
)

// Options tunes a Sequencer. Zero values pick the defaults.
type Options struct {
	Sleeper             Sleeper
	CalibrationAttempts int
}

// Sequencer owns the bus. It is driven from the service loop goroutine;
// State and Calibration may be read from anywhere.
type Sequencer struct {
	bus         Bus
	sleeper     Sleeper
	chip        *qn8027.Chip
	radio       *radio.State
	identity    models.Identity
	text        qn8027.TextEncoder
	attempts    int
	state       atomic.Int32
	calibration atomic.Int32
	inflight    atomic.Int32
}

func New(bus Bus, st *radio.State, opts Options) *Sequencer {
	if opts.Sleeper == nil {
		opts.Sleeper = clockwork.NewRealClock()
	}
	if opts.CalibrationAttempts <= 0 {
		opts.CalibrationAttempts = calibrationAttempts
	}
	return &Sequencer{
		bus:      bus,
		sleeper:  opts.Sleeper,
		chip:     qn8027.New(bus),
		radio:    st,
		attempts: opts.CalibrationAttempts,
	}
}

func (s *Sequencer) State() State {
	return State(s.state.Load())
}

func (s *Sequencer) Calibration() CalibrationResult {
	return CalibrationResult(s.calibration.Load())
}

func (s *Sequencer) setState(st State) {
	prev := State(s.state.Swap(int32(st)))
	if prev != st {
		log.Trace().Msgf("device state %s -> %s", prev, st)
	}
}

// OnAir reports whether the carrier is wanted on and the device works.
func (s *Sequencer) OnAir() bool {
	return s.radio.Settings().Carrier && s.State() != StateFaulted
}

func (s *Sequencer) Close() error {
	if err := s.bus.Close(); err != nil {
		return fmt.Errorf("close bus: %w", err)
	}
	return nil
}

func (s *Sequencer) fault() {
	s.setState(StateFaulted)
	s.calibration.Store(int32(CalibrationDeviceAbsent))
	s.radio.ForceCarrierOff()
}

// AwaitIdle waits for the chip to finish the register command in flight.
// It reads the current state as the baseline, waits 5 ms, then polls every
// 5 ms until the state is idle or transmitting, or differs from the
// baseline, or budget runs out.
func (s *Sequencer) AwaitIdle(budget time.Duration) (bool, error) {
	base, err := s.chip.FSM()
	if err != nil {
		return false, fmt.Errorf("read status: %w", err)
	}
	return s.settle(base, budget)
}

func (s *Sequencer) settle(base byte, budget time.Duration) (bool, error) {
	s.sleeper.Sleep(pollInterval)
	if budget <= pollInterval {
		return false, nil
	}
	polls := 1
	if budget >= 2*pollInterval {
		polls = int((budget - pollInterval) / pollInterval)
	}
	for range polls {
		s.sleeper.Sleep(pollInterval)
		code, err := s.chip.FSM()
		if err != nil {
			return false, fmt.Errorf("read status: %w", err)
		}
		switch {
		case code == qn8027.FSMIdle || code == qn8027.FSMTransmit:
			return true, nil
		case code != base:
			// one more read clears the transition
			if _, err := s.chip.Status(); err != nil {
				return true, fmt.Errorf("read status: %w", err)
			}
			return true, nil
		}
	}
	return false, nil
}

// step captures the baseline before write so a fast transition is not
// missed.
func (s *Sequencer) step(budget time.Duration, write func() error) error {
	base, err := s.chip.FSM()
	if err != nil {
		return fmt.Errorf("read status: %w", err)
	}
	if err := write(); err != nil {
		return err
	}
	if _, err := s.settle(base, budget); err != nil {
		return err
	}
	return nil
}

type initStep struct {
	fn     func() error
	name   string
	budget time.Duration
}

func (s *Sequencer) run(steps []initStep) error {
	for _, st := range steps {
		if err := s.step(st.budget, st.fn); err != nil {
			return fmt.Errorf("%s: %w", st.name, err)
		}
	}
	return nil
}

// Start brings the chip up from cold. It runs once; later calls do
// nothing. A missing chip leaves the sequencer faulted with the carrier
// forced off. Degraded calibration is reported but the chip is usable.
func (s *Sequencer) Start() error {
	if !s.state.CompareAndSwap(int32(StateUninitialized), int32(StateCalibrating)) {
		return nil
	}

	cid1, cid2, err := s.chip.Present()
	if err != nil {
		log.Error().Err(err).Msg("fm encoder not detected")
		s.fault()
		return fmt.Errorf("%w: %w", ErrDeviceAbsent, err)
	}
	log.Info().Msgf("fm encoder detected, cid1=0x%02X cid2=0x%02X", cid1, cid2)

	settings := s.radio.Settings()
	if err := s.coldInit(settings); err != nil {
		log.Error().Err(err).Msg("fm encoder init failed")
		s.fault()
		return fmt.Errorf("%w: %w", ErrDeviceAbsent, err)
	}

	s.radio.ClearAll()
	s.setState(StateIdle)
	log.Info().
		Str("frequency", radio.FrequencyString(settings.Frequency)).
		Bool("carrier", settings.Carrier).
		Str("calibration", s.Calibration().String()).
		Msg("fm encoder initialized")

	if s.Calibration() == CalibrationHighReflectedPower {
		return ErrCalibrationDegraded
	}
	return nil
}

func (s *Sequencer) coldInit(settings radio.Settings) error {
	c := s.chip
	err := s.run([]initStep{
		{name: "reset", budget: 30 * time.Millisecond, fn: c.Reset},
		{name: "clock source", budget: pollInterval, fn: func() error { return c.SetClockSource(0) }},
		{name: "crystal", budget: pollInterval, fn: func() error { return c.SetCrystal(crystalMHz) }},
		{
			name:   "crystal current",
			budget: pollInterval,
			fn:     func() error { return c.SetCrystalCurrent(crystalCurrentPct) },
		},
		{name: "deviation", budget: 10 * time.Millisecond, fn: func() error { return c.SetFreqDeviation(txDeviation) }},
		{name: "pilot", budget: 10 * time.Millisecond, fn: func() error { return c.SetPilotDeviation(pilotDeviationPct) }},
		{name: "rf power", budget: 25 * time.Millisecond, fn: func() error { return c.SetTxPower(settings.RFPower.Level()) }},
	})
	if err != nil {
		return err
	}

	result, err := s.calibrate()
	if err != nil {
		return fmt.Errorf("calibration: %w", err)
	}
	s.calibration.Store(int32(result))

	return s.run([]initStep{
		{
			name:   "pre-emphasis",
			budget: 10 * time.Millisecond,
			fn:     func() error { return c.SetPreEmphasis(settings.PreEmphasis == radio.PreEmphasisUSA) },
		},
		{name: "input gain", budget: 10 * time.Millisecond, fn: func() error { return c.SetInputGain(settings.AnalogGain) }},
		{
			name:   "digital gain",
			budget: 10 * time.Millisecond,
			fn:     func() error { return c.SetDigitalGain(settings.DigitalGain) },
		},
		{
			name:   "input impedance",
			budget: 10 * time.Millisecond,
			fn:     func() error { return c.SetImpedance(settings.Impedance.Index()) },
		},
		{name: "audio mode", budget: pollInterval, fn: func() error { return c.SetMono(!settings.Stereo) }},
		{name: "scrambling", budget: pollInterval, fn: func() error { return c.SetPrivacy(false) }},
		{name: "audio peak", budget: pollInterval, fn: c.ClearAudioPeak},
		{name: "mute", budget: pollInterval, fn: func() error { return c.SetMute(settings.Mute) }},
		{name: "auto-off", budget: 10 * time.Millisecond, fn: func() error { return c.SetAutoOff(settings.AutoOff) }},
		{name: "carrier", budget: 50 * time.Millisecond, fn: func() error { return c.SetCarrier(settings.Carrier) }},
		{name: "frequency", budget: 50 * time.Millisecond, fn: func() error { return c.SetFrequency(settings.Frequency) }},
		{name: "rds deviation", budget: pollInterval, fn: func() error { return c.SetRDSDeviation(rdsDeviation) }},
		{name: "rds enable", budget: 20 * time.Millisecond, fn: func() error { return c.EnableRDS(true) }},
	})
}

func antennaMatched(v byte) bool {
	return v > antennaMin && v < antennaMax
}

// calibrate probes the antenna match at both ends of the band. Poor
// readings are retried; running out of attempts is not fatal.
func (s *Sequencer) calibrate() (CalibrationResult, error) {
	for attempt := 1; attempt <= s.attempts; attempt++ {
		high, err := s.probeAntenna(calibrationHigh)
		if err != nil {
			return CalibrationPending, err
		}
		low, err := s.probeAntenna(calibrationLow)
		if err != nil {
			return CalibrationPending, err
		}
		log.Debug().Msgf("antenna match: high=0x%02X low=0x%02X", high, low)

		if antennaMatched(high) && antennaMatched(low) {
			log.Info().Int("attempt", attempt).Msg("antenna port matching ok")
			return CalibrationOK, s.step(calibrationSettle, s.chip.Recalibrate)
		}
		if attempt < s.attempts {
			log.Warn().Int("attempt", attempt).Msg("antenna port matching poor, retrying")
		}
	}
	log.Warn().Msg("antenna port matching poor, rf tuning range impaired")
	return CalibrationHighReflectedPower, s.step(calibrationSettle, s.chip.Recalibrate)
}

func (s *Sequencer) probeAntenna(tenths int) (byte, error) {
	c := s.chip
	err := s.run([]initStep{
		{name: "tune", budget: 50 * time.Millisecond, fn: func() error { return c.SetFrequency(tenths) }},
		{name: "carrier off", budget: 15 * time.Millisecond, fn: func() error { return c.SetCarrier(false) }},
		{name: "carrier on", budget: 50 * time.Millisecond, fn: func() error { return c.SetCarrier(true) }},
		{name: "recalibrate", budget: calibrationSettle, fn: c.Recalibrate},
	})
	if err != nil {
		return 0, err
	}
	v, err := c.Antenna()
	if err != nil {
		return 0, fmt.Errorf("read antenna: %w", err)
	}
	return v, nil
}

func (s *Sequencer) acquire(op opClass) bool {
	return s.inflight.CompareAndSwap(int32(opNone), int32(op))
}

func (s *Sequencer) release() {
	s.inflight.Store(int32(opNone))
}

// DrainSettings writes every pending setting in drain order. A setting is
// only marked clean once its register reads back as written; failures stay
// pending for the next call and do not stop the batch.
func (s *Sequencer) DrainSettings() error {
	switch s.State() {
	case StateFaulted, StateUninitialized, StateCalibrating:
		return nil
	}
	pending := s.radio.Pending()
	if len(pending) == 0 {
		return nil
	}
	if !s.acquire(opSettings) {
		return ErrBusy
	}
	defer s.release()

	settings := s.radio.Settings()
	var errs []error
	for _, setting := range pending {
		if err := s.apply(setting, settings); err != nil {
			log.Warn().Err(err).Str("setting", setting.String()).Msg("setting did not apply, will retry")
			errs = append(errs, fmt.Errorf("%w: %s: %w", ErrApplyFailed, setting, err))
			continue
		}
		s.radio.ClearDirty(setting)
		log.Debug().Str("setting", setting.String()).Msg("setting applied")
	}
	return errors.Join(errs...)
}

func (s *Sequencer) apply(setting radio.Setting, v radio.Settings) error {
	c := s.chip
	switch setting {
	case radio.SettingAnalogGain:
		return s.writeVerify(10*time.Millisecond, func() error { return c.SetInputGain(v.AnalogGain) }, qn8027.RegVGA)
	case radio.SettingImpedance:
		return s.writeVerify(10*time.Millisecond, func() error { return c.SetImpedance(v.Impedance.Index()) }, qn8027.RegVGA)
	case radio.SettingDigitalGain:
		return s.writeVerify(10*time.Millisecond, func() error { return c.SetDigitalGain(v.DigitalGain) }, qn8027.RegVGA)
	case radio.SettingFrequency:
		return s.withCarrierOff(func() error {
			return s.writeVerify(
				carrierToggleBudget,
				func() error { return c.SetFrequency(v.Frequency) },
				qn8027.RegCH1, qn8027.RegSystem,
			)
		})
	case radio.SettingAudioMode:
		return s.writeVerify(pollInterval, func() error { return c.SetMono(!v.Stereo) }, qn8027.RegSystem)
	case radio.SettingMute:
		return s.writeVerify(pollInterval, func() error { return c.SetMute(v.Mute) }, qn8027.RegSystem)
	case radio.SettingPreEmphasis:
		return s.withCarrierOff(func() error {
			return s.writeVerify(
				10*time.Millisecond,
				func() error { return c.SetPreEmphasis(v.PreEmphasis == radio.PreEmphasisUSA) },
				qn8027.RegGPLT,
			)
		})
	case radio.SettingRFPower:
		// the PA level latches on the next carrier off/on
		return s.withCarrierOff(func() error {
			return s.writeVerify(10*time.Millisecond, func() error { return c.SetTxPower(v.RFPower.Level()) }, qn8027.RegPAC)
		})
	case radio.SettingAutoOff:
		return s.withCarrierOff(func() error {
			return s.writeVerify(10*time.Millisecond, func() error { return c.SetAutoOff(v.AutoOff) }, qn8027.RegGPLT)
		})
	case radio.SettingCarrier:
		return s.writeVerify(carrierToggleBudget, func() error { return c.SetCarrier(v.Carrier) }, qn8027.RegSystem)
	default:
		return fmt.Errorf("unknown setting %d", setting)
	}
}

func (s *Sequencer) writeVerify(budget time.Duration, write func() error, regs ...byte) error {
	if err := s.step(budget, write); err != nil {
		return err
	}
	for _, reg := range regs {
		if err := s.chip.Verify(reg); err != nil {
			return fmt.Errorf("verify: %w", err)
		}
	}
	return nil
}

// withCarrierOff drops the carrier around fn and puts it back to what the
// chip had before, not to the desired carrier state.
func (s *Sequencer) withCarrierOff(fn func() error) error {
	was := s.chip.Carrier()
	if err := s.step(pollInterval, func() error { return s.chip.SetCarrier(false) }); err != nil {
		return err
	}
	ferr := fn()
	if err := s.step(carrierToggleBudget, func() error { return s.chip.SetCarrier(was) }); err != nil {
		return errors.Join(ferr, err)
	}
	return ferr
}

// SendIdentification sends the station name with PI and PTY.
func (s *Sequencer) SendIdentification(id models.Identity) error {
	s.identity = id
	return s.send(qn8027.StationNameGroups(id))
}

// SendText sends RadioText under the identity last sent.
func (s *Sequencer) SendText(text string) error {
	return s.send(s.text.Groups(s.identity, text))
}

func (s *Sequencer) send(groups []qn8027.Group) error {
	switch s.State() {
	case StateFaulted:
		return ErrDeviceAbsent
	case StateUninitialized, StateCalibrating:
		return ErrBusy
	}
	if !s.acquire(opRDS) {
		return ErrBusy
	}
	defer s.release()

	s.setState(StateTransmitting)
	defer s.setState(StateIdle)

	for _, g := range groups {
		before, err := s.chip.RDSToggle()
		if err != nil {
			return fmt.Errorf("read rds status: %w", err)
		}
		if err := s.chip.LoadGroup(g); err != nil {
			return fmt.Errorf("load rds group: %w", err)
		}
		if err := s.awaitGroupSent(before); err != nil {
			return err
		}
	}
	return nil
}

// awaitGroupSent polls RDS_UPD until it flips. A timeout is not an error;
// the next group simply replaces this one.
func (s *Sequencer) awaitGroupSent(before bool) error {
	for range int(rdsGroupBudget / pollInterval) {
		s.sleeper.Sleep(pollInterval)
		now, err := s.chip.RDSToggle()
		if err != nil {
			return fmt.Errorf("read rds status: %w", err)
		}
		if now != before {
			return nil
		}
	}
	log.Trace().Msg("rds group not acknowledged in time")
	return nil
}
