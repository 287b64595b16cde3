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

// Package serialcli is the line-oriented command terminal on the serial
// port. It also carries the service log, which log=silent turns off.
package serialcli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/PixelRadioProject/pixelradio-core/pkg/commands"
	"github.com/PixelRadioProject/pixelradio-core/pkg/config"
	"github.com/PixelRadioProject/pixelradio-core/pkg/helpers"
	"github.com/PixelRadioProject/pixelradio-core/pkg/helpers/syncutil"
	"github.com/PixelRadioProject/pixelradio-core/pkg/models"
	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
)

const (
	readTimeout = 100 * time.Millisecond
	maxLineLen  = 256
	helpCommand = "help"
)

var ErrNoPort = errors.New("no serial port found")

// preferredPorts are tried in order when no port is configured.
var preferredPorts = []string{"/dev/serial0", "/dev/ttyAMA0", "/dev/ttyS0", "/dev/ttyUSB", "/dev/ttyACM"}

// Core is the part of the service the terminal drives.
type Core interface {
	Submit(ctx context.Context, p models.ProducerID, command, payload string) (models.Reply, error)
}

// SerialPort is the subset of serial.Port used here.
type SerialPort interface {
	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)
	Close() error
	SetReadTimeout(t time.Duration) error
}

type SerialPortFactory func(path string, mode *serial.Mode) (SerialPort, error)

func DefaultSerialPortFactory(path string, mode *serial.Mode) (SerialPort, error) {
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port: %w", err)
	}
	return port, nil
}

type Terminal struct {
	core        Core
	terminal    *helpers.SilenceableWriter
	portFactory SerialPortFactory
	listPorts   func() ([]string, error)
	path        string
	baudRate    int
}

func New(cfg config.SerialController, core Core, terminal *helpers.SilenceableWriter) *Terminal {
	baud := cfg.BaudRate
	if baud == 0 {
		baud = config.DefaultBaudRate
	}
	return &Terminal{
		core:        core,
		terminal:    terminal,
		portFactory: DefaultSerialPortFactory,
		listPorts:   serial.GetPortsList,
		path:        cfg.Port,
		baudRate:    baud,
	}
}

func (*Terminal) Name() string {
	return "serial"
}

func choosePort(ports []string) string {
	for _, prefix := range preferredPorts {
		for _, p := range ports {
			if strings.HasPrefix(p, prefix) {
				return p
			}
		}
	}
	return ""
}

func (t *Terminal) resolvePath() (string, error) {
	if t.path != "" {
		return t.path, nil
	}
	ports, err := t.listPorts()
	if err != nil {
		return "", fmt.Errorf("failed to list serial ports: %w", err)
	}
	path := choosePort(ports)
	if path == "" {
		return "", ErrNoPort
	}
	log.Info().Msgf("auto-detected serial terminal port: %s", path)
	return path, nil
}

// Run opens the port and serves commands until ctx is done or the port
// fails.
func (t *Terminal) Run(ctx context.Context) error {
	path, err := t.resolvePath()
	if err != nil {
		return err
	}

	port, err := t.portFactory(path, &serial.Mode{BaudRate: t.baudRate})
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", path, err)
	}
	defer func() {
		if err := port.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close serial port")
		}
	}()
	if err := port.SetReadTimeout(readTimeout); err != nil {
		return fmt.Errorf("failed to set read timeout on serial port: %w", err)
	}

	out := &lockedWriter{w: port}
	if t.terminal != nil {
		t.terminal.Attach(out)
		defer t.terminal.Attach(nil)
	}
	log.Info().Msgf("serial terminal on %s at %d baud", path, t.baudRate)

	return t.serve(ctx, port, out)
}

// serve reads CR or LF terminated lines. A read returning no bytes is the
// read timeout expiring, which gives ctx a chance to end the loop.
func (t *Terminal) serve(ctx context.Context, in io.Reader, out io.Writer) error {
	var line []byte
	buf := make([]byte, 256)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		n, err := in.Read(buf)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to read from serial port: %w", err)
		}

		for _, b := range buf[:n] {
			if b != '\r' && b != '\n' {
				if len(line) < maxLineLen {
					line = append(line, b)
				}
				continue
			}
			if len(line) > 0 {
				t.handleLine(ctx, string(line), out)
				line = line[:0]
			}
		}
	}
}

func (t *Terminal) handleLine(ctx context.Context, line string, out io.Writer) {
	cmd, payload, _ := strings.Cut(strings.TrimSpace(line), "=")
	cmd = strings.ToLower(strings.TrimSpace(cmd))
	if cmd == "" {
		return
	}

	if cmd == helpCommand {
		writeLine(out, helpText())
		return
	}

	reply, err := t.core.Submit(ctx, models.ProducerSerial, cmd, payload)
	if err != nil {
		log.Warn().Err(err).Msgf("serial command failed: %s", cmd)
	}
	data, mErr := renderReply(cmd, reply, err)
	if mErr != nil {
		log.Error().Err(mErr).Msg("failed to marshal serial reply")
		return
	}
	writeLine(out, string(data))
}

// renderReply produces {"<cmd>":"ok"} or {"<cmd>":"fail"}, plus the pin
// level for gpio reads and the system block for info.
func renderReply(cmd string, reply models.Reply, err error) ([]byte, error) {
	body := map[string]any{}
	if err != nil || !reply.OK {
		body[cmd] = "fail"
		if reply.Error != "" {
			body["error"] = reply.Error
		}
	} else {
		body[cmd] = "ok"
	}
	if reply.Capped {
		body["capped"] = true
	}
	if reply.Level != nil {
		level := 0
		if *reply.Level {
			level = 1
		}
		body["level"] = level
	}
	if reply.Info != nil {
		body["system"] = reply.Info
	}
	data, mErr := json.Marshal(body)
	if mErr != nil {
		return nil, fmt.Errorf("marshal reply: %w", mErr)
	}
	return data, nil
}

func helpText() string {
	var sb strings.Builder
	sb.WriteString("commands:")
	for _, s := range commands.Catalog {
		fmt.Fprintf(&sb, "\r\n  %-32s %s", s.Usage, s.Help)
	}
	return sb.String()
}

func writeLine(out io.Writer, s string) {
	if _, err := io.WriteString(out, s+"\r\n"); err != nil {
		log.Debug().Err(err).Msg("failed to write to serial port")
	}
}

// lockedWriter keeps log lines and replies from interleaving on the port.
type lockedWriter struct {
	w  io.Writer
	mu syncutil.Mutex
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	n, err := l.w.Write(p)
	if err != nil {
		return n, fmt.Errorf("serial write: %w", err)
	}
	return n, nil
}
