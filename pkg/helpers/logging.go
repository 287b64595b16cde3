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

package helpers

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/PixelRadioProject/pixelradio-core/pkg/config"
	"github.com/PixelRadioProject/pixelradio-core/pkg/helpers/syncutil"
	"github.com/adrg/xdg"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Dirs are the directories the service reads from and writes to.
type Dirs struct {
	ConfigDir string
	LogDir    string
}

// DefaultDirs follows the XDG base directory layout.
func DefaultDirs() Dirs {
	return Dirs{
		ConfigDir: filepath.Join(xdg.ConfigHome, config.AppName),
		LogDir:    filepath.Join(xdg.StateHome, config.AppName),
	}
}

// EnsureDirectories creates the config and log directories.
func EnsureDirectories(dirs Dirs) error {
	for _, dir := range []string{dirs.ConfigDir, dirs.LogDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// InitLogging sends the global logger to a rotating file in logDir plus any
// extra writers, such as the console or the serial terminal.
func InitLogging(logDir string, writers []io.Writer) error {
	if err := os.MkdirAll(logDir, 0o750); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	logWriters := []io.Writer{&lumberjack.Logger{
		Filename:   filepath.Join(logDir, config.LogFile),
		MaxSize:    1,
		MaxBackups: 2,
	}}
	logWriters = append(logWriters, writers...)

	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	log.Logger = log.Output(io.MultiWriter(logWriters...)).
		With().Timestamp().Caller().Logger()

	return nil
}

// SetDebugLogging switches the global level between debug and info.
func SetDebugLogging(enabled bool) {
	if enabled {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

// SilenceableWriter drops writes while silenced. The serial terminal uses
// it so log=silent stops log lines without touching the log file. Writes
// are discarded until a writer is attached.
type SilenceableWriter struct {
	w      io.Writer
	mu     syncutil.Mutex
	silent atomic.Bool
}

func NewSilenceableWriter(w io.Writer) *SilenceableWriter {
	if w == nil {
		w = io.Discard
	}
	return &SilenceableWriter{w: w}
}

// Attach swaps the underlying writer. A nil writer detaches.
func (s *SilenceableWriter) Attach(w io.Writer) {
	if w == nil {
		w = io.Discard
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w = w
}

func (s *SilenceableWriter) Write(p []byte) (int, error) {
	if s.silent.Load() {
		return len(p), nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.w.Write(p)
	if err != nil {
		return n, fmt.Errorf("log write failed: %w", err)
	}
	return n, nil
}

func (s *SilenceableWriter) SetSilent(silent bool) {
	s.silent.Store(silent)
}

func (s *SilenceableWriter) Silent() bool {
	return s.silent.Load()
}
