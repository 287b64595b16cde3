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

// Package config loads, validates and persists the TOML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/PixelRadioProject/pixelradio-core/pkg/helpers/syncutil"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

const (
	SchemaVersion = 1
	CfgEnv        = "PIXELRADIO_CFG"
)

var (
	ErrSchemaMismatch = errors.New("schema version mismatch")
	ErrInvalidConfig  = errors.New("invalid config")
	ErrNoPath         = errors.New("config path not set")
)

type Values struct {
	RDS          RDS         `toml:"rds"`
	Service      Service     `toml:"service,omitempty"`
	Radio        Radio       `toml:"radio"`
	GPIO         GPIO        `toml:"gpio,omitempty"`
	Device       Device      `toml:"device,omitempty"`
	Controllers  Controllers `toml:"controllers"`
	ConfigSchema int         `toml:"config_schema"`
	DebugLogging bool        `toml:"debug_logging"`
}

var BaseDefaults = Values{
	ConfigSchema: SchemaVersion,
	Radio:        defaultRadio(),
	RDS:          defaultRDS(),
	Controllers: Controllers{
		Serial: SerialController{Enabled: true, BaudRate: DefaultBaudRate},
		MQTT:   MQTTController{Name: DefaultMQTTName},
		HTTP:   HTTPController{Enabled: true},
	},
}

// Instance is the live configuration. Getters copy out of vals under mu.
type Instance struct {
	fs       afero.Fs
	validate *validator.Validate
	cfgPath  string
	authPath string
	vals     Values
	defaults Values
	mu       syncutil.RWMutex
}

var authCfg atomic.Value

func GetAuthCfg() Auth {
	if auth, ok := authCfg.Load().(Auth); ok {
		return auth
	}
	return Auth{}
}

// NewConfig loads the config from configDir on the OS filesystem, writing
// defaults first if the file does not exist.
//
//nolint:gocritic // defaults copied by value
func NewConfig(configDir string, defaults Values) (*Instance, error) {
	return NewConfigWithFs(afero.NewOsFs(), configDir, defaults)
}

//nolint:gocritic // defaults copied by value
func NewConfigWithFs(fs afero.Fs, configDir string, defaults Values) (*Instance, error) {
	path := configPath(configDir)
	cfg := &Instance{
		fs:       fs,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		cfgPath:  path,
		authPath: filepath.Join(filepath.Dir(path), AuthFile),
		vals:     defaults,
		defaults: defaults,
	}

	if err := cfg.ensureFile(); err != nil {
		return nil, err
	}
	if err := cfg.Load(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// configPath prefers PIXELRADIO_CFG over configDir.
func configPath(configDir string) string {
	if p := os.Getenv(CfgEnv); p != "" {
		log.Debug().Msgf("config path from %s: %s", CfgEnv, p)
		return p
	}
	return filepath.Join(configDir, CfgFile)
}

func (c *Instance) ensureFile() error {
	found, err := afero.Exists(c.fs, c.cfgPath)
	if err != nil {
		return fmt.Errorf("failed to stat config file: %w", err)
	}
	if found {
		return nil
	}
	log.Info().Msgf("no config at %s, writing defaults", c.cfgPath)
	if err := c.fs.MkdirAll(filepath.Dir(c.cfgPath), 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return c.Save()
}

func (c *Instance) Path() string {
	return c.cfgPath
}

// decode overlays data on the defaults. The local messages are replaced as
// a whole rather than merged slot by slot.
func (c *Instance) decode(data []byte) (Values, error) {
	vals := c.defaults
	vals.RDS.Messages = nil
	if err := toml.Unmarshal(data, &vals); err != nil {
		return Values{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if len(vals.RDS.Messages) == 0 {
		vals.RDS.Messages = append([]RDSMessage(nil), c.defaults.RDS.Messages...)
	}

	if vals.ConfigSchema != SchemaVersion {
		log.Error().Msgf("config schema %d, expected %d", vals.ConfigSchema, SchemaVersion)
		return Values{}, ErrSchemaMismatch
	}
	if err := c.validate.Struct(vals); err != nil {
		return Values{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return vals, nil
}

// Load rereads the config and auth files. A file that fails to parse or
// validate leaves the current values untouched.
func (c *Instance) Load() error {
	if c.cfgPath == "" {
		return ErrNoPath
	}

	data, err := afero.ReadFile(c.fs, c.cfgPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	vals, err := c.decode(data)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.vals = vals
	c.mu.Unlock()

	return c.loadAuth()
}

func (c *Instance) loadAuth() error {
	found, _ := afero.Exists(c.fs, c.authPath)
	if !found {
		return nil
	}
	data, err := afero.ReadFile(c.fs, c.authPath)
	if err != nil {
		return fmt.Errorf("failed to read auth file: %w", err)
	}
	auth := LoadAuthFromData(data)
	authCfg.Store(auth)
	log.Info().Msgf("auth file has %d credential entries", len(auth.Creds))
	return nil
}

// Save writes the current values, assigning a device id on first save.
func (c *Instance) Save() error {
	if c.cfgPath == "" {
		return ErrNoPath
	}

	c.mu.Lock()
	c.vals.ConfigSchema = SchemaVersion
	if c.vals.Service.DeviceID == "" {
		c.vals.Service.DeviceID = uuid.New().String()
		log.Info().Msgf("assigned device id %s", c.vals.Service.DeviceID)
	}
	data, err := toml.Marshal(&c.vals)
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := afero.WriteFile(c.fs, c.cfgPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (c *Instance) DebugLogging() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.DebugLogging
}

func (c *Instance) SetDebugLogging(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.DebugLogging = enabled
}
