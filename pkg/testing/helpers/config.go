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

// Package helpers builds test fixtures shared across packages.
package helpers

import (
	"path/filepath"
	"testing"

	"github.com/PixelRadioProject/pixelradio-core/pkg/config"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

const TestConfigDir = "/etc/pixelradio"

// NewTestConfig returns a config backed by an in-memory filesystem. A
// non-empty body is written as config.toml before loading.
func NewTestConfig(t *testing.T, body string) (*config.Instance, afero.Fs) {
	t.Helper()

	fs := afero.NewMemMapFs()
	if body != "" {
		require.NoError(t, fs.MkdirAll(TestConfigDir, 0o750))
		path := filepath.Join(TestConfigDir, config.CfgFile)
		require.NoError(t, afero.WriteFile(fs, path, []byte(body), 0o600))
	}

	cfg, err := config.NewConfigWithFs(fs, TestConfigDir, config.BaseDefaults)
	require.NoError(t, err)
	return cfg, fs
}
