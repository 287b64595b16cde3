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

package config

var AppVersion = "DEVELOPMENT"

const (
	AppName  = "pixelradio"
	LogFile  = "pixelradio.log"
	CfgFile  = "config.toml"
	AuthFile = "auth.toml"
)
