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

package models

// Reply is the outcome of one submitted command, rendered by each transport
// in its own format.
type Reply struct {
	Info    *InfoResponse `json:"info,omitempty"`
	Level   *bool         `json:"level,omitempty"`
	Command string        `json:"command"`
	Error   string        `json:"error,omitempty"`
	OK      bool          `json:"ok"`
	Capped  bool          `json:"capped,omitempty"`
	Changed bool          `json:"changed,omitempty"`
}

type InfoResponse struct {
	Version     string `json:"version"`
	Hostname    string `json:"hostname"`
	Platform    string `json:"platform"`
	Device      string `json:"device"`
	Calibration string `json:"calibration"`
	Status      string `json:"status"`
	Uptime      int64  `json:"uptimeSeconds"`
	Frequency   int    `json:"frequency"`
}
