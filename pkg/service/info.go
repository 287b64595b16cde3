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
	"os"
	"runtime"
	"strings"

	"github.com/mackerelio/go-osstat/uptime"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v4/host"
)

type hostDetails struct {
	Hostname      string
	Platform      string
	UptimeSeconds int64
}

// readHostDetails never fails; missing fields are left empty.
func readHostDetails() hostDetails {
	var d hostDetails

	info, err := host.Info()
	if err != nil {
		log.Debug().Err(err).Msg("host info unavailable")
		d.Hostname, _ = os.Hostname()
		d.Platform = runtime.GOOS + "/" + runtime.GOARCH
	} else {
		d.Hostname = info.Hostname
		d.Platform = strings.TrimSpace(info.Platform + " " + info.PlatformVersion)
		if d.Platform == "" {
			d.Platform = runtime.GOOS + "/" + runtime.GOARCH
		}
	}

	up, err := uptime.Get()
	if err != nil {
		log.Debug().Err(err).Msg("uptime unavailable")
		return d
	}
	d.UptimeSeconds = int64(up.Seconds())
	return d
}
