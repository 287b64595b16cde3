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

import (
	"net/url"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
)

// CredentialEntry is a set of credentials for a remote endpoint.
type CredentialEntry struct {
	Username string `toml:"username"`
	Password string `toml:"password"`
	Bearer   string `toml:"bearer"`
}

// Auth is the parsed auth.toml. Keys are URLs or bare host:port pairs.
type Auth struct {
	Creds map[string]CredentialEntry `toml:"creds"`
}

var canonicalSchemes = map[string]string{
	"tcp": "mqtt",
	"ssl": "mqtts",
	"tls": "mqtts",
	"ws":  "http",
	"wss": "https",
}

// LoadAuthFromData parses auth.toml. Entries may be written at the root
// (["mqtt://broker:1883"]) or under a creds table ([creds."broker:1883"]);
// the creds table wins on duplicate keys.
func LoadAuthFromData(data []byte) Auth {
	auth := Auth{Creds: make(map[string]CredentialEntry)}

	var root map[string]CredentialEntry
	if err := toml.Unmarshal(data, &root); err == nil {
		for k, v := range root {
			if k != "creds" {
				auth.Creds[k] = v
			}
		}
	}

	var wrapped Auth
	if err := toml.Unmarshal(data, &wrapped); err != nil {
		log.Warn().Err(err).Msg("failed to parse auth creds table")
	}
	for k, v := range wrapped.Creds {
		auth.Creds[k] = v
	}

	return auth
}

func canonicalScheme(s string) string {
	s = strings.ToLower(s)
	if c, ok := canonicalSchemes[s]; ok {
		return c
	}
	return s
}

// Lookup returns the credentials for endpoint, or nil. An entry with the
// same scheme is preferred over one with an equivalent scheme (tcp and
// mqtt), which is preferred over a bare host:port entry.
func (a Auth) Lookup(endpoint string) *CredentialEntry {
	if len(a.Creds) == 0 {
		return nil
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		log.Warn().Msgf("invalid auth endpoint: %s", endpoint)
		return nil
	}

	var sameScheme, equivScheme, hostOnly *CredentialEntry
	for k, v := range a.Creds {
		entry := v
		if !strings.Contains(k, "://") {
			if hostOnly == nil && strings.EqualFold(k, u.Host) {
				hostOnly = &entry
			}
			continue
		}

		ku, err := url.Parse(k)
		if err != nil {
			log.Error().Msgf("invalid auth entry: %s", k)
			continue
		}
		if !strings.EqualFold(ku.Host, u.Host) || !strings.HasPrefix(u.Path, ku.Path) {
			continue
		}
		switch {
		case strings.EqualFold(ku.Scheme, u.Scheme):
			sameScheme = &entry
		case canonicalScheme(ku.Scheme) == canonicalScheme(u.Scheme):
			if equivScheme == nil {
				equivScheme = &entry
			}
		}
	}

	switch {
	case sameScheme != nil:
		return sameScheme
	case equivScheme != nil:
		return equivScheme
	default:
		return hostOnly
	}
}

// LookupAuth resolves endpoint against the loaded auth.toml.
func LookupAuth(endpoint string) *CredentialEntry {
	return GetAuthCfg().Lookup(endpoint)
}
