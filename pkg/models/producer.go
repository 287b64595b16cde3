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

import (
	"fmt"
	"strings"
)

// ProducerID identifies a source of RDS content and commands.
type ProducerID int

const (
	ProducerNone ProducerID = iota
	ProducerSerial
	ProducerMQTT
	ProducerHTTP
	ProducerLocal
)

// Priority pairs a producer with its arbitration rank. Higher rank wins.
type Priority struct {
	ID   ProducerID
	Rank int
}

// Priorities is the arbitration order, highest first. Adding a producer is a
// single entry here.
var Priorities = []Priority{
	{ID: ProducerSerial, Rank: 3},
	{ID: ProducerMQTT, Rank: 2},
	{ID: ProducerHTTP, Rank: 1},
	{ID: ProducerLocal, Rank: 0},
}

// RemoteProducers returns the command-driven producers in priority order.
func RemoteProducers() []ProducerID {
	ids := make([]ProducerID, 0, len(Priorities))
	for _, p := range Priorities {
		if p.ID != ProducerLocal {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// Rank returns the producer's arbitration rank, or -1 if unknown.
func (p ProducerID) Rank() int {
	for _, pr := range Priorities {
		if pr.ID == p {
			return pr.Rank
		}
	}
	return -1
}

// Valid reports whether p is one of the known producers.
func (p ProducerID) Valid() bool {
	return p.Rank() >= 0
}

func (p ProducerID) String() string {
	switch p {
	case ProducerSerial:
		return "serial"
	case ProducerMQTT:
		return "mqtt"
	case ProducerHTTP:
		return "http"
	case ProducerLocal:
		return "local"
	case ProducerNone:
		return "none"
	default:
		return fmt.Sprintf("producer(%d)", int(p))
	}
}

// MarshalText encodes the producer by name so it reads well in JSON payloads.
func (p ProducerID) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *ProducerID) UnmarshalText(text []byte) error {
	id, err := ParseProducer(string(text))
	if err != nil {
		return err
	}
	*p = id
	return nil
}

// ParseProducer maps a producer name to its ID.
func ParseProducer(s string) (ProducerID, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "serial":
		return ProducerSerial, nil
	case "mqtt":
		return ProducerMQTT, nil
	case "http":
		return ProducerHTTP, nil
	case "local":
		return ProducerLocal, nil
	case "none":
		return ProducerNone, nil
	default:
		return ProducerNone, fmt.Errorf("unknown producer: %q", s)
	}
}
