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

package qn8027

import (
	"strings"
	"unicode"

	"github.com/PixelRadioProject/pixelradio-core/pkg/models"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	stationNameLen = 8
	textLen        = 64
	textSegmentLen = 4

	// block C of a 0A group, "no alternative frequencies"
	noAlternateFreq uint16 = 0xE0CD

	groupType0A uint16 = 0x0000
	groupType2A uint16 = 0x2000

	flagMusic uint16 = 0x0008
	flagAB    uint16 = 0x0010
)

// Group is one RDS group as four big-endian 16-bit blocks, the layout of
// RDSD0 through RDSD7.
type Group [8]byte

func newGroup(a, b, c, d uint16) Group {
	return Group{
		byte(a >> 8), byte(a),
		byte(b >> 8), byte(b),
		byte(c >> 8), byte(c),
		byte(d >> 8), byte(d),
	}
}

// Blocks splits the group back into its four blocks.
func (g Group) Blocks() [4]uint16 {
	var out [4]uint16
	for i := range out {
		out[i] = uint16(g[2*i])<<8 | uint16(g[2*i+1])
	}
	return out
}

func blockB(groupType uint16, pty uint8, low uint16) uint16 {
	return groupType | uint16(pty&0x1F)<<5 | low
}

var fold = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	runes.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7E {
			return '?'
		}
		return r
	}),
)

// Fold maps text to the printable ASCII subset of the RDS character set.
// Accents are stripped; anything else unrepresentable becomes '?'.
func Fold(s string) string {
	out, _, err := transform.String(fold, s)
	if err != nil {
		return strings.Repeat("?", len([]rune(s)))
	}
	return out
}

func pad(s string, n int) string {
	if len(s) >= n {
		return s[:n]
	}
	return s + strings.Repeat(" ", n-len(s))
}

// StationNameGroups frames the program service name as four 0A groups,
// two characters each.
func StationNameGroups(id models.Identity) []Group {
	ps := pad(Fold(id.StationName), stationNameLen)
	groups := make([]Group, 0, stationNameLen/2)
	for seg := range stationNameLen / 2 {
		b := blockB(groupType0A, id.PTYCode, flagMusic|uint16(seg)) //nolint:gosec // seg < 4
		d := uint16(ps[2*seg])<<8 | uint16(ps[2*seg+1])
		groups = append(groups, newGroup(id.PICode, b, noAlternateFreq, d))
	}
	return groups
}

// TextEncoder frames RadioText as 2A groups and flips the A/B flag whenever
// the text changes so receivers clear their display.
type TextEncoder struct {
	last string
	ab   bool
}

// Groups frames text in segments of four characters. Text shorter than 64
// characters is terminated with a carriage return.
func (e *TextEncoder) Groups(id models.Identity, text string) []Group {
	rt := Fold(text)
	if len(rt) > textLen {
		rt = rt[:textLen]
	}
	if rt != e.last {
		e.ab = !e.ab
		e.last = rt
	}
	if len(rt) < textLen {
		rt += "\r"
	}
	if rem := len(rt) % textSegmentLen; rem != 0 {
		rt += strings.Repeat(" ", textSegmentLen-rem)
	}

	var flags uint16
	if e.ab {
		flags = flagAB
	}
	segments := len(rt) / textSegmentLen
	groups := make([]Group, 0, segments)
	for seg := range segments {
		chunk := rt[seg*textSegmentLen : (seg+1)*textSegmentLen]
		b := blockB(groupType2A, id.PTYCode, flags|uint16(seg)) //nolint:gosec // seg < 16
		c := uint16(chunk[0])<<8 | uint16(chunk[1])
		d := uint16(chunk[2])<<8 | uint16(chunk[3])
		groups = append(groups, newGroup(id.PICode, b, c, d))
	}
	return groups
}

// DecodeText reassembles RadioText from 2A groups, up to the carriage
// return.
func DecodeText(groups []Group) string {
	var sb strings.Builder
	for _, g := range groups {
		blocks := g.Blocks()
		if blocks[1]&0xF000 != groupType2A {
			continue
		}
		for _, blk := range blocks[2:] {
			sb.WriteByte(byte(blk >> 8))
			sb.WriteByte(byte(blk))
		}
	}
	s := sb.String()
	if i := strings.IndexByte(s, '\r'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimRight(s, " ")
}

// DecodeStationName reassembles the program service name from 0A groups.
func DecodeStationName(groups []Group) string {
	ps := []byte(strings.Repeat(" ", stationNameLen))
	for _, g := range groups {
		blocks := g.Blocks()
		if blocks[1]&0xF000 != groupType0A {
			continue
		}
		seg := int(blocks[1] & 0x03)
		ps[2*seg] = byte(blocks[3] >> 8)
		ps[2*seg+1] = byte(blocks[3])
	}
	return strings.TrimRight(string(ps), " ")
}
