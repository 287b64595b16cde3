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

package commands

import (
	"errors"
	"fmt"
)

// ErrValidation matches every *ValidationError via errors.Is.
var ErrValidation = errors.New("validation failed")

type ErrorKind int

const (
	KindUnknownProducer ErrorKind = iota + 1
	KindUnknownCommand
	KindInvalidToken
	KindInvalidNumber
	KindOutOfRange
	KindInvalidPin
	KindWrongDirection
	KindUnsupported
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnknownProducer:
		return "unknown producer"
	case KindUnknownCommand:
		return "unknown command"
	case KindInvalidToken:
		return "invalid token"
	case KindInvalidNumber:
		return "invalid number"
	case KindOutOfRange:
		return "out of range"
	case KindInvalidPin:
		return "invalid pin"
	case KindWrongDirection:
		return "wrong direction"
	case KindUnsupported:
		return "unsupported"
	default:
		return "invalid"
	}
}

// ValidationError reports why a command was refused. Refused commands never
// change state.
type ValidationError struct {
	Command string
	Payload string
	Kind    ErrorKind
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %q", e.Command, e.Kind, e.Payload)
}

func (*ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// KindOf extracts the validation kind, or 0 if err is not a validation error.
func KindOf(err error) ErrorKind {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Kind
	}
	return 0
}

func invalid(kind ErrorKind, command, payload string) error {
	return &ValidationError{Kind: kind, Command: command, Payload: payload}
}
