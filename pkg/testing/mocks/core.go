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

package mocks

import (
	"context"
	"fmt"

	"github.com/PixelRadioProject/pixelradio-core/pkg/models"
	"github.com/stretchr/testify/mock"
)

// Core is a testify mock of the service facade the transports call.
type Core struct {
	mock.Mock
}

func (m *Core) Submit(
	ctx context.Context,
	p models.ProducerID,
	command, payload string,
) (models.Reply, error) {
	args := m.Called(ctx, p, command, payload)
	reply, _ := args.Get(0).(models.Reply)
	if err := args.Error(1); err != nil {
		return reply, fmt.Errorf("mock submit failed: %w", err)
	}
	return reply, nil
}

func (m *Core) Snapshot() models.StatusResponse {
	args := m.Called()
	if snap, ok := args.Get(0).(models.StatusResponse); ok {
		return snap
	}
	return models.StatusResponse{}
}
