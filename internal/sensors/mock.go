// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"math"
	"time"

	"periph.io/x/conn/v3/physic"
)

type mockEnv struct {
	start time.Time
}

// NewMockDriver creates a driver backed by a simulated environment that
// generates smooth changing values: temperature around 22°C and pressure
// sweeping the whole barometer range every few minutes.
func NewMockDriver(mgr *Manager, interval time.Duration) *PollingDriver {
	return NewPollingDriver("mock", &mockEnv{start: time.Now()}, mgr, interval)
}

func (m *mockEnv) Sense(e *physic.Env) error {
	elapsed := time.Since(m.start).Seconds()

	celsius := 22 + 3*math.Sin(elapsed/30)
	hPa := 1000 + 40*math.Sin(elapsed/45)

	e.Temperature = physic.ZeroCelsius + physic.Temperature(celsius*float64(physic.Celsius))
	e.Pressure = physic.Pressure(hPa * 100 * float64(physic.Pascal))
	return nil
}

func (m *mockEnv) Halt() error { return nil }
