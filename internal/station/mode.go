// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package station

import (
	"sync"
	"time"

	"github.com/relabs-tech/weather_station/internal/env"
	"github.com/relabs-tech/weather_station/internal/peripheral"
)

// Mode selects which reading the numeric display shows.
type Mode int

const (
	ShowTemperature Mode = iota
	ShowPressure
)

func (m Mode) String() string {
	switch m {
	case ShowTemperature:
		return "temperature"
	case ShowPressure:
		return "pressure"
	}
	return "unknown"
}

func valid(k env.Kind) bool {
	return k == env.Temperature || k == env.Pressure
}

func (m Mode) kind() env.Kind {
	if m == ShowPressure {
		return env.Pressure
	}
	return env.Temperature
}

// Reading is the last accepted value of one kind.
type Reading struct {
	Value      float32   `json:"value"`
	ObservedAt time.Time `json:"observed_at"`
}

type cell struct {
	Reading
	ok bool
}

// ModeController owns the display mode, the last value per kind, the numeric
// display and the mode indicator line. All of it is guarded by one mutex so
// a refresh always shows the value of the event that caused it.
type ModeController struct {
	mu      sync.Mutex
	mode    Mode
	cells   [2]cell // indexed by env.Kind
	display peripheral.Display
	line    peripheral.GPIOLine
	report  func(peripheral string, err error)
	closed  bool
}

func newModeController(display peripheral.Display, line peripheral.GPIOLine, report func(string, error)) *ModeController {
	return &ModeController{
		mode:    ShowTemperature,
		display: display,
		line:    line,
		report:  report,
	}
}

// Observe stores m when it is not older than the current value of its kind
// and refreshes the display if m's kind is the one shown. It returns false
// for stale or unknown measurements.
func (c *ModeController) Observe(m env.Measurement) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || !valid(m.Kind) {
		return false
	}
	cur := &c.cells[m.Kind]
	if cur.ok && m.ObservedAt.Before(cur.ObservedAt) {
		return false
	}
	cur.Reading = Reading{Value: m.Value, ObservedAt: m.ObservedAt}
	cur.ok = true

	if m.Kind == c.mode.kind() {
		c.show(m.Value)
	}
	return true
}

// SetMode switches the mode, shows the last value of the new kind and drives
// the indicator line high for pressure, low for temperature.
func (c *ModeController) SetMode(mode Mode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.mode = mode
	if last := c.cells[mode.kind()]; last.ok {
		c.show(last.Value)
	}
	if err := c.line.SetValue(mode == ShowPressure); err != nil {
		c.report("gpio", err)
	}
}

func (c *ModeController) show(v float32) {
	if err := c.display.Display(float64(v)); err != nil {
		c.report("display", err)
	}
}

// Mode returns the active mode.
func (c *ModeController) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Last returns the last accepted reading of kind.
func (c *ModeController) Last(kind env.Kind) (Reading, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !valid(kind) {
		return Reading{}, false
	}
	last := c.cells[kind]
	return last.Reading, last.ok
}

// shutdown makes every later call a no-op. In-flight refreshes complete first.
func (c *ModeController) shutdown() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}
