// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package peripheral defines the contracts the station needs from its output
// and input devices, with periph.io backed and console implementations.
package peripheral

import (
	"errors"
	"image/color"
)

// ErrClosed is returned by any operation on a released peripheral.
var ErrClosed = errors.New("peripheral closed")

// Display is a numeric display unit.
type Display interface {
	SetEnabled(enabled bool) error
	Display(value float64) error
	Clear() error
	Close() error
}

// LEDStrip is an addressable RGB strip.
type LEDStrip interface {
	// SetBrightness sets the global brightness, 0 (off) to 31.
	SetBrightness(level int) error
	Write(colors []color.RGBA) error
	Close() error
}

// GPIOLine is a single digital output.
type GPIOLine interface {
	SetDirectionOut(initialLow bool) error
	SetActiveHigh() error
	SetValue(active bool) error
	Close() error
}

// KeyCode identifies a button.
type KeyCode int

const (
	KeyA KeyCode = iota + 1
)

func (k KeyCode) String() string {
	if k == KeyA {
		return "A"
	}
	return "unknown"
}

// KeyHandler receives button edges.
type KeyHandler interface {
	OnKeyDown(code KeyCode)
	OnKeyUp(code KeyCode)
}

// Button delivers key-down/key-up events to the handler given to Register.
type Button interface {
	Register(h KeyHandler) error
	Close() error
}

// ToneGenerator drives a speaker.
type ToneGenerator interface {
	Play(frequencyHz float64) error
	Stop() error
}

// MaxBrightness is the APA102 global brightness ceiling.
const MaxBrightness = 31

// scaleColors applies a 0-31 brightness to a frame.
func scaleColors(colors []color.RGBA, level int) []byte {
	if level < 0 {
		level = 0
	}
	if level > MaxBrightness {
		level = MaxBrightness
	}
	raw := make([]byte, 0, 3*len(colors))
	for _, c := range colors {
		raw = append(raw,
			byte(int(c.R)*level/MaxBrightness),
			byte(int(c.G)*level/MaxBrightness),
			byte(int(c.B)*level/MaxBrightness),
		)
	}
	return raw
}
