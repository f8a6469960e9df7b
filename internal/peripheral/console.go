// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package peripheral

import (
	"fmt"
	"image/color"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// The console peripherals stand in for real hardware when running with -mock.
// They log what the device would show and keep the last state for inspection.

// ConsoleDisplay logs every value it is asked to show.
type ConsoleDisplay struct {
	mu      sync.Mutex
	logger  zerolog.Logger
	enabled bool
	shown   string
	closed  bool
}

func NewConsoleDisplay() *ConsoleDisplay {
	return &ConsoleDisplay{logger: log.With().Str("component", "display").Logger()}
}

func (d *ConsoleDisplay) SetEnabled(enabled bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	d.enabled = enabled
	return nil
}

func (d *ConsoleDisplay) Display(value float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	if !d.enabled {
		return nil
	}
	d.shown = FormatValue(value, AlphanumericWidth)
	d.logger.Info().Str("text", d.shown).Msg("display")
	return nil
}

func (d *ConsoleDisplay) Clear() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	d.shown = ""
	return nil
}

// Shown returns the text currently on the display.
func (d *ConsoleDisplay) Shown() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shown
}

func (d *ConsoleDisplay) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// ConsoleStrip renders frames as a row of hex colors.
type ConsoleStrip struct {
	mu         sync.Mutex
	logger     zerolog.Logger
	brightness int
	frame      []color.RGBA
	closed     bool
}

func NewConsoleStrip() *ConsoleStrip {
	return &ConsoleStrip{
		logger:     log.With().Str("component", "led_strip").Logger(),
		brightness: MaxBrightness,
	}
}

func (s *ConsoleStrip) SetBrightness(level int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.brightness = level
	return nil
}

func (s *ConsoleStrip) Write(colors []color.RGBA) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.frame = append(s.frame[:0], colors...)

	raw := scaleColors(colors, s.brightness)
	cells := make([]string, 0, len(colors))
	for i := 0; i+2 < len(raw); i += 3 {
		cells = append(cells, fmt.Sprintf("%02x%02x%02x", raw[i], raw[i+1], raw[i+2]))
	}
	s.logger.Debug().Str("frame", strings.Join(cells, " ")).Msg("strip")
	return nil
}

// Frame returns a copy of the last frame written.
func (s *ConsoleStrip) Frame() []color.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]color.RGBA(nil), s.frame...)
}

func (s *ConsoleStrip) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// ConsoleLine logs level changes of a simulated output.
type ConsoleLine struct {
	mu         sync.Mutex
	logger     zerolog.Logger
	activeHigh bool
	active     bool
	closed     bool
}

func NewConsoleLine(name string) *ConsoleLine {
	return &ConsoleLine{logger: log.With().Str("component", "gpio").Str("line", name).Logger()}
}

func (l *ConsoleLine) SetDirectionOut(initialLow bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	l.active = !initialLow
	return nil
}

func (l *ConsoleLine) SetActiveHigh() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	l.activeHigh = true
	return nil
}

func (l *ConsoleLine) SetValue(active bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	l.active = active
	l.logger.Debug().Bool("active", active).Msg("line")
	return nil
}

// Active reports the last value set.
func (l *ConsoleLine) Active() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

func (l *ConsoleLine) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

// ConsoleSpeaker logs the tones it would play.
type ConsoleSpeaker struct {
	logger zerolog.Logger
}

func NewConsoleSpeaker() *ConsoleSpeaker {
	return &ConsoleSpeaker{logger: log.With().Str("component", "speaker").Logger()}
}

func (s *ConsoleSpeaker) Play(frequencyHz float64) error {
	s.logger.Trace().Float64("hz", frequencyHz).Msg("tone")
	return nil
}

func (s *ConsoleSpeaker) Stop() error {
	s.logger.Debug().Msg("tone stopped")
	return nil
}

// VirtualButton is pressed and released programmatically, e.g. from the web API.
type VirtualButton struct {
	mu      sync.Mutex
	code    KeyCode
	handler KeyHandler
	pressed bool
	closed  bool
}

func NewVirtualButton(code KeyCode) *VirtualButton {
	return &VirtualButton{code: code}
}

func (b *VirtualButton) Register(h KeyHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	b.handler = h
	return nil
}

// Press delivers a key-down unless the button is already held.
func (b *VirtualButton) Press() error {
	return b.set(true)
}

// Release delivers a key-up unless the button is already up.
func (b *VirtualButton) Release() error {
	return b.set(false)
}

func (b *VirtualButton) set(pressed bool) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	h := b.handler
	changed := b.pressed != pressed
	b.pressed = pressed
	b.mu.Unlock()

	if h == nil || !changed {
		return nil
	}
	if pressed {
		h.OnKeyDown(b.code)
	} else {
		h.OnKeyUp(b.code)
	}
	return nil
}

func (b *VirtualButton) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.handler = nil
	return nil
}
