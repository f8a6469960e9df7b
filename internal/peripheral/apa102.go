// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package peripheral

import (
	"fmt"
	"image/color"
	"sync"

	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/apa102"
	"periph.io/x/host/v3"
)

// APA102Strip is an APA102 LED strip on SPI. The 0-31 brightness is applied
// to the color channels before they go on the wire.
type APA102Strip struct {
	mu         sync.Mutex
	dev        *apa102.Dev
	port       spi.PortCloser
	brightness int
	last       []color.RGBA
	closed     bool
}

// OpenAPA102 opens a strip of numLEDs on the named SPI port.
func OpenAPA102(portName string, numLEDs int) (*APA102Strip, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	port, err := spireg.Open(portName)
	if err != nil {
		return nil, fmt.Errorf("LED strip SPI open (%s): %w", portName, err)
	}

	opts := apa102.DefaultOpts
	opts.NumPixels = numLEDs
	opts.Intensity = 255
	dev, err := apa102.New(port, &opts)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("APA102 init: %w", err)
	}
	return &APA102Strip{dev: dev, port: port, brightness: MaxBrightness}, nil
}

// SetBrightness stores the level and re-sends the last frame with it.
func (s *APA102Strip) SetBrightness(level int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.brightness = level
	if s.last == nil {
		return nil
	}
	return s.write(s.last)
}

func (s *APA102Strip) Write(colors []color.RGBA) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.last = append(s.last[:0], colors...)
	return s.write(colors)
}

func (s *APA102Strip) write(colors []color.RGBA) error {
	if _, err := s.dev.Write(scaleColors(colors, s.brightness)); err != nil {
		return fmt.Errorf("APA102 write: %w", err)
	}
	return nil
}

func (s *APA102Strip) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	haltErr := s.dev.Halt()
	portErr := s.port.Close()
	if haltErr != nil {
		return fmt.Errorf("APA102 halt: %w", haltErr)
	}
	return portErr
}
