// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package peripheral

import (
	"fmt"
	"image"
	"math"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ht16k33"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"
)

// AlphanumericWidth is the number of characters on an HT16K33 14-segment backpack.
const AlphanumericWidth = 4

// FormatValue renders v right-aligned in at most width characters, keeping
// as many decimals as fit. Values that cannot fit render as dashes.
func FormatValue(v float64, width int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strings.Repeat("-", width)
	}
	for decimals := width - 2; decimals >= 0; decimals-- {
		s := strconv.FormatFloat(v, 'f', decimals, 64)
		if len(s) <= width {
			return strings.Repeat(" ", width-len(s)) + s
		}
	}
	return strings.Repeat("-", width)
}

// AlphanumericDisplay is a 4 character HT16K33 display on I2C.
type AlphanumericDisplay struct {
	mu      sync.Mutex
	dev     *ht16k33.Display
	bus     i2c.BusCloser
	enabled bool
	closed  bool
}

// OpenAlphanumeric opens the display at addr on the named I2C bus.
func OpenAlphanumeric(busName string, addr uint16) (*AlphanumericDisplay, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("display I2C open (%s): %w", busName, err)
	}
	dev, err := ht16k33.NewAlphaNumericDisplay(bus, addr)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("HT16K33 init at 0x%02X: %w", addr, err)
	}
	return &AlphanumericDisplay{dev: dev, bus: bus}, nil
}

func (d *AlphanumericDisplay) SetEnabled(enabled bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	d.enabled = enabled
	if !enabled {
		return d.write(strings.Repeat(" ", AlphanumericWidth))
	}
	return nil
}

func (d *AlphanumericDisplay) Display(value float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	if !d.enabled {
		return nil
	}
	return d.write(FormatValue(value, AlphanumericWidth))
}

func (d *AlphanumericDisplay) Clear() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	return d.write(strings.Repeat(" ", AlphanumericWidth))
}

func (d *AlphanumericDisplay) write(s string) error {
	if _, err := d.dev.WriteString(s); err != nil {
		return fmt.Errorf("HT16K33 write %q: %w", s, err)
	}
	return nil
}

// Close halts the controller and releases the bus. Closing twice is a no-op.
func (d *AlphanumericDisplay) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	haltErr := d.dev.Halt()
	busErr := d.bus.Close()
	if haltErr != nil {
		return fmt.Errorf("HT16K33 halt: %w", haltErr)
	}
	return busErr
}

// OLEDDisplay renders the value as text on a 128x64 SSD1306.
type OLEDDisplay struct {
	mu      sync.Mutex
	dev     *ssd1306.Dev
	bus     i2c.BusCloser
	label   string
	enabled bool
	closed  bool
}

// OpenOLED opens an SSD1306 on the named I2C bus.
func OpenOLED(busName string) (*OLEDDisplay, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("display I2C open (%s): %w", busName, err)
	}
	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("SSD1306 init: %w", err)
	}
	return &OLEDDisplay{dev: dev, bus: bus, label: "Weather"}, nil
}

func (d *OLEDDisplay) SetEnabled(enabled bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	d.enabled = enabled
	if !enabled {
		return d.draw(nil)
	}
	return nil
}

func (d *OLEDDisplay) Display(value float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	if !d.enabled {
		return nil
	}
	return d.draw([]string{d.label, FormatValue(value, 8)})
}

func (d *OLEDDisplay) Clear() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	return d.draw(nil)
}

func (d *OLEDDisplay) draw(lines []string) error {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, 128, 64))

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	for i, line := range lines {
		drawer.Dot = fixed.P(10, 26+17*i)
		drawer.DrawBytes([]byte(line))
	}

	if err := d.dev.Draw(d.dev.Bounds(), img, image.Point{}); err != nil {
		return fmt.Errorf("SSD1306 draw: %w", err)
	}
	return nil
}

func (d *OLEDDisplay) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	haltErr := d.dev.Halt()
	busErr := d.bus.Close()
	if haltErr != nil {
		return fmt.Errorf("SSD1306 halt: %w", haltErr)
	}
	return busErr
}
