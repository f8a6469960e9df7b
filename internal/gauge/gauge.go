// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package gauge turns a barometric pressure into an LED bar graph and a
// coarse weather classification.
package gauge

import (
	"image/color"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Barometer range and weather thresholds, in hPa.
const (
	RangeLow  = 965
	RangeHigh = 1035

	SunnyAbove = 1010
	RainyBelow = 990

	DefaultSize = 7
)

// Off is an unlit LED.
var Off = color.RGBA{A: 0xff}

// WeatherClass is the weather label derived from pressure alone.
type WeatherClass int

const (
	Cloudy WeatherClass = iota
	Sunny
	Rainy
)

func (w WeatherClass) String() string {
	switch w {
	case Sunny:
		return "sunny"
	case Cloudy:
		return "cloudy"
	case Rainy:
		return "rainy"
	}
	return "unknown"
}

// Classify maps pressure to a weather class. No hysteresis.
func Classify(pressure float32) WeatherClass {
	switch {
	case pressure > SunnyAbove:
		return Sunny
	case pressure < RainyBelow:
		return Rainy
	}
	return Cloudy
}

// Gauge is an N-LED bar graph; the rainbow table is computed once.
type Gauge struct {
	rainbow []color.RGBA
}

// New builds a gauge of size LEDs. Sizes below 1 fall back to DefaultSize.
func New(size int) *Gauge {
	if size < 1 {
		size = DefaultSize
	}
	g := &Gauge{rainbow: make([]color.RGBA, size)}
	for i := range g.rainbow {
		c := colorful.Hsv(float64(i)*360/float64(size), 1.0, 1.0)
		r, gr, b := c.RGB255()
		g.rainbow[i] = color.RGBA{R: r, G: gr, B: b, A: 0xff}
	}
	return g
}

// Size returns the number of LEDs.
func (g *Gauge) Size() int { return len(g.rainbow) }

// Rainbow returns a copy of the color table.
func (g *Gauge) Rainbow() []color.RGBA {
	return append([]color.RGBA(nil), g.rainbow...)
}

// LitCount returns how many LEDs are lit for pressure, clamped to [0, Size].
func (g *Gauge) LitCount(pressure float32) int {
	n := len(g.rainbow)
	t := (float64(pressure) - RangeLow) / (RangeHigh - RangeLow)
	lit := math.Ceil(float64(n) * t)
	switch {
	case math.IsNaN(lit) || lit < 0:
		return 0
	case lit > float64(n):
		return n
	}
	return int(lit)
}

// Colors returns the strip frame for pressure: the top LitCount positions,
// counted down from index Size-1, carry their rainbow color; the rest are off.
func (g *Gauge) Colors(pressure float32) []color.RGBA {
	n := len(g.rainbow)
	frame := Blank(n)
	lit := g.LitCount(pressure)
	for i := 0; i < lit; i++ {
		ri := n - 1 - i
		frame[ri] = g.rainbow[ri]
	}
	return frame
}

// Blank returns a frame of n unlit LEDs.
func Blank(n int) []color.RGBA {
	return Filled(n, Off)
}

// Filled returns a frame of n LEDs all set to c.
func Filled(n int, c color.RGBA) []color.RGBA {
	frame := make([]color.RGBA, n)
	for i := range frame {
		frame[i] = c
	}
	return frame
}
