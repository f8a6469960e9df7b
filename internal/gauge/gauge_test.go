// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gauge

import (
	"image/color"
	"math"
	"testing"
)

func TestLitCountBounds(t *testing.T) {
	g := New(7)
	tests := []struct {
		pressure float32
		want     int
	}{
		{RangeLow, 0},
		{RangeHigh, 7},
		{1000, int(math.Ceil(7 * 0.5))},
		{900, 0},
		{1100, 7},
		{966, 1},
		{1034, 7},
	}
	for _, tt := range tests {
		if got := g.LitCount(tt.pressure); got != tt.want {
			t.Errorf("LitCount(%v) = %d, want %d", tt.pressure, got, tt.want)
		}
	}
}

func TestLitCountMonotonic(t *testing.T) {
	g := New(7)
	prev := -1
	for p := float32(900); p <= 1100; p += 0.25 {
		n := g.LitCount(p)
		if n < 0 || n > g.Size() {
			t.Fatalf("LitCount(%v) = %d out of [0,%d]", p, n, g.Size())
		}
		if n < prev {
			t.Fatalf("LitCount not monotonic at %v: %d after %d", p, n, prev)
		}
		prev = n
	}
}

func TestLitCountNaN(t *testing.T) {
	if n := New(7).LitCount(float32(math.NaN())); n != 0 {
		t.Errorf("LitCount(NaN) = %d, want 0", n)
	}
}

func TestColorsLightFromTheTop(t *testing.T) {
	g := New(7)
	rainbow := g.Rainbow()

	frame := g.Colors(1000) // 4 lit
	for i, c := range frame {
		lit := i >= 3
		if lit && c != rainbow[i] {
			t.Errorf("LED %d = %v, want rainbow %v", i, c, rainbow[i])
		}
		if !lit && c != Off {
			t.Errorf("LED %d = %v, want off", i, c)
		}
	}

	for i, c := range g.Colors(RangeLow) {
		if c != Off {
			t.Errorf("LED %d lit at range low", i)
		}
	}
}

func TestRainbowTable(t *testing.T) {
	g := New(7)
	r := g.Rainbow()
	if len(r) != 7 {
		t.Fatalf("len = %d", len(r))
	}
	// hue 0 is pure red
	if r[0] != (color.RGBA{R: 255, A: 255}) {
		t.Errorf("rainbow[0] = %v, want red", r[0])
	}
	for i := 1; i < len(r); i++ {
		if r[i] == r[i-1] {
			t.Errorf("rainbow[%d] equals rainbow[%d]", i, i-1)
		}
	}

	// callers cannot mutate the table
	r[0] = Off
	if g.Rainbow()[0] == Off {
		t.Error("Rainbow returned the internal slice")
	}
}

func TestNewInvalidSize(t *testing.T) {
	if s := New(0).Size(); s != DefaultSize {
		t.Errorf("Size = %d, want %d", s, DefaultSize)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		pressure float32
		want     WeatherClass
	}{
		{1020, Sunny},
		{1000, Cloudy},
		{980, Rainy},
		{1010, Cloudy},
		{990, Cloudy},
		{1010.5, Sunny},
		{989.9, Rainy},
	}
	for _, tt := range tests {
		if got := Classify(tt.pressure); got != tt.want {
			t.Errorf("Classify(%v) = %v, want %v", tt.pressure, got, tt.want)
		}
	}
}

func TestFrames(t *testing.T) {
	red := color.RGBA{R: 255, A: 255}
	tests := []struct {
		name  string
		frame []color.RGBA
		want  color.RGBA
	}{
		{"blank", Blank(DefaultSize), Off},
		{"filled", Filled(DefaultSize, red), red},
	}
	for _, tt := range tests {
		if len(tt.frame) != DefaultSize {
			t.Fatalf("%s: len = %d", tt.name, len(tt.frame))
		}
		for i, c := range tt.frame {
			if c != tt.want {
				t.Errorf("%s[%d] = %v, want %v", tt.name, i, c, tt.want)
			}
		}
	}
}
