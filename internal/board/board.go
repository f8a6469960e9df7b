// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package board maps the hardware identity to the bus and pin names used by
// the weather station peripherals.
package board

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/relabs-tech/weather_station/internal/config"
)

const (
	RPi3      = "rpi3"
	IMX7DPico = "imx7d_pico"
)

// ErrUnsupportedBoard is returned for any identity without a known bus mapping.
var ErrUnsupportedBoard = errors.New("unsupported board")

// Defaults lists the bus and pin names for one board.
type Defaults struct {
	Name       string
	I2CBus     string
	SPIBus     string
	ButtonPin  string
	LEDPin     string
	SpeakerPin string
}

var known = map[string]Defaults{
	RPi3: {
		Name:       RPi3,
		I2CBus:     "I2C1",
		SPIBus:     "SPI0.0",
		ButtonPin:  "GPIO21",
		LEDPin:     "GPIO6",
		SpeakerPin: "GPIO18",
	},
	IMX7DPico: {
		Name:       IMX7DPico,
		I2CBus:     "I2C1",
		SPIBus:     "SPI3.1",
		ButtonPin:  "GPIO6_IO14",
		LEDPin:     "GPIO2_IO02",
		SpeakerPin: "PWM1",
	},
}

// Lookup returns the defaults for a board name.
func Lookup(name string) (Defaults, error) {
	d, ok := known[name]
	if !ok {
		return Defaults{}, fmt.Errorf("%w: %q", ErrUnsupportedBoard, name)
	}
	return d, nil
}

// Resolve picks the board identity (config override first, then the device
// tree model) and applies any per-pin overrides from cfg.
func Resolve(cfg config.BoardConfig) (Defaults, error) {
	name := cfg.Name
	if name == "" {
		model, err := os.ReadFile("/proc/device-tree/model")
		if err != nil {
			return Defaults{}, fmt.Errorf("%w: cannot read device tree model: %v", ErrUnsupportedBoard, err)
		}
		name = Identify(string(model))
	}

	d, err := Lookup(name)
	if err != nil {
		return Defaults{}, err
	}
	return applyOverrides(d, cfg), nil
}

// Identify maps a device tree model string to a board name. Unknown models
// are returned unchanged so that Lookup reports them.
func Identify(model string) string {
	m := strings.ToLower(strings.TrimRight(model, "\x00\n "))
	switch {
	case strings.HasPrefix(m, "raspberry pi 3"):
		return RPi3
	case strings.Contains(m, "i.mx7d") && strings.Contains(m, "pico"):
		return IMX7DPico
	}
	return m
}

func applyOverrides(d Defaults, cfg config.BoardConfig) Defaults {
	if cfg.I2CBus != "" {
		d.I2CBus = cfg.I2CBus
	}
	if cfg.SPIBus != "" {
		d.SPIBus = cfg.SPIBus
	}
	if cfg.ButtonPin != "" {
		d.ButtonPin = cfg.ButtonPin
	}
	if cfg.LEDPin != "" {
		d.LEDPin = cfg.LEDPin
	}
	if cfg.SpeakerPin != "" {
		d.SpeakerPin = cfg.SpeakerPin
	}
	return d
}
