// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package peripheral

import (
	"fmt"

	"periph.io/x/host/v3"

	"github.com/relabs-tech/weather_station/internal/board"
	"github.com/relabs-tech/weather_station/internal/config"
	"github.com/relabs-tech/weather_station/internal/sensors"
)

// Hardware opens every device the station uses.
type Hardware interface {
	OpenDisplay() (Display, error)
	OpenLEDStrip() (LEDStrip, error)
	OpenEnvSensor(mgr *sensors.Manager) (sensors.Driver, error)
	OpenButton() (Button, error)
	OpenGPIOLine() (GPIOLine, error)
	OpenToneGenerator() (ToneGenerator, error)
}

// Periph opens the real devices on the buses and pins of a resolved board.
type Periph struct {
	Board board.Defaults
	Cfg   *config.Config
}

func NewPeriph(b board.Defaults, cfg *config.Config) *Periph {
	return &Periph{Board: b, Cfg: cfg}
}

// OpenHardware initializes periph.io and resolves the board identity.
// An unknown board yields board.ErrUnsupportedBoard.
func OpenHardware(cfg *config.Config) (*Periph, error) {
	b, err := board.Resolve(cfg.Board)
	if err != nil {
		return nil, err
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	return NewPeriph(b, cfg), nil
}

func (p *Periph) OpenDisplay() (Display, error) {
	switch p.Cfg.Display.Driver {
	case "ssd1306":
		d, err := OpenOLED(p.Board.I2CBus)
		if err != nil {
			return nil, err
		}
		return d, nil
	case "ht16k33", "":
		d, err := OpenAlphanumeric(p.Board.I2CBus, p.Cfg.Display.I2CAddr)
		if err != nil {
			return nil, err
		}
		return d, nil
	}
	return nil, fmt.Errorf("unknown display driver %q", p.Cfg.Display.Driver)
}

func (p *Periph) OpenLEDStrip() (LEDStrip, error) {
	s, err := OpenAPA102(p.Board.SPIBus, p.Cfg.LEDStrip.NumLEDs)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (p *Periph) OpenEnvSensor(mgr *sensors.Manager) (sensors.Driver, error) {
	d, err := sensors.OpenBMX280(p.Board.I2CBus, p.Cfg.Sensor.I2CAddr, mgr, p.Cfg.Sensor.PollInterval)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (p *Periph) OpenButton() (Button, error) {
	b, err := OpenButton(p.Board.ButtonPin, KeyA, p.Cfg.Button.Debounce)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (p *Periph) OpenGPIOLine() (GPIOLine, error) {
	l, err := OpenGPIOLine(p.Board.LEDPin)
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (p *Periph) OpenToneGenerator() (ToneGenerator, error) {
	s, err := OpenSpeaker(p.Board.SpeakerPin)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Simulated backs every device with a console stand-in and the mock sensor.
// The instances are kept so a caller can inspect them or press the button.
type Simulated struct {
	Cfg *config.Config

	Display *ConsoleDisplay
	Strip   *ConsoleStrip
	Line    *ConsoleLine
	Speaker *ConsoleSpeaker
	Button  *VirtualButton
}

func NewSimulated(cfg *config.Config) *Simulated {
	return &Simulated{
		Cfg:     cfg,
		Display: NewConsoleDisplay(),
		Strip:   NewConsoleStrip(),
		Line:    NewConsoleLine("led"),
		Speaker: NewConsoleSpeaker(),
		Button:  NewVirtualButton(KeyA),
	}
}

func (s *Simulated) OpenDisplay() (Display, error)   { return s.Display, nil }
func (s *Simulated) OpenLEDStrip() (LEDStrip, error) { return s.Strip, nil }
func (s *Simulated) OpenButton() (Button, error)     { return s.Button, nil }
func (s *Simulated) OpenGPIOLine() (GPIOLine, error) { return s.Line, nil }

func (s *Simulated) OpenToneGenerator() (ToneGenerator, error) { return s.Speaker, nil }

func (s *Simulated) OpenEnvSensor(mgr *sensors.Manager) (sensors.Driver, error) {
	return sensors.NewMockDriver(mgr, s.Cfg.Sensor.PollInterval), nil
}
