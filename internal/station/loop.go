// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package station is the weather station control loop: it routes temperature
// and pressure readings to the display, the LED gauge and telemetry, and lets
// the button choose what the display shows.
package station

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/relabs-tech/weather_station/internal/env"
	"github.com/relabs-tech/weather_station/internal/gauge"
	"github.com/relabs-tech/weather_station/internal/peripheral"
	"github.com/relabs-tech/weather_station/internal/sensors"
	"github.com/relabs-tech/weather_station/internal/telemetry"
)

// Options configure a ControlLoop.
type Options struct {
	DeviceID   string
	GaugeSize  int
	Brightness int

	// Transport enables telemetry when non-nil. The loop owns it from then on.
	Transport telemetry.Transport
	Telemetry telemetry.Options

	Sink      ClassificationSink
	Observers []Observer

	// SkipStartupTone disables the chirp, mostly for tests.
	SkipStartupTone bool
}

// ControlLoop owns every peripheral for its lifetime.
type ControlLoop struct {
	logger zerolog.Logger
	mgr    *sensors.Manager

	display peripheral.Display
	strip   peripheral.LEDStrip
	driver  sensors.Driver
	button  peripheral.Button
	line    peripheral.GPIOLine
	tone    peripheral.ToneGenerator

	modes     *ModeController
	gauge     *gaugeOutput
	buffer    *telemetry.Buffer
	publisher *telemetry.Publisher
	subs      []*sensors.Subscription
	notify    observers

	toneCancel context.CancelFunc
	toneDone   chan struct{}

	closeOnce sync.Once
	closeErr  error
}

// New opens and configures the peripherals, subscribes to the sensors, plays
// the startup tone and starts telemetry. On failure everything already
// acquired is released in reverse order.
func New(hw peripheral.Hardware, mgr *sensors.Manager, opts Options) (_ *ControlLoop, err error) {
	if opts.GaugeSize < 1 {
		opts.GaugeSize = gauge.DefaultSize
	}
	l := &ControlLoop{
		logger: log.With().Str("component", "station").Logger(),
		mgr:    mgr,
		notify: observers(opts.Observers),
	}

	var undo []func()
	defer func() {
		if err == nil {
			return
		}
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
	}()
	release := func(name string, c io.Closer) {
		undo = append(undo, func() {
			if cerr := c.Close(); cerr != nil {
				l.logger.Error().Err(cerr).Str("peripheral", name).Msg("release after failed start")
			}
		})
	}

	if opts.Transport != nil {
		l.buffer = telemetry.NewBuffer(opts.DeviceID)
		topts := opts.Telemetry
		topts.DeviceID = opts.DeviceID
		l.publisher = telemetry.NewPublisher(l.buffer, opts.Transport, topts)
		release("telemetry", l.publisher)
	}

	if l.display, err = hw.OpenDisplay(); err != nil {
		return nil, fmt.Errorf("open display: %w", err)
	}
	release("display", l.display)
	if l.strip, err = hw.OpenLEDStrip(); err != nil {
		return nil, fmt.Errorf("open LED strip: %w", err)
	}
	release("led_strip", l.strip)
	if l.driver, err = hw.OpenEnvSensor(mgr); err != nil {
		return nil, fmt.Errorf("open environmental sensor: %w", err)
	}
	release("sensor", l.driver)
	if l.button, err = hw.OpenButton(); err != nil {
		return nil, fmt.Errorf("open button: %w", err)
	}
	release("button", l.button)
	if l.line, err = hw.OpenGPIOLine(); err != nil {
		return nil, fmt.Errorf("open GPIO line: %w", err)
	}
	release("gpio", l.line)
	if l.tone, err = hw.OpenToneGenerator(); err != nil {
		return nil, fmt.Errorf("open tone generator: %w", err)
	}
	if c, ok := l.tone.(io.Closer); ok {
		release("speaker", c)
	}

	l.configurePeripherals(opts.Brightness, opts.GaugeSize)

	l.modes = newModeController(l.display, l.line, l.peripheralError)
	l.gauge = &gaugeOutput{
		gauge:  gauge.New(opts.GaugeSize),
		strip:  l.strip,
		sink:   opts.Sink,
		report: l.peripheralError,
		notify: l.notify,
	}
	for _, kind := range env.Kinds {
		l.subs = append(l.subs, sensors.Subscribe(mgr, kind, l.handlerFor(kind)))
	}
	undo = append(undo, func() {
		for _, s := range l.subs {
			s.Unsubscribe()
		}
	})

	if err = l.driver.RegisterTemperatureSensor(); err != nil {
		return nil, fmt.Errorf("register temperature sensor: %w", err)
	}
	if err = l.driver.RegisterPressureSensor(); err != nil {
		return nil, fmt.Errorf("register pressure sensor: %w", err)
	}
	if err = l.button.Register(l); err != nil {
		return nil, fmt.Errorf("register button: %w", err)
	}

	if !opts.SkipStartupTone {
		ctx, cancel := context.WithCancel(context.Background())
		l.toneCancel, l.toneDone = cancel, make(chan struct{})
		go func() {
			defer close(l.toneDone)
			playStartupTone(ctx, l.tone, l.peripheralError)
		}()
		undo = append(undo, func() {
			cancel()
			<-l.toneDone
		})
	}

	if l.publisher != nil {
		if err = l.publisher.Start(); err != nil {
			return nil, fmt.Errorf("start telemetry: %w", err)
		}
		l.logger.Info().Str("topic", l.publisher.Topic()).Msg("telemetry enabled")
	}

	l.logger.Info().
		Int("gauge_leds", opts.GaugeSize).
		Bool("telemetry", l.publisher != nil).
		Msg("weather station started")
	return l, nil
}

func (l *ControlLoop) handlerFor(kind env.Kind) sensors.Listener {
	if kind == env.Pressure {
		return &pressureHandler{modes: l.modes, gauge: l.gauge, buffer: l.buffer, notify: l.notify}
	}
	return &temperatureHandler{modes: l.modes, buffer: l.buffer, notify: l.notify}
}

// configurePeripherals puts every output in its initial state. Failures are
// logged only.
func (l *ControlLoop) configurePeripherals(brightness, leds int) {
	if err := l.display.SetEnabled(true); err != nil {
		l.peripheralError("display", err)
	}
	if err := l.display.Clear(); err != nil {
		l.peripheralError("display", err)
	}

	if err := l.strip.SetBrightness(brightness); err != nil {
		l.peripheralError("led_strip", err)
	}
	// some strips ignore the first frame after power up
	off := gauge.Blank(leds)
	for i := 0; i < 2; i++ {
		if err := l.strip.Write(off); err != nil {
			l.peripheralError("led_strip", err)
		}
	}

	if err := l.line.SetDirectionOut(true); err != nil {
		l.peripheralError("gpio", err)
	}
	if err := l.line.SetActiveHigh(); err != nil {
		l.peripheralError("gpio", err)
	}
}

func (l *ControlLoop) peripheralError(name string, err error) {
	l.logger.Error().Err(err).Str("peripheral", name).Msg("peripheral I/O failed")
	l.notify.peripheralError(name, err)
}

// OnKeyDown switches the display to pressure.
func (l *ControlLoop) OnKeyDown(code peripheral.KeyCode) {
	if code != peripheral.KeyA {
		return
	}
	l.modes.SetMode(ShowPressure)
	l.notify.mode(ShowPressure)
}

// OnKeyUp switches the display back to temperature.
func (l *ControlLoop) OnKeyUp(code peripheral.KeyCode) {
	if code != peripheral.KeyA {
		return
	}
	l.modes.SetMode(ShowTemperature)
	l.notify.mode(ShowTemperature)
}

// Status is a point in time view of the loop.
type Status struct {
	Mode             string    `json:"mode"`
	Temperature      *Reading  `json:"temperature,omitempty"`
	Pressure         *Reading  `json:"pressure,omitempty"`
	LitLEDs          int       `json:"lit_leds"`
	Weather          string    `json:"weather,omitempty"`
	TelemetryEnabled bool      `json:"telemetry_enabled"`
	LastPublished    time.Time `json:"last_published"`
}

// Status returns the mode, the last reading of each kind, the gauge state and
// the telemetry state. Safe to call from any goroutine.
func (l *ControlLoop) Status() Status {
	st := Status{
		Mode:             l.modes.Mode().String(),
		TelemetryEnabled: l.publisher != nil,
	}
	if r, ok := l.modes.Last(env.Temperature); ok {
		st.Temperature = &r
	}
	if r, ok := l.modes.Last(env.Pressure); ok {
		st.Pressure = &r
	}
	if lit, class, known := l.gauge.state(); known {
		st.LitLEDs = lit
		st.Weather = class.String()
	}
	if l.publisher != nil {
		st.LastPublished = l.publisher.LastPublished()
	}
	return st
}

// Close releases everything in reverse dependency order. Every step runs even
// when an earlier one failed; the failures are logged and joined. Calling
// Close again returns the first result.
func (l *ControlLoop) Close() error {
	l.closeOnce.Do(func() {
		l.closeErr = l.teardown()
	})
	return l.closeErr
}

func (l *ControlLoop) teardown() error {
	var errs []error
	step := func(name string, err error) {
		if err == nil {
			return
		}
		l.logger.Error().Err(err).Str("peripheral", name).Msg("teardown step failed")
		errs = append(errs, fmt.Errorf("%s: %w", name, err))
	}

	for _, s := range l.subs {
		s.Unsubscribe()
		l.logger.Debug().Stringer("kind", s.Kind()).Msg("unsubscribed")
	}
	step("sensor", l.driver.Close())
	step("button", l.button.Close())

	// from here on late callbacks are dropped
	l.modes.shutdown()
	l.gauge.shutdown()

	if l.toneCancel != nil {
		l.toneCancel()
		<-l.toneDone
	}

	step("display", l.display.Clear())
	step("display", l.display.SetEnabled(false))
	step("display", l.display.Close())

	step("led_strip", l.strip.Write(gauge.Blank(l.gauge.gauge.Size())))
	step("led_strip", l.strip.SetBrightness(0))
	step("led_strip", l.strip.Close())

	step("gpio", l.line.SetValue(false))
	step("gpio", l.line.Close())

	if c, ok := l.tone.(io.Closer); ok {
		step("speaker", c.Close())
	}

	if l.publisher != nil {
		step("telemetry", l.publisher.Close())
	}

	l.logger.Info().Int("errors", len(errs)).Msg("weather station stopped")
	return errors.Join(errs...)
}
