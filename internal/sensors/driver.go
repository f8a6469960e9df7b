// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/physic"

	"github.com/relabs-tech/weather_station/internal/env"
)

// ErrDriverClosed is returned when registering sensors on a closed driver.
var ErrDriverClosed = errors.New("sensor driver closed")

// Driver is an environmental sensor driver whose readings surface through a
// Manager once the corresponding sensor is registered.
type Driver interface {
	RegisterTemperatureSensor() error
	RegisterPressureSensor() error
	Close() error
}

// Senser reads one environment sample. bmxx80.Dev satisfies it.
type Senser interface {
	Sense(e *physic.Env) error
	Halt() error
}

// PollingDriver samples a Senser on a fixed interval and delivers the values
// of every registered sensor kind to the Manager.
type PollingDriver struct {
	name     string
	dev      Senser
	mgr      *Manager
	interval time.Duration
	closers  []io.Closer
	logger   zerolog.Logger

	mu      sync.Mutex
	kinds   map[env.Kind]Sensor
	stop    chan struct{}
	done    chan struct{}
	closed  bool
	closeMu sync.Mutex
}

// NewPollingDriver wraps dev. closers are closed after the device is halted,
// typically the bus the device lives on.
func NewPollingDriver(name string, dev Senser, mgr *Manager, interval time.Duration, closers ...io.Closer) *PollingDriver {
	return &PollingDriver{
		name:     name,
		dev:      dev,
		mgr:      mgr,
		interval: interval,
		closers:  closers,
		logger:   log.With().Str("component", "sensors").Str("driver", name).Logger(),
		kinds:    make(map[env.Kind]Sensor),
	}
}

func (d *PollingDriver) RegisterTemperatureSensor() error {
	return d.register(env.Temperature)
}

func (d *PollingDriver) RegisterPressureSensor() error {
	return d.register(env.Pressure)
}

func (d *PollingDriver) register(kind env.Kind) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrDriverClosed
	}
	if _, ok := d.kinds[kind]; ok {
		d.mu.Unlock()
		return nil
	}
	s := Sensor{
		ID:   fmt.Sprintf("%s-%s", d.name, kind),
		Kind: kind,
		Name: fmt.Sprintf("%s %s", d.name, kind),
	}
	d.kinds[kind] = s
	if d.stop == nil {
		d.stop = make(chan struct{})
		d.done = make(chan struct{})
		go d.run(d.stop, d.done)
	}
	d.mu.Unlock()

	d.mgr.Attach(s)
	d.logger.Info().Stringer("kind", kind).Msg("sensor registered")
	return nil
}

func (d *PollingDriver) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.sample()
	for {
		select {
		case <-ticker.C:
			d.sample()
		case <-stop:
			return
		}
	}
}

func (d *PollingDriver) sample() {
	var e physic.Env
	if err := d.dev.Sense(&e); err != nil {
		d.logger.Error().Err(err).Msg("sense failed")
		return
	}
	now := time.Now()

	d.mu.Lock()
	targets := make([]Sensor, 0, len(d.kinds))
	for _, s := range d.kinds {
		targets = append(targets, s)
	}
	d.mu.Unlock()

	for _, s := range targets {
		d.mgr.Deliver(s.ID, valueOf(s.Kind, e), now)
	}
}

// valueOf converts a physic.Env into the unit used for kind: °C or hPa.
func valueOf(kind env.Kind, e physic.Env) float32 {
	switch kind {
	case env.Temperature:
		return float32(e.Temperature.Celsius())
	case env.Pressure:
		pressurePa := float64(e.Pressure) / float64(physic.Pascal)
		return float32(pressurePa / 100.0) // 1 hPa = 100 Pa
	}
	return 0
}

// Close stops sampling, detaches the sensors, halts the device and closes the
// bus. Calling Close again returns nil.
func (d *PollingDriver) Close() error {
	d.closeMu.Lock()
	defer d.closeMu.Unlock()

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	stop, done := d.stop, d.done
	attached := make([]Sensor, 0, len(d.kinds))
	for _, s := range d.kinds {
		attached = append(attached, s)
	}
	d.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
	for _, s := range attached {
		d.mgr.Detach(s.ID)
	}

	var errs []error
	if err := d.dev.Halt(); err != nil {
		errs = append(errs, fmt.Errorf("%s halt: %w", d.name, err))
	}
	for _, c := range d.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s close: %w", d.name, err))
		}
	}
	return errors.Join(errs...)
}
