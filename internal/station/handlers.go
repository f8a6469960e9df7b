// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package station

import (
	"sync"
	"time"

	"github.com/relabs-tech/weather_station/internal/env"
	"github.com/relabs-tech/weather_station/internal/gauge"
	"github.com/relabs-tech/weather_station/internal/peripheral"
	"github.com/relabs-tech/weather_station/internal/telemetry"
)

// ClassificationSink receives the weather class whenever it changes.
type ClassificationSink interface {
	SetWeather(class gauge.WeatherClass)
}

// Observer is notified of what the loop does. Used for metrics and the live feed.
type Observer interface {
	MeasurementObserved(m env.Measurement)
	GaugeUpdated(lit int, class gauge.WeatherClass)
	ModeChanged(mode Mode)
	PeripheralError(peripheral string, err error)
}

type observers []Observer

func (o observers) measurement(m env.Measurement) {
	for _, obs := range o {
		obs.MeasurementObserved(m)
	}
}

func (o observers) gauge(lit int, class gauge.WeatherClass) {
	for _, obs := range o {
		obs.GaugeUpdated(lit, class)
	}
}

func (o observers) mode(m Mode) {
	for _, obs := range o {
		obs.ModeChanged(m)
	}
}

func (o observers) peripheralError(name string, err error) {
	for _, obs := range o {
		obs.PeripheralError(name, err)
	}
}

// gaugeOutput drives the LED strip from pressure and pushes classification
// changes to the sink.
type gaugeOutput struct {
	mu     sync.Mutex
	gauge  *gauge.Gauge
	strip  peripheral.LEDStrip
	sink   ClassificationSink
	report func(peripheral string, err error)
	notify observers

	lastAt time.Time
	lit    int
	class  gauge.WeatherClass
	known  bool
	closed bool
}

func (g *gaugeOutput) update(m env.Measurement) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed || m.ObservedAt.Before(g.lastAt) {
		return
	}
	g.lastAt = m.ObservedAt

	if err := g.strip.Write(g.gauge.Colors(m.Value)); err != nil {
		g.report("led_strip", err)
	}
	g.lit = g.gauge.LitCount(m.Value)

	class := gauge.Classify(m.Value)
	changed := !g.known || class != g.class
	g.class, g.known = class, true
	if changed && g.sink != nil {
		g.sink.SetWeather(class)
	}
	g.notify.gauge(g.lit, class)
}

func (g *gaugeOutput) state() (lit int, class gauge.WeatherClass, known bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lit, g.class, g.known
}

func (g *gaugeOutput) shutdown() {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
}

// temperatureHandler receives temperature readings.
type temperatureHandler struct {
	modes  *ModeController
	buffer *telemetry.Buffer
	notify observers
}

func (h *temperatureHandler) OnMeasurement(m env.Measurement) {
	if !h.modes.Observe(m) {
		return
	}
	if h.buffer != nil {
		h.buffer.OnMeasurement(m)
	}
	h.notify.measurement(m)
}

// pressureHandler receives pressure readings and also feeds the gauge.
type pressureHandler struct {
	modes  *ModeController
	gauge  *gaugeOutput
	buffer *telemetry.Buffer
	notify observers
}

func (h *pressureHandler) OnMeasurement(m env.Measurement) {
	if !h.modes.Observe(m) {
		return
	}
	h.gauge.update(m)
	if h.buffer != nil {
		h.buffer.OnMeasurement(m)
	}
	h.notify.measurement(m)
}
