// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package metrics exposes the station's activity as Prometheus collectors.
package metrics

import (
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/relabs-tech/weather_station/internal/env"
	"github.com/relabs-tech/weather_station/internal/gauge"
	"github.com/relabs-tech/weather_station/internal/station"
	"github.com/relabs-tech/weather_station/internal/telemetry"
)

// Collectors holds every station metric on its own registry.
type Collectors struct {
	registry *prometheus.Registry

	SensorEvents     *prometheus.CounterVec
	LastValue        *prometheus.GaugeVec
	PeripheralErrors *prometheus.CounterVec
	GaugeLit         prometheus.Gauge
	WeatherClass     prometheus.Gauge
	DisplayMode      prometheus.Gauge
	Publishes        *prometheus.CounterVec
	Goroutines       prometheus.Gauge
}

func New() *Collectors {
	c := &Collectors{
		registry: prometheus.NewRegistry(),

		SensorEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weather_sensor_events_total",
			Help: "Measurements accepted by the control loop",
		}, []string{"kind"}),

		LastValue: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "weather_last_value",
			Help: "Last accepted value per kind (°C, hPa)",
		}, []string{"kind"}),

		PeripheralErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weather_peripheral_errors_total",
			Help: "Failed peripheral operations",
		}, []string{"peripheral"}),

		GaugeLit: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "weather_gauge_lit_leds",
			Help: "LEDs currently lit on the pressure gauge",
		}),

		WeatherClass: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "weather_class",
			Help: "Weather class from pressure: 0 cloudy, 1 sunny, 2 rainy",
		}),

		DisplayMode: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "weather_display_mode",
			Help: "Display mode: 0 temperature, 1 pressure",
		}),

		Publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weather_telemetry_publish_total",
			Help: "Telemetry cycles by result",
		}, []string{"result"}),

		Goroutines: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "weather_goroutines",
			Help: "Current goroutine count",
		}),
	}

	c.registry.MustRegister(
		c.SensorEvents,
		c.LastValue,
		c.PeripheralErrors,
		c.GaugeLit,
		c.WeatherClass,
		c.DisplayMode,
		c.Publishes,
		c.Goroutines,
		collectors.NewGoCollector(),
	)
	return c
}

// Handler serves the registry in the Prometheus text format.
func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collectors) MeasurementObserved(m env.Measurement) {
	c.SensorEvents.WithLabelValues(m.Kind.String()).Inc()
	c.LastValue.WithLabelValues(m.Kind.String()).Set(float64(m.Value))
}

func (c *Collectors) GaugeUpdated(lit int, class gauge.WeatherClass) {
	c.GaugeLit.Set(float64(lit))
	c.WeatherClass.Set(float64(class))
}

func (c *Collectors) ModeChanged(mode station.Mode) {
	c.DisplayMode.Set(float64(mode))
}

func (c *Collectors) PeripheralError(peripheral string, _ error) {
	c.PeripheralErrors.WithLabelValues(peripheral).Inc()
}

// PublishOutcome counts one telemetry cycle.
func (c *Collectors) PublishOutcome(o telemetry.Outcome) {
	c.Publishes.WithLabelValues(o.String()).Inc()
}

// RunRuntimeSampler updates the goroutine gauge until stop is closed.
func (c *Collectors) RunRuntimeSampler(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		c.Goroutines.Set(float64(runtime.NumGoroutine()))
		select {
		case <-ticker.C:
		case <-stop:
			return
		}
	}
}
