// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/relabs-tech/weather_station/internal/config"
	"github.com/relabs-tech/weather_station/internal/logging"
	"github.com/relabs-tech/weather_station/internal/metrics"
	"github.com/relabs-tech/weather_station/internal/peripheral"
	"github.com/relabs-tech/weather_station/internal/sensors"
	"github.com/relabs-tech/weather_station/internal/station"
	"github.com/relabs-tech/weather_station/internal/telemetry"
	"github.com/relabs-tech/weather_station/internal/web"
)

// RunStation opens the hardware (or the simulated set when mock is true),
// runs the control loop and the web server, and tears everything down on
// SIGINT/SIGTERM.
func RunStation(mock bool) error {
	cfg := config.Get()
	if cfg == nil {
		return errors.New("config not initialized")
	}
	logging.Setup(cfg.Log)
	logger := logging.Component("app")

	var (
		hw       peripheral.Hardware
		button   web.Presser
		deviceID = cfg.DeviceID
	)
	if mock {
		sim := peripheral.NewSimulated(cfg)
		hw, button = sim, sim.Button
		if deviceID == "" {
			deviceID = "mock"
		}
		logger.Info().Msg("running with simulated hardware")
	} else {
		p, err := peripheral.OpenHardware(cfg)
		if err != nil {
			return fmt.Errorf("hardware: %w", err)
		}
		hw = p
		if deviceID == "" {
			deviceID = p.Board.Name
		}
		logger.Info().
			Str("board", p.Board.Name).
			Str("i2c", p.Board.I2CBus).
			Str("spi", p.Board.SPIBus).
			Msg("board resolved")
	}

	m := metrics.New()
	hub := web.NewHub()
	opts := station.Options{
		DeviceID:   deviceID,
		GaugeSize:  cfg.LEDStrip.NumLEDs,
		Brightness: cfg.LEDStrip.Brightness,
		Sink:       hub,
		Observers:  []station.Observer{m, hub},
	}
	if cfg.Telemetry.Enabled {
		tr, err := telemetry.NewTransport(cfg.Telemetry)
		if err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}
		if tr != nil {
			opts.Transport = tr
			opts.Telemetry = telemetry.Options{
				Project:   cfg.Telemetry.Project,
				Topic:     cfg.Telemetry.Topic,
				Interval:  cfg.Telemetry.Interval,
				Retain:    cfg.Telemetry.Retain,
				OnOutcome: m.PublishOutcome,
			}
		}
	}

	loop, err := station.New(hw, sensors.NewManager(), opts)
	if err != nil {
		return fmt.Errorf("start station: %w", err)
	}
	hub.SetSource(loop.Status)

	stopSampler := make(chan struct{})
	go m.RunRuntimeSampler(15*time.Second, stopSampler)

	var srv *web.Server
	if cfg.Web.Enabled {
		srv = web.NewServer(web.Options{
			Addr:    cfg.Web.Addr,
			Status:  loop.Status,
			Hub:     hub,
			Metrics: m.Handler(),
			Button:  button,
		})
		if err := srv.Start(); err != nil {
			close(stopSampler)
			loop.Close()
			return fmt.Errorf("web server: %w", err)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info().Stringer("signal", sig).Msg("shutting down")

	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn().Err(err).Msg("web server shutdown")
		}
		cancel()
	}
	close(stopSampler)

	// teardown failures are already logged step by step
	if err := loop.Close(); err != nil {
		logger.Warn().Err(err).Msg("teardown finished with errors")
	}
	return nil
}
