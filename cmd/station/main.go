// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/weather_station/internal/app"
	"github.com/relabs-tech/weather_station/internal/config"
)

func main() {
	configPath := flag.String("config", "weather_station.yaml", "path to the configuration file")
	mock := flag.Bool("mock", false, "run with simulated sensor and console peripherals")
	flag.Parse()

	log.Println("starting weather station")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunStation(*mock); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
