// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte("telemetry:\n  project: summer-of-weather\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if cfg.LEDStrip.NumLEDs != 7 {
		t.Errorf("NumLEDs = %d, want 7", cfg.LEDStrip.NumLEDs)
	}
	if cfg.Telemetry.Interval != time.Minute {
		t.Errorf("Interval = %v, want 1m", cfg.Telemetry.Interval)
	}
	if cfg.Telemetry.Topic != "weather" {
		t.Errorf("Topic = %q, want weather", cfg.Telemetry.Topic)
	}
	if cfg.Display.Driver != "ht16k33" {
		t.Errorf("Display.Driver = %q, want ht16k33", cfg.Display.Driver)
	}
}

func TestParseOverrides(t *testing.T) {
	doc := `
device_id: station-7
board:
  name: rpi3
  button_pin: GPIO16
display:
  driver: ssd1306
telemetry:
  transport: redis
  project: p
  topic: t
  interval: 30s
  redis:
    addr: redis:6379
`
	cfg, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.DeviceID != "station-7" {
		t.Errorf("DeviceID = %q", cfg.DeviceID)
	}
	if cfg.Board.ButtonPin != "GPIO16" {
		t.Errorf("ButtonPin = %q", cfg.Board.ButtonPin)
	}
	if cfg.Telemetry.Interval != 30*time.Second {
		t.Errorf("Interval = %v, want 30s", cfg.Telemetry.Interval)
	}
	if cfg.Telemetry.Redis.Addr != "redis:6379" {
		t.Errorf("Redis.Addr = %q", cfg.Telemetry.Redis.Addr)
	}
	// untouched sections keep defaults
	if cfg.Telemetry.MQTT.Broker != "tcp://localhost:1883" {
		t.Errorf("MQTT.Broker = %q", cfg.Telemetry.MQTT.Broker)
	}
}

func TestParseValidation(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{
			name:    "missing project",
			doc:     "telemetry:\n  enabled: true\n",
			wantErr: "telemetry.project",
		},
		{
			name:    "unknown transport",
			doc:     "telemetry:\n  project: p\n  transport: kafka\n",
			wantErr: "telemetry.transport",
		},
		{
			name:    "unknown display driver",
			doc:     "telemetry:\n  enabled: false\ndisplay:\n  driver: lcd\n",
			wantErr: "display.driver",
		},
		{
			name:    "brightness out of range",
			doc:     "telemetry:\n  enabled: false\nled_strip:\n  brightness: 40\n",
			wantErr: "brightness",
		},
		{
			name:    "zero interval",
			doc:     "telemetry:\n  project: p\n  interval: 0s\n",
			wantErr: "interval",
		},
		{
			name: "telemetry disabled needs no project",
			doc:  "telemetry:\n  enabled: false\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weather_station.yaml")
	if err := os.WriteFile(path, []byte("telemetry:\n  transport: none\n  project: p\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telemetry.Transport != "none" {
		t.Errorf("Transport = %q, want none", cfg.Telemetry.Transport)
	}
}

func TestLoadShippedExample(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "weather_station.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telemetry.Project != "summer-of-weather" {
		t.Errorf("Project = %q", cfg.Telemetry.Project)
	}
	if cfg.Display.I2CAddr != 0x70 || cfg.Sensor.I2CAddr != 0x77 {
		t.Errorf("addresses = 0x%02X, 0x%02X", cfg.Display.I2CAddr, cfg.Sensor.I2CAddr)
	}
	if cfg.Button.Debounce != 20*time.Millisecond {
		t.Errorf("Debounce = %v", cfg.Button.Debounce)
	}
}
