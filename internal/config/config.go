// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration values.
type Config struct {
	// DeviceID is reported in every telemetry payload. Defaults to the board name.
	DeviceID string `yaml:"device_id"`

	Board     BoardConfig     `yaml:"board"`
	Display   DisplayConfig   `yaml:"display"`
	LEDStrip  LEDStripConfig  `yaml:"led_strip"`
	Sensor    SensorConfig    `yaml:"sensor"`
	Button    ButtonConfig    `yaml:"button"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Web       WebConfig       `yaml:"web"`
	Log       LogConfig       `yaml:"log"`
}

// BoardConfig overrides the detected hardware identity and its bus/pin mapping.
// Empty fields fall back to the board defaults.
type BoardConfig struct {
	Name       string `yaml:"name"` // "rpi3" or "imx7d_pico"; empty = detect
	I2CBus     string `yaml:"i2c_bus"`
	SPIBus     string `yaml:"spi_bus"`
	ButtonPin  string `yaml:"button_pin"`
	LEDPin     string `yaml:"led_pin"`
	SpeakerPin string `yaml:"speaker_pin"`
}

type DisplayConfig struct {
	Driver  string `yaml:"driver"` // "ht16k33" or "ssd1306"
	I2CAddr uint16 `yaml:"i2c_addr"`
}

type LEDStripConfig struct {
	NumLEDs    int `yaml:"num_leds"`
	Brightness int `yaml:"brightness"` // 0-31, APA102 global brightness
}

type SensorConfig struct {
	I2CAddr      uint16        `yaml:"i2c_addr"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

type ButtonConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// TelemetryConfig configures the background publisher.
type TelemetryConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Transport string        `yaml:"transport"` // "mqtt", "redis" or "none"
	Project   string        `yaml:"project"`
	Topic     string        `yaml:"topic"`
	Interval  time.Duration `yaml:"interval"`
	Retain    bool          `yaml:"retain"` // keep last values between cycles instead of clearing them

	MQTT  MQTTConfig  `yaml:"mqtt"`
	Redis RedisConfig `yaml:"redis"`
}

type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type WebConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console" or "json"
}

// Package-level singleton, set once by InitGlobal and read through Get.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns a configuration with every default filled in.
func Default() *Config {
	return &Config{
		Display: DisplayConfig{
			Driver:  "ht16k33",
			I2CAddr: 0x70,
		},
		LEDStrip: LEDStripConfig{
			NumLEDs:    7,
			Brightness: 1,
		},
		Sensor: SensorConfig{
			I2CAddr:      0x77,
			PollInterval: time.Second,
		},
		Button: ButtonConfig{
			Debounce: 20 * time.Millisecond,
		},
		Telemetry: TelemetryConfig{
			Enabled:   true,
			Transport: "mqtt",
			Topic:     "weather",
			Interval:  time.Minute,
			MQTT: MQTTConfig{
				Broker:   "tcp://localhost:1883",
				ClientID: "weather-station",
			},
			Redis: RedisConfig{
				Addr: "localhost:6379",
			},
		},
		Web: WebConfig{
			Enabled: true,
			Addr:    ":8080",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads the configuration file on top of Default and validates the result.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration on top of Default.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks that required fields are set and values are in range.
func (c *Config) validate() error {
	switch c.Display.Driver {
	case "ht16k33", "ssd1306":
	default:
		return fmt.Errorf("display.driver must be ht16k33 or ssd1306, got %q", c.Display.Driver)
	}
	if c.LEDStrip.NumLEDs < 1 {
		return fmt.Errorf("led_strip.num_leds must be at least 1, got %d", c.LEDStrip.NumLEDs)
	}
	if c.LEDStrip.Brightness < 0 || c.LEDStrip.Brightness > 31 {
		return fmt.Errorf("led_strip.brightness must be 0-31, got %d", c.LEDStrip.Brightness)
	}
	if c.Sensor.PollInterval <= 0 {
		return errors.New("sensor.poll_interval must be positive")
	}
	if c.Button.Debounce < 0 {
		return errors.New("button.debounce cannot be negative")
	}

	t := c.Telemetry
	if !t.Enabled {
		return nil
	}
	if t.Project == "" {
		return errors.New("telemetry.project is required when telemetry is enabled")
	}
	if t.Topic == "" {
		return errors.New("telemetry.topic is required when telemetry is enabled")
	}
	if t.Interval <= 0 {
		return errors.New("telemetry.interval must be positive")
	}
	switch t.Transport {
	case "mqtt":
		if t.MQTT.Broker == "" {
			return errors.New("telemetry.mqtt.broker is required for the mqtt transport")
		}
	case "redis":
		if t.Redis.Addr == "" {
			return errors.New("telemetry.redis.addr is required for the redis transport")
		}
	case "none":
	default:
		return fmt.Errorf("telemetry.transport must be mqtt, redis or none, got %q", t.Transport)
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Only the first call loads anything; later calls return the first result.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
