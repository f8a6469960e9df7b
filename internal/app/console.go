// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	humanize "github.com/dustin/go-humanize"
	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/weather_station/internal/config"
	"github.com/relabs-tech/weather_station/internal/logging"
	"github.com/relabs-tech/weather_station/internal/telemetry"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Width(12)
	valueStyle  = lipgloss.NewStyle().Bold(true)
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("6")).Padding(0, 1)
)

// renderPayload formats one telemetry payload for the terminal.
func renderPayload(p telemetry.Payload, received time.Time) string {
	at := time.UnixMilli(p.Timestamp)
	rows := []string{
		headerStyle.Render(fmt.Sprintf("%s  [%s]", p.DeviceID, p.Channel)),
		row("captured", fmt.Sprintf("%s (%s)", at.Format("15:04:05"), humanize.RelTime(at, received, "ago", "from now"))),
	}
	if p.Data != nil && p.Data.Temperature != nil {
		rows = append(rows, row("temperature", *p.Data.Temperature+" °C"))
	}
	if p.Data != nil && p.Data.Pressure != nil {
		rows = append(rows, row("pressure", *p.Data.Pressure+" hPa"))
	}
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), valueStyle.Render(value))
}

// RunConsole subscribes to the station's MQTT telemetry topic and prints
// every decoded payload until interrupted.
func RunConsole() error {
	cfg := config.Get()
	if cfg == nil {
		return errors.New("config not initialized")
	}
	logging.Setup(cfg.Log)
	logger := logging.Component("console")

	if cfg.Telemetry.Transport != "mqtt" {
		return fmt.Errorf("console needs the mqtt transport, config has %q", cfg.Telemetry.Transport)
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Telemetry.MQTT.Broker).
		SetClientID(cfg.Telemetry.MQTT.ClientID + "-console")

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	logger.Info().Str("broker", cfg.Telemetry.MQTT.Broker).Msg("connected to MQTT broker")

	topic := telemetry.TopicPath(cfg.Telemetry.Project, cfg.Telemetry.Topic)
	token := client.Subscribe(topic, 1, func(_ mqtt.Client, msg mqtt.Message) {
		payloads, err := telemetry.DecodeRequest(msg.Payload())
		if err != nil {
			logger.Error().Err(err).Msg("telemetry decode")
			return
		}
		now := time.Now()
		for _, p := range payloads {
			fmt.Println(renderPayload(p, now))
		}
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	logger.Info().Str("topic", topic).Msg("subscribed")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info().Msg("shutting down")
	client.Disconnect(250)
	return nil
}
