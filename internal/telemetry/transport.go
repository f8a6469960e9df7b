// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/relabs-tech/weather_station/internal/config"
)

// Transport ships an encoded request to a topic.
type Transport interface {
	Publish(ctx context.Context, topic string, req PublishRequest) error
	Close() error
}

// Reachability is implemented by transports that can tell whether the
// backend is currently reachable. The publisher skips a cycle when it is not.
type Reachability interface {
	Reachable(ctx context.Context) bool
}

// MQTTTransport publishes requests as JSON on an MQTT topic.
type MQTTTransport struct {
	client mqtt.Client
	broker string
}

// connectWait bounds how long NewMQTTTransport waits for the first connection.
// The client keeps retrying in the background afterwards.
const connectWait = 5 * time.Second

func NewMQTTTransport(cfg config.MQTTConfig) *MQTTTransport {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(10 * time.Second)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectWait) {
		log.Warn().Str("component", "telemetry").Str("broker", cfg.Broker).
			Msg("MQTT broker not reachable yet, retrying in background")
	} else if err := token.Error(); err != nil {
		log.Warn().Str("component", "telemetry").Err(err).Msg("MQTT connect failed")
	} else {
		log.Info().Str("component", "telemetry").Str("broker", cfg.Broker).Msg("connected to MQTT broker")
	}
	return &MQTTTransport{client: client, broker: cfg.Broker}
}

func (t *MQTTTransport) Reachable(context.Context) bool {
	return t.client.IsConnectionOpen()
}

func (t *MQTTTransport) Publish(ctx context.Context, topic string, req PublishRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal publish request: %w", err)
	}
	token := t.client.Publish(topic, 1, false, body)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("MQTT publish to %s: %w", topic, ctx.Err())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("MQTT publish to %s: %w", topic, err)
	}
	return nil
}

func (t *MQTTTransport) Close() error {
	t.client.Disconnect(250)
	return nil
}

// RedisTransport publishes requests on a Redis pub/sub channel named after the topic.
type RedisTransport struct {
	client *redis.Client
}

func NewRedisTransport(cfg config.RedisConfig) *RedisTransport {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisTransport{client: client}
}

func (t *RedisTransport) Reachable(ctx context.Context) bool {
	return t.client.Ping(ctx).Err() == nil
}

func (t *RedisTransport) Publish(ctx context.Context, topic string, req PublishRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal publish request: %w", err)
	}
	if err := t.client.Publish(ctx, topic, body).Err(); err != nil {
		return fmt.Errorf("redis publish to %s: %w", topic, err)
	}
	return nil
}

func (t *RedisTransport) Close() error {
	return t.client.Close()
}

// NewTransport builds the transport named in cfg. "none" returns nil.
func NewTransport(cfg config.TelemetryConfig) (Transport, error) {
	switch cfg.Transport {
	case "mqtt":
		return NewMQTTTransport(cfg.MQTT), nil
	case "redis":
		return NewRedisTransport(cfg.Redis), nil
	case "none", "":
		return nil, nil
	}
	return nil, fmt.Errorf("unknown telemetry transport %q", cfg.Transport)
}
