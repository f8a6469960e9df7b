// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Channel is the fixed channel name in every payload.
const Channel = "telemetry"

// Data carries the readings as decimal strings.
type Data struct {
	Temperature *string `json:"temperature,omitempty"`
	Pressure    *string `json:"pressure,omitempty"`
}

// Payload is the JSON document wrapped into each pub/sub message.
type Payload struct {
	DeviceID  string `json:"deviceId"`
	Channel   string `json:"channel"`
	Timestamp int64  `json:"timestamp"` // epoch millis
	Data      *Data  `json:"data,omitempty"`
}

// Message is one pub/sub message; Data is the base64 encoded Payload.
type Message struct {
	Data string `json:"data"`
}

// PublishRequest is the body sent to the topic.
type PublishRequest struct {
	Messages []Message `json:"messages"`
}

// TopicPath returns the fully qualified topic name.
func TopicPath(project, topic string) string {
	return fmt.Sprintf("projects/%s/topics/%s", project, topic)
}

// BuildPayload converts a sample into a payload. It returns false when the
// sample has no values, in which case nothing must be sent.
func BuildPayload(s Sample, deviceID string, now time.Time) (Payload, bool) {
	if s.Empty() {
		return Payload{}, false
	}
	if deviceID == "" {
		deviceID = s.DeviceID
	}

	data := &Data{}
	if s.Temperature != nil {
		v := formatReading(*s.Temperature)
		data.Temperature = &v
	}
	if s.Pressure != nil {
		v := formatReading(*s.Pressure)
		data.Pressure = &v
	}
	return Payload{
		DeviceID:  deviceID,
		Channel:   Channel,
		Timestamp: now.UnixMilli(),
		Data:      data,
	}, true
}

// formatReading renders the shortest decimal for v, keeping at least one
// fractional digit: 22 is sent as "22.0".
func formatReading(v float32) string {
	s := strconv.FormatFloat(float64(v), 'f', -1, 32)
	if strings.ContainsAny(s, ".NI") {
		return s
	}
	return s + ".0"
}

// EncodeRequest serializes p and wraps it into a single message request.
func EncodeRequest(p Payload) (PublishRequest, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return PublishRequest{}, fmt.Errorf("marshal telemetry payload: %w", err)
	}
	return PublishRequest{
		Messages: []Message{{Data: base64.StdEncoding.EncodeToString(raw)}},
	}, nil
}

// DecodeRequest unwraps every message of a publish request.
func DecodeRequest(body []byte) ([]Payload, error) {
	var req PublishRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("unmarshal publish request: %w", err)
	}
	out := make([]Payload, 0, len(req.Messages))
	for i, m := range req.Messages {
		raw, err := base64.StdEncoding.DecodeString(m.Data)
		if err != nil {
			return nil, fmt.Errorf("message %d: base64: %w", i, err)
		}
		var p Payload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		out = append(out, p)
	}
	return out, nil
}
