// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package telemetry buffers the latest readings and periodically ships them
// to a pub/sub topic.
package telemetry

import (
	"sync"
	"time"

	"github.com/relabs-tech/weather_station/internal/env"
)

// Sample holds the latest known values. Nil means not observed since the
// last drain.
type Sample struct {
	Temperature *float32
	Pressure    *float32
	DeviceID    string
	CapturedAt  time.Time
}

// Empty reports whether neither value is present.
func (s Sample) Empty() bool {
	return s.Temperature == nil && s.Pressure == nil
}

// Buffer is a single-slot latest-value holder shared by the sensor callbacks
// and the publisher. Each field keeps the observation time of its value so
// an older reading never replaces a newer one.
type Buffer struct {
	mu     sync.Mutex
	sample Sample
	seen   [2]time.Time // indexed by env.Kind, kept across drains
	now    func() time.Time
}

func NewBuffer(deviceID string) *Buffer {
	return &Buffer{
		sample: Sample{DeviceID: deviceID},
		now:    time.Now,
	}
}

// Record overwrites the field for kind and stamps the current time.
func (b *Buffer) Record(kind env.Kind, value float32) {
	b.record(kind, value, time.Time{})
}

// OnMeasurement records m unless a newer reading of the same kind is already
// held. It lets the buffer be subscribed directly to sensor events.
func (b *Buffer) OnMeasurement(m env.Measurement) {
	b.record(m.Kind, m.Value, m.ObservedAt)
}

func (b *Buffer) record(kind env.Kind, value float32, observed time.Time) {
	if kind != env.Temperature && kind != env.Pressure {
		return
	}
	v := value

	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()
	if observed.IsZero() {
		observed = now
	}
	if observed.Before(b.seen[kind]) {
		return
	}
	b.seen[kind] = observed
	if kind == env.Temperature {
		b.sample.Temperature = &v
	} else {
		b.sample.Pressure = &v
	}
	b.sample.CapturedAt = now
}

// Drain returns the current sample and clears its values.
func (b *Buffer) Drain() Sample {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.sample
	b.sample.Temperature = nil
	b.sample.Pressure = nil
	return s
}

// Snapshot returns the current sample without clearing it.
func (b *Buffer) Snapshot() Sample {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sample
}
