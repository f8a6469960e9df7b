// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"sync"
	"time"

	"github.com/relabs-tech/weather_station/internal/env"
)

// Sensor describes one dynamically attached sensor.
type Sensor struct {
	ID   string
	Kind env.Kind
	Name string
}

// Listener receives the measurements of the sensors it is registered on.
type Listener interface {
	OnMeasurement(m env.Measurement)
}

// DynamicCallback is told about sensors appearing and disappearing.
type DynamicCallback interface {
	OnSensorConnected(s Sensor)
	OnSensorDisconnected(s Sensor)
}

type (
	CallbackToken uint64
	ListenerToken uint64
)

type listenerReg struct {
	sensorID string
	listener Listener
}

// Manager is the registry drivers attach their sensors to and consumers
// listen on. Callbacks are always invoked without the manager lock held, on
// the goroutine that triggered them.
type Manager struct {
	mu        sync.RWMutex
	nextToken uint64
	sensors   map[string]Sensor
	callbacks map[CallbackToken]DynamicCallback
	listeners map[ListenerToken]listenerReg
}

func NewManager() *Manager {
	return &Manager{
		sensors:   make(map[string]Sensor),
		callbacks: make(map[CallbackToken]DynamicCallback),
		listeners: make(map[ListenerToken]listenerReg),
	}
}

// RegisterDynamicCallback registers cb and immediately reports every sensor
// that is already attached, so each sensor is announced to cb exactly once.
func (m *Manager) RegisterDynamicCallback(cb DynamicCallback) CallbackToken {
	m.mu.Lock()
	m.nextToken++
	tok := CallbackToken(m.nextToken)
	m.callbacks[tok] = cb
	attached := make([]Sensor, 0, len(m.sensors))
	for _, s := range m.sensors {
		attached = append(attached, s)
	}
	m.mu.Unlock()

	for _, s := range attached {
		cb.OnSensorConnected(s)
	}
	return tok
}

// UnregisterDynamicCallback is a no-op for unknown or already removed tokens.
func (m *Manager) UnregisterDynamicCallback(tok CallbackToken) {
	m.mu.Lock()
	delete(m.callbacks, tok)
	m.mu.Unlock()
}

// Attach makes s visible to dynamic callbacks. Attaching an ID twice is ignored.
func (m *Manager) Attach(s Sensor) {
	m.mu.Lock()
	if _, ok := m.sensors[s.ID]; ok {
		m.mu.Unlock()
		return
	}
	m.sensors[s.ID] = s
	cbs := m.snapshotCallbacks()
	m.mu.Unlock()

	for _, cb := range cbs {
		cb.OnSensorConnected(s)
	}
}

// Detach removes the sensor and every listener registered on it.
func (m *Manager) Detach(id string) {
	m.mu.Lock()
	s, ok := m.sensors[id]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.sensors, id)
	for tok, reg := range m.listeners {
		if reg.sensorID == id {
			delete(m.listeners, tok)
		}
	}
	cbs := m.snapshotCallbacks()
	m.mu.Unlock()

	for _, cb := range cbs {
		cb.OnSensorDisconnected(s)
	}
}

// RegisterListener subscribes l to the measurements of s.
func (m *Manager) RegisterListener(l Listener, s Sensor) ListenerToken {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextToken++
	tok := ListenerToken(m.nextToken)
	m.listeners[tok] = listenerReg{sensorID: s.ID, listener: l}
	return tok
}

// UnregisterListener is a no-op for unknown or already removed tokens.
func (m *Manager) UnregisterListener(tok ListenerToken) {
	m.mu.Lock()
	delete(m.listeners, tok)
	m.mu.Unlock()
}

// Deliver hands a reading of sensor id to its listeners. It returns false if
// the sensor is not attached.
func (m *Manager) Deliver(id string, value float32, at time.Time) bool {
	m.mu.RLock()
	s, ok := m.sensors[id]
	if !ok {
		m.mu.RUnlock()
		return false
	}
	var targets []Listener
	for _, reg := range m.listeners {
		if reg.sensorID == id {
			targets = append(targets, reg.listener)
		}
	}
	m.mu.RUnlock()

	meas := env.Measurement{Kind: s.Kind, Value: value, ObservedAt: at}
	for _, l := range targets {
		l.OnMeasurement(meas)
	}
	return true
}

// Sensors returns the attached sensors.
func (m *Manager) Sensors() []Sensor {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Sensor, 0, len(m.sensors))
	for _, s := range m.sensors {
		out = append(out, s)
	}
	return out
}

func (m *Manager) snapshotCallbacks() []DynamicCallback {
	cbs := make([]DynamicCallback, 0, len(m.callbacks))
	for _, cb := range m.callbacks {
		cbs = append(cbs, cb)
	}
	return cbs
}
