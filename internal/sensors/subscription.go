// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/relabs-tech/weather_station/internal/env"
)

// Subscription keeps one listener registered on every attached sensor of a
// given kind, following sensors as they connect and disconnect.
type Subscription struct {
	mgr      *Manager
	kind     env.Kind
	listener Listener

	mu         sync.Mutex
	cbToken    CallbackToken
	registered map[string]ListenerToken
	closed     bool
}

// Subscribe starts delivering measurements of kind to l. Sensors already
// attached are picked up immediately.
func Subscribe(mgr *Manager, kind env.Kind, l Listener) *Subscription {
	s := &Subscription{
		mgr:        mgr,
		kind:       kind,
		listener:   l,
		registered: make(map[string]ListenerToken),
	}
	tok := mgr.RegisterDynamicCallback(s)

	s.mu.Lock()
	s.cbToken = tok
	s.mu.Unlock()
	return s
}

// Kind returns the sensor kind this subscription follows.
func (s *Subscription) Kind() env.Kind { return s.kind }

// OnSensorConnected registers the listener on matching sensors, once per sensor.
func (s *Subscription) OnSensorConnected(sensor Sensor) {
	if sensor.Kind != s.kind {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if _, ok := s.registered[sensor.ID]; ok {
		return
	}
	s.registered[sensor.ID] = s.mgr.RegisterListener(s.listener, sensor)
	log.Debug().
		Str("component", "sensors").
		Str("sensor", sensor.ID).
		Stringer("kind", sensor.Kind).
		Msg("listener registered")
}

// OnSensorDisconnected forgets the sensor; the manager has already dropped
// its listeners.
func (s *Subscription) OnSensorDisconnected(sensor Sensor) {
	s.mu.Lock()
	delete(s.registered, sensor.ID)
	s.mu.Unlock()
}

// Unsubscribe removes the dynamic callback and every listener. Safe to call
// more than once and on subscriptions that never saw a sensor.
func (s *Subscription) Unsubscribe() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.mgr.UnregisterDynamicCallback(s.cbToken)
	for id, tok := range s.registered {
		s.mgr.UnregisterListener(tok)
		delete(s.registered, id)
	}
}
