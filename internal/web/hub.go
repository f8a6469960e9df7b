// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package web

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/relabs-tech/weather_station/internal/env"
	"github.com/relabs-tech/weather_station/internal/gauge"
	"github.com/relabs-tech/weather_station/internal/station"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // the station serves a LAN dashboard
	},
}

// Frame is one message on the live feed.
type Frame struct {
	Type    string      `json:"type"` // weather, status
	Weather string      `json:"weather,omitempty"`
	Status  *StatusView `json:"status,omitempty"`
}

const (
	sendQueue    = 16
	writeTimeout = 5 * time.Second
)

type client struct {
	conn *websocket.Conn
	send chan Frame
}

// Hub fans frames out to every websocket client. It is the station's
// classification sink and observer.
type Hub struct {
	logger zerolog.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
	source  func() station.Status
}

func NewHub() *Hub {
	return &Hub{
		logger:  log.With().Str("component", "web").Logger(),
		clients: make(map[*client]struct{}),
	}
}

// SetSource sets where status frames come from. Frames are only sent once set.
func (h *Hub) SetSource(f func() station.Status) {
	h.mu.Lock()
	h.source = f
	h.mu.Unlock()
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// SetWeather is called with the gauge lock held, so it must not query the loop.
func (h *Hub) SetWeather(class gauge.WeatherClass) {
	h.broadcast(Frame{Type: "weather", Weather: class.String()})
}

func (h *Hub) MeasurementObserved(env.Measurement) {
	h.pushStatus()
}

func (h *Hub) ModeChanged(station.Mode) {
	h.pushStatus()
}

func (h *Hub) GaugeUpdated(int, gauge.WeatherClass) {}

func (h *Hub) PeripheralError(string, error) {}

func (h *Hub) pushStatus() {
	h.mu.Lock()
	src := h.source
	h.mu.Unlock()
	if src == nil {
		return
	}
	view := newStatusView(src())
	h.broadcast(Frame{Type: "status", Status: &view})
}

// broadcast never blocks; slow clients miss frames.
func (h *Hub) broadcast(f Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- f:
		default:
			h.logger.Debug().Str("remote", c.conn.RemoteAddr().String()).Msg("client queue full, dropping frame")
		}
	}
}

// ServeWS upgrades the request and streams frames until the client goes away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("websocket upgrade")
		return
	}
	c := &client{conn: conn, send: make(chan Frame, sendQueue)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	src := h.source
	h.mu.Unlock()
	h.logger.Info().
		Str("remote", conn.RemoteAddr().String()).
		Int("clients", h.Clients()).
		Msg("websocket client connected")

	done := make(chan struct{})
	go h.writer(c, done)

	// the writer is already draining; done covers a writer that gave up
	if src != nil {
		view := newStatusView(src())
		select {
		case c.send <- Frame{Type: "status", Status: &view}:
		case <-done:
		}
	}

	// reads only detect the close; clients have nothing to say
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	delete(h.clients, c)
	close(c.send)
	h.mu.Unlock()
	<-done
	conn.Close()
	h.logger.Info().
		Str("remote", conn.RemoteAddr().String()).
		Int("clients", h.Clients()).
		Msg("websocket client disconnected")
}

func (h *Hub) writer(c *client, done chan<- struct{}) {
	defer close(done)
	for f := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteJSON(f); err != nil {
			h.logger.Debug().Err(err).Msg("websocket write")
			c.conn.Close()
			return
		}
	}
}
