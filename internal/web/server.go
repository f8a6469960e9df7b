// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package web serves the station status, a live websocket feed and the
// Prometheus metrics.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	humanize "github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/relabs-tech/weather_station/internal/station"
)

// StatusView is the JSON shape of /api/status.
type StatusView struct {
	station.Status
	LastPublishedAgo string `json:"last_published_ago"`
}

func newStatusView(st station.Status) StatusView {
	v := StatusView{Status: st, LastPublishedAgo: "never"}
	if !st.LastPublished.IsZero() {
		v.LastPublishedAgo = humanize.Time(st.LastPublished)
	}
	return v
}

// Presser is a button that can be driven over HTTP, used in mock mode.
type Presser interface {
	Press() error
	Release() error
}

// Options configure a Server.
type Options struct {
	Addr    string
	Status  func() station.Status
	Hub     *Hub
	Metrics http.Handler
	// Button enables POST /api/button/{down|up} when set.
	Button Presser
}

type Server struct {
	opts   Options
	logger zerolog.Logger
	srv    *http.Server
}

func NewServer(opts Options) *Server {
	s := &Server{
		opts:   opts,
		logger: log.With().Str("component", "web").Logger(),
	}
	s.srv = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", s.handleStatus)
	if s.opts.Hub != nil {
		mux.HandleFunc("/ws", s.opts.Hub.ServeWS)
	}
	if s.opts.Metrics != nil {
		mux.Handle("GET /metrics", s.opts.Metrics)
	}
	if s.opts.Button != nil {
		mux.HandleFunc("POST /api/button/{action}", s.handleButton)
	}
	return mux
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.opts.Status == nil {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	s.writeJSON(w, newStatusView(s.opts.Status()))
}

func (s *Server) handleButton(w http.ResponseWriter, r *http.Request) {
	var err error
	switch action := r.PathValue("action"); action {
	case "down":
		err = s.opts.Button.Press()
	case "up":
		err = s.opts.Button.Release()
	default:
		http.Error(w, "action must be down or up", http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("json encode")
	}
}

// Start listens on the configured address and serves in the background.
// Listen errors are returned; serve errors are logged.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	s.logger.Info().Str("addr", ln.Addr().String()).Msg("web server listening")
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("web server stopped")
		}
	}()
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
