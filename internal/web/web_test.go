// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/weather_station/internal/env"
	"github.com/relabs-tech/weather_station/internal/gauge"
	"github.com/relabs-tech/weather_station/internal/peripheral"
	"github.com/relabs-tech/weather_station/internal/station"
)

var (
	_ station.Observer           = (*Hub)(nil)
	_ station.ClassificationSink = (*Hub)(nil)
	_ Presser                    = (*peripheral.VirtualButton)(nil)
)

func sampleStatus() station.Status {
	return station.Status{
		Mode:        "temperature",
		Temperature: &station.Reading{Value: 21.5, ObservedAt: time.Now()},
		LitLEDs:     3,
		Weather:     "cloudy",
	}
}

func TestStatusEndpoint(t *testing.T) {
	srv := httptest.NewServer(NewServer(Options{Status: sampleStatus}).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/status")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var doc map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		t.Fatal(err)
	}
	if doc["mode"] != "temperature" || doc["weather"] != "cloudy" || doc["last_published_ago"] != "never" {
		t.Errorf("status doc = %v", doc)
	}
	if _, ok := doc["pressure"]; ok {
		t.Error("pressure present without a reading")
	}
}

func TestStatusViewHumanizesPublishTime(t *testing.T) {
	st := sampleStatus()
	st.LastPublished = time.Now().Add(-2 * time.Minute)
	if v := newStatusView(st); v.LastPublishedAgo != "2 minutes ago" {
		t.Errorf("LastPublishedAgo = %q", v.LastPublishedAgo)
	}
}

type keyLog struct{ events []string }

func (k *keyLog) OnKeyDown(peripheral.KeyCode) { k.events = append(k.events, "down") }
func (k *keyLog) OnKeyUp(peripheral.KeyCode)   { k.events = append(k.events, "up") }

func TestButtonEndpoint(t *testing.T) {
	btn := peripheral.NewVirtualButton(peripheral.KeyA)
	keys := &keyLog{}
	btn.Register(keys)

	srv := httptest.NewServer(NewServer(Options{Button: btn}).Handler())
	defer srv.Close()

	tests := []struct {
		path string
		want int
	}{
		{"/api/button/down", http.StatusNoContent},
		{"/api/button/up", http.StatusNoContent},
		{"/api/button/sideways", http.StatusBadRequest},
	}
	for _, tt := range tests {
		resp, err := http.Post(srv.URL+tt.path, "", nil)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != tt.want {
			t.Errorf("POST %s = %d, want %d", tt.path, resp.StatusCode, tt.want)
		}
	}
	if strings.Join(keys.events, ",") != "down,up" {
		t.Errorf("key events = %v", keys.events)
	}

	// no button route without a button
	plain := httptest.NewServer(NewServer(Options{}).Handler())
	defer plain.Close()
	resp, err := http.Post(plain.URL+"/api/button/down", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("button route without button = %d, want 404", resp.StatusCode)
	}
}

func TestWebsocketFeed(t *testing.T) {
	hub := NewHub()
	hub.SetSource(sampleStatus)
	srv := httptest.NewServer(NewServer(Options{Hub: hub}).Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var first Frame
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatal(err)
	}
	if first.Type != "status" || first.Status == nil || first.Status.Mode != "temperature" {
		t.Errorf("first frame = %+v", first)
	}

	hub.SetWeather(gauge.Rainy)
	var weather Frame
	if err := conn.ReadJSON(&weather); err != nil {
		t.Fatal(err)
	}
	if weather.Type != "weather" || weather.Weather != "rainy" {
		t.Errorf("weather frame = %+v", weather)
	}

	hub.MeasurementObserved(env.Measurement{Kind: env.Temperature, Value: 20})
	var status Frame
	if err := conn.ReadJSON(&status); err != nil {
		t.Fatal(err)
	}
	if status.Type != "status" {
		t.Errorf("frame = %+v, want status", status)
	}
}

func TestWebsocketInitialStatusSurvivesFullQueue(t *testing.T) {
	hub := NewHub()
	// frames broadcast while the client is being set up fill its queue
	hub.SetSource(func() station.Status {
		for i := 0; i < 2*sendQueue; i++ {
			hub.SetWeather(gauge.Sunny)
		}
		return sampleStatus()
	})
	srv := httptest.NewServer(NewServer(Options{Hub: hub}).Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	for {
		var f Frame
		if err := conn.ReadJSON(&f); err != nil {
			t.Fatalf("no status frame: %v", err)
		}
		if f.Type == "status" {
			break
		}
	}
	if n := hub.Clients(); n != 1 {
		t.Errorf("Clients = %d, want 1", n)
	}

	conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never removed")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
