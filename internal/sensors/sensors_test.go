// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"periph.io/x/conn/v3/physic"

	"github.com/relabs-tech/weather_station/internal/env"
)

type recorder struct {
	mu   sync.Mutex
	got  []env.Measurement
	seen chan struct{}
}

func newRecorder() *recorder {
	return &recorder{seen: make(chan struct{}, 64)}
}

func (r *recorder) OnMeasurement(m env.Measurement) {
	r.mu.Lock()
	r.got = append(r.got, m)
	r.mu.Unlock()
	select {
	case r.seen <- struct{}{}:
	default:
	}
}

func (r *recorder) all() []env.Measurement {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]env.Measurement(nil), r.got...)
}

var (
	tempSensor     = Sensor{ID: "t0", Kind: env.Temperature, Name: "temp"}
	pressureSensor = Sensor{ID: "p0", Kind: env.Pressure, Name: "pressure"}
)

func TestSubscribeBeforeAttach(t *testing.T) {
	mgr := NewManager()
	rec := newRecorder()
	sub := Subscribe(mgr, env.Temperature, rec)
	defer sub.Unsubscribe()
	if sub.Kind() != env.Temperature {
		t.Errorf("Kind = %v", sub.Kind())
	}

	mgr.Attach(tempSensor)
	mgr.Attach(pressureSensor)

	now := time.Now()
	mgr.Deliver("t0", 21.5, now)
	mgr.Deliver("p0", 1013, now)

	got := rec.all()
	if len(got) != 1 {
		t.Fatalf("got %d measurements, want 1: %+v", len(got), got)
	}
	if got[0].Kind != env.Temperature || got[0].Value != 21.5 || !got[0].ObservedAt.Equal(now) {
		t.Errorf("unexpected measurement %+v", got[0])
	}
}

func TestSubscribeAfterAttachRegistersOnce(t *testing.T) {
	mgr := NewManager()
	mgr.Attach(pressureSensor)
	mgr.Attach(pressureSensor) // duplicate attach is ignored

	rec := newRecorder()
	sub := Subscribe(mgr, env.Pressure, rec)
	defer sub.Unsubscribe()

	mgr.Deliver("p0", 990, time.Now())
	if n := len(rec.all()); n != 1 {
		t.Fatalf("got %d deliveries, want exactly 1", n)
	}
}

func TestDetachStopsDelivery(t *testing.T) {
	mgr := NewManager()
	rec := newRecorder()
	sub := Subscribe(mgr, env.Temperature, rec)
	defer sub.Unsubscribe()

	mgr.Attach(tempSensor)
	mgr.Detach("t0")
	if mgr.Deliver("t0", 20, time.Now()) {
		t.Error("Deliver reported success for a detached sensor")
	}
	if n := len(rec.all()); n != 0 {
		t.Errorf("got %d deliveries after detach", n)
	}

	// re-attaching registers again
	mgr.Attach(tempSensor)
	mgr.Deliver("t0", 20, time.Now())
	if n := len(rec.all()); n != 1 {
		t.Errorf("got %d deliveries after re-attach, want 1", n)
	}
}

func TestUnsubscribeIdempotent(t *testing.T) {
	mgr := NewManager()
	rec := newRecorder()

	// never connected
	idle := Subscribe(mgr, env.Pressure, rec)
	idle.Unsubscribe()
	idle.Unsubscribe()

	sub := Subscribe(mgr, env.Temperature, rec)
	mgr.Attach(tempSensor)
	sub.Unsubscribe()
	sub.Unsubscribe()

	mgr.Deliver("t0", 19, time.Now())
	if n := len(rec.all()); n != 0 {
		t.Errorf("got %d deliveries after unsubscribe", n)
	}

	// a sensor connecting later does not resurrect the subscription
	mgr.Attach(Sensor{ID: "t1", Kind: env.Temperature})
	mgr.Deliver("t1", 19, time.Now())
	if n := len(rec.all()); n != 0 {
		t.Errorf("got %d deliveries from late sensor", n)
	}
}

type fakeSenser struct {
	mu     sync.Mutex
	env    physic.Env
	err    error
	halted int
	senseN int
}

func (f *fakeSenser) Sense(e *physic.Env) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.senseN++
	if f.err != nil {
		return f.err
	}
	*e = f.env
	return nil
}

func (f *fakeSenser) Halt() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.halted++
	return nil
}

type fakeCloser struct{ n int }

func (c *fakeCloser) Close() error {
	c.n++
	return nil
}

func TestPollingDriverDelivers(t *testing.T) {
	dev := &fakeSenser{env: physic.Env{
		Temperature: physic.ZeroCelsius + 25*physic.Celsius,
		Pressure:    101325 * physic.Pascal,
	}}
	bus := &fakeCloser{}
	mgr := NewManager()
	drv := NewPollingDriver("fake", dev, mgr, 5*time.Millisecond, bus)

	temps, pressures := newRecorder(), newRecorder()
	st := Subscribe(mgr, env.Temperature, temps)
	sp := Subscribe(mgr, env.Pressure, pressures)
	defer st.Unsubscribe()
	defer sp.Unsubscribe()

	if err := drv.RegisterTemperatureSensor(); err != nil {
		t.Fatal(err)
	}
	if err := drv.RegisterPressureSensor(); err != nil {
		t.Fatal(err)
	}

	waitFor(t, temps.seen)
	waitFor(t, pressures.seen)

	if err := drv.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := drv.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if dev.halted != 1 || bus.n != 1 {
		t.Errorf("halted=%d bus closed=%d, want 1 and 1", dev.halted, bus.n)
	}
	if len(mgr.Sensors()) != 0 {
		t.Errorf("sensors still attached after Close: %v", mgr.Sensors())
	}

	tv := temps.all()[0].Value
	if math.Abs(float64(tv)-25) > 0.01 {
		t.Errorf("temperature = %v, want 25", tv)
	}
	pv := pressures.all()[0].Value
	if math.Abs(float64(pv)-1013.25) > 0.01 {
		t.Errorf("pressure = %v hPa, want 1013.25", pv)
	}

	if err := drv.RegisterPressureSensor(); !errors.Is(err, ErrDriverClosed) {
		t.Errorf("register after close: err = %v, want ErrDriverClosed", err)
	}
}

func TestPollingDriverSenseErrorIsSwallowed(t *testing.T) {
	dev := &fakeSenser{err: errors.New("bus timeout")}
	mgr := NewManager()
	drv := NewPollingDriver("fake", dev, mgr, time.Millisecond)
	rec := newRecorder()
	sub := Subscribe(mgr, env.Pressure, rec)
	defer sub.Unsubscribe()

	if err := drv.RegisterPressureSensor(); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)
	if err := drv.Close(); err != nil {
		t.Fatal(err)
	}
	if n := len(rec.all()); n != 0 {
		t.Errorf("got %d deliveries from failing sensor", n)
	}
}

func TestCloseWithoutRegistration(t *testing.T) {
	dev := &fakeSenser{}
	drv := NewPollingDriver("fake", dev, NewManager(), time.Second)
	if err := drv.Close(); err != nil {
		t.Fatal(err)
	}
	if dev.halted != 1 {
		t.Errorf("halted = %d, want 1", dev.halted)
	}
}

func TestMockDriverRange(t *testing.T) {
	m := &mockEnv{start: time.Now().Add(-time.Hour)}
	var e physic.Env
	if err := m.Sense(&e); err != nil {
		t.Fatal(err)
	}
	p := valueOf(env.Pressure, e)
	if p < 955 || p > 1045 {
		t.Errorf("mock pressure %v hPa outside expected sweep", p)
	}
	c := valueOf(env.Temperature, e)
	if c < 18 || c > 26 {
		t.Errorf("mock temperature %v °C outside expected range", c)
	}
}

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a measurement")
	}
}
