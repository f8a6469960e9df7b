// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package peripheral

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

func openPin(name string) (gpio.PinIO, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("GPIO pin %q not found", name)
	}
	return p, nil
}

// OutputLine is a GPIO output. Lines start active-low until SetActiveHigh.
type OutputLine struct {
	mu         sync.Mutex
	pin        gpio.PinIO
	activeHigh bool
	closed     bool
}

// OpenGPIOLine opens the named pin.
func OpenGPIOLine(name string) (*OutputLine, error) {
	p, err := openPin(name)
	if err != nil {
		return nil, err
	}
	return &OutputLine{pin: p}, nil
}

func (l *OutputLine) SetDirectionOut(initialLow bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	level := gpio.High
	if initialLow {
		level = gpio.Low
	}
	if err := l.pin.Out(level); err != nil {
		return fmt.Errorf("%s out: %w", l.pin.Name(), err)
	}
	return nil
}

func (l *OutputLine) SetActiveHigh() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	l.activeHigh = true
	return nil
}

func (l *OutputLine) SetValue(active bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	level := gpio.Level(active == l.activeHigh)
	if err := l.pin.Out(level); err != nil {
		return fmt.Errorf("%s set %v: %w", l.pin.Name(), level, err)
	}
	return nil
}

func (l *OutputLine) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.pin.Halt()
}

// edgePoll bounds each WaitForEdge so Close is noticed promptly.
const edgePoll = 100 * time.Millisecond

// GPIOButton reports presses of a pulled-up push button wired to ground.
type GPIOButton struct {
	pin      gpio.PinIO
	code     KeyCode
	debounce time.Duration
	logger   zerolog.Logger

	mu      sync.Mutex
	stop    chan struct{}
	done    chan struct{}
	closed  bool
	started bool
}

// OpenButton configures the named pin as a pulled-up input watching both edges.
func OpenButton(name string, code KeyCode, debounce time.Duration) (*GPIOButton, error) {
	p, err := openPin(name)
	if err != nil {
		return nil, err
	}
	if err := p.In(gpio.PullUp, gpio.BothEdges); err != nil {
		return nil, fmt.Errorf("%s input: %w", name, err)
	}
	return &GPIOButton{
		pin:      p,
		code:     code,
		debounce: debounce,
		logger:   log.With().Str("component", "button").Str("pin", name).Logger(),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Register starts edge watching. Only the first handler is used.
func (b *GPIOButton) Register(h KeyHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	if b.started {
		return fmt.Errorf("button %s already has a handler", b.code)
	}
	b.started = true
	go b.watch(h)
	return nil
}

func (b *GPIOButton) watch(h KeyHandler) {
	defer close(b.done)

	pressed := b.pin.Read() == gpio.Low
	for {
		select {
		case <-b.stop:
			return
		default:
		}

		if !b.pin.WaitForEdge(edgePoll) {
			continue
		}
		if b.debounce > 0 {
			time.Sleep(b.debounce)
		}
		now := b.pin.Read() == gpio.Low
		if now == pressed {
			continue
		}
		pressed = now

		b.logger.Debug().Bool("pressed", pressed).Msg("button edge")
		if pressed {
			h.OnKeyDown(b.code)
		} else {
			h.OnKeyUp(b.code)
		}
	}
}

// Close stops the watcher and waits for it to exit before releasing the pin.
func (b *GPIOButton) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	started := b.started
	b.mu.Unlock()

	close(b.stop)
	if started {
		<-b.done
	}
	return b.pin.Halt()
}

// PWMSpeaker is a piezo speaker driven by a 50% duty square wave.
type PWMSpeaker struct {
	mu     sync.Mutex
	pin    gpio.PinIO
	closed bool
}

// OpenSpeaker opens the named PWM capable pin.
func OpenSpeaker(name string) (*PWMSpeaker, error) {
	p, err := openPin(name)
	if err != nil {
		return nil, err
	}
	return &PWMSpeaker{pin: p}, nil
}

func (s *PWMSpeaker) Play(frequencyHz float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	f := physic.Frequency(frequencyHz * float64(physic.Hertz))
	if err := s.pin.PWM(gpio.DutyHalf, f); err != nil {
		return fmt.Errorf("%s PWM %s: %w", s.pin.Name(), f, err)
	}
	return nil
}

func (s *PWMSpeaker) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return s.pin.Out(gpio.Low)
}

func (s *PWMSpeaker) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.pin.Halt()
}
