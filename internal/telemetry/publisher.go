// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// ErrClosed is returned by Start after Close.
	ErrClosed = errors.New("telemetry publisher closed")
	// ErrNoData is returned by PublishOnce when there was nothing to send.
	ErrNoData = errors.New("no telemetry data")
)

// DefaultInterval is the publish cadence.
const DefaultInterval = 60 * time.Second

// Outcome is the result of one publish cycle.
type Outcome int

const (
	Published Outcome = iota
	SkippedOffline
	SkippedNoData
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Published:
		return "published"
	case SkippedOffline:
		return "offline"
	case SkippedNoData:
		return "no_data"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Options configure a Publisher.
type Options struct {
	Project  string
	Topic    string
	DeviceID string
	Interval time.Duration
	// Retain keeps values between cycles instead of clearing them on read.
	Retain bool
	// Timeout bounds a single publish. Defaults to half the interval.
	Timeout time.Duration
	// OnOutcome, if set, is called after every cycle.
	OnOutcome func(Outcome)
}

// Publisher drains a Buffer on a fixed cadence from its own goroutine.
type Publisher struct {
	buf       *Buffer
	transport Transport
	topic     string
	opts      Options
	logger    zerolog.Logger

	mu        sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
	closed    bool
	lastSent  time.Time
	closeOnce sync.Once
	closeErr  error
}

func NewPublisher(buf *Buffer, transport Transport, opts Options) *Publisher {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = opts.Interval / 2
	}
	return &Publisher{
		buf:       buf,
		transport: transport,
		topic:     TopicPath(opts.Project, opts.Topic),
		opts:      opts,
		logger:    log.With().Str("component", "telemetry").Logger(),
	}
}

// Topic returns the fully qualified topic the publisher sends to.
func (p *Publisher) Topic() string { return p.topic }

// Start schedules the recurring publish; the first cycle runs immediately.
// Starting a running publisher is a no-op.
func (p *Publisher) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	if p.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.run(ctx, p.done)

	p.logger.Info().Str("topic", p.topic).Dur("interval", p.opts.Interval).Msg("publisher started")
	return nil
}

// Stop cancels the schedule and waits for an in-flight cycle to finish.
// The transport stays open for a later Start.
func (p *Publisher) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	p.logger.Info().Msg("publisher stopped")
}

// Close stops the schedule and releases the transport exactly once.
func (p *Publisher) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.Stop()
	p.closeOnce.Do(func() {
		if p.transport != nil {
			p.closeErr = p.transport.Close()
		}
	})
	return p.closeErr
}

// LastPublished returns the time of the last successful publish, or the zero time.
func (p *Publisher) LastPublished() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastSent
}

func (p *Publisher) run(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()

	for {
		p.cycle(ctx)
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

func (p *Publisher) cycle(ctx context.Context) {
	outcome, err := p.PublishOnce(ctx)
	switch {
	case errors.Is(err, ErrNoData):
		p.logger.Debug().Msg("nothing to publish")
	case err != nil:
		p.logger.Error().Err(err).Msg("publish failed")
	case outcome == SkippedOffline:
		p.logger.Debug().Msg("network unreachable, skipping cycle")
	default:
		p.logger.Debug().Str("topic", p.topic).Msg("telemetry published")
	}
	if p.opts.OnOutcome != nil {
		p.opts.OnOutcome(outcome)
	}
}

// PublishOnce runs a single cycle: reachability check, read the buffer,
// build, encode and send.
func (p *Publisher) PublishOnce(ctx context.Context) (Outcome, error) {
	if p.transport == nil {
		return Failed, errors.New("no telemetry transport")
	}
	if r, ok := p.transport.(Reachability); ok && !r.Reachable(ctx) {
		return SkippedOffline, nil
	}

	var sample Sample
	if p.opts.Retain {
		sample = p.buf.Snapshot()
	} else {
		sample = p.buf.Drain()
	}

	now := time.Now()
	payload, ok := BuildPayload(sample, p.opts.DeviceID, now)
	if !ok {
		return SkippedNoData, ErrNoData
	}
	req, err := EncodeRequest(payload)
	if err != nil {
		return Failed, err
	}

	sendCtx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()
	if err := p.transport.Publish(sendCtx, p.topic, req); err != nil {
		return Failed, fmt.Errorf("publish %s: %w", p.topic, err)
	}

	p.mu.Lock()
	p.lastSent = now
	p.mu.Unlock()
	return Published, nil
}
