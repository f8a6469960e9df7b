// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package station

import (
	"context"
	"time"

	"github.com/relabs-tech/weather_station/internal/peripheral"
)

// Startup chirp: a 440 Hz to 1760 Hz slide, played six times.
const (
	toneDelay    = 300 * time.Millisecond
	toneFrom     = 440.0
	toneTo       = 1760.0
	toneSlide    = 50 * time.Millisecond
	toneSteps    = 10
	toneRepeats  = 5
	toneStepWait = toneSlide / toneSteps
)

// toneFrequencies returns the frequency of every step of one slide.
func toneFrequencies() []float64 {
	f := make([]float64, toneSteps)
	for i := range f {
		f[i] = toneFrom + (toneTo-toneFrom)*float64(i)/float64(toneSteps-1)
	}
	return f
}

// playStartupTone runs the chirp until done or ctx is cancelled, then silences
// the speaker. Errors end the sequence early.
func playStartupTone(ctx context.Context, tone peripheral.ToneGenerator, report func(string, error)) {
	defer func() {
		if err := tone.Stop(); err != nil {
			report("speaker", err)
		}
	}()

	if !sleepCtx(ctx, toneDelay) {
		return
	}
	slide := toneFrequencies()
	for run := 0; run <= toneRepeats; run++ {
		for _, hz := range slide {
			if err := tone.Play(hz); err != nil {
				report("speaker", err)
				return
			}
			if !sleepCtx(ctx, toneStepWait) {
				return
			}
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
