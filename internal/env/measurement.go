// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package env

import "time"

// Kind identifies which physical quantity a measurement carries.
type Kind int

const (
	Temperature Kind = iota // °C
	Pressure                // hPa
)

// Kinds lists every kind a sensor can report.
var Kinds = []Kind{Temperature, Pressure}

func (k Kind) String() string {
	switch k {
	case Temperature:
		return "temperature"
	case Pressure:
		return "pressure"
	}
	return "unknown"
}

// Measurement is a single reading delivered by a sensor. Values are never
// modified after delivery.
type Measurement struct {
	Kind       Kind      `json:"kind"`
	Value      float32   `json:"value"`
	ObservedAt time.Time `json:"observed_at"`
}
