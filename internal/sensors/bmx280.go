// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/bmxx80"
	"periph.io/x/host/v3"
)

// OpenBMX280 opens a BMP280/BME280 on the named I2C bus. Readings surface
// through mgr once RegisterTemperatureSensor / RegisterPressureSensor are called.
func OpenBMX280(busName string, addr uint16, mgr *Manager, interval time.Duration) (*PollingDriver, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("BMx280 I2C open (%s): %w", busName, err)
	}

	dev, err := bmxx80.NewI2C(bus, addr, &bmxx80.DefaultOpts)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("BMx280 init at 0x%02X: %w", addr, err)
	}

	return NewPollingDriver("bmx280", dev, mgr, interval, bus), nil
}
