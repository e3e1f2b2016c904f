// Package battery reads the X728 fuel gauge (a MAX17040 compatible device)
// over I2C.
package battery

import (
	"context"

	"github.com/sweeney/x728-supervisor/internal/logic"
)

// Fuel gauge location and registers.
const (
	DefaultBus  = "1"
	DefaultAddr = 0x36

	RegVoltage  = 0x02
	RegCapacity = 0x04
)

// Reader returns battery readings.
type Reader interface {
	Read(ctx context.Context) (logic.BatteryReading, error)
	Close() error
}

// SwapWord converts an SMBus word (low byte first on the wire) into the
// gauge's big-endian register value.
func SwapWord(w uint16) uint16 {
	return w<<8 | w>>8
}

// VoltageFromWord converts the voltage register to volts. The low nibble
// is unused, and each remaining step is 1.25mV.
func VoltageFromWord(w uint16) float64 {
	return float64(w) * 1.25 / 1000 / 16
}

// CapacityFromWord converts the state-of-charge register to percent. The
// high byte is whole percent and the low byte 1/256ths. The gauge sometimes
// reports more than 100%, which is clamped.
func CapacityFromWord(w uint16) float64 {
	return ClampCapacity(float64(w) / 256)
}

// ClampCapacity limits a percentage to [0, 100].
func ClampCapacity(pct float64) float64 {
	switch {
	case pct > 100:
		return 100
	case pct < 0:
		return 0
	}
	return pct
}
