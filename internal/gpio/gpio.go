// Package gpio provides access to the X728 hat's GPIO lines with hardware
// abstraction. The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import "time"

// Board is the set of hat lines the supervisor reads and drives.
type Board interface {
	// ACDetect returns the level of the AC detect line.
	// High means mains power is lost.
	ACDetect() (bool, error)

	// Button returns whether the hat is holding the shutdown line high.
	Button() (bool, error)

	// SetFan drives the fan output.
	SetFan(on bool) error

	// SetPowerOff drives the power-off acknowledge output.
	SetPowerOff(on bool) error

	// Close releases GPIO resources, leaving both outputs low.
	Close() error
}

// Line names the inputs that generate edge notifications.
type Line string

const (
	LineACDetect Line = "AC_DETECT"
	LineButton   Line = "BUTTON"
)

// Edge is a level change observed on an input line.
type Edge struct {
	Line     Line
	Asserted bool // level after the edge
	Time     time.Time
}

// EdgeHandler receives edge notifications. It is called from the GPIO
// event goroutine and must not block.
type EdgeHandler func(Edge)

// Pins holds BCM line offsets on the chip.
type Pins struct {
	Chip       string
	ACDetect   int
	Button     int
	Boot       int // reserved, never driven; negative disables
	PowerOff   int
	Fan        int
	FanEnabled bool
}

// Default pin assignments for the X728 (BCM numbering).
const (
	DefaultChip     = "gpiochip0"
	DefaultACDetect = 6
	DefaultButton   = 5
	DefaultBoot     = 12
	DefaultPowerOff = 13
	DefaultFan      = 17
)

// DefaultPins returns the stock X728 wiring.
func DefaultPins() Pins {
	return Pins{
		Chip:       DefaultChip,
		ACDetect:   DefaultACDetect,
		Button:     DefaultButton,
		Boot:       DefaultBoot,
		PowerOff:   DefaultPowerOff,
		Fan:        DefaultFan,
		FanEnabled: true,
	}
}
