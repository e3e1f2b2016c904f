// Package system hands shutdown and reboot requests to the host OS.
package system

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Control is the host power capability. Under normal operation neither
// method returns control to the caller for long: the host goes down.
type Control interface {
	Shutdown() error
	Reboot() error
}

// Methods accepted by New.
const (
	MethodLogind  = "logind"
	MethodCommand = "command"
)

// New returns the Control for method. The logind control falls back to the
// command control when the bus call fails.
func New(method string, log zerolog.Logger) (Control, error) {
	switch method {
	case MethodCommand:
		return NewCommand(), nil
	case MethodLogind, "":
		return NewLogind(NewCommand(), log), nil
	}
	return nil, fmt.Errorf("unknown system control method %q", method)
}
