package system

import (
	"github.com/godbus/dbus/v5"
	"github.com/rs/zerolog"

	"github.com/sweeney/x728-supervisor/internal/errors"
)

const (
	logindDest = "org.freedesktop.login1"
	logindPath = dbus.ObjectPath("/org/freedesktop/login1")

	methodPowerOff = "org.freedesktop.login1.Manager.PowerOff"
	methodReboot   = "org.freedesktop.login1.Manager.Reboot"
)

// Logind asks systemd-logind over the system bus.
type Logind struct {
	fallback Control
	log      zerolog.Logger

	// call is overridable for tests.
	call func(method string) error
}

// NewLogind returns a Logind control. fallback may be nil.
func NewLogind(fallback Control, log zerolog.Logger) *Logind {
	return &Logind{fallback: fallback, log: log, call: callLogind}
}

func callLogind(method string) error {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return err
	}
	defer conn.Close()

	// false: do not prompt for interactive authorization.
	return conn.Object(logindDest, logindPath).Call(method, 0, false).Err
}

func (l *Logind) Shutdown() error {
	return l.invoke(methodPowerOff, "poweroff", func(c Control) error { return c.Shutdown() })
}

func (l *Logind) Reboot() error {
	return l.invoke(methodReboot, "reboot", func(c Control) error { return c.Reboot() })
}

func (l *Logind) invoke(method, op string, fallback func(Control) error) error {
	err := l.call(method)
	if err == nil {
		return nil
	}
	if l.fallback == nil {
		return errors.Wrap(errors.CodeSystemControl, op, err)
	}
	l.log.Warn().Err(err).Str("method", method).Msg("logind call failed, falling back to command")
	return fallback(l.fallback)
}
