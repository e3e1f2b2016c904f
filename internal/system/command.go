package system

import (
	"os/exec"

	"github.com/sweeney/x728-supervisor/internal/errors"
)

// Command runs the classic sysvinit binaries.
type Command struct {
	PoweroffPath string
	RebootPath   string

	// run is overridable for tests.
	run func(name string, args ...string) error
}

// NewCommand returns a Command using /sbin/poweroff and /sbin/reboot.
func NewCommand() *Command {
	return &Command{
		PoweroffPath: "/sbin/poweroff",
		RebootPath:   "/sbin/reboot",
		run: func(name string, args ...string) error {
			return exec.Command(name, args...).Run()
		},
	}
}

func (c *Command) Shutdown() error {
	return errors.Wrap(errors.CodeSystemControl, "poweroff", c.run(c.PoweroffPath))
}

func (c *Command) Reboot() error {
	return errors.Wrap(errors.CodeSystemControl, "reboot", c.run(c.RebootPath))
}
