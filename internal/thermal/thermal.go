// Package thermal reads the CPU temperature from the kernel thermal zone.
package thermal

import (
	"os"
	"strconv"
	"strings"

	"github.com/sweeney/x728-supervisor/internal/errors"
)

// DefaultPath is the Raspberry Pi CPU thermal zone.
const DefaultPath = "/sys/class/thermal/thermal_zone0/temp"

// Reader returns whole degrees Celsius.
type Reader interface {
	ReadCelsius() (int, error)
}

// SysfsReader reads a thermal zone file.
type SysfsReader struct {
	Path string
}

// NewSysfsReader returns a reader for path, or DefaultPath when empty.
func NewSysfsReader(path string) *SysfsReader {
	if path == "" {
		path = DefaultPath
	}
	return &SysfsReader{Path: path}
}

// ReadCelsius reads and parses the zone. An unreadable file is a transport
// error; unparseable contents are a telemetry parse error.
func (r *SysfsReader) ReadCelsius() (int, error) {
	data, err := os.ReadFile(r.Path)
	if err != nil {
		return 0, errors.Wrap(errors.CodeTransport, "read "+r.Path, err)
	}
	return ParseCelsius(string(data))
}

// ParseCelsius parses a thermal zone value. The kernel reports
// millidegrees; values below 1000 are taken as whole degrees already.
// Fractions are truncated.
func ParseCelsius(s string) (int, error) {
	s = strings.TrimSpace(s)
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.Wrap(errors.CodeTelemetryParse, "parse temperature "+strconv.Quote(s), err)
	}
	if n >= 1000 || n <= -1000 {
		return n / 1000, nil
	}
	return n, nil
}
