package logic

import (
	"time"

	"github.com/sweeney/x728-supervisor/internal/errors"
)

// Thresholds is the immutable decision configuration shared by the
// components. Validate it once before constructing anything.
type Thresholds struct {
	FanEnabled        bool
	FanOnC            int
	FanOffC           int
	BatteryLowPercent float64
	RebootPulseMin    time.Duration
	RebootPulseMax    time.Duration
}

// Validate returns a configuration error when the thresholds cannot work.
func (t Thresholds) Validate() error {
	if t.FanEnabled && t.FanOffC >= t.FanOnC {
		return errors.Newf(errors.CodeInvalidConfig,
			"fan off threshold (%dC) must be less than fan on threshold (%dC)", t.FanOffC, t.FanOnC)
	}
	if t.RebootPulseMin < 0 || t.RebootPulseMax < 0 {
		return errors.New(errors.CodeInvalidConfig, "reboot pulse bounds must not be negative")
	}
	if t.RebootPulseMin > t.RebootPulseMax {
		return errors.Newf(errors.CodeInvalidConfig,
			"reboot pulse minimum (%v) must not exceed maximum (%v)", t.RebootPulseMin, t.RebootPulseMax)
	}
	if t.BatteryLowPercent < 0 || t.BatteryLowPercent > 100 {
		return errors.Newf(errors.CodeInvalidConfig,
			"battery low threshold %.0f%% is outside 0-100", t.BatteryLowPercent)
	}
	return nil
}
