package battery

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/sweeney/x728-supervisor/internal/errors"
	"github.com/sweeney/x728-supervisor/internal/logic"
)

// Config selects the gauge and the transfer policy.
type Config struct {
	Bus     string
	Addr    uint16
	Retries int     // extra attempts per register read
	Rate    float64 // max transactions per second, 0 = unlimited
}

// I2CReader reads the gauge through periph.io.
type I2CReader struct {
	bus     i2c.BusCloser
	dev     *i2c.Dev
	retries int
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewI2CReader opens the bus and binds the gauge address.
func NewI2CReader(cfg Config, log zerolog.Logger) (*I2CReader, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(errors.CodeTransport, "periph host init", err)
	}
	bus, err := i2creg.Open(cfg.Bus)
	if err != nil {
		return nil, errors.Wrap(errors.CodeTransport, "open i2c bus "+cfg.Bus, err)
	}
	return newReader(bus, cfg, log), nil
}

func newReader(bus i2c.BusCloser, cfg Config, log zerolog.Logger) *I2CReader {
	limit := rate.Inf
	if cfg.Rate > 0 {
		limit = rate.Limit(cfg.Rate)
	}
	return &I2CReader{
		bus:     bus,
		dev:     &i2c.Dev{Bus: bus, Addr: cfg.Addr},
		retries: cfg.Retries,
		limiter: rate.NewLimiter(limit, 2),
		log:     log,
	}
}

// Read samples voltage and capacity.
func (r *I2CReader) Read(ctx context.Context) (logic.BatteryReading, error) {
	v, err := r.readWord(ctx, RegVoltage)
	if err != nil {
		return logic.BatteryReading{}, errors.Wrap(errors.CodeTransport, "read voltage", err)
	}
	c, err := r.readWord(ctx, RegCapacity)
	if err != nil {
		return logic.BatteryReading{}, errors.Wrap(errors.CodeTransport, "read capacity", err)
	}
	return logic.BatteryReading{
		Voltage:  VoltageFromWord(v),
		Capacity: CapacityFromWord(c),
	}, nil
}

func (r *I2CReader) readWord(ctx context.Context, reg byte) (uint16, error) {
	var err error
	for attempt := 0; attempt <= r.retries; attempt++ {
		if err = r.limiter.Wait(ctx); err != nil {
			return 0, err
		}
		var buf [2]byte
		if err = r.dev.Tx([]byte{reg}, buf[:]); err == nil {
			return SwapWord(uint16(buf[0]) | uint16(buf[1])<<8), nil
		}
		if attempt < r.retries {
			r.log.Warn().Err(err).Str("reg", fmt.Sprintf("0x%02x", reg)).Int("attempt", attempt+1).Msg("i2c read failed, retrying")
		}
	}
	return 0, err
}

// Close releases the bus.
func (r *I2CReader) Close() error {
	return r.bus.Close()
}
