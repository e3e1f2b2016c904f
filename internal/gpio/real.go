//go:build linux

package gpio

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"

	"github.com/sweeney/x728-supervisor/internal/errors"
)

const consumer = "x728d"

// RealBoard drives the hat through the Linux GPIO character device.
type RealBoard struct {
	chip     *gpiocdev.Chip
	acDetect *gpiocdev.Line
	button   *gpiocdev.Line
	boot     *gpiocdev.Line
	powerOff *gpiocdev.Line
	fan      *gpiocdev.Line
}

// NewRealBoard requests the hat lines. Edges on the AC detect line (both
// directions) and the button line (rising) are delivered to onEdge.
// Outputs start low.
func NewRealBoard(pins Pins, onEdge EdgeHandler) (*RealBoard, error) {
	chip, err := gpiocdev.NewChip(pins.Chip, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, errors.Wrap(errors.CodeTransport, "open gpio chip "+pins.Chip, err)
	}
	b := &RealBoard{chip: chip}

	b.acDetect, err = chip.RequestLine(pins.ACDetect,
		gpiocdev.AsInput,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(edgeHandler(LineACDetect, onEdge)))
	if err != nil {
		b.Close()
		return nil, errors.Wrap(errors.CodeTransport, fmt.Sprintf("request AC detect pin %d", pins.ACDetect), err)
	}

	b.button, err = chip.RequestLine(pins.Button,
		gpiocdev.AsInput,
		gpiocdev.WithRisingEdge,
		gpiocdev.WithEventHandler(edgeHandler(LineButton, onEdge)))
	if err != nil {
		b.Close()
		return nil, errors.Wrap(errors.CodeTransport, fmt.Sprintf("request button pin %d", pins.Button), err)
	}

	b.powerOff, err = chip.RequestLine(pins.PowerOff, gpiocdev.AsOutput(0))
	if err != nil {
		b.Close()
		return nil, errors.Wrap(errors.CodeTransport, fmt.Sprintf("request power-off pin %d", pins.PowerOff), err)
	}

	if pins.FanEnabled {
		b.fan, err = chip.RequestLine(pins.Fan, gpiocdev.AsOutput(0))
		if err != nil {
			b.Close()
			return nil, errors.Wrap(errors.CodeTransport, fmt.Sprintf("request fan pin %d", pins.Fan), err)
		}
	}

	// The boot line is only held so nothing else claims it; its level is
	// left exactly as firmware set it.
	if pins.Boot >= 0 {
		b.boot, err = chip.RequestLine(pins.Boot, gpiocdev.AsIs)
		if err != nil {
			b.Close()
			return nil, errors.Wrap(errors.CodeTransport, fmt.Sprintf("request boot pin %d", pins.Boot), err)
		}
	}

	return b, nil
}

func edgeHandler(line Line, onEdge EdgeHandler) gpiocdev.EventHandler {
	return func(evt gpiocdev.LineEvent) {
		if onEdge == nil {
			return
		}
		onEdge(Edge{
			Line:     line,
			Asserted: evt.Type == gpiocdev.LineEventRisingEdge,
			Time:     time.Now(),
		})
	}
}

// ACDetect returns the raw AC detect level (high = mains lost).
func (b *RealBoard) ACDetect() (bool, error) {
	return readLine(b.acDetect, "AC detect")
}

// Button returns the raw shutdown line level.
func (b *RealBoard) Button() (bool, error) {
	return readLine(b.button, "button")
}

// SetFan drives the fan line. A board requested without a fan ignores it.
func (b *RealBoard) SetFan(on bool) error {
	if b.fan == nil {
		return nil
	}
	return writeLine(b.fan, "fan", on)
}

// SetPowerOff drives the power-off acknowledge line.
func (b *RealBoard) SetPowerOff(on bool) error {
	return writeLine(b.powerOff, "power-off", on)
}

func readLine(l *gpiocdev.Line, name string) (bool, error) {
	v, err := l.Value()
	if err != nil {
		return false, errors.Wrap(errors.CodeTransport, "read "+name+" pin", err)
	}
	return v == 1, nil
}

func writeLine(l *gpiocdev.Line, name string, on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := l.SetValue(v); err != nil {
		return errors.Wrap(errors.CodeTransport, "write "+name+" pin", err)
	}
	return nil
}

// Close drives the outputs low and releases every line and the chip.
func (b *RealBoard) Close() error {
	var errs []error

	for _, out := range []*gpiocdev.Line{b.fan, b.powerOff} {
		if out == nil {
			continue
		}
		if err := out.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("release output %d: %w", out.Offset(), err))
		}
	}
	for _, l := range []*gpiocdev.Line{b.acDetect, b.button, b.boot, b.powerOff, b.fan} {
		if l == nil {
			continue
		}
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close line %d: %w", l.Offset(), err))
		}
	}
	if b.chip != nil {
		if err := b.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
