//go:build !linux

package gpio

import stderrors "errors"

var errUnsupported = stderrors.New("gpio: not supported on this platform (requires Linux)")

// RealBoard is not available on non-Linux platforms.
type RealBoard struct{}

// NewRealBoard returns an error on non-Linux platforms.
func NewRealBoard(pins Pins, onEdge EdgeHandler) (*RealBoard, error) {
	return nil, errUnsupported
}

func (b *RealBoard) ACDetect() (bool, error) { return false, errUnsupported }
func (b *RealBoard) Button() (bool, error) { return false, errUnsupported }
func (b *RealBoard) SetFan(bool) error { return errUnsupported }
func (b *RealBoard) SetPowerOff(bool) error { return errUnsupported }
func (b *RealBoard) Close() error { return nil }
