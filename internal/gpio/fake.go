package gpio

import "sync"

// FakeBoard is a test double with settable input levels that records every
// output write. It is safe for concurrent use.
type FakeBoard struct {
	mu sync.Mutex

	acDetect bool
	button   bool

	// ButtonFunc, if set, supplies the button level instead of the stored one.
	ButtonFunc func() bool

	fan      bool
	powerOff bool

	// FanWrites and PowerOffWrites record every value written, in order.
	FanWrites      []bool
	PowerOffWrites []bool

	// ReadError, if set, is returned by the input reads.
	ReadError error
	// WriteError, if set, is returned by the output writes.
	WriteError error

	Closed bool
}

// NewFakeBoard creates a FakeBoard with the AC detect line at acDetect.
func NewFakeBoard(acDetect bool) *FakeBoard {
	return &FakeBoard{acDetect: acDetect}
}

// SetACDetect sets the AC detect level.
func (f *FakeBoard) SetACDetect(v bool) {
	f.mu.Lock()
	f.acDetect = v
	f.mu.Unlock()
}

// SetButton sets the button level.
func (f *FakeBoard) SetButton(v bool) {
	f.mu.Lock()
	f.button = v
	f.mu.Unlock()
}

func (f *FakeBoard) ACDetect() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ReadError != nil {
		return false, f.ReadError
	}
	return f.acDetect, nil
}

func (f *FakeBoard) Button() (bool, error) {
	f.mu.Lock()
	fn := f.ButtonFunc
	err := f.ReadError
	v := f.button
	f.mu.Unlock()
	if err != nil {
		return false, err
	}
	if fn != nil {
		return fn(), nil
	}
	return v, nil
}

func (f *FakeBoard) SetFan(on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.WriteError != nil {
		return f.WriteError
	}
	f.fan = on
	f.FanWrites = append(f.FanWrites, on)
	return nil
}

func (f *FakeBoard) SetPowerOff(on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.WriteError != nil {
		return f.WriteError
	}
	f.powerOff = on
	f.PowerOffWrites = append(f.PowerOffWrites, on)
	return nil
}

// Fan returns the last fan level written.
func (f *FakeBoard) Fan() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fan
}

// PowerOff returns the last power-off level written.
func (f *FakeBoard) PowerOff() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.powerOff
}

// Writes returns copies of the recorded output writes.
func (f *FakeBoard) Writes() (fan, powerOff []bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bool(nil), f.FanWrites...), append([]bool(nil), f.PowerOffWrites...)
}

// Close marks the board as closed and drops both outputs.
func (f *FakeBoard) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fan = false
	f.powerOff = false
	f.Closed = true
	return nil
}
