package battery

import (
	"context"
	"sync"

	"github.com/sweeney/x728-supervisor/internal/logic"
)

// FakeReader returns a settable reading and counts reads. It is safe for
// concurrent use.
type FakeReader struct {
	mu      sync.Mutex
	reading logic.BatteryReading
	err     error
	reads   int
	Closed  bool
}

// NewFakeReader creates a FakeReader returning reading.
func NewFakeReader(reading logic.BatteryReading) *FakeReader {
	return &FakeReader{reading: reading}
}

// Set replaces the reading returned by Read.
func (f *FakeReader) Set(reading logic.BatteryReading) {
	f.mu.Lock()
	f.reading = reading
	f.mu.Unlock()
}

// SetError makes Read fail with err; nil clears it.
func (f *FakeReader) SetError(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

// Reads returns the number of Read calls so far.
func (f *FakeReader) Reads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

func (f *FakeReader) Read(ctx context.Context) (logic.BatteryReading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.err != nil {
		return logic.BatteryReading{}, f.err
	}
	return f.reading, nil
}

func (f *FakeReader) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}
