package thermal

import (
	"sync"

	"github.com/sweeney/x728-supervisor/internal/errors"
)

// FakeReader returns scripted temperatures. Each call consumes the next
// value; once exhausted the last value repeats. It is safe for concurrent use.
type FakeReader struct {
	mu    sync.Mutex
	temps []int
	index int
	Err   error
	reads int
}

// NewFakeReader creates a FakeReader returning temps in order.
func NewFakeReader(temps ...int) *FakeReader {
	return &FakeReader{temps: temps}
}

// SetError makes ReadCelsius fail with err; nil clears it.
func (f *FakeReader) SetError(err error) {
	f.mu.Lock()
	f.Err = err
	f.mu.Unlock()
}

// Reads returns how many times ReadCelsius was called.
func (f *FakeReader) Reads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

func (f *FakeReader) ReadCelsius() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.Err != nil {
		return 0, f.Err
	}
	if len(f.temps) == 0 {
		return 0, errors.New(errors.CodeTelemetryParse, "no temperatures configured")
	}
	t := f.temps[f.index]
	if f.index < len(f.temps)-1 {
		f.index++
	}
	return t, nil
}
