package system

import "sync"

// FakeControl records calls instead of stopping the host. It is safe for
// concurrent use.
type FakeControl struct {
	mu    sync.Mutex
	calls []string

	// Err, if set, is returned by both methods after recording the call.
	Err error
}

// NewFakeControl creates a FakeControl.
func NewFakeControl() *FakeControl {
	return &FakeControl{}
}

func (f *FakeControl) Shutdown() error { return f.record("shutdown") }

func (f *FakeControl) Reboot() error { return f.record("reboot") }

func (f *FakeControl) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.Err
}

// Calls returns the recorded calls in order.
func (f *FakeControl) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}
