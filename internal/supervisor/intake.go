package supervisor

import (
	"sync"
	"time"

	"github.com/sweeney/x728-supervisor/internal/gpio"
	"github.com/sweeney/x728-supervisor/internal/logic"
)

// Kind identifies what a Notification carries.
type Kind int

const (
	KindACEdge Kind = iota
	KindButton
	KindPulse
)

func (k Kind) String() string {
	switch k {
	case KindACEdge:
		return "ac_edge"
	case KindButton:
		return "button"
	case KindPulse:
		return "pulse"
	}
	return "unknown"
}

// PulseResult is a finished button measurement.
type PulseResult struct {
	Outcome logic.PulseOutcome
	Elapsed time.Duration
	Err     error
}

// Notification is one message for the supervisor loop.
type Notification struct {
	Kind     Kind
	Asserted bool        // line level for KindACEdge and KindButton
	Pulse    PulseResult // set for KindPulse
	Time     time.Time
}

// Intake is an unbounded FIFO with a single consumer. Push never blocks, so
// it is safe to call from GPIO event handlers.
type Intake struct {
	mu    sync.Mutex
	queue []Notification
	ready chan struct{}
}

// NewIntake creates an empty Intake.
func NewIntake() *Intake {
	return &Intake{ready: make(chan struct{}, 1)}
}

// Push appends n and wakes the consumer.
func (in *Intake) Push(n Notification) {
	in.mu.Lock()
	in.queue = append(in.queue, n)
	in.mu.Unlock()

	select {
	case in.ready <- struct{}{}:
	default:
	}
}

// PushEdge converts a GPIO edge into a notification. It matches
// gpio.EdgeHandler.
func (in *Intake) PushEdge(e gpio.Edge) {
	n := Notification{Asserted: e.Asserted, Time: e.Time}
	switch e.Line {
	case gpio.LineACDetect:
		n.Kind = KindACEdge
	case gpio.LineButton:
		n.Kind = KindButton
	default:
		return
	}
	in.Push(n)
}

// Ready is signalled after a Push. A signal may find the queue already
// drained; Drain then returns nothing.
func (in *Intake) Ready() <-chan struct{} {
	return in.ready
}

// Drain removes and returns everything queued, oldest first.
func (in *Intake) Drain() []Notification {
	in.mu.Lock()
	defer in.mu.Unlock()
	q := in.queue
	in.queue = nil
	return q
}

// Len returns the number of queued notifications.
func (in *Intake) Len() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.queue)
}
