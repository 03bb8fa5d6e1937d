package gpio

import "time"

// Edge identifies the direction of a line level transition.
type Edge int

const (
	// EdgeRising is a low-to-high transition.
	EdgeRising Edge = iota + 1
	// EdgeFalling is a high-to-low transition.
	EdgeFalling
)

// String returns a human-readable edge name for logging.
func (e Edge) String() string {
	switch e {
	case EdgeRising:
		return "rising"
	case EdgeFalling:
		return "falling"
	default:
		return "unknown"
	}
}

// Event is a single edge event on an echo line.
//
// Timestamp is the kernel's monotonic timestamp for the edge, expressed as
// a duration since an arbitrary epoch. Only differences between timestamps
// from the same line are meaningful.
type Event struct {
	Edge      Edge
	Timestamp time.Duration
}

// EventHandler receives edge events for an echo line.
//
// It is invoked from the event-servicing goroutine and must return quickly
// without blocking.
type EventHandler func(Event)

// TriggerLine is an output line used to emit trigger pulses.
type TriggerLine interface {
	// SetValue drives the line to the given level (0 or 1).
	SetValue(value int) error

	// Close releases the line. The line is driven low first where possible.
	Close() error
}

// EchoLine is an input line with edge-event detection bound to it.
type EchoLine interface {
	// Close releases the line and unbinds its event handler. After Close
	// returns no further events are delivered to the handler.
	Close() error
}

// Chip is a source of trigger and echo lines, identified by numeric offset.
type Chip interface {
	// RequestTrigger claims the line at offset as an output, initially low.
	RequestTrigger(offset int) (TriggerLine, error)

	// RequestEcho claims the line at offset as an input with both-edge
	// event detection, delivering events to handler.
	RequestEcho(offset int, handler EventHandler) (EchoLine, error)

	// Close releases the chip. Lines requested from it must be closed first.
	Close() error
}
