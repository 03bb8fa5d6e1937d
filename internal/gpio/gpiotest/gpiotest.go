// Package gpiotest provides an in-memory gpio.Chip for tests.
//
// Echo lines requested from the fake chip can be driven with synthetic
// edge events via FireEdge, which invokes the bound handler synchronously
// on the caller's goroutine, mirroring how gpiod delivers events from its
// event-servicing goroutine.
package gpiotest

import (
	"fmt"
	"sync"
	"time"

	"github.com/softerra/linux-hc-sro4/internal/gpio"
)

// DefaultLines is the number of valid offsets on a fake chip.
const DefaultLines = 32

// Chip is an in-memory implementation of gpio.Chip.
//
// The zero value is not usable; create instances with NewChip.
type Chip struct {
	mu       sync.Mutex
	lines    int
	busy     map[int]bool
	noEvents map[int]bool
	triggers map[int]*TriggerLine
	echoes   map[int]*EchoLine
	closed   bool
}

// NewChip creates a fake chip with DefaultLines valid offsets.
func NewChip() *Chip {
	return &Chip{
		lines:    DefaultLines,
		busy:     make(map[int]bool),
		noEvents: make(map[int]bool),
		triggers: make(map[int]*TriggerLine),
		echoes:   make(map[int]*EchoLine),
	}
}

// SetBusy marks an offset as claimed elsewhere; requests for it fail with
// gpio.ErrLineUnavailable.
func (c *Chip) SetBusy(offset int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy[offset] = true
}

// SetEventBindingBroken marks an offset as unable to bind edge events;
// RequestEcho for it fails with gpio.ErrEventBindingFailed.
func (c *Chip) SetEventBindingBroken(offset int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.noEvents[offset] = true
}

// RequestTrigger implements gpio.Chip.
func (c *Chip) RequestTrigger(offset int) (gpio.TriggerLine, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkOffset(offset); err != nil {
		return nil, err
	}

	t := &TriggerLine{chip: c, offset: offset}
	c.triggers[offset] = t
	return t, nil
}

// RequestEcho implements gpio.Chip.
func (c *Chip) RequestEcho(offset int, handler gpio.EventHandler) (gpio.EchoLine, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkOffset(offset); err != nil {
		return nil, err
	}
	if c.noEvents[offset] {
		return nil, fmt.Errorf("%w: offset %d", gpio.ErrEventBindingFailed, offset)
	}

	e := &EchoLine{chip: c, offset: offset, handler: handler}
	c.echoes[offset] = e
	return e, nil
}

// checkOffset validates an offset and rejects double claims.
// Caller must hold c.mu.
func (c *Chip) checkOffset(offset int) error {
	if offset < 0 || offset >= c.lines {
		return fmt.Errorf("%w: offset %d", gpio.ErrInvalidLine, offset)
	}
	if c.busy[offset] {
		return fmt.Errorf("%w: offset %d", gpio.ErrLineUnavailable, offset)
	}
	if _, claimed := c.triggers[offset]; claimed {
		return fmt.Errorf("%w: offset %d already claimed", gpio.ErrLineUnavailable, offset)
	}
	if _, claimed := c.echoes[offset]; claimed {
		return fmt.Errorf("%w: offset %d already claimed", gpio.ErrLineUnavailable, offset)
	}
	return nil
}

// Close implements gpio.Chip.
func (c *Chip) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (c *Chip) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// OpenLines returns the number of currently claimed lines. Lifecycle tests
// use this to verify removal releases everything it acquired.
func (c *Chip) OpenLines() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.triggers) + len(c.echoes)
}

// FireEdge delivers a synthetic edge event to the handler bound at offset.
// It reports whether a handler was bound. The handler runs synchronously on
// the calling goroutine.
func (c *Chip) FireEdge(offset int, edge gpio.Edge, ts time.Duration) bool {
	c.mu.Lock()
	e, ok := c.echoes[offset]
	var handler gpio.EventHandler
	if ok {
		handler = e.handler
	}
	c.mu.Unlock()

	if handler == nil {
		return false
	}
	handler(gpio.Event{Edge: edge, Timestamp: ts})
	return true
}

// Trigger returns the claimed trigger line at offset, or nil.
func (c *Chip) Trigger(offset int) *TriggerLine {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.triggers[offset]
}

// TriggerLine is a fake output line recording the values driven onto it.
type TriggerLine struct {
	chip   *Chip
	offset int

	mu     sync.Mutex
	value  int
	pulses int
	closed bool
}

// SetValue implements gpio.TriggerLine.
func (t *TriggerLine) SetValue(value int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return fmt.Errorf("%w: offset %d closed", gpio.ErrInvalidLine, t.offset)
	}
	if t.value == 0 && value == 1 {
		t.pulses++
	}
	t.value = value
	return nil
}

// Close implements gpio.TriggerLine.
func (t *TriggerLine) Close() error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()

	t.chip.mu.Lock()
	delete(t.chip.triggers, t.offset)
	t.chip.mu.Unlock()
	return nil
}

// Value returns the current driven level.
func (t *TriggerLine) Value() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.value
}

// Pulses returns the number of low-to-high transitions driven so far.
func (t *TriggerLine) Pulses() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pulses
}

// EchoLine is a fake input line holding a bound event handler.
type EchoLine struct {
	chip    *Chip
	offset  int
	handler gpio.EventHandler
}

// Close implements gpio.EchoLine. After Close, FireEdge for the offset
// reports false.
func (e *EchoLine) Close() error {
	e.chip.mu.Lock()
	delete(e.chip.echoes, e.offset)
	e.chip.mu.Unlock()
	return nil
}
