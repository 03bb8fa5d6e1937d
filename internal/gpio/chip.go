package gpio

import (
	"errors"
	"fmt"
	"syscall"

	"github.com/warthog618/gpiod"
)

// LinuxChip is a Chip backed by the Linux GPIO character device
// (/dev/gpiochipN) via the gpiod library.
type LinuxChip struct {
	chip *gpiod.Chip
}

// OpenChip opens the named GPIO chip (e.g. "gpiochip0").
//
// The consumer label is attached to every line requested from the chip and
// shows up in gpioinfo output, which is the first place to look when a line
// request fails with ErrLineUnavailable.
func OpenChip(name, consumer string) (*LinuxChip, error) {
	chip, err := gpiod.NewChip(name, gpiod.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %w", ErrChipUnavailable, name, err)
	}
	return &LinuxChip{chip: chip}, nil
}

// RequestTrigger claims the line at offset as an output, driven low.
func (c *LinuxChip) RequestTrigger(offset int) (TriggerLine, error) {
	if offset < 0 || offset >= c.chip.Lines() {
		return nil, fmt.Errorf("%w: offset %d out of range for %s", ErrInvalidLine, offset, c.chip.Name)
	}

	line, err := c.chip.RequestLine(offset, gpiod.AsOutput(0))
	if err != nil {
		return nil, classifyRequestError(offset, err)
	}
	return &triggerLine{line: line}, nil
}

// RequestEcho claims the line at offset as an input with both-edge event
// detection. handler is invoked on the gpiod event goroutine for every edge.
func (c *LinuxChip) RequestEcho(offset int, handler EventHandler) (EchoLine, error) {
	if offset < 0 || offset >= c.chip.Lines() {
		return nil, fmt.Errorf("%w: offset %d out of range for %s", ErrInvalidLine, offset, c.chip.Name)
	}

	line, err := c.chip.RequestLine(offset,
		gpiod.AsInput,
		gpiod.WithBothEdges,
		gpiod.WithEventHandler(func(evt gpiod.LineEvent) {
			handler(convertEvent(evt))
		}),
	)
	if err != nil {
		if isLineClaimError(err) {
			return nil, classifyRequestError(offset, err)
		}
		// The line itself is usable but edge detection could not be set up
		// (e.g. the kernel driver does not support events on this line).
		return nil, fmt.Errorf("%w: offset %d: %w", ErrEventBindingFailed, offset, err)
	}
	return &echoLine{line: line}, nil
}

// Close releases the chip handle. Open lines keep working until closed.
func (c *LinuxChip) Close() error {
	return c.chip.Close()
}

// convertEvent maps a gpiod event to the package event type.
func convertEvent(evt gpiod.LineEvent) Event {
	edge := EdgeRising
	if evt.Type == gpiod.LineEventFallingEdge {
		edge = EdgeFalling
	}
	return Event{Edge: edge, Timestamp: evt.Timestamp}
}

// classifyRequestError folds a gpiod request failure into a sentinel error.
func classifyRequestError(offset int, err error) error {
	switch {
	case errors.Is(err, syscall.EBUSY):
		return fmt.Errorf("%w: offset %d: %w", ErrLineUnavailable, offset, err)
	case errors.Is(err, syscall.EINVAL), errors.Is(err, syscall.ENXIO):
		return fmt.Errorf("%w: offset %d: %w", ErrInvalidLine, offset, err)
	case errors.Is(err, syscall.EPERM), errors.Is(err, syscall.EACCES):
		return fmt.Errorf("%w: offset %d: %w", ErrLineUnavailable, offset, err)
	default:
		return fmt.Errorf("%w: offset %d: %w", ErrInvalidLine, offset, err)
	}
}

// isLineClaimError reports whether the error concerns claiming the line
// rather than binding edge detection to it.
func isLineClaimError(err error) bool {
	return errors.Is(err, syscall.EBUSY) ||
		errors.Is(err, syscall.EPERM) ||
		errors.Is(err, syscall.EACCES)
}

// triggerLine adapts *gpiod.Line to TriggerLine.
type triggerLine struct {
	line *gpiod.Line
}

func (t *triggerLine) SetValue(value int) error {
	if err := t.line.SetValue(value); err != nil {
		return fmt.Errorf("gpio: setting trigger line: %w", err)
	}
	return nil
}

func (t *triggerLine) Close() error {
	// Leave the line low so a half-finished pulse cannot keep the sensor
	// armed after the device is removed.
	_ = t.line.SetValue(0)
	return t.line.Close()
}

// echoLine adapts *gpiod.Line to EchoLine. Closing the line releases the
// request, which stops event delivery.
type echoLine struct {
	line *gpiod.Line
}

func (e *echoLine) Close() error {
	return e.line.Close()
}
