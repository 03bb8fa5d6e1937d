package gpio

import "errors"

// Domain errors for line acquisition.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrInvalidLine is returned when a requested offset is not a valid
	// line on the chip.
	ErrInvalidLine = errors.New("gpio: invalid line")

	// ErrLineUnavailable is returned when a line exists but is already
	// claimed by another consumer.
	ErrLineUnavailable = errors.New("gpio: line unavailable")

	// ErrEventBindingFailed is returned when a line could be claimed but
	// edge-event detection could not be bound to it.
	ErrEventBindingFailed = errors.New("gpio: edge event binding failed")

	// ErrChipUnavailable is returned when the GPIO character device cannot
	// be opened.
	ErrChipUnavailable = errors.New("gpio: chip unavailable")
)
