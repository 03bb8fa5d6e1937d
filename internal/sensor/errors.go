package sensor

import "errors"

// Domain errors for the sensor package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, sensor.ErrBusy) {
//	    // another measurement is in progress on this device
//	}
var (
	// ErrSensorExists is returned when adding a (trigger, echo) pair that
	// is already registered. Pairs are never merged.
	ErrSensorExists = errors.New("sensor: already exists")

	// ErrSensorNotFound is returned when a lookup or removal names an
	// unregistered (trigger, echo) pair.
	ErrSensorNotFound = errors.New("sensor: not found")

	// ErrBusy is returned when a measurement is requested while one is
	// already in progress on the same device. There is no queue.
	ErrBusy = errors.New("sensor: measurement in progress")

	// ErrTimeout is returned when no completed echo pulse was observed
	// within the device's configured timeout.
	ErrTimeout = errors.New("sensor: timed out waiting for echo")

	// ErrInterrupted is returned when the wait was cancelled before
	// completion or timeout.
	ErrInterrupted = errors.New("sensor: measurement interrupted")

	// ErrMalformedRequest is returned when a configuration-channel line
	// does not parse into the expected fields.
	ErrMalformedRequest = errors.New("sensor: malformed configure request")

	// ErrClosed is returned for operations on a registry that has been
	// shut down.
	ErrClosed = errors.New("sensor: registry closed")
)
