package bridge

import (
	"errors"
	"time"

	"github.com/softerra/linux-hc-sro4/internal/gpio"
	"github.com/softerra/linux-hc-sro4/internal/sensor"
)

// MeasureRequest is the optional JSON body of a measurement request.
// An empty payload is accepted; a request_id is then generated.
type MeasureRequest struct {
	RequestID string `json:"request_id,omitempty"`
}

// ConfigureRequest is the optional JSON body of a configure request.
// The plain line format ("23 24 1000") is also accepted as a raw payload.
type ConfigureRequest struct {
	RequestID string `json:"request_id,omitempty"`
	Line      string `json:"line"`
}

// ReadingMessage reports a completed measurement.
type ReadingMessage struct {
	RequestID     string    `json:"request_id"`
	Sensor        string    `json:"sensor"`
	ElapsedMicros int64     `json:"elapsed_us"`
	Timestamp     time.Time `json:"timestamp"`
}

// ErrorMessage reports a failed measurement or configure request.
type ErrorMessage struct {
	RequestID string `json:"request_id"`
	Sensor    string `json:"sensor,omitempty"`
	Code      string `json:"code"`
	Error     string `json:"error"`
}

// ConfigureResult reports the outcome of an add/remove request.
type ConfigureResult struct {
	RequestID string `json:"request_id"`
	Line      string `json:"line"`
	Status    string `json:"status"` // "ok" or "error"
	Sensor    string `json:"sensor,omitempty"`
	Code      string `json:"code,omitempty"`
	Error     string `json:"error,omitempty"`
}

// PresenceMessage is published retained on a sensor's status topic.
type PresenceMessage struct {
	Status    string    `json:"status"` // "online" or "offline"
	Sensor    string    `json:"sensor"`
	Timestamp time.Time `json:"timestamp"`
}

// Stable error codes used in ErrorMessage.Code and ConfigureResult.Code.
// Controllers should branch on these rather than on error text.
const (
	CodeBusy            = "busy"
	CodeTimeout         = "timeout"
	CodeNotFound        = "not_found"
	CodeExists          = "exists"
	CodeInterrupted     = "interrupted"
	CodeMalformed       = "malformed"
	CodeInvalidLine     = "invalid_line"
	CodeLineUnavailable = "line_unavailable"
	CodeEventBinding    = "event_binding_failed"
	CodeShuttingDown    = "shutting_down"
	CodeInternal        = "internal"
)

// errorCode maps registry and gpio errors to their stable wire codes.
func errorCode(err error) string {
	switch {
	case errors.Is(err, sensor.ErrBusy):
		return CodeBusy
	case errors.Is(err, sensor.ErrTimeout):
		return CodeTimeout
	case errors.Is(err, sensor.ErrSensorNotFound):
		return CodeNotFound
	case errors.Is(err, sensor.ErrSensorExists):
		return CodeExists
	case errors.Is(err, sensor.ErrInterrupted):
		return CodeInterrupted
	case errors.Is(err, sensor.ErrMalformedRequest):
		return CodeMalformed
	case errors.Is(err, sensor.ErrClosed):
		return CodeShuttingDown
	case errors.Is(err, gpio.ErrInvalidLine):
		return CodeInvalidLine
	case errors.Is(err, gpio.ErrLineUnavailable):
		return CodeLineUnavailable
	case errors.Is(err, gpio.ErrEventBindingFailed):
		return CodeEventBinding
	default:
		return CodeInternal
	}
}
