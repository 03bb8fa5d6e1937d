package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/softerra/linux-hc-sro4/internal/gpio"
	"github.com/softerra/linux-hc-sro4/internal/sensor"
)

// statusClientClosedRequest reports a client that disconnected while its
// measurement was in flight (nginx convention, no stdlib constant).
const statusClientClosedRequest = 499

// configureResponse is the body returned for a successful configure request.
type configureResponse struct {
	Sensor    string `json:"sensor"`
	Removed   bool   `json:"removed,omitempty"`
	Trigger   int    `json:"trigger"`
	Echo      int    `json:"echo"`
	TimeoutMs int64  `json:"timeout_ms,omitempty"`
}

// handleConfigure applies one add/remove request from a plain text body.
//
//	POST /api/v1/configure
//	"23 24 1000"  adds trigger 23 / echo 24 with a 1s timeout
//	"-23 24"      removes the pair
func (s *Server) handleConfigure(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeBadRequest(w, "reading request body: "+err.Error())
		return
	}

	line := strings.TrimSpace(string(body))
	req, err := s.registry.Configure(line)
	if err != nil {
		writeSensorError(w, err)
		return
	}

	resp := configureResponse{
		Sensor:  sensor.Pair{Trigger: req.Trigger, Echo: req.Echo}.Name(),
		Removed: req.Remove,
		Trigger: req.Trigger,
		Echo:    req.Echo,
	}
	status := http.StatusOK
	if !req.Remove {
		resp.TimeoutMs = req.Timeout.Milliseconds()
		status = http.StatusCreated
	}
	writeJSON(w, status, resp)
}

// handleListSensors returns all registered measurement interfaces.
func (s *Server) handleListSensors(w http.ResponseWriter, _ *http.Request) {
	infos := s.registry.List()
	writeJSON(w, http.StatusOK, map[string]any{
		"sensors": infos,
		"count":   len(infos),
	})
}

// handleGetSensor returns one interface by name.
func (s *Server) handleGetSensor(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	for _, info := range s.registry.List() {
		if info.Name == name {
			writeJSON(w, http.StatusOK, info)
			return
		}
	}
	writeNotFound(w, "no sensor named "+name)
}

// handleDeleteSensor removes an interface by name.
//
// Removal blocks until any in-flight measurement on the sensor finishes,
// so a success response means the GPIO lines are released.
func (s *Server) handleDeleteSensor(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.registry.RemoveByName(name); err != nil {
		writeSensorError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleMeasure runs one measurement and returns the echo pulse width.
//
//	GET /api/v1/sensors/distance_23_24/measure
//	-> "1234\n" (text/plain, microseconds)
//
// The request context is passed through to the measurement, so a client
// that disconnects aborts its wait without tying up the sensor.
func (s *Server) handleMeasure(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	micros, err := s.registry.MeasureByName(r.Context(), name)
	if err != nil {
		writeSensorError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "%d\n", micros)
}

// writeSensorError maps registry and gpio sentinel errors to HTTP status
// codes.
func writeSensorError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sensor.ErrMalformedRequest):
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, sensor.ErrSensorNotFound):
		writeError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, sensor.ErrSensorExists):
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, sensor.ErrBusy):
		writeError(w, http.StatusConflict, "busy", err.Error())
	case errors.Is(err, sensor.ErrTimeout):
		writeError(w, http.StatusGatewayTimeout, "timeout", err.Error())
	case errors.Is(err, sensor.ErrInterrupted):
		writeError(w, statusClientClosedRequest, "interrupted", err.Error())
	case errors.Is(err, sensor.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, "shutting_down", err.Error())
	case errors.Is(err, gpio.ErrInvalidLine),
		errors.Is(err, gpio.ErrLineUnavailable),
		errors.Is(err, gpio.ErrEventBindingFailed):
		writeError(w, http.StatusUnprocessableEntity, ErrCodeValidation, err.Error())
	default:
		writeInternalError(w, err.Error())
	}
}
