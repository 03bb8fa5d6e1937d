package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/softerra/linux-hc-sro4/internal/infrastructure/mqtt"
	"github.com/softerra/linux-hc-sro4/internal/sensor"
)

// presenceQueueSize bounds the presence worker's backlog. Add/remove is
// rare; the queue only fills if the broker stalls.
const presenceQueueSize = 16

// MQTTClient is the interface for MQTT operations.
// This allows mocking in tests and flexibility in implementation.
type MQTTClient interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Registry is the subset of sensor registry operations the bridge drives.
// Satisfied by *sensor.Registry.
type Registry interface {
	// Configure applies one add/remove request line.
	Configure(line string) (sensor.Request, error)

	// MeasureByName runs one measurement on the named interface.
	MeasureByName(ctx context.Context, name string) (int64, error)

	// List returns the registered interfaces.
	List() []sensor.Info
}

// Logger is the subset of logging used by the bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// presenceEvent is one retained status update for a sensor.
type presenceEvent struct {
	sensor string
	online bool
}

// Bridge connects the sensor registry to MQTT request/response topics.
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	mqtt     MQTTClient
	registry Registry
	qos      byte
	topics   mqtt.Topics

	// presence is drained by a single worker so retained status updates
	// are published in the order the registry announced them.
	presence chan presenceEvent
	quit     chan struct{}

	// Shutdown coordination
	ctx       context.Context
	ctxCancel context.CancelFunc
	wg        sync.WaitGroup
	stopOnce  sync.Once

	logger   Logger
	loggerMu sync.RWMutex
}

// New creates a bridge over the given client and registry.
func New(client MQTTClient, registry Registry, qos byte) *Bridge {
	return &Bridge{
		mqtt:     client,
		registry: registry,
		qos:      qos,
		presence: make(chan presenceEvent, presenceQueueSize),
		quit:     make(chan struct{}),
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger used for request handling diagnostics.
func (b *Bridge) SetLogger(logger Logger) {
	b.loggerMu.Lock()
	b.logger = logger
	b.loggerMu.Unlock()
}

func (b *Bridge) getLogger() Logger {
	b.loggerMu.RLock()
	defer b.loggerMu.RUnlock()
	return b.logger
}

// Start subscribes to the request topics and announces the sensors that
// already exist. The bridge serves requests until Stop is called or ctx
// is cancelled.
func (b *Bridge) Start(ctx context.Context) error {
	b.ctx, b.ctxCancel = context.WithCancel(ctx)

	b.wg.Add(1)
	go b.presenceWorker()

	if err := b.mqtt.Subscribe(b.topics.Configure(), b.qos, b.handleConfigure); err != nil {
		return fmt.Errorf("subscribing to configure topic: %w", err)
	}
	if err := b.mqtt.Subscribe(b.topics.AllMeasureRequests(), b.qos, b.handleMeasure); err != nil {
		return fmt.Errorf("subscribing to measure topics: %w", err)
	}

	// Announce interfaces registered before the bridge came up, e.g.
	// sensors from the config file.
	for _, info := range b.registry.List() {
		b.enqueuePresence(info.Name, true)
	}

	b.getLogger().Info("mqtt bridge started",
		"configure_topic", b.topics.Configure(),
		"measure_pattern", b.topics.AllMeasureRequests(),
	)
	return nil
}

// Stop cancels in-flight measurements, flushes queued presence updates
// and waits for request handlers to drain. Safe to call more than once.
//
// Call after the registry is closed so the offline announcements made
// during registry shutdown still reach the broker.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		if b.ctxCancel != nil {
			b.ctxCancel()
		}
		close(b.quit)
		b.wg.Wait()
	})
}

// SensorAdded implements sensor.Notifier. It runs under the registry
// lock, so it only enqueues; the presence worker does the publishing.
func (b *Bridge) SensorAdded(name string) {
	b.enqueuePresence(name, true)
}

// SensorRemoved implements sensor.Notifier.
func (b *Bridge) SensorRemoved(name string) {
	b.enqueuePresence(name, false)
}

func (b *Bridge) enqueuePresence(name string, online bool) {
	select {
	case b.presence <- presenceEvent{sensor: name, online: online}:
	default:
		b.getLogger().Warn("presence queue full, dropping status update", "sensor", name)
	}
}

func (b *Bridge) presenceWorker() {
	defer b.wg.Done()
	for {
		select {
		case <-b.quit:
			// Flush what is already queued so removals announced
			// during shutdown still go out.
			for {
				select {
				case ev := <-b.presence:
					b.publishPresence(ev)
				default:
					return
				}
			}
		case ev := <-b.presence:
			b.publishPresence(ev)
		}
	}
}

func (b *Bridge) publishPresence(ev presenceEvent) {
	status := "offline"
	if ev.online {
		status = "online"
	}
	payload, err := json.Marshal(PresenceMessage{
		Status:    status,
		Sensor:    ev.sensor,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return
	}
	if err := b.mqtt.Publish(b.topics.Status(ev.sensor), payload, b.qos, true); err != nil {
		b.getLogger().Warn("publishing presence failed",
			"sensor", ev.sensor,
			"status", status,
			"error", err,
		)
	}
}

// handleConfigure serves one add/remove request.
//
// The payload is either a plain configuration line ("23 24 1000",
// "-23 24") or a JSON ConfigureRequest carrying the line plus a
// request_id for correlation.
func (b *Bridge) handleConfigure(_ string, payload []byte) error {
	requestID, line := parseConfigurePayload(payload)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	result := ConfigureResult{
		RequestID: requestID,
		Line:      line,
		Status:    "ok",
	}

	req, err := b.registry.Configure(line)
	if err != nil {
		result.Status = "error"
		result.Code = errorCode(err)
		result.Error = err.Error()
		b.getLogger().Warn("configure request failed",
			"request_id", requestID,
			"line", line,
			"error", err,
		)
	} else {
		result.Sensor = sensor.Pair{Trigger: req.Trigger, Echo: req.Echo}.Name()
	}

	return b.publishJSON(b.topics.ConfigureResult(), result, false)
}

// handleMeasure serves one measurement request.
//
// The measurement itself runs on its own goroutine: it can block for the
// sensor's whole timeout, and one slow sensor must not hold up requests
// for the others.
func (b *Bridge) handleMeasure(topic string, payload []byte) error {
	name := b.topics.MeasureSensor(topic)
	if name == "" {
		return fmt.Errorf("unexpected measure topic %q", topic)
	}

	var req MeasureRequest
	if len(payload) > 0 {
		// A malformed body still gets a measurement; correlation is
		// best effort.
		if err := json.Unmarshal(payload, &req); err != nil {
			b.getLogger().Debug("ignoring malformed measure body", "topic", topic, "error", err)
		}
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.measure(name, req.RequestID)
	}()
	return nil
}

func (b *Bridge) measure(name, requestID string) {
	micros, err := b.registry.MeasureByName(b.ctx, name)
	if err != nil {
		msg := ErrorMessage{
			RequestID: requestID,
			Sensor:    name,
			Code:      errorCode(err),
			Error:     err.Error(),
		}
		if pubErr := b.publishJSON(b.topics.Error(name), msg, false); pubErr != nil {
			b.getLogger().Warn("publishing measurement error failed", "sensor", name, "error", pubErr)
		}
		return
	}

	msg := ReadingMessage{
		RequestID:     requestID,
		Sensor:        name,
		ElapsedMicros: micros,
		Timestamp:     time.Now().UTC(),
	}
	if err := b.publishJSON(b.topics.Reading(name), msg, false); err != nil {
		b.getLogger().Warn("publishing reading failed", "sensor", name, "error", err)
	}
}

func (b *Bridge) publishJSON(topic string, v any, retained bool) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding payload for %s: %w", topic, err)
	}
	return b.mqtt.Publish(topic, payload, b.qos, retained)
}

// parseConfigurePayload accepts both payload shapes for configure
// requests and returns the request id (possibly empty) and the line.
func parseConfigurePayload(payload []byte) (requestID, line string) {
	trimmed := strings.TrimSpace(string(payload))
	if strings.HasPrefix(trimmed, "{") {
		var req ConfigureRequest
		if err := json.Unmarshal(payload, &req); err == nil {
			return req.RequestID, req.Line
		}
	}
	return "", trimmed
}
