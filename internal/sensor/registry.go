package sensor

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/softerra/linux-hc-sro4/internal/gpio"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Notifier observes measurement-interface lifecycle. An implementation
// announces the interface when a sensor is added and retracts it when the
// sensor is removed (e.g. MQTT presence topics).
//
// Callbacks run with the registry lock held and must not call back into
// the Registry.
type Notifier interface {
	SensorAdded(name string)
	SensorRemoved(name string)
}

// noopNotifier is a Notifier that does nothing.
type noopNotifier struct{}

func (noopNotifier) SensorAdded(string)   {}
func (noopNotifier) SensorRemoved(string) {}

// Reading is one completed measurement, delivered to the observer hook.
type Reading struct {
	Name          string    `json:"sensor"`
	Trigger       int       `json:"trigger"`
	Echo          int       `json:"echo"`
	ElapsedMicros int64     `json:"elapsed_us"`
	At            time.Time `json:"at"`
}

// Default timing constants for the measurement protocol.
const (
	// DefaultTimeout is used when a sensor is added without a timeout.
	DefaultTimeout = time.Second

	// DefaultSettleDelay is the enforced pause before each trigger pulse.
	DefaultSettleDelay = 60 * time.Millisecond

	// DefaultPulseWidth is how long the trigger line is held high.
	DefaultPulseWidth = 10 * time.Microsecond
)

// Config describes one sensor to add.
type Config struct {
	Trigger int
	Echo    int
	Timeout time.Duration // zero means DefaultTimeout
}

// Options tunes registry-wide measurement timing. Zero values select the
// defaults; tests shrink them.
type Options struct {
	SettleDelay time.Duration
	PulseWidth  time.Duration
}

// Registry owns the live sensor instances exclusively. All additions,
// removals, lookups and measurement admissions go through it.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Registry struct {
	chip   gpio.Chip
	settle time.Duration
	pulse  time.Duration

	mu      sync.Mutex
	sensors map[Pair]*Sensor
	closed  bool

	logger   Logger
	notifier Notifier

	observerMu sync.RWMutex
	observer   func(Reading)
}

// NewRegistry creates a registry drawing lines from chip.
func NewRegistry(chip gpio.Chip, opts Options) *Registry {
	settle := opts.SettleDelay
	if settle == 0 {
		settle = DefaultSettleDelay
	}
	pulse := opts.PulseWidth
	if pulse == 0 {
		pulse = DefaultPulseWidth
	}
	return &Registry{
		chip:     chip,
		settle:   settle,
		pulse:    pulse,
		sensors:  make(map[Pair]*Sensor),
		logger:   noopLogger{},
		notifier: noopNotifier{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// SetNotifier sets the measurement-interface lifecycle notifier.
// Call before the first Add.
func (r *Registry) SetNotifier(n Notifier) {
	r.notifier = n
}

// SetObserver sets a hook invoked after every successful measurement.
// Call before the first Measure. The hook runs on the measuring goroutine
// and should not block.
func (r *Registry) SetObserver(fn func(Reading)) {
	r.observerMu.Lock()
	r.observer = fn
	r.observerMu.Unlock()
}

// Add claims the two lines, binds the edge handler and registers the
// sensor. On any partial failure everything already acquired is rolled
// back before the error is returned.
//
// Returns ErrSensorExists if the (trigger, echo) pair is already
// registered, or a gpio error (ErrInvalidLine, ErrLineUnavailable,
// ErrEventBindingFailed) if a line cannot be claimed.
func (r *Registry) Add(cfg Config) (*Sensor, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	pair := Pair{Trigger: cfg.Trigger, Echo: cfg.Echo}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrClosed
	}
	if _, exists := r.sensors[pair]; exists {
		return nil, fmt.Errorf("%w: %s", ErrSensorExists, pair.Name())
	}

	s := &Sensor{
		pair:    pair,
		timeout: cfg.Timeout,
		settle:  r.settle,
		pulse:   r.pulse,
		echoed:  make(chan struct{}, 1),
	}

	trig, err := r.chip.RequestTrigger(cfg.Trigger)
	if err != nil {
		return nil, fmt.Errorf("requesting trigger line %d: %w", cfg.Trigger, err)
	}
	// The handler is live from here on, but deviceTriggered is false so
	// every edge is dropped as spurious until a measurement arms it.
	echo, err := r.chip.RequestEcho(cfg.Echo, s.handleEdge)
	if err != nil {
		if closeErr := trig.Close(); closeErr != nil {
			r.logger.Warn("rollback of trigger line failed", "line", cfg.Trigger, "error", closeErr)
		}
		return nil, fmt.Errorf("requesting echo line %d: %w", cfg.Echo, err)
	}
	s.trig = trig
	s.echo = echo

	r.sensors[pair] = s
	r.notifier.SensorAdded(s.Name())

	r.logger.Info("sensor added",
		"sensor", s.Name(),
		"trigger", cfg.Trigger,
		"echo", cfg.Echo,
		"timeout", cfg.Timeout,
	)
	return s, nil
}

// Remove unregisters the sensor for the given pair and releases its lines.
//
// The registry lock is held for the whole removal so the pair cannot be
// concurrently re-added, and the sensor's gate is taken blocking, so any
// in-flight measurement finishes before the interface is retracted and the
// lines are released. Release errors are logged, not returned; the removal
// itself does not abort part-way.
func (r *Registry) Remove(trigger, echo int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sensors[Pair{Trigger: trigger, Echo: echo}]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSensorNotFound, Pair{Trigger: trigger, Echo: echo}.Name())
	}
	r.removeLocked(s)
	return nil
}

// RemoveByName is Remove keyed by the exposed interface name. The sensor is
// found by scanning for the matching interface; each instance exposes
// exactly one.
func (r *Registry) RemoveByName(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.findByNameLocked(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSensorNotFound, name)
	}
	r.removeLocked(s)
	return nil
}

// removeLocked tears down a registered sensor. Caller must hold r.mu.
func (r *Registry) removeLocked(s *Sensor) {
	// Wait until any in-flight measurement has finished. New measurements
	// cannot start: admission needs the registry lock we hold.
	s.gate.Lock()
	delete(r.sensors, s.pair)
	r.notifier.SensorRemoved(s.Name())
	s.gate.Unlock()

	if err := s.close(); err != nil {
		r.logger.Warn("releasing sensor lines", "sensor", s.Name(), "error", err)
	}
	r.logger.Info("sensor removed", "sensor", s.Name())
}

// Measure runs one measurement on the sensor identified by the pair and
// returns the elapsed echo time in whole microseconds.
//
// Returns ErrSensorNotFound for an unregistered pair and ErrBusy when a
// measurement is already in progress on the device; there is no queueing.
// The registry lock is dropped as soon as the sensor's own gate is held,
// so measurements on different devices proceed concurrently.
func (r *Registry) Measure(ctx context.Context, trigger, echo int) (int64, error) {
	r.mu.Lock()
	s, ok := r.sensors[Pair{Trigger: trigger, Echo: echo}]
	if !ok {
		r.mu.Unlock()
		return 0, fmt.Errorf("%w: %s", ErrSensorNotFound, Pair{Trigger: trigger, Echo: echo}.Name())
	}
	return r.measureAdmitted(ctx, s)
}

// MeasureByName is Measure keyed by the exposed interface name.
func (r *Registry) MeasureByName(ctx context.Context, name string) (int64, error) {
	r.mu.Lock()
	s, ok := r.findByNameLocked(name)
	if !ok {
		r.mu.Unlock()
		return 0, fmt.Errorf("%w: %s", ErrSensorNotFound, name)
	}
	return r.measureAdmitted(ctx, s)
}

// measureAdmitted takes the sensor's gate, releases the registry lock and
// runs the measurement. Caller must hold r.mu; it is unlocked here.
func (r *Registry) measureAdmitted(ctx context.Context, s *Sensor) (int64, error) {
	if !s.gate.TryLock() {
		r.mu.Unlock()
		return 0, fmt.Errorf("%w: %s", ErrBusy, s.Name())
	}
	r.mu.Unlock()

	micros, err := s.measure(ctx)
	if err != nil {
		r.logger.Debug("measurement failed", "sensor", s.Name(), "error", err)
		return 0, err
	}

	r.logger.Debug("measurement complete", "sensor", s.Name(), "elapsed_us", micros)
	r.observe(Reading{
		Name:          s.Name(),
		Trigger:       s.pair.Trigger,
		Echo:          s.pair.Echo,
		ElapsedMicros: micros,
		At:            time.Now().UTC(),
	})
	return micros, nil
}

// observe delivers a completed reading to the observer hook, if set.
func (r *Registry) observe(reading Reading) {
	r.observerMu.RLock()
	fn := r.observer
	r.observerMu.RUnlock()
	if fn != nil {
		fn(reading)
	}
}

// findByNameLocked scans for the sensor exposing the named interface.
// Caller must hold r.mu.
func (r *Registry) findByNameLocked(name string) (*Sensor, bool) {
	for _, s := range r.sensors {
		if s.Name() == name {
			return s, true
		}
	}
	return nil, false
}

// Configure applies one configuration-channel request line: either
// "<trigger> <echo> <timeout_ms>" to add a sensor or "-<trigger> <echo>"
// to remove one. The parsed request is returned alongside the outcome so
// callers can report what was acted on.
func (r *Registry) Configure(line string) (Request, error) {
	req, err := ParseRequest(line)
	if err != nil {
		return req, err
	}
	if req.Remove {
		return req, r.Remove(req.Trigger, req.Echo)
	}
	_, err = r.Add(Config{Trigger: req.Trigger, Echo: req.Echo, Timeout: req.Timeout})
	return req, err
}

// Info describes a registered sensor for listing surfaces.
type Info struct {
	Name      string `json:"name"`
	Trigger   int    `json:"trigger"`
	Echo      int    `json:"echo"`
	TimeoutMs int64  `json:"timeout_ms"`
}

// List returns the registered sensors, sorted by interface name.
func (r *Registry) List() []Info {
	r.mu.Lock()
	defer r.mu.Unlock()

	infos := make([]Info, 0, len(r.sensors))
	for _, s := range r.sensors {
		infos = append(infos, Info{
			Name:      s.Name(),
			Trigger:   s.pair.Trigger,
			Echo:      s.pair.Echo,
			TimeoutMs: s.timeout.Milliseconds(),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Len returns the number of registered sensors.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sensors)
}

// Close removes every registered sensor, ignoring individual removal
// errors, and marks the registry closed. The gpio chip itself belongs to
// the caller and is not closed here.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	for _, s := range r.sensors {
		r.removeLocked(s)
	}
	return nil
}
