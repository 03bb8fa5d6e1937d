package sensor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/softerra/linux-hc-sro4/internal/gpio"
)

// Pair is the identity of a sensor instance: the ordered (trigger, echo)
// line offsets. A pair is unique across the registry at any time.
type Pair struct {
	Trigger int
	Echo    int
}

// Name returns the deterministic measurement interface name for the pair,
// e.g. "distance_23_24".
func (p Pair) Name() string {
	return fmt.Sprintf("distance_%d_%d", p.Trigger, p.Echo)
}

// Sensor is one configured HC-SR04 device: two claimed lines, the timing
// state shared with the edge handler, and the per-device measurement gate.
//
// Sensors are created and destroyed by the Registry only.
type Sensor struct {
	pair    Pair
	timeout time.Duration
	settle  time.Duration
	pulse   time.Duration

	trig gpio.TriggerLine
	echo gpio.EchoLine

	// gate admits one measurement at a time. The measurement path uses
	// TryLock and fails fast; removal takes it blocking.
	gate sync.Mutex

	// stateMu guards the timing fields below. The edge handler holds it
	// only long enough to classify the edge and stamp a timestamp, so it
	// is safe to take from the non-blocking event context.
	stateMu         sync.Mutex
	timeTriggered   time.Duration // echo rising edge (kernel timestamp)
	timeEchoed      time.Duration // echo falling edge (kernel timestamp)
	echoReceived    bool          // falling edge observed for current cycle
	deviceTriggered bool          // trigger pulse issued; gates edge acceptance

	// echoed wakes the measurement waiter. Capacity 1 so the handler's
	// send never blocks; stale wakes are drained before each cycle.
	echoed chan struct{}
}

// Pair returns the sensor's identity pair.
func (s *Sensor) Pair() Pair {
	return s.pair
}

// Name returns the sensor's measurement interface name.
func (s *Sensor) Name() string {
	return s.pair.Name()
}

// Timeout returns the sensor's configured per-measurement timeout.
func (s *Sensor) Timeout() time.Duration {
	return s.timeout
}

// handleEdge is the edge-event handler bound to the echo line for both
// transitions. It runs on the gpio event goroutine and must not block.
//
// Edges arriving while the device is not armed, or after the current cycle
// already completed, are spurious and dropped. A rising edge stamps the
// start of the echo pulse; the falling edge stamps the end, marks the cycle
// complete, and wakes the waiter. Timestamps come from the kernel event,
// taken at edge detection, because the echo pulse's own width is the
// distance signal - the trigger pulse is not part of it.
func (s *Sensor) handleEdge(evt gpio.Event) {
	s.stateMu.Lock()
	if !s.deviceTriggered || s.echoReceived {
		s.stateMu.Unlock()
		return
	}

	if evt.Edge == gpio.EdgeRising {
		s.timeTriggered = evt.Timestamp
		s.stateMu.Unlock()
		return
	}

	s.timeEchoed = evt.Timestamp
	s.echoReceived = true
	s.stateMu.Unlock()

	select {
	case s.echoed <- struct{}{}:
	default:
	}
}

// measure runs one measurement cycle. The caller must hold s.gate; measure
// releases it on all paths.
//
// Sequence: settle delay, state reset, trigger pulse, blocking wait for the
// edge handler's wake or the timeout, elapsed-time computation.
func (s *Sensor) measure(ctx context.Context) (int64, error) {
	defer s.gate.Unlock()

	// Wait between measurements so residual echoes from a prior cycle
	// dissipate and the sensor's minimum re-trigger interval is respected.
	select {
	case <-time.After(s.settle):
	case <-ctx.Done():
		return 0, fmt.Errorf("%w: %w", ErrInterrupted, ctx.Err())
	}

	// Discard stale state from the previous cycle before arming.
	s.stateMu.Lock()
	s.echoReceived = false
	s.deviceTriggered = false
	s.stateMu.Unlock()
	select {
	case <-s.echoed:
	default:
	}

	if err := s.trig.SetValue(1); err != nil {
		return 0, fmt.Errorf("raising trigger: %w", err)
	}
	time.Sleep(s.pulse)
	// Arm after the hold and before lowering the trigger, matching the
	// hardware-validated ordering. An echo edge arriving before this point
	// is treated as pre-arming noise by handleEdge.
	s.stateMu.Lock()
	s.deviceTriggered = true
	s.stateMu.Unlock()
	if err := s.trig.SetValue(0); err != nil {
		return 0, fmt.Errorf("lowering trigger: %w", err)
	}

	select {
	case <-s.echoed:
	case <-time.After(s.timeout):
		return 0, ErrTimeout
	case <-ctx.Done():
		return 0, fmt.Errorf("%w: %w", ErrInterrupted, ctx.Err())
	}

	s.stateMu.Lock()
	elapsed := s.timeEchoed - s.timeTriggered
	s.stateMu.Unlock()

	// Whole microseconds. The two timestamps share a clock, so the
	// subtraction cancels correctly across second boundaries.
	return elapsed.Microseconds(), nil
}

// close releases the sensor's lines. The echo line goes first so edge
// delivery is unbound before the trigger line is surrendered. Errors are
// returned for logging but the release is not aborted part-way.
func (s *Sensor) close() error {
	var firstErr error
	if err := s.echo.Close(); err != nil {
		firstErr = fmt.Errorf("closing echo line %d: %w", s.pair.Echo, err)
	}
	if err := s.trig.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing trigger line %d: %w", s.pair.Trigger, err)
	}
	return firstErr
}
