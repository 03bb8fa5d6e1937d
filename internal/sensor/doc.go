// Package sensor implements the measurement engine for HC-SR04 ultrasonic
// distance sensors: per-device edge timing, the edge-event-to-waiter
// handoff, single-measurement-at-a-time gating, and the add/remove lifecycle
// of sensor instances while measurements may be in flight.
//
// # Architecture
//
//	┌──────────────────────────────────────────────────────────────────┐
//	│                            Registry                               │
//	│                                                                   │
//	│  ┌────────────────┐   ┌────────────────┐   ┌──────────────────┐  │
//	│  │   Lifecycle    │   │     Sensor     │   │  Edge handler    │  │
//	│  │ (registry.go)  │──▶│  (sensor.go)   │◀──│  (sensor.go)     │  │
//	│  │                │   │                │   │                  │  │
//	│  │ • Add/Remove   │   │ • trigger line │   │ • classify edge  │  │
//	│  │ • Configure    │   │ • echo line    │   │ • stamp times    │  │
//	│  │ • registry mu  │   │ • gate + state │   │ • wake waiter    │  │
//	│  └────────────────┘   └────────────────┘   └──────────────────┘  │
//	└──────────────────────────────────────────────────────────────────┘
//
// A measurement arms a trigger pulse on the trigger line and blocks until
// the echo line's edge handler has seen the echo pulse's rising and falling
// edges, or the per-device timeout fires. The elapsed time between the two
// echo edges, in whole microseconds, is the result; converting it to a
// distance is the caller's business.
//
// # Concurrency
//
// Two locks cover everything:
//
//   - The registry mutex guards membership only. It is held across
//     lookup+insert and lookup+remove so existence checks are atomic with
//     the mutation, and is released as soon as a measurement has acquired
//     its target's gate. It is never held across the blocking wait.
//   - Each Sensor's measurement gate admits one measurement at a time.
//     The measurement path tries the gate and fails fast with ErrBusy;
//     the removal path takes it blocking, which is what guarantees a
//     device is never torn down under an in-flight measurement.
//
// The edge handler runs on the gpio event goroutine and must not block: it
// updates the timing state under a short-held state mutex and wakes the
// waiter with a non-blocking channel send.
//
// # Usage
//
//	chip, _ := gpio.OpenChip("gpiochip0", "hcsr04d")
//	reg := sensor.NewRegistry(chip, sensor.Options{})
//	reg.SetLogger(log)
//
//	if _, err := reg.Configure("23 24 1000"); err != nil {
//	    return err
//	}
//	micros, err := reg.Measure(ctx, 23, 24)
//	...
//	reg.Configure("-23 24")
package sensor
