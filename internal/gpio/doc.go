// Package gpio is the line-acquisition boundary between the sensor engine
// and the Linux GPIO character device.
//
// It wraps github.com/warthog618/gpiod behind two narrow line handles:
//
//   - TriggerLine: an output line the engine pulses to start a measurement
//   - EchoLine: an input line bound to an edge-event handler at request time
//
// # Edge events
//
// The echo line is requested with both-edge event detection. The supplied
// EventHandler runs on the gpiod event goroutine, which services the kernel
// event fifo for the line. Handlers must not block and must not sleep;
// anything slower than flag updates and a channel try-send risks dropping
// subsequent events. Timestamps in Event are the kernel's, taken when the
// edge was detected, not when the handler runs.
//
// # Error classification
//
// Request failures are folded into the package's sentinel errors so callers
// can distinguish "that line does not exist" (ErrInvalidLine) from "that
// line is claimed by someone else" (ErrLineUnavailable) from "the line is
// fine but edge detection could not be set up" (ErrEventBindingFailed).
//
// # Testing
//
// The gpiotest subpackage provides an in-memory Chip whose echo lines can be
// driven with synthetic edges. Running against real hardware additionally
// works with the gpio-sim kernel module (see github.com/warthog618/go-gpiosim)
// on kernels built with CONFIG_GPIO_SIM.
package gpio
