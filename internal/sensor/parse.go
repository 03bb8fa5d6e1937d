package sensor

import (
	"fmt"
	"strings"
	"time"
)

// Request is a parsed configuration-channel line.
type Request struct {
	Remove  bool
	Trigger int
	Echo    int
	Timeout time.Duration // zero on remove requests
}

// ParseRequest parses one configuration-channel line.
//
// Two forms are accepted:
//
//	"<trigger> <echo> <timeout_ms>"  add a sensor (leading '+' tolerated)
//	"-<trigger> <echo>"              remove a sensor
//
// Line offsets and the timeout are decimal integers; the timeout is in
// milliseconds and must be positive. Anything else fails with
// ErrMalformedRequest.
func ParseRequest(line string) (Request, error) {
	s := strings.TrimSpace(line)
	if s == "" {
		return Request{}, fmt.Errorf("%w: empty request", ErrMalformedRequest)
	}

	remove := s[0] == '-'
	if s[0] == '-' || s[0] == '+' {
		s = strings.TrimSpace(s[1:])
	}

	if remove {
		var trigger, echo int
		if n, err := fmt.Sscanf(s, "%d %d", &trigger, &echo); err != nil || n != 2 {
			return Request{}, fmt.Errorf("%w: want \"-<trigger> <echo>\", got %q", ErrMalformedRequest, line)
		}
		return Request{Remove: true, Trigger: trigger, Echo: echo}, nil
	}

	var trigger, echo, timeoutMs int
	if n, err := fmt.Sscanf(s, "%d %d %d", &trigger, &echo, &timeoutMs); err != nil || n != 3 {
		return Request{}, fmt.Errorf("%w: want \"<trigger> <echo> <timeout_ms>\", got %q", ErrMalformedRequest, line)
	}
	if timeoutMs <= 0 {
		return Request{}, fmt.Errorf("%w: timeout must be positive, got %d", ErrMalformedRequest, timeoutMs)
	}
	return Request{
		Trigger: trigger,
		Echo:    echo,
		Timeout: time.Duration(timeoutMs) * time.Millisecond,
	}, nil
}

// ParseName parses a measurement interface name of the form
// "distance_<trigger>_<echo>" back into its identity pair.
func ParseName(name string) (Pair, error) {
	var p Pair
	if n, err := fmt.Sscanf(name, "distance_%d_%d", &p.Trigger, &p.Echo); err != nil || n != 2 {
		return Pair{}, fmt.Errorf("%w: bad interface name %q", ErrSensorNotFound, name)
	}
	return p, nil
}
