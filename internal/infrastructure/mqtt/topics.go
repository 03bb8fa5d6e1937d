package mqtt

import (
	"fmt"
	"strings"
)

// Topic prefixes for the distance daemon.
//
// All topics live under a single root: distance/{category}/{sensor}.
// Sensor names follow the interface naming convention distance_<trig>_<echo>,
// so a full topic looks like distance/reading/distance_23_24.
const (
	// TopicPrefix is the root of all daemon topics.
	TopicPrefix = "distance"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "distance/system"
)

// Topics provides builders for the daemon's MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	readingTopic := topics.Reading("distance_23_24")
//	// Returns: "distance/reading/distance_23_24"
type Topics struct{}

// Configure returns the topic on which sensor add/remove requests arrive.
//
// Payloads use the configuration line format, e.g. "23 24 1000" to add
// a sensor and "-23 24" to remove one.
//
// Example: distance/configure
func (Topics) Configure() string {
	return fmt.Sprintf("%s/configure", TopicPrefix)
}

// ConfigureResult returns the topic for add/remove request outcomes.
//
// Example: distance/configure/result
func (Topics) ConfigureResult() string {
	return fmt.Sprintf("%s/configure/result", TopicPrefix)
}

// Measure returns the topic on which measurement requests for a sensor arrive.
//
// Example: distance/measure/distance_23_24
func (Topics) Measure(sensor string) string {
	return fmt.Sprintf("%s/measure/%s", TopicPrefix, sensor)
}

// Reading returns the topic for completed measurements from a sensor.
//
// Example: distance/reading/distance_23_24
func (Topics) Reading(sensor string) string {
	return fmt.Sprintf("%s/reading/%s", TopicPrefix, sensor)
}

// Error returns the topic for failed measurements from a sensor.
//
// Example: distance/error/distance_23_24
func (Topics) Error(sensor string) string {
	return fmt.Sprintf("%s/error/%s", TopicPrefix, sensor)
}

// Status returns the retained presence topic for a sensor.
//
// A retained "online" payload is published when the sensor is added and
// a retained "offline" payload when it is removed, so late subscribers
// see which interfaces exist.
//
// Example: distance/status/distance_23_24
func (Topics) Status(sensor string) string {
	return fmt.Sprintf("%s/status/%s", TopicPrefix, sensor)
}

// SystemStatus returns the daemon's own status topic, also used for the
// Last Will and Testament.
//
// Example: distance/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllMeasureRequests returns a pattern matching measurement requests for
// every sensor.
//
// Pattern: distance/measure/+
func (Topics) AllMeasureRequests() string {
	return fmt.Sprintf("%s/measure/+", TopicPrefix)
}

// AllReadings returns a pattern matching readings from every sensor.
//
// Pattern: distance/reading/+
func (Topics) AllReadings() string {
	return fmt.Sprintf("%s/reading/+", TopicPrefix)
}

// AllStatuses returns a pattern matching every sensor presence topic.
//
// Pattern: distance/status/+
func (Topics) AllStatuses() string {
	return fmt.Sprintf("%s/status/+", TopicPrefix)
}

// AllTopics returns a pattern matching every daemon topic.
// Use with caution - this receives ALL traffic.
//
// Pattern: distance/#
func (Topics) AllTopics() string {
	return "distance/#"
}

// MeasureSensor extracts the sensor name from a measurement request topic.
//
// Returns an empty string if the topic does not match the expected shape.
func (Topics) MeasureSensor(topic string) string {
	rest, ok := strings.CutPrefix(topic, TopicPrefix+"/measure/")
	if !ok || rest == "" || strings.Contains(rest, "/") {
		return ""
	}
	return rest
}
