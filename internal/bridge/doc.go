// Package bridge exposes the sensor registry over MQTT.
//
// The bridge is the daemon's remote control surface. It subscribes to
// two request topics and answers on per-sensor response topics:
//
//	distance/configure             add/remove requests ("23 24 1000", "-23 24")
//	distance/measure/<sensor>      measurement requests
//
//	distance/configure/result      add/remove outcomes
//	distance/reading/<sensor>      completed measurements
//	distance/error/<sensor>        failed measurements
//	distance/status/<sensor>       retained presence ("online"/"offline")
//
// Presence topics are retained so controllers that connect late can see
// which measurement interfaces exist without asking.
//
// Requests may carry a JSON body with a request_id for correlation; the
// bridge generates one when the requester does not.
//
// # Thread Safety
//
// All methods are safe for concurrent use. Measurement requests are
// served on their own goroutines, so a slow sensor (a measurement can
// block for its whole timeout) does not stall requests for other
// sensors or configuration traffic.
package bridge
