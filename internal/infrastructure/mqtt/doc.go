// Package mqtt provides MQTT client connectivity for the distance daemon.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// MQTT is the daemon's remote control surface: sensors are added and
// removed over distance/configure, measurements are requested on
// distance/measure/<sensor> and answered on distance/reading/<sensor>.
// Retained presence topics let late subscribers see which interfaces
// exist without querying.
//
//	controller ↔ MQTT Broker ↔ hcsr04d
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Performance Characteristics
//
//   - Connection: <1 second to local broker
//   - Publish latency: <10ms for QoS 1 to local broker
//   - Reconnect: Exponential backoff 1s-60s
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to all measurement requests
//	err = client.Subscribe(mqtt.Topics{}.AllMeasureRequests(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Publish a reading
//	topic := mqtt.Topics{}.Reading("distance_23_24")
//	client.Publish(topic, []byte(`{"elapsed_us":1234}`), 1, false)
package mqtt
