package api

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/softerra/linux-hc-sro4/internal/sensor"
)

// dialTestHub spins up a real HTTP server around the router and dials its
// WebSocket endpoint.
func dialTestHub(t *testing.T) (*Server, *websocket.Conn) {
	t.Helper()
	s, _, _, router := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	go s.hub.Run(ctx)

	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	t.Cleanup(cancel)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return s, conn
}

func readMessage(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg WSMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	return msg
}

func TestWebSocket_SubscribeAndReceiveReading(t *testing.T) {
	s, conn := dialTestHub(t)

	sub := WSMessage{
		Type: WSTypeSubscribe,
		ID:   "sub-1",
		Payload: WSSubscribePayload{
			Channels: []string{ChannelReading},
		},
	}
	if err := conn.WriteJSON(sub); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}

	resp := readMessage(t, conn)
	if resp.Type != WSTypeResponse || resp.ID != "sub-1" {
		t.Fatalf("subscribe response = %+v", resp)
	}

	// The subscribe response proves the read pump has processed the
	// subscription, so the broadcast below will reach the client.
	s.hub.BroadcastReading(sensor.Reading{
		Name:          "distance_23_24",
		Trigger:       23,
		Echo:          24,
		ElapsedMicros: 580,
		At:            time.Now(),
	})

	event := readMessage(t, conn)
	if event.Type != WSTypeEvent || event.EventType != ChannelReading {
		t.Fatalf("event = %+v", event)
	}
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	var reading sensor.Reading
	if err := json.Unmarshal(payload, &reading); err != nil {
		t.Fatalf("unmarshal reading: %v", err)
	}
	if reading.Name != "distance_23_24" || reading.ElapsedMicros != 580 {
		t.Errorf("reading = %+v", reading)
	}
}

func TestWebSocket_UnsubscribedClientGetsNothing(t *testing.T) {
	s, conn := dialTestHub(t)

	// Ping round trip proves the client is registered.
	if err := conn.WriteJSON(WSMessage{Type: WSTypePing, ID: "p1"}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	if resp := readMessage(t, conn); resp.Type != WSTypePong {
		t.Fatalf("ping response = %+v", resp)
	}

	s.hub.BroadcastReading(sensor.Reading{Name: "distance_1_2", ElapsedMicros: 10})

	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var msg WSMessage
	if err := conn.ReadJSON(&msg); err == nil {
		t.Fatalf("expected no message, got %+v", msg)
	}
}

func TestWebSocket_Unsubscribe(t *testing.T) {
	s, conn := dialTestHub(t)

	sub := WSMessage{
		Type:    WSTypeSubscribe,
		ID:      "s1",
		Payload: WSSubscribePayload{Channels: []string{ChannelReading}},
	}
	if err := conn.WriteJSON(sub); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	readMessage(t, conn)

	unsub := WSMessage{
		Type:    WSTypeUnsubscribe,
		ID:      "u1",
		Payload: WSSubscribePayload{Channels: []string{ChannelReading}},
	}
	if err := conn.WriteJSON(unsub); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	readMessage(t, conn)

	s.hub.BroadcastReading(sensor.Reading{Name: "distance_1_2", ElapsedMicros: 10})

	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var msg WSMessage
	if err := conn.ReadJSON(&msg); err == nil {
		t.Fatalf("expected no message after unsubscribe, got %+v", msg)
	}
}

func TestWebSocket_UnknownMessageType(t *testing.T) {
	_, conn := dialTestHub(t)

	if err := conn.WriteJSON(WSMessage{Type: "bogus", ID: "x"}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	resp := readMessage(t, conn)
	if resp.Type != WSTypeError {
		t.Fatalf("response = %+v", resp)
	}
}

func TestHub_ClientCount(t *testing.T) {
	s, conn := dialTestHub(t)

	// Registration happens in the upgrade handler, may race the dial return.
	deadline := time.Now().Add(2 * time.Second)
	for s.hub.ClientCount() != 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := s.hub.ClientCount(); got != 1 {
		t.Fatalf("ClientCount() = %d, want 1", got)
	}

	conn.Close()
	deadline = time.Now().Add(2 * time.Second)
	for s.hub.ClientCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := s.hub.ClientCount(); got != 0 {
		t.Errorf("ClientCount() = %d after close, want 0", got)
	}
}
