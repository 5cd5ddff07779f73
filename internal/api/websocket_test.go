package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// startEventStream wires the hub and event pump the way Start() does,
// without binding a real listener.
func startEventStream(t *testing.T, s *Server) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	s.hub = NewHub(s.wsCfg, s.logger)
	go s.hub.Run(ctx)
	go s.pumpEvents(ctx)
	t.Cleanup(cancel)
}

func wsURL(srv *httptest.Server, token string) string {
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws"
	if token != "" {
		u += "?token=" + token
	}
	return u
}

func TestWebSocketTokenAuth(t *testing.T) {
	s, _, _ := newTestServer(t)
	startEventStream(t, s)

	srv := httptest.NewServer(s.buildRouter())
	defer srv.Close()

	t.Run("valid token upgrades", func(t *testing.T) {
		// The dial carries no Authorization header, the way a browser
		// WebSocket does; the token query parameter must be enough.
		conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, testToken(t, testSecret)), nil)
		if err != nil {
			t.Fatalf("Dial() error = %v", err)
		}
		defer conn.Close()
		if resp.StatusCode != http.StatusSwitchingProtocols {
			t.Errorf("status = %d, want 101", resp.StatusCode)
		}
	})

	t.Run("missing token", func(t *testing.T) {
		_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, ""), nil)
		if err == nil {
			t.Fatal("Dial() error = nil, want handshake failure")
		}
		if resp == nil || resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("response = %v, want 401", resp)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		token := testToken(t, "another-secret-entirely-with-length")
		_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, token), nil)
		if err == nil {
			t.Fatal("Dial() error = nil, want handshake failure")
		}
		if resp == nil || resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("response = %v, want 401", resp)
		}
	})
}

func TestWebSocketEventStream(t *testing.T) {
	s, m, _ := newTestServer(t)
	startEventStream(t, s)

	srv := httptest.NewServer(s.buildRouter())
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, testToken(t, testSecret)), nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	sub := WSMessage{
		Type:    WSTypeSubscribe,
		ID:      "1",
		Payload: WSSubscribePayload{Channels: []string{ChannelThingAdded}},
	}
	if err := conn.WriteJSON(sub); err != nil {
		t.Fatalf("sending subscribe: %v", err)
	}

	//nolint:errcheck // Deadline failure surfaces as a read error below
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var ack WSMessage
	if err := conn.ReadJSON(&ack); err != nil {
		t.Fatalf("reading subscribe ack: %v", err)
	}
	if ack.Type != WSTypeResponse || ack.ID != "1" {
		t.Fatalf("ack = %+v, want response to id 1", ack)
	}

	// The event pump subscribes in its own goroutine; give it a beat
	// before publishing.
	time.Sleep(100 * time.Millisecond)

	d := testThing()
	d.ID = "sensor-1"
	m.HandleDeviceAdded(d)

	//nolint:errcheck // Deadline failure surfaces as a read error below
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var ev WSMessage
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("reading event: %v", err)
	}
	if ev.Type != WSTypeEvent || ev.EventType != ChannelThingAdded {
		t.Fatalf("event = %+v, want %s", ev, ChannelThingAdded)
	}

	payload, ok := ev.Payload.(map[string]any)
	if !ok {
		t.Fatalf("payload type = %T, want object", ev.Payload)
	}
	th, _ := payload["thing"].(map[string]any)
	if th["id"] != "sensor-1" {
		t.Errorf("event thing = %v, want sensor-1", payload)
	}
}
