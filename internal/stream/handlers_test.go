package stream

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
)

func deviceFromQuery(c *fiber.Ctx) (string, error) {
	id := c.Query("device")
	if id == "" {
		return "", fiber.NewError(fiber.StatusBadRequest, "device required")
	}
	return id, nil
}

func serve(t *testing.T, hub *Hub, snapshot SnapshotFunc) string {
	t.Helper()
	app := fiber.New()
	RegisterRoutes(app.Group("/stream"), hub, deviceFromQuery, snapshot)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen error: %v", err)
	}
	go func() {
		_ = app.Listener(ln)
	}()
	t.Cleanup(func() { _ = app.Shutdown() })
	return "ws://" + ln.Addr().String() + "/stream/ws"
}

func TestStreamHandlersUpgradeRequired(t *testing.T) {
	app := fiber.New()
	RegisterRoutes(app.Group("/stream"), NewHub(nil), deviceFromQuery, nil)

	req := httptest.NewRequest(http.MethodGet, "/stream/ws?device=d1", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	if resp.StatusCode != http.StatusUpgradeRequired {
		t.Fatalf("expected 426 for non-websocket request, got %d", resp.StatusCode)
	}
}

func TestStreamHandlersSnapshotThenBroadcast(t *testing.T) {
	hub := NewHub(nil)
	snapshot := func(deviceID string) []Event {
		return []Event{{Type: EventSession, Data: map[string]any{"device": deviceID, "signed_in": false}}}
	}
	url := serve(t, hub, snapshot)

	conn, _, err := websocket.DefaultDialer.Dial(url+"?device=d1", nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))

	var first Event
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	data, _ := first.Data.(map[string]any)
	if first.Type != EventSession || data["device"] != "d1" {
		t.Fatalf("unexpected snapshot %+v", first)
	}

	hub.Publish("d1", Event{Type: EventVehicle, Data: nil})
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read error: %v", err)
	}
	var second Event
	_ = json.Unmarshal(msg, &second)
	if second.Type != EventVehicle {
		t.Fatalf("unexpected event %s", msg)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("client")); err != nil {
		t.Fatalf("write error: %v", err)
	}
}

func TestStreamHandlersCloseUnregisters(t *testing.T) {
	hub := NewHub(nil)
	url := serve(t, hub, nil)

	conn, _, err := websocket.DefaultDialer.Dial(url+"?device=d3", nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
	conn.Close()

	deadline := time.Now().Add(time.Second)
	for {
		hub.mu.RLock()
		n := len(hub.clients["d3"])
		hub.mu.RUnlock()
		if n == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("client never unregistered")
		}
		time.Sleep(10 * time.Millisecond)
	}
	hub.Broadcast("d3", []byte("ping"))
}
