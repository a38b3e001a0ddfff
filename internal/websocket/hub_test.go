package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func newTestServer(hub *Hub) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/staff", func(w http.ResponseWriter, r *http.Request) {
		ServeStaffWs(hub, w, r)
	})
	mux.HandleFunc("/ws/kiosk", func(w http.ResponseWriter, r *http.Request) {
		ServeKioskWs(hub, w, r)
	})
	return httptest.NewServer(mux)
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s failed: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// waitForKiosk polls until the hub has registered the device
func waitForKiosk(t *testing.T, hub *Hub, deviceUID string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		hub.mu.RLock()
		_, ok := hub.kiosks[deviceUID]
		hub.mu.RUnlock()
		if ok {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("kiosk %s never registered", deviceUID)
}

func waitForStaffCount(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		hub.mu.RLock()
		got := len(hub.staff)
		hub.mu.RUnlock()
		if got == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("staff count never reached %d", want)
}

func TestBroadcastToStaff(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	server := newTestServer(hub)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	first := dial(t, wsURL+"/ws/staff")
	second := dial(t, wsURL+"/ws/staff")
	waitForStaffCount(t, hub, 2)

	hub.BroadcastToStaff(map[string]interface{}{"type": "new_order", "order_id": 7})

	for _, conn := range []*websocket.Conn{first, second} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
		var msg map[string]interface{}
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.Fatalf("unmarshal failed: %v", err)
		}
		if msg["type"] != "new_order" {
			t.Errorf("type = %v, want new_order", msg["type"])
		}
		if msg["order_id"] != float64(7) {
			t.Errorf("order_id = %v, want 7", msg["order_id"])
		}
	}
}

func TestSendToDevice(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	server := newTestServer(hub)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	target := dial(t, wsURL+"/ws/kiosk?device_uid=ipad-a")
	other := dial(t, wsURL+"/ws/kiosk?device_uid=ipad-b")
	waitForKiosk(t, hub, "ipad-a")
	waitForKiosk(t, hub, "ipad-b")

	if !hub.SendToDevice("ipad-a", map[string]string{"type": "order_status_changed"}) {
		t.Fatal("SendToDevice returned false for a connected device")
	}
	if hub.SendToDevice("ipad-c", map[string]string{"type": "order_status_changed"}) {
		t.Error("SendToDevice returned true for a device that never connected")
	}

	target.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := target.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !strings.Contains(string(raw), "order_status_changed") {
		t.Errorf("message = %s, want order_status_changed event", raw)
	}

	// The other kiosk must not receive the event
	other.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, _, err := other.ReadMessage(); err == nil {
		t.Error("other kiosk unexpectedly received the event")
	}
}

func TestKioskRequiresDeviceUID(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	server := newTestServer(hub)
	defer server.Close()

	resp, err := http.Get(server.URL + "/ws/kiosk")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestKioskReconnectReplacesOldConnection(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	server := newTestServer(hub)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	dial(t, wsURL+"/ws/kiosk?device_uid=ipad-r")
	waitForKiosk(t, hub, "ipad-r")
	hub.mu.RLock()
	old := hub.kiosks["ipad-r"]
	hub.mu.RUnlock()

	replacement := dial(t, wsURL+"/ws/kiosk?device_uid=ipad-r")
	// Wait until the replacement took over the slot
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		hub.mu.RLock()
		current := hub.kiosks["ipad-r"]
		hub.mu.RUnlock()
		if current != nil && current != old {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	if !hub.SendToDevice("ipad-r", map[string]string{"type": "ping_check"}) {
		t.Fatal("SendToDevice failed after reconnect")
	}

	replacement.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := replacement.ReadMessage()
	if err != nil {
		t.Fatalf("replacement read failed: %v", err)
	}
	if !strings.Contains(string(raw), "ping_check") {
		t.Errorf("message = %s, want ping_check", raw)
	}
}

// Status events racing a kiosk reconnect must never hit a closed send
// channel. Run under -race.
func TestSendToDeviceDuringReconnect(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	server := newTestServer(hub)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	dial(t, wsURL+"/ws/kiosk?device_uid=ipad-race")
	waitForKiosk(t, hub, "ipad-race")

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			default:
				hub.SendToDevice("ipad-race", map[string]string{"type": "order_status_changed"})
			}
		}
	}()

	// Reconnect repeatedly while the sender hammers the device slot
	for i := 0; i < 20; i++ {
		hub.mu.RLock()
		old := hub.kiosks["ipad-race"]
		hub.mu.RUnlock()

		conn := dial(t, wsURL+"/ws/kiosk?device_uid=ipad-race")
		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			hub.mu.RLock()
			current := hub.kiosks["ipad-race"]
			hub.mu.RUnlock()
			if current != nil && current != old {
				break
			}
			time.Sleep(time.Millisecond)
		}
		// Drain so the buffer does not mask the race window
		conn.SetReadDeadline(time.Now().Add(10 * time.Millisecond))
		conn.ReadMessage()
	}

	close(stop)
	<-done
}
