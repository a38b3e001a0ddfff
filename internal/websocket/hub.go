package websocket

import (
	"encoding/json"
	"log"
	"sync"
)

// Hub maintains the set of connected realtime clients: every staff dashboard
// joins one shared broadcast group, each kiosk registers under its device
// UID. Sends are fire-and-forget; a full buffer or absent client simply
// drops the message.
type Hub struct {
	// Kiosk clients map: device UID -> client
	kiosks map[string]*Client

	// Staff dashboard clients (shared broadcast group)
	staff map[*Client]bool

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		kiosks:     make(map[string]*Client),
		staff:      make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if client.role == roleKiosk {
				// If the device reconnects, close the old connection
				if old, ok := h.kiosks[client.DeviceUID]; ok {
					close(old.send)
				}
				h.kiosks[client.DeviceUID] = client
				log.Printf("📱 Kiosk connected: %s", client.DeviceUID)
			} else {
				h.staff[client] = true
				log.Printf("🩺 Staff client connected: %s", client.id)
			}
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if client.role == roleKiosk {
				if current, ok := h.kiosks[client.DeviceUID]; ok && current == client {
					delete(h.kiosks, client.DeviceUID)
					close(client.send)
					log.Printf("📴 Kiosk disconnected: %s", client.DeviceUID)
				}
			} else {
				if _, ok := h.staff[client]; ok {
					delete(h.staff, client)
					close(client.send)
					log.Printf("📴 Staff client disconnected: %s", client.id)
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastToStaff sends a message to every connected staff dashboard.
// Clients that cannot keep up are skipped.
func (h *Hub) BroadcastToStaff(message interface{}) {
	jsonMsg, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling staff message: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.staff {
		select {
		case client.send <- jsonMsg:
		default:
			// Buffer full or client dead
		}
	}
}

// SendToDevice sends a message to one kiosk. Returns false if the device is
// not connected or its buffer is full; the message is then lost, which is
// the intended at-most-once contract.
func (h *Hub) SendToDevice(deviceUID string, message interface{}) bool {
	jsonMsg, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling message: %v", err)
		return false
	}

	// The lock is held across the send: Run closes a replaced client's
	// channel under the write lock, so the channel cannot close mid-send.
	h.mu.RLock()
	defer h.mu.RUnlock()
	client, ok := h.kiosks[deviceUID]
	if !ok {
		return false
	}

	select {
	case client.send <- jsonMsg:
		return true
	default:
		return false
	}
}
