package orders

import (
	"time"

	"github.com/EmanuelRealGamboa/clinica-camsa/internal/models"
)

// Event type codes carried in the "type" field of realtime messages
const (
	EventNewOrder           = "new_order"
	EventOrderStatusChanged = "order_status_changed"
)

// NewOrderEvent is broadcast to the staff group when a kiosk places an order
type NewOrderEvent struct {
	Type      string    `json:"type"`
	OrderID   uint      `json:"order_id"`
	RoomCode  string    `json:"room_code,omitempty"`
	DeviceUID string    `json:"device_uid"`
	PlacedAt  time.Time `json:"placed_at"`
}

// StatusChangedEvent is sent to the originating kiosk when staff moves an
// order through the state machine
type StatusChangedEvent struct {
	Type       string             `json:"type"`
	OrderID    uint               `json:"order_id"`
	Status     models.OrderStatus `json:"status"`
	FromStatus models.OrderStatus `json:"from_status"`
	ChangedAt  time.Time          `json:"changed_at"`
}

// Notifier publishes realtime events. Delivery is fire-and-forget and
// at-most-once: implementations must never block the caller or report
// failure back into the order transaction.
type Notifier interface {
	NewOrder(event NewOrderEvent)
	StatusChanged(deviceUID string, event StatusChangedEvent)
}

// NopNotifier discards all events. Used by tests and offline tools.
type NopNotifier struct{}

func (NopNotifier) NewOrder(NewOrderEvent) {}

func (NopNotifier) StatusChanged(string, StatusChangedEvent) {}
