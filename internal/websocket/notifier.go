package websocket

import (
	"github.com/EmanuelRealGamboa/clinica-camsa/internal/services/orders"
)

// OrderNotifier adapts the hub to the order engine's Notifier interface
type OrderNotifier struct {
	hub *Hub
}

// NewOrderNotifier wraps hub for the order lifecycle engine
func NewOrderNotifier(hub *Hub) *OrderNotifier {
	return &OrderNotifier{hub: hub}
}

// NewOrder broadcasts a new-order event to every staff dashboard
func (n *OrderNotifier) NewOrder(event orders.NewOrderEvent) {
	n.hub.BroadcastToStaff(event)
}

// StatusChanged sends a status-change event to the originating kiosk only
func (n *OrderNotifier) StatusChanged(deviceUID string, event orders.StatusChangedEvent) {
	n.hub.SendToDevice(deviceUID, event)
}
