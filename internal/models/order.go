package models

import (
	"time"
)

// OrderStatus defines possible order statuses
type OrderStatus string

const (
	OrderStatusPlaced    OrderStatus = "PLACED"
	OrderStatusPreparing OrderStatus = "PREPARING"
	OrderStatusReady     OrderStatus = "READY"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// ValidOrderStatus reports whether s is one of the five status codes
func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusPlaced, OrderStatusPreparing, OrderStatusReady,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are permitted from s
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// Order is a room-service order placed from a bedside kiosk. Room and
// patient are copied from the care assignment at placement time.
type Order struct {
	ID                  uint        `gorm:"primaryKey" json:"id"`
	DeviceID            *uint       `gorm:"index" json:"device_id,omitempty"`
	PatientAssignmentID *uint       `gorm:"index" json:"patient_assignment_id,omitempty"`
	RoomID              *uint       `gorm:"index" json:"room_id,omitempty"`
	PatientID           *uint       `gorm:"index" json:"patient_id,omitempty"`
	Status              OrderStatus `gorm:"default:'PLACED';index" json:"status"`
	PlacedAt            time.Time   `json:"placed_at"`
	DeliveredAt         *time.Time  `json:"delivered_at,omitempty"`
	CancelledAt         *time.Time  `json:"cancelled_at,omitempty"`
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at"`

	Device            *Device            `gorm:"foreignKey:DeviceID" json:"device,omitempty"`
	PatientAssignment *PatientAssignment `gorm:"foreignKey:PatientAssignmentID" json:"-"`
	Room              *Room              `gorm:"foreignKey:RoomID" json:"room,omitempty"`
	Patient           *Patient           `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
	Items             []OrderItem        `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	StatusEvents      []OrderStatusEvent `gorm:"foreignKey:OrderID" json:"status_events,omitempty"`
}

func (Order) TableName() string {
	return "orders"
}

// OrderItem is one product line of an order. UnitLabel is a snapshot of the
// product's unit label at order time and never changes afterwards.
type OrderItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OrderID   uint      `gorm:"index;not null" json:"order_id"`
	ProductID uint      `gorm:"index;not null" json:"product_id"`
	Quantity  int       `gorm:"not null;check:quantity >= 1" json:"quantity"`
	UnitLabel string    `gorm:"not null" json:"unit_label"`
	CreatedAt time.Time `json:"created_at"`

	Product Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

func (OrderItem) TableName() string {
	return "order_items"
}

// OrderStatusEvent is an immutable audit row per status transition.
// FromStatus is empty for the initial PLACED event. ChangedBy is nil for
// kiosk-originated events.
type OrderStatusEvent struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	OrderID     uint      `gorm:"index;not null" json:"order_id"`
	FromStatus  string    `json:"from_status"`
	ToStatus    string    `gorm:"not null" json:"to_status"`
	ChangedByID *uint     `json:"changed_by_id,omitempty"`
	ChangedAt   time.Time `json:"changed_at"`
	Note        string    `gorm:"type:text" json:"note"`

	ChangedBy *StaffUser `gorm:"foreignKey:ChangedByID" json:"changed_by,omitempty"`
}

func (OrderStatusEvent) TableName() string {
	return "order_status_events"
}
