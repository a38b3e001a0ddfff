package models

import (
	"time"
)

// MovementType classifies an inventory movement. Quantity on a movement is
// always positive; the sign of the balance change is implied by the type.
type MovementType string

const (
	MovementReceipt    MovementType = "RECEIPT"
	MovementAdjustment MovementType = "ADJUSTMENT"
	MovementWaste      MovementType = "WASTE"
	MovementReserve    MovementType = "RESERVE"
	MovementRelease    MovementType = "RELEASE"
	MovementConsume    MovementType = "CONSUME"
)

// InventoryBalance holds the current stock counters for one product.
// Invariant: 0 <= reserved <= on_hand. Rows are created lazily on first
// reference and only mutated by the stock ledger under a row lock.
type InventoryBalance struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	ProductID    uint      `gorm:"uniqueIndex;not null" json:"product_id"`
	OnHand       int       `gorm:"default:0;check:on_hand >= 0" json:"on_hand"`
	Reserved     int       `gorm:"default:0;check:reserved >= 0" json:"reserved"`
	ReorderLevel *int      `json:"reorder_level,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Product Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

func (InventoryBalance) TableName() string {
	return "inventory_balances"
}

// Available is the quantity free to reserve
func (b *InventoryBalance) Available() int {
	return b.OnHand - b.Reserved
}

// NeedsReorder reports whether on-hand stock fell to the reorder level
func (b *InventoryBalance) NeedsReorder() bool {
	if b.ReorderLevel == nil {
		return false
	}
	return b.OnHand <= *b.ReorderLevel
}

// InventoryMovement is an append-only audit record of a balance change.
// Replaying all movements for a product from zero reproduces its balance.
type InventoryMovement struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	ProductID    uint         `gorm:"index;not null" json:"product_id"`
	MovementType MovementType `gorm:"not null" json:"movement_type"`
	Quantity     int          `gorm:"not null;check:quantity >= 1" json:"quantity"`
	OrderID      *uint        `gorm:"index" json:"order_id,omitempty"`
	CreatedByID  *uint        `json:"created_by_id,omitempty"`
	Note         string       `gorm:"type:text" json:"note"`
	CreatedAt    time.Time    `json:"created_at"`

	Product   Product    `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	CreatedBy *StaffUser `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
}

func (InventoryMovement) TableName() string {
	return "inventory_movements"
}
