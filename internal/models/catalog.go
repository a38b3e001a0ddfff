package models

import (
	"time"
)

// ProductCategory groups products on the kiosk menu. Code is the key used
// in per-assignment order limit maps (e.g. "DRINK", "SNACK").
type ProductCategory struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null" json:"name"`
	Code      string    `gorm:"uniqueIndex;not null" json:"code"`
	SortOrder int       `gorm:"default:0" json:"sort_order"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ProductCategory) TableName() string {
	return "product_categories"
}

// Product is an orderable item. The ordering core reads (and locks) products
// but does not own their lifecycle; CRUD lives in the admin surface.
type Product struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	CategoryID  uint            `gorm:"index;not null" json:"category_id"`
	Name        string          `gorm:"not null" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	ImageURL    string          `json:"image_url"`
	SKU         *string         `gorm:"uniqueIndex" json:"sku,omitempty"`
	UnitLabel   string          `gorm:"default:'unidad'" json:"unit_label"` // "unidad", "pieza", "botella"
	IsActive    bool            `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`

	Category ProductCategory `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

func (Product) TableName() string {
	return "products"
}
