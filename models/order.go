package models

import "time"

// Order is the permanent record materialized from a cart at checkout.
// Carts are transient, orders are not.
type Order struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	Number    string      `gorm:"size:64;uniqueIndex;not null" json:"number"`
	SessionID string      `gorm:"size:64;index" json:"-"`
	Lines     []OrderLine `gorm:"foreignKey:OrderID" json:"lines"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// OrderLine is one materialized cart line.
type OrderLine struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	OrderID   uint            `gorm:"index;not null" json:"-"`
	ProductID uint            `gorm:"not null" json:"product_id"`
	Category  string          `gorm:"size:128" json:"category"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	Metas     []OrderLineMeta `gorm:"foreignKey:OrderLineID" json:"metas,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// OrderLineMeta is one key/value metadata entry on an order line. For
// attachments the value is sanitized HTML linking to the download action.
type OrderLineMeta struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	OrderLineID uint      `gorm:"index;not null" json:"-"`
	MetaKey     string    `gorm:"size:128;not null" json:"key"`
	MetaValue   string    `gorm:"size:2048;not null" json:"value"`
	CreatedAt   time.Time `json:"created_at"`
}
