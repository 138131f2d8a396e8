package model

import (
	"time"

	"gorm.io/gorm"
)

// Stock change types recorded in the movement ledger
const (
	ChangeTypeAddition     = "addition"
	ChangeTypeRemoval      = "removal"
	ChangeTypeAdjustment   = "adjustment"
	ChangeTypeReturn       = "return"
	ChangeTypeTransfer     = "transfer"
	ChangeTypeInitialStock = "initial_stock"
)

// ValidChangeTypes lists every accepted stock change type
var ValidChangeTypes = []string{
	ChangeTypeAddition,
	ChangeTypeRemoval,
	ChangeTypeAdjustment,
	ChangeTypeReturn,
	ChangeTypeTransfer,
	ChangeTypeInitialStock,
}

// IsValidChangeType reports whether the given change type is accepted
func IsValidChangeType(changeType string) bool {
	for _, t := range ValidChangeTypes {
		if t == changeType {
			return true
		}
	}
	return false
}

// StockEntry represents one movement in the stock ledger.
// Applying an entry mutates the product's stock quantity; the entry itself
// is immutable history.
type StockEntry struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	ShopID     uint           `json:"shop_id" gorm:"index;not null"`
	ProductID  uint           `json:"product_id" gorm:"index;not null"`
	Quantity   int            `json:"quantity" gorm:"not null"`
	ChangeType string         `json:"change_type" gorm:"type:varchar(20);not null"`
	Notes      string         `json:"notes" gorm:"type:text"`
	UserID     *uint          `json:"user_id,omitempty" gorm:"index"` // user who recorded the movement
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`
}
