package model

import (
	"time"

	"gorm.io/gorm"
)

// Order represents a purchase order placed for a shop
type Order struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	ShopID       uint           `json:"shop_id" gorm:"index;not null"`
	UserID       *uint          `json:"user_id,omitempty" gorm:"index"` // user who placed the order
	CategoryID   *uint          `json:"category_id,omitempty" gorm:"index"`
	TotalItems   int            `json:"total_items" gorm:"not null"`
	DeliveryDate time.Time      `json:"delivery_date" gorm:"not null"`
	Notes        string         `json:"notes" gorm:"type:varchar(500)"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`
}
