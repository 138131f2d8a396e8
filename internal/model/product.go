package model

import (
	"time"

	"gorm.io/gorm"
)

// Product represents a stock-keeping unit owned by a shop
type Product struct {
	ID            uint           `json:"id" gorm:"primaryKey"`
	Name          string         `json:"name" gorm:"type:varchar(255);not null"`
	Description   string         `json:"description" gorm:"type:text"`
	CategoryID    *uint          `json:"category_id,omitempty" gorm:"index"` // nullable, category removal keeps the product
	ShopID        uint           `json:"shop_id" gorm:"index;not null"`
	Price         float64        `json:"price" gorm:"not null"`
	VAT           float64        `json:"vat" gorm:"column:vat;not null"`
	StockQuantity int            `json:"stock_quantity" gorm:"default:0"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-" gorm:"index"`
}
