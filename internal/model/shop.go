package model

import (
	"time"

	"gorm.io/gorm"
)

// Shop represents the shop model stored in the database.
// A shop is the tenant boundary: every category, product, stock entry
// and order belongs to exactly one shop.
type Shop struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Name      string         `json:"name" gorm:"type:varchar(255);not null"`
	OwnerID   uint           `json:"owner_id" gorm:"index;not null"` // Reference to the User ID who created this shop
	Active    bool           `json:"active" gorm:"default:true"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}
