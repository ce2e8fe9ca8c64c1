package models

import (
	"time"

	"gorm.io/gorm"
)

// Purchase records hardware bought by a team. An undone purchase is
// soft deleted, which removes it from budget accounting.
type Purchase struct {
	gorm.Model
	TeamID uint `gorm:"not null;index" json:"team_id"`
	ItemID uint `gorm:"not null;index" json:"item_id"`

	Quantity  int64 `gorm:"not null" json:"quantity"`
	UnitCost  int64 `gorm:"not null" json:"unit_cost"`  // item cost when bought
	TotalCost int64 `gorm:"not null" json:"total_cost"` // quantity * unit cost

	PurchasedAt time.Time  `gorm:"not null;index" json:"purchased_at"`
	Fulfilled   bool       `gorm:"default:false" json:"fulfilled"`
	FulfilledAt *time.Time `json:"fulfilled_at"`

	// Relations
	Team *Team         `gorm:"foreignKey:TeamID" json:"-"`
	Item *HardwareItem `gorm:"foreignKey:ItemID" json:"item,omitempty"`
}
