package models

// HardwareItem is a purchasable catalog entry. Stock only moves through
// purchases and undos.
type HardwareItem struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	Name          string `gorm:"uniqueIndex;not null" json:"name"`
	Description   string `gorm:"type:text" json:"description"`
	Cost          int64  `gorm:"not null;check:cost >= 0" json:"cost"`   // whole dollars
	Stock         int64  `gorm:"not null;check:stock >= 0" json:"stock"` // units left
	Category      string `gorm:"index;not null" json:"category"`
	Compatibility string `json:"compatibility"`
	ImageURL      string `json:"image_url,omitempty"`
}
