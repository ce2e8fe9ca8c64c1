package services

import (
	"context"

	"hackportal/models"

	"gorm.io/gorm"
)

// Catalog is the read side of the hardware inventory. Stock is only ever
// written by the Ledger.
type Catalog struct {
	db *gorm.DB
}

func NewCatalog(db *gorm.DB) *Catalog {
	return &Catalog{db: db}
}

// ListItems returns every item ordered by category, then name.
func (c *Catalog) ListItems(ctx context.Context) ([]models.HardwareItem, error) {
	var items []models.HardwareItem
	if err := c.db.WithContext(ctx).Order("category ASC").Order("name ASC").Find(&items).Error; err != nil {
		return nil, storageError(err, "", "")
	}
	return items, nil
}

// Item loads a single catalog entry.
func (c *Catalog) Item(ctx context.Context, id uint) (*models.HardwareItem, error) {
	var item models.HardwareItem
	if err := c.db.WithContext(ctx).First(&item, id).Error; err != nil {
		return nil, storageError(err, MsgItemNotFound, "")
	}
	return &item, nil
}
