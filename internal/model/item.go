package model

import "time"

// ItemCategory groups stored items for organisation and reporting.
type ItemCategory string

const (
	CategoryBooks       ItemCategory = "books"
	CategoryElectronics ItemCategory = "electronics"
	CategoryClothing    ItemCategory = "clothing"
	CategoryStationery  ItemCategory = "stationery"
	CategorySports      ItemCategory = "sports"
	CategoryMisc        ItemCategory = "misc"
)

// ValidCategory reports whether c is one of the recognised categories.
func ValidCategory(c ItemCategory) bool {
	switch c {
	case CategoryBooks, CategoryElectronics, CategoryClothing,
		CategoryStationery, CategorySports, CategoryMisc:
		return true
	}
	return false
}

// StoredItem is a single line item inside a storage entry. It is
// cascade-deleted with its entry; quantity is always positive.
type StoredItem struct {
	ID             int64        `gorm:"primaryKey"`
	EntryRef       int64        `gorm:"index:idx_items_entry_category;not null"`
	Name           string       `gorm:"size:200;not null"`
	Category       ItemCategory `gorm:"index:idx_items_entry_category;size:20;not null;default:misc"`
	Quantity       int          `gorm:"not null;default:1"`
	Description    string       `gorm:"type:text"`
	EstimatedValue *float64     // optional, non-negative, bounded
	CreatedAt      time.Time    `gorm:"not null"`
}
