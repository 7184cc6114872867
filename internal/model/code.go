package model

import "time"

// UniqueCode is the short human-enterable code that authorises verification
// and claim of a storage entry. One code row per entry; regeneration
// overwrites Code in place, deactivation flips Active but never deletes.
type UniqueCode struct {
	ID          int64     `gorm:"primaryKey"`
	EntryRef    int64     `gorm:"uniqueIndex;not null"`
	Code        string    `gorm:"uniqueIndex;size:9;not null"` // XXXX-XXXX
	Active      bool      `gorm:"not null;default:true"`
	GeneratedAt time.Time `gorm:"not null"`
	Snapshot    []byte    `gorm:"type:jsonb"` // metadata captured at issue time
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`

	// Associations
	Entry StorageEntry `gorm:"foreignKey:EntryRef;constraint:OnDelete:CASCADE"`
}
