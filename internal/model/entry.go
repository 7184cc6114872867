package model

import "time"

// EntryStatus is the lifecycle state of a storage entry.
type EntryStatus string

const (
	StatusActive    EntryStatus = "active"
	StatusClaimed   EntryStatus = "claimed"
	StatusExpired   EntryStatus = "expired"
	StatusCancelled EntryStatus = "cancelled"
)

// Terminal reports whether no further transition may leave this status.
// Only active entries can move; claimed, expired and cancelled are final.
func (s EntryStatus) Terminal() bool {
	return s != StatusActive
}

// StorageEntry is one student's storage session covering a set of items.
// EntryID is the opaque identifier used in URLs; the numeric ID stays internal.
// Invariant: ClaimedAt is set if and only if Status is claimed.
type StorageEntry struct {
	ID              int64       `gorm:"primaryKey"`
	EntryID         string      `gorm:"uniqueIndex;size:36;not null"`
	StudentID       int64       `gorm:"index:idx_entries_student_status;not null"`
	Status          EntryStatus `gorm:"index:idx_entries_student_status;size:10;not null;default:active"`
	Description     string      `gorm:"type:text"`
	StorageLocation string      `gorm:"size:100"`
	StaffNotes      string      `gorm:"type:text"`
	CreatedAt       time.Time   `gorm:"index;not null"`
	UpdatedAt       time.Time   `gorm:"not null"`
	ClaimedAt       *time.Time

	// Associations
	Student StudentProfile `gorm:"constraint:OnDelete:CASCADE"`
	Items   []StoredItem   `gorm:"foreignKey:EntryRef;constraint:OnDelete:CASCADE"`
}

// TotalItems sums item quantities. Zero when no items are loaded.
func (e *StorageEntry) TotalItems() int {
	total := 0
	for _, item := range e.Items {
		total += item.Quantity
	}
	return total
}
