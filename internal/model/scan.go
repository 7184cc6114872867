package model

import "time"

// ScanAction distinguishes a read-only verification from a claim.
type ScanAction string

const (
	ActionVerify ScanAction = "verify"
	ActionClaim  ScanAction = "claim"
)

// CodeScan is an append-only audit record of a code verification or claim.
// The application never updates or deletes rows. CodeValue snapshots the
// code string at scan time, so history stays readable after a regeneration
// overwrites the code or an old entry is purged (CodeRef goes null then).
type CodeScan struct {
	ID        int64      `gorm:"primaryKey"`
	CodeRef   *int64     `gorm:"index"`
	CodeValue string     `gorm:"size:9;not null"`
	ScannedBy string     `gorm:"size:64;not null"` // staff principal
	ScannedAt time.Time  `gorm:"index;not null"`
	IPAddress string     `gorm:"size:45"`
	UserAgent string     `gorm:"type:text"`
	Valid     bool       `gorm:"not null"`
	Action    ScanAction `gorm:"size:10;not null"`
	Notes     string     `gorm:"type:text"`

	// Associations
	Code *UniqueCode `gorm:"foreignKey:CodeRef;constraint:OnDelete:SET NULL"`
}
