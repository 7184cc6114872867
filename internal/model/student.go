package model

import "time"

// Department codes recognised by the registry.
const (
	DeptComputerScience = "BCS"
	DeptElectronics     = "BEC"
	DeptCyberSecurity   = "BCY"
	DeptComputerDesign  = "BCD"
	DeptOther           = "OTHER"
)

// StudentProfile links an authenticated principal to a student record.
// The roll number is validated at registration and immutable afterwards.
type StudentProfile struct {
	ID          int64     `gorm:"primaryKey"`
	PrincipalID string    `gorm:"uniqueIndex;size:64;not null"` // identity-provider subject
	RollNumber  string    `gorm:"uniqueIndex;size:20;not null"`
	FullName    string    `gorm:"size:256;not null"`
	Department  string    `gorm:"size:10;not null"`
	Year        int       `gorm:"not null"`
	PhoneNumber string    `gorm:"size:20"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`

	// Associations
	Entries []StorageEntry `gorm:"foreignKey:StudentID"`
}
