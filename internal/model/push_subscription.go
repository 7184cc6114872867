package model

import "time"

// PushSubscription holds the information for a browser push subscription.
// Each subscription belongs to one principal; a student may register several
// browsers. Delivery is best effort and expired endpoints are pruned.
type PushSubscription struct {
	Endpoint    string    `gorm:"primaryKey"`
	PrincipalID string    `gorm:"index;size:64;not null"`
	P256DH      string    `gorm:"column:p256dh;not null"`
	Auth        string    `gorm:"not null"`
	CreatedAt   time.Time `gorm:"not null"`
}
