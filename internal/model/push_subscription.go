package model

import "time"

// PushSubscription holds a browser push subscription and the appliance
// slots it wants to hear about when they become free.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`

	// Associations
	States []*EndpointApplianceState `gorm:"many2many:subscription_state_mapping;constraint:OnDelete:CASCADE"`
}
