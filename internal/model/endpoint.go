package model

import "time"

// Endpoint is a controller attached to one or more appliances.
type Endpoint struct {
	ID           int64  `gorm:"primaryKey"`
	IPAddress    string `gorm:"size:64"`
	Connected    bool   `gorm:"not null;default:false"`
	TokenVersion int    `gorm:"not null;default:1"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
