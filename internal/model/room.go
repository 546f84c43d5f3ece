package model

import "time"

// Room holds a prepaid balance in the smallest currency unit.
type Room struct {
	ID        int64     `gorm:"primaryKey"`
	Key       int64     `gorm:"column:room_key;uniqueIndex;not null"` // Public room number, also the bank variable symbol
	Balance   int64     `gorm:"not null;check:balance_non_negative,balance >= 0"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// RoomTOTP is the shared secret a room uses to generate authorization codes.
type RoomTOTP struct {
	ID     int64  `gorm:"primaryKey"`
	RoomID int64  `gorm:"uniqueIndex;not null"`
	Secret string `gorm:"size:255;not null"`

	Room Room `gorm:"constraint:OnDelete:CASCADE"`
}
