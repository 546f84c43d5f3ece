package model

import "time"

// ValidPayment is a bank transaction credited to a room.
type ValidPayment struct {
	ID            int64     `gorm:"primaryKey"`
	TransactionID string    `gorm:"uniqueIndex;size:255;not null"`
	Amount        int64     `gorm:"not null"`
	RoomID        int64     `gorm:"index;not null"`
	PaymentTime   time.Time `gorm:"not null"`
	CreatedAt     time.Time `gorm:"not null"`

	Room Room `gorm:"constraint:OnDelete:RESTRICT"`
}

// InvalidPayment is a bank transaction that could not be credited, kept for audit.
type InvalidPayment struct {
	ID             int64     `gorm:"primaryKey"`
	TransactionID  string    `gorm:"uniqueIndex;size:255;not null"`
	Amount         int64     `gorm:"not null"`
	VariableSymbol string    `gorm:"index;size:255;not null"`
	Currency       string    `gorm:"size:8"`
	PaymentTime    time.Time `gorm:"not null"`
	CreatedAt      time.Time `gorm:"not null"`
}
