package model

// Appliance is a kind of shared machine, e.g. a washer or a dryer.
type Appliance struct {
	ID           int64  `gorm:"primaryKey"`
	Name         string `gorm:"uniqueIndex;size:200;not null"`
	PricePerUnit int64  `gorm:"not null"` // Reference rate; the caller supplies the charged price
}
