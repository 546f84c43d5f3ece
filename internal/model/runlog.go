package model

import (
	"errors"
	"time"
)

// RunState is the lifecycle state of a RunLog.
type RunState int

const (
	RunStateRunning  RunState = 1
	RunStateFinished RunState = 2
	RunStateAborted  RunState = 3
)

func (s RunState) String() string {
	switch s {
	case RunStateRunning:
		return "running"
	case RunStateFinished:
		return "finished"
	case RunStateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// ErrRunClosed is returned when closing a log that already left RUNNING.
var ErrRunClosed = errors.New("run log already closed")

// RunLog records a single appliance execution: the escrowed estimate and the final actuals.
type RunLog struct {
	ID           int64     `gorm:"primaryKey"`
	EndpointID   int64     `gorm:"not null;index"`
	ApplianceID  int64     `gorm:"not null;index"`
	RoomID       int64     `gorm:"not null;index"`
	CreatedAt    time.Time `gorm:"not null"`
	InitialUnits int64     `gorm:"not null"`
	InitialPrice int64     `gorm:"not null"`
	State        RunState  `gorm:"not null;default:1"`
	FinishedAt   *time.Time
	FinalUnits   *int64
	FinalPrice   *int64

	// Associations
	Endpoint  Endpoint  `gorm:"constraint:OnDelete:RESTRICT"`
	Appliance Appliance `gorm:"constraint:OnDelete:RESTRICT"`
	Room      Room      `gorm:"constraint:OnDelete:RESTRICT"`
}

// Close moves a running log to FINISHED or ABORTED and records the actuals.
func (l *RunLog) Close(finalUnits, finalPrice int64, aborted bool, at time.Time) error {
	if l.State != RunStateRunning {
		return ErrRunClosed
	}
	l.State = RunStateFinished
	if aborted {
		l.State = RunStateAborted
	}
	l.FinalUnits = &finalUnits
	l.FinalPrice = &finalPrice
	l.FinishedAt = &at
	return nil
}
