package store

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"appliance-billing-backend/internal/apperr"
	"appliance-billing-backend/internal/model"
)

// Tx is a handle on an open transaction. The Lock* methods take row-level
// locks (SELECT ... FOR UPDATE) held until the transaction ends; balance and
// occupancy mutations must go through a row locked here.
type Tx struct {
	db *gorm.DB
}

func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

func (t *Tx) ApplianceByName(name string) (*model.Appliance, error) {
	var appliance model.Appliance
	if err := t.db.Where("name = ?", name).First(&appliance).Error; err != nil {
		return nil, lookupErr(err, "appliance %q", name)
	}
	return &appliance, nil
}

func (t *Tx) EndpointByID(id int64) (*model.Endpoint, error) {
	var endpoint model.Endpoint
	if err := t.db.First(&endpoint, id).Error; err != nil {
		return nil, lookupErr(err, "endpoint %d", id)
	}
	return &endpoint, nil
}

// LockState locks the occupancy row of an (endpoint, appliance) pair.
func (t *Tx) LockState(endpointID, applianceID int64) (*model.EndpointApplianceState, error) {
	var state model.EndpointApplianceState
	err := forUpdate(t.db).
		Where("endpoint_id = ? AND appliance_id = ?", endpointID, applianceID).
		First(&state).Error
	if err != nil {
		return nil, lookupErr(err, "state for endpoint %d appliance %d", endpointID, applianceID)
	}
	return &state, nil
}

// LockRoomByKey locks a room addressed by its public key.
func (t *Tx) LockRoomByKey(key int64) (*model.Room, error) {
	var room model.Room
	if err := forUpdate(t.db).Where("room_key = ?", key).First(&room).Error; err != nil {
		return nil, lookupErr(err, "room %d", key)
	}
	return &room, nil
}

// LockRoom locks a room addressed by its id.
func (t *Tx) LockRoom(id int64) (*model.Room, error) {
	var room model.Room
	if err := forUpdate(t.db).First(&room, id).Error; err != nil {
		return nil, lookupErr(err, "room id %d", id)
	}
	return &room, nil
}

// Withdraw takes amount from a locked room.
func (t *Tx) Withdraw(room *model.Room, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("withdraw of negative amount %d", amount)
	}
	if amount > room.Balance {
		return fmt.Errorf("room %d has %d, needs %d: %w", room.Key, room.Balance, amount, apperr.ErrInsufficientBalance)
	}
	return t.setBalance(room, room.Balance-amount)
}

// Deposit adds amount to a locked room.
func (t *Tx) Deposit(room *model.Room, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("deposit of negative amount %d", amount)
	}
	return t.setBalance(room, room.Balance+amount)
}

func (t *Tx) setBalance(room *model.Room, balance int64) error {
	if err := t.db.Model(room).Update("balance", balance).Error; err != nil {
		return fmt.Errorf("failed to update balance of room %d: %w", room.Key, err)
	}
	room.Balance = balance
	return nil
}

func (t *Tx) RunLog(id int64) (*model.RunLog, error) {
	var log model.RunLog
	if err := t.db.First(&log, id).Error; err != nil {
		return nil, lookupErr(err, "run log %d", id)
	}
	return &log, nil
}

func (t *Tx) CreateRunLog(log *model.RunLog) error {
	if err := t.db.Omit(clause.Associations).Create(log).Error; err != nil {
		return fmt.Errorf("failed to create run log: %w", err)
	}
	return nil
}

func (t *Tx) SaveRunLog(log *model.RunLog) error {
	if err := t.db.Omit(clause.Associations).Save(log).Error; err != nil {
		return fmt.Errorf("failed to save run log %d: %w", log.ID, err)
	}
	return nil
}

func (t *Tx) SaveState(state *model.EndpointApplianceState) error {
	if err := t.db.Omit(clause.Associations).Save(state).Error; err != nil {
		return fmt.Errorf("failed to save state %d: %w", state.ID, err)
	}
	return nil
}
