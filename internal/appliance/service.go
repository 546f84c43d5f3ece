package appliance

import (
	"fmt"
	"time"

	"appliance-billing-backend/internal/apperr"
	"appliance-billing-backend/internal/model"
	"appliance-billing-backend/internal/store"
)

// Factory resolves an (appliance name, endpoint id) pair to its locked
// occupancy row and binds a Service to it.
type Factory struct {
	now func() time.Time
}

// NewFactory creates a Factory. A nil now defaults to time.Now.
func NewFactory(now func() time.Time) *Factory {
	if now == nil {
		now = time.Now
	}
	return &Factory{now: now}
}

// Create looks up the appliance and endpoint and locks their state row for
// the rest of tx. Each missing record yields apperr.ErrNotFound.
func (f *Factory) Create(tx *store.Tx, applianceName string, endpointID int64) (*Service, error) {
	appliance, err := tx.ApplianceByName(applianceName)
	if err != nil {
		return nil, err
	}
	endpoint, err := tx.EndpointByID(endpointID)
	if err != nil {
		return nil, err
	}
	state, err := tx.LockState(endpoint.ID, appliance.ID)
	if err != nil {
		return nil, err
	}
	return &Service{tx: tx, state: state, appliance: appliance, now: f.now}, nil
}

// Service runs the IDLE/ACTIVE state machine of one (endpoint, appliance)
// pair. It is only valid inside the transaction it was created in.
type Service struct {
	tx        *store.Tx
	state     *model.EndpointApplianceState
	appliance *model.Appliance
	now       func() time.Time
}

// FinishResult describes a closed run.
type FinishResult struct {
	Log    *model.RunLog
	Refund int64
}

// State returns the bound occupancy row.
func (s *Service) State() *model.EndpointApplianceState {
	return s.state
}

// ActiveRunID returns the id of the running log, if any.
func (s *Service) ActiveRunID() (int64, bool) {
	if !s.state.IsOccupied || s.state.RunLogID == nil {
		return 0, false
	}
	return *s.state.RunLogID, true
}

// Start escrows price from the room and marks the appliance as running.
// It returns the room's balance after the withdrawal.
func (s *Service) Start(roomNum, units, price int64) (int64, error) {
	if s.state.IsOccupied {
		return 0, fmt.Errorf("%s on endpoint %d: %w", s.appliance.Name, s.state.EndpointID, apperr.ErrAlreadyRunning)
	}

	room, err := s.tx.LockRoomByKey(roomNum)
	if err != nil {
		return 0, err
	}
	if err := s.tx.Withdraw(room, price); err != nil {
		return 0, err
	}

	log := &model.RunLog{
		EndpointID:   s.state.EndpointID,
		ApplianceID:  s.state.ApplianceID,
		RoomID:       room.ID,
		CreatedAt:    s.now(),
		InitialUnits: units,
		InitialPrice: price,
		State:        model.RunStateRunning,
	}
	if err := s.tx.CreateRunLog(log); err != nil {
		return 0, err
	}

	s.state.Occupy(room.ID, log.ID)
	if err := s.tx.SaveState(s.state); err != nil {
		return 0, err
	}
	return room.Balance, nil
}

// Finish closes the running log with the actual usage, refunds the unused
// part of the escrow and frees the appliance. A final price above the
// escrowed one is recorded but never charged.
func (s *Service) Finish(finalUnits, finalPrice int64, aborted bool) (*FinishResult, error) {
	runID, ok := s.ActiveRunID()
	if !ok {
		return nil, fmt.Errorf("%s on endpoint %d: %w", s.appliance.Name, s.state.EndpointID, apperr.ErrNoActiveRun)
	}

	log, err := s.tx.RunLog(runID)
	if err != nil {
		return nil, err
	}
	if finalUnits > log.InitialUnits {
		return nil, fmt.Errorf("run %d: %d > %d: %w", log.ID, finalUnits, log.InitialUnits, apperr.ErrUnitsExceeded)
	}

	if err := log.Close(finalUnits, finalPrice, aborted, s.now()); err != nil {
		return nil, fmt.Errorf("run %d: %w", log.ID, err)
	}
	if err := s.tx.SaveRunLog(log); err != nil {
		return nil, err
	}

	var refund int64
	if diff := log.InitialPrice - finalPrice; diff > 0 {
		room, err := s.tx.LockRoom(log.RoomID)
		if err != nil {
			return nil, err
		}
		if err := s.tx.Deposit(room, diff); err != nil {
			return nil, err
		}
		refund = diff
	}

	s.state.Release()
	if err := s.tx.SaveState(s.state); err != nil {
		return nil, err
	}
	return &FinishResult{Log: log, Refund: refund}, nil
}
