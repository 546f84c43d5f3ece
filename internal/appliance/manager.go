package appliance

import (
	"context"
	"fmt"

	"appliance-billing-backend/internal/apperr"
	"appliance-billing-backend/internal/metrics"
	"appliance-billing-backend/internal/store"
	"appliance-billing-backend/internal/token"
)

// CentsPerUnit converts the whole-unit prices received from endpoints into
// the smallest currency unit used by the ledger.
const CentsPerUnit = 100

// Notifier is told which occupancy row became free after a committed finish.
type Notifier interface {
	Dispatch(stateID int64)
}

// Manager runs the start and finish operations, each in one transaction.
type Manager struct {
	store    store.Store
	tokens   *token.Service
	factory  *Factory
	notifier Notifier
}

// NewManager creates a Manager. notifier may be nil.
func NewManager(s store.Store, tokens *token.Service, factory *Factory, notifier Notifier) *Manager {
	return &Manager{store: s, tokens: tokens, factory: factory, notifier: notifier}
}

// StartRequest carries a validated start request. Price is in whole currency units.
type StartRequest struct {
	Token         string
	ApplianceName string
	Units         int64
	Price         int64
}

// StartResult is returned by a successful Start.
type StartResult struct {
	Token   string
	Balance int64
	RunID   int64
}

// Start authorizes with an access token, escrows the price and returns a
// start-session token bound to the new run.
func (m *Manager) Start(ctx context.Context, req StartRequest) (*StartResult, error) {
	claims, err := m.tokens.Verify(req.Token, token.StageAccess)
	if err != nil {
		return nil, err
	}

	result := &StartResult{}
	err = m.store.WithTx(ctx, func(tx *store.Tx) error {
		svc, err := m.factory.Create(tx, req.ApplianceName, claims.EndpointID)
		if err != nil {
			return err
		}
		balance, err := svc.Start(claims.RoomNum, req.Units, req.Price*CentsPerUnit)
		if err != nil {
			return err
		}
		runID, _ := svc.ActiveRunID()

		session, err := m.tokens.Issue(token.StartSession{
			RoomNum:       claims.RoomNum,
			EndpointID:    claims.EndpointID,
			ApplianceName: req.ApplianceName,
			RunID:         runID,
			Units:         req.Units,
		})
		if err != nil {
			return err
		}

		*result = StartResult{Token: session, Balance: balance, RunID: runID}
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.RunsStartedTotal.WithLabelValues(req.ApplianceName).Inc()
	return result, nil
}

// FinishRequest carries a validated finish request. Price is in whole currency units.
type FinishRequest struct {
	Token   string
	Units   int64
	Price   int64
	Aborted bool
}

// Finish closes the run named by a start-session token. The appliance and
// endpoint come from the token only.
func (m *Manager) Finish(ctx context.Context, req FinishRequest) (*FinishResult, error) {
	claims, err := m.tokens.Verify(req.Token, token.StageStart)
	if err != nil {
		return nil, err
	}

	var result *FinishResult
	var stateID int64
	err = m.store.WithTx(ctx, func(tx *store.Tx) error {
		svc, err := m.factory.Create(tx, claims.ApplianceName, claims.EndpointID)
		if err != nil {
			return err
		}
		if runID, ok := svc.ActiveRunID(); ok && runID != claims.RunID {
			return fmt.Errorf("session for run %d, appliance is on run %d: %w", claims.RunID, runID, apperr.ErrNoActiveRun)
		}

		result, err = svc.Finish(req.Units, req.Price*CentsPerUnit, req.Aborted)
		if err != nil {
			return err
		}
		stateID = svc.State().ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.RunsFinishedTotal.WithLabelValues(claims.ApplianceName, result.Log.State.String()).Inc()
	metrics.RefundedCentsTotal.Add(float64(result.Refund))

	if m.notifier != nil {
		m.notifier.Dispatch(stateID)
	}
	return result, nil
}
