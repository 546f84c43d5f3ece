package store

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"gorm.io/gorm"

	"appliance-billing-backend/internal/apperr"
	"appliance-billing-backend/internal/model"
)

// Store defines the interface for all database operations.
type Store interface {
	DB() *gorm.DB
	WithTx(ctx context.Context, fn func(tx *Tx) error) error
	RoomByKey(ctx context.Context, key int64) (*model.Room, error)
	EndpointByID(ctx context.Context, id int64) (*model.Endpoint, error)
	RoomSecret(ctx context.Context, roomID int64) (string, error)
	ListAppliances(ctx context.Context) ([]model.Appliance, error)
	SetAppliancePrice(ctx context.Context, name string, price int64) error
	ReconcilePayments(ctx context.Context, now time.Time, txns []BankTransaction, currency string) (*ReconcileResult, error)
	RotateEndpointToken(ctx context.Context, endpointID int64) (int, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// WithTx runs fn inside a single database transaction. Any error returned by
// fn rolls back every write made through tx.
func (s *gormStore) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(&Tx{db: db})
	})
}

func (s *gormStore) RoomByKey(ctx context.Context, key int64) (*model.Room, error) {
	var room model.Room
	if err := s.db.WithContext(ctx).Where("room_key = ?", key).First(&room).Error; err != nil {
		return nil, lookupErr(err, "room %d", key)
	}
	return &room, nil
}

func (s *gormStore) EndpointByID(ctx context.Context, id int64) (*model.Endpoint, error) {
	var endpoint model.Endpoint
	if err := s.db.WithContext(ctx).First(&endpoint, id).Error; err != nil {
		return nil, lookupErr(err, "endpoint %d", id)
	}
	return &endpoint, nil
}

func (s *gormStore) RoomSecret(ctx context.Context, roomID int64) (string, error) {
	var secret model.RoomTOTP
	if err := s.db.WithContext(ctx).Where("room_id = ?", roomID).First(&secret).Error; err != nil {
		return "", lookupErr(err, "totp secret for room id %d", roomID)
	}
	return secret.Secret, nil
}

func (s *gormStore) ListAppliances(ctx context.Context) ([]model.Appliance, error) {
	var appliances []model.Appliance
	if err := s.db.WithContext(ctx).Order("id").Find(&appliances).Error; err != nil {
		return nil, fmt.Errorf("failed to list appliances: %w", err)
	}
	return appliances, nil
}

// SetAppliancePrice changes the reference rate of the named appliance.
func (s *gormStore) SetAppliancePrice(ctx context.Context, name string, price int64) error {
	res := s.db.WithContext(ctx).Model(&model.Appliance{}).
		Where("name = ?", name).
		Update("price_per_unit", price)
	if res.Error != nil {
		return fmt.Errorf("failed to set price of appliance %q: %w", name, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("appliance %q: %w", name, apperr.ErrNotFound)
	}
	return nil
}

// RotateEndpointToken assigns a fresh random token version to the endpoint.
func (s *gormStore) RotateEndpointToken(ctx context.Context, endpointID int64) (int, error) {
	version := rand.IntN(1_000_000) + 1
	res := s.db.WithContext(ctx).Model(&model.Endpoint{}).
		Where("id = ?", endpointID).
		Update("token_version", version)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to rotate token for endpoint %d: %w", endpointID, res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, fmt.Errorf("endpoint %d: %w", endpointID, apperr.ErrNotFound)
	}
	return version, nil
}

// lookupErr maps gorm's not-found error onto apperr.ErrNotFound and wraps anything else.
func lookupErr(err error, format string, args ...any) error {
	what := fmt.Sprintf(format, args...)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, apperr.ErrNotFound)
	}
	return fmt.Errorf("failed to load %s: %w", what, err)
}
