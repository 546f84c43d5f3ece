package store

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"gorm.io/gorm"

	"appliance-billing-backend/internal/model"
)

// ReconcilePayments credits a batch of bank transactions to rooms in one
// transaction. Transactions already recorded (valid or invalid) are skipped,
// so replaying a statement is safe. A transaction is valid when its variable
// symbol is the key of an existing room and its currency matches; valid
// amounts are summed per room and deposited under a row lock. Every new
// transaction, valid or not, is persisted for audit.
func (s *gormStore) ReconcilePayments(ctx context.Context, now time.Time, txns []BankTransaction, currency string) (*ReconcileResult, error) {
	result := &ReconcileResult{}
	if len(txns) == 0 {
		return result, nil
	}

	err := s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		*result = ReconcileResult{}
		tx := &Tx{db: db}

		seen, err := recordedTransactionIDs(db, txns)
		if err != nil {
			return err
		}

		rooms, err := lockRoomsBySymbol(db, txns)
		if err != nil {
			return err
		}

		var valid []model.ValidPayment
		var invalid []model.InvalidPayment
		deposits := make(map[int64]int64)

		for _, txn := range txns {
			if txn.ID == "" {
				result.Skipped++
				continue
			}
			if _, dup := seen[txn.ID]; dup {
				result.Skipped++
				continue
			}
			seen[txn.ID] = struct{}{}

			room, ok := roomForSymbol(rooms, txn.VariableSymbol)
			if ok && txn.Currency == currency {
				deposits[room.ID] += txn.Amount
				valid = append(valid, model.ValidPayment{
					TransactionID: txn.ID,
					Amount:        txn.Amount,
					RoomID:        room.ID,
					PaymentTime:   txn.Time,
					CreatedAt:     now,
				})
				continue
			}
			invalid = append(invalid, model.InvalidPayment{
				TransactionID:  txn.ID,
				Amount:         txn.Amount,
				VariableSymbol: txn.VariableSymbol,
				Currency:       txn.Currency,
				PaymentTime:    txn.Time,
				CreatedAt:      now,
			})
		}

		roomIDs := make([]int64, 0, len(deposits))
		for id := range deposits {
			roomIDs = append(roomIDs, id)
		}
		sort.Slice(roomIDs, func(i, j int) bool { return roomIDs[i] < roomIDs[j] })

		byID := make(map[int64]*model.Room, len(rooms))
		for _, room := range rooms {
			byID[room.ID] = room
		}
		for _, id := range roomIDs {
			if err := tx.Deposit(byID[id], deposits[id]); err != nil {
				return err
			}
			result.DepositedTotal += deposits[id]
		}

		if len(valid) > 0 {
			if err := db.Omit("Room").Create(&valid).Error; err != nil {
				return fmt.Errorf("failed to insert valid payments: %w", err)
			}
		}
		if len(invalid) > 0 {
			if err := db.Create(&invalid).Error; err != nil {
				return fmt.Errorf("failed to insert invalid payments: %w", err)
			}
		}

		result.Valid = len(valid)
		result.Invalid = len(invalid)
		result.RoomsCredited = len(roomIDs)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// recordedTransactionIDs returns the ids from txns that are already stored in either payment table.
func recordedTransactionIDs(db *gorm.DB, txns []BankTransaction) (map[string]struct{}, error) {
	ids := make([]string, 0, len(txns))
	for _, txn := range txns {
		if txn.ID != "" {
			ids = append(ids, txn.ID)
		}
	}

	seen := make(map[string]struct{})
	if len(ids) == 0 {
		return seen, nil
	}

	var validIDs, invalidIDs []string
	if err := db.Model(&model.ValidPayment{}).Where("transaction_id IN ?", ids).Pluck("transaction_id", &validIDs).Error; err != nil {
		return nil, fmt.Errorf("failed to query valid payments: %w", err)
	}
	if err := db.Model(&model.InvalidPayment{}).Where("transaction_id IN ?", ids).Pluck("transaction_id", &invalidIDs).Error; err != nil {
		return nil, fmt.Errorf("failed to query invalid payments: %w", err)
	}
	for _, id := range validIDs {
		seen[id] = struct{}{}
	}
	for _, id := range invalidIDs {
		seen[id] = struct{}{}
	}
	return seen, nil
}

// lockRoomsBySymbol locks every room whose key appears as a variable symbol,
// in id order, and indexes them by key.
func lockRoomsBySymbol(db *gorm.DB, txns []BankTransaction) (map[int64]*model.Room, error) {
	var keys []int64
	for _, txn := range txns {
		if key, ok := roomKey(txn.VariableSymbol); ok {
			keys = append(keys, key)
		}
	}

	rooms := make(map[int64]*model.Room)
	if len(keys) == 0 {
		return rooms, nil
	}

	var locked []model.Room
	if err := forUpdate(db).Where("room_key IN ?", keys).Order("id").Find(&locked).Error; err != nil {
		return nil, fmt.Errorf("failed to lock rooms: %w", err)
	}
	for i := range locked {
		rooms[locked[i].Key] = &locked[i]
	}
	return rooms, nil
}

// roomKey reads a variable symbol as a room key. The symbol must be the
// key written in canonical decimal, so "0101" and "+101" match no room.
func roomKey(symbol string) (int64, bool) {
	key, err := strconv.ParseInt(symbol, 10, 64)
	if err != nil || strconv.FormatInt(key, 10) != symbol {
		return 0, false
	}
	return key, true
}

func roomForSymbol(rooms map[int64]*model.Room, symbol string) (*model.Room, bool) {
	key, ok := roomKey(symbol)
	if !ok {
		return nil, false
	}
	room, ok := rooms[key]
	return room, ok
}
