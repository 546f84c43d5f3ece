package store

import "time"

// BankTransaction is a single incoming transfer taken from a bank statement.
type BankTransaction struct {
	ID             string
	Amount         int64 // Smallest currency unit
	VariableSymbol string
	Currency       string
	Time           time.Time
}

// ReconcileResult summarises one ReconcilePayments batch.
type ReconcileResult struct {
	Valid          int
	Invalid        int
	Skipped        int
	Malformed      int // Rows the statement parser could not read; never reach the ledger
	RoomsCredited  int
	DepositedTotal int64
}
