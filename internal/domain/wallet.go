package domain

import (
	"time"

	"github.com/google/uuid"
)

// Wallet balances are held in minor units (paise, scale 2). A balance is
// never written directly: every mutation goes through the settlement
// service, which locks the row and records a WalletEntry in the same
// transaction. Balance >= 0 at every commit point.
type Wallet struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Balance   int64
	Version   int64
	CreatedAt time.Time
}

type EntryType string

const (
	EntryTypeDebit  EntryType = "debit"
	EntryTypeCredit EntryType = "credit"
)

// WalletEntry is the audit record for a single balance change.
// ViolationID is set for settlement debits and nil for deposits.
type WalletEntry struct {
	ID            uuid.UUID
	WalletID      uuid.UUID
	ViolationID   *uuid.UUID
	EntryType     EntryType
	Amount        int64
	BalanceBefore int64
	BalanceAfter  int64
	CreatedAt     time.Time
}
