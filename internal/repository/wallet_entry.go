package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/viscan/viscan-backend/internal/domain"
)

const walletEntryColumns = `id, wallet_id, violation_id, entry_type, amount, balance_before, balance_after, created_at`

type WalletEntryRepository struct {
	db *sql.DB
}

func NewWalletEntryRepository(db *sql.DB) *WalletEntryRepository {
	return &WalletEntryRepository{db: db}
}

// Create writes the audit record inside the same tx that moves the
// balance, so entries and balances can never disagree.
func (r *WalletEntryRepository) Create(ctx context.Context, tx *sql.Tx, e *domain.WalletEntry) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO wallet_entries (id, wallet_id, violation_id, entry_type, amount, balance_before, balance_after, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.WalletID, e.ViolationID, e.EntryType,
		e.Amount, e.BalanceBefore, e.BalanceAfter, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *WalletEntryRepository) GetByWalletID(ctx context.Context, walletID uuid.UUID, limit int) ([]domain.WalletEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+walletEntryColumns+` FROM wallet_entries
		WHERE wallet_id = $1 ORDER BY created_at DESC LIMIT $2`,
		walletID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("GetByWalletID: %w", err)
	}
	defer rows.Close()

	var entries []domain.WalletEntry
	for rows.Next() {
		e, err := scanWalletEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("GetByWalletID: scan: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetByWalletID: rows: %w", err)
	}
	return entries, nil
}

func (r *WalletEntryRepository) GetByViolationID(ctx context.Context, violationID uuid.UUID) ([]domain.WalletEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+walletEntryColumns+` FROM wallet_entries
		WHERE violation_id = $1 ORDER BY created_at`,
		violationID,
	)
	if err != nil {
		return nil, fmt.Errorf("GetByViolationID: %w", err)
	}
	defer rows.Close()

	var entries []domain.WalletEntry
	for rows.Next() {
		e, err := scanWalletEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("GetByViolationID: scan: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetByViolationID: rows: %w", err)
	}
	return entries, nil
}

func scanWalletEntry(s scanner) (*domain.WalletEntry, error) {
	var e domain.WalletEntry
	err := s.Scan(
		&e.ID, &e.WalletID, &e.ViolationID, &e.EntryType,
		&e.Amount, &e.BalanceBefore, &e.BalanceAfter, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
