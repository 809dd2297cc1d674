// Package settlement orchestrates the recognition-to-settlement pipeline:
// detection result -> plate match -> violation creation -> wallet debit.
// It is the only writer of wallet balances and violation status.
package settlement

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/viscan/viscan-backend/internal/anpr"
	"github.com/viscan/viscan-backend/internal/domain"
	"github.com/viscan/viscan-backend/internal/evidence"
)

type vehicleRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Vehicle, error)
	GetByCanonicalPlate(ctx context.Context, key string) (*domain.Vehicle, error)
}

type walletRepo interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Wallet, error)
	UpdateBalance(ctx context.Context, tx *sql.Tx, id uuid.UUID, newBalance, newVersion int64) error
}

type violationRepo interface {
	Create(ctx context.Context, v *domain.Violation) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Violation, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Violation, error)
	MarkPaid(ctx context.Context, tx *sql.Tx, id uuid.UUID, paidAt time.Time) error
}

type entryRepo interface {
	Create(ctx context.Context, tx *sql.Tx, e *domain.WalletEntry) error
	GetByWalletID(ctx context.Context, walletID uuid.UUID, limit int) ([]domain.WalletEntry, error)
}

type submissionRepo interface {
	Record(ctx context.Context, evidenceHash string, window time.Duration) (bool, error)
}

type Config struct {
	// FeeMinor is charged per violation, in minor units.
	FeeMinor int64
	// DedupeWindow treats a resubmission of the same evidence within it
	// as the same physical event.
	DedupeWindow time.Duration
	// MaxAttempts and Backoff bound retries of transient storage
	// contention inside a settle.
	MaxAttempts int
	Backoff     time.Duration
}

type Service struct {
	vehicles    vehicleRepo
	wallets     walletRepo
	violations  violationRepo
	entries     entryRepo
	submissions submissionRepo
	detector    anpr.Detector
	recognizer  anpr.Recognizer
	evidence    evidence.Store
	db          *sql.DB
	cfg         Config
}

func NewService(
	vehicles vehicleRepo,
	wallets walletRepo,
	violations violationRepo,
	entries entryRepo,
	submissions submissionRepo,
	detector anpr.Detector,
	recognizer anpr.Recognizer,
	evidenceStore evidence.Store,
	db *sql.DB,
	cfg Config,
) *Service {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Service{
		vehicles:    vehicles,
		wallets:     wallets,
		violations:  violations,
		entries:     entries,
		submissions: submissions,
		detector:    detector,
		recognizer:  recognizer,
		evidence:    evidenceStore,
		db:          db,
		cfg:         cfg,
	}
}

// GetViolation is a read accessor for dashboards; no invariants beyond
// visibility.
func (s *Service) GetViolation(ctx context.Context, id uuid.UUID) (*domain.Violation, error) {
	v, err := s.violations.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("GetViolation: %w", err)
	}
	return v, nil
}

func (s *Service) GetViolationForUser(ctx context.Context, violationID, userID uuid.UUID) (*domain.Violation, error) {
	v, err := s.violations.GetByID(ctx, violationID)
	if err != nil {
		return nil, fmt.Errorf("GetViolationForUser: %w", err)
	}

	vehicle, err := s.vehicles.GetByID(ctx, v.VehicleID)
	if err != nil {
		return nil, fmt.Errorf("GetViolationForUser: %w", err)
	}
	if vehicle.UserID != userID {
		return nil, fmt.Errorf("GetViolationForUser: %w", domain.ErrNotFound)
	}
	return v, nil
}

// GetEntries returns the most recent balance changes on the user's
// wallet, newest first.
func (s *Service) GetEntries(ctx context.Context, userID uuid.UUID, limit int) ([]domain.WalletEntry, error) {
	w, err := s.wallets.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("GetEntries: %w", err)
	}
	entries, err := s.entries.GetByWalletID(ctx, w.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("GetEntries: %w", err)
	}
	return entries, nil
}

func (s *Service) GetWallet(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	w, err := s.wallets.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("GetWallet: %w", err)
	}
	return w, nil
}
