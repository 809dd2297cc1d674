package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/viscan/viscan-backend/internal/domain"
)

const violationColumns = `id, vehicle_id, amount, status, evidence_ref, created_at, paid_at`

type ViolationRepository struct {
	db *sql.DB
}

func NewViolationRepository(db *sql.DB) *ViolationRepository {
	return &ViolationRepository{db: db}
}

func (r *ViolationRepository) Create(ctx context.Context, v *domain.Violation) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO violations (id, vehicle_id, amount, status, evidence_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		v.ID, v.VehicleID, v.Amount, v.Status, v.EvidenceRef, v.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *ViolationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Violation, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+violationColumns+` FROM violations WHERE id = $1`, id,
	)
	v, err := scanViolation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return v, nil
}

// GetForUpdate locks the violation row for the duration of tx. Settlement
// re-reads status under this lock before deciding to debit.
func (r *ViolationRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Violation, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+violationColumns+` FROM violations WHERE id = $1 FOR UPDATE`, id,
	)
	v, err := scanViolation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return v, nil
}

// MarkPaid flips pending -> paid. The WHERE clause is the single point
// that enforces the one-way, at-most-once transition: zero rows means the
// violation was already paid (or never existed).
func (r *ViolationRepository) MarkPaid(ctx context.Context, tx *sql.Tx, id uuid.UUID, paidAt time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE violations SET status = $1, paid_at = $2 WHERE id = $3 AND status = $4`,
		domain.ViolationStatusPaid, paidAt, id, domain.ViolationStatusPending,
	)
	if err != nil {
		return fmt.Errorf("MarkPaid: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("MarkPaid: rows affected: %w", err)
	}
	if rows == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM violations WHERE id = $1)`, id,
		).Scan(&exists); err != nil {
			return fmt.Errorf("MarkPaid: %w", err)
		}
		if exists {
			return fmt.Errorf("MarkPaid: %w", domain.ErrAlreadyPaid)
		}
		return fmt.Errorf("MarkPaid: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *ViolationRepository) GetByVehicleIDs(ctx context.Context, vehicleIDs []uuid.UUID, limit int) ([]domain.Violation, error) {
	if len(vehicleIDs) == 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+violationColumns+` FROM violations
		WHERE vehicle_id = ANY($1)
		ORDER BY created_at DESC
		LIMIT $2`,
		pq.Array(vehicleIDs), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("GetByVehicleIDs: %w", err)
	}
	defer rows.Close()
	return collectViolations(rows, "GetByVehicleIDs")
}

func (r *ViolationRepository) GetRecent(ctx context.Context, limit int) ([]domain.Violation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+violationColumns+` FROM violations ORDER BY created_at DESC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("GetRecent: %w", err)
	}
	defer rows.Close()
	return collectViolations(rows, "GetRecent")
}

func collectViolations(rows *sql.Rows, op string) ([]domain.Violation, error) {
	var violations []domain.Violation
	for rows.Next() {
		v, err := scanViolation(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		violations = append(violations, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}
	return violations, nil
}

func scanViolation(s scanner) (*domain.Violation, error) {
	var v domain.Violation
	err := s.Scan(&v.ID, &v.VehicleID, &v.Amount, &v.Status, &v.EvidenceRef, &v.CreatedAt, &v.PaidAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
