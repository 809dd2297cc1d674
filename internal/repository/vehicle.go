package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/viscan/viscan-backend/internal/domain"
)

const vehicleColumns = `id, user_id, plate_raw, plate_canonical, created_at`

type VehicleRepository struct {
	db *sql.DB
}

func NewVehicleRepository(db *sql.DB) *VehicleRepository {
	return &VehicleRepository{db: db}
}

func (r *VehicleRepository) Create(ctx context.Context, v *domain.Vehicle) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO vehicles (id, user_id, plate_raw, plate_canonical, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		v.ID, v.UserID, v.PlateRaw, v.PlateCanonical, v.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err, "vehicles_plate_canonical_key") {
			return fmt.Errorf("Create: %w", domain.ErrDuplicatePlate)
		}
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *VehicleRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Vehicle, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+vehicleColumns+` FROM vehicles WHERE id = $1`, id,
	)
	v, err := scanVehicle(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return v, nil
}

// GetByCanonicalPlate is an exact keyed lookup against the unique
// plate_canonical index. No fuzzy or partial matching: a near-miss plate
// must not be charged.
func (r *VehicleRepository) GetByCanonicalPlate(ctx context.Context, key string) (*domain.Vehicle, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+vehicleColumns+` FROM vehicles WHERE plate_canonical = $1`, key,
	)
	v, err := scanVehicle(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByCanonicalPlate: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByCanonicalPlate: %w", err)
	}
	return v, nil
}

func (r *VehicleRepository) GetByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Vehicle, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+vehicleColumns+` FROM vehicles WHERE user_id = $1 ORDER BY created_at`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("GetByUserID: %w", err)
	}
	defer rows.Close()

	var vehicles []domain.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, fmt.Errorf("GetByUserID: scan: %w", err)
		}
		vehicles = append(vehicles, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetByUserID: rows: %w", err)
	}
	return vehicles, nil
}

// UpdatePlate reassigns a vehicle's plate. Both forms are rewritten so
// the stored canonical key never drifts from the raw plate.
func (r *VehicleRepository) UpdatePlate(ctx context.Context, id uuid.UUID, plateRaw, plateCanonical string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE vehicles SET plate_raw = $1, plate_canonical = $2 WHERE id = $3`,
		plateRaw, plateCanonical, id,
	)
	if err != nil {
		if IsUniqueViolation(err, "vehicles_plate_canonical_key") {
			return fmt.Errorf("UpdatePlate: %w", domain.ErrDuplicatePlate)
		}
		return fmt.Errorf("UpdatePlate: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("UpdatePlate: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("UpdatePlate: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *VehicleRepository) UpdateOwner(ctx context.Context, id, userID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE vehicles SET user_id = $1 WHERE id = $2`, userID, id,
	)
	if err != nil {
		return fmt.Errorf("UpdateOwner: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("UpdateOwner: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("UpdateOwner: %w", domain.ErrNotFound)
	}
	return nil
}

// Delete removes a vehicle; its violations go with it (FK cascade).
func (r *VehicleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM vehicles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Delete: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("Delete: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *VehicleRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vehicles`).Scan(&n); err != nil {
		return 0, fmt.Errorf("Count: %w", err)
	}
	return n, nil
}

func scanVehicle(s scanner) (*domain.Vehicle, error) {
	var v domain.Vehicle
	err := s.Scan(&v.ID, &v.UserID, &v.PlateRaw, &v.PlateCanonical, &v.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
