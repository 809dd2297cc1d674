package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SubmissionRepository deduplicates detection submissions by evidence
// content hash. A client retry of the same physical capture within the
// window must not create a second violation.
type SubmissionRepository struct {
	db *sql.DB
}

func NewSubmissionRepository(db *sql.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// Record claims the hash for this submission. It returns false when a
// submission with the same hash already exists inside the window, i.e.
// the caller lost the claim and must treat the event as a duplicate.
// The insert-first shape makes the claim atomic under concurrent retries.
func (r *SubmissionRepository) Record(ctx context.Context, evidenceHash string, window time.Duration) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO detection_submissions (id, evidence_hash, submitted_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (evidence_hash) DO UPDATE
			SET submitted_at = EXCLUDED.submitted_at
			WHERE detection_submissions.submitted_at < $4`,
		uuid.New(), evidenceHash, time.Now().UTC(), time.Now().UTC().Add(-window),
	)
	if err != nil {
		return false, fmt.Errorf("Record: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("Record: rows affected: %w", err)
	}
	return rows > 0, nil
}
