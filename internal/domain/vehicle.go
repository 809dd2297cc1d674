package domain

import (
	"time"

	"github.com/google/uuid"
)

// Vehicle links a registered plate to its owning user. PlateCanonical is
// computed once at registration time and is unique across all vehicles;
// detection-time lookups match on it exactly, never on PlateRaw.
type Vehicle struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	PlateRaw       string
	PlateCanonical string
	CreatedAt      time.Time
}
