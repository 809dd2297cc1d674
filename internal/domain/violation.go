package domain

import (
	"time"

	"github.com/google/uuid"
)

type ViolationStatus string

const (
	ViolationStatusPending ViolationStatus = "pending"
	ViolationStatusPaid    ViolationStatus = "paid"
)

// Violation is created in pending state when a detection matches a
// registered vehicle. Amount and VehicleID are fixed at creation; Status
// moves pending->paid at most once, under the settlement lock.
type Violation struct {
	ID          uuid.UUID
	VehicleID   uuid.UUID
	Amount      int64
	Status      ViolationStatus
	EvidenceRef string
	CreatedAt   time.Time
	PaidAt      *time.Time
}
