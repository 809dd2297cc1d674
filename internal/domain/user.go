package domain

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID
	Email        string
	Name         string
	PasswordHash string
	MobileNumber *string
	IsStaff      bool
	CreatedAt    time.Time
}
