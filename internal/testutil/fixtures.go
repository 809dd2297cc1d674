package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/viscan/viscan-backend/internal/domain"
	"github.com/viscan/viscan-backend/internal/plate"
)

func SeedUser(t *testing.T, db *sql.DB, email, name string) *domain.User {
	t.Helper()
	return seedUser(t, db, email, name, false)
}

func SeedStaffUser(t *testing.T, db *sql.DB, email, name string) *domain.User {
	t.Helper()
	return seedUser(t, db, email, name, true)
}

func seedUser(t *testing.T, db *sql.DB, email, name string, isStaff bool) *domain.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		IsStaff:      isStaff,
		CreatedAt:    time.Now().UTC(),
	}

	_, err = db.Exec(
		`INSERT INTO users (id, email, name, password_hash, is_staff, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Email, u.Name, u.PasswordHash, u.IsStaff, u.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed user %s: %v", email, err)
	}
	return u
}

func SeedWallet(t *testing.T, db *sql.DB, userID uuid.UUID, balance int64) *domain.Wallet {
	t.Helper()

	w := &domain.Wallet{
		ID:        uuid.New(),
		UserID:    userID,
		Balance:   balance,
		Version:   0,
		CreatedAt: time.Now().UTC(),
	}

	_, err := db.Exec(
		`INSERT INTO wallets (id, user_id, balance, version, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		w.ID, w.UserID, w.Balance, w.Version, w.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed wallet for %s: %v", userID, err)
	}
	return w
}

func SeedVehicle(t *testing.T, db *sql.DB, userID uuid.UUID, plateRaw string) *domain.Vehicle {
	t.Helper()

	canonical, err := plate.Canonicalize(plateRaw)
	if err != nil {
		t.Fatalf("canonicalize plate %q: %v", plateRaw, err)
	}
	v := &domain.Vehicle{
		ID:             uuid.New(),
		UserID:         userID,
		PlateRaw:       plateRaw,
		PlateCanonical: canonical,
		CreatedAt:      time.Now().UTC(),
	}

	_, err = db.Exec(
		`INSERT INTO vehicles (id, user_id, plate_raw, plate_canonical, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		v.ID, v.UserID, v.PlateRaw, v.PlateCanonical, v.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed vehicle %s: %v", plateRaw, err)
	}
	return v
}

func SeedViolation(t *testing.T, db *sql.DB, vehicleID uuid.UUID, amount int64, status domain.ViolationStatus) *domain.Violation {
	t.Helper()

	v := &domain.Violation{
		ID:          uuid.New(),
		VehicleID:   vehicleID,
		Amount:      amount,
		Status:      status,
		EvidenceRef: "/media/test-evidence.jpg",
		CreatedAt:   time.Now().UTC(),
	}

	_, err := db.Exec(
		`INSERT INTO violations (id, vehicle_id, amount, status, evidence_ref, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		v.ID, v.VehicleID, v.Amount, v.Status, v.EvidenceRef, v.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed violation for vehicle %s: %v", vehicleID, err)
	}
	return v
}

func GetWalletBalance(t *testing.T, db *sql.DB, walletID uuid.UUID) int64 {
	t.Helper()

	var balance int64
	err := db.QueryRow(`SELECT balance FROM wallets WHERE id = $1`, walletID).Scan(&balance)
	if err != nil {
		t.Fatalf("get wallet balance %s: %v", walletID, err)
	}
	return balance
}

func GetViolationStatus(t *testing.T, db *sql.DB, violationID uuid.UUID) domain.ViolationStatus {
	t.Helper()

	var status domain.ViolationStatus
	err := db.QueryRow(`SELECT status FROM violations WHERE id = $1`, violationID).Scan(&status)
	if err != nil {
		t.Fatalf("get violation status %s: %v", violationID, err)
	}
	return status
}

func CountWalletEntries(t *testing.T, db *sql.DB, walletID uuid.UUID) int {
	t.Helper()

	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM wallet_entries WHERE wallet_id = $1`, walletID).Scan(&count)
	if err != nil {
		t.Fatalf("count wallet entries for %s: %v", walletID, err)
	}
	return count
}

func CountViolationsForVehicle(t *testing.T, db *sql.DB, vehicleID uuid.UUID) int {
	t.Helper()

	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM violations WHERE vehicle_id = $1`, vehicleID).Scan(&count)
	if err != nil {
		t.Fatalf("count violations for vehicle %s: %v", vehicleID, err)
	}
	return count
}
