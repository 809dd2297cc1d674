package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/viscan/viscan-backend/internal/domain"
	"github.com/viscan/viscan-backend/internal/logging"
)

type userRepo interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type walletCreator interface {
	Create(ctx context.Context, w *domain.Wallet) error
}

type vehicleRegistrar interface {
	Register(ctx context.Context, userID uuid.UUID, plateRaw string) (*domain.Vehicle, error)
}

type UserService struct {
	users    userRepo
	wallets  walletCreator
	vehicles vehicleRegistrar
}

func NewUserService(users userRepo, wallets walletCreator, vehicles vehicleRegistrar) *UserService {
	return &UserService{users: users, wallets: wallets, vehicles: vehicles}
}

type RegisterRequest struct {
	Email        string
	Name         string
	Password     string
	MobileNumber *string
	// PlateRaw optionally registers the user's first vehicle.
	PlateRaw string
}

// Register creates the user, their zero-balance wallet, and optionally a
// first vehicle.
func (s *UserService) Register(ctx context.Context, req RegisterRequest) (*domain.User, error) {
	log := logging.FromContext(ctx)

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("Register: hash: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New(),
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: string(hash),
		MobileNumber: req.MobileNumber,
		IsStaff:      false,
		CreatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("Register: %w", err)
	}

	wallet := &domain.Wallet{
		ID:        uuid.New(),
		UserID:    user.ID,
		Balance:   0,
		Version:   1,
		CreatedAt: now,
	}
	if err := s.wallets.Create(ctx, wallet); err != nil {
		return nil, fmt.Errorf("Register: wallet: %w", err)
	}

	if req.PlateRaw != "" {
		if _, err := s.vehicles.Register(ctx, user.ID, req.PlateRaw); err != nil {
			return nil, fmt.Errorf("Register: vehicle: %w", err)
		}
	}

	log.Info("user registered", "user_id", user.ID, "email", user.Email)
	return user, nil
}

// Authenticate verifies credentials and returns the user. Lookup misses
// and bad passwords collapse into a single error so the response does not
// reveal which one failed.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("Authenticate: %w", domain.ErrInvalidCredentials)
		}
		return nil, fmt.Errorf("Authenticate: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("Authenticate: %w", domain.ErrInvalidCredentials)
	}
	return user, nil
}

// EnsureStaff creates a staff account with the given credentials if no
// user with that email exists yet. Called once at startup.
func (s *UserService) EnsureStaff(ctx context.Context, email, password string) error {
	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("EnsureStaff: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("EnsureStaff: hash: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         "Admin",
		PasswordHash: string(hash),
		IsStaff:      true,
		CreatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return fmt.Errorf("EnsureStaff: %w", err)
	}

	wallet := &domain.Wallet{
		ID:        uuid.New(),
		UserID:    user.ID,
		Balance:   0,
		Version:   1,
		CreatedAt: now,
	}
	if err := s.wallets.Create(ctx, wallet); err != nil {
		return fmt.Errorf("EnsureStaff: wallet: %w", err)
	}

	logging.FromContext(ctx).Info("staff account seeded", "email", email)
	return nil
}

func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return user, nil
}
