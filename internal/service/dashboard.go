package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/viscan/viscan-backend/internal/domain"
)

const dashboardViolationLimit = 50

type dashboardVehicleRepo interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Vehicle, error)
	Count(ctx context.Context) (int, error)
}

type dashboardViolationRepo interface {
	GetByVehicleIDs(ctx context.Context, vehicleIDs []uuid.UUID, limit int) ([]domain.Violation, error)
	GetRecent(ctx context.Context, limit int) ([]domain.Violation, error)
}

type dashboardWalletRepo interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error)
}

type dashboardUserRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	Count(ctx context.Context) (int, error)
}

type UserDashboard struct {
	User       *domain.User
	Wallet     *domain.Wallet
	Vehicles   []domain.Vehicle
	Violations []domain.Violation
}

type AdminDashboard struct {
	UsersCount    int
	VehiclesCount int
	Violations    []domain.Violation
}

// DashboardService assembles read-only views; it holds no invariants of
// its own.
type DashboardService struct {
	users      dashboardUserRepo
	vehicles   dashboardVehicleRepo
	violations dashboardViolationRepo
	wallets    dashboardWalletRepo
}

func NewDashboardService(
	users dashboardUserRepo,
	vehicles dashboardVehicleRepo,
	violations dashboardViolationRepo,
	wallets dashboardWalletRepo,
) *DashboardService {
	return &DashboardService{
		users:      users,
		vehicles:   vehicles,
		violations: violations,
		wallets:    wallets,
	}
}

func (s *DashboardService) ForUser(ctx context.Context, userID uuid.UUID) (*UserDashboard, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ForUser: %w", err)
	}

	wallet, err := s.wallets.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ForUser: wallet: %w", err)
	}

	vehicles, err := s.vehicles.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ForUser: vehicles: %w", err)
	}

	vehicleIDs := make([]uuid.UUID, len(vehicles))
	for i, v := range vehicles {
		vehicleIDs[i] = v.ID
	}

	violations, err := s.violations.GetByVehicleIDs(ctx, vehicleIDs, dashboardViolationLimit)
	if err != nil {
		return nil, fmt.Errorf("ForUser: violations: %w", err)
	}

	return &UserDashboard{
		User:       user,
		Wallet:     wallet,
		Vehicles:   vehicles,
		Violations: violations,
	}, nil
}

func (s *DashboardService) ForAdmin(ctx context.Context) (*AdminDashboard, error) {
	usersCount, err := s.users.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("ForAdmin: users: %w", err)
	}

	vehiclesCount, err := s.vehicles.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("ForAdmin: vehicles: %w", err)
	}

	violations, err := s.violations.GetRecent(ctx, 500)
	if err != nil {
		return nil, fmt.Errorf("ForAdmin: violations: %w", err)
	}

	return &AdminDashboard{
		UsersCount:    usersCount,
		VehiclesCount: vehiclesCount,
		Violations:    violations,
	}, nil
}
