package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viscan/viscan-backend/internal/domain"
	"github.com/viscan/viscan-backend/internal/repository"
	"github.com/viscan/viscan-backend/internal/service"
	"github.com/viscan/viscan-backend/internal/testutil"
)

func TestUserRegister_CreatesWalletAndVehicle(t *testing.T) {
	db := testutil.SetupTestDB(t)
	vehicleSvc := service.NewVehicleService(repository.NewVehicleRepository(db))
	svc := service.NewUserService(repository.NewUserRepository(db), repository.NewWalletRepository(db), vehicleSvc)
	ctx := context.Background()

	user, err := svc.Register(ctx, service.RegisterRequest{
		Email:    "driver@test.com",
		Name:     "Driver",
		Password: "password123",
		PlateRaw: "KA 01 AB 1234",
	})
	require.NoError(t, err)
	assert.False(t, user.IsStaff)

	wallet, err := repository.NewWalletRepository(db).GetByUserID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), wallet.Balance)

	vehicles, err := repository.NewVehicleRepository(db).GetByUserID(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, vehicles, 1)
	assert.Equal(t, "KA01AB1234", vehicles[0].PlateCanonical)
}

func TestUserRegister_DuplicateEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	vehicleSvc := service.NewVehicleService(repository.NewVehicleRepository(db))
	svc := service.NewUserService(repository.NewUserRepository(db), repository.NewWalletRepository(db), vehicleSvc)
	ctx := context.Background()

	req := service.RegisterRequest{Email: "driver@test.com", Name: "Driver", Password: "password123"}

	_, err := svc.Register(ctx, req)
	require.NoError(t, err)

	_, err = svc.Register(ctx, req)
	require.ErrorIs(t, err, domain.ErrUserExists)
}

func TestUserAuthenticate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	vehicleSvc := service.NewVehicleService(repository.NewVehicleRepository(db))
	svc := service.NewUserService(repository.NewUserRepository(db), repository.NewWalletRepository(db), vehicleSvc)
	ctx := context.Background()

	_, err := svc.Register(ctx, service.RegisterRequest{
		Email:    "driver@test.com",
		Name:     "Driver",
		Password: "correct-horse",
	})
	require.NoError(t, err)

	user, err := svc.Authenticate(ctx, "driver@test.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, "driver@test.com", user.Email)

	_, err = svc.Authenticate(ctx, "driver@test.com", "wrong")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)

	// Unknown email reports the same error as a bad password.
	_, err = svc.Authenticate(ctx, "nobody@test.com", "whatever")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestEnsureStaff_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	vehicleSvc := service.NewVehicleService(repository.NewVehicleRepository(db))
	svc := service.NewUserService(repository.NewUserRepository(db), repository.NewWalletRepository(db), vehicleSvc)
	ctx := context.Background()

	require.NoError(t, svc.EnsureStaff(ctx, "admin@test.com", "admin-pass"))
	require.NoError(t, svc.EnsureStaff(ctx, "admin@test.com", "admin-pass"))

	user, err := svc.Authenticate(ctx, "admin@test.com", "admin-pass")
	require.NoError(t, err)
	assert.True(t, user.IsStaff)
}
