package settlement_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viscan/viscan-backend/internal/anpr"
	"github.com/viscan/viscan-backend/internal/domain"
	"github.com/viscan/viscan-backend/internal/repository"
	"github.com/viscan/viscan-backend/internal/service/settlement"
	"github.com/viscan/viscan-backend/internal/testutil"
)

// stubDetector returns the whole frame as a single candidate region.
type stubDetector struct {
	err error
}

func (d *stubDetector) Detect(_ context.Context, image []byte) ([]anpr.PlateCandidate, error) {
	if d.err != nil {
		return nil, d.err
	}
	return []anpr.PlateCandidate{{
		Box:        anpr.BoundingBox{X2: 640, Y2: 480},
		Confidence: 0.93,
		Crop:       image,
	}}, nil
}

// stubRecognizer always reads the configured plate text.
type stubRecognizer struct {
	plate string
	err   error
}

func (r *stubRecognizer) RecognizeText(_ context.Context, _ []byte) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return r.plate, nil
}

// flakyRecognizer fails a set number of calls before reading the plate.
type flakyRecognizer struct {
	plate    string
	failures int
	calls    int
}

func (r *flakyRecognizer) RecognizeText(_ context.Context, _ []byte) (string, error) {
	r.calls++
	if r.calls <= r.failures {
		return "", fmt.Errorf("recognize: %w", domain.ErrOCRFailed)
	}
	return r.plate, nil
}

type stubEvidenceStore struct{}

func (stubEvidenceStore) Save(_ context.Context, filename string, _ []byte) (string, error) {
	return "/media/test/" + filename, nil
}

func setupService(t *testing.T, db *sql.DB, plateText string) *settlement.Service {
	t.Helper()
	return settlement.NewService(
		repository.NewVehicleRepository(db),
		repository.NewWalletRepository(db),
		repository.NewViolationRepository(db),
		repository.NewWalletEntryRepository(db),
		repository.NewSubmissionRepository(db),
		&stubDetector{},
		&stubRecognizer{plate: plateText},
		stubEvidenceStore{},
		db,
		settlement.Config{
			FeeMinor:     50000,
			DedupeWindow: 5 * time.Minute,
			MaxAttempts:  3,
			Backoff:      10 * time.Millisecond,
		},
	)
}

func TestProcessDetection_AutoSettled(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupService(t, db, "KA 01 AB 1234")
	ctx := context.Background()

	owner := testutil.SeedUser(t, db, "owner@test.com", "Owner")
	wallet := testutil.SeedWallet(t, db, owner.ID, 100000)
	vehicle := testutil.SeedVehicle(t, db, owner.ID, "KA 01 AB 1234")

	outcome, err := svc.ProcessDetection(ctx, "ka-01-ab-1234", "/media/test/a.jpg")

	require.NoError(t, err)
	assert.Equal(t, domain.ResultAutoSettled, outcome.Result)
	require.NotNil(t, outcome.Violation)
	assert.Equal(t, vehicle.ID, outcome.Violation.VehicleID)
	assert.Equal(t, int64(50000), outcome.Violation.Amount)
	assert.Equal(t, domain.ViolationStatusPaid, outcome.Violation.Status)
	assert.NotNil(t, outcome.Violation.PaidAt)

	assert.Equal(t, int64(50000), testutil.GetWalletBalance(t, db, wallet.ID))
	assert.Equal(t, 1, testutil.CountWalletEntries(t, db, wallet.ID))

	entries, err := repository.NewWalletEntryRepository(db).GetByViolationID(ctx, outcome.Violation.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.EntryTypeDebit, entries[0].EntryType)
	assert.Equal(t, int64(100000), entries[0].BalanceBefore)
	assert.Equal(t, int64(50000), entries[0].BalanceAfter)
}

func TestProcessDetection_InsufficientFunds(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupService(t, db, "KA01AB1234")
	ctx := context.Background()

	owner := testutil.SeedUser(t, db, "owner@test.com", "Owner")
	wallet := testutil.SeedWallet(t, db, owner.ID, 30000)
	testutil.SeedVehicle(t, db, owner.ID, "KA01AB1234")

	outcome, err := svc.ProcessDetection(ctx, "KA01AB1234", "/media/test/b.jpg")

	require.NoError(t, err)
	assert.Equal(t, domain.ResultPendingFunds, outcome.Result)
	require.NotNil(t, outcome.Violation)
	assert.Equal(t, domain.ViolationStatusPending, testutil.GetViolationStatus(t, db, outcome.Violation.ID))

	// Balance untouched; the pending violation persists for later payment.
	assert.Equal(t, int64(30000), testutil.GetWalletBalance(t, db, wallet.ID))
	assert.Equal(t, 0, testutil.CountWalletEntries(t, db, wallet.ID))
}

func TestPayOutstanding_AfterTopUp(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupService(t, db, "KA01AB1234")
	ctx := context.Background()

	owner := testutil.SeedUser(t, db, "owner@test.com", "Owner")
	wallet := testutil.SeedWallet(t, db, owner.ID, 30000)
	testutil.SeedVehicle(t, db, owner.ID, "KA01AB1234")

	outcome, err := svc.ProcessDetection(ctx, "KA01AB1234", "/media/test/c.jpg")
	require.NoError(t, err)
	require.Equal(t, domain.ResultPendingFunds, outcome.Result)

	updated, err := svc.Credit(ctx, owner.ID, 30000)
	require.NoError(t, err)
	assert.Equal(t, int64(60000), updated.Balance)

	paid, err := svc.PayOutstanding(ctx, outcome.Violation.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ViolationStatusPaid, paid.Status)
	assert.NotNil(t, paid.PaidAt)

	assert.Equal(t, int64(10000), testutil.GetWalletBalance(t, db, wallet.ID))
	// one credit entry plus one debit entry
	assert.Equal(t, 2, testutil.CountWalletEntries(t, db, wallet.ID))
}

func TestPayOutstanding_AlreadyPaid(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupService(t, db, "KA01AB1234")
	ctx := context.Background()

	owner := testutil.SeedUser(t, db, "owner@test.com", "Owner")
	wallet := testutil.SeedWallet(t, db, owner.ID, 200000)
	vehicle := testutil.SeedVehicle(t, db, owner.ID, "KA01AB1234")
	violation := testutil.SeedViolation(t, db, vehicle.ID, 50000, domain.ViolationStatusPending)

	_, err := svc.PayOutstanding(ctx, violation.ID, owner.ID)
	require.NoError(t, err)

	_, err = svc.PayOutstanding(ctx, violation.ID, owner.ID)
	require.ErrorIs(t, err, domain.ErrAlreadyPaid)

	// Debited exactly once.
	assert.Equal(t, int64(150000), testutil.GetWalletBalance(t, db, wallet.ID))
	assert.Equal(t, 1, testutil.CountWalletEntries(t, db, wallet.ID))
}

func TestPayOutstanding_NotOwner(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupService(t, db, "KA01AB1234")
	ctx := context.Background()

	owner := testutil.SeedUser(t, db, "owner@test.com", "Owner")
	stranger := testutil.SeedUser(t, db, "stranger@test.com", "Stranger")
	testutil.SeedWallet(t, db, owner.ID, 100000)
	testutil.SeedWallet(t, db, stranger.ID, 100000)
	vehicle := testutil.SeedVehicle(t, db, owner.ID, "KA01AB1234")
	violation := testutil.SeedViolation(t, db, vehicle.ID, 50000, domain.ViolationStatusPending)

	_, err := svc.PayOutstanding(ctx, violation.ID, stranger.ID)
	require.ErrorIs(t, err, domain.ErrNotAuthorized)
	assert.Equal(t, domain.ViolationStatusPending, testutil.GetViolationStatus(t, db, violation.ID))
}

func TestConcurrentSettlement_NoOverdraft(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupService(t, db, "KA01AB1234")
	ctx := context.Background()

	owner := testutil.SeedUser(t, db, "owner@test.com", "Owner")
	wallet := testutil.SeedWallet(t, db, owner.ID, 70000)
	vehicle := testutil.SeedVehicle(t, db, owner.ID, "KA01AB1234")

	// Two independent pending violations race for a wallet that can only
	// cover one of them.
	v1 := testutil.SeedViolation(t, db, vehicle.ID, 50000, domain.ViolationStatusPending)
	v2 := testutil.SeedViolation(t, db, vehicle.ID, 50000, domain.ViolationStatusPending)

	var wg sync.WaitGroup
	results := make(chan error, 2)

	pay := func(violation *domain.Violation) {
		defer wg.Done()
		_, err := svc.PayOutstanding(ctx, violation.ID, owner.ID)
		results <- err
	}

	wg.Add(2)
	go pay(v1)
	go pay(v2)
	wg.Wait()
	close(results)

	var succeeded, failed int
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			require.ErrorIs(t, err, domain.ErrInsufficientFunds)
			failed++
		}
	}

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, failed)
	assert.Equal(t, int64(20000), testutil.GetWalletBalance(t, db, wallet.ID))
	assert.Equal(t, 1, testutil.CountWalletEntries(t, db, wallet.ID))
}

func TestProcessDetection_UnregisteredPlate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupService(t, db, "MH99ZZ0001")
	ctx := context.Background()

	owner := testutil.SeedUser(t, db, "owner@test.com", "Owner")
	testutil.SeedWallet(t, db, owner.ID, 100000)
	vehicle := testutil.SeedVehicle(t, db, owner.ID, "KA01AB1234")

	outcome, err := svc.ProcessDetection(ctx, "MH99ZZ0001", "/media/test/e.jpg")

	require.NoError(t, err)
	assert.Equal(t, domain.ResultUnregisteredPlate, outcome.Result)
	assert.Nil(t, outcome.Violation)
	assert.Equal(t, "MH99ZZ0001", outcome.RawPlate)

	// Nothing recorded against the registered vehicle either.
	assert.Equal(t, 0, testutil.CountViolationsForVehicle(t, db, vehicle.ID))
}

func TestProcessImage_FullPipeline(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupService(t, db, "KA01AB1234")
	ctx := context.Background()

	owner := testutil.SeedUser(t, db, "owner@test.com", "Owner")
	wallet := testutil.SeedWallet(t, db, owner.ID, 100000)
	testutil.SeedVehicle(t, db, owner.ID, "KA01AB1234")

	image := []byte("jpeg-bytes-frame-1")
	outcome, err := svc.ProcessImage(ctx, "frame1.jpg", image)

	require.NoError(t, err)
	assert.Equal(t, domain.ResultAutoSettled, outcome.Result)
	assert.Equal(t, "/media/test/frame1.jpg", outcome.EvidenceRef)
	assert.Equal(t, int64(50000), testutil.GetWalletBalance(t, db, wallet.ID))
}

func TestProcessImage_DuplicateSubmission(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupService(t, db, "KA01AB1234")
	ctx := context.Background()

	owner := testutil.SeedUser(t, db, "owner@test.com", "Owner")
	wallet := testutil.SeedWallet(t, db, owner.ID, 200000)
	vehicle := testutil.SeedVehicle(t, db, owner.ID, "KA01AB1234")

	image := []byte("jpeg-bytes-same-frame")

	first, err := svc.ProcessImage(ctx, "cam.jpg", image)
	require.NoError(t, err)
	require.Equal(t, domain.ResultAutoSettled, first.Result)

	// Same bytes inside the window: dropped before recognition runs.
	second, err := svc.ProcessImage(ctx, "cam-retry.jpg", image)
	require.NoError(t, err)
	assert.Equal(t, domain.ResultDuplicateSubmission, second.Result)
	assert.Nil(t, second.Violation)

	assert.Equal(t, 1, testutil.CountViolationsForVehicle(t, db, vehicle.ID))
	assert.Equal(t, int64(150000), testutil.GetWalletBalance(t, db, wallet.ID))
}

func TestProcessImage_RetryAfterTransientOCRFailure(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	owner := testutil.SeedUser(t, db, "owner@test.com", "Owner")
	wallet := testutil.SeedWallet(t, db, owner.ID, 100000)
	vehicle := testutil.SeedVehicle(t, db, owner.ID, "KA01AB1234")

	svc := settlement.NewService(
		repository.NewVehicleRepository(db),
		repository.NewWalletRepository(db),
		repository.NewViolationRepository(db),
		repository.NewWalletEntryRepository(db),
		repository.NewSubmissionRepository(db),
		&stubDetector{},
		&flakyRecognizer{plate: "KA01AB1234", failures: 1},
		stubEvidenceStore{},
		db,
		settlement.Config{FeeMinor: 50000, DedupeWindow: 5 * time.Minute, MaxAttempts: 3, Backoff: 10 * time.Millisecond},
	)

	image := []byte("jpeg-bytes-flaky-frame")

	// First attempt fails in OCR and must leave no state behind.
	_, err := svc.ProcessImage(ctx, "flaky.jpg", image)
	require.ErrorIs(t, err, domain.ErrOCRFailed)
	assert.Equal(t, 0, testutil.CountViolationsForVehicle(t, db, vehicle.ID))

	// Resubmitting the same frame must not be treated as a duplicate.
	outcome, err := svc.ProcessImage(ctx, "flaky.jpg", image)
	require.NoError(t, err)
	assert.Equal(t, domain.ResultAutoSettled, outcome.Result)
	require.NotNil(t, outcome.Violation)
	assert.Equal(t, int64(50000), testutil.GetWalletBalance(t, db, wallet.ID))

	// A third submission of the same frame is the actual duplicate.
	outcome, err = svc.ProcessImage(ctx, "flaky.jpg", image)
	require.NoError(t, err)
	assert.Equal(t, domain.ResultDuplicateSubmission, outcome.Result)
	assert.Equal(t, 1, testutil.CountViolationsForVehicle(t, db, vehicle.ID))
}

func TestProcessImage_DetectorFailure(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	owner := testutil.SeedUser(t, db, "owner@test.com", "Owner")
	testutil.SeedWallet(t, db, owner.ID, 100000)
	vehicle := testutil.SeedVehicle(t, db, owner.ID, "KA01AB1234")

	svc := settlement.NewService(
		repository.NewVehicleRepository(db),
		repository.NewWalletRepository(db),
		repository.NewViolationRepository(db),
		repository.NewWalletEntryRepository(db),
		repository.NewSubmissionRepository(db),
		&stubDetector{err: fmt.Errorf("detect: %w", domain.ErrDetectionFailed)},
		&stubRecognizer{plate: "KA01AB1234"},
		stubEvidenceStore{},
		db,
		settlement.Config{FeeMinor: 50000, DedupeWindow: 5 * time.Minute, MaxAttempts: 3, Backoff: 10 * time.Millisecond},
	)

	_, err := svc.ProcessImage(ctx, "f.jpg", []byte("frame"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDetectionFailed))

	// A failed recognition leaves no violation behind.
	assert.Equal(t, 0, testutil.CountViolationsForVehicle(t, db, vehicle.ID))
}
