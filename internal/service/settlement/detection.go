package settlement

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/viscan/viscan-backend/internal/domain"
	"github.com/viscan/viscan-backend/internal/logging"
	"github.com/viscan/viscan-backend/internal/plate"
)

// ProcessImage runs the full pipeline for one submitted capture: persist
// the evidence, detect and recognize the plate, dedupe by content hash,
// then hand off to ProcessDetection. The ANPR collaborators are called
// before any lock is taken and before the dedupe claim is persisted, so a
// collaborator failure leaves no state behind and the same frame can be
// resubmitted.
func (s *Service) ProcessImage(ctx context.Context, filename string, image []byte) (*domain.DetectionOutcome, error) {
	log := logging.FromContext(ctx)

	ref, err := s.evidence.Save(ctx, filename, image)
	if err != nil {
		return nil, fmt.Errorf("ProcessImage: evidence: %w", err)
	}

	rawPlate, err := s.recognizePlate(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("ProcessImage: %w", err)
	}

	sum := sha256.Sum256(image)
	hash := hex.EncodeToString(sum[:])

	claimed, err := s.submissions.Record(ctx, hash, s.cfg.DedupeWindow)
	if err != nil {
		return nil, fmt.Errorf("ProcessImage: dedupe: %w", err)
	}
	if !claimed {
		log.Info("duplicate detection submission dropped", "evidence_ref", ref)
		return &domain.DetectionOutcome{
			Result:      domain.ResultDuplicateSubmission,
			EvidenceRef: ref,
		}, nil
	}

	outcome, err := s.ProcessDetection(ctx, rawPlate, ref)
	if err != nil {
		return nil, fmt.Errorf("ProcessImage: %w", err)
	}
	return outcome, nil
}

// recognizePlate asks the detector for candidate regions and OCRs them in
// detector-confidence order, returning the first non-empty reading.
func (s *Service) recognizePlate(ctx context.Context, image []byte) (string, error) {
	log := logging.FromContext(ctx)

	candidates, err := s.detector.Detect(ctx, image)
	if err != nil {
		return "", fmt.Errorf("recognizePlate: %w", err)
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("recognizePlate: %w", domain.ErrNoPlateFound)
	}

	var lastErr error
	for _, c := range candidates {
		text, err := s.recognizer.RecognizeText(ctx, c.Crop)
		if err != nil {
			lastErr = err
			log.Warn("ocr failed for candidate", "confidence", c.Confidence, "error", err)
			continue
		}
		if text != "" {
			return text, nil
		}
	}

	if lastErr != nil {
		return "", fmt.Errorf("recognizePlate: %w", lastErr)
	}
	return "", fmt.Errorf("recognizePlate: %w", domain.ErrNoPlateFound)
}

// ProcessDetection links a recognized plate string to a registered
// vehicle and attempts automatic settlement. An unmatched plate is
// reported, not guessed at and not recorded.
func (s *Service) ProcessDetection(ctx context.Context, rawPlate, evidenceRef string) (*domain.DetectionOutcome, error) {
	log := logging.FromContext(ctx)

	canonical, err := plate.Canonicalize(rawPlate)
	if err != nil {
		return nil, fmt.Errorf("ProcessDetection: %w", err)
	}

	vehicle, err := s.vehicles.GetByCanonicalPlate(ctx, canonical)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			log.Info("unregistered plate flagged for review",
				"plate_raw", rawPlate,
				"evidence_ref", evidenceRef,
			)
			return &domain.DetectionOutcome{
				Result:      domain.ResultUnregisteredPlate,
				RawPlate:    rawPlate,
				EvidenceRef: evidenceRef,
			}, nil
		}
		return nil, fmt.Errorf("ProcessDetection: %w", err)
	}

	if s.cfg.FeeMinor <= 0 {
		return nil, fmt.Errorf("ProcessDetection: fee: %w", domain.ErrInvalidAmount)
	}

	violation := &domain.Violation{
		ID:          uuid.New(),
		VehicleID:   vehicle.ID,
		Amount:      s.cfg.FeeMinor,
		Status:      domain.ViolationStatusPending,
		EvidenceRef: evidenceRef,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.violations.Create(ctx, violation); err != nil {
		return nil, fmt.Errorf("ProcessDetection: create violation: %w", err)
	}

	wallet, err := s.wallets.GetByUserID(ctx, vehicle.UserID)
	if err != nil {
		return nil, fmt.Errorf("ProcessDetection: wallet: %w", err)
	}

	err = s.settleWithRetry(ctx, violation.ID, wallet.ID)
	switch {
	case err == nil:
		settled, err := s.violations.GetByID(ctx, violation.ID)
		if err != nil {
			return nil, fmt.Errorf("ProcessDetection: reload violation: %w", err)
		}
		log.Info("violation auto-settled",
			"violation_id", violation.ID,
			"vehicle_id", vehicle.ID,
			"amount", violation.Amount,
		)
		return &domain.DetectionOutcome{
			Result:      domain.ResultAutoSettled,
			RawPlate:    rawPlate,
			EvidenceRef: evidenceRef,
			Violation:   settled,
		}, nil

	case errors.Is(err, domain.ErrInsufficientFunds):
		log.Info("violation pending, insufficient funds",
			"violation_id", violation.ID,
			"vehicle_id", vehicle.ID,
			"amount", violation.Amount,
		)
		return &domain.DetectionOutcome{
			Result:      domain.ResultPendingFunds,
			RawPlate:    rawPlate,
			EvidenceRef: evidenceRef,
			Violation:   violation,
		}, nil

	default:
		return nil, fmt.Errorf("ProcessDetection: auto debit: %w", err)
	}
}
