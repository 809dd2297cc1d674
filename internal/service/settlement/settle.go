package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/viscan/viscan-backend/internal/domain"
	"github.com/viscan/viscan-backend/internal/logging"
	"github.com/viscan/viscan-backend/internal/repository"
)

// PayOutstanding settles a still-pending violation at the payer's
// request. It shares settle with the automatic path, so a manual payment
// racing an auto-debit can never both debit: whichever commits second
// sees the paid status and reports ErrAlreadyPaid.
func (s *Service) PayOutstanding(ctx context.Context, violationID, payerUserID uuid.UUID) (*domain.Violation, error) {
	log := logging.FromContext(ctx)

	violation, err := s.violations.GetByID(ctx, violationID)
	if err != nil {
		return nil, fmt.Errorf("PayOutstanding: %w", err)
	}

	vehicle, err := s.vehicles.GetByID(ctx, violation.VehicleID)
	if err != nil {
		return nil, fmt.Errorf("PayOutstanding: %w", err)
	}
	if vehicle.UserID != payerUserID {
		return nil, fmt.Errorf("PayOutstanding: %w", domain.ErrNotAuthorized)
	}

	wallet, err := s.wallets.GetByUserID(ctx, payerUserID)
	if err != nil {
		return nil, fmt.Errorf("PayOutstanding: wallet: %w", err)
	}

	if err := s.settleWithRetry(ctx, violationID, wallet.ID); err != nil {
		return nil, fmt.Errorf("PayOutstanding: %w", err)
	}

	paid, err := s.violations.GetByID(ctx, violationID)
	if err != nil {
		return nil, fmt.Errorf("PayOutstanding: reload: %w", err)
	}

	log.Info("violation paid manually",
		"violation_id", violationID,
		"payer_user_id", payerUserID,
		"amount", paid.Amount,
	)
	return paid, nil
}

// settleWithRetry retries settle on transient storage contention only.
// Domain outcomes (insufficient funds, already paid) surface immediately.
func (s *Service) settleWithRetry(ctx context.Context, violationID, walletID uuid.UUID) error {
	var err error
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		err = s.settle(ctx, violationID, walletID)
		if err == nil || !isRetryable(err) {
			return err
		}
		if attempt < s.cfg.MaxAttempts {
			logging.FromContext(ctx).Warn("settle contention, retrying",
				"violation_id", violationID,
				"attempt", attempt,
				"error", err,
			)
			select {
			case <-ctx.Done():
				return fmt.Errorf("settleWithRetry: %w", ctx.Err())
			case <-time.After(s.cfg.Backoff * time.Duration(attempt)):
			}
		}
	}
	return fmt.Errorf("settleWithRetry: attempts exhausted: %w: %w", domain.ErrConcurrencyConflict, err)
}

func isRetryable(err error) bool {
	return errors.Is(err, domain.ErrVersionConflict) || repository.IsSerializationFailure(err)
}

// settle is the single atomic unit shared by the automatic and manual
// paths. Lock order is fixed (violation row, then wallet row) so
// concurrent settlements cannot deadlock. Either the debit and the
// status flip both commit, or neither does.
func (s *Service) settle(ctx context.Context, violationID, walletID uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("settle: begin tx: %w", err)
	}
	defer tx.Rollback()

	violation, err := s.violations.GetForUpdate(ctx, tx, violationID)
	if err != nil {
		return fmt.Errorf("settle: %w", err)
	}
	if violation.Status == domain.ViolationStatusPaid {
		return fmt.Errorf("settle: %w", domain.ErrAlreadyPaid)
	}

	wallet, err := s.wallets.GetForUpdate(ctx, tx, walletID)
	if err != nil {
		return fmt.Errorf("settle: %w", err)
	}
	if wallet.Balance < violation.Amount {
		return fmt.Errorf("settle: %w", domain.ErrInsufficientFunds)
	}

	now := time.Now().UTC()
	entry := &domain.WalletEntry{
		ID:            uuid.New(),
		WalletID:      wallet.ID,
		ViolationID:   &violation.ID,
		EntryType:     domain.EntryTypeDebit,
		Amount:        violation.Amount,
		BalanceBefore: wallet.Balance,
		BalanceAfter:  wallet.Balance - violation.Amount,
		CreatedAt:     now,
	}
	if err := s.entries.Create(ctx, tx, entry); err != nil {
		return fmt.Errorf("settle: entry: %w", err)
	}

	if err := s.violations.MarkPaid(ctx, tx, violation.ID, now); err != nil {
		return fmt.Errorf("settle: %w", err)
	}

	if err := s.wallets.UpdateBalance(ctx, tx, wallet.ID, wallet.Balance-violation.Amount, wallet.Version+1); err != nil {
		return fmt.Errorf("settle: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("settle: commit: %w", err)
	}
	return nil
}

// Credit deposits into a wallet. Purely additive, but it takes the same
// row lock as settlement so a deposit racing a debit cannot lose an
// update.
func (s *Service) Credit(ctx context.Context, userID uuid.UUID, amount int64) (*domain.Wallet, error) {
	log := logging.FromContext(ctx)

	if amount <= 0 {
		return nil, fmt.Errorf("Credit: %w", domain.ErrInvalidAmount)
	}

	wallet, err := s.wallets.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Credit: %w", err)
	}

	var updated *domain.Wallet
	attempt := func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("Credit: begin tx: %w", err)
		}
		defer tx.Rollback()

		locked, err := s.wallets.GetForUpdate(ctx, tx, wallet.ID)
		if err != nil {
			return fmt.Errorf("Credit: %w", err)
		}

		now := time.Now().UTC()
		entry := &domain.WalletEntry{
			ID:            uuid.New(),
			WalletID:      locked.ID,
			EntryType:     domain.EntryTypeCredit,
			Amount:        amount,
			BalanceBefore: locked.Balance,
			BalanceAfter:  locked.Balance + amount,
			CreatedAt:     now,
		}
		if err := s.entries.Create(ctx, tx, entry); err != nil {
			return fmt.Errorf("Credit: entry: %w", err)
		}

		if err := s.wallets.UpdateBalance(ctx, tx, locked.ID, locked.Balance+amount, locked.Version+1); err != nil {
			return fmt.Errorf("Credit: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("Credit: commit: %w", err)
		}

		updated = &domain.Wallet{
			ID:        locked.ID,
			UserID:    locked.UserID,
			Balance:   locked.Balance + amount,
			Version:   locked.Version + 1,
			CreatedAt: locked.CreatedAt,
		}
		return nil
	}

	var lastErr error
	for i := 1; i <= s.cfg.MaxAttempts; i++ {
		lastErr = attempt()
		if lastErr == nil {
			log.Info("wallet credited", "user_id", userID, "amount", amount, "new_balance", updated.Balance)
			return updated, nil
		}
		if !isRetryable(lastErr) {
			return nil, lastErr
		}
		if i < s.cfg.MaxAttempts {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("Credit: %w", ctx.Err())
			case <-time.After(s.cfg.Backoff * time.Duration(i)):
			}
		}
	}
	return nil, fmt.Errorf("Credit: attempts exhausted: %w: %w", domain.ErrConcurrencyConflict, lastErr)
}
