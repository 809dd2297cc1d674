package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/viscan/viscan-backend/internal/auth"
	"github.com/viscan/viscan-backend/internal/domain"
	"github.com/viscan/viscan-backend/internal/logging"
)

type walletService interface {
	GetWallet(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error)
	Credit(ctx context.Context, userID uuid.UUID, amount int64) (*domain.Wallet, error)
	GetEntries(ctx context.Context, userID uuid.UUID, limit int) ([]domain.WalletEntry, error)
}

type WalletHandler struct {
	wallets walletService
}

func NewWalletHandler(wallets walletService) *WalletHandler {
	return &WalletHandler{wallets: wallets}
}

type walletDTO struct {
	ID      uuid.UUID `json:"id"`
	UserID  uuid.UUID `json:"user_id"`
	Balance string    `json:"balance"`
}

func toWalletDTO(wlt *domain.Wallet) walletDTO {
	return walletDTO{
		ID:      wlt.ID,
		UserID:  wlt.UserID,
		Balance: formatMinor(wlt.Balance),
	}
}

func (h *WalletHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrInvalidToken, nil)
		return
	}

	wlt, err := h.wallets.GetWallet(r.Context(), userID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toWalletDTO(wlt))
}

type walletEntryDTO struct {
	ID            uuid.UUID  `json:"id"`
	ViolationID   *uuid.UUID `json:"violation_id,omitempty"`
	EntryType     string     `json:"entry_type"`
	Amount        string     `json:"amount"`
	BalanceBefore string     `json:"balance_before"`
	BalanceAfter  string     `json:"balance_after"`
	CreatedAt     time.Time  `json:"created_at"`
}

const walletEntryLimit = 100

func (h *WalletHandler) Entries(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrInvalidToken, nil)
		return
	}

	entries, err := h.wallets.GetEntries(r.Context(), userID, walletEntryLimit)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	out := make([]walletEntryDTO, len(entries))
	for i, e := range entries {
		out[i] = walletEntryDTO{
			ID:            e.ID,
			ViolationID:   e.ViolationID,
			EntryType:     string(e.EntryType),
			Amount:        formatMinor(e.Amount),
			BalanceBefore: formatMinor(e.BalanceBefore),
			BalanceAfter:  formatMinor(e.BalanceAfter),
			CreatedAt:     e.CreatedAt,
		}
	}
	RespondSuccess(w, http.StatusOK, out)
}

type depositRequest struct {
	Amount string `json:"amount"`
}

// Deposit credits the authenticated user's wallet. Amounts arrive as
// decimal strings ("500.00") and are converted to minor units at this
// boundary; everything below works in int64.
func (h *WalletHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrInvalidToken, nil)
		return
	}

	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	amountMinor, err := parseAmountMinor(req.Amount)
	if err != nil {
		RespondValidationError(w, []FieldError{{Field: "amount", Message: "must be a positive amount with at most 2 decimal places"}})
		return
	}

	wlt, err := h.wallets.Credit(r.Context(), userID, amountMinor)
	if err != nil {
		logging.FromContext(r.Context()).Warn("deposit failed", "user_id", userID, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toWalletDTO(wlt))
}
