package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/viscan/viscan-backend/internal/auth"
	"github.com/viscan/viscan-backend/internal/domain"
	"github.com/viscan/viscan-backend/internal/service"
)

type dashboardService interface {
	ForUser(ctx context.Context, userID uuid.UUID) (*service.UserDashboard, error)
	ForAdmin(ctx context.Context) (*service.AdminDashboard, error)
}

type DashboardHandler struct {
	dashboards dashboardService
}

func NewDashboardHandler(dashboards dashboardService) *DashboardHandler {
	return &DashboardHandler{dashboards: dashboards}
}

type userDashboardDTO struct {
	User       userDTO        `json:"user"`
	Wallet     walletDTO      `json:"wallet"`
	Vehicles   []vehicleDTO   `json:"vehicles"`
	Violations []violationDTO `json:"violations"`
}

type adminDashboardDTO struct {
	UsersCount    int            `json:"users_count"`
	VehiclesCount int            `json:"vehicles_count"`
	Violations    []violationDTO `json:"violations"`
}

func toViolationDTOs(violations []domain.Violation) []violationDTO {
	out := make([]violationDTO, len(violations))
	for i := range violations {
		out[i] = toViolationDTO(&violations[i])
	}
	return out
}

func (h *DashboardHandler) User(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrInvalidToken, nil)
		return
	}

	d, err := h.dashboards.ForUser(r.Context(), userID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, userDashboardDTO{
		User:       toUserDTO(d.User),
		Wallet:     toWalletDTO(d.Wallet),
		Vehicles:   toVehicleDTOs(d.Vehicles),
		Violations: toViolationDTOs(d.Violations),
	})
}

// Admin sits behind the staff middleware.
func (h *DashboardHandler) Admin(w http.ResponseWriter, r *http.Request) {
	d, err := h.dashboards.ForAdmin(r.Context())
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, adminDashboardDTO{
		UsersCount:    d.UsersCount,
		VehiclesCount: d.VehiclesCount,
		Violations:    toViolationDTOs(d.Violations),
	})
}
