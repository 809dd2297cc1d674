package handler

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/viscan/viscan-backend/internal/domain"
	"github.com/viscan/viscan-backend/internal/logging"
)

// maxEvidenceBytes bounds a single uploaded capture (20 MiB).
const maxEvidenceBytes = 20 << 20

type detectionService interface {
	ProcessImage(ctx context.Context, filename string, image []byte) (*domain.DetectionOutcome, error)
}

type DetectionHandler struct {
	detections detectionService
}

func NewDetectionHandler(detections detectionService) *DetectionHandler {
	return &DetectionHandler{detections: detections}
}

type violationDTO struct {
	ID          uuid.UUID  `json:"id"`
	VehicleID   uuid.UUID  `json:"vehicle_id"`
	Amount      string     `json:"amount"`
	Status      string     `json:"status"`
	EvidenceRef string     `json:"evidence_ref"`
	CreatedAt   time.Time  `json:"created_at"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
}

func toViolationDTO(v *domain.Violation) violationDTO {
	return violationDTO{
		ID:          v.ID,
		VehicleID:   v.VehicleID,
		Amount:      formatMinor(v.Amount),
		Status:      string(v.Status),
		EvidenceRef: v.EvidenceRef,
		CreatedAt:   v.CreatedAt,
		PaidAt:      v.PaidAt,
	}
}

type detectionResponse struct {
	Result      string        `json:"result"`
	Plate       string        `json:"plate,omitempty"`
	EvidenceRef string        `json:"evidence_ref,omitempty"`
	Violation   *violationDTO `json:"violation,omitempty"`
}

// Detect accepts a multipart upload from a camera or gateway under the
// "image" field and runs it through the recognition pipeline. Staff only.
func (h *DetectionHandler) Detect(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxEvidenceBytes)
	if err := r.ParseMultipartForm(maxEvidenceBytes); err != nil {
		RespondValidationError(w, []FieldError{{Field: "image", Message: "multipart form with an image file required"}})
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		RespondValidationError(w, []FieldError{{Field: "image", Message: "image file required"}})
		return
	}
	defer file.Close()

	image, err := io.ReadAll(file)
	if err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if len(image) == 0 {
		RespondValidationError(w, []FieldError{{Field: "image", Message: "image file is empty"}})
		return
	}

	outcome, err := h.detections.ProcessImage(r.Context(), header.Filename, image)
	if err != nil {
		log.Error("detection pipeline failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	resp := detectionResponse{
		Result:      string(outcome.Result),
		Plate:       outcome.RawPlate,
		EvidenceRef: outcome.EvidenceRef,
	}
	if outcome.Violation != nil {
		dto := toViolationDTO(outcome.Violation)
		resp.Violation = &dto
	}

	log.Info("detection processed",
		"result", outcome.Result,
		"plate", outcome.RawPlate,
	)
	RespondSuccess(w, http.StatusOK, resp)
}
