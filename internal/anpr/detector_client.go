package anpr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/viscan/viscan-backend/internal/domain"
	"github.com/viscan/viscan-backend/internal/logging"
)

// DetectorClient talks to the plate-detection inference service over
// HTTP. The model behind it is opaque to us.
type DetectorClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewDetectorClient(baseURL string, timeout time.Duration) *DetectorClient {
	return &DetectorClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type detectRequest struct {
	Image string `json:"image"`
}

type detectResponse struct {
	Detections []struct {
		Box        BoundingBox `json:"box"`
		Confidence float64     `json:"confidence"`
		Crop       string      `json:"crop"`
	} `json:"detections"`
}

func (c *DetectorClient) Detect(ctx context.Context, image []byte) ([]PlateCandidate, error) {
	log := logging.FromContext(ctx)

	body, err := json.Marshal(detectRequest{
		Image: base64.StdEncoding.EncodeToString(image),
	})
	if err != nil {
		return nil, fmt.Errorf("Detect: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/detect", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("Detect: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Detect: send: %w: %w", domain.ErrDetectionFailed, err)
	}
	defer resp.Body.Close()

	log.Debug("detector response received",
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("Detect: status %d: %s: %w", resp.StatusCode, string(respBody), domain.ErrDetectionFailed)
	}

	var dr detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return nil, fmt.Errorf("Detect: decode: %w: %w", domain.ErrDetectionFailed, err)
	}

	candidates := make([]PlateCandidate, 0, len(dr.Detections))
	for _, d := range dr.Detections {
		crop, err := base64.StdEncoding.DecodeString(d.Crop)
		if err != nil {
			return nil, fmt.Errorf("Detect: decode crop: %w: %w", domain.ErrDetectionFailed, err)
		}
		candidates = append(candidates, PlateCandidate{
			Box:        d.Box,
			Confidence: d.Confidence,
			Crop:       crop,
		})
	}
	return candidates, nil
}
