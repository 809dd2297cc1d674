package anpr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/viscan/viscan-backend/internal/domain"
	"github.com/viscan/viscan-backend/internal/logging"
)

const ocrPrompt = "Read the characters on this vehicle license plate. Output ONLY the alphanumeric text. No spaces, no symbols."

// OCRClient talks to the vision-language OCR service that reads plate
// crops. Responses are raw untrusted text.
type OCRClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewOCRClient(baseURL string, timeout time.Duration) *OCRClient {
	return &OCRClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type recognizeRequest struct {
	Image  string `json:"image"`
	Prompt string `json:"prompt"`
}

type recognizeResponse struct {
	Text string `json:"text"`
}

func (c *OCRClient) RecognizeText(ctx context.Context, crop []byte) (string, error) {
	log := logging.FromContext(ctx)

	body, err := json.Marshal(recognizeRequest{
		Image:  base64.StdEncoding.EncodeToString(crop),
		Prompt: ocrPrompt,
	})
	if err != nil {
		return "", fmt.Errorf("RecognizeText: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/recognize", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("RecognizeText: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("RecognizeText: send: %w: %w", domain.ErrOCRFailed, err)
	}
	defer resp.Body.Close()

	log.Debug("ocr response received",
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("RecognizeText: status %d: %s: %w", resp.StatusCode, string(respBody), domain.ErrOCRFailed)
	}

	var rr recognizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return "", fmt.Errorf("RecognizeText: decode: %w: %w", domain.ErrOCRFailed, err)
	}

	return strings.TrimSpace(rr.Text), nil
}
