// mock-anpr stands in for the detection and OCR inference services in
// local and test environments. It detects a single full-frame plate
// region in every image and reads it as a fixed plate, configurable via
// MOCK_PLATE_TEXT.
package main

import (
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"

	"github.com/viscan/viscan-backend/internal/logging"
)

type detectRequest struct {
	Image string `json:"image"`
}

type boundingBox struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

type detection struct {
	Box        boundingBox `json:"box"`
	Confidence float64     `json:"confidence"`
	Crop       string      `json:"crop"`
}

type detectResponse struct {
	Detections []detection `json:"detections"`
}

type recognizeRequest struct {
	Image  string `json:"image"`
	Prompt string `json:"prompt"`
}

type recognizeResponse struct {
	Text string `json:"text"`
}

func main() {
	logging.Init("mock-anpr", "info", os.Getenv("APP_ENV"))

	plateText := os.Getenv("MOCK_PLATE_TEXT")
	if plateText == "" {
		plateText = "KA01AB1234"
	}

	addr := os.Getenv("MOCK_ANPR_ADDR")
	if addr == "" {
		addr = ":8081"
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("POST /detect", func(w http.ResponseWriter, r *http.Request) {
		var req detectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		if _, err := base64.StdEncoding.DecodeString(req.Image); err != nil {
			http.Error(w, "image is not valid base64", http.StatusBadRequest)
			return
		}

		// The whole frame is the one candidate; the crop is the frame.
		writeJSON(w, detectResponse{
			Detections: []detection{{
				Box:        boundingBox{X1: 0, Y1: 0, X2: 640, Y2: 480},
				Confidence: 0.95,
				Crop:       req.Image,
			}},
		})
	})

	mux.HandleFunc("POST /recognize", func(w http.ResponseWriter, r *http.Request) {
		var req recognizeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		writeJSON(w, recognizeResponse{Text: plateText})
	})

	slog.Info("mock anpr started", "addr", addr, "plate", plateText)
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}
