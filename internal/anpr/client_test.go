package anpr

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viscan/viscan-backend/internal/domain"
)

func TestDetectorClient_Detect(t *testing.T) {
	crop := []byte("cropped-plate-bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/detect", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req detectRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.NotEmpty(t, req.Image)

		resp := map[string]any{
			"detections": []map[string]any{
				{
					"box":        map[string]int{"x1": 10, "y1": 20, "x2": 110, "y2": 60},
					"confidence": 0.97,
					"crop":       base64.StdEncoding.EncodeToString(crop),
				},
			},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	client := NewDetectorClient(srv.URL, 5*time.Second)
	candidates, err := client.Detect(context.Background(), []byte("frame"))
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, crop, candidates[0].Crop)
	assert.InDelta(t, 0.97, candidates[0].Confidence, 0.001)
	assert.Equal(t, BoundingBox{X1: 10, Y1: 20, X2: 110, Y2: 60}, candidates[0].Box)
}

func TestDetectorClient_Detect_NoPlates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{"detections": []any{}}))
	}))
	defer srv.Close()

	client := NewDetectorClient(srv.URL, 5*time.Second)
	candidates, err := client.Detect(context.Background(), []byte("frame"))
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestDetectorClient_Detect_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewDetectorClient(srv.URL, 5*time.Second)
	_, err := client.Detect(context.Background(), []byte("frame"))
	assert.ErrorIs(t, err, domain.ErrDetectionFailed)
}

func TestOCRClient_RecognizeText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/recognize", r.URL.Path)

		var req recognizeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.NotEmpty(t, req.Prompt)

		require.NoError(t, json.NewEncoder(w).Encode(map[string]string{"text": " KA01AB1234\n"}))
	}))
	defer srv.Close()

	client := NewOCRClient(srv.URL, 5*time.Second)
	text, err := client.RecognizeText(context.Background(), []byte("crop"))
	require.NoError(t, err)
	assert.Equal(t, "KA01AB1234", text)
}

func TestOCRClient_RecognizeText_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client := NewOCRClient(srv.URL, 20*time.Millisecond)
	_, err := client.RecognizeText(context.Background(), []byte("crop"))
	assert.ErrorIs(t, err, domain.ErrOCRFailed)
}
