// Package anpr defines the detection and OCR collaborators the settlement
// core consumes. Both are remote, possibly slow, possibly failing
// services; callers must never hold a wallet or violation lock across a
// call into them.
package anpr

import "context"

type BoundingBox struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// PlateCandidate is one detected plate region: its location in the frame,
// the detector's confidence, and the cropped image to hand to OCR.
type PlateCandidate struct {
	Box        BoundingBox
	Confidence float64
	Crop       []byte
}

// Detector finds candidate plate regions in a full frame. The returned
// slice may be empty; an error means the service itself failed.
type Detector interface {
	Detect(ctx context.Context, image []byte) ([]PlateCandidate, error)
}

// Recognizer reads the text off a cropped plate image. Output is
// untrusted raw text; it must always be canonicalized before matching.
type Recognizer interface {
	RecognizeText(ctx context.Context, crop []byte) (string, error)
}
