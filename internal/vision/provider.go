package vision

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Request carries the normalized image plus collection context.
type Request struct {
	ImageBytes     []byte
	SampleType     string
	CollectionDate string
	Location       string
	Notes          string
}

// BoundingBox locates a detection within the image, normalized [0,1].
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Detection is one organism the provider claims to see.
type Detection struct {
	CommonName     string       `json:"commonName"`
	ScientificName string       `json:"scientificName"`
	LifeStage      string       `json:"lifeStage,omitempty"`
	Confidence     float64      `json:"confidence"`
	BoundingBox    *BoundingBox `json:"boundingBox,omitempty"`
	Urgency        string       `json:"urgency,omitempty"`
	Details        string       `json:"details,omitempty"`
}

// Result is the provider's structured answer.
type Result struct {
	ImageQuality       string      `json:"imageQuality"`
	AnalysisSteps      []string    `json:"analysisSteps"`
	Detections         []Detection `json:"detections"`
	OverallConclusion  string      `json:"overallConclusion"`
	RecommendedActions []string    `json:"recommendedActions"`
}

// Provider analyzes a sample image and returns structured detections.
type Provider interface {
	AnalyzeSample(ctx context.Context, req Request) (*Result, error)
	Name() string
}

// ErrInvalidResponse marks a response that failed schema validation.
// A validation failure is a provider failure, never an empty result.
var ErrInvalidResponse = errors.New("provider response failed validation")

// ErrProvider marks a failed provider call: network errors, non-2xx
// responses, or both primary and fallback exhausted.
var ErrProvider = errors.New("vision provider unavailable")

var allowedUrgencies = map[string]bool{
	"":          true,
	"low":       true,
	"moderate":  true,
	"high":      true,
	"emergency": true,
}

// ValidateResult checks the parsed response against the schema contract.
func ValidateResult(res *Result) error {
	if res == nil {
		return fmt.Errorf("%w: empty result", ErrInvalidResponse)
	}
	if strings.TrimSpace(res.OverallConclusion) == "" {
		return fmt.Errorf("%w: missing overallConclusion", ErrInvalidResponse)
	}
	for i, d := range res.Detections {
		if strings.TrimSpace(d.CommonName) == "" && strings.TrimSpace(d.ScientificName) == "" {
			return fmt.Errorf("%w: detection %d has no name", ErrInvalidResponse, i)
		}
		if d.Confidence < 0 || d.Confidence > 1 {
			return fmt.Errorf("%w: detection %d confidence %v out of range", ErrInvalidResponse, i, d.Confidence)
		}
		if !allowedUrgencies[strings.ToLower(strings.TrimSpace(d.Urgency))] {
			return fmt.Errorf("%w: detection %d urgency %q unknown", ErrInvalidResponse, i, d.Urgency)
		}
		if bb := d.BoundingBox; bb != nil {
			if bb.X < 0 || bb.Y < 0 || bb.Width <= 0 || bb.Height <= 0 ||
				bb.X+bb.Width > 1.0001 || bb.Y+bb.Height > 1.0001 {
				return fmt.Errorf("%w: detection %d bounding box out of range", ErrInvalidResponse, i)
			}
		}
	}
	return nil
}
