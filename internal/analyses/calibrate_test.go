package analyses

import (
	"math"
	"testing"

	"biolens-backend/internal/vision"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCalibrateConfidence(t *testing.T) {
	cases := []struct {
		name    string
		raw     float64
		quality string
		want    float64
	}{
		{"excellent no penalty", 0.90, "excellent", 0.90},
		{"good small penalty", 0.90, "good", 0.88},
		{"fair penalty", 0.90, "fair", 0.82},
		{"poor heavy penalty", 0.70, "poor", 0.52},
		{"unknown hedge", 0.70, "unknown", 0.65},
		{"unrecognized label treated as unknown", 0.70, "weird", 0.65},
		{"clamped to floor", 0.36, "poor", 0.35},
		{"clamped to ceiling", 1.0, "excellent", 0.99},
		{"raw below floor still floors", 0.10, "excellent", 0.35},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CalibrateConfidence(tc.raw, tc.quality)
			if !almostEqual(got, tc.want) {
				t.Fatalf("CalibrateConfidence(%v, %q) = %v, want %v", tc.raw, tc.quality, got, tc.want)
			}
		})
	}
}

func TestIsReliable(t *testing.T) {
	cases := []struct {
		name       string
		calibrated float64
		quality    string
		want       bool
	}{
		{"excellent low bar", 0.50, "excellent", true},
		{"excellent at threshold", 0.45, "excellent", true},
		{"excellent below threshold", 0.44, "excellent", false},
		{"good at threshold", 0.50, "good", true},
		{"fair needs 0.60", 0.59, "fair", false},
		{"poor needs 0.72", 0.71, "poor", false},
		{"poor clears 0.72", 0.72, "poor", true},
		{"unknown needs 0.55", 0.55, "unknown", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsReliable(tc.calibrated, tc.quality); got != tc.want {
				t.Fatalf("IsReliable(%v, %q) = %v, want %v", tc.calibrated, tc.quality, got, tc.want)
			}
		})
	}
}

func TestPoorQualityHighRawIsUnreliable(t *testing.T) {
	// A 0.70 raw confidence on a poor photo calibrates to 0.52, well
	// under the 0.72 threshold.
	calibrated := CalibrateConfidence(0.70, "poor")
	if !almostEqual(calibrated, 0.52) {
		t.Fatalf("calibrated = %v, want 0.52", calibrated)
	}
	if IsReliable(calibrated, "poor") {
		t.Fatalf("0.52 on poor quality should not be reliable")
	}
}

func TestConfidenceLabel(t *testing.T) {
	cases := []struct {
		calibrated float64
		want       string
	}{
		{0.90, ConfidenceHigh},
		{0.85, ConfidenceHigh},
		{0.84, ConfidenceModerate},
		{0.65, ConfidenceModerate},
		{0.64, ConfidenceLow},
		{0.45, ConfidenceLow},
		{0.44, ConfidenceInsufficient},
		{0.35, ConfidenceInsufficient},
	}
	for _, tc := range cases {
		if got := ConfidenceLabel(tc.calibrated); got != tc.want {
			t.Fatalf("ConfidenceLabel(%v) = %q, want %q", tc.calibrated, got, tc.want)
		}
	}
}

func TestEnrichDetectionsPartitions(t *testing.T) {
	raw := []vision.Detection{
		{CommonName: "Giant roundworm", ScientificName: "Ascaris lumbricoides", Confidence: 0.92, Urgency: "moderate"},
		{CommonName: "Pinworm", ScientificName: "Enterobius vermicularis", Confidence: 0.40},
	}

	reliable, lowConfidence := EnrichDetections(raw, "good")
	if len(reliable) != 1 {
		t.Fatalf("reliable = %d, want 1", len(reliable))
	}
	if len(lowConfidence) != 1 {
		t.Fatalf("lowConfidence = %d, want 1", len(lowConfidence))
	}

	det := reliable[0]
	if det.Reference == nil || det.Reference.ID != "ascaris-lumbricoides" {
		t.Fatalf("expected ascaris reference, got %+v", det.Reference)
	}
	if !almostEqual(det.ConfidenceCalibrated, 0.90) {
		t.Fatalf("calibrated = %v, want 0.90", det.ConfidenceCalibrated)
	}

	low := lowConfidence[0]
	if low.IsReliable {
		t.Fatalf("low-confidence detection flagged reliable")
	}
	// The pinworm entry carries no provider urgency; the reference
	// default fills it in.
	if low.Urgency != "low" {
		t.Fatalf("urgency = %q, want low from reference", low.Urgency)
	}
}

func TestOverallUrgency(t *testing.T) {
	cases := []struct {
		name      string
		urgencies []string
		want      string
	}{
		{"no detections defaults low", nil, "low"},
		{"single moderate", []string{"moderate"}, "moderate"},
		{"max wins", []string{"low", "high", "moderate"}, "high"},
		{"emergency dominates", []string{"high", "emergency"}, "emergency"},
		{"unknown values ignored", []string{"", "bogus"}, "low"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var dets []Detection
			for _, u := range tc.urgencies {
				dets = append(dets, Detection{Urgency: u})
			}
			if got := OverallUrgency(dets); got != tc.want {
				t.Fatalf("OverallUrgency(%v) = %q, want %q", tc.urgencies, got, tc.want)
			}
		})
	}
}
