package analyses

import (
	"strings"

	"github.com/google/uuid"

	"biolens-backend/internal/imaging"
	"biolens-backend/internal/reference"
	"biolens-backend/internal/vision"
)

// Confidence labels derived from the calibrated score.
const (
	ConfidenceHigh         = "high"
	ConfidenceModerate     = "moderate"
	ConfidenceLow          = "low"
	ConfidenceInsufficient = "insufficient"
)

const (
	calibratedFloor   = 0.35
	calibratedCeiling = 0.99
)

// qualityPenalty is subtracted from the raw confidence. Worse photos
// get a larger penalty; unknown quality gets a small hedge.
var qualityPenalty = map[string]float64{
	imaging.QualityExcellent: 0,
	imaging.QualityGood:      0.02,
	imaging.QualityFair:      0.08,
	imaging.QualityPoor:      0.18,
	imaging.QualityUnknown:   0.05,
}

// reliabilityThreshold is the minimum calibrated confidence for a
// detection to count as reliable at the given image quality.
var reliabilityThreshold = map[string]float64{
	imaging.QualityExcellent: 0.45,
	imaging.QualityGood:      0.50,
	imaging.QualityFair:      0.60,
	imaging.QualityPoor:      0.72,
	imaging.QualityUnknown:   0.55,
}

// CalibrateConfidence adjusts a raw provider confidence for the
// measured image quality and clamps it to [0.35, 0.99].
func CalibrateConfidence(raw float64, qualityLabel string) float64 {
	penalty, ok := qualityPenalty[qualityLabel]
	if !ok {
		penalty = qualityPenalty[imaging.QualityUnknown]
	}
	calibrated := raw - penalty
	if calibrated < calibratedFloor {
		return calibratedFloor
	}
	if calibrated > calibratedCeiling {
		return calibratedCeiling
	}
	return calibrated
}

// IsReliable reports whether a calibrated confidence clears the
// threshold for the given image quality.
func IsReliable(calibrated float64, qualityLabel string) bool {
	threshold, ok := reliabilityThreshold[qualityLabel]
	if !ok {
		threshold = reliabilityThreshold[imaging.QualityUnknown]
	}
	return calibrated >= threshold
}

// ConfidenceLabel maps a calibrated confidence to a display label.
func ConfidenceLabel(calibrated float64) string {
	switch {
	case calibrated >= 0.85:
		return ConfidenceHigh
	case calibrated >= 0.65:
		return ConfidenceModerate
	case calibrated >= 0.45:
		return ConfidenceLow
	default:
		return ConfidenceInsufficient
	}
}

// EnrichDetections calibrates raw provider detections against the image
// quality, resolves each against the reference set, and partitions them
// into reliable and low-confidence lists.
func EnrichDetections(raw []vision.Detection, qualityLabel string) (reliable, lowConfidence []Detection) {
	for _, d := range raw {
		calibrated := CalibrateConfidence(d.Confidence, qualityLabel)
		det := Detection{
			ID:                   uuid.NewString(),
			CommonName:           d.CommonName,
			ScientificName:       d.ScientificName,
			LifeStage:            d.LifeStage,
			ConfidenceRaw:        d.Confidence,
			ConfidenceCalibrated: calibrated,
			ConfidenceLabel:      ConfidenceLabel(calibrated),
			IsReliable:           IsReliable(calibrated, qualityLabel),
			Urgency:              strings.ToLower(strings.TrimSpace(d.Urgency)),
			BoundingBox:          d.BoundingBox,
			Details:              d.Details,
		}

		if ref := reference.Match("", d.ScientificName, d.CommonName); ref != nil {
			det.Reference = ref
			if det.Urgency == "" {
				det.Urgency = ref.Urgency
			}
		}

		if det.IsReliable {
			reliable = append(reliable, det)
		} else {
			lowConfidence = append(lowConfidence, det)
		}
	}
	return reliable, lowConfidence
}

var urgencyRank = map[string]int{
	"low":       1,
	"moderate":  2,
	"high":      3,
	"emergency": 4,
}

// OverallUrgency is the maximum severity across reliable detections.
// Low when there are none.
func OverallUrgency(reliable []Detection) string {
	best := "low"
	bestRank := urgencyRank[best]
	for _, d := range reliable {
		if rank, ok := urgencyRank[d.Urgency]; ok && rank > bestRank {
			best = d.Urgency
			bestRank = rank
		}
	}
	return best
}
