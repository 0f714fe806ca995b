package analyses

import (
	"time"

	"biolens-backend/internal/imaging"
	"biolens-backend/internal/reference"
	"biolens-backend/internal/vision"
)

// Analysis statuses. An analysis makes exactly one terminal transition,
// to completed or failed.
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Detection is a calibrated, enriched organism detection.
type Detection struct {
	ID                   string              `json:"id"`
	CommonName           string              `json:"commonName"`
	ScientificName       string              `json:"scientificName,omitempty"`
	LifeStage            string              `json:"lifeStage,omitempty"`
	ConfidenceRaw        float64             `json:"confidenceRaw"`
	ConfidenceCalibrated float64             `json:"confidenceCalibrated"`
	ConfidenceLabel      string              `json:"confidenceLabel"`
	IsReliable           bool                `json:"isReliable"`
	Urgency              string              `json:"urgency,omitempty"`
	BoundingBox          *vision.BoundingBox `json:"boundingBox,omitempty"`
	Details              string              `json:"details,omitempty"`
	Reference            *reference.Organism `json:"reference,omitempty"`
}

// Result is the completed pipeline output. Detections that fail the
// reliability threshold are partitioned into LowConfidenceDetections
// instead of being merged or dropped.
type Result struct {
	ProviderImageQuality    string      `json:"providerImageQuality,omitempty"`
	AnalysisSteps           []string    `json:"analysisSteps,omitempty"`
	Detections              []Detection `json:"detections"`
	LowConfidenceDetections []Detection `json:"lowConfidenceDetections,omitempty"`
	OverallUrgency          string      `json:"overallUrgency"`
	OverallConclusion       string      `json:"overallConclusion"`
	RecommendedActions      []string    `json:"recommendedActions,omitempty"`
}

// Analysis is one pipeline run over a sample.
type Analysis struct {
	ID             string                  `json:"id"`
	SampleID       string                  `json:"sampleId"`
	UserID         string                  `json:"-"`
	Status         string                  `json:"status"`
	SampleType     string                  `json:"sampleType,omitempty"`
	CollectionDate string                  `json:"collectionDate,omitempty"`
	Location       string                  `json:"location,omitempty"`
	Notes          string                  `json:"notes,omitempty"`
	Provider       string                  `json:"provider,omitempty"`
	Model          string                  `json:"model,omitempty"`
	QualityReport  *imaging.QualityReport  `json:"qualityReport,omitempty"`
	Result         *Result                 `json:"result,omitempty"`
	OverallUrgency string                  `json:"overallUrgency,omitempty"`
	ErrorCode      string                  `json:"errorCode,omitempty"`
	ErrorMessage   string                  `json:"errorMessage,omitempty"`
	ErrorRetryable bool                    `json:"errorRetryable,omitempty"`
	StartedAt      *time.Time              `json:"startedAt,omitempty"`
	CompletedAt    *time.Time              `json:"completedAt,omitempty"`
	CreatedAt      time.Time               `json:"createdAt"`
	UpdatedAt      time.Time               `json:"updatedAt"`
}
