package analyses

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"biolens-backend/internal/credits"
	"biolens-backend/internal/imaging"
	"biolens-backend/internal/queue"
	"biolens-backend/internal/samples"
	"biolens-backend/internal/shared/metrics"
	"biolens-backend/internal/shared/telemetry"
	"biolens-backend/internal/vision"
)

const (
	analysisCost    = 1
	pipelineTimeout = 5 * time.Minute
)

// StartOptions carries optional collection context for an analysis.
type StartOptions struct {
	SampleType     string
	CollectionDate string
	Location       string
	Notes          string
	RequestID      string
}

// Service orchestrates the detection pipeline: debit, provider call,
// calibration, enrichment, and the terminal status transition.
type Service struct {
	repo     Repo
	samples  *samples.Service
	credits  *credits.Service
	provider vision.Provider
	queue    queue.Client
}

// NewService creates the orchestrator. A nil queue client means the
// pipeline runs in-process on a detached goroutine.
func NewService(repo Repo, samplesSvc *samples.Service, creditsSvc *credits.Service, provider vision.Provider, queueClient queue.Client) *Service {
	return &Service{
		repo:     repo,
		samples:  samplesSvc,
		credits:  creditsSvc,
		provider: provider,
		queue:    queueClient,
	}
}

// Start validates the request, debits one credit atomically with the
// analysis row, and dispatches the pipeline. Returns immediately with
// the processing record.
func (s *Service) Start(ctx context.Context, userID, sampleID string, opts StartOptions) (*Analysis, error) {
	sample, err := s.samples.Get(ctx, userID, sampleID)
	if err != nil {
		return nil, err
	}

	// Cheap rejection before taking any lock. The authoritative check
	// happens under FOR UPDATE inside CreateWithDebit.
	hasCredit, err := s.credits.HasCredit(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("check balance: %w", err)
	}
	if !hasCredit {
		return nil, credits.ErrInsufficientCredits
	}

	now := time.Now().UTC()
	a := &Analysis{
		ID:             uuid.NewString(),
		SampleID:       sample.ID,
		UserID:         userID,
		Status:         StatusProcessing,
		SampleType:     opts.SampleType,
		CollectionDate: opts.CollectionDate,
		Location:       opts.Location,
		Notes:          opts.Notes,
		StartedAt:      &now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if s.queue != nil {
		a.Status = StatusQueued
	}

	err = s.repo.CreateWithDebit(ctx, a, func(ctx context.Context, tx *sql.Tx) error {
		return s.credits.DebitInTx(ctx, tx, userID, analysisCost)
	})
	if err != nil {
		return nil, err
	}

	metrics.IncAnalysisStarted()
	telemetry.Info("analysis.status", map[string]any{
		"analysis_id":       a.ID,
		"sample_id":         a.SampleID,
		"user_id":           userID,
		"status_transition": "created:" + a.Status,
		"request_id":        opts.RequestID,
	})

	if s.queue != nil {
		msg := queue.Message{
			Type:       queue.MessageTypeAnalysisRequested,
			AnalysisID: a.ID,
			UserID:     userID,
			SampleID:   a.SampleID,
			RequestID:  opts.RequestID,
		}
		if err := s.queue.Enqueue(ctx, msg); err != nil {
			// The debit already committed; fail the analysis so the
			// credit comes back rather than leaving a stuck record.
			s.failAnalysis(context.Background(), a.ID, userID, fmt.Errorf("enqueue: %w", err), time.Now())
			return nil, fmt.Errorf("dispatch analysis: %w", err)
		}
		return a, nil
	}

	go s.completeAsync(a.ID, userID, a.SampleID)
	return a, nil
}

// completeAsync runs the pipeline detached from the request. The
// recover boundary guarantees a panic still refunds and fails the
// analysis instead of leaving it processing forever.
func (s *Service) completeAsync(analysisID, userID, sampleID string) {
	ctx, cancel := context.WithTimeout(context.Background(), pipelineTimeout)
	defer cancel()

	startedAt := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			telemetry.Error("analysis.panic", map[string]any{
				"analysis_id": analysisID,
				"panic":       fmt.Sprintf("%v", rec),
			})
			s.failAnalysis(context.Background(), analysisID, userID, fmt.Errorf("pipeline panic: %v", rec), startedAt)
		}
	}()

	if err := s.Execute(ctx, analysisID, userID, sampleID); err != nil {
		s.failAnalysis(context.Background(), analysisID, userID, err, startedAt)
	}
}

// Execute runs the detection pipeline for an existing analysis row and
// marks it completed on success. Callers own the failure path.
func (s *Service) Execute(ctx context.Context, analysisID, userID, sampleID string) error {
	startedAt := time.Now()

	a, err := s.repo.GetByID(ctx, userID, analysisID)
	if err != nil {
		return fmt.Errorf("load analysis: %w", err)
	}

	// Queue delivery is at-least-once. A record that already made its
	// terminal transition was handled by an earlier delivery; running
	// the pipeline again would refund a credit that was never lost.
	if a.Status == StatusCompleted || a.Status == StatusFailed {
		telemetry.Warn("analysis.redelivered", map[string]any{
			"analysis_id": analysisID,
			"status":      a.Status,
		})
		return nil
	}

	data, err := s.samples.ReadImageBytes(ctx, userID, sampleID)
	if err != nil {
		return fmt.Errorf("load sample image: %w", err)
	}

	// Quality is measured on the source; the provider sees the
	// normalized JPEG.
	quality := imaging.AssessQuality(data)

	normalized, _, err := imaging.Normalize(data)
	if err != nil {
		return fmt.Errorf("%w: %v", samples.ErrInvalidImage, err)
	}

	visionRes, err := s.provider.AnalyzeSample(ctx, vision.Request{
		ImageBytes:     normalized,
		SampleType:     a.SampleType,
		CollectionDate: a.CollectionDate,
		Location:       a.Location,
		Notes:          a.Notes,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", vision.ErrProvider, err)
	}

	reliable, lowConfidence := EnrichDetections(visionRes.Detections, quality.QualityLabel)
	overallUrgency := OverallUrgency(reliable)

	result := &Result{
		ProviderImageQuality:    visionRes.ImageQuality,
		AnalysisSteps:           visionRes.AnalysisSteps,
		Detections:              reliable,
		LowConfidenceDetections: lowConfidence,
		OverallUrgency:          overallUrgency,
		OverallConclusion:       visionRes.OverallConclusion,
		RecommendedActions:      visionRes.RecommendedActions,
	}
	if result.Detections == nil {
		result.Detections = []Detection{}
	}

	a.Provider = s.provider.Name()
	a.Model = s.provider.Name()
	a.QualityReport = &quality
	a.Result = result
	a.OverallUrgency = overallUrgency

	completedAt := time.Now().UTC()
	if err := s.repo.MarkCompleted(ctx, analysisID, a, completedAt); err != nil {
		// A concurrent delivery already made the terminal transition;
		// its outcome stands.
		if errors.Is(err, ErrTerminalConflict) {
			telemetry.Warn("analysis.terminal_conflict", map[string]any{"analysis_id": analysisID})
			return nil
		}
		return fmt.Errorf("mark completed: %w", err)
	}

	durationMs := float64(time.Since(startedAt).Milliseconds())
	metrics.IncAnalysisCompleted()
	metrics.ObserveAnalysisDurationMs(durationMs)
	telemetry.Info("analysis.status", map[string]any{
		"analysis_id":       analysisID,
		"sample_id":         sampleID,
		"user_id":           userID,
		"status_transition": "processing:completed",
		"duration_ms":       durationMs,
		"detections":        len(reliable),
		"low_confidence":    len(lowConfidence),
		"overall_urgency":   overallUrgency,
		"quality_label":     quality.QualityLabel,
	})
	return nil
}

// failAnalysis makes the terminal transition first and refunds only
// when it wins. The transition is the idempotency gate: a redelivered
// message hits ErrTerminalConflict and never refunds a second time.
// The refund still lands before the failure is reported anywhere.
func (s *Service) failAnalysis(ctx context.Context, analysisID, userID string, cause error, startedAt time.Time) {
	code, retryable := classifyFailure(cause)

	message := userFacingMessage(code)
	if err := s.repo.MarkFailed(ctx, analysisID, code, message, retryable, time.Now().UTC()); err != nil {
		if errors.Is(err, ErrTerminalConflict) {
			telemetry.Warn("analysis.terminal_conflict", map[string]any{"analysis_id": analysisID})
			return
		}
		// Record still pre-terminal; a redelivery will retry the whole
		// pipeline including this compensation.
		telemetry.Error("analysis.mark_failed_error", map[string]any{
			"analysis_id": analysisID,
			"error":       err.Error(),
		})
		return
	}

	if err := s.credits.RefundAnalysis(ctx, userID, analysisCost); err != nil {
		telemetry.Error("analysis.refund_failed", map[string]any{
			"analysis_id": analysisID,
			"user_id":     userID,
			"error":       err.Error(),
		})
	} else {
		metrics.IncCreditRefund()
	}

	durationMs := float64(time.Since(startedAt).Milliseconds())
	metrics.IncAnalysisFailed()
	metrics.ObserveAnalysisDurationMs(durationMs)
	telemetry.Error("analysis.status", map[string]any{
		"analysis_id":       analysisID,
		"user_id":           userID,
		"status_transition": "processing:failed",
		"duration_ms":       durationMs,
		"error_code":        code,
		"retryable":         retryable,
		"error":             sanitizeError(cause),
	})
}

// RunQueued executes a queued analysis on behalf of a worker, handling
// the failure path the same way the in-process goroutine does.
func (s *Service) RunQueued(ctx context.Context, analysisID, userID, sampleID string) {
	startedAt := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			telemetry.Error("analysis.panic", map[string]any{
				"analysis_id": analysisID,
				"panic":       fmt.Sprintf("%v", rec),
			})
			s.failAnalysis(context.Background(), analysisID, userID, fmt.Errorf("pipeline panic: %v", rec), startedAt)
		}
	}()

	if err := s.Execute(ctx, analysisID, userID, sampleID); err != nil {
		s.failAnalysis(context.Background(), analysisID, userID, err, startedAt)
	}
}

// Get returns an analysis owned by the user.
func (s *Service) Get(ctx context.Context, userID, id string) (*Analysis, error) {
	return s.repo.GetByID(ctx, userID, id)
}

// List returns the user's analyses, newest first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]*Analysis, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

// Failure codes stored on failed analyses.
const (
	FailureInvalidInput    = "invalid_input"
	FailureProviderInvalid = "provider_response_invalid"
	FailureProvider        = "provider_error"
	FailureTimeout         = "timeout"
	FailureInternal        = "pipeline_error"
)

func classifyFailure(err error) (code string, retryable bool) {
	switch {
	case errors.Is(err, samples.ErrNotFound),
		errors.Is(err, samples.ErrInvalidImage),
		errors.Is(err, samples.ErrTooLarge),
		errors.Is(err, samples.ErrUnsupportedType):
		return FailureInvalidInput, false
	case errors.Is(err, vision.ErrInvalidResponse):
		return FailureProviderInvalid, true
	case errors.Is(err, context.DeadlineExceeded):
		return FailureTimeout, true
	case errors.Is(err, vision.ErrProvider):
		return FailureProvider, true
	default:
		return FailureInternal, true
	}
}

func userFacingMessage(code string) string {
	switch code {
	case FailureInvalidInput:
		return "The sample image could not be analyzed. Your credit has been refunded."
	case FailureTimeout:
		return "Analysis timed out. Your credit has been refunded; please try again."
	case FailureProvider, FailureProviderInvalid:
		return "The analysis service is temporarily unavailable. Your credit has been refunded; please try again."
	default:
		return "Analysis failed unexpectedly. Your credit has been refunded."
	}
}

// sanitizeError trims provider payload fragments out of logged errors.
func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if len(msg) > 500 {
		msg = msg[:500] + "..."
	}
	return msg
}
