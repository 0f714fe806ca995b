package vision

import (
	"context"
	"fmt"

	"biolens-backend/internal/shared/metrics"
	"biolens-backend/internal/shared/telemetry"
)

// FailoverProvider tries a primary provider and, on any error, the
// fallback exactly once with identical input. When both fail the error
// surfaces; there is never a silent empty result.
type FailoverProvider struct {
	primary  Provider
	fallback Provider
}

// NewFailoverProvider wires a primary and fallback provider.
func NewFailoverProvider(primary, fallback Provider) *FailoverProvider {
	return &FailoverProvider{primary: primary, fallback: fallback}
}

// Name identifies the composite provider.
func (f *FailoverProvider) Name() string {
	if f.fallback == nil {
		return f.primary.Name()
	}
	return f.primary.Name() + "+" + f.fallback.Name()
}

// AnalyzeSample runs the primary and falls back once on failure.
func (f *FailoverProvider) AnalyzeSample(ctx context.Context, req Request) (*Result, error) {
	result, primaryErr := f.primary.AnalyzeSample(ctx, req)
	if primaryErr == nil {
		return result, nil
	}

	if f.fallback == nil {
		return nil, primaryErr
	}

	metrics.IncProviderFailover()
	telemetry.Warn("vision.failover", map[string]any{
		"primary":  f.primary.Name(),
		"fallback": f.fallback.Name(),
		"error":    primaryErr.Error(),
	})

	result, fallbackErr := f.fallback.AnalyzeSample(ctx, req)
	if fallbackErr != nil {
		return nil, fmt.Errorf("primary %s: %v; fallback %s: %w",
			f.primary.Name(), primaryErr, f.fallback.Name(), fallbackErr)
	}
	return result, nil
}

var _ Provider = (*FailoverProvider)(nil)
