package workerproc

import (
	"context"
	"time"

	"biolens-backend/internal/analyses"
	"biolens-backend/internal/queue"
	"biolens-backend/internal/shared/telemetry"
)

// Processor consumes queued analysis requests and runs the pipeline.
type Processor struct {
	sqs      *queue.SQSClient
	analyses *analyses.Service
}

// New creates a queue processor.
func New(sqs *queue.SQSClient, analysesSvc *analyses.Service) *Processor {
	return &Processor{sqs: sqs, analyses: analysesSvc}
}

// Run polls the queue until the context is cancelled.
func (p *Processor) Run(ctx context.Context) {
	telemetry.Info("worker.started", nil)
	for {
		select {
		case <-ctx.Done():
			telemetry.Info("worker.stopped", nil)
			return
		default:
		}

		received, err := p.sqs.Receive(ctx, 5)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			telemetry.Error("worker.receive_error", map[string]any{"error": err.Error()})
			time.Sleep(5 * time.Second)
			continue
		}

		for _, r := range received {
			p.handle(ctx, r)
		}
	}
}

func (p *Processor) handle(ctx context.Context, r queue.Received) {
	m := r.Message
	switch m.Type {
	case queue.MessageTypeAnalysisRequested:
		telemetry.Info("worker.message", map[string]any{
			"analysis_id": m.AnalysisID,
			"request_id":  m.RequestID,
		})
		// RunQueued owns the failure path, including the refund, so the
		// message is always safe to delete afterwards.
		p.analyses.RunQueued(ctx, m.AnalysisID, m.UserID, m.SampleID)
	default:
		telemetry.Warn("worker.unknown_message", map[string]any{"type": m.Type})
	}

	if err := p.sqs.Delete(ctx, r.ReceiptHandle); err != nil {
		telemetry.Error("worker.delete_error", map[string]any{"error": err.Error()})
	}
}
