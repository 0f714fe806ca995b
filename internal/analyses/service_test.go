package analyses

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"testing"
	"time"

	"biolens-backend/internal/credits"
	"biolens-backend/internal/queue"
	"biolens-backend/internal/samples"
	objectlocal "biolens-backend/internal/shared/storage/object/local"
	"biolens-backend/internal/vision"
)

type stubProvider struct {
	result *vision.Result
	err    error
	panics bool
	calls  int
}

func (s *stubProvider) AnalyzeSample(ctx context.Context, req vision.Request) (*vision.Result, error) {
	s.calls++
	if s.panics {
		panic("provider exploded")
	}
	return s.result, s.err
}

func (s *stubProvider) Name() string { return "stub" }

// recordingQueue keeps Start from spawning a goroutine so tests drive
// the pipeline synchronously via RunQueued.
type recordingQueue struct {
	mu       sync.Mutex
	messages []queue.Message
}

func (q *recordingQueue) Enqueue(ctx context.Context, m queue.Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.messages = append(q.messages, m)
	return nil
}

type fixture struct {
	svc      *Service
	credits  *credits.Service
	samples  *samples.Service
	queue    *recordingQueue
	provider *stubProvider
}

func newFixture(t *testing.T, provider *stubProvider) *fixture {
	t.Helper()
	creditsSvc := credits.NewService(credits.NewMemoryStore())
	samplesSvc := samples.NewService(samples.NewMemoryRepo(), objectlocal.New(t.TempDir()))
	q := &recordingQueue{}
	svc := NewService(NewMemoryRepo(), samplesSvc, creditsSvc, provider, q)
	return &fixture{svc: svc, credits: creditsSvc, samples: samplesSvc, queue: q, provider: provider}
}

func uploadSample(t *testing.T, f *fixture, userID string) *samples.Sample {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 640, 480))
	for y := 0; y < 480; y++ {
		for x := 0; x < 640; x++ {
			img.Set(x, y, color.RGBA{110, 140, 110, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	sample, err := f.samples.Upload(context.Background(), userID, "smear.png", buf.Bytes())
	if err != nil {
		t.Fatalf("upload sample: %v", err)
	}
	return sample
}

func grant(t *testing.T, f *fixture, userID string, amount int) {
	t.Helper()
	if err := f.credits.GrantSignupCredits(context.Background(), userID, amount); err != nil {
		t.Fatalf("grant: %v", err)
	}
}

func balance(t *testing.T, f *fixture, userID string) int {
	t.Helper()
	b, err := f.credits.Balance(context.Background(), userID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	return b.Balance
}

func TestStartDebitsAndEnqueues(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &stubProvider{result: &vision.Result{OverallConclusion: "clear"}})
	grant(t, f, "u1", 2)
	sample := uploadSample(t, f, "u1")

	a, err := f.svc.Start(ctx, "u1", sample.ID, StartOptions{SampleType: "stool"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if a.Status != StatusQueued {
		t.Fatalf("status = %q, want queued", a.Status)
	}
	if got := balance(t, f, "u1"); got != 1 {
		t.Fatalf("balance after start = %d, want 1", got)
	}
	if len(f.queue.messages) != 1 || f.queue.messages[0].AnalysisID != a.ID {
		t.Fatalf("queue messages = %+v", f.queue.messages)
	}
}

func TestStartRejectsUnknownSample(t *testing.T) {
	f := newFixture(t, &stubProvider{})
	grant(t, f, "u1", 1)

	_, err := f.svc.Start(context.Background(), "u1", "missing", StartOptions{})
	if !errors.Is(err, samples.ErrNotFound) {
		t.Fatalf("err = %v, want samples.ErrNotFound", err)
	}
	if got := balance(t, f, "u1"); got != 1 {
		t.Fatalf("balance = %d, want untouched 1", got)
	}
}

func TestStartRejectsZeroCredits(t *testing.T) {
	f := newFixture(t, &stubProvider{})
	sample := uploadSample(t, f, "u1")

	_, err := f.svc.Start(context.Background(), "u1", sample.ID, StartOptions{})
	if !errors.Is(err, credits.ErrInsufficientCredits) {
		t.Fatalf("err = %v, want ErrInsufficientCredits", err)
	}
}

func TestConcurrentStartsSpendSingleCredit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &stubProvider{result: &vision.Result{OverallConclusion: "clear"}})
	grant(t, f, "u1", 1)
	sample := uploadSample(t, f, "u1")

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Start(ctx, "u1", sample.ID, StartOptions{})
		}(i)
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
		} else if !errors.Is(err, credits.ErrInsufficientCredits) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Fatalf("successful starts = %d, want exactly 1", ok)
	}
	if got := balance(t, f, "u1"); got != 0 {
		t.Fatalf("balance = %d, want 0", got)
	}
}

func TestPipelineCompletesWithCalibratedResult(t *testing.T) {
	ctx := context.Background()
	provider := &stubProvider{result: &vision.Result{
		ImageQuality:      "usable photo",
		AnalysisSteps:     []string{"scanned field", "identified egg morphology"},
		OverallConclusion: "one organism identified",
		Detections: []vision.Detection{
			{CommonName: "Giant roundworm", ScientificName: "Ascaris lumbricoides", Confidence: 0.92, Urgency: "moderate"},
			{CommonName: "Whipworm", ScientificName: "Trichuris trichiura", Confidence: 0.40},
		},
		RecommendedActions: []string{"confirm with lab microscopy"},
	}}
	f := newFixture(t, provider)
	grant(t, f, "u1", 1)
	sample := uploadSample(t, f, "u1")

	a, err := f.svc.Start(ctx, "u1", sample.ID, StartOptions{})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	f.svc.RunQueued(ctx, a.ID, "u1", sample.ID)

	got, err := f.svc.Get(ctx, "u1", a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusCompleted {
		t.Fatalf("status = %q, want completed (error %q)", got.Status, got.ErrorMessage)
	}
	if got.Result == nil {
		t.Fatalf("missing result")
	}
	if len(got.Result.Detections) != 1 {
		t.Fatalf("reliable detections = %d, want 1", len(got.Result.Detections))
	}
	if len(got.Result.LowConfidenceDetections) != 1 {
		t.Fatalf("low-confidence detections = %d, want 1", len(got.Result.LowConfidenceDetections))
	}
	if got.Result.OverallUrgency != "moderate" {
		t.Fatalf("overall urgency = %q, want moderate", got.Result.OverallUrgency)
	}
	if got.QualityReport == nil {
		t.Fatalf("missing quality report")
	}
	if got.Result.Detections[0].ConfidenceCalibrated >= got.Result.Detections[0].ConfidenceRaw {
		// 640x480 uniform gray never scores excellent, so some penalty
		// must apply.
		t.Fatalf("expected calibration penalty, raw %v calibrated %v",
			got.Result.Detections[0].ConfidenceRaw, got.Result.Detections[0].ConfidenceCalibrated)
	}
	// Credit stays spent on success.
	if got := balance(t, f, "u1"); got != 0 {
		t.Fatalf("balance = %d, want 0", got)
	}
}

func TestPipelineFailureRefundsCredit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &stubProvider{err: errors.New("model unavailable")})
	grant(t, f, "u1", 1)
	sample := uploadSample(t, f, "u1")

	a, err := f.svc.Start(ctx, "u1", sample.ID, StartOptions{})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if got := balance(t, f, "u1"); got != 0 {
		t.Fatalf("balance after debit = %d, want 0", got)
	}

	f.svc.RunQueued(ctx, a.ID, "u1", sample.ID)

	got, err := f.svc.Get(ctx, "u1", a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusFailed {
		t.Fatalf("status = %q, want failed", got.Status)
	}
	if got.ErrorCode != FailureProvider {
		t.Fatalf("code = %q, want %q", got.ErrorCode, FailureProvider)
	}
	if !got.ErrorRetryable {
		t.Fatalf("provider failure should be retryable")
	}
	if !strings.Contains(got.ErrorMessage, "refunded") {
		t.Fatalf("message %q does not mention the refund", got.ErrorMessage)
	}
	if got := balance(t, f, "u1"); got != 1 {
		t.Fatalf("balance after refund = %d, want 1", got)
	}
}

func TestPipelinePanicRefundsCredit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &stubProvider{panics: true})
	grant(t, f, "u1", 1)
	sample := uploadSample(t, f, "u1")

	a, err := f.svc.Start(ctx, "u1", sample.ID, StartOptions{})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	f.svc.RunQueued(ctx, a.ID, "u1", sample.ID)

	got, err := f.svc.Get(ctx, "u1", a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusFailed {
		t.Fatalf("status = %q, want failed after panic", got.Status)
	}
	if got := balance(t, f, "u1"); got != 1 {
		t.Fatalf("balance = %d, want 1 after refund", got)
	}
}

func TestRedeliveredFailureRefundsOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &stubProvider{err: errors.New("model unavailable")})
	grant(t, f, "u1", 1)
	sample := uploadSample(t, f, "u1")

	a, err := f.svc.Start(ctx, "u1", sample.ID, StartOptions{})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	// At-least-once delivery: the same message arrives twice.
	f.svc.RunQueued(ctx, a.ID, "u1", sample.ID)
	f.svc.RunQueued(ctx, a.ID, "u1", sample.ID)

	got, err := f.svc.Get(ctx, "u1", a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusFailed {
		t.Fatalf("status = %q, want failed", got.Status)
	}
	if b := balance(t, f, "u1"); b != 1 {
		t.Fatalf("balance after redelivered failure = %d, want 1", b)
	}
	if f.provider.calls != 1 {
		t.Fatalf("provider calls = %d, want 1 (terminal record must not re-run)", f.provider.calls)
	}
}

func TestRedeliveredCompletionIsNoOp(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &stubProvider{result: &vision.Result{OverallConclusion: "clear"}})
	grant(t, f, "u1", 1)
	sample := uploadSample(t, f, "u1")

	a, err := f.svc.Start(ctx, "u1", sample.ID, StartOptions{})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	f.svc.RunQueued(ctx, a.ID, "u1", sample.ID)
	f.svc.RunQueued(ctx, a.ID, "u1", sample.ID)

	got, err := f.svc.Get(ctx, "u1", a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusCompleted {
		t.Fatalf("status = %q, want completed", got.Status)
	}
	if b := balance(t, f, "u1"); b != 0 {
		t.Fatalf("balance = %d, want 0 (completed run keeps the debit)", b)
	}
	if f.provider.calls != 1 {
		t.Fatalf("provider calls = %d, want 1", f.provider.calls)
	}
}

func TestClassifyFailureUsesSentinels(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		code      string
		retryable bool
	}{
		{"provider network", fmt.Errorf("%w: %w", vision.ErrProvider, errors.New("dial tcp: i/o timeout")), FailureProvider, true},
		{"provider invalid response", fmt.Errorf("%w: %w", vision.ErrProvider, vision.ErrInvalidResponse), FailureProviderInvalid, true},
		{"missing sample", fmt.Errorf("load sample image: %w", samples.ErrNotFound), FailureInvalidInput, false},
		{"timeout", context.DeadlineExceeded, FailureTimeout, true},
		{"unclassified", errors.New("vision provider exploded"), FailureInternal, true},
	}
	for _, tc := range cases {
		code, retryable := classifyFailure(tc.err)
		if code != tc.code || retryable != tc.retryable {
			t.Errorf("%s: classify = (%q, %v), want (%q, %v)", tc.name, code, retryable, tc.code, tc.retryable)
		}
	}
}

func TestExactlyOneTerminalTransition(t *testing.T) {
	ctx := context.Background()
	a := &Analysis{ID: "a1", SampleID: "s1", UserID: "u1", Status: StatusProcessing}

	mem := NewMemoryRepo()
	nopDebit := func(context.Context, *sql.Tx) error { return nil }
	if err := mem.CreateWithDebit(ctx, a, nopDebit); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := mem.MarkCompleted(ctx, "a1", a, time.Now()); err != nil {
		t.Fatalf("first terminal transition: %v", err)
	}
	if err := mem.MarkFailed(ctx, "a1", "x", "y", false, time.Now()); !errors.Is(err, ErrTerminalConflict) {
		t.Fatalf("second transition err = %v, want ErrTerminalConflict", err)
	}
	if err := mem.MarkCompleted(ctx, "a1", a, time.Now()); !errors.Is(err, ErrTerminalConflict) {
		t.Fatalf("repeat completion err = %v, want ErrTerminalConflict", err)
	}
}
