package analyses

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"biolens-backend/internal/reference"
)

func TestCreateWithDebitCommitsTogether(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE credits").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO analyses").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	repo := NewPGRepo(db)
	now := time.Now().UTC()
	a := &Analysis{ID: "a1", SampleID: "s1", UserID: "u1", Status: StatusProcessing, StartedAt: &now}

	err = repo.CreateWithDebit(context.Background(), a, func(ctx context.Context, tx *sql.Tx) error {
		_, execErr := tx.ExecContext(ctx, "UPDATE credits SET balance = balance - 1 WHERE user_id = $1", "u1")
		return execErr
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateWithDebitRollsBackOnDebitFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	debitErr := errors.New("insufficient credits")
	mock.ExpectBegin()
	mock.ExpectRollback()

	repo := NewPGRepo(db)
	a := &Analysis{ID: "a1", SampleID: "s1", UserID: "u1", Status: StatusProcessing}

	err = repo.CreateWithDebit(context.Background(), a, func(ctx context.Context, tx *sql.Tx) error {
		return debitErr
	})
	if !errors.Is(err, debitErr) {
		t.Fatalf("err = %v, want debit error", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestMarkFailedGuardsTerminalState(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	// Zero rows affected means the record was already terminal.
	mock.ExpectExec("UPDATE analyses").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewPGRepo(db)
	err = repo.MarkFailed(context.Background(), "a1", "pipeline_error", "failed", true, time.Now())
	if !errors.Is(err, ErrTerminalConflict) {
		t.Fatalf("err = %v, want ErrTerminalConflict", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestMarkCompletedWritesDetectionRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE analyses").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO detections").
		WithArgs("d1", "a1", "Giant roundworm", "Ascaris lumbricoides", "egg",
			0.92, 0.90, "high", true, "moderate", "ascaris-lumbricoides", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO detections").
		WithArgs("d2", "a1", "Whipworm", "", "",
			0.40, 0.35, "insufficient", false, "", nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	repo := NewPGRepo(db)
	a := &Analysis{
		ID:             "a1",
		Provider:       "openai:gpt-4o",
		Model:          "openai:gpt-4o",
		OverallUrgency: "moderate",
		Result: &Result{
			OverallConclusion: "one organism identified",
			Detections: []Detection{{
				ID: "d1", CommonName: "Giant roundworm", ScientificName: "Ascaris lumbricoides",
				LifeStage: "egg", ConfidenceRaw: 0.92, ConfidenceCalibrated: 0.90,
				ConfidenceLabel: "high", IsReliable: true, Urgency: "moderate",
				Reference: &reference.Organism{ID: "ascaris-lumbricoides"},
			}},
			LowConfidenceDetections: []Detection{{
				ID: "d2", CommonName: "Whipworm",
				ConfidenceRaw: 0.40, ConfidenceCalibrated: 0.35,
				ConfidenceLabel: "insufficient", IsReliable: false,
			}},
		},
	}
	if err := repo.MarkCompleted(context.Background(), "a1", a, time.Now()); err != nil {
		t.Fatalf("mark completed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestMarkCompletedRollsBackOnTerminalConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE analyses").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	repo := NewPGRepo(db)
	a := &Analysis{ID: "a1", Result: &Result{OverallConclusion: "clear", Detections: []Detection{{ID: "d1"}}}}
	err = repo.MarkCompleted(context.Background(), "a1", a, time.Now())
	if !errors.Is(err, ErrTerminalConflict) {
		t.Fatalf("err = %v, want ErrTerminalConflict", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
