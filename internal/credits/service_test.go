package credits

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStoreDebitAndRefund(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore())

	if err := svc.GrantSignupCredits(ctx, "u1", 3); err != nil {
		t.Fatalf("grant: %v", err)
	}

	ok, err := svc.HasCredit(ctx, "u1")
	if err != nil || !ok {
		t.Fatalf("HasCredit = %v, %v; want true", ok, err)
	}

	for i := 0; i < 3; i++ {
		if err := svc.DebitInTx(ctx, nil, "u1", 1); err != nil {
			t.Fatalf("debit %d: %v", i, err)
		}
	}

	if err := svc.DebitInTx(ctx, nil, "u1", 1); !errors.Is(err, ErrInsufficientCredits) {
		t.Fatalf("overdraft err = %v, want ErrInsufficientCredits", err)
	}

	ok, err = svc.HasCredit(ctx, "u1")
	if err != nil || ok {
		t.Fatalf("HasCredit after drain = %v, %v; want false", ok, err)
	}

	if err := svc.RefundAnalysis(ctx, "u1", 1); err != nil {
		t.Fatalf("refund: %v", err)
	}
	b, err := svc.Balance(ctx, "u1")
	if err != nil || b.Balance != 1 {
		t.Fatalf("balance = %+v, %v; want 1", b, err)
	}
}

func TestZeroSignupGrantIsNoop(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore())

	if err := svc.GrantSignupCredits(ctx, "u1", 0); err != nil {
		t.Fatalf("grant: %v", err)
	}
	b, err := svc.Balance(ctx, "u1")
	if err != nil || b.Balance != 0 {
		t.Fatalf("balance = %+v, %v; want 0", b, err)
	}
}
