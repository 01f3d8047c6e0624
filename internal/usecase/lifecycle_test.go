package usecase

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/coursepay/coursepay/internal/domain/model"
	testhelpers "github.com/coursepay/coursepay/internal/test"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func pendingPurchase(id string) *model.Purchase {
	progID := "prog-1"
	return &model.Purchase{
		ID:          id,
		UserID:      7,
		Kind:        model.PurchaseKindProgram,
		ProgramID:   &progID,
		OrderNumber: "ORD-20260826-00001",
		Status:      model.PurchaseStatusPending,
	}
}

func TestLifecycleCompleteIdempotent(t *testing.T) {
	repo := testhelpers.NewPurchaseRepositoryStub()
	repo.Purchases["p-1"] = pendingPurchase("p-1")
	uc := NewLifecycleUseCase(repo, discardLogger())

	applied, err := uc.Complete(context.Background(), "p-1", "pi_123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !applied {
		t.Fatalf("first completion must apply")
	}

	stored, _ := repo.GetByID(context.Background(), "p-1")
	if stored.Status != model.PurchaseStatusCompleted {
		t.Fatalf("expected completed status, got %s", stored.Status)
	}
	if stored.GatewayPaymentIntentID == nil || *stored.GatewayPaymentIntentID != "pi_123" {
		t.Fatalf("payment intent not recorded")
	}

	applied, err = uc.Complete(context.Background(), "p-1", "pi_123")
	if err != nil {
		t.Fatalf("unexpected error on replay: %v", err)
	}
	if applied {
		t.Fatalf("replayed completion must be a no-op")
	}
}

func TestLifecycleFailOnlyPending(t *testing.T) {
	repo := testhelpers.NewPurchaseRepositoryStub()
	repo.Purchases["p-1"] = pendingPurchase("p-1")
	uc := NewLifecycleUseCase(repo, discardLogger())

	if applied, err := uc.Complete(context.Background(), "p-1", "pi_123"); err != nil || !applied {
		t.Fatalf("setup completion failed: applied=%v err=%v", applied, err)
	}

	applied, err := uc.Fail(context.Background(), "p-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if applied {
		t.Fatalf("failing a completed purchase must not apply")
	}

	stored, _ := repo.GetByID(context.Background(), "p-1")
	if stored.Status != model.PurchaseStatusCompleted {
		t.Fatalf("late failure event must not downgrade status, got %s", stored.Status)
	}
}

func TestLifecycleRefundChain(t *testing.T) {
	repo := testhelpers.NewPurchaseRepositoryStub()
	repo.Purchases["p-1"] = pendingPurchase("p-1")
	uc := NewLifecycleUseCase(repo, discardLogger())
	ctx := context.Background()

	if _, err := uc.Complete(ctx, "p-1", "pi_123"); err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if applied, err := uc.MarkRefundProcessing(ctx, "p-1", "re_1"); err != nil || !applied {
		t.Fatalf("mark refund processing: applied=%v err=%v", applied, err)
	}
	if applied, err := uc.MarkRefunded(ctx, "p-1"); err != nil || !applied {
		t.Fatalf("mark refunded: applied=%v err=%v", applied, err)
	}

	stored, _ := repo.GetByID(ctx, "p-1")
	if stored.Status != model.PurchaseStatusRefunded {
		t.Fatalf("expected refunded, got %s", stored.Status)
	}
	if stored.RefundedAt == nil {
		t.Fatalf("refunded timestamp not set")
	}

	if applied, _ := uc.MarkRefunded(ctx, "p-1"); applied {
		t.Fatalf("replayed refund success must be a no-op")
	}
}

func TestLifecycleRevertRefundCanceled(t *testing.T) {
	repo := testhelpers.NewPurchaseRepositoryStub()
	repo.Purchases["p-1"] = pendingPurchase("p-1")
	uc := NewLifecycleUseCase(repo, discardLogger())
	ctx := context.Background()

	if _, err := uc.Complete(ctx, "p-1", "pi_123"); err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if _, err := uc.MarkRefundProcessing(ctx, "p-1", "re_1"); err != nil {
		t.Fatalf("mark refund processing failed: %v", err)
	}

	applied, err := uc.RevertRefundCanceled(ctx, "p-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !applied {
		t.Fatalf("revert must apply from refund_processing")
	}

	stored, _ := repo.GetByID(ctx, "p-1")
	if stored.Status != model.PurchaseStatusCompleted {
		t.Fatalf("expected completed after revert, got %s", stored.Status)
	}
	if stored.RefundFailureReason == nil || *stored.RefundFailureReason != model.RefundCanceledReason {
		t.Fatalf("cancellation reason not recorded")
	}
}

func TestLifecycleUnknownPurchase(t *testing.T) {
	uc := NewLifecycleUseCase(testhelpers.NewPurchaseRepositoryStub(), discardLogger())

	applied, err := uc.Complete(context.Background(), "ghost", "pi_123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if applied {
		t.Fatalf("completing an unknown purchase must not apply")
	}
}
