package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/coursepay/coursepay/internal/adapter/gateway"
	domainErrors "github.com/coursepay/coursepay/internal/domain/errors"
	"github.com/coursepay/coursepay/internal/domain/model"
	"github.com/coursepay/coursepay/internal/lock"
	"github.com/coursepay/coursepay/internal/ordernum"
	testhelpers "github.com/coursepay/coursepay/internal/test"
	"github.com/coursepay/coursepay/internal/usecase"
)

type facadeFixture struct {
	facade    *CheckoutPaymentFacade
	users     *testhelpers.UserRepositoryStub
	purchases *testhelpers.PurchaseRepositoryStub
	catalog   *testhelpers.CatalogRepositoryStub
	gw        *testhelpers.GatewayStub
	notifier  *testhelpers.NotifierStub
}

func newFacadeFixture() *facadeFixture {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	users := testhelpers.NewUserRepositoryStub()
	strategy := testhelpers.StrategyStub{ParseFn: func(string) (int64, error) { return 99, nil }}
	authUC := usecase.NewAuthUseCase(users, testhelpers.HasherStub{}, strategy)

	purchases := testhelpers.NewPurchaseRepositoryStub()
	promos := testhelpers.NewPromoCodeRepositoryStub()
	catalog := testhelpers.NewCatalogRepositoryStub()
	issuer := ordernum.NewIssuer(testhelpers.NewOrderCounterStub())
	gw := &testhelpers.GatewayStub{}

	checkoutUC := usecase.NewCheckoutUseCase(purchases, promos, catalog, issuer, lock.NewMemoryLocker(), gw, usecase.CheckoutOptions{
		LockTimeout: time.Second,
		MinCharge:   50,
		Currency:    "usd",
	}, logger)
	lifecycleUC := usecase.NewLifecycleUseCase(purchases, logger)
	notifier := &testhelpers.NotifierStub{}
	refundsUC := usecase.NewRefundProcessor(purchases, lifecycleUC, gw, notifier, logger)
	accessUC := usecase.NewAccessUseCase(purchases, catalog)

	facade := NewCheckoutPaymentFacade(authUC, checkoutUC, lifecycleUC, refundsUC, accessUC, purchases, gw, logger)
	return &facadeFixture{
		facade:    facade,
		users:     users,
		purchases: purchases,
		catalog:   catalog,
		gw:        gw,
		notifier:  notifier,
	}
}

func TestCheckoutPaymentFacadeAuth(t *testing.T) {
	f := newFacadeFixture()

	token, err := f.facade.Register(context.Background(), "user", "pass")
	if err != nil {
		t.Fatalf("register returned error: %v", err)
	}
	if token != "token" {
		t.Fatalf("unexpected token %q", token)
	}

	stored, err := f.users.GetByLogin(context.Background(), "user")
	if err != nil {
		t.Fatalf("user not stored: %v", err)
	}
	if stored.Login != "user" {
		t.Fatalf("unexpected stored login %q", stored.Login)
	}

	token, err = f.facade.Authenticate(context.Background(), "user", "pass")
	if err != nil {
		t.Fatalf("authenticate returned error: %v", err)
	}
	if token != "token" {
		t.Fatalf("unexpected token %q", token)
	}

	id, err := f.facade.ParseToken("anything")
	if err != nil {
		t.Fatalf("parse token returned error: %v", err)
	}
	if id != 99 {
		t.Fatalf("expected id 99, got %d", id)
	}
}

func TestCheckoutPaymentFacadeCheckout(t *testing.T) {
	f := newFacadeFixture()
	f.catalog.Programs["prog-1"] = &model.Program{ID: "prog-1", Name: "Spring Cohort", Price: 10000}

	result, err := f.facade.CreateCheckout(context.Background(), 7, usecase.CheckoutInput{
		Kind:     model.PurchaseKindProgram,
		TargetID: "prog-1",
	})
	if err != nil {
		t.Fatalf("create checkout returned error: %v", err)
	}
	if result.SessionID == "" || result.OrderNumber == "" {
		t.Fatalf("incomplete result: %+v", result)
	}

	listed, err := f.facade.Purchases(context.Background(), 7)
	if err != nil || len(listed) != 1 {
		t.Fatalf("expected one purchase, got %v err=%v", listed, err)
	}
	if listed[0].Status != model.PurchaseStatusPending {
		t.Fatalf("expected pending purchase, got %s", listed[0].Status)
	}

	retried, err := f.facade.RetryCheckout(context.Background(), 7, result.PurchaseID)
	if err != nil {
		t.Fatalf("retry returned error: %v", err)
	}
	if retried.OrderNumber != result.OrderNumber {
		t.Fatalf("retry changed order number: %q != %q", retried.OrderNumber, result.OrderNumber)
	}
}

func TestCheckoutPaymentFacadeRequestRefund(t *testing.T) {
	f := newFacadeFixture()
	if _, err := f.facade.Register(context.Background(), "buyer", "pass"); err != nil {
		t.Fatalf("register returned error: %v", err)
	}

	intent := "pi_1"
	programID := "prog-1"
	f.purchases.Purchases["p-1"] = &model.Purchase{
		ID:                     "p-1",
		UserID:                 1,
		Kind:                   model.PurchaseKindProgram,
		ProgramID:              &programID,
		Status:                 model.PurchaseStatusCompleted,
		GatewayPaymentIntentID: &intent,
	}

	if err := f.facade.RequestRefund(context.Background(), 1, "p-1"); err != nil {
		t.Fatalf("request refund returned error: %v", err)
	}
	if len(f.gw.Refunded) != 1 || f.gw.Refunded[0] != "pi_1" {
		t.Fatalf("expected refund for pi_1, got %v", f.gw.Refunded)
	}

	stored, _ := f.purchases.GetByID(context.Background(), "p-1")
	if stored.Status != model.PurchaseStatusRefundProcessing {
		t.Fatalf("expected refund_processing, got %s", stored.Status)
	}

	if err := f.facade.RequestRefund(context.Background(), 2, "p-1"); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected not found for unknown user, got %v", err)
	}
}

func TestCheckoutPaymentFacadeEventAccess(t *testing.T) {
	f := newFacadeFixture()
	if _, err := f.facade.Register(context.Background(), "visitor", "pass"); err != nil {
		t.Fatalf("register returned error: %v", err)
	}
	f.catalog.Events["ev-1"] = &model.Event{ID: "ev-1", Name: "Open Lecture", IsFree: true}

	decision, err := f.facade.EventAccess(context.Background(), 1, "ev-1")
	if err != nil {
		t.Fatalf("event access returned error: %v", err)
	}
	if !decision.HasAccess || decision.Reason != model.AccessReasonFreeEvent {
		t.Fatalf("unexpected decision: %+v", decision)
	}
}

func TestCheckoutPaymentFacadeHandleWebhook(t *testing.T) {
	f := newFacadeFixture()
	programID := "prog-1"
	f.purchases.Purchases["p-1"] = &model.Purchase{
		ID:        "p-1",
		UserID:    1,
		Kind:      model.PurchaseKindProgram,
		ProgramID: &programID,
		Status:    model.PurchaseStatusPending,
	}

	f.gw.ParseWebhookFn = func([]byte, string) (*gateway.WebhookEvent, error) {
		return &gateway.WebhookEvent{
			Type:            gateway.EventCheckoutCompleted,
			SessionID:       "cs_1",
			PaymentIntentID: "pi_1",
			PurchaseID:      "p-1",
			OrderNumber:     "ORD-20260826-00001",
		}, nil
	}
	if err := f.facade.HandleWebhook(context.Background(), []byte("{}"), "sig"); err != nil {
		t.Fatalf("handle webhook returned error: %v", err)
	}
	stored, _ := f.purchases.GetByID(context.Background(), "p-1")
	if stored.Status != model.PurchaseStatusCompleted {
		t.Fatalf("expected completed, got %s", stored.Status)
	}

	// Replay of the same event must not error.
	if err := f.facade.HandleWebhook(context.Background(), []byte("{}"), "sig"); err != nil {
		t.Fatalf("replay returned error: %v", err)
	}
}

func TestCheckoutPaymentFacadeHandleWebhookFailure(t *testing.T) {
	f := newFacadeFixture()
	programID := "prog-1"
	f.purchases.Purchases["p-2"] = &model.Purchase{
		ID:        "p-2",
		UserID:    1,
		Kind:      model.PurchaseKindProgram,
		ProgramID: &programID,
		Status:    model.PurchaseStatusPending,
	}

	f.gw.ParseWebhookFn = func([]byte, string) (*gateway.WebhookEvent, error) {
		return &gateway.WebhookEvent{Type: gateway.EventPaymentFailed, PurchaseID: "p-2"}, nil
	}
	if err := f.facade.HandleWebhook(context.Background(), []byte("{}"), "sig"); err != nil {
		t.Fatalf("handle webhook returned error: %v", err)
	}
	stored, _ := f.purchases.GetByID(context.Background(), "p-2")
	if stored.Status != model.PurchaseStatusFailed {
		t.Fatalf("expected failed, got %s", stored.Status)
	}
}

func TestCheckoutPaymentFacadeHandleWebhookExpiredKeepsPending(t *testing.T) {
	f := newFacadeFixture()
	programID := "prog-1"
	f.purchases.Purchases["p-3"] = &model.Purchase{
		ID:        "p-3",
		UserID:    1,
		Kind:      model.PurchaseKindProgram,
		ProgramID: &programID,
		Status:    model.PurchaseStatusPending,
	}

	f.gw.ParseWebhookFn = func([]byte, string) (*gateway.WebhookEvent, error) {
		return &gateway.WebhookEvent{Type: gateway.EventCheckoutExpired, SessionID: "cs_old", PurchaseID: "p-3"}, nil
	}
	if err := f.facade.HandleWebhook(context.Background(), []byte("{}"), "sig"); err != nil {
		t.Fatalf("handle webhook returned error: %v", err)
	}
	stored, _ := f.purchases.GetByID(context.Background(), "p-3")
	if stored.Status != model.PurchaseStatusPending {
		t.Fatalf("expired session must leave the purchase pending for retry, got %s", stored.Status)
	}
}

func TestCheckoutPaymentFacadeHandleWebhookIgnoresUnknown(t *testing.T) {
	f := newFacadeFixture()

	f.gw.ParseWebhookFn = func([]byte, string) (*gateway.WebhookEvent, error) {
		return &gateway.WebhookEvent{Type: gateway.EventUnknown, SessionID: "cs_x"}, nil
	}
	if err := f.facade.HandleWebhook(context.Background(), []byte("{}"), "sig"); err != nil {
		t.Fatalf("unknown event should be acknowledged, got %v", err)
	}

	f.gw.ParseWebhookFn = func([]byte, string) (*gateway.WebhookEvent, error) {
		return &gateway.WebhookEvent{Type: gateway.EventCheckoutCompleted}, nil
	}
	if err := f.facade.HandleWebhook(context.Background(), []byte("{}"), "sig"); err != nil {
		t.Fatalf("event without metadata should be acknowledged, got %v", err)
	}
}

func TestCheckoutPaymentFacadeHandleWebhookBadSignature(t *testing.T) {
	f := newFacadeFixture()
	err := f.facade.HandleWebhook(context.Background(), []byte("{}"), "bad")
	if !errors.Is(err, gateway.ErrBadSignature) {
		t.Fatalf("expected bad signature error, got %v", err)
	}
}

func TestCheckoutPaymentFacadeWorkerMethods(t *testing.T) {
	f := newFacadeFixture()
	programID := "prog-1"
	f.purchases.Purchases["stale"] = &model.Purchase{
		ID:        "stale",
		UserID:    1,
		Kind:      model.PurchaseKindProgram,
		ProgramID: &programID,
		Status:    model.PurchaseStatusPending,
		CreatedAt: time.Now().Add(-48 * time.Hour),
	}

	batch, err := f.facade.StalePending(context.Background(), time.Now().Add(-24*time.Hour), 10)
	if err != nil || len(batch) != 1 {
		t.Fatalf("expected one stale purchase, got %v err=%v", batch, err)
	}

	if err := f.facade.ExpireSession(context.Background(), "cs_1"); err != nil {
		t.Fatalf("expire session returned error: %v", err)
	}
	if len(f.gw.Expired) != 1 {
		t.Fatalf("expected expire call, got %v", f.gw.Expired)
	}

	if err := f.facade.DeletePurchase(context.Background(), "stale"); err != nil {
		t.Fatalf("delete purchase returned error: %v", err)
	}
	if len(f.purchases.Deleted) != 1 || f.purchases.Deleted[0] != "stale" {
		t.Fatalf("expected delete to be recorded, got %v", f.purchases.Deleted)
	}
}
