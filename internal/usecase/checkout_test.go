package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/coursepay/coursepay/internal/adapter/gateway"
	domainErrors "github.com/coursepay/coursepay/internal/domain/errors"
	"github.com/coursepay/coursepay/internal/domain/model"
	"github.com/coursepay/coursepay/internal/lock"
	"github.com/coursepay/coursepay/internal/ordernum"
	testhelpers "github.com/coursepay/coursepay/internal/test"
)

type checkoutFixture struct {
	uc        *CheckoutUseCase
	purchases *testhelpers.PurchaseRepositoryStub
	promos    *testhelpers.PromoCodeRepositoryStub
	catalog   *testhelpers.CatalogRepositoryStub
	gw        *testhelpers.GatewayStub
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()
	purchases := testhelpers.NewPurchaseRepositoryStub()
	promos := testhelpers.NewPromoCodeRepositoryStub()
	catalog := testhelpers.NewCatalogRepositoryStub()
	gw := &testhelpers.GatewayStub{}
	issuer := ordernum.NewIssuer(testhelpers.NewOrderCounterStub())
	opts := CheckoutOptions{
		LockTimeout: time.Second,
		MinCharge:   50,
		Currency:    "usd",
		SuccessURL:  "https://shop.example/success",
		CancelURL:   "https://shop.example/cancel",
	}
	uc := NewCheckoutUseCase(purchases, promos, catalog, issuer, lock.NewMemoryLocker(), gw, opts, slog.New(slog.NewJSONHandler(io.Discard, nil)))
	return &checkoutFixture{uc: uc, purchases: purchases, promos: promos, catalog: catalog, gw: gw}
}

func (f *checkoutFixture) addProgram(p *model.Program) { f.catalog.Programs[p.ID] = p }
func (f *checkoutFixture) addEvent(e *model.Event)     { f.catalog.Events[e.ID] = e }

func TestCreateCheckoutProgram(t *testing.T) {
	f := newCheckoutFixture(t)
	f.addProgram(&model.Program{ID: "prog-1", Name: "Spring Cohort", Price: 10000})

	res, err := f.uc.CreateCheckout(context.Background(), 7, CheckoutInput{
		Kind:     model.PurchaseKindProgram,
		TargetID: "prog-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.SessionID == "" || res.SessionURL == "" {
		t.Fatalf("expected session in result, got %+v", res)
	}

	stored, err := f.purchases.GetByID(context.Background(), res.PurchaseID)
	if err != nil {
		t.Fatalf("purchase not stored: %v", err)
	}
	if stored.Status != model.PurchaseStatusPending {
		t.Fatalf("expected pending status, got %s", stored.Status)
	}
	if stored.FinalPrice != 10000 {
		t.Fatalf("expected final price 10000, got %d", stored.FinalPrice)
	}
	if stored.OrderNumber != res.OrderNumber {
		t.Fatalf("order number mismatch: %q vs %q", stored.OrderNumber, res.OrderNumber)
	}
	if stored.GatewaySessionID == nil || *stored.GatewaySessionID != res.SessionID {
		t.Fatalf("session id not stored on purchase")
	}

	if len(f.gw.Sessions) != 1 {
		t.Fatalf("expected one gateway session, got %d", len(f.gw.Sessions))
	}
	req := f.gw.Sessions[0]
	if req.Amount != 10000 || req.Currency != "usd" {
		t.Fatalf("unexpected session request: %+v", req)
	}
	if req.Metadata[gateway.MetadataPurchaseID] != res.PurchaseID {
		t.Fatalf("purchase id missing from session metadata")
	}
	if req.Metadata[gateway.MetadataOrderNumber] != res.OrderNumber {
		t.Fatalf("order number missing from session metadata")
	}
	if req.Metadata[gateway.MetadataUserID] != "7" {
		t.Fatalf("user id missing from session metadata")
	}
}

func TestCreateCheckoutAppliesDiscounts(t *testing.T) {
	f := newCheckoutFixture(t)
	until := time.Now().Add(24 * time.Hour)
	f.addProgram(&model.Program{
		ID:                "prog-1",
		Name:              "Spring Cohort",
		Price:             10000,
		ClassRepDiscount:  1000,
		EarlyBirdDiscount: 500,
		EarlyBirdUntil:    &until,
	})
	f.promos.Codes["WELCOME50"] = &model.PromoCode{
		ID:              1,
		Code:            "WELCOME50",
		DiscountPercent: 50,
		IsGeneral:       true,
		IsActive:        true,
	}

	res, err := f.uc.CreateCheckout(context.Background(), 7, CheckoutInput{
		Kind:      model.PurchaseKindProgram,
		TargetID:  "prog-1",
		PromoCode: "WELCOME50",
		ClassRep:  true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored, err := f.purchases.GetByID(context.Background(), res.PurchaseID)
	if err != nil {
		t.Fatalf("purchase not stored: %v", err)
	}
	// (10000 - 1000 - 500) * 50% = 4250
	if stored.FinalPrice != 4250 {
		t.Fatalf("expected final price 4250, got %d", stored.FinalPrice)
	}
	if stored.PromoCode == nil || *stored.PromoCode != "WELCOME50" {
		t.Fatalf("promo code not recorded on purchase")
	}
}

func TestCreateCheckoutFreeItem(t *testing.T) {
	f := newCheckoutFixture(t)
	f.addEvent(&model.Event{ID: "ev-1", Name: "Meetup", IsFree: true, Price: 0})

	_, err := f.uc.CreateCheckout(context.Background(), 7, CheckoutInput{
		Kind:     model.PurchaseKindEvent,
		TargetID: "ev-1",
	})
	if !errors.Is(err, domainErrors.ErrFreeItem) {
		t.Fatalf("expected ErrFreeItem, got %v", err)
	}
	if len(f.gw.Sessions) != 0 {
		t.Fatalf("no session should be created for free items")
	}
}

func TestCreateCheckoutAlreadyPurchased(t *testing.T) {
	f := newCheckoutFixture(t)
	f.addProgram(&model.Program{ID: "prog-1", Name: "Spring Cohort", Price: 10000})
	progID := "prog-1"
	f.purchases.Purchases["existing"] = &model.Purchase{
		ID:        "existing",
		UserID:    7,
		Kind:      model.PurchaseKindProgram,
		ProgramID: &progID,
		Status:    model.PurchaseStatusCompleted,
	}

	_, err := f.uc.CreateCheckout(context.Background(), 7, CheckoutInput{
		Kind:     model.PurchaseKindProgram,
		TargetID: "prog-1",
	})
	if !errors.Is(err, domainErrors.ErrAlreadyPurchased) {
		t.Fatalf("expected ErrAlreadyPurchased, got %v", err)
	}
}

func TestCreateCheckoutPromoNotApplicable(t *testing.T) {
	f := newCheckoutFixture(t)
	f.addProgram(&model.Program{ID: "prog-1", Name: "Spring Cohort", Price: 10000})

	_, err := f.uc.CreateCheckout(context.Background(), 7, CheckoutInput{
		Kind:      model.PurchaseKindProgram,
		TargetID:  "prog-1",
		PromoCode: "NOPE",
	})
	if !errors.Is(err, domainErrors.ErrPromoNotApplicable) {
		t.Fatalf("expected ErrPromoNotApplicable for unknown code, got %v", err)
	}

	owner := int64(99)
	f.promos.Codes["PERSONAL"] = &model.PromoCode{
		ID:             2,
		Code:           "PERSONAL",
		DiscountAmount: 500,
		OwnerID:        &owner,
		IsActive:       true,
	}
	_, err = f.uc.CreateCheckout(context.Background(), 7, CheckoutInput{
		Kind:      model.PurchaseKindProgram,
		TargetID:  "prog-1",
		PromoCode: "PERSONAL",
	})
	if !errors.Is(err, domainErrors.ErrPromoNotApplicable) {
		t.Fatalf("expected ErrPromoNotApplicable for foreign code, got %v", err)
	}
}

func TestCreateCheckoutBelowMinimum(t *testing.T) {
	f := newCheckoutFixture(t)
	f.addProgram(&model.Program{ID: "prog-1", Name: "Spring Cohort", Price: 100})
	f.promos.Codes["ALMOST"] = &model.PromoCode{
		ID:             3,
		Code:           "ALMOST",
		DiscountAmount: 80,
		IsGeneral:      true,
		IsActive:       true,
	}

	_, err := f.uc.CreateCheckout(context.Background(), 7, CheckoutInput{
		Kind:      model.PurchaseKindProgram,
		TargetID:  "prog-1",
		PromoCode: "ALMOST",
	})
	if !errors.Is(err, domainErrors.ErrPriceBelowMinimum) {
		t.Fatalf("expected ErrPriceBelowMinimum, got %v", err)
	}
	if len(f.gw.Sessions) != 0 {
		t.Fatalf("no session should be created below the minimum charge")
	}
}

func TestCreateCheckoutConcurrentBuyersSameEvent(t *testing.T) {
	f := newCheckoutFixture(t)
	f.addEvent(&model.Event{ID: "ev-1", Name: "Demo Day", Price: 10000})

	// The lock is keyed per purchase, so two buyers checking out the same
	// event must both succeed independently.
	buyers := []int64{7, 8}
	results := make([]*CheckoutResult, len(buyers))
	errs := make([]error, len(buyers))

	var wg sync.WaitGroup
	for i, buyer := range buyers {
		i, buyer := i, buyer
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = f.uc.CreateCheckout(context.Background(), buyer, CheckoutInput{
				Kind:     model.PurchaseKindEvent,
				TargetID: "ev-1",
			})
		}()
	}
	wg.Wait()

	for i, buyer := range buyers {
		if errs[i] != nil {
			t.Fatalf("buyer %d checkout failed: %v", buyer, errs[i])
		}
		stored, err := f.purchases.GetByID(context.Background(), results[i].PurchaseID)
		if err != nil {
			t.Fatalf("purchase for buyer %d not stored: %v", buyer, err)
		}
		if stored.UserID != buyer || stored.Status != model.PurchaseStatusPending {
			t.Fatalf("unexpected purchase for buyer %d: %+v", buyer, stored)
		}
	}
	if results[0].PurchaseID == results[1].PurchaseID {
		t.Fatal("buyers must receive distinct purchases")
	}
	if results[0].OrderNumber == results[1].OrderNumber {
		t.Fatal("buyers must receive distinct order numbers")
	}
	if len(f.gw.Sessions) != 2 {
		t.Fatalf("expected two gateway sessions, got %d", len(f.gw.Sessions))
	}
}

func TestCreateCheckoutReplacesPending(t *testing.T) {
	f := newCheckoutFixture(t)
	f.addProgram(&model.Program{ID: "prog-1", Name: "Spring Cohort", Price: 10000})
	progID := "prog-1"
	oldSession := "cs_old"
	f.purchases.Purchases["stale"] = &model.Purchase{
		ID:               "stale",
		UserID:           7,
		Kind:             model.PurchaseKindProgram,
		ProgramID:        &progID,
		Status:           model.PurchaseStatusPending,
		GatewaySessionID: &oldSession,
	}

	res, err := f.uc.CreateCheckout(context.Background(), 7, CheckoutInput{
		Kind:     model.PurchaseKindProgram,
		TargetID: "prog-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.PurchaseID == "stale" {
		t.Fatalf("expected a fresh purchase id")
	}
	if len(f.gw.Expired) != 1 || f.gw.Expired[0] != "cs_old" {
		t.Fatalf("expected old session to be expired, got %v", f.gw.Expired)
	}
	if len(f.purchases.Deleted) != 1 || f.purchases.Deleted[0] != "stale" {
		t.Fatalf("expected stale purchase to be deleted, got %v", f.purchases.Deleted)
	}
	if _, err := f.purchases.GetByID(context.Background(), "stale"); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("stale purchase should be gone, got %v", err)
	}
}

func TestCreateCheckoutGatewayFailureKeepsPending(t *testing.T) {
	f := newCheckoutFixture(t)
	f.addProgram(&model.Program{ID: "prog-1", Name: "Spring Cohort", Price: 10000})
	gwErr := &gateway.Error{Op: "create session", Err: errors.New("boom")}
	f.gw.CreateSessionFn = func(context.Context, gateway.SessionRequest) (*gateway.Session, error) {
		return nil, gwErr
	}

	_, err := f.uc.CreateCheckout(context.Background(), 7, CheckoutInput{
		Kind:     model.PurchaseKindProgram,
		TargetID: "prog-1",
	})
	if !errors.Is(err, gwErr) {
		t.Fatalf("expected gateway error, got %v", err)
	}

	pending, err := f.purchases.FindPending(context.Background(), 7, model.PurchaseKindProgram, "prog-1")
	if err != nil {
		t.Fatalf("pending purchase should remain for retry: %v", err)
	}
	if pending.GatewaySessionID != nil {
		t.Fatalf("no session should be recorded after gateway failure")
	}
}

func TestRetryPending(t *testing.T) {
	f := newCheckoutFixture(t)
	f.addProgram(&model.Program{ID: "prog-1", Name: "Spring Cohort", Price: 10000})
	progID := "prog-1"
	f.purchases.Purchases["p-1"] = &model.Purchase{
		ID:          "p-1",
		UserID:      7,
		Kind:        model.PurchaseKindProgram,
		ProgramID:   &progID,
		OrderNumber: "ORD-20260826-00001",
		FinalPrice:  9000,
		Status:      model.PurchaseStatusPending,
	}

	res, err := f.uc.RetryPending(context.Background(), 7, "p-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.OrderNumber != "ORD-20260826-00001" {
		t.Fatalf("order number must be preserved on retry, got %q", res.OrderNumber)
	}
	if len(f.gw.Sessions) != 1 {
		t.Fatalf("expected one new session, got %d", len(f.gw.Sessions))
	}
	if f.gw.Sessions[0].Amount != 9000 {
		t.Fatalf("retry must reuse the stored price, got %d", f.gw.Sessions[0].Amount)
	}

	stored, _ := f.purchases.GetByID(context.Background(), "p-1")
	if stored.GatewaySessionID == nil || *stored.GatewaySessionID != res.SessionID {
		t.Fatalf("new session id not stored")
	}
}

func TestRetryPendingForbidden(t *testing.T) {
	f := newCheckoutFixture(t)
	progID := "prog-1"
	f.purchases.Purchases["p-1"] = &model.Purchase{
		ID:        "p-1",
		UserID:    7,
		Kind:      model.PurchaseKindProgram,
		ProgramID: &progID,
		Status:    model.PurchaseStatusPending,
	}

	if _, err := f.uc.RetryPending(context.Background(), 8, "p-1"); !errors.Is(err, domainErrors.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestRetryPendingNotPending(t *testing.T) {
	f := newCheckoutFixture(t)
	progID := "prog-1"
	f.purchases.Purchases["p-1"] = &model.Purchase{
		ID:        "p-1",
		UserID:    7,
		Kind:      model.PurchaseKindProgram,
		ProgramID: &progID,
		Status:    model.PurchaseStatusCompleted,
	}

	if _, err := f.uc.RetryPending(context.Background(), 7, "p-1"); !errors.Is(err, domainErrors.ErrNotPending) {
		t.Fatalf("expected ErrNotPending, got %v", err)
	}
}

func TestCreateCheckoutUnknownKind(t *testing.T) {
	f := newCheckoutFixture(t)
	if _, err := f.uc.CreateCheckout(context.Background(), 7, CheckoutInput{Kind: "subscription", TargetID: "x"}); !errors.Is(err, domainErrors.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
