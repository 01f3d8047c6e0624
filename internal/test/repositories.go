package test

import (
	"context"
	"sync"
	"time"

	domainErrors "github.com/coursepay/coursepay/internal/domain/errors"
	"github.com/coursepay/coursepay/internal/domain/model"
)

// UserRepositoryStub stores users in-memory for tests.
type UserRepositoryStub struct {
	Users map[string]*model.User
	ByID  map[int64]*model.User
	Next  int64
	Err   error
}

// NewUserRepositoryStub constructs stub repository with initialized maps.
func NewUserRepositoryStub() *UserRepositoryStub {
	return &UserRepositoryStub{
		Users: make(map[string]*model.User),
		ByID:  make(map[int64]*model.User),
		Next:  1,
	}
}

// Create registers user unless already exists or stub has explicit error.
func (s *UserRepositoryStub) Create(ctx context.Context, login, passwordHash string) (*model.User, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if s.Users == nil {
		s.Users = make(map[string]*model.User)
	}
	if s.ByID == nil {
		s.ByID = make(map[int64]*model.User)
	}
	if _, exists := s.Users[login]; exists {
		return nil, domainErrors.ErrAlreadyExists
	}
	if s.Next == 0 {
		s.Next = 1
	}
	user := &model.User{ID: s.Next, Login: login, PasswordHash: passwordHash}
	s.Next++
	s.Users[login] = user
	s.ByID[user.ID] = user
	return user, nil
}

// GetByLogin fetches user by login or returns not found.
func (s *UserRepositoryStub) GetByLogin(ctx context.Context, login string) (*model.User, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if user, ok := s.Users[login]; ok {
		return user, nil
	}
	return nil, domainErrors.ErrNotFound
}

// GetByID fetches user by identifier or returns not found.
func (s *UserRepositoryStub) GetByID(ctx context.Context, id int64) (*model.User, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if user, ok := s.ByID[id]; ok {
		return user, nil
	}
	return nil, domainErrors.ErrNotFound
}

// PurchaseRepositoryStub keeps purchases in-memory and applies the same
// guarded status transitions as the real repository. Individual methods can
// be overridden via Fn fields.
type PurchaseRepositoryStub struct {
	mu        sync.Mutex
	Purchases map[string]*model.Purchase

	CreateFn             func(context.Context, *model.Purchase) error
	GetByIDFn            func(context.Context, string) (*model.Purchase, error)
	HasCompletedFn       func(context.Context, int64, model.PurchaseKind, string) (bool, error)
	SelectStalePendingFn func(context.Context, time.Time, int) ([]model.Purchase, error)

	Deleted []string
	Err     error
}

// NewPurchaseRepositoryStub constructs an empty stub.
func NewPurchaseRepositoryStub() *PurchaseRepositoryStub {
	return &PurchaseRepositoryStub{Purchases: make(map[string]*model.Purchase)}
}

// Create stores the purchase keyed by ID.
func (s *PurchaseRepositoryStub) Create(ctx context.Context, p *model.Purchase) error {
	if s.CreateFn != nil {
		return s.CreateFn(ctx, p)
	}
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *p
	s.Purchases[p.ID] = &clone
	return nil
}

// GetByID returns a copy of the stored purchase or not found.
func (s *PurchaseRepositoryStub) GetByID(ctx context.Context, id string) (*model.Purchase, error) {
	if s.GetByIDFn != nil {
		return s.GetByIDFn(ctx, id)
	}
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.Purchases[id]; ok {
		clone := *p
		return &clone, nil
	}
	return nil, domainErrors.ErrNotFound
}

// ListByUser returns stored purchases for the user.
func (s *PurchaseRepositoryStub) ListByUser(ctx context.Context, userID int64) ([]model.Purchase, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Purchase
	for _, p := range s.Purchases {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

// Delete removes the purchase and records the call.
func (s *PurchaseRepositoryStub) Delete(ctx context.Context, id string) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.Purchases, id)
	s.Deleted = append(s.Deleted, id)
	return nil
}

// FindPending returns the pending purchase for a buyer and item.
func (s *PurchaseRepositoryStub) FindPending(ctx context.Context, userID int64, kind model.PurchaseKind, targetID string) (*model.Purchase, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.Purchases {
		if p.UserID == userID && p.Kind == kind && p.TargetID() == targetID && p.Status == model.PurchaseStatusPending {
			clone := *p
			return &clone, nil
		}
	}
	return nil, domainErrors.ErrNotFound
}

// HasCompleted reports whether a completed purchase for the item exists.
func (s *PurchaseRepositoryStub) HasCompleted(ctx context.Context, userID int64, kind model.PurchaseKind, targetID string) (bool, error) {
	if s.HasCompletedFn != nil {
		return s.HasCompletedFn(ctx, userID, kind, targetID)
	}
	if s.Err != nil {
		return false, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.Purchases {
		if p.UserID == userID && p.Kind == kind && p.TargetID() == targetID && p.Status == model.PurchaseStatusCompleted {
			return true, nil
		}
	}
	return false, nil
}

// HasCompletedForPrograms reports whether any listed program is owned.
func (s *PurchaseRepositoryStub) HasCompletedForPrograms(ctx context.Context, userID int64, programIDs []string) (bool, error) {
	if s.Err != nil {
		return false, s.Err
	}
	for _, id := range programIDs {
		ok, err := s.HasCompleted(ctx, userID, model.PurchaseKindProgram, id)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// SetGatewaySession stores the session id on the purchase.
func (s *PurchaseRepositoryStub) SetGatewaySession(ctx context.Context, id, sessionID string) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.Purchases[id]
	if !ok {
		return domainErrors.ErrNotFound
	}
	p.GatewaySessionID = &sessionID
	return nil
}

func (s *PurchaseRepositoryStub) transition(id string, from []model.PurchaseStatus, apply func(*model.Purchase)) (bool, error) {
	if s.Err != nil {
		return false, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.Purchases[id]
	if !ok {
		return false, nil
	}
	for _, status := range from {
		if p.Status == status {
			apply(p)
			return true, nil
		}
	}
	return false, nil
}

// Complete moves pending to completed.
func (s *PurchaseRepositoryStub) Complete(ctx context.Context, id, paymentIntentID string) (bool, error) {
	return s.transition(id, []model.PurchaseStatus{model.PurchaseStatusPending}, func(p *model.Purchase) {
		p.Status = model.PurchaseStatusCompleted
		p.GatewayPaymentIntentID = &paymentIntentID
	})
}

// Fail moves pending to failed.
func (s *PurchaseRepositoryStub) Fail(ctx context.Context, id string) (bool, error) {
	return s.transition(id, []model.PurchaseStatus{model.PurchaseStatusPending}, func(p *model.Purchase) {
		p.Status = model.PurchaseStatusFailed
	})
}

// MarkRefundProcessing moves completed to refund_processing.
func (s *PurchaseRepositoryStub) MarkRefundProcessing(ctx context.Context, id, refundID string) (bool, error) {
	return s.transition(id, []model.PurchaseStatus{model.PurchaseStatusCompleted}, func(p *model.Purchase) {
		p.Status = model.PurchaseStatusRefundProcessing
		p.GatewayRefundID = &refundID
		now := time.Now()
		p.RefundInitiatedAt = &now
	})
}

// MarkRefunded moves refund_processing to refunded.
func (s *PurchaseRepositoryStub) MarkRefunded(ctx context.Context, id string) (bool, error) {
	return s.transition(id, []model.PurchaseStatus{model.PurchaseStatusRefundProcessing}, func(p *model.Purchase) {
		p.Status = model.PurchaseStatusRefunded
		now := time.Now()
		p.RefundedAt = &now
	})
}

// MarkRefundFailed moves refund_processing to refund_failed.
func (s *PurchaseRepositoryStub) MarkRefundFailed(ctx context.Context, id, reason string) (bool, error) {
	return s.transition(id, []model.PurchaseStatus{model.PurchaseStatusRefundProcessing}, func(p *model.Purchase) {
		p.Status = model.PurchaseStatusRefundFailed
		p.RefundFailureReason = &reason
	})
}

// RevertRefundToCompleted moves refund_processing back to completed.
func (s *PurchaseRepositoryStub) RevertRefundToCompleted(ctx context.Context, id, reason string) (bool, error) {
	return s.transition(id, []model.PurchaseStatus{model.PurchaseStatusRefundProcessing}, func(p *model.Purchase) {
		p.Status = model.PurchaseStatusCompleted
		p.RefundFailureReason = &reason
		p.GatewayRefundID = nil
	})
}

// SelectStalePending returns configured stale purchases.
func (s *PurchaseRepositoryStub) SelectStalePending(ctx context.Context, olderThan time.Time, limit int) ([]model.Purchase, error) {
	if s.SelectStalePendingFn != nil {
		return s.SelectStalePendingFn(ctx, olderThan, limit)
	}
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Purchase
	for _, p := range s.Purchases {
		if p.Status == model.PurchaseStatusPending && p.CreatedAt.Before(olderThan) {
			out = append(out, *p)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// PromoCodeRepositoryStub serves promo codes from a map.
type PromoCodeRepositoryStub struct {
	Codes map[string]*model.PromoCode
	Err   error
}

// NewPromoCodeRepositoryStub constructs stub with initialized map.
func NewPromoCodeRepositoryStub() *PromoCodeRepositoryStub {
	return &PromoCodeRepositoryStub{Codes: make(map[string]*model.PromoCode)}
}

// GetByCode returns configured code or not found.
func (s *PromoCodeRepositoryStub) GetByCode(ctx context.Context, code string) (*model.PromoCode, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if promo, ok := s.Codes[code]; ok {
		return promo, nil
	}
	return nil, domainErrors.ErrNotFound
}

// CatalogRepositoryStub serves programs and events from maps.
type CatalogRepositoryStub struct {
	Programs map[string]*model.Program
	Events   map[string]*model.Event
	Err      error
}

// NewCatalogRepositoryStub constructs stub with initialized maps.
func NewCatalogRepositoryStub() *CatalogRepositoryStub {
	return &CatalogRepositoryStub{
		Programs: make(map[string]*model.Program),
		Events:   make(map[string]*model.Event),
	}
}

// GetProgram returns configured program or not found.
func (s *CatalogRepositoryStub) GetProgram(ctx context.Context, id string) (*model.Program, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if program, ok := s.Programs[id]; ok {
		return program, nil
	}
	return nil, domainErrors.ErrNotFound
}

// GetEvent returns configured event or not found.
func (s *CatalogRepositoryStub) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if event, ok := s.Events[id]; ok {
		return event, nil
	}
	return nil, domainErrors.ErrNotFound
}

// OrderCounterStub increments per-day sequences in memory.
type OrderCounterStub struct {
	mu   sync.Mutex
	seqs map[string]int64
	Err  error
}

// NewOrderCounterStub constructs stub with initialized counters.
func NewOrderCounterStub() *OrderCounterStub {
	return &OrderCounterStub{seqs: make(map[string]int64)}
}

// NextSequence returns the next sequence for the day.
func (s *OrderCounterStub) NextSequence(ctx context.Context, day string) (int64, error) {
	if s.Err != nil {
		return 0, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seqs[day]++
	return s.seqs[day], nil
}
