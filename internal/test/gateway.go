package test

import (
	"context"
	"fmt"
	"sync"

	"github.com/coursepay/coursepay/internal/adapter/gateway"
)

// GatewayStub records payment gateway calls and returns configurable
// responses.
type GatewayStub struct {
	mu sync.Mutex

	CreateSessionFn func(context.Context, gateway.SessionRequest) (*gateway.Session, error)
	ExpireSessionFn func(context.Context, string) error
	CreateRefundFn  func(context.Context, string, map[string]string) (string, error)
	ParseWebhookFn  func([]byte, string) (*gateway.WebhookEvent, error)

	Sessions []gateway.SessionRequest
	Expired  []string
	Refunded []string
}

// CreateSession records the request and returns a deterministic session.
func (s *GatewayStub) CreateSession(ctx context.Context, req gateway.SessionRequest) (*gateway.Session, error) {
	s.mu.Lock()
	s.Sessions = append(s.Sessions, req)
	n := len(s.Sessions)
	s.mu.Unlock()
	if s.CreateSessionFn != nil {
		return s.CreateSessionFn(ctx, req)
	}
	return &gateway.Session{
		ID:  fmt.Sprintf("cs_test_%d", n),
		URL: fmt.Sprintf("https://pay.example/cs_test_%d", n),
	}, nil
}

// ExpireSession records the expired session id.
func (s *GatewayStub) ExpireSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	s.Expired = append(s.Expired, sessionID)
	s.mu.Unlock()
	if s.ExpireSessionFn != nil {
		return s.ExpireSessionFn(ctx, sessionID)
	}
	return nil
}

// CreateRefund records the payment intent and returns a deterministic id.
func (s *GatewayStub) CreateRefund(ctx context.Context, paymentIntentID string, metadata map[string]string) (string, error) {
	s.mu.Lock()
	s.Refunded = append(s.Refunded, paymentIntentID)
	n := len(s.Refunded)
	s.mu.Unlock()
	if s.CreateRefundFn != nil {
		return s.CreateRefundFn(ctx, paymentIntentID, metadata)
	}
	return fmt.Sprintf("re_test_%d", n), nil
}

// ParseWebhook delegates to the override or fails.
func (s *GatewayStub) ParseWebhook(payload []byte, signature string) (*gateway.WebhookEvent, error) {
	if s.ParseWebhookFn != nil {
		return s.ParseWebhookFn(payload, signature)
	}
	return nil, gateway.ErrBadSignature
}
