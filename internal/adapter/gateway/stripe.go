package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/checkout/session"
	"github.com/stripe/stripe-go/v80/refund"
	"github.com/stripe/stripe-go/v80/webhook"
)

// StripeClient implements Client on top of Stripe hosted checkout.
type StripeClient struct {
	webhookSecret string
	callTimeout   time.Duration
	logger        *slog.Logger
}

// NewStripeClient configures the Stripe SDK and returns the client.
// callTimeout bounds every outbound API call independently of the caller's
// context, so a stalled gateway cannot hold a checkout lock past its TTL.
func NewStripeClient(secretKey, webhookSecret string, callTimeout time.Duration, logger *slog.Logger) *StripeClient {
	stripe.Key = secretKey
	return &StripeClient{webhookSecret: webhookSecret, callTimeout: callTimeout, logger: logger}
}

func (c *StripeClient) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.callTimeout)
}

// CreateSession opens a hosted checkout session for a single line item.
// Metadata is attached to both the session and its payment intent so every
// later webhook, including refund updates on the charge, can correlate back.
func (c *StripeClient) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(req.Currency),
					UnitAmount: stripe.Int64(req.Amount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.Title),
					},
				},
			},
		},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: req.Metadata,
		},
	}
	callCtx, cancel := c.callContext(ctx)
	defer cancel()
	params.Context = callCtx
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	sess, err := session.New(params)
	if err != nil {
		return nil, &Error{Op: "create session", Err: err}
	}
	return &Session{ID: sess.ID, URL: sess.URL}, nil
}

// ExpireSession invalidates a previously created checkout session.
func (c *StripeClient) ExpireSession(ctx context.Context, sessionID string) error {
	params := &stripe.CheckoutSessionExpireParams{}
	callCtx, cancel := c.callContext(ctx)
	defer cancel()
	params.Context = callCtx
	if _, err := session.Expire(sessionID, params); err != nil {
		return &Error{Op: "expire session", Err: err}
	}
	return nil
}

// CreateRefund starts an asynchronous refund of the full charge. The outcome
// arrives later through the refund webhook.
func (c *StripeClient) CreateRefund(ctx context.Context, paymentIntentID string, metadata map[string]string) (string, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(paymentIntentID),
	}
	callCtx, cancel := c.callContext(ctx)
	defer cancel()
	params.Context = callCtx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	ref, err := refund.New(params)
	if err != nil {
		return "", &Error{Op: "create refund", Err: err}
	}
	return ref.ID, nil
}

// ParseWebhook verifies the event signature and normalizes the payload.
func (c *StripeClient) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEvent(payload, signature, c.webhookSecret)
	if err != nil {
		return nil, ErrBadSignature
	}

	switch event.Type {
	case "checkout.session.completed", "checkout.session.expired":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return nil, &Error{Op: "decode session event", Err: err}
		}
		ev := &WebhookEvent{
			Type:        EventCheckoutCompleted,
			SessionID:   sess.ID,
			PurchaseID:  sess.Metadata[MetadataPurchaseID],
			OrderNumber: sess.Metadata[MetadataOrderNumber],
			UserID:      sess.Metadata[MetadataUserID],
		}
		if event.Type == "checkout.session.expired" {
			ev.Type = EventCheckoutExpired
		}
		if sess.PaymentIntent != nil {
			ev.PaymentIntentID = sess.PaymentIntent.ID
		}
		return ev, nil
	case "payment_intent.payment_failed":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, &Error{Op: "decode payment intent event", Err: err}
		}
		ev := &WebhookEvent{
			Type:            EventPaymentFailed,
			PaymentIntentID: pi.ID,
			PurchaseID:      pi.Metadata[MetadataPurchaseID],
			OrderNumber:     pi.Metadata[MetadataOrderNumber],
			UserID:          pi.Metadata[MetadataUserID],
		}
		if pi.LastPaymentError != nil {
			ev.FailureReason = pi.LastPaymentError.Msg
		}
		return ev, nil
	case "charge.refund.updated":
		var ref stripe.Refund
		if err := json.Unmarshal(event.Data.Raw, &ref); err != nil {
			return nil, &Error{Op: "decode refund event", Err: err}
		}
		ev := &WebhookEvent{
			Type:          EventRefundUpdated,
			RefundID:      ref.ID,
			RefundStatus:  RefundStatus(ref.Status),
			Amount:        ref.Amount,
			FailureReason: string(ref.FailureReason),
			PurchaseID:    ref.Metadata[MetadataPurchaseID],
			OrderNumber:   ref.Metadata[MetadataOrderNumber],
			UserID:        ref.Metadata[MetadataUserID],
		}
		if ref.PaymentIntent != nil {
			ev.PaymentIntentID = ref.PaymentIntent.ID
		}
		return ev, nil
	default:
		c.logger.Info("ignoring webhook event", slog.String("type", string(event.Type)))
		return &WebhookEvent{Type: EventUnknown}, nil
	}
}
