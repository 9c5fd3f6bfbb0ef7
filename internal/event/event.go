package event

import (
	"encoding/json"
	"fmt"
	"time"
)

// Type identifies a Stripe webhook event kind.
type Type string

const (
	CheckoutSessionCreated               Type = "checkout.session.created"
	CheckoutSessionCompleted             Type = "checkout.session.completed"
	CheckoutSessionAsyncPaymentSucceeded Type = "checkout.session.async_payment_succeeded"
	CheckoutSessionAsyncPaymentFailed    Type = "checkout.session.async_payment_failed"
	CheckoutSessionExpired               Type = "checkout.session.expired"
	PaymentIntentSucceeded               Type = "payment_intent.succeeded"
	PaymentIntentPaymentFailed           Type = "payment_intent.payment_failed"
	InvoicePaymentSucceeded              Type = "invoice.payment_succeeded"
	InvoicePaymentFailed                 Type = "invoice.payment_failed"
	CustomerCreated                      Type = "customer.created"
	SubscriptionCreated                  Type = "customer.subscription.created"
	SubscriptionUpdated                  Type = "customer.subscription.updated"
	SubscriptionDeleted                  Type = "customer.subscription.deleted"
	ChargeRefunded                       Type = "charge.refunded"
)

var recognizedTypes = map[Type]struct{}{
	CheckoutSessionCreated:               {},
	CheckoutSessionCompleted:             {},
	CheckoutSessionAsyncPaymentSucceeded: {},
	CheckoutSessionAsyncPaymentFailed:    {},
	CheckoutSessionExpired:               {},
	PaymentIntentSucceeded:               {},
	PaymentIntentPaymentFailed:           {},
	InvoicePaymentSucceeded:              {},
	InvoicePaymentFailed:                 {},
	CustomerCreated:                      {},
	SubscriptionCreated:                  {},
	SubscriptionUpdated:                  {},
	SubscriptionDeleted:                  {},
	ChargeRefunded:                       {},
}

// Recognized reports whether the relay maps this event kind to a
// conversion event. Unrecognized kinds are acknowledged and dropped.
func (t Type) Recognized() bool {
	_, ok := recognizedTypes[t]
	return ok
}

// InboundEvent is a verified, parsed webhook delivery. Object holds
// the raw data.object record; each dispatch branch decodes it into
// the minimal struct for its kind.
type InboundEvent struct {
	ID         string
	Type       Type
	Livemode   bool
	Object     json.RawMessage
	ReceivedAt time.Time
}

type envelope struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Livemode bool   `json:"livemode"`
	Data     struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// Parse decodes the webhook envelope. It must only be called after
// signature verification, on the same raw bytes that were verified.
func Parse(raw []byte) (*InboundEvent, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("failed to parse webhook envelope: %w", err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("webhook envelope has no event type")
	}

	return &InboundEvent{
		ID:         env.ID,
		Type:       Type(env.Type),
		Livemode:   env.Livemode,
		Object:     env.Data.Object,
		ReceivedAt: time.Now().UTC(),
	}, nil
}
