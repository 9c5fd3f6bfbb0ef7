package mapper

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/shreedharh-spec/stripe-fb-conversion-tracker/internal/conversion"
	"github.com/shreedharh-spec/stripe-fb-conversion-tracker/internal/event"
	"github.com/shreedharh-spec/stripe-fb-conversion-tracker/internal/provider"
)

// Subscription statuses that map to a conversion event. Any other
// status on customer.subscription.updated is an explicit no-op.
const (
	statusActive  = "active"
	statusPastDue = "past_due"
)

// Mapper translates a verified inbound event into the facts a
// conversion payload is built from. Branches that need richer data
// than the webhook payload carries block on a provider re-fetch.
type Mapper struct {
	provider provider.Client
	logger   *zap.Logger
}

func New(providerClient provider.Client, logger *zap.Logger) *Mapper {
	return &Mapper{
		provider: providerClient,
		logger:   logger,
	}
}

// Extract dispatches on the event kind. A nil Facts with a nil error
// means the event is a deliberate no-op: acknowledged and dropped.
func (m *Mapper) Extract(ctx context.Context, evt *event.InboundEvent) (*conversion.Facts, error) {
	switch evt.Type {
	case event.CheckoutSessionCreated:
		return m.checkoutSessionCreated(evt)
	case event.CheckoutSessionCompleted, event.CheckoutSessionAsyncPaymentSucceeded:
		return m.checkoutSessionCompleted(ctx, evt)
	case event.CheckoutSessionExpired, event.CheckoutSessionAsyncPaymentFailed:
		return m.checkoutSessionAbandoned(evt)
	case event.PaymentIntentSucceeded:
		return m.paymentIntentSucceeded(ctx, evt)
	case event.PaymentIntentPaymentFailed:
		return m.paymentIntentFailed(evt)
	case event.InvoicePaymentSucceeded:
		return m.invoicePaymentSucceeded(evt)
	case event.InvoicePaymentFailed:
		return m.invoicePaymentFailed(evt)
	case event.CustomerCreated:
		return m.customerCreated(evt)
	case event.SubscriptionCreated:
		return m.subscriptionCreated(evt)
	case event.SubscriptionUpdated:
		return m.subscriptionUpdated(evt)
	case event.SubscriptionDeleted:
		return m.subscriptionDeleted(evt)
	case event.ChargeRefunded:
		return m.chargeRefunded(evt)
	default:
		m.logger.Debug("Unrecognized event type, dropping",
			zap.String("event_type", string(evt.Type)),
			zap.String("event_id", evt.ID),
		)
		return nil, nil
	}
}

func (m *Mapper) checkoutSessionCreated(evt *event.InboundEvent) (*conversion.Facts, error) {
	var session event.CheckoutSession
	if err := evt.DecodeObject(&session); err != nil {
		return nil, err
	}

	facts := &conversion.Facts{
		EventName:   conversion.EventInitiateCheckout,
		ExternalID:  session.ID,
		AmountMinor: session.AmountTotal,
		Currency:    currencyCode(session.Currency),
	}
	if session.CustomerDetails != nil {
		facts.Email = session.CustomerDetails.Email
	}
	return facts, nil
}

// checkoutSessionCompleted re-fetches the full session: the webhook
// payload does not carry line items, and email and payment intent may
// only be resolved there. The re-fetch is a blocking dependency; on
// failure the whole event aborts.
func (m *Mapper) checkoutSessionCompleted(ctx context.Context, evt *event.InboundEvent) (*conversion.Facts, error) {
	var stub event.CheckoutSession
	if err := evt.DecodeObject(&stub); err != nil {
		return nil, err
	}

	session, err := m.provider.GetCheckoutSession(ctx, stub.ID)
	if err != nil {
		return nil, fmt.Errorf("re-fetch for %s: %w", evt.Type, err)
	}

	contentIDs, numItems := collectLineItems(session.LineItems)
	return &conversion.Facts{
		EventName:   conversion.EventPurchase,
		ExternalID:  session.ID,
		Email:       session.Email(),
		AmountMinor: session.AmountTotal,
		Currency:    currencyCode(session.Currency),
		OrderID:     session.PaymentIntent,
		ContentIDs:  contentIDs,
		NumItems:    numItems,
	}, nil
}

func (m *Mapper) checkoutSessionAbandoned(evt *event.InboundEvent) (*conversion.Facts, error) {
	var session event.CheckoutSession
	if err := evt.DecodeObject(&session); err != nil {
		return nil, err
	}

	facts := &conversion.Facts{
		EventName:   conversion.EventAbandonCheckout,
		ExternalID:  session.ID,
		AmountMinor: session.AmountTotal,
		Currency:    currencyCode(session.Currency),
	}
	if session.CustomerDetails != nil {
		facts.Email = session.CustomerDetails.Email
	}
	return facts, nil
}

// paymentIntentSucceeded re-fetches with the latest charge expanded
// because the billing email lives on the charge, not the intent.
func (m *Mapper) paymentIntentSucceeded(ctx context.Context, evt *event.InboundEvent) (*conversion.Facts, error) {
	var stub event.PaymentIntent
	if err := evt.DecodeObject(&stub); err != nil {
		return nil, err
	}

	intent, err := m.provider.GetPaymentIntent(ctx, stub.ID)
	if err != nil {
		return nil, fmt.Errorf("re-fetch for %s: %w", evt.Type, err)
	}

	return &conversion.Facts{
		EventName:   conversion.EventPurchase,
		ExternalID:  intent.ID,
		Email:       intent.Email(),
		AmountMinor: intent.Amount,
		Currency:    currencyCode(intent.Currency),
		OrderID:     intent.ID,
	}, nil
}

func (m *Mapper) paymentIntentFailed(evt *event.InboundEvent) (*conversion.Facts, error) {
	var intent event.PaymentIntent
	if err := evt.DecodeObject(&intent); err != nil {
		return nil, err
	}

	return &conversion.Facts{
		EventName:  conversion.EventPaymentFailed,
		ExternalID: intent.ID,
		Email:      intent.FirstChargeEmail(),
	}, nil
}

// invoicePaymentSucceeded covers subscription revenue; the email is
// read directly off the invoice, no re-fetch needed.
func (m *Mapper) invoicePaymentSucceeded(evt *event.InboundEvent) (*conversion.Facts, error) {
	var invoice event.Invoice
	if err := evt.DecodeObject(&invoice); err != nil {
		return nil, err
	}

	return &conversion.Facts{
		EventName:   conversion.EventPurchase,
		ExternalID:  invoice.ID,
		Email:       invoice.CustomerEmail,
		AmountMinor: invoice.AmountPaid,
		Currency:    currencyCode(invoice.Currency),
		OrderID:     invoice.ID,
	}, nil
}

func (m *Mapper) invoicePaymentFailed(evt *event.InboundEvent) (*conversion.Facts, error) {
	var invoice event.Invoice
	if err := evt.DecodeObject(&invoice); err != nil {
		return nil, err
	}

	return &conversion.Facts{
		EventName:  conversion.EventPaymentFailed,
		ExternalID: invoice.ID,
		Email:      invoice.CustomerEmail,
	}, nil
}

func (m *Mapper) customerCreated(evt *event.InboundEvent) (*conversion.Facts, error) {
	var customer event.Customer
	if err := evt.DecodeObject(&customer); err != nil {
		return nil, err
	}

	return &conversion.Facts{
		EventName:  conversion.EventLead,
		ExternalID: customer.ID,
		Email:      customer.Email,
	}, nil
}

func (m *Mapper) subscriptionCreated(evt *event.InboundEvent) (*conversion.Facts, error) {
	var sub event.Subscription
	if err := evt.DecodeObject(&sub); err != nil {
		return nil, err
	}

	unitAmount, currency := sub.FirstItemPrice()
	return &conversion.Facts{
		EventName:   conversion.EventSubscribe,
		ExternalID:  sub.ID,
		AmountMinor: unitAmount,
		Currency:    currencyCode(currency),
	}, nil
}

func (m *Mapper) subscriptionUpdated(evt *event.InboundEvent) (*conversion.Facts, error) {
	var sub event.Subscription
	if err := evt.DecodeObject(&sub); err != nil {
		return nil, err
	}

	switch sub.Status {
	case statusActive:
		unitAmount, currency := sub.FirstItemPrice()
		return &conversion.Facts{
			EventName:   conversion.EventRenewSubscription,
			ExternalID:  sub.ID,
			AmountMinor: unitAmount,
			Currency:    currencyCode(currency),
		}, nil
	case statusPastDue:
		return &conversion.Facts{
			EventName:  conversion.EventPaymentFailed,
			ExternalID: sub.ID,
		}, nil
	default:
		// Statuses like canceled or incomplete have no conversion
		// mapping; skip rather than send an empty-named event.
		m.logger.Warn("Unhandled subscription status, skipping event",
			zap.String("subscription_id", sub.ID),
			zap.String("status", sub.Status),
		)
		return nil, nil
	}
}

func (m *Mapper) subscriptionDeleted(evt *event.InboundEvent) (*conversion.Facts, error) {
	var sub event.Subscription
	if err := evt.DecodeObject(&sub); err != nil {
		return nil, err
	}

	return &conversion.Facts{
		EventName:  conversion.EventCancelSubscription,
		ExternalID: sub.ID,
	}, nil
}

func (m *Mapper) chargeRefunded(evt *event.InboundEvent) (*conversion.Facts, error) {
	var charge event.Charge
	if err := evt.DecodeObject(&charge); err != nil {
		return nil, err
	}

	facts := &conversion.Facts{
		EventName:   conversion.EventRefund,
		ExternalID:  charge.ID,
		AmountMinor: charge.AmountRefunded,
		Currency:    currencyCode(charge.Currency),
		OrderID:     charge.PaymentIntent,
	}
	if charge.BillingDetails != nil {
		facts.Email = charge.BillingDetails.Email
	}
	return facts, nil
}

// collectLineItems sums quantities across all line items and gathers
// each item's product identifier, skipping items without one.
func collectLineItems(items *provider.LineItemList) ([]string, *int64) {
	if items == nil || len(items.Data) == 0 {
		return nil, nil
	}

	var contentIDs []string
	var total int64
	for _, item := range items.Data {
		total += item.Quantity
		if item.Price != nil && item.Price.Product != "" {
			contentIDs = append(contentIDs, item.Price.Product)
		}
	}
	return contentIDs, &total
}

// currencyCode uppercases Stripe's lowercase currency codes for the
// outbound payload.
func currencyCode(currency string) string {
	return strings.ToUpper(currency)
}
