package event

import (
	"encoding/json"
	"fmt"
)

// Per-kind views of the webhook data.object record. Each struct
// carries only the fields its dispatch branch reads; absence stays
// an explicit nil/empty value instead of a chained lookup.

type CheckoutSession struct {
	ID              string           `json:"id"`
	AmountTotal     *int64           `json:"amount_total"`
	Currency        string           `json:"currency"`
	PaymentIntent   string           `json:"payment_intent"`
	CustomerDetails *CustomerDetails `json:"customer_details"`
}

type CustomerDetails struct {
	Email string `json:"email"`
}

type PaymentIntent struct {
	ID       string `json:"id"`
	Amount   *int64 `json:"amount"`
	Currency string `json:"currency"`
	// Charges is populated on payment_intent webhook payloads and
	// carries the billing email for failed payments.
	Charges *ChargeList `json:"charges"`
}

type ChargeList struct {
	Data []Charge `json:"data"`
}

type Charge struct {
	ID             string          `json:"id"`
	AmountRefunded *int64          `json:"amount_refunded"`
	Currency       string          `json:"currency"`
	PaymentIntent  string          `json:"payment_intent"`
	BillingDetails *BillingDetails `json:"billing_details"`
}

type BillingDetails struct {
	Email string `json:"email"`
}

type Invoice struct {
	ID            string `json:"id"`
	AmountPaid    *int64 `json:"amount_paid"`
	Currency      string `json:"currency"`
	CustomerEmail string `json:"customer_email"`
	Subscription  string `json:"subscription"`
}

type Customer struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type Subscription struct {
	ID     string                `json:"id"`
	Status string                `json:"status"`
	Items  *SubscriptionItemList `json:"items"`
}

type SubscriptionItemList struct {
	Data []SubscriptionItem `json:"data"`
}

type SubscriptionItem struct {
	Price *Price `json:"price"`
}

type Price struct {
	UnitAmount *int64 `json:"unit_amount"`
	Currency   string `json:"currency"`
}

// FirstItemPrice returns the unit price of the first subscription
// item, or nil when the subscription has no priced items.
func (s *Subscription) FirstItemPrice() (*int64, string) {
	if s.Items == nil || len(s.Items.Data) == 0 {
		return nil, ""
	}
	price := s.Items.Data[0].Price
	if price == nil {
		return nil, ""
	}
	return price.UnitAmount, price.Currency
}

// FirstChargeEmail returns the billing email from the first charge
// attached to a payment intent payload, or "" when absent.
func (p *PaymentIntent) FirstChargeEmail() string {
	if p.Charges == nil || len(p.Charges.Data) == 0 {
		return ""
	}
	if p.Charges.Data[0].BillingDetails == nil {
		return ""
	}
	return p.Charges.Data[0].BillingDetails.Email
}

// DecodeObject unmarshals the event's raw data.object into the given
// per-kind struct.
func (e *InboundEvent) DecodeObject(dst any) error {
	if len(e.Object) == 0 {
		return fmt.Errorf("event %s has no data.object", e.Type)
	}
	if err := json.Unmarshal(e.Object, dst); err != nil {
		return fmt.Errorf("failed to decode %s object: %w", e.Type, err)
	}
	return nil
}
