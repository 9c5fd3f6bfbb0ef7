package provider

// Session is a re-fetched checkout session, richer than the webhook
// payload: it carries the customer email, the resolved payment intent
// id, and expanded line items.
type Session struct {
	ID              string           `json:"id"`
	AmountTotal     *int64           `json:"amount_total"`
	Currency        string           `json:"currency"`
	PaymentIntent   string           `json:"payment_intent"`
	CustomerDetails *CustomerDetails `json:"customer_details"`
	LineItems       *LineItemList    `json:"line_items"`
}

type CustomerDetails struct {
	Email string `json:"email"`
}

type LineItemList struct {
	Data []LineItem `json:"data"`
}

type LineItem struct {
	Quantity int64  `json:"quantity"`
	Price    *Price `json:"price"`
}

type Price struct {
	Product string `json:"product"`
}

// Email returns the session's customer email, or "" when absent.
func (s *Session) Email() string {
	if s.CustomerDetails == nil {
		return ""
	}
	return s.CustomerDetails.Email
}

// PaymentIntent is a re-fetched payment intent with its latest charge
// expanded.
type PaymentIntent struct {
	ID           string  `json:"id"`
	Amount       *int64  `json:"amount"`
	Currency     string  `json:"currency"`
	LatestCharge *Charge `json:"latest_charge"`
}

type Charge struct {
	ID             string          `json:"id"`
	BillingDetails *BillingDetails `json:"billing_details"`
}

type BillingDetails struct {
	Email string `json:"email"`
}

// Email returns the billing email of the latest charge, or "".
func (p *PaymentIntent) Email() string {
	if p.LatestCharge == nil || p.LatestCharge.BillingDetails == nil {
		return ""
	}
	return p.LatestCharge.BillingDetails.Email
}
