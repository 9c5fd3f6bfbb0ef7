package conversion

import "time"

// Standard Meta conversion event names. AbandonCheckout is a custom
// conversion and has to be configured manually on the ad platform.
const (
	EventPurchase           = "Purchase"
	EventInitiateCheckout   = "InitiateCheckout"
	EventAbandonCheckout    = "AbandonCheckout"
	EventLead               = "Lead"
	EventSubscribe          = "Subscribe"
	EventRenewSubscription  = "RenewSubscription"
	EventCancelSubscription = "CancelSubscription"
	EventPaymentFailed      = "PaymentFailed"
	EventRefund             = "Refund"
)

// contentType is fixed whenever content ids are present.
const contentType = "product"

// Facts is what one dispatch branch extracts from an inbound event.
// Everything except EventName and ExternalID is optional.
type Facts struct {
	EventName   string
	ExternalID  string
	Email       string
	AmountMinor *int64
	Currency    string
	OrderID     string
	ContentIDs  []string
	NumItems    *int64
}

// RequestContext carries attribution metadata taken from the inbound
// HTTP request and configuration.
type RequestContext struct {
	ClientIP  string
	UserAgent string
	SourceURL string
}

// UserData holds privacy-safe user identifiers. Email is hashed
// before it is placed here; the raw value never leaves the process.
type UserData struct {
	Em              []string `json:"em,omitempty"`
	ClientIPAddress string   `json:"client_ip_address,omitempty"`
	ClientUserAgent string   `json:"client_user_agent,omitempty"`
}

// CustomData is populated field by field: absent values are omitted
// entirely because the Conversions API treats omission differently
// from an explicit null.
type CustomData struct {
	Currency    string   `json:"currency,omitempty"`
	Value       *float64 `json:"value,omitempty"`
	OrderID     string   `json:"order_id,omitempty"`
	ContentIDs  []string `json:"content_ids,omitempty"`
	NumItems    *int64   `json:"num_items,omitempty"`
	ContentType string   `json:"content_type,omitempty"`
}

// Payload is a single Conversions API event.
type Payload struct {
	EventName      string      `json:"event_name"`
	EventTime      int64       `json:"event_time"`
	ActionSource   string      `json:"action_source"`
	EventID        string      `json:"event_id,omitempty"`
	EventSourceURL string      `json:"event_source_url,omitempty"`
	UserData       *UserData   `json:"user_data,omitempty"`
	CustomData     *CustomData `json:"custom_data,omitempty"`
}

// BuildPayload assembles the outbound conversion event from extracted
// facts plus request context. EventTime is the build time, not the
// upstream event time: delivery happens promptly after receipt.
// ExternalID doubles as the dedup event_id so the platform can merge
// this server event with the matching pixel event.
func BuildPayload(facts Facts, rc RequestContext) Payload {
	payload := Payload{
		EventName:      facts.EventName,
		EventTime:      time.Now().Unix(),
		ActionSource:   "website",
		EventID:        facts.ExternalID,
		EventSourceURL: rc.SourceURL,
	}

	userData := &UserData{
		ClientIPAddress: rc.ClientIP,
		ClientUserAgent: rc.UserAgent,
	}
	if hashed := HashIdentifier(facts.Email); hashed != "" {
		userData.Em = []string{hashed}
	}
	payload.UserData = userData

	customData := &CustomData{}
	populated := false
	if facts.Currency != "" {
		customData.Currency = facts.Currency
		populated = true
	}
	if value := NormalizeAmount(facts.AmountMinor, facts.Currency); value != nil {
		customData.Value = value
		populated = true
	}
	if facts.OrderID != "" {
		customData.OrderID = facts.OrderID
		populated = true
	}
	if len(facts.ContentIDs) > 0 {
		customData.ContentIDs = facts.ContentIDs
		customData.ContentType = contentType
		populated = true
	}
	if facts.NumItems != nil {
		customData.NumItems = facts.NumItems
		populated = true
	}
	if populated {
		payload.CustomData = customData
	}

	return payload
}
