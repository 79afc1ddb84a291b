package billing

import (
	"encoding/json"
	"errors"

	"photofix-api/pkg/utils"
)

// Webhook event types handled by the API. Anything else is acknowledged and
// ignored.
const (
	EventCheckoutCompleted = "checkout.session.completed"
	EventPaymentFailed     = "payment.failed"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw request body.
const SignatureHeader = "X-Billing-Signature"

var (
	ErrMissingSignature = errors.New("missing webhook signature")
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// Event is a payment provider webhook event.
type Event struct {
	ID   string    `json:"id"`
	Type string    `json:"type"`
	Data EventData `json:"data"`
}

// EventData carries the session the event refers to. Reference is the order
// ID we supplied when creating the session.
type EventData struct {
	SessionID string `json:"session_id"`
	Reference string `json:"reference"`
	Reason    string `json:"reason,omitempty"`
}

// ParseEvent verifies the signature over the raw body and decodes the event.
// Verification happens before any decoding so a forged payload is rejected
// without being interpreted.
func ParseEvent(body []byte, signature, secret string) (*Event, error) {
	if signature == "" {
		return nil, ErrMissingSignature
	}
	if !utils.VerifySignature(body, signature, secret) {
		return nil, ErrInvalidSignature
	}

	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, err
	}
	if event.ID == "" || event.Type == "" {
		return nil, errors.New("webhook event missing id or type")
	}

	return &event, nil
}
