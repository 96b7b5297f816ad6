package events

// Parking event types written to the outbox.
const (
	EventSessionStarted   = "session.started"
	EventSessionPaid      = "session.paid"
	EventSessionFinalized = "session.finalized"
	EventSessionCancelled = "session.cancelled"
	EventPlanPurchased    = "plan.purchased"
)

// SessionPayload captures the minimal data downstream consumers need to react
// to a session lifecycle event.
type SessionPayload struct {
	SessionID   string `json:"session_id"`
	UserID      string `json:"user_id"`
	LotID       string `json:"lot_id"`
	PaymentID   string `json:"payment_id,omitempty"`
	AmountCents int64  `json:"amount_cents,omitempty"`
}

// ToMap converts a payload into an outbox-friendly map.
func (p SessionPayload) ToMap() map[string]any {
	payload := map[string]any{
		"session_id": p.SessionID,
		"user_id":    p.UserID,
		"lot_id":     p.LotID,
	}
	if p.PaymentID != "" {
		payload["payment_id"] = p.PaymentID
	}
	if p.AmountCents != 0 {
		payload["amount_cents"] = p.AmountCents
	}
	return payload
}
