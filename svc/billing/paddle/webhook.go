package paddle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/rankpay/svc/billing"
)

// SignatureHeader carries the Paddle webhook signature.
const SignatureHeader = "Paddle-Signature"

// ParseEvent verifies the Paddle signature and normalizes the notification.
func (p *Processor) ParseEvent(ctx context.Context, payload []byte, header http.Header) (*billing.Event, error) {
	signature := header.Get(SignatureHeader)
	if signature == "" {
		return nil, fmt.Errorf("%w: missing %s header", billing.ErrSignatureInvalid, SignatureHeader)
	}

	// The SDK verifier works on requests.
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/webhook", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request for verification: %w", err)
	}
	req.Header.Set(SignatureHeader, signature)

	valid, err := p.verifier.Verify(req)
	if err != nil {
		return nil, errors.Join(billing.ErrSignatureInvalid, err)
	}
	if !valid {
		return nil, billing.ErrSignatureInvalid
	}

	var n notification
	if err := json.Unmarshal(payload, &n); err != nil {
		return nil, fmt.Errorf("failed to parse webhook payload: %w", err)
	}

	ev := &billing.Event{
		ID:            n.EventID,
		Type:          billing.EventIgnored,
		ProviderEvent: n.EventType,
	}
	if t, err := time.Parse(time.RFC3339, n.OccurredAt); err == nil {
		ev.OccurredAt = t.UTC()
	}

	switch n.EventType {
	case "transaction.completed":
		var txn transaction
		if err := json.Unmarshal(n.Data, &txn); err != nil {
			return nil, fmt.Errorf("decode transaction: %w", err)
		}
		ev.SubscriptionRef = txn.SubscriptionID
		switch txn.Origin {
		case "subscription_recurring", "subscription_payment_method_change":
			ev.Type = billing.EventInvoicePaid
		case "subscription_update", "subscription_charge":
			// Proration charges for an amount change already applied at checkout.
			ev.Type = billing.EventIgnored
		default:
			ev.Type = billing.EventCheckoutCompleted
			ev.SessionRef = txn.ID
			ev.SessionPaid = txn.Status == "completed" || txn.Status == "paid"
			ev.ProviderID = txn.providerID()
		}

	case "transaction.payment_failed", "transaction.past_due":
		var txn transaction
		if err := json.Unmarshal(n.Data, &txn); err != nil {
			return nil, fmt.Errorf("decode transaction: %w", err)
		}
		if txn.SubscriptionID != "" {
			ev.Type = billing.EventInvoicePaymentFailed
			ev.SubscriptionRef = txn.SubscriptionID
		}

	case "subscription.updated", "subscription.activated", "subscription.resumed",
		"subscription.past_due", "subscription.paused":
		var sub subscription
		if err := json.Unmarshal(n.Data, &sub); err != nil {
			return nil, fmt.Errorf("decode subscription: %w", err)
		}
		ev.Type = billing.EventSubscriptionUpdated
		ev.SubscriptionRef = sub.ID
		ev.Status = sub.Status

	case "subscription.canceled":
		var sub subscription
		if err := json.Unmarshal(n.Data, &sub); err != nil {
			return nil, fmt.Errorf("decode subscription: %w", err)
		}
		ev.Type = billing.EventSubscriptionDeleted
		ev.SubscriptionRef = sub.ID
		ev.Status = sub.Status
	}

	return ev, nil
}

type notification struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	OccurredAt string          `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

type transaction struct {
	ID             string         `json:"id"`
	Status         string         `json:"status"`
	Origin         string         `json:"origin"`
	SubscriptionID string         `json:"subscription_id"`
	CustomData     map[string]any `json:"custom_data"`
}

func (t transaction) providerID() uuid.UUID {
	v, _ := t.CustomData["provider_id"].(string)
	id, err := uuid.Parse(v)
	if err != nil {
		return uuid.Nil
	}
	return id
}

type subscription struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}
