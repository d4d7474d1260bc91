package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/dmitrymomot/rankpay/svc/billing"
)

// SignatureHeader carries the Stripe webhook signature.
const SignatureHeader = "Stripe-Signature"

// ParseEvent verifies the Stripe signature and normalizes the event.
// Only the fields used by the billing handlers are decoded, so payloads of
// older or newer API versions are accepted.
func (p *Processor) ParseEvent(_ context.Context, payload []byte, header http.Header) (*billing.Event, error) {
	sig := normalize(header.Get(SignatureHeader))
	if sig == "" {
		return nil, fmt.Errorf("%w: missing %s header", billing.ErrSignatureInvalid, SignatureHeader)
	}

	event, err := webhook.ConstructEventWithOptions(payload, sig, p.config.WebhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, errors.Join(billing.ErrSignatureInvalid, err)
	}

	out := &billing.Event{
		ID:            event.ID,
		Type:          billing.EventIgnored,
		ProviderEvent: string(event.Type),
	}
	if event.Created > 0 {
		out.OccurredAt = time.Unix(event.Created, 0).UTC()
	}
	if event.Data == nil {
		return out, nil
	}
	raw := event.Data.Raw

	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		var s checkoutSession
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("decode checkout session: %w", err)
		}
		out.Type = billing.EventCheckoutCompleted
		out.SessionRef = s.ID
		out.SessionPaid = s.PaymentStatus == "paid" || s.PaymentStatus == "no_payment_required"
		out.SubscriptionRef = s.Subscription.ID
		out.ProviderID = s.providerID()

	case "customer.subscription.updated", "customer.subscription.deleted":
		var s subscription
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("decode subscription: %w", err)
		}
		out.Type = billing.EventSubscriptionUpdated
		if event.Type == "customer.subscription.deleted" {
			out.Type = billing.EventSubscriptionDeleted
		}
		out.SubscriptionRef = s.ID
		out.Status = s.Status

	case "invoice.payment_failed", "invoice.paid":
		var inv invoice
		if err := json.Unmarshal(raw, &inv); err != nil {
			return nil, fmt.Errorf("decode invoice: %w", err)
		}
		out.Type = billing.EventInvoicePaid
		if event.Type == "invoice.payment_failed" {
			out.Type = billing.EventInvoicePaymentFailed
		}
		out.SubscriptionRef = inv.subscriptionRef()
		if out.SubscriptionRef == "" {
			// One-off invoices are not part of the subscription lifecycle.
			out.Type = billing.EventIgnored
		}
	}

	return out, nil
}

type checkoutSession struct {
	ID                string            `json:"id"`
	PaymentStatus     string            `json:"payment_status"`
	Subscription      ref               `json:"subscription"`
	ClientReferenceID string            `json:"client_reference_id"`
	Metadata          map[string]string `json:"metadata"`
}

func (s checkoutSession) providerID() uuid.UUID {
	for _, v := range []string{s.ClientReferenceID, s.Metadata["provider_id"]} {
		if id, err := uuid.Parse(v); err == nil {
			return id
		}
	}
	return uuid.Nil
}

type subscription struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type invoice struct {
	ID           string `json:"id"`
	Subscription ref    `json:"subscription"`
	Parent       *struct {
		SubscriptionDetails *struct {
			Subscription ref `json:"subscription"`
		} `json:"subscription_details"`
	} `json:"parent"`
}

// subscriptionRef reads the subscription link from either the pre-2025
// top-level field or the newer parent details.
func (i invoice) subscriptionRef() string {
	if i.Subscription.ID != "" {
		return i.Subscription.ID
	}
	if i.Parent != nil && i.Parent.SubscriptionDetails != nil {
		return i.Parent.SubscriptionDetails.Subscription.ID
	}
	return ""
}

// ref is a Stripe object reference, delivered either as an id string or as
// an expanded object.
type ref struct {
	ID string
}

func (r *ref) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &r.ID)
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	r.ID = obj.ID
	return nil
}
