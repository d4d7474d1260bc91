// Package paddle adapts Paddle Billing to the billing.Processor port.
//
// Checkout creates a monthly catalog price for the requested amount and a
// transaction for it; the transaction id is the session reference reported
// back by transaction.completed. Renewals (transaction.completed with a
// subscription_recurring origin) map to billing.EventInvoicePaid, and
// subscription.* notifications map to the subscription lifecycle events.
//
// Webhooks are verified with the SDK's WebhookVerifier against the
// notification destination secret.
package paddle
