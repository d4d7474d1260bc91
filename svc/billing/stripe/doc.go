// Package stripe adapts Stripe Billing to the billing.Processor port.
//
// Checkout uses subscription-mode Checkout Sessions with inline monthly
// prices; amount changes create a new price and swap it on the subscription's
// single item with prorations. Webhooks are verified with the endpoint
// secret before decoding:
//
//	checkout.session.completed       -> billing.EventCheckoutCompleted
//	customer.subscription.updated    -> billing.EventSubscriptionUpdated
//	customer.subscription.deleted    -> billing.EventSubscriptionDeleted
//	invoice.payment_failed           -> billing.EventInvoicePaymentFailed
//	invoice.paid                     -> billing.EventInvoicePaid
//
// Every other event type is returned as billing.EventIgnored.
package stripe
