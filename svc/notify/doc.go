// Package notify delivers subscription notifications to external destinations.
//
// A Notification carries the confirmed amount, the resulting ranking points and
// the flattened listing flags of a provider's subscription. Destinations:
//
//   - WebhookNotifier posts a signed JSON payload with retries and a circuit breaker.
//   - EmailNotifier mails the provider through an email.EmailSender (Postmark in production).
//   - Multi fans out to several notifiers, Nop drops everything.
//
// Delivery is best-effort from the caller's point of view: errors are returned
// for logging and never change the outcome of the billing operation that
// produced the notification.
package notify
