// Package billing implements the paid-ranking subscription state machine.
//
// A provider owns at most one Subscription. Its score (TotalPoints) is the
// points granted by the selected listing options plus the confirmed monthly
// amount, and the amount only counts while the payment status is healthy.
//
// Two paths change a subscription:
//
//   - Orchestrator.Checkout handles a provider's requested configuration. It
//     picks one of the checkout cases with the pure Decide function and either
//     completes the change directly or stages a pending amount and returns a
//     processor-hosted checkout URL.
//   - Router.Route verifies processor webhooks and passes normalized events to
//     the Reconciler, which confirms pending amounts and follows the
//     processor's subscription lifecycle.
//
// Only the webhook path turns a pending amount into a confirmed one, and only
// a confirmed payment validates the provider.
//
// Transitions are pure functions returning an Outcome: a Patch for the row and
// the Effects to run once it is persisted. Patches are conditional on the row
// version, so concurrent writers re-read and recompute instead of overwriting
// each other. The Dispatcher executes effects: provider validation, score
// sync, processor cancellation and notifications.
//
// Processor adapters live in the stripe and paddle subpackages; the PostgreSQL
// store lives in pgstore.
//
//	store := pgstore.New(pool)
//	dispatcher := billing.NewDispatcher(providers, notifier, processor, opts...)
//	checkout := billing.NewOrchestrator(store, providers, processor, dispatcher, opts...)
//	reconciler := billing.NewReconciler(store, processor, dispatcher, billing.NewRedisEventLog(rdb, ttl), opts...)
//	router := billing.NewRouter(processor, reconciler, opts...)
package billing
