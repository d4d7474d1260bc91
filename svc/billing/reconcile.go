package billing

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/dmitrymomot/rankpay/pkg/logger"
)

// Reconciler applies verified processor events to the subscription store.
//
// Every handler reads the row, computes a pure Outcome, writes it with a
// version check and dispatches the effects. A concurrent write makes the
// handler re-read and recompute. Events for unknown subscriptions and events
// whose transition is not allowed in the row's phase succeed without effect,
// except paid checkouts of superseded sessions, whose processor subscription
// is cancelled.
type Reconciler struct {
	store      Store
	processor  Processor
	dispatcher *Dispatcher
	events     EventLog
	lifecycle  *Lifecycle
	settings
}

// NewReconciler creates a reconciler. A nil event log falls back to an
// in-memory log with the configured TTL.
func NewReconciler(store Store, processor Processor, dispatcher *Dispatcher, events EventLog, opts ...Option) *Reconciler {
	if store == nil {
		panic("billing: store is required")
	}
	if processor == nil {
		panic("billing: processor is required")
	}
	if dispatcher == nil {
		panic("billing: dispatcher is required")
	}
	s := newSettings(opts)
	if events == nil {
		events = NewMemoryEventLog(s.cfg.EventLogTTL)
	}
	return &Reconciler{
		store:      store,
		processor:  processor,
		dispatcher: dispatcher,
		events:     events,
		lifecycle:  NewLifecycle(),
		settings:   s,
	}
}

// Handle processes one event. A returned error means the processor should
// redeliver the event.
func (r *Reconciler) Handle(ctx context.Context, ev *Event) error {
	if ev == nil || ev.Type == EventIgnored {
		r.metrics.event(EventIgnored, "ignored")
		return nil
	}

	log := r.log.With(
		logger.Component("billing.reconcile"),
		logger.EventType(string(ev.Type)),
		logger.EventID(ev.ID),
	)

	if ev.ID != "" {
		seen, err := r.events.Seen(ctx, ev.ID)
		if err != nil {
			log.WarnContext(ctx, "event log lookup failed, processing anyway", logger.Error(err))
		}
		if seen {
			r.metrics.event(ev.Type, "duplicate")
			log.DebugContext(ctx, "event already processed")
			return nil
		}
	}

	if err := r.route(ctx, ev); err != nil {
		r.metrics.event(ev.Type, "failed")
		log.ErrorContext(ctx, "event processing failed", logger.Error(err))
		return err
	}

	if ev.ID != "" {
		if err := r.events.Mark(ctx, ev.ID); err != nil {
			log.WarnContext(ctx, "failed to record processed event", logger.Error(err))
		}
	}
	r.metrics.event(ev.Type, "processed")
	return nil
}

func (r *Reconciler) route(ctx context.Context, ev *Event) error {
	switch ev.Type {
	case EventCheckoutCompleted:
		return r.checkoutCompleted(ctx, ev)
	case EventSubscriptionUpdated:
		status, ok := MapProcessorStatus(ev.Status)
		if ok && status.IsDegraded() {
			return r.degrade(ctx, ev, status)
		}
		return r.recover(ctx, ev, true)
	case EventSubscriptionDeleted:
		return r.apply(ctx, ev, r.bySubscriptionRef(ev), func(s Subscription) (LifecycleEvent, Outcome) {
			return LifecycleCancel, CancelSubscription(s)
		})
	case EventInvoicePaymentFailed:
		return r.degrade(ctx, ev, StatusFailed)
	case EventInvoicePaid:
		return r.recover(ctx, ev, false)
	default:
		return nil
	}
}

func (r *Reconciler) checkoutCompleted(ctx context.Context, ev *Event) error {
	if !ev.SessionPaid {
		r.log.InfoContext(ctx, "checkout completed without payment, subscription stays pending",
			logger.Component("billing.reconcile"),
			logger.ExternalRef(ev.SessionRef),
		)
		return nil
	}
	if ev.SubscriptionRef == "" {
		r.log.ErrorContext(ctx, "paid checkout carries no processor subscription",
			logger.Component("billing.reconcile"),
			logger.ExternalRef(ev.SessionRef),
		)
		return nil
	}

	find := func(ctx context.Context) (*Subscription, error) {
		s, err := r.store.FindBySessionRef(ctx, ev.SessionRef)
		if errors.Is(err, ErrNotFound) {
			return r.store.FindBySubscriptionRef(ctx, ev.SubscriptionRef)
		}
		return s, err
	}

	current, err := find(ctx)
	if errors.Is(err, ErrNotFound) {
		return r.supersededCheckout(ctx, ev)
	}
	if err != nil {
		return err
	}

	conf := Confirmation{SessionRef: ev.SessionRef, SubscriptionRef: ev.SubscriptionRef}
	if current.ExternalSessionRef == ev.SessionRef && current.HasPending() {
		ps, err := r.getSubscription(ctx, ev.SubscriptionRef)
		if err != nil {
			return err
		}
		conf.RenewalDay = ps.RenewalDay()
	}

	return r.apply(ctx, ev, find, func(s Subscription) (LifecycleEvent, Outcome) {
		return LifecycleConfirm, ConfirmCheckout(s, conf)
	})
}

// supersededCheckout cancels the processor subscription of a paid session that
// no row references any more: the provider opened a newer checkout or went
// free before paying this one. Sessions are only handed out after their row
// is written, so an unmatched session of a known provider is never the
// provider's current one.
func (r *Reconciler) supersededCheckout(ctx context.Context, ev *Event) error {
	log := r.log.With(
		logger.Component("billing.reconcile"),
		logger.ExternalRef(ev.SessionRef),
		slog.String("subscription_ref", ev.SubscriptionRef),
	)
	if ev.ProviderID == uuid.Nil {
		log.WarnContext(ctx, "paid checkout matches no subscription")
		return nil
	}
	log = log.With(logger.ProviderID(ev.ProviderID))

	ps, err := r.getSubscription(ctx, ev.SubscriptionRef)
	if err != nil {
		return err
	}
	if status, ok := MapProcessorStatus(ps.Status); ok && status == StatusCancelled {
		log.DebugContext(ctx, "superseded checkout already cancelled")
		return nil
	}

	log.WarnContext(ctx, "paid checkout was superseded, cancelling its processor subscription")
	if err := r.dispatcher.cancel(ctx, ev.SubscriptionRef); err != nil {
		r.metrics.effectFailed(EffectCancelProcessorSubscription)
		return external(err)
	}
	return nil
}

func (r *Reconciler) degrade(ctx context.Context, ev *Event, status Status) error {
	return r.apply(ctx, ev, r.bySubscriptionRef(ev), func(s Subscription) (LifecycleEvent, Outcome) {
		return LifecycleDegrade, Degrade(s, status)
	})
}

// recover restores a degraded row once the processor reports its subscription
// healthy. The live status is fetched so that a stale healthy event delivered
// after a failure cannot undo the degradation.
func (r *Reconciler) recover(ctx context.Context, ev *Event, renotify bool) error {
	find := r.bySubscriptionRef(ev)
	current, err := find(ctx)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	healthy := false
	if current.PaymentStatus.IsDegraded() {
		ps, err := r.getSubscription(ctx, ev.SubscriptionRef)
		if err != nil {
			return err
		}
		status, ok := MapProcessorStatus(ps.Status)
		healthy = ok && status.IsHealthy()
	}

	return r.apply(ctx, ev, find, func(s Subscription) (LifecycleEvent, Outcome) {
		if healthy && s.PaymentStatus.IsDegraded() {
			return LifecycleRecover, Recover(s)
		}
		if !renotify {
			return LifecycleRefresh, Outcome{}
		}
		return LifecycleRefresh, Refresh(s)
	})
}

func (r *Reconciler) bySubscriptionRef(ev *Event) func(context.Context) (*Subscription, error) {
	return func(ctx context.Context) (*Subscription, error) {
		return r.store.FindBySubscriptionRef(ctx, ev.SubscriptionRef)
	}
}

func (r *Reconciler) getSubscription(ctx context.Context, ref string) (*ProcessorSubscription, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ProcessorTimeout)
	defer cancel()
	return r.processor.GetSubscription(ctx, ref)
}

// apply runs one read-decide-write-dispatch cycle, retrying on stale versions.
func (r *Reconciler) apply(
	ctx context.Context,
	ev *Event,
	find func(context.Context) (*Subscription, error),
	decide func(Subscription) (LifecycleEvent, Outcome),
) error {
	backoff := retry.WithMaxRetries(r.cfg.StoreRetryAttempts, retry.NewExponential(r.cfg.StoreRetryInterval))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		current, err := find(ctx)
		if errors.Is(err, ErrNotFound) {
			r.log.DebugContext(ctx, "no subscription matches event",
				logger.Component("billing.reconcile"),
				logger.EventType(string(ev.Type)),
				logger.ExternalRef(ev.SubscriptionRef),
			)
			return nil
		}
		if err != nil {
			return err
		}

		le, out := decide(*current)
		if out.IsNoop() {
			return nil
		}
		if _, err := r.lifecycle.Check(ctx, current, le); err != nil {
			r.log.WarnContext(ctx, "event skipped in current subscription phase",
				logger.Component("billing.reconcile"),
				logger.EventType(string(ev.Type)),
				logger.SubscriptionID(current.ID),
				logger.Error(err),
			)
			return nil
		}

		updated := current
		if diff := out.Patch.Diff(*current); !diff.IsEmpty() {
			if err := checkPatch(*current, diff); err != nil {
				return err
			}
			updated, err = r.store.Update(ctx, current.ID, diff)
			if errors.Is(err, ErrStale) {
				return retry.RetryableError(err)
			}
			if err != nil {
				return err
			}
		}

		r.log.InfoContext(ctx, "subscription reconciled",
			logger.Component("billing.reconcile"),
			logger.EventType(string(ev.Type)),
			logger.SubscriptionID(updated.ID),
			logger.ProviderID(updated.ProviderID),
			slog.String("payment_status", string(updated.PaymentStatus)),
		)
		return r.dispatcher.Dispatch(ctx, *updated, out.Effects)
	})
}
