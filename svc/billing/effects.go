package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/rankpay/pkg/async"
	"github.com/dmitrymomot/rankpay/pkg/logger"
	"github.com/dmitrymomot/rankpay/svc/notify"
	"github.com/dmitrymomot/rankpay/svc/provider"
)

// Dispatcher executes the effects of a transition once its row is persisted.
//
// Only provider validation can fail the triggering operation, so that a
// confirmed payment whose validation did not stick is redelivered by the
// processor. Score sync and processor cancellation failures are logged.
// Notifications run in the background and never report back.
type Dispatcher struct {
	providers provider.Repository
	notifier  notify.Notifier
	processor Processor
	settings
	tasks async.Group
}

// NewDispatcher creates a dispatcher. A nil notifier drops notifications;
// a nil processor makes cancellation effects fail with a log entry.
func NewDispatcher(providers provider.Repository, notifier notify.Notifier, processor Processor, opts ...Option) *Dispatcher {
	if providers == nil {
		panic("billing: provider repository is required")
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Dispatcher{
		providers: providers,
		notifier:  notifier,
		processor: processor,
		settings:  newSettings(opts),
	}
}

// Dispatch runs effects in order against the persisted row s.
func (d *Dispatcher) Dispatch(ctx context.Context, s Subscription, effects []Effect) error {
	var errs []error
	for _, e := range effects {
		switch e.Kind {
		case EffectValidateProvider:
			if err := d.validate(ctx, s.ProviderID); err != nil {
				d.failed(ctx, e, s, err)
				errs = append(errs, err)
			}
		case EffectSyncScore:
			if err := d.providers.SetAutoScore(ctx, s.ProviderID, s.TotalPoints); err != nil {
				d.failed(ctx, e, s, err)
			}
		case EffectCancelProcessorSubscription:
			if err := d.cancel(ctx, e.SubscriptionRef); err != nil {
				d.failed(ctx, e, s, err)
			}
		case EffectNotify:
			d.notify(ctx, s, e.Notification)
		default:
			d.failed(ctx, e, s, fmt.Errorf("unknown effect %q", e.Kind))
		}
	}
	return errors.Join(errs...)
}

// Wait blocks until every background notification has finished.
func (d *Dispatcher) Wait() {
	d.tasks.Wait()
}

func (d *Dispatcher) validate(ctx context.Context, providerID uuid.UUID) error {
	p, err := d.providers.Get(ctx, providerID)
	if errors.Is(err, provider.ErrNotFound) {
		d.log.WarnContext(ctx, "payment confirmed for unknown provider",
			logger.Component("billing.effects"),
			logger.ProviderID(providerID),
		)
		return nil
	}
	if err != nil {
		return errors.Join(ErrPersistence, err)
	}
	if p.Validated {
		return nil
	}
	if err := d.providers.MarkValidated(ctx, providerID); err != nil {
		return errors.Join(ErrPersistence, err)
	}
	d.log.InfoContext(ctx, "provider validated on confirmed payment",
		logger.Component("billing.effects"),
		logger.ProviderID(providerID),
	)
	return nil
}

func (d *Dispatcher) cancel(ctx context.Context, ref string) error {
	if d.processor == nil {
		return errors.New("billing: no processor configured")
	}
	ctx, cancel := context.WithTimeout(ctx, d.cfg.ProcessorTimeout)
	defer cancel()
	return d.processor.CancelSubscription(ctx, ref)
}

func (d *Dispatcher) notify(ctx context.Context, s Subscription, t notify.Type) {
	n := NotificationFor(s, t, d.now())
	d.tasks.Go(ctx, d.cfg.NotifyTimeout, func(ctx context.Context) error {
		if p, err := d.providers.Get(ctx, s.ProviderID); err == nil {
			n.Email = p.Email
		}
		return d.notifier.Notify(ctx, n)
	}, func(err error) {
		if err != nil {
			d.metrics.effectFailed(EffectNotify)
			d.log.WarnContext(ctx, "subscription notification failed",
				logger.Component("billing.effects"),
				logger.ProviderID(s.ProviderID),
				logger.EventType(string(t)),
				logger.Error(err),
			)
		}
	})
}

func (d *Dispatcher) failed(ctx context.Context, e Effect, s Subscription, err error) {
	d.metrics.effectFailed(e.Kind)
	d.log.ErrorContext(ctx, "billing effect failed",
		logger.Component("billing.effects"),
		logger.Effect(string(e.Kind)),
		logger.ProviderID(s.ProviderID),
		logger.SubscriptionID(s.ID),
		logger.Error(err),
	)
}

// NotificationFor describes the confirmed state of s.
func NotificationFor(s Subscription, t notify.Type, at time.Time) notify.Notification {
	amount := s.ConfirmedAmount()
	return notify.Notification{
		ID:              uuid.NewString(),
		Type:            t,
		ProviderID:      s.ProviderID,
		Amount:          amount,
		TotalPoints:     s.TotalPoints,
		IsFree:          amount == 0,
		BasicListing:    s.Flags.BasicListing,
		Partner:         s.Flags.Partner,
		PublishPhone:    s.Flags.PublishPhone,
		PublishWebsite:  s.Flags.PublishWebsite,
		BacklinkHome:    s.Flags.BacklinkHome,
		BacklinkProfile: s.Flags.BacklinkProfile,
		Timestamp:       at,
	}
}
