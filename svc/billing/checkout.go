package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/dmitrymomot/rankpay/pkg/logger"
	"github.com/dmitrymomot/rankpay/svc/notify"
	"github.com/dmitrymomot/rankpay/svc/provider"
)

// CheckoutRequest is a provider's requested subscription configuration.
type CheckoutRequest struct {
	ProviderID uuid.UUID `json:"providerId"`
	Amount     int64     `json:"amount"`
	Flags      Flags     `json:"subscriptionFlags"`
	CancelURL  string    `json:"cancelUrl"`
}

// CheckoutResult tells the caller where to send the provider next.
// Deferred results point at a processor-hosted checkout page; the change is
// confirmed later by the webhook path.
type CheckoutResult struct {
	URL      string `json:"url"`
	Case     Case   `json:"-"`
	Deferred bool   `json:"-"`
}

// Orchestrator executes checkout requests.
//
// It never marks a paid amount as confirmed except for amount changes on an
// already active processor subscription. New paid amounts are staged as
// pending and confirmed by the reconciler.
type Orchestrator struct {
	store      Store
	providers  provider.Repository
	processor  Processor
	dispatcher *Dispatcher
	lifecycle  *Lifecycle
	settings
}

func NewOrchestrator(store Store, providers provider.Repository, processor Processor, dispatcher *Dispatcher, opts ...Option) *Orchestrator {
	if store == nil {
		panic("billing: store is required")
	}
	if providers == nil {
		panic("billing: provider repository is required")
	}
	if processor == nil {
		panic("billing: processor is required")
	}
	if dispatcher == nil {
		panic("billing: dispatcher is required")
	}
	return &Orchestrator{
		store:      store,
		providers:  providers,
		processor:  processor,
		dispatcher: dispatcher,
		lifecycle:  NewLifecycle(),
		settings:   newSettings(opts),
	}
}

// Checkout applies req to the provider's subscription.
//
// Processor failures are returned wrapped in ErrExternalService and leave no
// pending row behind. Unknown providers fail with ErrProviderNotFound.
func (o *Orchestrator) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	if req.ProviderID == uuid.Nil {
		return nil, fmt.Errorf("%w: provider id is required", ErrInvalidRequest)
	}

	p, err := o.providers.Get(ctx, req.ProviderID)
	if errors.Is(err, provider.ErrNotFound) {
		return nil, ErrProviderNotFound
	}
	if err != nil {
		return nil, errors.Join(ErrPersistence, err)
	}

	current, err := o.store.Get(ctx, req.ProviderID)
	if errors.Is(err, ErrNotFound) {
		current = nil
	} else if err != nil {
		return nil, err
	}

	t, err := Decide(current, req.Amount)
	if err != nil {
		return nil, err
	}

	if _, err := o.lifecycle.Check(ctx, current, CheckoutEvent(t.Case)); err != nil {
		return nil, err
	}

	log := o.log.With(
		logger.Component("billing.checkout"),
		logger.ProviderID(req.ProviderID),
		logger.Case(t.Case.String()),
	)

	var (
		saved   *Subscription
		url     = o.cfg.SuccessURL
		effects []Effect
	)

	switch t.Case {
	case CaseCreateFree:
		saved, err = o.create(ctx, t.Draft(req.ProviderID, req.Flags, ""))

	case CaseCreatePending:
		var session *CheckoutSession
		session, err = o.openSession(ctx, req, p.Email)
		if err != nil {
			break
		}
		url = session.URL
		saved, err = o.create(ctx, t.Draft(req.ProviderID, req.Flags, session.ID))

	case CaseUpgradePending:
		var session *CheckoutSession
		session, err = o.openSession(ctx, req, p.Email)
		if err != nil {
			break
		}
		url = session.URL
		saved, err = o.write(ctx, current, t, req.Flags, session.ID, false)

	case CaseChangeAmount:
		if t.PriceChange {
			if err = o.changePrice(ctx, current.ExternalSubscriptionRef, t.Requested); err != nil {
				break
			}
		}
		// The processor already bills the new amount; keep retrying the row
		// until it matches instead of rolling the price back.
		saved, err = o.write(ctx, current, t, req.Flags, "", t.PriceChange)
		if err != nil && t.PriceChange {
			log.ErrorContext(ctx, "processor price changed but subscription row was not updated",
				logger.SubscriptionID(current.ID),
				logger.ExternalRef(current.ExternalSubscriptionRef),
				logger.Error(err),
			)
		}

	case CaseUpdateFree, CaseDowngrade:
		saved, err = o.write(ctx, current, t, req.Flags, "", false)
		if err == nil && t.SupersededRef != "" {
			effects = append(effects, cancelEffect(t.SupersededRef))
		}

	default:
		err = fmt.Errorf("%w: unhandled checkout case %s", ErrInvariantViolation, t.Case)
	}
	if err != nil {
		return nil, err
	}

	effects = append(effects, syncScoreEffect)
	if t.Case.Notifies() {
		effects = append(effects, notifyEffect(notify.TypeSubscriptionUpdated))
	}
	if err := o.dispatcher.Dispatch(ctx, *saved, effects); err != nil {
		log.WarnContext(ctx, "checkout effects failed", logger.Error(err))
	}

	o.metrics.checkout(t.Case)
	log.InfoContext(ctx, "checkout processed",
		logger.SubscriptionID(saved.ID),
	)

	return &CheckoutResult{URL: url, Case: t.Case, Deferred: t.Case.Deferred()}, nil
}

func (o *Orchestrator) openSession(ctx context.Context, req CheckoutRequest, email string) (*CheckoutSession, error) {
	cancelURL := req.CancelURL
	if cancelURL == "" {
		cancelURL = o.cfg.SuccessURL
	}

	ctx, cancel := context.WithTimeout(ctx, o.cfg.ProcessorTimeout)
	defer cancel()

	session, err := o.processor.CreateCheckoutSession(ctx, SessionRequest{
		ProviderID: req.ProviderID,
		Amount:     req.Amount,
		Email:      email,
		SuccessURL: o.cfg.SuccessURL,
		CancelURL:  cancelURL,
	})
	if err != nil {
		return nil, external(err)
	}
	if session.URL == "" {
		return nil, ErrNoCheckoutURL
	}
	return session, nil
}

func (o *Orchestrator) changePrice(ctx context.Context, subscriptionRef string, amount int64) error {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.ProcessorTimeout)
	defer cancel()

	priceRef, err := o.processor.CreatePrice(ctx, amount)
	if err != nil {
		return external(err)
	}
	if err := o.processor.UpdateSubscriptionPrice(ctx, subscriptionRef, priceRef); err != nil {
		return external(err)
	}
	return nil
}

func (o *Orchestrator) create(ctx context.Context, d Draft) (*Subscription, error) {
	if err := checkDraft(d); err != nil {
		return nil, err
	}
	return o.store.Create(ctx, d)
}

// write applies the transition to the row, re-reading it after a concurrent
// update. With persistent set, any store failure is retried, not only stale
// versions. A re-read row must still lead to the same decision; otherwise the
// write is abandoned with ErrStale.
func (o *Orchestrator) write(ctx context.Context, current *Subscription, t Transition, flags Flags, sessionRef string, persistent bool) (*Subscription, error) {
	backoff := retry.WithMaxRetries(o.cfg.StoreRetryAttempts, retry.NewExponential(o.cfg.StoreRetryInterval))

	row := current
	var saved *Subscription
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if row == nil {
			fresh, err := o.store.GetByID(ctx, current.ID)
			if err != nil {
				if persistent && !errors.Is(err, ErrNotFound) {
					return retry.RetryableError(err)
				}
				return err
			}
			if err := o.redecide(ctx, current, fresh, t); err != nil {
				return err
			}
			row = fresh
		}

		patch := t.Patch(*row, flags, sessionRef).Diff(*row)
		if patch.IsEmpty() {
			saved = row
			return nil
		}
		if err := checkPatch(*row, patch); err != nil {
			return err
		}

		updated, err := o.store.Update(ctx, row.ID, patch)
		switch {
		case err == nil:
			saved = updated
			return nil
		case errors.Is(err, ErrStale):
			row = nil
			return retry.RetryableError(err)
		case persistent && !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrInvariantViolation):
			row = nil
			return retry.RetryableError(err)
		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// redecide verifies that t still applies to a row re-read after a concurrent
// write: the lifecycle allows it, the same case is selected and the row is
// linked to the same processor subscription.
func (o *Orchestrator) redecide(ctx context.Context, current, fresh *Subscription, t Transition) error {
	if _, err := o.lifecycle.Check(ctx, fresh, CheckoutEvent(t.Case)); err != nil {
		return fmt.Errorf("%w: %w", ErrStale, err)
	}
	again, err := Decide(fresh, t.Requested)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStale, err)
	}
	if again.Case != t.Case || fresh.ExternalSubscriptionRef != current.ExternalSubscriptionRef {
		return fmt.Errorf("%w: %w: checkout %s no longer applies to subscription %s", ErrStale, ErrInvariantViolation, t.Case, fresh.ID)
	}
	return nil
}

func external(err error) error {
	if errors.Is(err, ErrExternalService) {
		return err
	}
	return errors.Join(ErrExternalService, err)
}
