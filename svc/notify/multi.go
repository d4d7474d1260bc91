package notify

import (
	"context"
	"errors"
)

// Multi fans a notification out to every notifier. All destinations are
// attempted; the returned error joins every failure.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, notifier := range m {
		if notifier == nil {
			continue
		}
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
