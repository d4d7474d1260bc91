package billing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/rankpay/svc/billing"
)

func TestOptionsPoints(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		flags billing.Flags
		want  int64
	}{
		{"no options", billing.Flags{}, 0},
		{"display flags score nothing", billing.Flags{BasicListing: true, Partner: true, PublishPhone: true, PublishWebsite: true}, 0},
		{"home backlink", billing.Flags{BacklinkHome: true}, 5},
		{"profile backlink", billing.Flags{BacklinkProfile: true}, 5},
		{"both backlinks", billing.Flags{BacklinkHome: true, BacklinkProfile: true, Partner: true}, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, billing.OptionsPoints(tt.flags))
		})
	}
}

func TestEffectiveTotalPoints(t *testing.T) {
	t.Parallel()

	statuses := []billing.Status{
		billing.StatusPending,
		billing.StatusCompleted,
		billing.StatusFailed,
		billing.StatusPastDue,
		billing.StatusUnpaid,
		billing.StatusCancelled,
		billing.StatusIncomplete,
		billing.StatusExpired,
	}
	for _, status := range statuses {
		t.Run(string(status), func(t *testing.T) {
			t.Parallel()

			s := billing.Subscription{OptionsPoints: 10, MonthlyAmount: 30, PaymentStatus: status}
			got := billing.EffectiveTotalPoints(s)
			if status == billing.StatusCompleted {
				assert.Equal(t, int64(40), got)
			} else {
				assert.Equal(t, int64(10), got)
			}
			assert.Equal(t, status.IsHealthy(), !status.IsDegraded() && status != billing.StatusPending)
		})
	}
}

func TestCheckInvariant(t *testing.T) {
	t.Parallel()

	ok := billing.Subscription{OptionsPoints: 5, MonthlyAmount: 20, TotalPoints: 25, PaymentStatus: billing.StatusCompleted}
	assert.True(t, billing.CheckInvariant(ok))

	stripped := billing.Subscription{OptionsPoints: 5, MonthlyAmount: 20, TotalPoints: 5, PaymentStatus: billing.StatusFailed}
	assert.True(t, billing.CheckInvariant(stripped))

	stale := billing.Subscription{OptionsPoints: 5, MonthlyAmount: 20, TotalPoints: 25, PaymentStatus: billing.StatusPastDue}
	assert.False(t, billing.CheckInvariant(stale))
}
