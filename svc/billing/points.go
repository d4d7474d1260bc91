package billing

import "fmt"

// PointsPerBacklink is the score granted by each enabled backlink option.
const PointsPerBacklink int64 = 5

// OptionsPoints converts the billable listing options into ranking points.
// Display-only flags score nothing.
func OptionsPoints(f Flags) int64 {
	var points int64
	if f.BacklinkHome {
		points += PointsPerBacklink
	}
	if f.BacklinkProfile {
		points += PointsPerBacklink
	}
	return points
}

// TotalPoints is the score of a subscription with the given options points,
// confirmed amount and status. The amount only counts while the status is healthy.
func TotalPoints(optionsPoints, monthlyAmount int64, status Status) int64 {
	if status.IsHealthy() {
		return optionsPoints + monthlyAmount
	}
	return optionsPoints
}

// EffectiveTotalPoints recomputes the score a row must carry.
func EffectiveTotalPoints(s Subscription) int64 {
	return TotalPoints(s.OptionsPoints, s.MonthlyAmount, s.PaymentStatus)
}

// CheckInvariant reports whether the stored score matches the one derived
// from options, amount and status.
func CheckInvariant(s Subscription) bool {
	return s.TotalPoints == EffectiveTotalPoints(s)
}

// checkPatch refuses a write that would leave s with a score not derived from
// its options, amount and status.
func checkPatch(s Subscription, p Patch) error {
	next := p.Apply(s)
	if !CheckInvariant(next) {
		return fmt.Errorf("%w: subscription %s would score %d instead of %d",
			ErrInvariantViolation, s.ID, next.TotalPoints, EffectiveTotalPoints(next))
	}
	return nil
}

// checkDraft is checkPatch for a row about to be created.
func checkDraft(d Draft) error {
	s := Subscription{
		MonthlyAmount: d.MonthlyAmount,
		OptionsPoints: d.OptionsPoints,
		TotalPoints:   d.TotalPoints,
		PaymentStatus: d.PaymentStatus,
	}
	if !CheckInvariant(s) {
		return fmt.Errorf("%w: new subscription for provider %s would score %d instead of %d",
			ErrInvariantViolation, d.ProviderID, d.TotalPoints, EffectiveTotalPoints(s))
	}
	return nil
}
