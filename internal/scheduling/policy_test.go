package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPolicy() Policy {
	return Policy{
		MinAdvanceDays:        2,
		RushThresholdDays:     2,
		CompletionBufferHours: 4,
		ClosureDay:            time.Sunday,
	}
}

// A Monday at 09:00, so the following days are Tue, Wed, ... with the next
// Sunday six days out.
var monday = time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)

func TestEvaluatePastDate(t *testing.T) {
	a := testPolicy().Evaluate(monday.AddDate(0, 0, -1), monday, false)
	assert.False(t, a.Valid)
	assert.Equal(t, ReasonPastDate, a.RejectionReason)
}

func TestEvaluateSundayClosure(t *testing.T) {
	sunday := monday.AddDate(0, 0, 6)
	assert.Equal(t, time.Sunday, sunday.Weekday())

	// Closed regardless of notice or rush approval.
	a := testPolicy().Evaluate(sunday, monday, false)
	assert.False(t, a.Valid)
	assert.Equal(t, ReasonClosed, a.RejectionReason)

	a = testPolicy().Evaluate(sunday, monday, true)
	assert.False(t, a.Valid)
	assert.Equal(t, ReasonClosed, a.RejectionReason)
}

func TestEvaluateInsufficientNotice(t *testing.T) {
	tomorrow := monday.AddDate(0, 0, 1)

	a := testPolicy().Evaluate(tomorrow, monday, false)
	assert.False(t, a.Valid)
	assert.Equal(t, ReasonInsufficientNotice, a.RejectionReason)
	assert.True(t, a.Rush)
}

func TestEvaluateRushApprovalBypassesNotice(t *testing.T) {
	tomorrow := monday.AddDate(0, 0, 1)

	a := testPolicy().Evaluate(tomorrow, monday, true)
	assert.True(t, a.Valid)
	assert.True(t, a.Rush)
	assert.Empty(t, a.RejectionReason)
}

func TestEvaluateExactMinimumAdvance(t *testing.T) {
	// Exactly MinAdvanceDays out is valid and, with the default thresholds,
	// not a rush order.
	a := testPolicy().Evaluate(monday.AddDate(0, 0, 2), monday, false)
	assert.True(t, a.Valid)
	assert.False(t, a.Rush)
	assert.Empty(t, a.RejectionReason)
}

func TestEvaluateWiderRushWindow(t *testing.T) {
	// A configuration with RushThresholdDays above MinAdvanceDays marks
	// valid short-notice dates as rush without rejecting them.
	p := testPolicy()
	p.RushThresholdDays = 3

	a := p.Evaluate(monday.AddDate(0, 0, 2), monday, false)
	assert.True(t, a.Valid)
	assert.True(t, a.Rush)

	a = p.Evaluate(monday.AddDate(0, 0, 3), monday, false)
	assert.True(t, a.Valid)
	assert.False(t, a.Rush)
}

func TestEvaluateSameDay(t *testing.T) {
	a := testPolicy().Evaluate(monday.Add(2*time.Hour), monday, false)
	assert.False(t, a.Valid)
	assert.Equal(t, ReasonInsufficientNotice, a.RejectionReason)
	assert.True(t, a.Rush)

	// Same-day rush approval is still honored.
	a = testPolicy().Evaluate(monday.Add(2*time.Hour), monday, true)
	assert.True(t, a.Valid)
	assert.True(t, a.Rush)
}

func TestEvaluateReadyByBuffer(t *testing.T) {
	pickup := monday.AddDate(0, 0, 3)
	a := testPolicy().Evaluate(pickup, monday, false)
	assert.Equal(t, pickup.Add(-4*time.Hour), a.ReadyBy)
}

func TestEvaluateAcrossSpringForward(t *testing.T) {
	// US clocks spring forward on 2026-03-08, so the local midnight-to-
	// midnight span from Saturday to Monday is 47h, not 48h. The count must
	// still be two calendar days: a pickup exactly MinAdvanceDays out is
	// valid and not rush.
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	saturday := time.Date(2026, time.March, 7, 9, 0, 0, 0, loc)
	mondayPickup := time.Date(2026, time.March, 9, 14, 0, 0, 0, loc)

	assert.Equal(t, 2, daysUntil(saturday, mondayPickup))

	a := testPolicy().Evaluate(mondayPickup, saturday, false)
	assert.True(t, a.Valid)
	assert.False(t, a.Rush)
	assert.Empty(t, a.RejectionReason)
}

func TestDaysUntilAcrossFallBack(t *testing.T) {
	// Fall-back weekend: the local span is 49h and must not round up to
	// three days.
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	saturday := time.Date(2026, time.October, 31, 9, 0, 0, 0, loc)
	monday := time.Date(2026, time.November, 2, 14, 0, 0, 0, loc)

	assert.Equal(t, 2, daysUntil(saturday, monday))
}

func TestDaysUntilIgnoresTimeOfDay(t *testing.T) {
	// Late tonight vs early tomorrow is still one calendar day apart.
	lateNow := time.Date(2026, time.March, 2, 23, 30, 0, 0, time.UTC)
	earlyPickup := time.Date(2026, time.March, 3, 0, 15, 0, 0, time.UTC)
	assert.Equal(t, 1, daysUntil(lateNow, earlyPickup))

	sameDay := time.Date(2026, time.March, 2, 0, 5, 0, 0, time.UTC)
	assert.Equal(t, 0, daysUntil(lateNow, sameDay))
}
