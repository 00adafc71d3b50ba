package scheduling

import (
	"time"

	"go.uber.org/fx"

	"github.com/sugarline/bakehouse/internal/config"
)

// Rejection reasons surfaced to callers. Checked in order; first match wins.
const (
	ReasonPastDate           = "pickup date is in the past"
	ReasonClosed             = "closed on Sundays"
	ReasonInsufficientNotice = "insufficient notice"
)

// Assessment is the outcome of evaluating a requested pickup date.
// Rush is a surcharge/approval flag, not a validity failure: it is set for
// any date inside the rush window that clears the past-date and closure
// checks, even when the date is otherwise rejected for notice.
type Assessment struct {
	Valid           bool      `json:"valid"`
	Rush            bool      `json:"rush"`
	RejectionReason string    `json:"rejection_reason,omitempty"`
	ReadyBy         time.Time `json:"ready_by"`
}

// Policy validates pickup dates against advance-notice and closure rules.
// Deterministic given the two timestamps; no side effects.
type Policy struct {
	MinAdvanceDays        int
	RushThresholdDays     int
	CompletionBufferHours int
	ClosureDay            time.Weekday
}

// Module provides the scheduling policy to Fx.
var Module = fx.Provide(NewPolicy)

// NewPolicy builds a Policy from configuration.
func NewPolicy(cfg config.Config) Policy {
	return Policy{
		MinAdvanceDays:        cfg.Policy.MinAdvanceDays,
		RushThresholdDays:     cfg.Policy.RushThresholdDays,
		CompletionBufferHours: cfg.Policy.CompletionBufferHours,
		ClosureDay:            time.Sunday,
	}
}

// Evaluate classifies a requested pickup timestamp against now. "Today" is
// the server's current date. rushApproved marks a short-notice date as an
// explicitly approved rush order, which bypasses the notice check only.
func (p Policy) Evaluate(pickup, now time.Time, rushApproved bool) Assessment {
	days := daysUntil(now, pickup)

	// ReadyBy is informational: the kitchen reserves a completion buffer
	// before the pickup time. It never rejects a date.
	a := Assessment{
		ReadyBy: pickup.Add(-time.Duration(p.CompletionBufferHours) * time.Hour),
	}

	if days < 0 {
		a.RejectionReason = ReasonPastDate
		return a
	}
	if pickup.Weekday() == p.ClosureDay {
		a.RejectionReason = ReasonClosed
		return a
	}

	a.Rush = days < p.RushThresholdDays
	if days < p.MinAdvanceDays && !rushApproved {
		a.RejectionReason = ReasonInsufficientNotice
		return a
	}

	a.Valid = true
	return a
}

// daysUntil counts whole calendar days from now's date to pickup's date,
// ignoring the time of day on both sides. Both dates are rebuilt as UTC
// midnights so the count is exact across DST transitions, where the local
// wall-clock span between midnights is not a multiple of 24h.
func daysUntil(now, pickup time.Time) int {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	day := time.Date(pickup.Year(), pickup.Month(), pickup.Day(), 0, 0, 0, 0, time.UTC)
	return int(day.Sub(today) / (24 * time.Hour))
}
