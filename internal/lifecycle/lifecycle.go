package lifecycle

import (
	"fmt"
	"strings"

	"github.com/sugarline/bakehouse/pkg/errorbank"
)

// Status enumerates the order lifecycle states.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// MaxCancelReasonLen bounds the free-text cancellation reason.
const MaxCancelReasonLen = 500

// next holds the single legal forward edge out of each non-terminal state.
// Cancellation is handled separately: it is only reachable from pending.
var next = map[Status]Status{
	StatusPending:   StatusPreparing,
	StatusPreparing: StatusReady,
	StatusReady:     StatusCompleted,
}

// lockReasons explains why a non-pending order rejects edits.
var lockReasons = map[Status]string{
	StatusPreparing: "order is being prepared",
	StatusReady:     "order is ready for pickup",
	StatusCompleted: "completed orders are immutable history",
	StatusCancelled: "cancelled orders are immutable history",
}

// Parse validates a raw status string.
func Parse(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case StatusPending, StatusPreparing, StatusReady, StatusCompleted, StatusCancelled:
		return s, nil
	default:
		return "", errorbank.BadRequest(fmt.Sprintf("unknown order status %q", raw))
	}
}

// Terminal reports whether no transitions leave the state.
func Terminal(s Status) bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Next returns the forward edge out of s, if one exists.
func Next(s Status) (Status, bool) {
	to, ok := next[s]
	return to, ok
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to Status) bool {
	if to == StatusCancelled {
		return from == StatusPending
	}
	return next[from] == to
}

// Advance resolves the next forward state or fails with InvalidTransition.
func Advance(from Status) (Status, error) {
	to, ok := next[from]
	if !ok {
		return "", errorbank.InvalidTransition(
			fmt.Sprintf("order in %q status cannot be advanced", from),
			errorbank.WithDetail("status", string(from)),
		)
	}
	return to, nil
}

// ValidateTransition rejects any requested edge that is not one of the four
// legal ones. Same-state, skipped, and out-of-terminal edges all fail.
func ValidateTransition(from, to Status) error {
	if CanTransition(from, to) {
		return nil
	}
	return errorbank.InvalidTransition(
		fmt.Sprintf("cannot transition order from %q to %q", from, to),
		errorbank.WithDetail("from", string(from)),
		errorbank.WithDetail("to", string(to)),
	)
}

// LockReason returns the human-readable edit-lock reason for a status.
// Pending orders are not locked.
func LockReason(s Status) (string, bool) {
	reason, ok := lockReasons[s]
	return reason, ok
}

// EnsureEditable fails with a Locked error unless the order is pending.
func EnsureEditable(s Status) error {
	reason, locked := LockReason(s)
	if !locked {
		return nil
	}
	return errorbank.Locked(reason, errorbank.WithDetail("status", string(s)))
}

// ValidateCancellation checks the cancellation request against the current
// status, reason, and actor requirements.
func ValidateCancellation(from Status, reason, actor string) error {
	if strings.TrimSpace(reason) == "" {
		return errorbank.BadRequest("cancellation reason is required")
	}
	if len(reason) > MaxCancelReasonLen {
		return errorbank.BadRequest(
			fmt.Sprintf("cancellation reason exceeds %d characters", MaxCancelReasonLen),
		)
	}
	if strings.TrimSpace(actor) == "" {
		return errorbank.BadRequest("cancellation actor is required")
	}
	return ValidateTransition(from, StatusCancelled)
}
