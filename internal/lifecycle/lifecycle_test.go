package lifecycle

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sugarline/bakehouse/pkg/errorbank"
)

var allStatuses = []Status{
	StatusPending, StatusPreparing, StatusReady, StatusCompleted, StatusCancelled,
}

func TestTransitionMatrix(t *testing.T) {
	legal := map[[2]Status]bool{
		{StatusPending, StatusPreparing}: true,
		{StatusPreparing, StatusReady}:   true,
		{StatusReady, StatusCompleted}:   true,
		{StatusPending, StatusCancelled}: true,
	}

	for _, from := range allStatuses {
		for _, to := range allStatuses {
			got := CanTransition(from, to)
			want := legal[[2]Status{from, to}]
			assert.Equal(t, want, got, "%s -> %s", from, to)

			err := ValidateTransition(from, to)
			if want {
				assert.NoError(t, err, "%s -> %s", from, to)
			} else {
				require.Error(t, err, "%s -> %s", from, to)
				assert.Equal(t, errorbank.KindInvalidTransition, errorbank.From(err).Kind())
			}
		}
	}
}

func TestAdvance(t *testing.T) {
	next, err := Advance(StatusPending)
	require.NoError(t, err)
	assert.Equal(t, StatusPreparing, next)

	next, err = Advance(StatusPreparing)
	require.NoError(t, err)
	assert.Equal(t, StatusReady, next)

	next, err = Advance(StatusReady)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, next)

	for _, terminal := range []Status{StatusCompleted, StatusCancelled} {
		_, err := Advance(terminal)
		require.Error(t, err, terminal)
		assert.Equal(t, errorbank.KindInvalidTransition, errorbank.From(err).Kind())
	}
}

func TestTerminal(t *testing.T) {
	assert.False(t, Terminal(StatusPending))
	assert.False(t, Terminal(StatusPreparing))
	assert.False(t, Terminal(StatusReady))
	assert.True(t, Terminal(StatusCompleted))
	assert.True(t, Terminal(StatusCancelled))
}

func TestLockReasons(t *testing.T) {
	reason, locked := LockReason(StatusPending)
	assert.False(t, locked)
	assert.Empty(t, reason)

	expected := map[Status]string{
		StatusPreparing: "order is being prepared",
		StatusReady:     "order is ready for pickup",
		StatusCompleted: "completed orders are immutable history",
		StatusCancelled: "cancelled orders are immutable history",
	}
	for status, want := range expected {
		reason, locked := LockReason(status)
		assert.True(t, locked, status)
		assert.Equal(t, want, reason, status)

		err := EnsureEditable(status)
		require.Error(t, err, status)
		assert.Equal(t, errorbank.KindLocked, errorbank.From(err).Kind())
	}

	assert.NoError(t, EnsureEditable(StatusPending))
}

func TestParse(t *testing.T) {
	s, err := Parse(" Preparing ")
	require.NoError(t, err)
	assert.Equal(t, StatusPreparing, s)

	_, err = Parse("baking")
	require.Error(t, err)
	assert.Equal(t, errorbank.KindBadRequest, errorbank.From(err).Kind())
}

func TestValidateCancellation(t *testing.T) {
	assert.NoError(t, ValidateCancellation(StatusPending, "customer changed mind", "alice"))

	err := ValidateCancellation(StatusPending, "  ", "alice")
	require.Error(t, err)
	assert.Equal(t, errorbank.KindBadRequest, errorbank.From(err).Kind())

	err = ValidateCancellation(StatusPending, strings.Repeat("x", MaxCancelReasonLen+1), "alice")
	require.Error(t, err)
	assert.Equal(t, errorbank.KindBadRequest, errorbank.From(err).Kind())

	err = ValidateCancellation(StatusPending, "too late", "")
	require.Error(t, err)
	assert.Equal(t, errorbank.KindBadRequest, errorbank.From(err).Kind())

	for _, from := range []Status{StatusPreparing, StatusReady, StatusCompleted, StatusCancelled} {
		err := ValidateCancellation(from, "some reason", "alice")
		require.Error(t, err, from)
		assert.Equal(t, errorbank.KindInvalidTransition, errorbank.From(err).Kind())
	}

	// Reason at exactly the limit is accepted.
	assert.NoError(t, ValidateCancellation(StatusPending, strings.Repeat("x", MaxCancelReasonLen), "alice"))
}
