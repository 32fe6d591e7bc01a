package quotation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		ok       bool
	}{
		{StatusDraft, StatusApproved, true},
		{StatusApproved, StatusRendered, true},
		{StatusRendered, StatusSent, true},
		{StatusSent, StatusViewed, true},
		{StatusSent, StatusSigned, true},
		{StatusViewed, StatusSigned, true},
		{StatusSent, StatusExpired, true},
		{StatusViewed, StatusExpired, true},

		// no skipping forward
		{StatusDraft, StatusRendered, false},
		{StatusDraft, StatusSent, false},
		{StatusApproved, StatusSent, false},
		{StatusRendered, StatusSigned, false},

		// no backward edges
		{StatusApproved, StatusDraft, false},
		{StatusSent, StatusRendered, false},
		{StatusViewed, StatusSent, false},

		// only sent/viewed can expire
		{StatusDraft, StatusExpired, false},
		{StatusRendered, StatusExpired, false},

		// terminal states go nowhere
		{StatusSigned, StatusCancelled, false},
		{StatusExpired, StatusSent, false},
		{StatusCancelled, StatusDraft, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.ok, tt.from.CanTransition(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestStatusCancellableFromAnyNonTerminal(t *testing.T) {
	for _, s := range []Status{StatusDraft, StatusApproved, StatusRendered, StatusSent, StatusViewed} {
		assert.True(t, s.CanTransition(StatusCancelled), "%s should be cancellable", s)
	}
}

func TestStatusTerminal(t *testing.T) {
	assert.True(t, StatusSigned.Terminal())
	assert.True(t, StatusExpired.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	for _, s := range []Status{StatusDraft, StatusApproved, StatusRendered, StatusSent, StatusViewed} {
		assert.False(t, s.Terminal(), "%s should not be terminal", s)
	}
}
