package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSubscriptionStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to SubscriptionStatus
		want     bool
	}{
		{StatusPending, StatusSuccess, true},
		{StatusPending, StatusFailed, true},
		{StatusSuccess, StatusCanceled, true},
		{StatusPending, StatusCanceled, false},
		{StatusSuccess, StatusFailed, false},
		{StatusSuccess, StatusPending, false},
		{StatusFailed, StatusSuccess, false},
		{StatusCanceled, StatusSuccess, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestSubscriptionStatus_IsTerminal(t *testing.T) {
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusSuccess.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
	assert.True(t, StatusCanceled.IsTerminal())
}

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus("success")
	assert.NoError(t, err)
	assert.Equal(t, StatusSuccess, st)

	_, err = ParseStatus("active")
	assert.Error(t, err)
}

func TestPlan_EndDate(t *testing.T) {
	start := time.Date(2024, 1, 31, 10, 30, 0, 0, time.UTC)
	plan := &Plan{DurationInDays: 30}

	assert.Equal(t, time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC), plan.EndDate(start))
}

func TestSubscriptionPayment_IsActiveAt(t *testing.T) {
	now := time.Now()
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	assert.True(t, (&SubscriptionPayment{Status: StatusSuccess, EndDate: &future}).IsActiveAt(now))
	assert.False(t, (&SubscriptionPayment{Status: StatusSuccess, EndDate: &past}).IsActiveAt(now))
	assert.False(t, (&SubscriptionPayment{Status: StatusCanceled, EndDate: &future}).IsActiveAt(now))
	assert.False(t, (&SubscriptionPayment{Status: StatusPending}).IsActiveAt(now))
}
