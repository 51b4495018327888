package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeriveStatus(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	tests := []struct {
		name        string
		sentAt      *time.Time
		cancelledAt *time.Time
		remindAt    time.Time
		want        ReminderStatus
	}{
		{"cancelled wins over everything", &past, &past, past, ReminderCancelled},
		{"sent", &past, nil, past, ReminderSent},
		{"upcoming", nil, nil, future, ReminderUpcoming},
		{"overdue", nil, nil, past, ReminderOverdue},
		{"due exactly now is overdue", nil, nil, now, ReminderOverdue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveStatus(tt.sentAt, tt.cancelledAt, tt.remindAt, now)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, DeriveStatus(tt.sentAt, tt.cancelledAt, tt.remindAt, now))
		})
	}
}

func TestUserFirstName(t *testing.T) {
	name := "  Rahul Sharma "
	blank := "   "
	assert.Equal(t, "Rahul", (&User{Name: &name}).FirstName("bhai"))
	assert.Equal(t, "bhai", (&User{Name: &blank}).FirstName("bhai"))
	assert.Equal(t, "bhai", (&User{}).FirstName("bhai"))
	var nilUser *User
	assert.Equal(t, "bhai", nilUser.FirstName("bhai"))
}
