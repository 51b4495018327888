package domain

import "time"

// ReminderStatus is computed on read and never stored.
type ReminderStatus string

const (
	ReminderCancelled ReminderStatus = "CANCELLED"
	ReminderSent      ReminderStatus = "SENT"
	ReminderUpcoming  ReminderStatus = "UPCOMING"
	ReminderOverdue   ReminderStatus = "OVERDUE"
)

type Reminder struct {
	ReminderID  string     `json:"id" dynamodbav:"reminder_id"`
	UserID      string     `json:"user_id" dynamodbav:"user_id"`
	Text        string     `json:"text" dynamodbav:"text"`
	RemindAt    time.Time  `json:"remind_at" dynamodbav:"remind_at,unixtime"`
	CreatedAt   time.Time  `json:"created_at" dynamodbav:"created_at,unixtime"`
	SentAt      *time.Time `json:"sent_at" dynamodbav:"sent_at,omitempty,unixtime"`
	CancelledAt *time.Time `json:"cancelled_at" dynamodbav:"cancelled_at,omitempty,unixtime"`
}

// Status derives the reminder state from its timestamps.
func (r *Reminder) Status(now time.Time) ReminderStatus {
	return DeriveStatus(r.SentAt, r.CancelledAt, r.RemindAt, now)
}

// Pending reports whether the reminder can still be dispatched, edited or cancelled.
func (r *Reminder) Pending() bool {
	return r.SentAt == nil && r.CancelledAt == nil
}

// DeriveStatus is a pure function of its inputs.
func DeriveStatus(sentAt, cancelledAt *time.Time, remindAt, now time.Time) ReminderStatus {
	switch {
	case cancelledAt != nil:
		return ReminderCancelled
	case sentAt != nil:
		return ReminderSent
	case remindAt.After(now):
		return ReminderUpcoming
	default:
		return ReminderOverdue
	}
}

// DueReminder is a dispatch candidate joined with its owner's contact details.
type DueReminder struct {
	Reminder
	PhoneNumber string
	UserName    *string
}

type CreateReminderRequest struct {
	Text     string    `json:"text" validate:"required,max=500"`
	RemindAt time.Time `json:"remind_at" validate:"required"`
}

type UpdateReminderRequest struct {
	Text     *string    `json:"text" validate:"omitempty,min=1,max=500"`
	RemindAt *time.Time `json:"remind_at"`
}
