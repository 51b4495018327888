package memory

import (
	"context"
	"sort"
	"time"

	"github.com/pinme-ledger/internal/domain"
)

type ReminderRepo struct{ s *Store }

func copyReminder(r domain.Reminder) domain.Reminder {
	r.SentAt = clonePtr(r.SentAt)
	r.CancelledAt = clonePtr(r.CancelledAt)
	return r
}

func (r *ReminderRepo) Create(_ context.Context, rem *domain.Reminder) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.reminders[rem.ReminderID]; ok {
		return domain.ErrConflict
	}
	r.s.reminders[rem.ReminderID] = copyReminder(*rem)
	return nil
}

func (r *ReminderRepo) Get(_ context.Context, reminderID string) (*domain.Reminder, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rem, ok := r.s.reminders[reminderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := copyReminder(rem)
	return &cp, nil
}

func (r *ReminderRepo) ListByUser(_ context.Context, userID string, pendingOnly bool, limit int) ([]domain.Reminder, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []domain.Reminder{}
	for _, rem := range r.s.reminders {
		if rem.UserID != userID || (pendingOnly && !rem.Pending()) {
			continue
		}
		out = append(out, copyReminder(rem))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ReminderID > out[j].ReminderID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *ReminderRepo) CountByUser(_ context.Context, userID string) (total, pending int, err error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, rem := range r.s.reminders {
		if rem.UserID != userID {
			continue
		}
		total++
		if rem.Pending() {
			pending++
		}
	}
	return total, pending, nil
}

func (r *ReminderRepo) UpdatePending(_ context.Context, reminderID string, text *string, remindAt *time.Time) (*domain.Reminder, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rem, ok := r.s.reminders[reminderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if !rem.Pending() {
		return nil, domain.ErrConflict
	}
	if text != nil {
		rem.Text = *text
	}
	if remindAt != nil {
		rem.RemindAt = *remindAt
	}
	r.s.reminders[reminderID] = rem
	cp := copyReminder(rem)
	return &cp, nil
}

func (r *ReminderRepo) Cancel(_ context.Context, reminderID string, now time.Time) (*domain.Reminder, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rem, ok := r.s.reminders[reminderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if !rem.Pending() {
		return nil, domain.ErrConflict
	}
	at := now
	rem.CancelledAt = &at
	r.s.reminders[reminderID] = rem
	cp := copyReminder(rem)
	return &cp, nil
}

// ListDue joins pending reminders due at or before now with their owners,
// oldest remind_at first. Reminders whose owner is gone are skipped.
func (r *ReminderRepo) ListDue(_ context.Context, now time.Time, limit int) ([]domain.DueReminder, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.DueReminder
	for _, rem := range r.s.reminders {
		if !rem.Pending() || rem.RemindAt.After(now) {
			continue
		}
		u, ok := r.s.users[rem.UserID]
		if !ok {
			continue
		}
		out = append(out, domain.DueReminder{
			Reminder:    copyReminder(rem),
			PhoneNumber: u.PhoneNumber,
			UserName:    clonePtr(u.Name),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].RemindAt.Equal(out[j].RemindAt) {
			return out[i].RemindAt.Before(out[j].RemindAt)
		}
		return out[i].ReminderID < out[j].ReminderID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *ReminderRepo) MarkSent(_ context.Context, reminderID string, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rem, ok := r.s.reminders[reminderID]
	if !ok {
		return domain.ErrNotFound
	}
	if !rem.Pending() {
		return domain.ErrConflict
	}
	at := now
	rem.SentAt = &at
	r.s.reminders[reminderID] = rem
	return nil
}
