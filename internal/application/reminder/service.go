package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pinme-ledger/internal/domain"
	"github.com/pinme-ledger/internal/pkg/id"
	"github.com/pinme-ledger/internal/pkg/validate"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Store persists reminders. UpdatePending, Cancel and MarkSent are
// conditional on the reminder still being pending and return
// domain.ErrConflict otherwise, or domain.ErrNotFound for unknown ids.
type Store interface {
	Create(ctx context.Context, r *domain.Reminder) error
	Get(ctx context.Context, reminderID string) (*domain.Reminder, error)
	ListByUser(ctx context.Context, userID string, pendingOnly bool, limit int) ([]domain.Reminder, error)
	CountByUser(ctx context.Context, userID string) (total, pending int, err error)
	UpdatePending(ctx context.Context, reminderID string, text *string, remindAt *time.Time) (*domain.Reminder, error)
	Cancel(ctx context.Context, reminderID string, now time.Time) (*domain.Reminder, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]domain.DueReminder, error)
	MarkSent(ctx context.Context, reminderID string, now time.Time) error
}

// ListFilter narrows List results.
type ListFilter struct {
	IncludeFinished bool
	Limit           int
}

// Item is a reminder annotated with its status at read time.
type Item struct {
	domain.Reminder
	Status domain.ReminderStatus `json:"status"`
}

type ListResult struct {
	Total   int    `json:"total"`
	Pending int    `json:"pending"`
	Items   []Item `json:"items"`
}

type Service interface {
	Create(ctx context.Context, userID string, req domain.CreateReminderRequest) (*Item, error)
	List(ctx context.Context, userID string, f ListFilter) (*ListResult, error)
	Update(ctx context.Context, userID, reminderID string, req domain.UpdateReminderRequest) (*Item, error)
	Cancel(ctx context.Context, userID, reminderID string) (*Item, error)
}

type service struct {
	store Store
	now   func() time.Time
}

// NewService builds the reminder management service. now defaults to the
// wall clock when nil.
func NewService(store Store, now func() time.Time) Service {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{store: store, now: now}
}

func (s *service) item(r *domain.Reminder, now time.Time) *Item {
	return &Item{Reminder: *r, Status: r.Status(now)}
}

func (s *service) Create(ctx context.Context, userID string, req domain.CreateReminderRequest) (*Item, error) {
	req.Text = strings.TrimSpace(req.Text)
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), domain.ErrBadRequest)
	}
	now := s.now()
	if !req.RemindAt.After(now) {
		return nil, fmt.Errorf("remind_at must be in the future: %w", domain.ErrBadRequest)
	}
	r := &domain.Reminder{
		ReminderID: id.New(),
		UserID:     userID,
		Text:       req.Text,
		RemindAt:   req.RemindAt.UTC(),
		CreatedAt:  now,
	}
	if err := s.store.Create(ctx, r); err != nil {
		return nil, err
	}
	slog.Info("reminder created", "reminder_id", r.ReminderID, "user_id", userID, "remind_at", r.RemindAt)
	return s.item(r, now), nil
}

func (s *service) List(ctx context.Context, userID string, f ListFilter) (*ListResult, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	rems, err := s.store.ListByUser(ctx, userID, !f.IncludeFinished, limit)
	if err != nil {
		return nil, err
	}
	total, pending, err := s.store.CountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	res := &ListResult{Total: total, Pending: pending, Items: make([]Item, 0, len(rems))}
	for i := range rems {
		res.Items = append(res.Items, *s.item(&rems[i], now))
	}
	return res, nil
}

// owned loads a reminder and hides other users' reminders behind ErrNotFound.
func (s *service) owned(ctx context.Context, userID, reminderID string) (*domain.Reminder, error) {
	r, err := s.store.Get(ctx, reminderID)
	if err != nil {
		return nil, err
	}
	if r.UserID != userID {
		return nil, fmt.Errorf("reminder %s: %w", reminderID, domain.ErrNotFound)
	}
	return r, nil
}

func (s *service) Update(ctx context.Context, userID, reminderID string, req domain.UpdateReminderRequest) (*Item, error) {
	if req.Text != nil {
		trimmed := strings.TrimSpace(*req.Text)
		req.Text = &trimmed
	}
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), domain.ErrBadRequest)
	}
	if req.Text == nil && req.RemindAt == nil {
		return nil, fmt.Errorf("nothing to update: %w", domain.ErrBadRequest)
	}
	now := s.now()
	if req.RemindAt != nil {
		if !req.RemindAt.After(now) {
			return nil, fmt.Errorf("remind_at must be in the future: %w", domain.ErrBadRequest)
		}
		at := req.RemindAt.UTC()
		req.RemindAt = &at
	}

	r, err := s.owned(ctx, userID, reminderID)
	if err != nil {
		return nil, err
	}
	if !r.Pending() {
		return nil, fmt.Errorf("reminder already %s: %w", strings.ToLower(string(r.Status(now))), domain.ErrConflict)
	}
	updated, err := s.store.UpdatePending(ctx, reminderID, req.Text, req.RemindAt)
	if errors.Is(err, domain.ErrConflict) {
		return nil, fmt.Errorf("reminder no longer pending: %w", domain.ErrConflict)
	}
	if err != nil {
		return nil, err
	}
	return s.item(updated, now), nil
}

func (s *service) Cancel(ctx context.Context, userID, reminderID string) (*Item, error) {
	now := s.now()
	r, err := s.owned(ctx, userID, reminderID)
	if err != nil {
		return nil, err
	}
	if !r.Pending() {
		return nil, fmt.Errorf("reminder already %s: %w", strings.ToLower(string(r.Status(now))), domain.ErrConflict)
	}
	cancelled, err := s.store.Cancel(ctx, reminderID, now)
	if errors.Is(err, domain.ErrConflict) {
		return nil, fmt.Errorf("reminder no longer pending: %w", domain.ErrConflict)
	}
	if err != nil {
		return nil, err
	}
	slog.Info("reminder cancelled", "reminder_id", reminderID, "user_id", userID)
	return s.item(cancelled, now), nil
}
