package reminder

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pinme-ledger/internal/domain"
	"github.com/pinme-ledger/internal/infrastructure/memory"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type sent struct {
	to, text string
}

// fakeSender records deliveries and fails for numbers listed in failFor.
type fakeSender struct {
	mu      sync.Mutex
	sent    []sent
	failFor map[string]error
	onSend  func(to string)
}

func (s *fakeSender) SendText(_ context.Context, to, text string) error {
	if s.onSend != nil {
		s.onSend(to)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failFor[to]; err != nil {
		return err
	}
	s.sent = append(s.sent, sent{to: to, text: text})
	return nil
}

func (s *fakeSender) messages() []sent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sent(nil), s.sent...)
}

func (s *fakeSender) setFail(to string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failFor == nil {
		s.failFor = map[string]error{}
	}
	if err == nil {
		delete(s.failFor, to)
		return
	}
	s.failFor[to] = err
}

func strPtr(s string) *string { return &s }

func seedUser(t *testing.T, store *memory.Store, userID, phone string, name *string) {
	t.Helper()
	require.NoError(t, store.Users().Put(context.Background(), &domain.User{
		UserID: userID, PhoneNumber: phone, Name: name, Onboarded: true, Timezone: "Asia/Kolkata",
	}))
}

func seedReminder(t *testing.T, store *memory.Store, reminderID, userID, text string, remindAt time.Time) {
	t.Helper()
	require.NoError(t, store.Reminders().Create(context.Background(), &domain.Reminder{
		ReminderID: reminderID, UserID: userID, Text: text, RemindAt: remindAt, CreatedAt: remindAt.Add(-time.Hour),
	}))
}
