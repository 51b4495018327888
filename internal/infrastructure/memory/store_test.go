package memory

import (
	"context"
	"testing"
	"time"

	"github.com/pinme-ledger/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func TestLoginTokens_ExpireLiveKeepsNewest(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().LoginTokens()
	require.NoError(t, repo.Create(ctx, &domain.LoginToken{TokenID: "01A", PhoneNumber: "919", CodeHash: "h1", ExpiresAt: t0.Add(5 * time.Minute), CreatedAt: t0}))
	require.NoError(t, repo.Create(ctx, &domain.LoginToken{TokenID: "01B", PhoneNumber: "919", CodeHash: "h2", ExpiresAt: t0.Add(5 * time.Minute), CreatedAt: t0}))
	require.NoError(t, repo.Create(ctx, &domain.LoginToken{TokenID: "01C", PhoneNumber: "920", CodeHash: "h3", ExpiresAt: t0.Add(5 * time.Minute), CreatedAt: t0}))

	n, err := repo.ExpireLive(ctx, "919", "01B", t0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, repo.Live("919", t0))
	assert.Equal(t, 1, repo.Live("920", t0))

	_, err = repo.FindLatestValid(ctx, "919", "h1", t0)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	tok, err := repo.FindLatestValid(ctx, "919", "h2", t0)
	require.NoError(t, err)
	assert.Equal(t, "01B", tok.TokenID)
}

func TestLoginTokens_MarkUsedIsConditional(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().LoginTokens()
	require.NoError(t, repo.Create(ctx, &domain.LoginToken{TokenID: "01A", PhoneNumber: "919", CodeHash: "h", ExpiresAt: t0.Add(time.Minute), CreatedAt: t0}))

	require.NoError(t, repo.MarkUsed(ctx, "919", "01A", t0))
	assert.ErrorIs(t, repo.MarkUsed(ctx, "919", "01A", t0), domain.ErrConflict)
	assert.ErrorIs(t, repo.MarkUsed(ctx, "919", "missing", t0), domain.ErrNotFound)
}

func TestLoginTokens_DeleteStale(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().LoginTokens()
	used := t0
	require.NoError(t, repo.Create(ctx, &domain.LoginToken{TokenID: "live", PhoneNumber: "1", ExpiresAt: t0.Add(time.Minute), CreatedAt: t0}))
	require.NoError(t, repo.Create(ctx, &domain.LoginToken{TokenID: "expired", PhoneNumber: "1", ExpiresAt: t0, CreatedAt: t0}))
	require.NoError(t, repo.Create(ctx, &domain.LoginToken{TokenID: "used", PhoneNumber: "1", ExpiresAt: t0.Add(time.Minute), UsedAt: &used, CreatedAt: t0}))

	n, err := repo.DeleteStale(ctx, t0)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, repo.Live("1", t0))
}

func TestReminders_ListDueOrderingAndLimit(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.Users().Put(ctx, &domain.User{UserID: "u1", PhoneNumber: "919", Name: strPtr("Asha K")}))
	rems := s.Reminders()
	require.NoError(t, rems.Create(ctx, &domain.Reminder{ReminderID: "r2", UserID: "u1", Text: "b", RemindAt: t0.Add(-time.Minute)}))
	require.NoError(t, rems.Create(ctx, &domain.Reminder{ReminderID: "r1", UserID: "u1", Text: "a", RemindAt: t0.Add(-time.Hour)}))
	require.NoError(t, rems.Create(ctx, &domain.Reminder{ReminderID: "r3", UserID: "u1", Text: "c", RemindAt: t0.Add(time.Hour)}))
	require.NoError(t, rems.Create(ctx, &domain.Reminder{ReminderID: "orphan", UserID: "gone", Text: "x", RemindAt: t0.Add(-time.Hour)}))

	due, err := rems.ListDue(ctx, t0, 10)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "r1", due[0].ReminderID)
	assert.Equal(t, "919", due[0].PhoneNumber)
	assert.Equal(t, "Asha K", *due[0].UserName)

	due, err = rems.ListDue(ctx, t0, 1)
	require.NoError(t, err)
	assert.Len(t, due, 1)
}

func TestReminders_SentAndCancelledAreExclusive(t *testing.T) {
	ctx := context.Background()
	rems := NewStore().Reminders()
	require.NoError(t, rems.Create(ctx, &domain.Reminder{ReminderID: "r1", UserID: "u1", Text: "a", RemindAt: t0}))
	require.NoError(t, rems.Create(ctx, &domain.Reminder{ReminderID: "r2", UserID: "u1", Text: "b", RemindAt: t0}))

	require.NoError(t, rems.MarkSent(ctx, "r1", t0))
	_, err := rems.Cancel(ctx, "r1", t0)
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = rems.Cancel(ctx, "r2", t0)
	require.NoError(t, err)
	assert.ErrorIs(t, rems.MarkSent(ctx, "r2", t0), domain.ErrConflict)
	_, err = rems.UpdatePending(ctx, "r2", strPtr("new"), nil)
	assert.ErrorIs(t, err, domain.ErrConflict)

	total, pending, err := rems.CountByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, 0, pending)
}

func TestReminders_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	rems := NewStore().Reminders()
	require.NoError(t, rems.Create(ctx, &domain.Reminder{ReminderID: "r1", UserID: "u1", Text: "a", RemindAt: t0}))
	got, err := rems.Get(ctx, "r1")
	require.NoError(t, err)
	got.Text = "mutated"
	again, err := rems.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "a", again.Text)
}
