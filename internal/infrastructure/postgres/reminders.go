package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pinme-ledger/internal/domain"
)

type ReminderRepo struct {
	pool *pgxpool.Pool
}

const reminderColumns = `id, user_id, text, remind_at, created_at, sent_at, cancelled_at`

func scanReminder(row pgx.Row) (*domain.Reminder, error) {
	var r domain.Reminder
	if err := row.Scan(&r.ReminderID, &r.UserID, &r.Text, &r.RemindAt, &r.CreatedAt, &r.SentAt, &r.CancelledAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, mapPgErr(err)
	}
	return &r, nil
}

func (r *ReminderRepo) Create(ctx context.Context, rem *domain.Reminder) error {
	_, err := r.pool.Exec(ctx, `
		insert into public.reminders (id, user_id, text, remind_at, created_at)
		values ($1, $2, $3, $4, $5)
	`, rem.ReminderID, rem.UserID, rem.Text, rem.RemindAt, rem.CreatedAt)
	return mapPgErr(err)
}

func (r *ReminderRepo) Get(ctx context.Context, reminderID string) (*domain.Reminder, error) {
	return scanReminder(r.pool.QueryRow(ctx, `select `+reminderColumns+` from public.reminders where id = $1`, reminderID))
}

func (r *ReminderRepo) ListByUser(ctx context.Context, userID string, pendingOnly bool, limit int) ([]domain.Reminder, error) {
	rows, err := r.pool.Query(ctx, `
		select `+reminderColumns+`
		from public.reminders
		where user_id = $1
		  and (not $2 or (sent_at is null and cancelled_at is null))
		order by created_at desc, id desc
		limit $3
	`, userID, pendingOnly, limit)
	if err != nil {
		return nil, mapPgErr(err)
	}
	defer rows.Close()

	out := []domain.Reminder{}
	for rows.Next() {
		rem, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rem)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgErr(err)
	}
	return out, nil
}

func (r *ReminderRepo) CountByUser(ctx context.Context, userID string) (total, pending int, err error) {
	err = r.pool.QueryRow(ctx, `
		select count(*),
		       count(*) filter (where sent_at is null and cancelled_at is null)
		from public.reminders
		where user_id = $1
	`, userID).Scan(&total, &pending)
	if err != nil {
		return 0, 0, mapPgErr(err)
	}
	return total, pending, nil
}

// pendingOrConflict distinguishes a missing row from one that is no longer
// pending after a conditional update matched nothing.
func (r *ReminderRepo) pendingOrConflict(ctx context.Context, reminderID string) error {
	if _, err := r.Get(ctx, reminderID); err != nil {
		return err
	}
	return domain.ErrConflict
}

func (r *ReminderRepo) UpdatePending(ctx context.Context, reminderID string, text *string, remindAt *time.Time) (*domain.Reminder, error) {
	rem, err := scanReminder(r.pool.QueryRow(ctx, `
		update public.reminders
		set text = coalesce($2, text),
		    remind_at = coalesce($3, remind_at)
		where id = $1
		  and sent_at is null
		  and cancelled_at is null
		returning `+reminderColumns, reminderID, text, remindAt))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, r.pendingOrConflict(ctx, reminderID)
	}
	return rem, err
}

func (r *ReminderRepo) Cancel(ctx context.Context, reminderID string, now time.Time) (*domain.Reminder, error) {
	rem, err := scanReminder(r.pool.QueryRow(ctx, `
		update public.reminders
		set cancelled_at = $2
		where id = $1
		  and sent_at is null
		  and cancelled_at is null
		returning `+reminderColumns, reminderID, now))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, r.pendingOrConflict(ctx, reminderID)
	}
	return rem, err
}

func (r *ReminderRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]domain.DueReminder, error) {
	rows, err := r.pool.Query(ctx, `
		select r.id, r.user_id, r.text, r.remind_at, r.created_at, r.sent_at, r.cancelled_at,
		       u.phone_number, u.name
		from public.reminders r
		join public.users u on u.id = r.user_id
		where r.sent_at is null
		  and r.cancelled_at is null
		  and r.remind_at <= $1
		order by r.remind_at asc, r.id asc
		limit $2
	`, now, limit)
	if err != nil {
		return nil, mapPgErr(err)
	}
	defer rows.Close()

	var out []domain.DueReminder
	for rows.Next() {
		var d domain.DueReminder
		if err := rows.Scan(&d.ReminderID, &d.UserID, &d.Text, &d.RemindAt, &d.CreatedAt, &d.SentAt, &d.CancelledAt,
			&d.PhoneNumber, &d.UserName); err != nil {
			return nil, mapPgErr(err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgErr(err)
	}
	return out, nil
}

func (r *ReminderRepo) MarkSent(ctx context.Context, reminderID string, now time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		update public.reminders
		set sent_at = $2
		where id = $1
		  and sent_at is null
		  and cancelled_at is null
	`, reminderID, now)
	if err != nil {
		return mapPgErr(err)
	}
	if tag.RowsAffected() == 0 {
		return r.pendingOrConflict(ctx, reminderID)
	}
	return nil
}
