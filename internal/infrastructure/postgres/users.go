package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pinme-ledger/internal/domain"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

const userColumns = `id, phone_number, name, onboarded, timezone, created_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.UserID, &u.PhoneNumber, &u.Name, &u.Onboarded, &u.Timezone, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, mapPgErr(err)
	}
	return &u, nil
}

func (r *UserRepo) Get(ctx context.Context, userID string) (*domain.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `select `+userColumns+` from public.users where id = $1`, userID))
}

func (r *UserRepo) GetByPhone(ctx context.Context, phoneNumber string) (*domain.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `select `+userColumns+` from public.users where phone_number = $1`, phoneNumber))
}

// Put upserts a user by id. Used to seed accounts outside the chat onboarding flow.
func (r *UserRepo) Put(ctx context.Context, u *domain.User) error {
	_, err := r.pool.Exec(ctx, `
		insert into public.users (id, phone_number, name, onboarded, timezone, created_at)
		values ($1, $2, $3, $4, $5, $6)
		on conflict (id) do update
		set phone_number = excluded.phone_number,
		    name = excluded.name,
		    onboarded = excluded.onboarded,
		    timezone = excluded.timezone
	`, u.UserID, u.PhoneNumber, u.Name, u.Onboarded, u.Timezone, u.CreatedAt)
	return mapPgErr(err)
}
