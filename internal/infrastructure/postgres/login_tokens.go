package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pinme-ledger/internal/domain"
)

type LoginTokenRepo struct {
	pool *pgxpool.Pool
}

func (r *LoginTokenRepo) Create(ctx context.Context, t *domain.LoginToken) error {
	_, err := r.pool.Exec(ctx, `
		insert into public.login_tokens (id, phone_number, code_hash, expires_at, used_at, created_at)
		values ($1, $2, $3, $4, $5, $6)
	`, t.TokenID, t.PhoneNumber, t.CodeHash, t.ExpiresAt, t.UsedAt, t.CreatedAt)
	return mapPgErr(err)
}

func (r *LoginTokenRepo) ExpireLive(ctx context.Context, phoneNumber, keepTokenID string, now time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		update public.login_tokens
		set expires_at = $3
		where phone_number = $1
		  and id <> $2
		  and used_at is null
		  and expires_at > $3
	`, phoneNumber, keepTokenID, now)
	if err != nil {
		return 0, mapPgErr(err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *LoginTokenRepo) FindLatestValid(ctx context.Context, phoneNumber, codeHash string, now time.Time) (*domain.LoginToken, error) {
	var t domain.LoginToken
	err := r.pool.QueryRow(ctx, `
		select id, phone_number, code_hash, expires_at, used_at, created_at
		from public.login_tokens
		where phone_number = $1
		  and code_hash = $2
		  and used_at is null
		  and expires_at > $3
		order by created_at desc, id desc
		limit 1
	`, phoneNumber, codeHash, now).Scan(&t.TokenID, &t.PhoneNumber, &t.CodeHash, &t.ExpiresAt, &t.UsedAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, mapPgErr(err)
	}
	return &t, nil
}

func (r *LoginTokenRepo) MarkUsed(ctx context.Context, phoneNumber, tokenID string, now time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		update public.login_tokens
		set used_at = $3
		where id = $1
		  and phone_number = $2
		  and used_at is null
		  and expires_at > $3
	`, tokenID, phoneNumber, now)
	if err != nil {
		return mapPgErr(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (r *LoginTokenRepo) DeleteStale(ctx context.Context, now time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		delete from public.login_tokens
		where used_at is not null or expires_at <= $1
	`, now)
	if err != nil {
		return 0, mapPgErr(err)
	}
	return int(tag.RowsAffected()), nil
}
