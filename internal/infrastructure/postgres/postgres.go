package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pinme-ledger/internal/domain"
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	// Ping to fail fast.
	ctxPing, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPing()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) Users() *UserRepo             { return &UserRepo{pool: s.pool} }
func (s *Store) LoginTokens() *LoginTokenRepo { return &LoginTokenRepo{pool: s.pool} }
func (s *Store) Reminders() *ReminderRepo     { return &ReminderRepo{pool: s.pool} }

const schema = `
create table if not exists public.users (
	id text primary key,
	phone_number text not null unique,
	name text null,
	onboarded boolean not null default false,
	timezone text not null default 'Asia/Kolkata',
	created_at timestamptz not null default now()
);

create table if not exists public.login_tokens (
	id text primary key,
	phone_number text not null,
	code_hash text not null,
	expires_at timestamptz not null,
	used_at timestamptz null,
	created_at timestamptz not null default now()
);
create index if not exists login_tokens_phone_hash_idx on public.login_tokens (phone_number, code_hash);
create index if not exists login_tokens_expires_at_idx on public.login_tokens (expires_at);

create table if not exists public.reminders (
	id text primary key,
	user_id text not null references public.users (id) on delete cascade,
	text text not null,
	remind_at timestamptz not null,
	created_at timestamptz not null default now(),
	sent_at timestamptz null,
	cancelled_at timestamptz null,
	constraint reminders_sent_xor_cancelled check (sent_at is null or cancelled_at is null)
);
create index if not exists reminders_pending_remind_at_idx on public.reminders (remind_at)
	where sent_at is null and cancelled_at is null;
create index if not exists reminders_user_created_idx on public.reminders (user_id, created_at desc);
`

// Migrate creates the tables and indexes if they do not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", mapPgErr(err))
	}
	return nil
}

func mapPgErr(err error) error {
	// Unique violation, etc.
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return domain.ErrConflict
		case "23503":
			return domain.ErrNotFound
		case "23514":
			return domain.ErrConflict
		default:
			return fmt.Errorf("db_error %s: %s", pgErr.Code, pgErr.Message)
		}
	}
	return err
}
