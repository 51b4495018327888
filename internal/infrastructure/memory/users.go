package memory

import (
	"context"

	"github.com/pinme-ledger/internal/domain"
)

type UserRepo struct{ s *Store }

// Put inserts or replaces a user. The onboarding flow owns user creation, so
// this is only used for seeding.
func (r *UserRepo) Put(_ context.Context, u *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *u
	cp.Name = clonePtr(u.Name)
	r.s.users[u.UserID] = cp
	return nil
}

func (r *UserRepo) Get(_ context.Context, userID string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

func (r *UserRepo) GetByPhone(_ context.Context, phoneNumber string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.PhoneNumber == phoneNumber {
			return &u, nil
		}
	}
	return nil, domain.ErrNotFound
}
