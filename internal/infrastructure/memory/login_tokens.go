package memory

import (
	"context"
	"sort"
	"time"

	"github.com/pinme-ledger/internal/domain"
)

type LoginTokenRepo struct{ s *Store }

func (r *LoginTokenRepo) Create(_ context.Context, t *domain.LoginToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tokens[t.TokenID]; ok {
		return domain.ErrConflict
	}
	cp := *t
	cp.UsedAt = clonePtr(t.UsedAt)
	r.s.tokens[t.TokenID] = cp
	return nil
}

func (r *LoginTokenRepo) ExpireLive(_ context.Context, phoneNumber, keepTokenID string, now time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for k, t := range r.s.tokens {
		if t.PhoneNumber != phoneNumber || t.TokenID == keepTokenID || !t.Live(now) {
			continue
		}
		t.ExpiresAt = now
		r.s.tokens[k] = t
		n++
	}
	return n, nil
}

func (r *LoginTokenRepo) FindLatestValid(_ context.Context, phoneNumber, codeHash string, now time.Time) (*domain.LoginToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var matches []domain.LoginToken
	for _, t := range r.s.tokens {
		if t.PhoneNumber == phoneNumber && t.CodeHash == codeHash && t.Live(now) {
			matches = append(matches, t)
		}
	}
	if len(matches) == 0 {
		return nil, domain.ErrNotFound
	}
	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].CreatedAt.After(matches[j].CreatedAt)
		}
		return matches[i].TokenID > matches[j].TokenID
	})
	return &matches[0], nil
}

func (r *LoginTokenRepo) MarkUsed(_ context.Context, phoneNumber, tokenID string, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tokens[tokenID]
	if !ok || t.PhoneNumber != phoneNumber {
		return domain.ErrNotFound
	}
	if !t.Live(now) {
		return domain.ErrConflict
	}
	used := now
	t.UsedAt = &used
	r.s.tokens[tokenID] = t
	return nil
}

func (r *LoginTokenRepo) DeleteStale(_ context.Context, now time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for k, t := range r.s.tokens {
		if t.UsedAt != nil || !t.ExpiresAt.After(now) {
			delete(r.s.tokens, k)
			n++
		}
	}
	return n, nil
}

// Live returns how many unused, unexpired tokens exist for a phone number.
func (r *LoginTokenRepo) Live(phoneNumber string, now time.Time) int {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, t := range r.s.tokens {
		if t.PhoneNumber == phoneNumber && t.Live(now) {
			n++
		}
	}
	return n
}
