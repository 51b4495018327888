// Package memory is a mutex-guarded in-process store used for local runs and
// tests. It honours the same conditional-write rules as the postgres and
// dynamo backends.
package memory

import (
	"sync"

	"github.com/pinme-ledger/internal/domain"
)

type Store struct {
	mu        sync.Mutex
	users     map[string]domain.User
	tokens    map[string]domain.LoginToken
	reminders map[string]domain.Reminder
}

func NewStore() *Store {
	return &Store{
		users:     make(map[string]domain.User),
		tokens:    make(map[string]domain.LoginToken),
		reminders: make(map[string]domain.Reminder),
	}
}

func (s *Store) Users() *UserRepo             { return &UserRepo{s: s} }
func (s *Store) LoginTokens() *LoginTokenRepo { return &LoginTokenRepo{s: s} }
func (s *Store) Reminders() *ReminderRepo     { return &ReminderRepo{s: s} }

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
