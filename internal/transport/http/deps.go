package http

import (
	"context"

	"github.com/pinme-ledger/internal/application/auth"
	"github.com/pinme-ledger/internal/application/reminder"
	"github.com/pinme-ledger/internal/domain"
	jwtinfra "github.com/pinme-ledger/internal/infrastructure/jwt"
)

// UserRepository is the minimal interface the router requires from a user store.
// Users are written by the onboarding flow; the ledger only reads them.
type UserRepository interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByPhone(ctx context.Context, phoneNumber string) (*domain.User, error)
}

// Deps holds everything the router needs. Services are built by the caller
// because the background workers in main share them.
type Deps struct {
	UserRepo        UserRepository
	AuthService     auth.Service
	ReminderService reminder.Service
	JWTProvider     *jwtinfra.Provider
}
