package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pinme-ledger/internal/domain"
	"github.com/pinme-ledger/internal/pkg/id"
	"github.com/pinme-ledger/internal/pkg/otp"
	"github.com/pinme-ledger/internal/pkg/phone"
)

const defaultCodeTTL = 5 * time.Minute

// TokenStore persists login tokens. MarkUsed must be a conditional write
// (used_at still unset, expires_at still in the future) and report
// domain.ErrConflict when the condition no longer holds.
type TokenStore interface {
	Create(ctx context.Context, t *domain.LoginToken) error
	ExpireLive(ctx context.Context, phoneNumber, keepTokenID string, now time.Time) (int, error)
	FindLatestValid(ctx context.Context, phoneNumber, codeHash string, now time.Time) (*domain.LoginToken, error)
	MarkUsed(ctx context.Context, phoneNumber, tokenID string, now time.Time) error
	DeleteStale(ctx context.Context, now time.Time) (int, error)
}

// UserStore looks up WhatsApp accounts.
type UserStore interface {
	GetByPhone(ctx context.Context, phoneNumber string) (*domain.User, error)
}

// Sender delivers a text message to a phone number.
type Sender interface {
	SendText(ctx context.Context, to, text string) error
}

type Service interface {
	RequestCode(ctx context.Context, phoneNumber string) error
	VerifyCode(ctx context.Context, phoneNumber, code string) (*domain.Identity, error)
	CleanupExpiredTokens(ctx context.Context) (int, error)
}

// ServiceDeps wires the OTP service. Now and GenerateCode default to the wall
// clock and otp.GenerateCode.
type ServiceDeps struct {
	TokenRepo    TokenStore
	UserRepo     UserStore
	Sender       Sender
	CodeTTL      time.Duration
	Now          func() time.Time
	GenerateCode func() (string, error)
}

type service struct {
	tokens       TokenStore
	users        UserStore
	sender       Sender
	codeTTL      time.Duration
	now          func() time.Time
	generateCode func() (string, error)
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		tokens:       deps.TokenRepo,
		users:        deps.UserRepo,
		sender:       deps.Sender,
		codeTTL:      deps.CodeTTL,
		now:          deps.Now,
		generateCode: deps.GenerateCode,
	}
	if s.codeTTL <= 0 {
		s.codeTTL = defaultCodeTTL
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.generateCode == nil {
		s.generateCode = otp.GenerateCode
	}
	return s
}

func (s *service) RequestCode(ctx context.Context, phoneNumber string) error {
	phoneNumber = phone.Normalize(phoneNumber)
	if phoneNumber == "" {
		return fmt.Errorf("phone number required: %w", domain.ErrBadRequest)
	}
	u, err := s.users.GetByPhone(ctx, phoneNumber)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("no account for phone: %w", domain.ErrNotOnboarded)
	}
	if err != nil {
		return err
	}
	if !u.Onboarded {
		return fmt.Errorf("account not onboarded: %w", domain.ErrNotOnboarded)
	}

	code, err := s.generateCode()
	if err != nil {
		return err
	}
	now := s.now()
	tok := &domain.LoginToken{
		TokenID:     id.New(),
		PhoneNumber: phoneNumber,
		CodeHash:    otp.Hash(code),
		ExpiresAt:   now.Add(s.codeTTL),
		CreatedAt:   now,
	}
	if err := s.tokens.Create(ctx, tok); err != nil {
		return err
	}
	// Everything issued before tok stops validating, including tokens from
	// requests that raced with this one.
	n, err := s.tokens.ExpireLive(ctx, phoneNumber, tok.TokenID, now)
	if err != nil {
		return err
	}
	if n > 0 {
		slog.Info("expired previous login codes", "phone", phoneNumber, "count", n)
	}

	if err := s.sender.SendText(ctx, phoneNumber, loginCodeMessage(code, s.codeTTL)); err != nil {
		slog.Warn("failed to send login code", "phone", phoneNumber, "token_id", tok.TokenID, "err", err)
		return fmt.Errorf("send login code: %w: %w", domain.ErrTransport, err)
	}
	slog.Info("login code sent", "phone", phoneNumber, "token_id", tok.TokenID)
	return nil
}

func (s *service) VerifyCode(ctx context.Context, phoneNumber, code string) (*domain.Identity, error) {
	phoneNumber = phone.Normalize(phoneNumber)
	code = strings.TrimSpace(code)
	if phoneNumber == "" || code == "" {
		return nil, domain.ErrInvalidOrExpired
	}
	now := s.now()
	tok, err := s.tokens.FindLatestValid(ctx, phoneNumber, otp.Hash(code), now)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrInvalidOrExpired
	}
	if err != nil {
		return nil, err
	}
	if err := s.tokens.MarkUsed(ctx, phoneNumber, tok.TokenID, now); err != nil {
		if errors.Is(err, domain.ErrConflict) || errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidOrExpired
		}
		return nil, err
	}
	u, err := s.users.GetByPhone(ctx, phoneNumber)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrInvalidOrExpired
	}
	if err != nil {
		return nil, err
	}
	return &domain.Identity{UserID: u.UserID, PhoneNumber: u.PhoneNumber, Name: u.Name}, nil
}

func (s *service) CleanupExpiredTokens(ctx context.Context) (int, error) {
	n, err := s.tokens.DeleteStale(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		slog.Info("deleted stale login tokens", "count", n)
	}
	return n, nil
}

func loginCodeMessage(code string, ttl time.Duration) string {
	return fmt.Sprintf("🔐 Your PinMe ledger login code is: *%s*\n\nValid for %d minutes. Don't share it with anyone.",
		code, int(ttl/time.Minute))
}
