package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pinme-ledger/internal/application/auth"
	"github.com/pinme-ledger/internal/domain"
	"github.com/pinme-ledger/internal/pkg/validate"
	"github.com/pinme-ledger/internal/transport/http/middleware"
)

const (
	msgNotOnboarded  = "Number not active on PinMe. Please start a chat on WhatsApp first."
	msgSendFailed    = "Failed to send OTP. Please try again."
	msgInvalidCode   = "Invalid or expired code."
	msgVerifyFailed  = "Verification failed. Please try again."
	msgPhoneRequired = "Phone number is required"
)

// SessionSigner issues session tokens.
type SessionSigner interface {
	Sign(userID, phoneNumber string) (string, error)
	Expiry() time.Duration
}

// LedgerAuthHandler implements OTP login for the ledger web app.
type LedgerAuthHandler struct {
	svc          auth.Service
	signer       SessionSigner
	secureCookie bool
}

func NewLedgerAuthHandler(svc auth.Service, signer SessionSigner, secureCookie bool) *LedgerAuthHandler {
	return &LedgerAuthHandler{svc: svc, signer: signer, secureCookie: secureCookie}
}

type requestOTPBody struct {
	PhoneNumber string `json:"phone_number" validate:"required"`
}

type verifyOTPBody struct {
	PhoneNumber string `json:"phone_number" validate:"required"`
	Code        string `json:"code" validate:"required"`
}

func (h *LedgerAuthHandler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	var body requestOTPBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	body.PhoneNumber = strings.TrimSpace(body.PhoneNumber)
	if err := validate.Struct(body); err != nil {
		writeError(w, http.StatusBadRequest, msgPhoneRequired)
		return
	}
	err := h.svc.RequestCode(r.Context(), body.PhoneNumber)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, SuccessEnvelope{Success: true})
	case errors.Is(err, domain.ErrNotOnboarded), errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, msgNotOnboarded)
	default:
		slog.Error("request otp failed", "err", err)
		writeError(w, http.StatusInternalServerError, msgSendFailed)
	}
}

func (h *LedgerAuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var body verifyOTPBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(body); err != nil {
		writeError(w, http.StatusBadRequest, "Phone number and code are required")
		return
	}
	ident, err := h.svc.VerifyCode(r.Context(), body.PhoneNumber, body.Code)
	if errors.Is(err, domain.ErrInvalidOrExpired) {
		writeError(w, http.StatusBadRequest, msgInvalidCode)
		return
	}
	if err != nil {
		slog.Error("verify otp failed", "err", err)
		writeError(w, http.StatusInternalServerError, msgVerifyFailed)
		return
	}

	token, err := h.signer.Sign(ident.UserID, ident.PhoneNumber)
	if err != nil {
		slog.Error("sign session failed", "user_id", ident.UserID, "err", err)
		writeError(w, http.StatusInternalServerError, msgVerifyFailed)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.signer.Expiry() / time.Second),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	slog.Info("ledger login", "user_id", ident.UserID)
	writeJSON(w, http.StatusOK, SuccessEnvelope{Success: true})
}

func (h *LedgerAuthHandler) Logout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, SuccessEnvelope{Success: true})
}

func (h *LedgerAuthHandler) CheckAuth(w http.ResponseWriter, r *http.Request) {
	u, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, CheckAuthEnvelope{
		Authenticated: true,
		User:          SessionUser{Name: u.Name, PhoneNumber: u.PhoneNumber},
	})
}
