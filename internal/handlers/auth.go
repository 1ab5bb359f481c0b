package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/edupanel/apiserver/internal/routing"
	"github.com/edupanel/apiserver/internal/services"
	"github.com/edupanel/apiserver/internal/session"
	"github.com/edupanel/apiserver/internal/store"
	"github.com/edupanel/apiserver/types"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
)

const defaultTokenTTL = 24 * time.Hour

// RevocationChecker reports whether a bearer token was revoked by logout.
type RevocationChecker interface {
	Contains(ctx context.Context, token string) (bool, error)
}

// AuthHandler provides the identity lifecycle endpoints: register,
// login, logout, email verification, and the identity projection.
type AuthHandler struct {
	identity *services.IdentityService
	sessions *session.Tracker
	revoked  RevocationChecker
	secret   []byte
	tokenTTL time.Duration
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(
	identity *services.IdentityService,
	sessions *session.Tracker,
	revoked RevocationChecker,
	jwtSecret string,
	tokenTTL time.Duration,
) *AuthHandler {
	if tokenTTL <= 0 {
		tokenTTL = defaultTokenTTL
	}
	return &AuthHandler{
		identity: identity,
		sessions: sessions,
		revoked:  revoked,
		secret:   []byte(jwtSecret),
		tokenTTL: tokenTTL,
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, handler *AuthHandler) {
	r.Post("/register", handler.Register)
	r.Post("/login", handler.Login)
	r.Post("/verify-email", handler.VerifyEmail)
	r.Post("/resend-code", handler.ResendCode)
	r.With(handler.RequireAuth).Post("/logout", handler.Logout)
	r.With(handler.RequireAuth).Get("/me", handler.Me)
}

// RequireAuth enforces JWT authentication, rejects revoked tokens, and
// injects the subject and raw token into context.
func (h *AuthHandler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, err := bearerToken(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		subject, err := parseTokenSubject(tokenString, h.secret)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		if h.revoked != nil {
			revoked, err := h.revoked.Contains(r.Context(), tokenString)
			if err == nil && revoked {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
		}

		ctx := context.WithValue(r.Context(), contextSubjectKey, subject)
		ctx = context.WithValue(ctx, contextTokenKey, tokenString)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type RegisterRequest struct {
	Email    string     `json:"email"`
	Password string     `json:"password"`
	Role     types.Role `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type VerifyEmailRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type ResendCodeRequest struct {
	Email string `json:"email"`
}

// AuthResponse carries the token plus the derived identity and the
// destination the routing guard picked for it.
type AuthResponse struct {
	Token    string              `json:"token"`
	Identity types.UserIdentity  `json:"identity"`
	Next     routing.Destination `json:"next"`
}

// Register creates a new account and returns a JWT plus the next
// destination (always email verification for a fresh account).
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" || req.Role == "" {
		writeError(w, http.StatusBadRequest, "missing required fields")
		return
	}

	account, err := h.identity.Register(r.Context(), req.Email, req.Password, req.Role)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	h.respondWithSession(w, r, http.StatusCreated, account)
}

// Login verifies credentials and returns a JWT plus the next destination.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing credentials")
		return
	}

	account, err := h.identity.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	h.respondWithSession(w, r, http.StatusOK, account)
}

// Logout revokes the current token and clears the session. It always
// succeeds: a failed remote revocation never leaves the caller stuck
// logged in.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.identity.Logout(r.Context(), tokenFromContext(r.Context()))
	h.sessions.Clear()
	writeJSON(w, http.StatusOK, map[string]any{"next": routing.NextRoute(nil)})
}

// VerifyEmail redeems a confirmation code.
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req VerifyEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	if err := h.identity.VerifyEmail(r.Context(), strings.TrimSpace(req.Email), strings.TrimSpace(req.Code)); err != nil {
		switch {
		case errors.Is(err, types.ErrCodeMismatch):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "account not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to verify email")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "email verified"})
}

// ResendCode issues a fresh confirmation code for an unverified account.
func (h *AuthHandler) ResendCode(w http.ResponseWriter, r *http.Request) {
	var req ResendCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	if err := h.identity.ResendCode(r.Context(), strings.TrimSpace(req.Email)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "account not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to resend code")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "code sent"})
}

// Me returns the freshly derived identity and its destination. This is
// also the refresh hook: a user approved elsewhere sees the new state
// on their next call here.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	accountID, err := accountIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	identity, err := h.identity.Identity(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load identity")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"identity": identity,
		"next":     routing.NextRoute(&identity),
	})
}

func (h *AuthHandler) respondWithSession(w http.ResponseWriter, r *http.Request, status int, account types.Account) {
	token, err := issueToken(account.ID, h.secret, h.tokenTTL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create token")
		return
	}

	identity, err := h.identity.Identity(r.Context(), account.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load identity")
		return
	}

	h.sessions.Set(account.Credential())

	writeJSON(w, status, AuthResponse{
		Token:    token,
		Identity: identity,
		Next:     routing.NextRoute(&identity),
	})
}

func writeAuthError(w http.ResponseWriter, err error) {
	var validation *types.ValidationError
	switch {
	case errors.Is(err, types.ErrRoleRestricted):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, types.ErrDuplicateEmail):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, types.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "authentication failed")
	}
}

func issueToken(accountID string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   accountID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func parseTokenSubject(tokenString string, secret []byte) (string, error) {
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return secret, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("invalid token")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", errors.New("missing subject")
	}
	return claims.Subject, nil
}
