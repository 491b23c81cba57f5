package auth

import (
	"context"
	"net/http"

	"github.com/wolfman30/clinic-scheduler/internal/http/respond"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

type contextKey string

const claimsKey contextKey = "adminClaims"

// WithClaims stores authenticated admin claims on ctx.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext returns admin claims if present.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	return claims, ok && claims != nil
}

// Handler serves /api/auth.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a new auth handler
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	return &Handler{service: service, logger: logging.OrDefault(logger)}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenRequest struct {
	Refresh string `json:"refresh"`
	Token   string `json:"token"`
}

// Login handles POST /api/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, err)
		return
	}
	pair, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.Message(w, http.StatusOK, pair, "Login successful")
}

// Refresh handles POST /api/auth/token/refresh
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, err)
		return
	}
	access, err := h.service.Refresh(r.Context(), req.Refresh)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.OK(w, http.StatusOK, map[string]string{"access": access})
}

// Verify handles POST /api/auth/token/verify
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, err)
		return
	}
	claims, err := h.service.Verify(r.Context(), req.Token)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.OK(w, http.StatusOK, map[string]any{
		"valid":      true,
		"token_type": claims.TokenType,
		"expires_at": claims.ExpiresAt.Time,
	})
}

// Logout handles POST /api/auth/logout. The route sits behind the admin
// middleware, so the access token's claims are on the context.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, err)
		return
	}
	access, _ := ClaimsFromContext(r.Context())
	if err := h.service.Logout(r.Context(), req.Refresh, access); err != nil {
		h.logger.Warn("logout failed", "error", err)
		respond.Error(w, err)
		return
	}
	respond.Message(w, http.StatusOK, nil, "Logged out")
}

// Profile handles GET /api/auth/profile
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		respond.Error(w, ErrInvalidToken)
		return
	}
	respond.OK(w, http.StatusOK, h.service.Profile(claims))
}
