package auth

import (
	"context"
	"crypto/subtle"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

// Admin is the single configured administrator.
type Admin struct {
	Email        string
	Name         string
	PasswordHash string
}

// Profile is what GET /api/auth/profile returns.
type Profile struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// dummyHash keeps the cost of a failed lookup equal to a failed password check.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("clinic-scheduler-placeholder"), bcrypt.MinCost)

// Service authenticates the administrator and manages token lifecycles.
type Service struct {
	admin       Admin
	issuer      *Issuer
	revocations RevocationStore
	logger      *logging.Logger
}

// NewService wires the auth service. A nil revocation store falls back to memory.
func NewService(admin Admin, issuer *Issuer, revocations RevocationStore, logger *logging.Logger) *Service {
	if revocations == nil {
		revocations = NewMemoryRevocationStore()
	}
	admin.Email = strings.ToLower(strings.TrimSpace(admin.Email))
	return &Service{
		admin:       admin,
		issuer:      issuer,
		revocations: revocations,
		logger:      logging.OrDefault(logger),
	}
}

// Enabled reports whether admin login is configured.
func (s *Service) Enabled() bool {
	return s.issuer.Enabled() && s.admin.Email != "" && s.admin.PasswordHash != ""
}

// Login checks the credentials and returns a fresh access/refresh pair.
func (s *Service) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	if !s.Enabled() {
		return nil, ErrAuthDisabled
	}
	email = strings.ToLower(strings.TrimSpace(email))

	hash := []byte(s.admin.PasswordHash)
	emailMatch := subtle.ConstantTimeCompare([]byte(email), []byte(s.admin.Email)) == 1
	if !emailMatch {
		hash = dummyHash
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil || !emailMatch {
		s.logger.Warn("admin login failed", "email", email)
		return nil, ErrInvalidCredentials
	}

	access, _, err := s.issuer.Sign(TokenAccess, s.admin.Email, s.admin.Name)
	if err != nil {
		return nil, err
	}
	refresh, _, err := s.issuer.Sign(TokenRefresh, s.admin.Email, s.admin.Name)
	if err != nil {
		return nil, err
	}
	s.logger.Info("admin logged in", "email", email)
	return &TokenPair{Access: access, Refresh: refresh}, nil
}

// Refresh exchanges a valid refresh token for a new access token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.check(ctx, refreshToken, TokenRefresh)
	if err != nil {
		return "", err
	}
	access, _, err := s.issuer.Sign(TokenAccess, claims.Email, claims.Name)
	return access, err
}

// Verify reports whether token is a live token of either kind.
func (s *Service) Verify(ctx context.Context, token string) (*Claims, error) {
	return s.check(ctx, token, "")
}

// Authenticate validates an access token presented on an admin request.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*Claims, error) {
	return s.check(ctx, accessToken, TokenAccess)
}

// Logout revokes the refresh token and, when given, the access token in use.
func (s *Service) Logout(ctx context.Context, refreshToken string, access *Claims) error {
	claims, err := s.check(ctx, refreshToken, TokenRefresh)
	if err != nil {
		return err
	}
	if err := s.revoke(ctx, claims); err != nil {
		return err
	}
	if access != nil {
		if err := s.revoke(ctx, access); err != nil {
			return err
		}
	}
	s.logger.Info("admin logged out", "email", claims.Email)
	return nil
}

// Profile describes the admin a token belongs to.
func (s *Service) Profile(claims *Claims) Profile {
	name := claims.Name
	if name == "" {
		name = s.admin.Name
	}
	return Profile{Email: claims.Email, Name: name, Role: "admin"}
}

func (s *Service) check(ctx context.Context, token string, want TokenType) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	claims, err := s.issuer.Parse(token, want)
	if err != nil {
		return nil, err
	}
	revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		// A revocation lookup failure must not let a logged-out token through.
		s.logger.Error("revocation lookup failed", "error", err)
		return nil, err
	}
	if revoked {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

func (s *Service) revoke(ctx context.Context, claims *Claims) error {
	until := time.Now().Add(time.Hour)
	if claims.ExpiresAt != nil {
		until = claims.ExpiresAt.Time
	}
	return s.revocations.Revoke(ctx, claims.ID, until)
}
