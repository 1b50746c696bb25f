// Package services contains server-side business logic. This file implements
// UserService, the session orchestrator: registration, login, refresh-token
// rotation, logout and current-user resolution.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jagcoaching/speechcoach/internal/common"
	"github.com/jagcoaching/speechcoach/internal/logging"
	"github.com/jagcoaching/speechcoach/internal/server/auth"
	"github.com/jagcoaching/speechcoach/internal/server/config"
	"github.com/jagcoaching/speechcoach/internal/server/models"
	"github.com/jagcoaching/speechcoach/internal/server/ratelimit"
	"github.com/jagcoaching/speechcoach/internal/server/repositories/repomanager"
)

var (
	// ErrInvalidCredentials is returned for every failed login, whatever the cause.
	ErrInvalidCredentials = fmt.Errorf("%w: incorrect email or password", common.ErrorUnauthorized)

	// ErrInvalidRefreshToken covers absent, expired, already used and orphaned
	// refresh tokens alike.
	ErrInvalidRefreshToken = fmt.Errorf("%w: %w", common.ErrorUnauthorized, common.ErrInvalidRefreshToken)
)

// RateLimitError is returned by Login when too many attempts were made.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("too many login attempts, retry in %s", e.RetryAfter.Round(time.Second))
}

func (e *RateLimitError) Unwrap() error { return common.ErrorTooManyRequests }

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    time.Duration
}

// UserService provides authentication-related operations.
type UserService struct {
	repomanager                  repomanager.RepositoryManager
	issuer                       *auth.Issuer
	refreshTokenValidityDuration time.Duration
	limiter                      ratelimit.Limiter
	log                          logging.Logger
	now                          func() time.Time

	// dummyHash is verified against when the email is unknown so both login
	// failures cost one bcrypt comparison.
	dummyHash string
}

// UserServiceOption customizes a UserService.
type UserServiceOption func(*UserService)

// WithLoginLimiter enables login throttling keyed by email and client IP.
func WithLoginLimiter(l ratelimit.Limiter) UserServiceOption {
	return func(s *UserService) { s.limiter = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) UserServiceOption {
	return func(s *UserService) { s.now = now }
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(m repomanager.RepositoryManager, cfg *config.Config, log logging.Logger, opts ...UserServiceOption) (*UserService, error) {
	issuer, err := auth.NewIssuer([]byte(cfg.SecretKey), cfg.SigningAlgorithm, cfg.AccessTokenValidityDuration)
	if err != nil {
		return nil, err
	}
	if cfg.RefreshTokenValidityDuration <= 0 {
		return nil, errors.New("refresh token lifetime must be positive")
	}

	seed, err := common.MakeRandHexString(16)
	if err != nil {
		return nil, err
	}
	dummy, err := auth.HashPassword(seed)
	if err != nil {
		return nil, err
	}

	s := &UserService{
		repomanager:                  m,
		issuer:                       issuer,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		log:                          log,
		now:                          time.Now,
		dummyHash:                    dummy,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an active user. An email that is already registered
// yields common.ErrorAlreadyExists and leaves the store untouched.
func (s *UserService) Register(ctx context.Context, email, password string) (*models.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", common.ErrorValidation)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("%w: hashing password: %w", common.ErrorInternal, err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    s.now().UTC(),
	}

	err = s.repomanager.WithinTx(ctx, func(ctx context.Context, m repomanager.RepositoryManager) error {
		repo := m.Users()
		_, err := repo.GetByEmail(ctx, email)
		switch {
		case err == nil:
			return common.ErrorAlreadyExists
		case !errors.Is(err, common.ErrorNotFound):
			return err
		}
		_, err = repo.Create(ctx, user)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("%w: error creating user: %w", common.ErrorInternal, err)
	}

	s.log.Info(ctx, "user registered", "user_id", user.ID)
	return user, nil
}

// Login verifies credentials and, on success, opens a new refresh session.
// Unknown email, wrong password and inactive account all return
// ErrInvalidCredentials.
func (s *UserService) Login(ctx context.Context, email, password string, meta models.DeviceInfo) (*TokenPair, error) {
	email = normalizeEmail(email)

	if err := s.checkLoginRate(ctx, email, meta.IP); err != nil {
		return nil, err
	}

	user, err := s.repomanager.Users().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			auth.VerifyPassword(password, s.dummyHash)
			s.log.Info(ctx, "login failed", "reason", "unknown email")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: error searching user: %w", common.ErrorInternal, err)
	}

	if !auth.VerifyPassword(password, user.PasswordHash) {
		s.log.Info(ctx, "login failed", "user_id", user.ID, "reason", "wrong password")
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		s.log.Info(ctx, "login failed", "user_id", user.ID, "reason", "inactive")
		return nil, ErrInvalidCredentials
	}

	pair, err := s.generateTokenPair(ctx, s.repomanager, user, meta)
	if err != nil {
		return nil, err
	}
	s.log.Info(ctx, "user logged in", "user_id", user.ID)
	return pair, nil
}

func (s *UserService) checkLoginRate(ctx context.Context, email, ip string) error {
	if s.limiter == nil {
		return nil
	}
	// keyed on the account alone; client addresses are cheap to rotate
	allowed, retryAfter, err := s.limiter.Allow(ctx, email, s.now())
	if err != nil {
		// a broken limiter must not lock every user out
		s.log.Warn(ctx, "login rate limiter unavailable", "error", err)
		return nil
	}
	if !allowed {
		s.log.Warn(ctx, "login rate limited", "ip", ip)
		return &RateLimitError{RetryAfter: retryAfter}
	}
	return nil
}

// RefreshToken rotates a refresh token. The presented token is consumed
// atomically before anything new is minted, so of two concurrent calls with
// the same token at most one succeeds. A failure after the consume loses
// the session rather than duplicating it.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string, meta models.DeviceInfo) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, ErrInvalidRefreshToken
	}

	old, err := s.repomanager.RefreshTokens().Consume(ctx, auth.HashRefreshToken(refreshToken), s.now())
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.log.Info(ctx, "refresh rejected", "token", logging.Redact(refreshToken))
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("%w: error consuming refresh token: %w", common.ErrorInternal, err)
	}

	user, err := s.repomanager.Users().GetByID(ctx, old.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("%w: error searching user: %w", common.ErrorInternal, err)
	}
	if !user.IsActive {
		return nil, ErrInvalidRefreshToken
	}

	if meta == (models.DeviceInfo{}) {
		meta = old.DeviceInfo
	}

	pair, err := s.generateTokenPair(ctx, s.repomanager, user, meta)
	if err != nil {
		return nil, err
	}
	s.log.Debug(ctx, "refresh token rotated", "user_id", user.ID)
	return pair, nil
}

// Logout ends sessions of userID. With a refresh token only that session is
// closed (if it belongs to the user), otherwise every session is.
func (s *UserService) Logout(ctx context.Context, userID, refreshToken string) error {
	repo := s.repomanager.RefreshTokens()

	if refreshToken != "" {
		hash := auth.HashRefreshToken(refreshToken)
		rt, err := repo.Find(ctx, hash, s.now())
		switch {
		case errors.Is(err, common.ErrorNotFound):
			return nil
		case err != nil:
			return fmt.Errorf("%w: error searching refresh token: %w", common.ErrorInternal, err)
		case rt.UserID != userID:
			s.log.Warn(ctx, "logout with foreign refresh token", "user_id", userID)
			return nil
		}
		if err := repo.Delete(ctx, hash); err != nil {
			return fmt.Errorf("%w: error deleting refresh token: %w", common.ErrorInternal, err)
		}
		s.log.Info(ctx, "user logged out", "user_id", userID, "sessions", 1)
		return nil
	}

	n, err := repo.DeleteByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("%w: error deleting refresh tokens: %w", common.ErrorInternal, err)
	}
	s.log.Info(ctx, "user logged out", "user_id", userID, "sessions", n)
	return nil
}

// Authenticate verifies an access token. Every verification failure is
// wrapped in common.ErrorUnauthorized.
func (s *UserService) Authenticate(ctx context.Context, accessToken string) (*auth.Claims, error) {
	claims, err := s.issuer.VerifyAccessToken(accessToken)
	if err != nil {
		s.log.Debug(ctx, "access token rejected", "reason", err)
		return nil, fmt.Errorf("%w: %w", common.ErrorUnauthorized, err)
	}
	return claims, nil
}

// CurrentUser resolves the owner of accessToken. An invalid token yields
// common.ErrorUnauthorized, a subject that no longer exists
// common.ErrorNotFound.
func (s *UserService) CurrentUser(ctx context.Context, accessToken string) (*models.User, error) {
	claims, err := s.Authenticate(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	user, err := s.repomanager.Users().GetByID(ctx, claims.UserID())
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("%w: error searching user: %w", common.ErrorInternal, err)
	}
	return user, nil
}

// SweepExpiredTokens deletes refresh tokens that have expired.
func (s *UserService) SweepExpiredTokens(ctx context.Context) (int64, error) {
	n, err := s.repomanager.RefreshTokens().DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("error sweeping refresh tokens: %w", err)
	}
	return n, nil
}

// --- helpers below ---

func (s *UserService) generateTokenPair(ctx context.Context, m repomanager.RepositoryManager, user *models.User, meta models.DeviceInfo) (*TokenPair, error) {
	access, err := s.issuer.IssueAccessToken(user.ID, map[string]any{"email": user.Email}, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: error signing access token: %w", common.ErrorInternal, err)
	}
	refresh, err := auth.NewRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("%w: error generating refresh token: %w", common.ErrorInternal, err)
	}

	now := s.now().UTC()
	rt := &models.RefreshToken{
		ID:         uuid.NewString(),
		UserID:     user.ID,
		TokenHash:  auth.HashRefreshToken(refresh),
		DeviceInfo: meta,
		ExpiresAt:  now.Add(s.refreshTokenValidityDuration),
		CreatedAt:  now,
	}
	if err := m.RefreshTokens().Create(ctx, rt); err != nil {
		return nil, fmt.Errorf("%w: error saving refresh token: %w", common.ErrorInternal, err)
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    common.TokenTypeBearer,
		ExpiresIn:    s.issuer.TTL(),
	}, nil
}
