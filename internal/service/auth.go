package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"portal/internal/api_client"
	"portal/internal/claims"
	"portal/internal/guard"
	"portal/internal/models"
)

var (
	ErrDevLoginDisabled = errors.New("development login is disabled")
	// ErrUnreadableToken means the backend issued a token the portal cannot decode.
	ErrUnreadableToken = errors.New("backend issued an unreadable token")
)

// devTokenTTL is the lifetime of quick-login tokens.
const devTokenTTL = 24 * time.Hour

// Backend is the part of the API client the auth flow needs.
type Backend interface {
	Login(ctx context.Context, creds models.Credentials) (string, error)
	Register(ctx context.Context, reg models.Registration) (*models.User, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, confirm models.PasswordResetConfirm) error
}

// Session is the outcome of a successful login.
type Session struct {
	Token  string
	Claims *claims.Claims
	// Landing is where the user goes when no other destination was requested.
	Landing string
}

type AuthService interface {
	Login(ctx context.Context, creds models.Credentials) (*Session, error)
	DevLogin(role string) (*Session, error)
	Register(ctx context.Context, reg models.Registration) error
	RequestPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, confirm models.PasswordResetConfirm) error
}

type authService struct {
	backend  Backend
	logger   *zap.Logger
	devLogin bool
	now      func() time.Time
}

func NewAuthService(backend Backend, devLogin bool, logger *zap.Logger) AuthService {
	return &authService{
		backend:  backend,
		logger:   logger,
		devLogin: devLogin,
		now:      time.Now,
	}
}

func (s *authService) Login(ctx context.Context, creds models.Credentials) (*Session, error) {
	token, err := s.backend.Login(ctx, creds)
	if err != nil {
		return nil, err
	}

	c, err := claims.Decode(token)
	if err != nil {
		s.logger.Error("Backend issued a token that does not decode", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrUnreadableToken, err)
	}
	if c.Expired(s.now()) {
		s.logger.Warn("Backend issued an already expired token", zap.String("user_id", c.AccountID()))
		return nil, fmt.Errorf("%w: token already expired", ErrUnreadableToken)
	}

	s.logger.Info("User logged in", zap.String("user_id", c.AccountID()), zap.String("role", c.Role))
	return &Session{Token: token, Claims: c, Landing: landingFor(c)}, nil
}

// DevLogin mints an unsigned token for role without contacting the backend.
func (s *authService) DevLogin(role string) (*Session, error) {
	if !s.devLogin {
		return nil, ErrDevLoginDisabled
	}

	c := claims.New(role, devTokenTTL, s.now())
	token, err := claims.Mint(c)
	if err != nil {
		return nil, fmt.Errorf("failed to mint development token: %w", err)
	}

	s.logger.Warn("Development login used", zap.String("role", role))
	return &Session{Token: token, Claims: c, Landing: landingFor(c)}, nil
}

func (s *authService) Register(ctx context.Context, reg models.Registration) error {
	user, err := s.backend.Register(ctx, reg)
	if err != nil {
		return err
	}
	s.logger.Info("User registered", zap.String("user_id", user.ID))
	return nil
}

func (s *authService) RequestPasswordReset(ctx context.Context, email string) error {
	return s.backend.RequestPasswordReset(ctx, email)
}

func (s *authService) ConfirmPasswordReset(ctx context.Context, confirm models.PasswordResetConfirm) error {
	return s.backend.ConfirmPasswordReset(ctx, confirm)
}

func landingFor(c *claims.Claims) string {
	if c.IsAdmin() {
		return guard.AdminLanding
	}
	return guard.UserLanding
}

// UserMessage maps an auth flow error to the inline text shown on the form.
func UserMessage(err error) string {
	if errors.Is(err, ErrUnreadableToken) {
		return "Login failed. Please try again."
	}
	if errors.Is(err, ErrDevLoginDisabled) {
		return "Development login is disabled."
	}
	return api_client.UserMessage(err)
}
