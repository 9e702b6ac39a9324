package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vovakirdan/wirechat-sync/internal/store"
)

var (
	// ErrInvalidCredentials is returned when username/password don't match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserExists is returned when trying to register with existing username.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidUsername is returned when username doesn't meet constraints.
	ErrInvalidUsername = errors.New("invalid username")
	// ErrInvalidPassword is returned when password doesn't meet constraints.
	ErrInvalidPassword = errors.New("invalid password")
	// ErrAccountInactive is returned when a deactivated account tries to log in.
	ErrAccountInactive = errors.New("account inactive")
)

// Store is the subset of storage the auth service needs.
type Store interface {
	store.AccountStore
	store.SessionStore
}

// Service provides authentication operations.
type Service struct {
	store     Store
	jwtConfig *JWTConfig
	now       func() time.Time
}

// NewService creates a new authentication service.
func NewService(st Store, jwtConfig *JWTConfig) *Service {
	return &Service{
		store:     st,
		jwtConfig: jwtConfig,
		now:       time.Now,
	}
}

// Register creates a new account with hashed password and returns a session token.
func (s *Service) Register(ctx context.Context, username, password string) (string, error) {
	username = strings.TrimSpace(username)
	if len(username) < 3 || len(username) > 32 {
		return "", ErrInvalidUsername
	}
	if err := ValidatePassword(password); err != nil {
		return "", err
	}

	// Check if user already exists
	existing, err := s.store.GetAccountByUsername(ctx, username)
	if err == nil && existing != nil {
		return "", ErrUserExists
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("lookup account: %w", err)
	}

	hashedPassword, err := HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	account, err := s.store.CreateAccount(ctx, username, hashedPassword)
	if err != nil {
		return "", fmt.Errorf("create account: %w", err)
	}

	return s.issue(ctx, account)
}

// Login validates credentials and returns a fresh session token.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	account, err := s.store.GetAccountByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return "", ErrInvalidCredentials
	}

	if errPwd := ComparePassword(account.PasswordHash, password); errPwd != nil {
		return "", ErrInvalidCredentials
	}

	if !account.Active() {
		return "", ErrAccountInactive
	}

	return s.issue(ctx, account)
}

// Logout revokes the session behind the token.
func (s *Service) Logout(ctx context.Context, token string) error {
	claims, err := ValidateToken(s.jwtConfig, token)
	if err != nil {
		return ErrInvalidCredentials
	}
	if err := s.store.RevokeSession(ctx, claims.ID); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// ResolveSession maps a token to the account behind its session.
// It reports false for tokens that are malformed, expired or revoked;
// an error means the store could not answer.
func (s *Service) ResolveSession(ctx context.Context, token string) (int64, bool, error) {
	claims, err := ValidateToken(s.jwtConfig, token)
	if err != nil {
		return 0, false, nil
	}

	session, err := s.store.GetSession(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("get session: %w", err)
	}

	if !session.Valid(s.now()) {
		return 0, false, nil
	}

	return session.AccountID, true, nil
}

// SetAccountStatus activates or deactivates the named account and returns it.
// Sessions are left alone; a deactivated account fails validation anyway.
func (s *Service) SetAccountStatus(ctx context.Context, username string, status store.AccountStatus) (*store.Account, error) {
	account, err := s.store.GetAccountByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, fmt.Errorf("lookup account: %w", err)
	}
	if err := s.store.SetAccountStatus(ctx, account.ID, status); err != nil {
		return nil, fmt.Errorf("set account status: %w", err)
	}
	account.Status = status
	return account, nil
}

// ValidateToken validates a JWT token and returns the claims.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	return ValidateToken(s.jwtConfig, tokenString)
}

func (s *Service) issue(ctx context.Context, account *store.Account) (string, error) {
	now := s.now()
	session := &store.Session{
		ID:        uuid.NewString(),
		AccountID: account.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.jwtConfig.TTL),
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}

	token, err := GenerateToken(s.jwtConfig, session.ID, account.ID, account.Username, now)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return token, nil
}
