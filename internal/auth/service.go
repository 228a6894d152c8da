package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"yitro.org/internal/ids"
)

// Service orchestrates sign-in, identity resolution and admin user
// provisioning on top of the credential store and session ledger.
type Service struct {
	store      Store
	tokens     *TokenService
	bcryptCost int
	now        func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithBcryptCost overrides the password hashing work factor.
func WithBcryptCost(cost int) ServiceOption {
	return func(s *Service) {
		if cost > 0 {
			s.bcryptCost = cost
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs Service with optional configuration.
func NewService(store Store, tokens *TokenService, opts ...ServiceOption) *Service {
	svc := &Service{
		store:      store,
		tokens:     tokens,
		bcryptCost: 10,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// SignInResult carries the authenticated user and the issued token.
type SignInResult struct {
	User      *User
	Token     string
	ExpiresAt time.Time
}

// SignIn validates credentials, rotates the user's session and issues a
// bearer token. "No such user" and "wrong password" both surface as
// ErrInvalidCredentials so the response does not reveal which one it was.
func (s *Service) SignIn(ctx context.Context, email, password string, origin Origin) (SignInResult, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return SignInResult{}, ErrInvalidCredentials
	}
	user, err := s.store.Users().FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return SignInResult{}, ErrInvalidCredentials
		}
		return SignInResult{}, fmt.Errorf("find user: %w", err)
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return SignInResult{}, ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return SignInResult{}, fmt.Errorf("issue token: %w", err)
	}

	now := s.now().UTC()
	session := &Session{
		ID:        ids.New(),
		UserID:    user.ID,
		TokenHash: hashToken(token),
		ExpiresAt: expiresAt,
		IPAddress: origin.IPAddress,
		UserAgent: origin.UserAgent,
		Active:    true,
		CreatedAt: now,
	}
	if err := s.store.Sessions().Replace(ctx, session); err != nil {
		return SignInResult{}, fmt.Errorf("replace session: %w", err)
	}
	if err := s.store.Users().RecordLogin(ctx, user.ID, now); err != nil {
		return SignInResult{}, fmt.Errorf("record login: %w", err)
	}
	user.LastLogin = &now

	return SignInResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

// Authenticate verifies a bearer token and re-resolves the user on
// every call. The session ledger is not consulted; it is bookkeeping,
// not an enforcement mechanism.
func (s *Service) Authenticate(ctx context.Context, token string) (*User, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	user, err := s.store.Users().Find(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("resolve user: %w", err)
	}
	return user, nil
}

// CreateUser provisions a user record. Role defaults to "user"; the
// email must be unused under case-insensitive comparison. Accounts are
// created verified since no email verification flow exists.
func (s *Service) CreateUser(ctx context.Context, input NewUser) (*User, error) {
	email := NormalizeEmail(input.Email)
	displayName := strings.TrimSpace(input.DisplayName)
	if email == "" || displayName == "" || input.Password == "" {
		return nil, ErrInvalidInput
	}
	role := strings.TrimSpace(input.Role)
	if role == "" {
		role = RoleUser
	}
	if !ValidRole(role) {
		return nil, ErrInvalidInput
	}

	if _, err := s.store.Users().FindByEmail(ctx, email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	hash, err := HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	user := &User{
		ID:            ids.New(),
		Email:         email,
		PasswordHash:  hash,
		DisplayName:   displayName,
		Role:          role,
		EmailVerified: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.Users().Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ListUsers returns all users, newest first, without password hashes.
func (s *Service) ListUsers(ctx context.Context) ([]*User, error) {
	return s.store.Users().List(ctx)
}

// hashToken stores a digest of the issued token on the session row so
// the ledger never holds a usable credential.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
