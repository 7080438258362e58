package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 30 * 24 * time.Hour

	// DefaultRoleID is assigned to every new registration ("user").
	DefaultRoleID = 2
)

// Service orchestrates the credential verifier, token codec and identity
// store into the session lifecycle: issue, rotate, authenticate.
type Service struct {
	store Store
	codec *Codec
	hash  Hasher
	now   func() time.Time

	accessTTL     time.Duration
	refreshTTL    time.Duration
	defaultRoleID int
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithAccessTTL configures access token lifetime.
func WithAccessTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.accessTTL = ttl
		}
		return nil
	}
}

// WithRefreshTTL configures refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
		return nil
	}
}

// WithHasher overrides the credential hasher (cost tuning).
func WithHasher(h Hasher) ServiceOption {
	return func(s *Service) error {
		s.hash = h
		return nil
	}
}

// WithDefaultRole overrides the role assigned on registration.
func WithDefaultRole(roleID int) ServiceOption {
	return func(s *Service) error {
		if roleID <= 0 {
			return errors.New("default role id must be positive")
		}
		s.defaultRoleID = roleID
		return nil
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// NewService constructs a Service with optional configuration.
func NewService(store Store, codec *Codec, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if codec == nil {
		return nil, errors.New("codec is required")
	}
	svc := &Service{
		store:         store,
		codec:         codec,
		hash:          NewHasher(DefaultBcryptCost),
		now:           time.Now,
		accessTTL:     defaultAccessTTL,
		refreshTTL:    defaultRefreshTTL,
		defaultRoleID: DefaultRoleID,
	}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

// AccessTTL reports the configured access token lifetime so the HTTP layer
// can advertise it alongside the token.
func (s *Service) AccessTTL() time.Duration { return s.accessTTL }

// RefreshTTL reports the configured refresh token lifetime; the cookie
// max-age must match it.
func (s *Service) RefreshTTL() time.Duration { return s.refreshTTL }

// TokenPair is the result of a successful issue or rotation.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// Register creates a new identity and issues its first token pair. The email
// must already be validated and is canonicalized to lower case here. A
// duplicate email (case-insensitive) returns ErrAlreadyExists.
func (s *Service) Register(ctx context.Context, email, password string) (TokenPair, Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return TokenPair{}, Identity{}, ErrInvalidCredentials
	}
	if _, err := s.store.FindByEmail(ctx, email); err == nil {
		return TokenPair{}, Identity{}, ErrAlreadyExists
	} else if !errors.Is(err, ErrNotFound) {
		return TokenPair{}, Identity{}, err
	}
	hash, err := s.hash.Hash(password)
	if err != nil {
		return TokenPair{}, Identity{}, err
	}
	user := &User{Email: email, PasswordHash: hash, RoleID: s.defaultRoleID}
	if err := s.store.Create(ctx, user); err != nil {
		return TokenPair{}, Identity{}, err
	}
	// Re-read through the store so the role name is resolved the same way
	// every other path resolves it.
	created, err := s.store.FindByID(ctx, user.ID)
	if err != nil {
		return TokenPair{}, Identity{}, err
	}
	identity := identityOf(created)
	pair, err := s.issue(identity)
	if err != nil {
		return TokenPair{}, Identity{}, err
	}
	return pair, identity, nil
}

// Login verifies credentials and issues a fresh token pair. Unknown email
// and wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (TokenPair, Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return TokenPair{}, Identity{}, ErrInvalidCredentials
	}
	user, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return TokenPair{}, Identity{}, ErrInvalidCredentials
		}
		return TokenPair{}, Identity{}, err
	}
	if err := s.hash.Verify(user.PasswordHash, password); err != nil {
		return TokenPair{}, Identity{}, err
	}
	identity := identityOf(user)
	pair, err := s.issue(identity)
	if err != nil {
		return TokenPair{}, Identity{}, err
	}
	return pair, identity, nil
}

// Refresh rotates a refresh token: it validates the presented token is a
// live refresh-kind token, re-resolves the identity (deletion invalidates
// all outstanding refresh tokens via this lookup), then issues a new pair.
// There is no server-side revocation list, so the previous refresh token
// stays technically valid until its natural expiry; rotation only narrows
// the replay window, by design.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, Identity, error) {
	claims, err := s.codec.Verify(refreshToken)
	if err != nil {
		return TokenPair{}, Identity{}, err
	}
	if claims.TokenType != KindRefresh {
		return TokenPair{}, Identity{}, fmt.Errorf("%w: not a refresh token", ErrInvalidToken)
	}
	user, err := s.store.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return TokenPair{}, Identity{}, fmt.Errorf("%w: subject no longer exists", ErrInvalidToken)
		}
		return TokenPair{}, Identity{}, err
	}
	identity := identityOf(user)
	pair, err := s.issue(identity)
	if err != nil {
		return TokenPair{}, Identity{}, err
	}
	return pair, identity, nil
}

// AuthenticateAccess resolves a bearer access token to a live identity.
// Kind mismatches surface as ErrInvalidToken; a valid token whose subject
// has been deleted surfaces as ErrNotFound so the transport can report
// "identity not found" distinctly from a bad token.
func (s *Service) AuthenticateAccess(ctx context.Context, token string) (Identity, error) {
	claims, err := s.codec.Verify(token)
	if err != nil {
		return Identity{}, err
	}
	if claims.TokenType != KindAccess {
		return Identity{}, fmt.Errorf("%w: %q presented as bearer credential", ErrWrongTokenKind, claims.TokenType)
	}
	user, err := s.store.FindByID(ctx, claims.Subject)
	if err != nil {
		return Identity{}, err
	}
	return identityOf(user), nil
}

// Profile returns the stored view of an identity.
func (s *Service) Profile(ctx context.Context, userID string) (*User, error) {
	return s.store.FindByID(ctx, userID)
}

// ChangePassword verifies the current credential and atomically replaces
// the stored hash.
func (s *Service) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.store.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.hash.Verify(user.PasswordHash, currentPassword); err != nil {
		return err
	}
	hash, err := s.hash.Hash(newPassword)
	if err != nil {
		return err
	}
	return s.store.UpdatePassword(ctx, userID, hash)
}

func (s *Service) issue(identity Identity) (TokenPair, error) {
	now := s.now().UTC()
	access, err := s.codec.SignAccess(identity, s.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.codec.SignRefresh(identity.ID, s.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  now.Add(s.accessTTL),
		RefreshExpiresAt: now.Add(s.refreshTTL),
	}, nil
}
