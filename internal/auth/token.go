package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"collabnotes.org/internal/ids"
)

// Issuer and Audience are fixed tags embedded in every signed token and
// required on every verified one.
const (
	Issuer   = "collab-notes-backend"
	Audience = "collab-notes-users"
)

// Token kinds. Access tokens authorize API calls; refresh tokens only mint
// new pairs and are rejected everywhere else.
const (
	KindAccess  = "access"
	KindRefresh = "refresh"
)

// Claims is the typed claim set carried inside a signed token. Email and
// role are present on access tokens only.
type Claims struct {
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// Codec signs and verifies session tokens with a shared HS256 secret.
type Codec struct {
	secret []byte
	now    func() time.Time
}

// CodecOption configures Codec behavior.
type CodecOption func(*Codec)

// WithCodecClock overrides the time source (useful for tests).
func WithCodecClock(fn func() time.Time) CodecOption {
	return func(c *Codec) {
		if fn != nil {
			c.now = fn
		}
	}
}

// NewCodec constructs a Codec. The secret is mandatory; running without one
// would make every token forgeable.
func NewCodec(secret string, opts ...CodecOption) (*Codec, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth secret is not configured")
	}
	c := &Codec{secret: []byte(secret), now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SignAccess issues an access token carrying the resolved identity.
func (c *Codec) SignAccess(identity Identity, ttl time.Duration) (string, error) {
	return c.sign(Claims{
		Email:     identity.Email,
		Role:      identity.Role,
		TokenType: KindAccess,
	}, identity.ID, ttl)
}

// SignRefresh issues a refresh token carrying only the subject id.
func (c *Codec) SignRefresh(userID string, ttl time.Duration) (string, error) {
	return c.sign(Claims{TokenType: KindRefresh}, userID, ttl)
}

func (c *Codec) sign(claims Claims, subject string, ttl time.Duration) (string, error) {
	if strings.TrimSpace(subject) == "" {
		return "", errors.New("subject is required")
	}
	if ttl <= 0 {
		return "", errors.New("ttl must be greater than zero")
	}
	now := c.now().UTC()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    Issuer,
		Audience:  jwt.ClaimStrings{Audience},
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        ids.New(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, expiry, issuer and audience. Every rejection
// reason collapses into ErrInvalidToken; the wrapped detail is for internal
// logs only and must never be surfaced to a client. Token kind is left for
// the caller to assert, since the expected kind depends on the endpoint.
func (c *Codec) Verify(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", t.Method.Alg())
		}
		return c.secret, nil
	},
		jwt.WithTimeFunc(func() time.Time { return c.now().UTC() }),
		jwt.WithIssuer(Issuer),
		jwt.WithAudience(Audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, fmt.Errorf("%w: subject missing", ErrInvalidToken)
	}
	if claims.TokenType != KindAccess && claims.TokenType != KindRefresh {
		return nil, fmt.Errorf("%w: unknown token kind", ErrInvalidToken)
	}
	return claims, nil
}
