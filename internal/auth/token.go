package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is the validity window of a session token.
const DefaultTokenTTL = 24 * time.Hour

var (
	ErrUnauthenticated = errors.New("unauthenticated")

	ErrMissingToken     = fmt.Errorf("%w: missing bearer token", ErrUnauthenticated)
	ErrMalformedToken   = fmt.Errorf("%w: malformed token", ErrUnauthenticated)
	ErrSignatureInvalid = fmt.Errorf("%w: invalid token signature", ErrUnauthenticated)
	ErrTokenExpired     = fmt.Errorf("%w: token expired", ErrUnauthenticated)
)

// Claims is what a validated session token proves about its bearer.
type Claims struct {
	UserID    uint64
	Username  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type tokenClaims struct {
	jwt.RegisteredClaims
	UserID   uint64 `json:"uid"`
	Username string `json:"username"`
}

// TokenService issues and validates HS256 session tokens. It holds no state
// beyond the signing secret and its clock.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService builds a token service. A nil clock means time.Now; a
// non-positive ttl means DefaultTokenTTL.
func NewTokenService(secret []byte, ttl time.Duration, now func() time.Time) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	if now == nil {
		now = time.Now
	}
	return &TokenService{secret: secret, ttl: ttl, now: now}
}

func (s *TokenService) Issue(userID uint64, username string) (string, error) {
	iat := s.now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(userID, 10),
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(iat.Add(s.ttl)),
		},
		UserID:   userID,
		Username: username,
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate checks the signature, then the expiry against the service clock.
// Expiry is compared as epoch seconds, never as formatted wall-clock time.
func (s *TokenService) Validate(tokenString string) (Claims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return Claims{}, ErrMissingToken
	}

	var tc tokenClaims
	token, err := jwt.ParseWithClaims(tokenString, &tc,
		func(t *jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return Claims{}, ErrMalformedToken
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
			return Claims{}, ErrSignatureInvalid
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, ErrTokenExpired
		default:
			return Claims{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
		}
	}
	if !token.Valid || tc.UserID == 0 || tc.Username == "" {
		return Claims{}, ErrMalformedToken
	}

	c := Claims{UserID: tc.UserID, Username: tc.Username}
	if tc.IssuedAt != nil {
		c.IssuedAt = tc.IssuedAt.UTC()
	}
	c.ExpiresAt = tc.ExpiresAt.UTC()
	return c, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrMalformedToken
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}
