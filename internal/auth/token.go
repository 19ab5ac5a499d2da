package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Sentinel errors for token decoding. Expiry is deliberately not part of
// Decode: callers that need to tell "bad signature" from "signature fine but
// expired" check expiry separately.
var (
	ErrMalformedToken   = errors.New("auth: malformed token")
	ErrInvalidSignature = errors.New("auth: invalid token signature")
	ErrTokenExpired     = errors.New("auth: token expired")
	ErrEmptySubject     = errors.New("auth: empty subject")
)

// Claims describes the JWT payload carried by issued tokens.
type Claims struct {
	UserID int `json:"userId"`
	jwt.RegisteredClaims
}

// ExpiredAt reports whether the claims are expired at the given instant.
// Strictly-after comparison: a token is still valid at the exact expiry
// instant and expired one tick later.
func (c *Claims) ExpiredAt(now time.Time) bool {
	return c.ExpiresAt != nil && now.After(c.ExpiresAt.Time)
}

// TokenCodec issues and verifies HS256-signed JWTs against a single
// process-wide secret. All methods are pure and safe for concurrent use.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenCodec builds a codec. The validity window defaults to 10 hours.
func NewTokenCodec(secret string, ttlHours int) *TokenCodec {
	if ttlHours <= 0 {
		ttlHours = 10
	}
	return &TokenCodec{secret: []byte(secret), ttl: time.Duration(ttlHours) * time.Hour}
}

// Issue builds and signs a token asserting the given subject and user id.
func (tc *TokenCodec) Issue(subject string, userID int) (string, error) {
	if subject == "" {
		return "", ErrEmptySubject
	}
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tc.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tc.secret)
}

// Decode parses the token and verifies its signature, returning the embedded
// claims. Expired tokens still decode successfully; see IsExpired.
func (tc *TokenCodec) Decode(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return tc.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
		default:
			return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
		}
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrMalformedToken
	}
	return claims, nil
}

// ExtractSubject returns the subject claim. Each Extract* performs a full
// Decode; callers needing several fields should Decode once instead.
func (tc *TokenCodec) ExtractSubject(token string) (string, error) {
	claims, err := tc.Decode(token)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// ExtractUserID returns the userId claim.
func (tc *TokenCodec) ExtractUserID(token string) (int, error) {
	claims, err := tc.Decode(token)
	if err != nil {
		return 0, err
	}
	return claims.UserID, nil
}

// ExtractExpiresAt returns the expiry timestamp.
func (tc *TokenCodec) ExtractExpiresAt(token string) (time.Time, error) {
	claims, err := tc.Decode(token)
	if err != nil {
		return time.Time{}, err
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, ErrMalformedToken
	}
	return claims.ExpiresAt.Time, nil
}

// IsExpired decodes the token and compares its expiry to the current time.
func (tc *TokenCodec) IsExpired(token string) (bool, error) {
	claims, err := tc.Decode(token)
	if err != nil {
		return false, err
	}
	return claims.ExpiredAt(time.Now()), nil
}
