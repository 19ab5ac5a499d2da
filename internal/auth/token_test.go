package auth_test

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/user-api/internal/auth"
)

const testSecret = "unit-test-signing-secret"

// signedToken builds a token with an arbitrary expiry, bypassing the codec's
// fixed validity window.
func signedToken(t *testing.T, secret, subject string, userID int, exp time.Time) string {
	t.Helper()
	claims := &auth.Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(exp.Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestIssueDecodeRoundTrip(t *testing.T) {
	codec := auth.NewTokenCodec(testSecret, 10)

	token, err := codec.Issue("alice", 42)
	require.NoError(t, err)

	claims, err := codec.Decode(token)
	require.NoError(t, err)
	require.Equal(t, "alice", claims.Subject)
	require.Equal(t, 42, claims.UserID)
	require.False(t, claims.ExpiredAt(time.Now()))

	expired, err := codec.IsExpired(token)
	require.NoError(t, err)
	require.False(t, expired)
}

func TestIssueEmptySubject(t *testing.T) {
	codec := auth.NewTokenCodec(testSecret, 10)

	_, err := codec.Issue("", 1)
	require.ErrorIs(t, err, auth.ErrEmptySubject)
}

func TestDecodeWrongKey(t *testing.T) {
	issuer := auth.NewTokenCodec(testSecret, 10)
	verifier := auth.NewTokenCodec("rotated-secret", 10)

	token, err := issuer.Issue("alice", 42)
	require.NoError(t, err)

	_, err = verifier.Decode(token)
	require.ErrorIs(t, err, auth.ErrInvalidSignature)
}

func TestDecodeMalformed(t *testing.T) {
	codec := auth.NewTokenCodec(testSecret, 10)

	for _, token := range []string{"", "garbage", "a.b", "a.b.c.d"} {
		_, err := codec.Decode(token)
		require.ErrorIs(t, err, auth.ErrMalformedToken, "token %q", token)
	}
}

func TestDecodeTamperedPayload(t *testing.T) {
	codec := auth.NewTokenCodec(testSecret, 10)

	token, err := codec.Issue("alice", 42)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(payload, &body))
	body["sub"] = "mallory"
	altered, err := json.Marshal(body)
	require.NoError(t, err)

	parts[1] = base64.RawURLEncoding.EncodeToString(altered)
	_, err = codec.Decode(strings.Join(parts, "."))
	require.ErrorIs(t, err, auth.ErrInvalidSignature)
}

func TestDecodeDoesNotCheckExpiry(t *testing.T) {
	codec := auth.NewTokenCodec(testSecret, 10)
	token := signedToken(t, testSecret, "alice", 42, time.Now().Add(-time.Hour))

	claims, err := codec.Decode(token)
	require.NoError(t, err)
	require.Equal(t, "alice", claims.Subject)

	expired, err := codec.IsExpired(token)
	require.NoError(t, err)
	require.True(t, expired)
}

func TestIsExpired(t *testing.T) {
	codec := auth.NewTokenCodec(testSecret, 10)

	t.Run("future expiry", func(t *testing.T) {
		token := signedToken(t, testSecret, "alice", 42, time.Now().Add(time.Hour))
		expired, err := codec.IsExpired(token)
		require.NoError(t, err)
		require.False(t, expired)
	})

	t.Run("past expiry", func(t *testing.T) {
		token := signedToken(t, testSecret, "alice", 42, time.Now().Add(-time.Second))
		expired, err := codec.IsExpired(token)
		require.NoError(t, err)
		require.True(t, expired)
	})

	t.Run("invalid token", func(t *testing.T) {
		_, err := codec.IsExpired("garbage")
		require.ErrorIs(t, err, auth.ErrMalformedToken)
	})
}

func TestExtractors(t *testing.T) {
	codec := auth.NewTokenCodec(testSecret, 10)

	before := time.Now()
	token, err := codec.Issue("alice", 42)
	require.NoError(t, err)

	subject, err := codec.ExtractSubject(token)
	require.NoError(t, err)
	require.Equal(t, "alice", subject)

	userID, err := codec.ExtractUserID(token)
	require.NoError(t, err)
	require.Equal(t, 42, userID)

	exp, err := codec.ExtractExpiresAt(token)
	require.NoError(t, err)
	require.WithinDuration(t, before.Add(10*time.Hour), exp, 5*time.Second)

	_, err = codec.ExtractSubject("garbage")
	require.ErrorIs(t, err, auth.ErrMalformedToken)
}
