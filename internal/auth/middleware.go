package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/user-api/internal/domain"
	"github.com/spec-kit/user-api/internal/observability"
	"github.com/spec-kit/user-api/internal/repository"
)

const (
	principalKey = "auth_principal"
	bearerPrefix = "Bearer "
)

// Gate outcomes recorded in metrics and debug logs. All failure reasons
// collapse to the same externally observable result: no principal installed.
const (
	outcomeAuthenticated    = "authenticated"
	outcomeNoCredential     = "no_credential"
	outcomeMalformedToken   = "malformed_token"
	outcomeInvalidSignature = "invalid_signature"
	outcomeExpired          = "expired"
	outcomeUserNotFound     = "user_not_found"
	outcomeSubjectMismatch  = "subject_mismatch"
	outcomeLookupFailed     = "lookup_failed"
)

// Principal is the authenticated identity for a single request. It is built
// once by the gate and discarded when the request completes.
type Principal struct {
	User            *domain.User
	Roles           []string
	ClientIP        string
	RequestID       string
	AuthenticatedAt time.Time
}

// AuthMiddleware validates bearer tokens and installs the request principal.
// It never rejects a request itself: a missing or invalid credential leaves
// the request unauthenticated and hands the decision to the route guards.
type AuthMiddleware struct {
	tokens  *TokenCodec
	users   repository.UserRepository
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewAuthMiddleware constructs the gate.
func NewAuthMiddleware(tokens *TokenCodec, users repository.UserRepository, logger *zap.Logger, metrics *observability.Metrics) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users, logger: logger, metrics: metrics}
}

// Handle runs once per request ahead of business logic. The request always
// proceeds to the next handler, authenticated or not.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" || !strings.HasPrefix(header, bearerPrefix) {
		m.observe(c, outcomeNoCredential)
		return c.Next()
	}

	raw := strings.TrimPrefix(header, bearerPrefix)

	claims, err := m.tokens.Decode(raw)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidSignature):
			m.observe(c, outcomeInvalidSignature)
		default:
			m.observe(c, outcomeMalformedToken)
		}
		return c.Next()
	}

	// Install-once: a principal established earlier in this request is never
	// overwritten, and no second lookup is attempted.
	if _, ok := PrincipalFromContext(c); ok {
		return c.Next()
	}

	user, err := m.users.GetByUsername(c.UserContext(), claims.Subject)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			m.observe(c, outcomeUserNotFound)
		} else {
			m.observe(c, outcomeLookupFailed)
		}
		return c.Next()
	}

	// Both checks are required: a matching subject does not rescue an expired
	// token, and an unexpired token does not rescue a stale lookup.
	if user.Username != claims.Subject {
		m.observe(c, outcomeSubjectMismatch)
		return c.Next()
	}
	if claims.ExpiredAt(time.Now()) {
		m.observe(c, outcomeExpired)
		return c.Next()
	}

	c.Locals(principalKey, &Principal{
		User:            user,
		Roles:           user.Roles,
		ClientIP:        c.IP(),
		RequestID:       observability.RequestIDFromContext(c),
		AuthenticatedAt: time.Now(),
	})
	m.observe(c, outcomeAuthenticated)
	return c.Next()
}

func (m *AuthMiddleware) observe(c *fiber.Ctx, outcome string) {
	if m.metrics != nil {
		m.metrics.RecordAuthOutcome(outcome)
	}
	if m.logger != nil && outcome != outcomeAuthenticated && outcome != outcomeNoCredential {
		m.logger.Debug("bearer token rejected",
			zap.String("outcome", outcome),
			zap.String("path", c.Path()),
			zap.String("ip", c.IP()))
	}
}

// PrincipalFromContext retrieves the authenticated identity, if any.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
