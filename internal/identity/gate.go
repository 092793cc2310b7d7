package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"bloodlink/internal/metrics"

	"github.com/gin-gonic/gin"
)

// DefaultVerifyTimeout bounds a single call to the identity provider
const DefaultVerifyTimeout = 5 * time.Second

const bearerPrefix = "Bearer "

// Gate authenticates requests carrying a bearer token
type Gate struct {
	verifier Verifier
	timeout  time.Duration
	metrics  *metrics.Metrics
}

// NewGate creates a gate around the given verifier. A non-positive timeout
// falls back to DefaultVerifyTimeout. m may be nil.
func NewGate(verifier Verifier, timeout time.Duration, m *metrics.Metrics) *Gate {
	if timeout <= 0 {
		timeout = DefaultVerifyTimeout
	}
	return &Gate{
		verifier: verifier,
		timeout:  timeout,
		metrics:  m,
	}
}

// Authenticate verifies the credential in an Authorization header value.
// Malformed or missing headers fail with ErrNoToken before the verifier is
// consulted. Every verifier failure, a timeout included, is ErrInvalidToken.
func (g *Gate) Authenticate(ctx context.Context, authorization string) (*Identity, error) {
	token, ok := bearerToken(authorization)
	if !ok {
		return nil, ErrNoToken
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	id, err := g.verifier.Verify(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if id == nil || id.Subject == "" {
		return nil, fmt.Errorf("%w: token has no subject", ErrInvalidToken)
	}

	return id, nil
}

// RequireBearer returns middleware that rejects unauthenticated requests
// with 401 and otherwise attaches the verified identity to the request.
func (g *Gate) RequireBearer() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := g.Authenticate(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil {
			if errors.Is(err, ErrNoToken) {
				g.metrics.AuthRejected("no_token")
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error": "Unauthorized: No token provided",
				})
				return
			}

			slog.Warn("Token verification failed",
				"error", err.Error(),
				"request_id", c.GetString("request_id"),
			)
			g.metrics.AuthRejected("invalid_token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Unauthorized: Invalid token",
			})
			return
		}

		c.Set(ginIdentityKey, id)
		c.Set("user_id", id.Subject)
		c.Request = c.Request.WithContext(NewContext(c.Request.Context(), id))

		c.Next()
	}
}

// bearerToken extracts the token from "Bearer <token>"
func bearerToken(authorization string) (string, bool) {
	if !strings.HasPrefix(authorization, bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authorization, bearerPrefix))
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}
