// Package identity implements the bearer token gate in front of protected
// routes. Token cryptography is delegated to a Verifier; the gate only
// extracts the credential, bounds the verification call and attaches the
// verified identity to the request.
package identity

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
)

var (
	// ErrNoToken is returned when the Authorization header is missing or not a bearer credential
	ErrNoToken = errors.New("no token provided")
	// ErrInvalidToken is returned when the identity provider rejects the token
	ErrInvalidToken = errors.New("invalid token")
)

// Identity is the verified caller produced by a successful token check.
// It lives for the duration of a single request.
type Identity struct {
	Subject       string
	Email         string
	EmailVerified bool
	IssuedAt      time.Time
	ExpiresAt     time.Time
	Claims        map[string]any
}

// Verifier checks an opaque bearer token with an identity provider
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// VerifierFunc adapts a function to the Verifier interface
type VerifierFunc func(ctx context.Context, token string) (*Identity, error)

// Verify calls f(ctx, token)
func (f VerifierFunc) Verify(ctx context.Context, token string) (*Identity, error) {
	return f(ctx, token)
}

type contextKey struct{}

// ginIdentityKey is the gin.Context key holding the *Identity
const ginIdentityKey = "identity"

// NewContext returns a copy of ctx carrying id
func NewContext(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the identity stored in ctx, if any
func FromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(*Identity)
	return id, ok && id != nil
}

// FromGin returns the identity attached by the gate to a gin request
func FromGin(c *gin.Context) (*Identity, bool) {
	value, exists := c.Get(ginIdentityKey)
	if !exists {
		return nil, false
	}
	id, ok := value.(*Identity)
	return id, ok && id != nil
}
