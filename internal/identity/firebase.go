package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
)

const (
	// FirebaseJWKSURL publishes the keys that sign Firebase ID tokens
	FirebaseJWKSURL = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"

	firebaseIssuerPrefix = "https://securetoken.google.com/"

	// Firebase rejects subjects longer than this
	maxSubjectLength = 128
)

// FirebaseVerifier verifies Firebase Authentication ID tokens. Signature,
// issuer, audience and expiry checks are performed by go-oidc against the
// securetoken key set.
type FirebaseVerifier struct {
	verifier *oidc.IDTokenVerifier
	now      func() time.Time
}

// FirebaseOption customizes a FirebaseVerifier
type FirebaseOption func(*firebaseOptions)

type firebaseOptions struct {
	jwksURL string
	now     func() time.Time
}

// WithJWKSURL overrides the key set location
func WithJWKSURL(url string) FirebaseOption {
	return func(o *firebaseOptions) {
		if url != "" {
			o.jwksURL = url
		}
	}
}

// WithNow overrides the clock used for expiry checks
func WithNow(now func() time.Time) FirebaseOption {
	return func(o *firebaseOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// NewFirebaseVerifier builds a verifier for tokens issued to projectID.
// ctx scopes key set refreshes and should live as long as the verifier.
func NewFirebaseVerifier(ctx context.Context, projectID string, opts ...FirebaseOption) (*FirebaseVerifier, error) {
	if projectID == "" {
		return nil, errors.New("firebase project id is required")
	}

	o := firebaseOptions{
		jwksURL: FirebaseJWKSURL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	keySet := oidc.NewRemoteKeySet(ctx, o.jwksURL)
	verifier := oidc.NewVerifier(firebaseIssuerPrefix+projectID, keySet, &oidc.Config{
		ClientID: projectID,
		Now:      o.now,
	})

	return &FirebaseVerifier{
		verifier: verifier,
		now:      o.now,
	}, nil
}

// Verify checks the raw ID token and returns the identity it asserts
func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	idToken, err := v.verifier.Verify(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("firebase id token verification failed: %w", err)
	}

	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		AuthTime      int64  `json:"auth_time"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("firebase id token claims parse failed: %w", err)
	}

	var raw map[string]any
	if err := idToken.Claims(&raw); err != nil {
		return nil, fmt.Errorf("firebase id token claims parse failed: %w", err)
	}

	if idToken.Subject == "" || len(idToken.Subject) > maxSubjectLength {
		return nil, errors.New("firebase id token has an invalid subject")
	}
	if claims.AuthTime > 0 && time.Unix(claims.AuthTime, 0).After(v.now().Add(time.Minute)) {
		return nil, errors.New("firebase id token auth_time is in the future")
	}

	return &Identity{
		Subject:       idToken.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		IssuedAt:      idToken.IssuedAt,
		ExpiresAt:     idToken.Expiry,
		Claims:        raw,
	}, nil
}
