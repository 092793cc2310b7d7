package identity

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testProjectID = "bloodlink-test"
	testKeyID     = "test-key"
)

type jwksFixture struct {
	key    *rsa.PrivateKey
	server *httptest.Server
}

func newJWKSFixture(t *testing.T) *jwksFixture {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	jwks := map[string]any{
		"keys": []map[string]string{{
			"kty": "RSA",
			"kid": testKeyID,
			"use": "sig",
			"alg": "RS256",
			"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		}},
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(jwks)
	}))
	t.Cleanup(server.Close)

	return &jwksFixture{key: key, server: server}
}

func (f *jwksFixture) sign(t *testing.T, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = testKeyID
	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}

func validClaims(subject string) jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"iss":            "https://securetoken.google.com/" + testProjectID,
		"aud":            testProjectID,
		"sub":            subject,
		"iat":            now.Add(-time.Minute).Unix(),
		"exp":            now.Add(time.Hour).Unix(),
		"auth_time":      now.Add(-time.Minute).Unix(),
		"email":          "donor@example.com",
		"email_verified": true,
	}
}

func (f *jwksFixture) verifier(t *testing.T) *FirebaseVerifier {
	t.Helper()

	v, err := NewFirebaseVerifier(context.Background(), testProjectID, WithJWKSURL(f.server.URL))
	require.NoError(t, err)
	return v
}

func TestFirebaseVerifier_ValidToken(t *testing.T) {
	f := newJWKSFixture(t)
	v := f.verifier(t)

	id, err := v.Verify(context.Background(), f.sign(t, f.key, validClaims("u1")))

	require.NoError(t, err)
	assert.Equal(t, "u1", id.Subject)
	assert.Equal(t, "donor@example.com", id.Email)
	assert.True(t, id.EmailVerified)
	assert.False(t, id.ExpiresAt.IsZero())
	assert.Equal(t, "u1", id.Claims["sub"])
}

func TestFirebaseVerifier_Rejects(t *testing.T) {
	f := newJWKSFixture(t)
	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	tests := []struct {
		name   string
		key    *rsa.PrivateKey
		mutate func(jwt.MapClaims)
	}{
		{
			name:   "wrong audience",
			key:    f.key,
			mutate: func(c jwt.MapClaims) { c["aud"] = "another-project" },
		},
		{
			name:   "wrong issuer",
			key:    f.key,
			mutate: func(c jwt.MapClaims) { c["iss"] = "https://accounts.example.com" },
		},
		{
			name:   "expired",
			key:    f.key,
			mutate: func(c jwt.MapClaims) { c["exp"] = time.Now().Add(-time.Hour).Unix() },
		},
		{
			name:   "foreign signing key",
			key:    otherKey,
			mutate: func(jwt.MapClaims) {},
		},
		{
			name:   "empty subject",
			key:    f.key,
			mutate: func(c jwt.MapClaims) { c["sub"] = "" },
		},
		{
			name:   "oversized subject",
			key:    f.key,
			mutate: func(c jwt.MapClaims) { c["sub"] = strings.Repeat("x", 129) },
		},
		{
			name:   "auth_time in the future",
			key:    f.key,
			mutate: func(c jwt.MapClaims) { c["auth_time"] = time.Now().Add(10 * time.Minute).Unix() },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := f.verifier(t)
			claims := validClaims("u1")
			tt.mutate(claims)

			id, err := v.Verify(context.Background(), f.sign(t, tt.key, claims))

			assert.Error(t, err)
			assert.Nil(t, id)
		})
	}
}

func TestFirebaseVerifier_Garbage(t *testing.T) {
	f := newJWKSFixture(t)
	v := f.verifier(t)

	_, err := v.Verify(context.Background(), "not-a-jwt")
	assert.Error(t, err)
}

func TestNewFirebaseVerifier_RequiresProjectID(t *testing.T) {
	_, err := NewFirebaseVerifier(context.Background(), "")
	assert.Error(t, err)
}

func TestGate_WithFirebaseVerifier(t *testing.T) {
	f := newJWKSFixture(t)
	gate := NewGate(f.verifier(t), time.Second, nil)

	id, err := gate.Authenticate(context.Background(), "Bearer "+f.sign(t, f.key, validClaims("u1")))
	require.NoError(t, err)
	assert.Equal(t, "u1", id.Subject)

	claims := validClaims("u1")
	claims["exp"] = time.Now().Add(-time.Minute).Unix()
	_, err = gate.Authenticate(context.Background(), "Bearer "+f.sign(t, f.key, claims))
	assert.ErrorIs(t, err, ErrInvalidToken)
}
