package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"bloodlink/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingVerifier records how often the provider was consulted
type countingVerifier struct {
	calls  atomic.Int32
	verify func(ctx context.Context, token string) (*Identity, error)
}

func (v *countingVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	v.calls.Add(1)
	return v.verify(ctx, token)
}

func acceptAll() *countingVerifier {
	return &countingVerifier{
		verify: func(_ context.Context, token string) (*Identity, error) {
			return &Identity{Subject: "uid-" + token}, nil
		},
	}
}

func TestAuthenticate_MalformedHeaderNeverCallsProvider(t *testing.T) {
	headers := []string{
		"",
		"Basic dXNlcjpwYXNz",
		"bearer token",
		"Bearer",
		"Bearer ",
		"Bearer    ",
		"Bearer two parts",
		"Token abc",
	}

	for _, header := range headers {
		t.Run(header, func(t *testing.T) {
			v := acceptAll()
			gate := NewGate(v, time.Second, nil)

			id, err := gate.Authenticate(context.Background(), header)

			assert.Nil(t, id)
			assert.ErrorIs(t, err, ErrNoToken)
			assert.Equal(t, int32(0), v.calls.Load())
		})
	}
}

func TestAuthenticate_ValidToken(t *testing.T) {
	v := acceptAll()
	gate := NewGate(v, time.Second, nil)

	id, err := gate.Authenticate(context.Background(), "Bearer abc123")

	require.NoError(t, err)
	assert.Equal(t, "uid-abc123", id.Subject)
	assert.Equal(t, int32(1), v.calls.Load())
}

func TestAuthenticate_ProviderRejects(t *testing.T) {
	v := &countingVerifier{
		verify: func(context.Context, string) (*Identity, error) {
			return nil, errors.New("signature mismatch")
		},
	}
	gate := NewGate(v, time.Second, nil)

	id, err := gate.Authenticate(context.Background(), "Bearer badtoken")

	assert.Nil(t, id)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.NotErrorIs(t, err, ErrNoToken)
}

func TestAuthenticate_EmptySubjectIsInvalid(t *testing.T) {
	v := &countingVerifier{
		verify: func(context.Context, string) (*Identity, error) {
			return &Identity{}, nil
		},
	}
	gate := NewGate(v, time.Second, nil)

	_, err := gate.Authenticate(context.Background(), "Bearer abc")

	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthenticate_TimeoutIsInvalidToken(t *testing.T) {
	v := &countingVerifier{
		verify: func(ctx context.Context, _ string) (*Identity, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	gate := NewGate(v, 20*time.Millisecond, nil)

	start := time.Now()
	_, err := gate.Authenticate(context.Background(), "Bearer slow")

	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestNewGate_DefaultTimeout(t *testing.T) {
	gate := NewGate(acceptAll(), 0, nil)
	assert.Equal(t, DefaultVerifyTimeout, gate.timeout)
}

func newGateRouter(gate *Gate, handlerCalled *bool) *gin.Engine {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/protected", gate.RequireBearer(), func(c *gin.Context) {
		*handlerCalled = true

		fromGin, okGin := FromGin(c)
		fromCtx, okCtx := FromContext(c.Request.Context())
		if !okGin || !okCtx {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "identity missing"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"subject":     fromGin.Subject,
			"ctx_subject": fromCtx.Subject,
			"user_id":     c.GetString("user_id"),
		})
	})
	return r
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func TestRequireBearer_NoToken(t *testing.T) {
	m := metrics.New()
	v := acceptAll()
	handlerCalled := false
	r := newGateRouter(NewGate(v, time.Second, m), &handlerCalled)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/protected", nil))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Unauthorized: No token provided", decodeBody(t, rr)["error"])
	assert.False(t, handlerCalled)
	assert.Equal(t, int32(0), v.calls.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuthRejections.WithLabelValues("no_token")))
}

func TestRequireBearer_InvalidToken(t *testing.T) {
	m := metrics.New()
	v := &countingVerifier{
		verify: func(context.Context, string) (*Identity, error) {
			return nil, errors.New("token expired")
		},
	}
	handlerCalled := false
	r := newGateRouter(NewGate(v, time.Second, m), &handlerCalled)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer badtoken")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Unauthorized: Invalid token", decodeBody(t, rr)["error"])
	assert.False(t, handlerCalled)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuthRejections.WithLabelValues("invalid_token")))
}

func TestRequireBearer_ValidTokenAttachesIdentity(t *testing.T) {
	handlerCalled := false
	r := newGateRouter(NewGate(acceptAll(), time.Second, nil), &handlerCalled)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer u1")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, handlerCalled)

	body := decodeBody(t, rr)
	assert.Equal(t, "uid-u1", body["subject"])
	assert.Equal(t, "uid-u1", body["ctx_subject"])
	assert.Equal(t, "uid-u1", body["user_id"])
}

func TestFromContext_Empty(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)
}

func TestVerifierFunc(t *testing.T) {
	var v Verifier = VerifierFunc(func(_ context.Context, token string) (*Identity, error) {
		return &Identity{Subject: token}, nil
	})

	id, err := v.Verify(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", id.Subject)
}
