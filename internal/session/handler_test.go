package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bloodlink/internal/identity"
	"bloodlink/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type handlerFixture struct {
	store   *recordingStore
	clock   *testClock
	metrics *metrics.Metrics
	router  *gin.Engine
	// verifications counts identity provider calls
	verifications int
}

func newHandlerFixture(t *testing.T, cookies CookieConfig) *handlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &handlerFixture{
		store:   newRecordingStore(),
		clock:   newTestClock(),
		metrics: metrics.New(),
	}

	verifier := identity.VerifierFunc(func(_ context.Context, token string) (*identity.Identity, error) {
		f.verifications++
		if token == "good-u1" {
			return &identity.Identity{Subject: "u1"}, nil
		}
		return nil, errors.New("token rejected")
	})
	gate := identity.NewGate(verifier, time.Second, nil)

	h := NewHandler(NewManager(f.store, WithClock(f.clock.Now), WithMetrics(f.metrics)), cookies)

	f.router = gin.New()
	h.RegisterRoutes(f.router.Group("/api"), gate.RequireBearer())

	return f
}

func (f *handlerFixture) do(method, path string, mutate func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if mutate != nil {
		mutate(req)
	}
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func withBearer(token string) func(*http.Request) {
	return func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	}
}

func withSessionCookie(value string) func(*http.Request) {
	return func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: CookieName, Value: value})
	}
}

func sessionCookie(rr *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == CookieName {
			return c
		}
	}
	return nil
}

func jsonBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func TestCreateSession_SetsCookie(t *testing.T) {
	f := newHandlerFixture(t, CookieConfig{Domain: "localhost"})

	rr := f.do(http.MethodPost, "/api/postSessions", withBearer("good-u1"))

	require.Equal(t, http.StatusOK, rr.Code)
	body := jsonBody(t, rr)
	assert.Equal(t, "Session created", body["message"])

	cookie := sessionCookie(rr)
	require.NotNil(t, cookie)
	assert.Equal(t, body["sessionId"], cookie.Value)
	assert.Equal(t, 86400, cookie.MaxAge)
	assert.True(t, cookie.HttpOnly)
	assert.False(t, cookie.Secure)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Equal(t, "localhost", cookie.Domain)
	assert.Equal(t, "/", cookie.Path)

	stored, err := f.store.FindByID(context.Background(), cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, "u1", stored.UserID)
	assert.Equal(t, TTL, stored.ExpiresAt.Sub(stored.CreatedAt))
}

func TestCreateSession_SecureInProduction(t *testing.T) {
	f := newHandlerFixture(t, CookieConfig{Domain: "localhost", Secure: true})

	rr := f.do(http.MethodPost, "/api/postSessions", withBearer("good-u1"))

	require.Equal(t, http.StatusOK, rr.Code)
	cookie := sessionCookie(rr)
	require.NotNil(t, cookie)
	assert.True(t, cookie.Secure)
}

func TestCreateSession_NoBearer(t *testing.T) {
	f := newHandlerFixture(t, CookieConfig{Domain: "localhost"})

	rr := f.do(http.MethodPost, "/api/postSessions", nil)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Unauthorized: No token provided", jsonBody(t, rr)["error"])
	assert.Equal(t, 0, f.verifications)
	assert.Equal(t, int32(0), f.store.calls())
	assert.Empty(t, rr.Header().Get("Set-Cookie"))
}

func TestCreateSession_BadBearerCreatesNoRecord(t *testing.T) {
	f := newHandlerFixture(t, CookieConfig{Domain: "localhost"})

	rr := f.do(http.MethodPost, "/api/postSessions", withBearer("badtoken"))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Unauthorized: Invalid token", jsonBody(t, rr)["error"])
	assert.Equal(t, 1, f.verifications)
	assert.Equal(t, int32(0), f.store.inserts.Load())
	assert.Equal(t, 0, f.store.Len())
	assert.Empty(t, rr.Header().Get("Set-Cookie"))
}

func TestCreateSession_InsertFailureSetsNoCookie(t *testing.T) {
	f := newHandlerFixture(t, CookieConfig{Domain: "localhost"})
	f.store.insertErr = errors.New("write concern timeout")

	rr := f.do(http.MethodPost, "/api/postSessions", withBearer("good-u1"))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "Internal Server Error", jsonBody(t, rr)["error"])
	assert.Empty(t, rr.Header().Get("Set-Cookie"))
}

func TestCreateSession_InvalidCookieRemovesRecord(t *testing.T) {
	f := newHandlerFixture(t, CookieConfig{Domain: "bad domain;"})

	rr := f.do(http.MethodPost, "/api/postSessions", withBearer("good-u1"))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Empty(t, rr.Header().Get("Set-Cookie"))
	assert.Equal(t, int32(1), f.store.inserts.Load())
	assert.Equal(t, int32(1), f.store.deletes.Load())
	assert.Equal(t, 0, f.store.Len())
}

func TestCreateSession_RolledBackCreateIsNotALogout(t *testing.T) {
	f := newHandlerFixture(t, CookieConfig{Domain: "bad domain;"})

	rr := f.do(http.MethodPost, "/api/postSessions", withBearer("good-u1"))

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, int32(1), f.store.deletes.Load())
	assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.SessionsDestroyed))
}

func TestDestroySession_NoCookieNeverTouchesStorage(t *testing.T) {
	f := newHandlerFixture(t, CookieConfig{Domain: "localhost"})

	rr := f.do(http.MethodDelete, "/api/delSessions", nil)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Bad Request: No session cookie provided", jsonBody(t, rr)["error"])
	assert.Equal(t, int32(0), f.store.calls())
	assert.Empty(t, rr.Header().Get("Set-Cookie"))
}

func TestDestroySession_UnknownSession(t *testing.T) {
	f := newHandlerFixture(t, CookieConfig{Domain: "localhost"})

	rr := f.do(http.MethodDelete, "/api/delSessions", withSessionCookie("unknown"))

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Not Found: Session not found", jsonBody(t, rr)["error"])
	assert.Empty(t, rr.Header().Get("Set-Cookie"))
}

func TestDestroySession_DeleteFailureKeepsCookie(t *testing.T) {
	f := newHandlerFixture(t, CookieConfig{Domain: "localhost"})
	f.store.deleteErr = errors.New("connection refused")

	rr := f.do(http.MethodDelete, "/api/delSessions", withSessionCookie("some-id"))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "Internal Server Error", jsonBody(t, rr)["error"])
	assert.Empty(t, rr.Header().Get("Set-Cookie"))
}

func TestDestroySession_ClearsCookie(t *testing.T) {
	f := newHandlerFixture(t, CookieConfig{Domain: "localhost"})
	created := f.do(http.MethodPost, "/api/postSessions", withBearer("good-u1"))
	require.Equal(t, http.StatusOK, created.Code)
	id := sessionCookie(created).Value

	rr := f.do(http.MethodDelete, "/api/delSessions", withSessionCookie(id))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Session cookie cleared and session removed from DB", jsonBody(t, rr)["message"])

	cleared := sessionCookie(rr)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
	assert.Less(t, cleared.MaxAge, 0)
	assert.Equal(t, 0, f.store.Len())
}

func TestGetSession_NoCookie(t *testing.T) {
	f := newHandlerFixture(t, CookieConfig{Domain: "localhost"})

	rr := f.do(http.MethodGet, "/api/getSessions", nil)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Unauthorized: No session cookie", jsonBody(t, rr)["error"])
	assert.Equal(t, int32(0), f.store.calls())
}

func TestGetSession_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		findErr error
		expire  bool
	}{
		{name: "unknown id"},
		{name: "expired record", expire: true},
		{name: "store failure", findErr: errors.New("server selection timeout")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newHandlerFixture(t, CookieConfig{Domain: "localhost"})

			id := "unknown"
			if tt.expire {
				created := f.do(http.MethodPost, "/api/postSessions", withBearer("good-u1"))
				require.Equal(t, http.StatusOK, created.Code)
				id = sessionCookie(created).Value
				f.clock.Advance(TTL)
			}
			f.store.findErr = tt.findErr

			rr := f.do(http.MethodGet, "/api/getSessions", withSessionCookie(id))

			assert.Equal(t, http.StatusUnauthorized, rr.Code)
			assert.Equal(t, "Unauthorized: Invalid session", jsonBody(t, rr)["error"])
		})
	}
}

func TestGetSession_Valid(t *testing.T) {
	f := newHandlerFixture(t, CookieConfig{Domain: "localhost"})
	created := f.do(http.MethodPost, "/api/postSessions", withBearer("good-u1"))
	require.Equal(t, http.StatusOK, created.Code)
	id := sessionCookie(created).Value

	f.clock.Advance(TTL - time.Second)
	rr := f.do(http.MethodGet, "/api/getSessions", withSessionCookie(id))

	require.Equal(t, http.StatusOK, rr.Code)
	body := jsonBody(t, rr)
	assert.Equal(t, "Session is valid", body["message"])
	assert.Equal(t, "u1", body["userId"])
	assert.Equal(t, id, body["sessionId"])

	expiresAt, err := time.Parse(time.RFC3339Nano, body["expiresAt"].(string))
	require.NoError(t, err)
	assert.True(t, expiresAt.Equal(t0.Add(TTL)))
}

func TestSessionLifecycle_U1(t *testing.T) {
	f := newHandlerFixture(t, CookieConfig{Domain: "localhost"})

	created := f.do(http.MethodPost, "/api/postSessions", withBearer("good-u1"))
	require.Equal(t, http.StatusOK, created.Code)
	s1 := sessionCookie(created).Value

	valid := f.do(http.MethodGet, "/api/getSessions", withSessionCookie(s1))
	require.Equal(t, http.StatusOK, valid.Code)
	body := jsonBody(t, valid)
	assert.Equal(t, "u1", body["userId"])
	assert.Equal(t, s1, body["sessionId"])

	destroyed := f.do(http.MethodDelete, "/api/delSessions", withSessionCookie(s1))
	require.Equal(t, http.StatusOK, destroyed.Code)

	after := f.do(http.MethodGet, "/api/getSessions", withSessionCookie(s1))
	assert.Equal(t, http.StatusUnauthorized, after.Code)
	assert.Equal(t, "Unauthorized: Invalid session", jsonBody(t, after)["error"])

	again := f.do(http.MethodDelete, "/api/delSessions", withSessionCookie(s1))
	assert.Equal(t, http.StatusNotFound, again.Code)
}

func TestRequireSession_InjectsUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := NewMemoryStore()
	mgr := NewManager(store)
	sess, err := mgr.Create(context.Background(), "u42")
	require.NoError(t, err)

	h := NewHandler(mgr, CookieConfig{Domain: "localhost"})
	r := gin.New()
	r.GET("/me", h.RequireSession(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString("user_id")})
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: sess.ID})
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "u42", jsonBody(t, rr)["user_id"])
}
