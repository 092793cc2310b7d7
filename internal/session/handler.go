package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"bloodlink/internal/identity"

	"github.com/gin-gonic/gin"
)

const ginSessionKey = "session"

// Handler serves the session endpoints
type Handler struct {
	manager Manager
	cookies CookieConfig
}

// NewHandler creates a new session handler
func NewHandler(manager Manager, cookies CookieConfig) *Handler {
	return &Handler{
		manager: manager,
		cookies: cookies,
	}
}

// RegisterRoutes mounts the session endpoints. requireBearer must attach a
// verified identity before CreateSession runs.
func (h *Handler) RegisterRoutes(r gin.IRouter, requireBearer gin.HandlerFunc) {
	r.POST("/postSessions", requireBearer, h.CreateSession)
	r.DELETE("/delSessions", h.DestroySession)
	r.GET("/getSessions", h.RequireSession(), h.GetSession)
}

// CreateSession handles POST /postSessions
func (h *Handler) CreateSession(c *gin.Context) {
	id, ok := identity.FromGin(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: No token provided"})
		return
	}

	ctx := c.Request.Context()
	sess, err := h.manager.Create(ctx, id.Subject)
	if err != nil {
		slog.Error("Failed to create session",
			"user_id", id.Subject,
			"error", err.Error(),
			"request_id", c.GetString("request_id"),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}

	// The record is persisted; a cookie that cannot be written leaves it
	// unreachable, so remove it again.
	if err := h.cookies.Set(c.Writer, sess.ID); err != nil {
		slog.Error("Failed to set session cookie",
			"user_id", id.Subject,
			"error", err.Error(),
			"request_id", c.GetString("request_id"),
		)
		if derr := h.manager.Discard(context.WithoutCancel(ctx), sess.ID); derr != nil {
			slog.Error("Failed to remove orphaned session",
				"error", derr.Error(),
				"request_id", c.GetString("request_id"),
			)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}

	slog.Info("Session created",
		"user_id", sess.UserID,
		"expires_at", sess.ExpiresAt,
		"request_id", c.GetString("request_id"),
	)

	c.JSON(http.StatusOK, gin.H{
		"message":   "Session created",
		"sessionId": sess.ID,
	})
}

// DestroySession handles DELETE /delSessions
func (h *Handler) DestroySession(c *gin.Context) {
	sessionID, err := c.Cookie(CookieName)
	if err != nil || sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Bad Request: No session cookie provided"})
		return
	}

	if err := h.manager.Destroy(c.Request.Context(), sessionID); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not Found: Session not found"})
			return
		}
		slog.Error("Failed to remove session",
			"error", err.Error(),
			"request_id", c.GetString("request_id"),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}

	h.cookies.Clear(c.Writer)
	c.JSON(http.StatusOK, gin.H{"message": "Session cookie cleared and session removed from DB"})
}

// GetSession handles GET /getSessions. It runs behind RequireSession.
func (h *Handler) GetSession(c *gin.Context) {
	sess, ok := FromGin(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Session is valid",
		"userId":    sess.UserID,
		"sessionId": sess.ID,
		"expiresAt": sess.ExpiresAt,
	})
}

// RequireSession validates the session cookie and injects the session and
// user id into the gin context
func (h *Handler) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := c.Cookie(CookieName)
		if err != nil || sessionID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Unauthorized: No session cookie",
			})
			return
		}

		sess, err := h.manager.Validate(c.Request.Context(), sessionID)
		if err != nil {
			level := slog.LevelWarn
			if !errors.Is(err, ErrSessionNotFound) && !errors.Is(err, ErrSessionExpired) {
				level = slog.LevelError
			}
			slog.Log(c.Request.Context(), level, "Invalid session",
				"error", err.Error(),
				"request_id", c.GetString("request_id"),
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Unauthorized: Invalid session",
			})
			return
		}

		c.Set(ginSessionKey, sess)
		c.Set("user_id", sess.UserID)

		c.Next()
	}
}

// FromGin returns the session attached by RequireSession
func FromGin(c *gin.Context) (*Session, bool) {
	value, exists := c.Get(ginSessionKey)
	if !exists {
		return nil, false
	}
	sess, ok := value.(*Session)
	return sess, ok && sess != nil
}
