package blog

import (
	"errors"
	"log/slog"
	"net/http"

	"bloodlink/internal/request"

	"github.com/gin-gonic/gin"
)

// Handler handles HTTP requests for blog posts
type Handler struct {
	service *Service
}

// NewHandler creates a new blog handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the blog endpoints behind auth
func (h *Handler) RegisterRoutes(r gin.IRouter, auth gin.HandlerFunc) {
	r.POST("/createPost", auth, h.CreatePost)
	r.PATCH("/updatePost/:id", auth, h.UpdatePost)
	r.DELETE("/deletePost/:id", auth, h.DeletePost)
	r.GET("/getPost", auth, h.ListPosts)
	r.GET("/getPost/:id", auth, h.GetPost)
}

func (h *Handler) serverError(c *gin.Context, message string, err error) {
	slog.Error(message, "error", err.Error(), "request_id", c.GetString("request_id"))
	c.JSON(http.StatusInternalServerError, gin.H{"message": message})
}

// CreatePost handles POST /createPost
func (h *Handler) CreatePost(c *gin.Context) {
	var req CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body: " + err.Error()})
		return
	}

	id, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ErrMissingFields) {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Missing required fields: title, content."})
			return
		}
		h.serverError(c, "Failed to create post", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"postId": id})
}

// UpdatePost handles PATCH /updatePost/:id
func (h *Handler) UpdatePost(c *gin.Context) {
	var req UpdatePostRequest
	if err := request.BindPatch(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body: " + err.Error()})
		return
	}

	if err := h.service.Update(c.Request.Context(), c.Param("id"), req); err != nil {
		switch {
		case errors.Is(err, ErrInvalidID):
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid ID format."})
		case errors.Is(err, ErrNoUpdates):
			c.JSON(http.StatusBadRequest, gin.H{"message": "No updates provided."})
		case errors.Is(err, ErrPostNotFound):
			c.JSON(http.StatusNotFound, gin.H{"message": "Post not found."})
		default:
			h.serverError(c, "Failed to update post", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Post updated successfully."})
}

// DeletePost handles DELETE /deletePost/:id
func (h *Handler) DeletePost(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		switch {
		case errors.Is(err, ErrInvalidID):
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid ID format."})
		case errors.Is(err, ErrPostNotFound):
			c.JSON(http.StatusNotFound, gin.H{"message": "Post not found."})
		default:
			h.serverError(c, "Failed to delete post", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Post deleted successfully."})
}

// ListPosts handles GET /getPost
func (h *Handler) ListPosts(c *gin.Context) {
	posts, err := h.service.List(c.Request.Context())
	if err != nil {
		h.serverError(c, "Failed to fetch posts", err)
		return
	}
	c.JSON(http.StatusOK, posts)
}

// GetPost handles GET /getPost/:id
func (h *Handler) GetPost(c *gin.Context) {
	post, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidID):
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid ID format."})
		case errors.Is(err, ErrPostNotFound):
			c.JSON(http.StatusNotFound, gin.H{"message": "Post not found."})
		default:
			h.serverError(c, "Failed to fetch posts", err)
		}
		return
	}
	c.JSON(http.StatusOK, post)
}
