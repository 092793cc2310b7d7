package users

import (
	"errors"
	"log/slog"
	"net/http"

	"bloodlink/internal/request"

	"github.com/gin-gonic/gin"
)

// Handler handles HTTP requests for users
type Handler struct {
	service *Service
}

// NewHandler creates a new users handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the user endpoints behind auth
func (h *Handler) RegisterRoutes(r gin.IRouter, auth gin.HandlerFunc) {
	r.POST("/createUsers", auth, h.CreateUser)
	r.GET("/getUser/:id", auth, h.GetUser)
	r.PATCH("/updateUser/:id", auth, h.UpdateUser)
	r.GET("/getAllUsers", auth, h.GetAllUsers)
}

// CreateUser handles POST /createUsers
func (h *Handler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body: " + err.Error()})
		return
	}

	id, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrMissingFields):
			c.JSON(http.StatusBadRequest, gin.H{"message": "Missing required fields: name, email, password."})
		case errors.Is(err, ErrEmailExists):
			c.JSON(http.StatusConflict, gin.H{"message": "User already exists."})
		default:
			slog.Error("Failed to create user", "error", err.Error(), "request_id", c.GetString("request_id"))
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to create user"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"userId": id})
}

// GetUser handles GET /getUser/:id where id is the email
func (h *Handler) GetUser(c *gin.Context) {
	user, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "User not found."})
			return
		}
		slog.Error("Failed to fetch user", "error", err.Error(), "request_id", c.GetString("request_id"))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch user."})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// UpdateUser handles PATCH /updateUser/:id where id is the email
func (h *Handler) UpdateUser(c *gin.Context) {
	var req UpdateUserRequest
	if err := request.BindPatch(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body: " + err.Error()})
		return
	}

	result, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrNoUpdates):
			c.JSON(http.StatusBadRequest, gin.H{"message": "No updates provided."})
		case errors.Is(err, ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"message": "User not found."})
		default:
			slog.Error("Failed to update user", "error", err.Error(), "request_id", c.GetString("request_id"))
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to update user."})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":       "User updated successfully.",
		"matchedCount":  result.MatchedCount,
		"modifiedCount": result.ModifiedCount,
	})
}

// GetAllUsers handles GET /getAllUsers
func (h *Handler) GetAllUsers(c *gin.Context) {
	users, err := h.service.List(c.Request.Context())
	if err != nil {
		slog.Error("Failed to fetch users", "error", err.Error(), "request_id", c.GetString("request_id"))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch users."})
		return
	}
	if len(users) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": "No users found."})
		return
	}

	c.JSON(http.StatusOK, gin.H{"users": users})
}
