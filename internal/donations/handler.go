package donations

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"bloodlink/internal/request"

	"github.com/gin-gonic/gin"
)

// Handler handles HTTP requests for donation requests
type Handler struct {
	service *Service
}

// NewHandler creates a new donations handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the donation endpoints behind auth
func (h *Handler) RegisterRoutes(r gin.IRouter, auth gin.HandlerFunc) {
	r.POST("/createDonation", auth, h.CreateDonation)
	r.GET("/getDonationRequestById", auth, h.GetDonation)
	r.GET("/getDonationRequests", auth, h.ListDonations)
	r.PATCH("/updateDonationRequest/:id", auth, h.UpdateDonation)
	r.DELETE("/deleteDonation/:id", auth, h.DeleteDonation)
	r.GET("/getPaginatedDonation", auth, h.PaginateDonations)
}

// queryInt reads a positive integer query parameter, falling back to def
func queryInt(c *gin.Context, key string, def int64) int64 {
	v, err := strconv.ParseInt(c.Query(key), 10, 64)
	if err != nil || v < 1 {
		return def
	}
	return v
}

func queryLimit(c *gin.Context) int64 {
	limit := queryInt(c, "limit", DefaultLimit)
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return limit
}

func (h *Handler) serverError(c *gin.Context, message string, err error) {
	slog.Error(message, "error", err.Error(), "request_id", c.GetString("request_id"))
	c.JSON(http.StatusInternalServerError, gin.H{"message": message})
}

// CreateDonation handles POST /createDonation
func (h *Handler) CreateDonation(c *gin.Context) {
	var req CreateDonationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body: " + err.Error()})
		return
	}

	id, err := h.service.Create(c.Request.Context(), c.GetString("user_id"), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrMissingFields):
			c.JSON(http.StatusBadRequest, gin.H{"message": "Missing required fields in the donation request."})
		case errors.Is(err, ErrInvalidDate):
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid donationDate."})
		default:
			h.serverError(c, "Failed to create donation request.", err)
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"donationId": id})
}

// GetDonation handles GET /getDonationRequestById?id=
func (h *Handler) GetDonation(c *gin.Context) {
	donation, err := h.service.Get(c.Request.Context(), c.Query("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidID):
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid ID format."})
		case errors.Is(err, ErrDonationNotFound):
			c.JSON(http.StatusNotFound, gin.H{"message": "Donation request not found."})
		default:
			h.serverError(c, "Failed to fetch donation request.", err)
		}
		return
	}

	c.JSON(http.StatusOK, donation)
}

// ListDonations handles GET /getDonationRequests with cursor paging
func (h *Handler) ListDonations(c *gin.Context) {
	filter := Filter{
		RequesterEmail:    c.Query("requesterEmail"),
		RecipientDistrict: c.Query("recipientDistrict"),
		BloodGroup:        c.Query("bloodGroup"),
		Status:            c.Query("status"),
	}

	cursor, err := strconv.ParseInt(c.DefaultQuery("cursor", "0"), 10, 64)
	if err != nil || cursor < 0 {
		cursor = 0
	}

	page, err := h.service.ListByCursor(c.Request.Context(), filter, cursor, queryLimit(c))
	if err != nil {
		h.serverError(c, "Failed to fetch donation requests.", err)
		return
	}

	c.JSON(http.StatusOK, page)
}

// UpdateDonation handles PATCH /updateDonationRequest/:id
func (h *Handler) UpdateDonation(c *gin.Context) {
	var req UpdateDonationRequest
	if err := request.BindPatch(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body: " + err.Error()})
		return
	}

	err := h.service.Update(c.Request.Context(), c.GetString("user_id"), c.Param("id"), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidID):
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid ID format."})
		case errors.Is(err, ErrInvalidDate):
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid donationDate."})
		case errors.Is(err, ErrNoUpdates):
			c.JSON(http.StatusBadRequest, gin.H{"message": "No fields provided for update."})
		case errors.Is(err, ErrDonationNotFound):
			c.JSON(http.StatusNotFound, gin.H{"message": "Donation request not found."})
		default:
			h.serverError(c, "Failed to update donation request.", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Donation request updated successfully."})
}

// DeleteDonation handles DELETE /deleteDonation/:id
func (h *Handler) DeleteDonation(c *gin.Context) {
	err := h.service.Delete(c.Request.Context(), c.GetString("user_id"), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidID):
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid ID format."})
		case errors.Is(err, ErrDonationNotFound):
			c.JSON(http.StatusNotFound, gin.H{"message": "Donation not found or already deleted."})
		default:
			h.serverError(c, "Failed to delete donation.", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Donation deleted successfully."})
}

// PaginateDonations handles GET /getPaginatedDonation
func (h *Handler) PaginateDonations(c *gin.Context) {
	page, err := h.service.ListByPage(
		c.Request.Context(),
		c.Query("status"),
		queryInt(c, "page", 1),
		queryLimit(c),
	)
	if err != nil {
		h.serverError(c, "Failed to fetch donation requests.", err)
		return
	}

	c.JSON(http.StatusOK, page)
}
