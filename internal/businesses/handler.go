package businesses

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/localperks/review-rewards/pkg/common"
	"github.com/localperks/review-rewards/pkg/middleware"
	"github.com/localperks/review-rewards/pkg/validation"
)

// Handler handles HTTP requests for businesses
type Handler struct {
	service *Service
}

// NewHandler creates a new businesses handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// GetBusiness returns a business by ID
func (h *Handler) GetBusiness(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid business id")
		return
	}

	business, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.AppErrorResponse(c, common.NewNotFoundError("business not found", err))
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to get business")
		return
	}

	common.SuccessResponse(c, business)
}

// CreateBusiness registers a new business for the authenticated owner
func (h *Handler) CreateBusiness(c *gin.Context) {
	ownerID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req struct {
		Name         string  `json:"name" binding:"required,min=2,max=100"`
		Category     string  `json:"category" binding:"max=50"`
		Latitude     float64 `json:"latitude" binding:"min=-90,max=90"`
		Longitude    float64 `json:"longitude" binding:"min=-180,max=180"`
		RadiusMeters float64 `json:"radius_meters" binding:"omitempty,min=10,max=500"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, validation.Message(err))
		return
	}

	business := &Business{
		OwnerID:      ownerID,
		Name:         req.Name,
		Category:     req.Category,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		RadiusMeters: req.RadiusMeters,
		IsActive:     true,
	}
	if err := h.service.Create(c.Request.Context(), business); err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to create business")
		return
	}

	common.CreatedResponse(c, business)
}

// UpdateBusiness persists owner edits; only the owning user may edit
func (h *Handler) UpdateBusiness(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid business id")
		return
	}

	business, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.AppErrorResponse(c, common.NewNotFoundError("business not found", err))
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to get business")
		return
	}
	if business.OwnerID != userID {
		common.ErrorResponse(c, http.StatusForbidden, "not the business owner")
		return
	}

	var req struct {
		Name         string  `json:"name" binding:"required,min=2,max=100"`
		Category     string  `json:"category" binding:"max=50"`
		Latitude     float64 `json:"latitude" binding:"min=-90,max=90"`
		Longitude    float64 `json:"longitude" binding:"min=-180,max=180"`
		RadiusMeters float64 `json:"radius_meters" binding:"omitempty,min=10,max=500"`
		IsActive     *bool   `json:"is_active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, validation.Message(err))
		return
	}

	business.Name = req.Name
	business.Category = req.Category
	business.Latitude = req.Latitude
	business.Longitude = req.Longitude
	business.RadiusMeters = req.RadiusMeters
	if req.IsActive != nil {
		business.IsActive = *req.IsActive
	}

	if err := h.service.Update(c.Request.Context(), business); err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to update business")
		return
	}

	common.SuccessResponse(c, business)
}
