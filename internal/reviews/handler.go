package reviews

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/localperks/review-rewards/internal/businesses"
	"github.com/localperks/review-rewards/pkg/common"
	"github.com/localperks/review-rewards/pkg/middleware"
	"github.com/localperks/review-rewards/pkg/validation"
)

// Handler handles HTTP requests for reviews
type Handler struct {
	service *Service
}

// NewHandler creates a new reviews handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type submitReviewRequest struct {
	BusinessID string  `json:"business_id" binding:"required,uuid"`
	Rating     int     `json:"rating" binding:"required,min=1,max=5"`
	Comment    string  `json:"comment" binding:"required,min=10,max=500"`
	Latitude   float64 `json:"latitude" binding:"min=-90,max=90"`
	Longitude  float64 `json:"longitude" binding:"min=-180,max=180"`
	CapturedAt string  `json:"captured_at"`

	GPSAccuracyMeters   float64  `json:"gps_accuracy_meters" binding:"required,gt=0"`
	VerificationSeconds float64  `json:"verification_seconds"`
	MotionDetected      bool     `json:"motion_detected"`
	MockLocation        bool     `json:"mock_location"`
	LocationSampleCount int      `json:"location_sample_count"`
	ClientAnomalies     []string `json:"client_anomalies"`
	DeviceFingerprint   string   `json:"device_fingerprint"`
	Platform            string   `json:"platform" binding:"omitempty,oneof=ios android web"`
}

// SubmitReview runs the full submission pipeline for the authenticated user
func (h *Handler) SubmitReview(c *gin.Context) {
	authorID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req submitReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.AppErrorResponse(c, common.NewBadRequestError(validation.Message(err), err).
			WithReason(common.ReasonValidation))
		return
	}

	businessID, err := uuid.Parse(req.BusinessID)
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid business id")
		return
	}

	var capturedAt time.Time
	if req.CapturedAt != "" {
		capturedAt, err = time.Parse(time.RFC3339, req.CapturedAt)
		if err != nil {
			common.ErrorResponse(c, http.StatusBadRequest, "captured_at must be RFC3339")
			return
		}
	}

	result, err := h.service.Submit(c.Request.Context(), authorID, &SubmitRequest{
		BusinessID:          businessID,
		Rating:              req.Rating,
		Comment:             req.Comment,
		Latitude:            req.Latitude,
		Longitude:           req.Longitude,
		CapturedAt:          capturedAt,
		GPSAccuracyMeters:   req.GPSAccuracyMeters,
		VerificationSeconds: req.VerificationSeconds,
		MotionDetected:      req.MotionDetected,
		MockLocation:        req.MockLocation,
		LocationSampleCount: req.LocationSampleCount,
		ClientAnomalies:     req.ClientAnomalies,
		DeviceFingerprint:   req.DeviceFingerprint,
		Platform:            req.Platform,
	})
	if err != nil {
		var appErr *common.AppError
		if errors.As(err, &appErr) {
			common.AppErrorResponse(c, appErr)
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to submit review")
		return
	}

	common.CreatedResponse(c, result)
}

// GetReview returns a review by ID
func (h *Handler) GetReview(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid review id")
		return
	}

	review, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.AppErrorResponse(c, common.NewNotFoundError("review not found", err))
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to get review")
		return
	}

	common.SuccessResponse(c, review)
}

// ListBusinessReviews lists a business's reviews with pagination
func (h *Handler) ListBusinessReviews(c *gin.Context) {
	businessID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid business id")
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	items, total, err := h.service.ListForBusiness(c.Request.Context(), businessID, limit, offset)
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to list reviews")
		return
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	common.SuccessResponseWithMeta(c, items, &common.Meta{
		Page:       offset/limit + 1,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	})
}

// MarkHelpful records a helpfulness vote by the authenticated user
func (h *Handler) MarkHelpful(c *gin.Context) {
	voterID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid review id")
		return
	}

	if err := h.service.MarkHelpful(c.Request.Context(), id, voterID); err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to record vote")
		return
	}

	common.SuccessResponse(c, gin.H{"review_id": id})
}

// ModerateReview changes a review's status. Admin only.
func (h *Handler) ModerateReview(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid review id")
		return
	}

	var req struct {
		Status string `json:"status" binding:"required,review_status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, validation.Message(err))
		return
	}

	if err := h.service.Moderate(c.Request.Context(), id, Status(req.Status)); err != nil {
		if errors.Is(err, ErrNotFound) {
			common.AppErrorResponse(c, common.NewNotFoundError("review not found", err))
			return
		}
		if errors.Is(err, businesses.ErrNotFound) {
			common.AppErrorResponse(c, common.NewNotFoundError("business not found", err))
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to moderate review")
		return
	}

	common.SuccessResponse(c, gin.H{"review_id": id, "status": req.Status})
}
