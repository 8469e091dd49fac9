package coupons

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/localperks/review-rewards/pkg/common"
	"github.com/localperks/review-rewards/pkg/middleware"
	"github.com/localperks/review-rewards/pkg/validation"
)

// Handler handles HTTP requests for coupons
type Handler struct {
	service *Service
}

// NewHandler creates a new coupons handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// ListMyCoupons returns the authenticated user's coupons
func (h *Handler) ListMyCoupons(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	coupons, err := h.service.ListForUser(c.Request.Context(), userID)
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to list coupons")
		return
	}
	if coupons == nil {
		coupons = []*Coupon{}
	}

	common.SuccessResponse(c, coupons)
}

// ValidateCoupon resolves a scanned code and reports redeemability
func (h *Handler) ValidateCoupon(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		common.ErrorResponse(c, http.StatusBadRequest, "missing coupon code")
		return
	}

	coupon, valid, err := h.service.Validate(c.Request.Context(), code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.AppErrorResponse(c, common.NewNotFoundError("coupon not found", err))
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to validate coupon")
		return
	}

	common.SuccessResponse(c, gin.H{
		"coupon":     coupon,
		"valid":      valid,
		"qr_payload": NewQRPayload(coupon),
	})
}

// RedeemCoupon redeems a coupon on behalf of the scanning business owner
func (h *Handler) RedeemCoupon(c *gin.Context) {
	redeemerID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid coupon id")
		return
	}

	coupon, err := h.service.Redeem(c.Request.Context(), id, redeemerID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			common.AppErrorResponse(c, common.NewNotFoundError("coupon not found", err))
		case errors.Is(err, ErrConflict):
			common.AppErrorResponse(c, common.NewConflictError("coupon already redeemed").WithReason(common.ReasonCouponConflict))
		case errors.Is(err, ErrExpired):
			common.AppErrorResponse(c, common.NewConflictError("coupon expired").WithReason(common.ReasonCouponConflict))
		default:
			common.ErrorResponse(c, http.StatusInternalServerError, "failed to redeem coupon")
		}
		return
	}

	common.SuccessResponse(c, coupon)
}

// CalculateDiscount previews the discount a coupon grants on a purchase
func (h *Handler) CalculateDiscount(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid coupon id")
		return
	}

	var req struct {
		PurchaseAmount float64 `json:"purchase_amount" binding:"required,gt=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, validation.Message(err))
		return
	}

	coupon, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.AppErrorResponse(c, common.NewNotFoundError("coupon not found", err))
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to get coupon")
		return
	}

	common.SuccessResponse(c, gin.H{
		"coupon_id":       coupon.ID,
		"purchase_amount": req.PurchaseAmount,
		"discount":        coupon.CalculateDiscount(req.PurchaseAmount),
	})
}
