package coupons

import (
	"time"

	"github.com/google/uuid"
)

// RewardType classifies what a coupon grants
type RewardType string

const (
	RewardPercentage   RewardType = "percentage"
	RewardFixed        RewardType = "fixed"
	RewardBuyOneGetOne RewardType = "buy1get1"
	RewardFreeDrink    RewardType = "free_drink"
	RewardFreeItem     RewardType = "free_item"
)

// Status is a coupon's lifecycle state
type Status string

const (
	StatusActive    Status = "active"
	StatusRedeemed  Status = "redeemed"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

// ValidityWindow is the fixed lifetime of a review-reward coupon. Short on
// purpose: the reward is meant to be spent during the same visit.
const ValidityWindow = 2 * time.Hour

// Default reward when a business has no active template
const (
	DefaultRewardType  = RewardPercentage
	DefaultRewardValue = 10.0
)

// CouponTemplate is an owner-defined reward rule reused across issuances.
// redemption_count tracks redeemed review-reward coupons against the limit;
// usage_count is an advisory mint counter and carries no invariant.
type CouponTemplate struct {
	ID                uuid.UUID  `json:"id"`
	BusinessID        uuid.UUID  `json:"business_id"`
	RewardType        RewardType `json:"reward_type"`
	RewardValue       float64    `json:"reward_value"`
	MinPurchaseAmount float64    `json:"min_purchase_amount"`
	MaxDiscountAmount *float64   `json:"max_discount_amount,omitempty"`
	RedemptionLimit   *int       `json:"redemption_limit,omitempty"`
	RedemptionCount   int        `json:"redemption_count"`
	UsageCount        int        `json:"usage_count"`
	IsActive          bool       `json:"is_active"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Coupon is a single-use, time-boxed reward instance
type Coupon struct {
	ID                uuid.UUID  `json:"id"`
	BusinessID        uuid.UUID  `json:"business_id"`
	UserID            uuid.UUID  `json:"user_id"`
	ReviewID          uuid.UUID  `json:"review_id"`
	TemplateID        *uuid.UUID `json:"template_id,omitempty"`
	Code              string     `json:"code"`
	RewardType        RewardType `json:"reward_type"`
	RewardValue       float64    `json:"reward_value"`
	MaxDiscountAmount *float64   `json:"max_discount_amount,omitempty"`
	ValidFrom         time.Time  `json:"valid_from"`
	ValidUntil        time.Time  `json:"valid_until"`
	Status            Status     `json:"status"`
	RedeemedAt        *time.Time `json:"redeemed_at,omitempty"`
	RedeemedBy        *uuid.UUID `json:"redeemed_by,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// QRPayload is the wire format embedded in a coupon's QR code. Field names
// and casing are consumed by deployed mobile clients; do not change them.
type QRPayload struct {
	Type       string `json:"type"`
	CouponID   string `json:"couponId"`
	Code       string `json:"code"`
	BusinessID string `json:"businessId"`
	UserID     string `json:"userId"`
	ReviewID   string `json:"reviewId"`
	Timestamp  string `json:"timestamp"`
}

// NewQRPayload builds the scan payload for a coupon
func NewQRPayload(c *Coupon) QRPayload {
	return QRPayload{
		Type:       "coupon",
		CouponID:   c.ID.String(),
		Code:       c.Code,
		BusinessID: c.BusinessID.String(),
		UserID:     c.UserID.String(),
		ReviewID:   c.ReviewID.String(),
		Timestamp:  c.ValidFrom.UTC().Format(time.RFC3339),
	}
}

// IsValid reports whether the coupon can be redeemed at the given instant
func (c *Coupon) IsValid(now time.Time) bool {
	if c.Status != StatusActive {
		return false
	}
	if now.Before(c.ValidFrom) || now.After(c.ValidUntil) {
		return false
	}
	return true
}

// CalculateDiscount computes the money value of the coupon against a purchase
func (c *Coupon) CalculateDiscount(purchaseAmount float64) float64 {
	if purchaseAmount <= 0 {
		return 0
	}

	switch c.RewardType {
	case RewardPercentage, RewardBuyOneGetOne:
		// buy1get1 is expressed as a percentage-equivalent of the purchase
		discount := purchaseAmount * c.RewardValue / 100
		if c.MaxDiscountAmount != nil && discount > *c.MaxDiscountAmount {
			discount = *c.MaxDiscountAmount
		}
		return discount
	case RewardFixed, RewardFreeDrink, RewardFreeItem:
		// reward value is the item price; never discount more than the bill
		if c.RewardValue > purchaseAmount {
			return purchaseAmount
		}
		return c.RewardValue
	default:
		return 0
	}
}
