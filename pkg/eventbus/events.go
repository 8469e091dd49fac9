package eventbus

import "github.com/google/uuid"

// Subjects and event types published by the reviews service. Each event type
// gets its own subject token under reviews.* so wildcard subscribers on
// SubjectReviewsPattern receive everything the service emits.
const (
	SubjectReviewsPattern = "reviews.>"
	SubjectReviewCreated  = "reviews.created"
	SubjectCouponIssued   = "reviews.coupon_issued"

	EventReviewCreated = "review.created"
	EventCouponIssued  = "coupon.issued"
)

// ReviewCreatedData is the payload for review.created events
type ReviewCreatedData struct {
	ReviewID     uuid.UUID `json:"review_id"`
	BusinessID   uuid.UUID `json:"business_id"`
	BusinessName string    `json:"business_name"`
	OwnerID      uuid.UUID `json:"owner_id"`
	AuthorID     uuid.UUID `json:"author_id"`
	Rating       int       `json:"rating"`
}

// CouponIssuedData is the payload for coupon.issued events
type CouponIssuedData struct {
	CouponID     uuid.UUID `json:"coupon_id"`
	Code         string    `json:"code"`
	BusinessID   uuid.UUID `json:"business_id"`
	BusinessName string    `json:"business_name"`
	UserID       uuid.UUID `json:"user_id"`
	ReviewID     uuid.UUID `json:"review_id"`
	ValidUntil   string    `json:"valid_until"`
}
