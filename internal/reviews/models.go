package reviews

import (
	"time"

	"github.com/google/uuid"

	"github.com/localperks/review-rewards/internal/coupons"
)

// Status is a review's moderation state
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusFlagged  Status = "flagged"
)

// Comment length bounds
const (
	MinCommentLength = 10
	MaxCommentLength = 500
)

// SecurityMetadata is the verification snapshot captured at submission time.
// distance_meters and business_radius_meters are historical facts recorded
// at that instant, never recomputed from live business data.
type SecurityMetadata struct {
	GPSAccuracyMeters    float64  `json:"gps_accuracy_meters"`
	VerificationSeconds  float64  `json:"verification_seconds"`
	MotionDetected       bool     `json:"motion_detected"`
	MockLocation         bool     `json:"mock_location"`
	LocationSampleCount  int      `json:"location_sample_count"`
	SuspiciousFlagCount  int      `json:"suspicious_flag_count"`
	DeviceFingerprint    string   `json:"device_fingerprint,omitempty"`
	Platform             string   `json:"platform,omitempty"`
	DistanceMeters       float64  `json:"distance_meters"`
	BusinessRadiusMeters float64  `json:"business_radius_meters"`
	Anomalies            []string `json:"anomalies,omitempty"`
}

// Review is an immutable-after-creation fact of a customer's visit
type Review struct {
	ID           uuid.UUID        `json:"id"`
	AuthorID     uuid.UUID        `json:"author_id"`
	BusinessID   uuid.UUID        `json:"business_id"`
	Rating       int              `json:"rating"`
	Comment      string           `json:"comment"`
	Latitude     float64          `json:"latitude"`
	Longitude    float64          `json:"longitude"`
	Verified     bool             `json:"verified"`
	Status       Status           `json:"status"`
	Security     SecurityMetadata `json:"security"`
	HelpfulCount int              `json:"helpful_count"`
	CapturedAt   time.Time        `json:"captured_at"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// SubmitRequest is the inbound review submission
type SubmitRequest struct {
	BusinessID uuid.UUID `json:"business_id"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	CapturedAt time.Time `json:"captured_at"`

	GPSAccuracyMeters   float64  `json:"gps_accuracy_meters"`
	VerificationSeconds float64  `json:"verification_seconds"`
	MotionDetected      bool     `json:"motion_detected"`
	MockLocation        bool     `json:"mock_location"`
	LocationSampleCount int      `json:"location_sample_count"`
	ClientAnomalies     []string `json:"client_anomalies"`
	DeviceFingerprint   string   `json:"device_fingerprint"`
	Platform            string   `json:"platform"`
}

// SubmitResult is the orchestrator's durable outcome: the persisted review
// plus the coupon when one was minted.
type SubmitResult struct {
	Review *Review         `json:"review"`
	Coupon *coupons.Coupon `json:"coupon,omitempty"`
}
