package reviews

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/localperks/review-rewards/internal/businesses"
	"github.com/localperks/review-rewards/internal/coupons"
	"github.com/localperks/review-rewards/internal/fraud"
)

// RepositoryInterface abstracts review persistence
type RepositoryInterface interface {
	Create(ctx context.Context, review *Review) error
	FindByID(ctx context.Context, id uuid.UUID) (*Review, error)
	FindByActorAndBusinessSince(ctx context.Context, actorID, businessID uuid.UUID, since time.Time) (*Review, error)
	CountByActorSince(ctx context.Context, actorID uuid.UUID, since time.Time) (int, error)
	CountSameDeviceSince(ctx context.Context, fingerprint string, since time.Time) (int, error)
	FindAllByBusiness(ctx context.Context, businessID uuid.UUID, limit, offset int) ([]*Review, int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
	AddHelpfulVote(ctx context.Context, reviewID, voterID uuid.UUID) error
}

// BusinessDirectory supplies geofence targets and receives rating recomputes
type BusinessDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (*businesses.Business, error)
	RecomputeRating(ctx context.Context, businessID uuid.UUID) (float64, int, error)
}

// CouponIssuer mints review-reward coupons
type CouponIssuer interface {
	Issue(ctx context.Context, businessID, userID, reviewID uuid.UUID) (*coupons.Coupon, error)
}

// FraudEvaluator scores submission security metadata
type FraudEvaluator interface {
	Evaluate(ctx context.Context, actorID uuid.UUID, sub *fraud.SubmissionContext) (*fraud.Decision, error)
}

// EventPublisher emits domain events for downstream consumers
type EventPublisher interface {
	Publish(ctx context.Context, subject, eventType string, payload interface{}) error
}
