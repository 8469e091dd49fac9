package reviews

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/localperks/review-rewards/internal/coupons"
	"github.com/localperks/review-rewards/internal/fraud"
	"github.com/localperks/review-rewards/internal/geo"
	"github.com/localperks/review-rewards/pkg/common"
	"github.com/localperks/review-rewards/pkg/config"
	"github.com/localperks/review-rewards/pkg/eventbus"
	"github.com/localperks/review-rewards/pkg/logger"
)

// Service orchestrates review submission: guard checks, geofence and fraud
// verification, persistence, rating recompute, reward issuance, and event
// publication.
type Service struct {
	repo       RepositoryInterface
	businesses BusinessDirectory
	couponSvc  CouponIssuer
	evaluator  FraudEvaluator
	publisher  EventPublisher
	cfg        config.FraudConfig
	now        func() time.Time
}

// NewService creates a new reviews service
func NewService(repo RepositoryInterface, businessDir BusinessDirectory, couponSvc CouponIssuer, evaluator FraudEvaluator, publisher EventPublisher, cfg config.FraudConfig) *Service {
	return &Service{
		repo:       repo,
		businesses: businessDir,
		couponSvc:  couponSvc,
		evaluator:  evaluator,
		publisher:  publisher,
		cfg:        cfg,
		now:        time.Now,
	}
}

// WithNow overrides the service clock (used in tests)
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

// Submit runs the full verification pipeline for one review. Until the
// review row is written, any failure leaves nothing behind. Once written,
// the review is the durable outcome: rating recompute, coupon mint, and
// event publication are best-effort and only logged on failure.
func (s *Service) Submit(ctx context.Context, authorID uuid.UUID, req *SubmitRequest) (*SubmitResult, error) {
	log := logger.WithContext(ctx)
	dayStart := startOfDay(s.now())

	// rate guard
	todayCount, err := s.repo.CountByActorSince(ctx, authorID, dayStart)
	if err != nil {
		return nil, common.NewInternalServerError("failed to check review rate")
	}
	if todayCount >= s.cfg.MaxReviewsPerDay {
		return nil, common.NewTooManyRequestsError(
			fmt.Sprintf("daily limit of %d reviews reached, try again tomorrow", s.cfg.MaxReviewsPerDay))
	}

	// duplicate guard
	existing, err := s.repo.FindByActorAndBusinessSince(ctx, authorID, req.BusinessID, dayStart)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, common.NewInternalServerError("failed to check for duplicate review")
	}
	if existing != nil {
		return nil, common.NewConflictError("you have already reviewed this business today").
			WithReason(common.ReasonDuplicateReview)
	}

	// geofence
	business, err := s.businesses.Get(ctx, req.BusinessID)
	if err != nil {
		return nil, common.NewNotFoundError("business not found", err)
	}
	distance := geo.DistanceMeters(req.Latitude, req.Longitude, business.Latitude, business.Longitude)
	if !geo.IsWithinGeofence(req.Latitude, req.Longitude, business.Latitude, business.Longitude, business.RadiusMeters) {
		return nil, common.NewForbiddenError(
			fmt.Sprintf("you are %.0f meters from the business, reviews require being within %.0f meters",
				distance, business.RadiusMeters)).
			WithReason(common.ReasonGeofence)
	}

	// fraud signals
	decision, err := s.evaluator.Evaluate(ctx, authorID, &fraud.SubmissionContext{
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
		return nil, common.NewInternalServerError("failed to evaluate submission")
	}
	if decision.Rejected() {
		return nil, common.NewForbiddenError(decision.Message).WithReason(decision.Reason)
	}

	status := StatusApproved
	if decision.Outcome == fraud.OutcomeFlag {
		status = StatusFlagged
	}

	capturedAt := req.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = s.now()
	}

	review := &Review{
		ID:         uuid.New(),
		AuthorID:   authorID,
		BusinessID: req.BusinessID,
		Rating:     req.Rating,
		Comment:    req.Comment,
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		Verified:   true,
		Status:     status,
		CapturedAt: capturedAt,
		Security: SecurityMetadata{
			GPSAccuracyMeters:    req.GPSAccuracyMeters,
			VerificationSeconds:  req.VerificationSeconds,
			MotionDetected:       req.MotionDetected,
			MockLocation:         req.MockLocation,
			LocationSampleCount:  req.LocationSampleCount,
			SuspiciousFlagCount:  len(decision.Flags),
			DeviceFingerprint:    req.DeviceFingerprint,
			Platform:             req.Platform,
			DistanceMeters:       distance,
			BusinessRadiusMeters: business.RadiusMeters,
			Anomalies:            req.ClientAnomalies,
		},
	}

	if err := s.repo.Create(ctx, review); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, common.NewConflictError("you have already reviewed this business today").
				WithReason(common.ReasonDuplicateReview)
		}
		return nil, common.NewInternalServerError("failed to save review")
	}

	// The review is durable from here; downstream steps never undo it.
	if _, _, err := s.businesses.RecomputeRating(ctx, business.ID); err != nil {
		log.Error("rating recompute failed after review creation",
			zap.String("review_id", review.ID.String()),
			zap.String("business_id", business.ID.String()),
			zap.Error(err))
	}

	result := &SubmitResult{Review: review}
	coupon, err := s.couponSvc.Issue(ctx, business.ID, authorID, review.ID)
	switch {
	case err == nil:
		result.Coupon = coupon
	case errors.Is(err, coupons.ErrLimitReached):
		log.Info("reward skipped, template redemption limit reached",
			zap.String("business_id", business.ID.String()))
	default:
		log.Error("coupon issuance failed after review creation",
			zap.String("review_id", review.ID.String()),
			zap.Error(err))
	}

	s.publishSubmissionEvents(review, business.Name, business.OwnerID, result.Coupon)

	return result, nil
}

// publishSubmissionEvents emits review.created and coupon.issued without
// blocking the caller. Delivery is best-effort.
func (s *Service) publishSubmissionEvents(review *Review, businessName string, ownerID uuid.UUID, coupon *coupons.Coupon) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		err := s.publisher.Publish(ctx, eventbus.SubjectReviewCreated, eventbus.EventReviewCreated, eventbus.ReviewCreatedData{
			ReviewID:     review.ID,
			BusinessID:   review.BusinessID,
			BusinessName: businessName,
			OwnerID:      ownerID,
			AuthorID:     review.AuthorID,
			Rating:       review.Rating,
		})
		if err != nil {
			logger.Error("failed to publish review.created",
				zap.String("review_id", review.ID.String()), zap.Error(err))
		}

		if coupon == nil {
			return
		}
		err = s.publisher.Publish(ctx, eventbus.SubjectCouponIssued, eventbus.EventCouponIssued, eventbus.CouponIssuedData{
			CouponID:     coupon.ID,
			Code:         coupon.Code,
			BusinessID:   coupon.BusinessID,
			BusinessName: businessName,
			UserID:       coupon.UserID,
			ReviewID:     coupon.ReviewID,
			ValidUntil:   coupon.ValidUntil.UTC().Format(time.RFC3339),
		})
		if err != nil {
			logger.Error("failed to publish coupon.issued",
				zap.String("coupon_id", coupon.ID.String()), zap.Error(err))
		}
	}()
}

// Get fetches a review by ID
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Review, error) {
	return s.repo.FindByID(ctx, id)
}

// ListForBusiness lists a business's reviews with pagination
func (s *Service) ListForBusiness(ctx context.Context, businessID uuid.UUID, limit, offset int) ([]*Review, int64, error) {
	return s.repo.FindAllByBusiness(ctx, businessID, limit, offset)
}

// Moderate changes a review's status and recomputes the business rating,
// since approved-set membership may have changed.
func (s *Service) Moderate(ctx context.Context, id uuid.UUID, status Status) error {
	review, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return err
	}
	if _, _, err := s.businesses.RecomputeRating(ctx, review.BusinessID); err != nil {
		logger.WithContext(ctx).Error("rating recompute failed after moderation",
			zap.String("review_id", id.String()), zap.Error(err))
	}
	return nil
}

// MarkHelpful records a helpfulness vote on a review
func (s *Service) MarkHelpful(ctx context.Context, reviewID, voterID uuid.UUID) error {
	return s.repo.AddHelpfulVote(ctx, reviewID, voterID)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
