package coupons

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/localperks/review-rewards/pkg/logger"
)

var (
	// ErrExpired is returned when redeeming a coupon past its validity window
	ErrExpired = errors.New("coupon expired")
	// ErrLimitReached signals the template's redemption limit is met, so no
	// new coupon may mint.
	ErrLimitReached = errors.New("template redemption limit reached")
)

// Store abstracts persistence for coupons and templates
type Store interface {
	CodeChecker
	Create(ctx context.Context, c *Coupon) error
	FindByID(ctx context.Context, id uuid.UUID) (*Coupon, error)
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Coupon, error)
	ConditionalRedeem(ctx context.Context, id uuid.UUID, redeemerID uuid.UUID, now time.Time) (*Coupon, error)
	BulkExpire(ctx context.Context, before time.Time) (int, error)
	FindActiveTemplate(ctx context.Context, businessID uuid.UUID) (*CouponTemplate, error)
	CountRedeemedForTemplate(ctx context.Context, templateID uuid.UUID) (int, error)
	IncrementTemplateUsage(ctx context.Context, templateID uuid.UUID) error
	IncrementTemplateRedemptions(ctx context.Context, templateID uuid.UUID) error
}

// Service mints, validates, redeems, and expires review-reward coupons
type Service struct {
	repo Store
	now  func() time.Time
}

// NewService creates a new coupons service
func NewService(repo Store) *Service {
	return &Service{repo: repo, now: time.Now}
}

// WithNow overrides the service clock (used in tests)
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

// Issue mints a single-use coupon for a verified review. The business's
// active template supplies the reward terms; with no template the default
// 10% percentage reward applies. Returns ErrLimitReached when the template's
// redemption limit is already met.
//
// The limit check is read-then-mint, so concurrent issuances on the same
// business can overshoot slightly. The limit is soft.
func (s *Service) Issue(ctx context.Context, businessID, userID, reviewID uuid.UUID) (*Coupon, error) {
	template, err := s.repo.FindActiveTemplate(ctx, businessID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to load reward template: %w", err)
	}

	coupon := &Coupon{
		ID:          uuid.New(),
		BusinessID:  businessID,
		UserID:      userID,
		ReviewID:    reviewID,
		RewardType:  DefaultRewardType,
		RewardValue: DefaultRewardValue,
		Status:      StatusActive,
	}

	if template != nil {
		if template.RedemptionLimit != nil {
			redeemed, err := s.repo.CountRedeemedForTemplate(ctx, template.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to count redeemed coupons: %w", err)
			}
			if redeemed >= *template.RedemptionLimit {
				return nil, ErrLimitReached
			}
		}
		coupon.TemplateID = &template.ID
		coupon.RewardType = template.RewardType
		coupon.RewardValue = template.RewardValue
		coupon.MaxDiscountAmount = template.MaxDiscountAmount
	}

	code, err := GenerateCode(ctx, s.repo)
	if err != nil {
		return nil, err
	}
	coupon.Code = code

	now := s.now()
	coupon.ValidFrom = now
	coupon.ValidUntil = now.Add(ValidityWindow)

	if err := s.repo.Create(ctx, coupon); err != nil {
		return nil, err
	}

	if template != nil {
		// advisory counter, a miss here does not invalidate the coupon
		if err := s.repo.IncrementTemplateUsage(ctx, template.ID); err != nil {
			logger.WithContext(ctx).Warn("failed to increment template usage",
				zap.String("template_id", template.ID.String()),
				zap.Error(err))
		}
	}

	logger.WithContext(ctx).Info("coupon issued",
		zap.String("coupon_id", coupon.ID.String()),
		zap.String("business_id", businessID.String()),
		zap.String("user_id", userID.String()),
		zap.String("reward_type", string(coupon.RewardType)))

	return coupon, nil
}

// Validate resolves a scanned code and reports whether the coupon is
// currently redeemable, alongside its QR payload.
func (s *Service) Validate(ctx context.Context, code string) (*Coupon, bool, error) {
	coupon, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, false, err
	}
	return coupon, coupon.IsValid(s.now()), nil
}

// Get fetches a coupon by ID
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Coupon, error) {
	return s.repo.FindByID(ctx, id)
}

// ListForUser returns a user's coupons, newest first
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]*Coupon, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Redeem transitions a coupon active→redeemed exactly once. The store-level
// conditional update is the real guarantee; callers racing on the same
// coupon see ErrConflict. A coupon past its window gets ErrExpired.
func (s *Service) Redeem(ctx context.Context, id uuid.UUID, redeemerID uuid.UUID) (*Coupon, error) {
	now := s.now()

	coupon, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if coupon.Status == StatusRedeemed {
		return nil, ErrConflict
	}
	if coupon.Status == StatusExpired || coupon.Status == StatusCancelled || now.After(coupon.ValidUntil) {
		return nil, ErrExpired
	}

	redeemed, err := s.repo.ConditionalRedeem(ctx, id, redeemerID, now)
	if err != nil {
		return nil, err
	}

	if redeemed.TemplateID != nil {
		if err := s.repo.IncrementTemplateRedemptions(ctx, *redeemed.TemplateID); err != nil {
			logger.WithContext(ctx).Warn("failed to increment template redemptions",
				zap.String("template_id", redeemed.TemplateID.String()),
				zap.Error(err))
		}
	}

	logger.WithContext(ctx).Info("coupon redeemed",
		zap.String("coupon_id", redeemed.ID.String()),
		zap.String("redeemed_by", redeemerID.String()))

	return redeemed, nil
}

// SweepExpired flips all coupons past validity to expired and returns the
// count. Safe to run concurrently with redemptions.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	count, err := s.repo.BulkExpire(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if count > 0 {
		logger.WithContext(ctx).Info("expired coupons swept", zap.Int("count", count))
	}
	return count, nil
}
