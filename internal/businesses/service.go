package businesses

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/localperks/review-rewards/pkg/logger"
)

// Store abstracts persistence for businesses
type Store interface {
	Create(ctx context.Context, b *Business) error
	FindByID(ctx context.Context, id uuid.UUID) (*Business, error)
	RecomputeRating(ctx context.Context, businessID uuid.UUID) (float64, int, error)
	Update(ctx context.Context, b *Business) error
}

// Service contains business logic for businesses
type Service struct {
	repo Store
}

// NewService creates a new businesses service
func NewService(repo Store) *Service {
	return &Service{repo: repo}
}

// Create registers a new business for an owner
func (s *Service) Create(ctx context.Context, b *Business) error {
	b.RadiusMeters = ClampRadius(b.RadiusMeters)
	if err := s.repo.Create(ctx, b); err != nil {
		return err
	}

	logger.WithContext(ctx).Info("business created",
		zap.String("business_id", b.ID.String()),
		zap.String("owner_id", b.OwnerID.String()),
		zap.Float64("radius_meters", b.RadiusMeters))
	return nil
}

// Get fetches a business by ID
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Business, error) {
	return s.repo.FindByID(ctx, id)
}

// Update persists owner edits to a business
func (s *Service) Update(ctx context.Context, b *Business) error {
	b.RadiusMeters = ClampRadius(b.RadiusMeters)
	return s.repo.Update(ctx, b)
}

// RecomputeRating re-aggregates the rating from the review store and returns
// the fresh average and count.
func (s *Service) RecomputeRating(ctx context.Context, businessID uuid.UUID) (float64, int, error) {
	average, count, err := s.repo.RecomputeRating(ctx, businessID)
	if err != nil {
		return 0, 0, err
	}

	logger.WithContext(ctx).Debug("business rating recomputed",
		zap.String("business_id", businessID.String()),
		zap.Float64("rating_average", average),
		zap.Int("rating_count", count))
	return average, count, nil
}
