package businesses

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when no business matches the lookup
var ErrNotFound = errors.New("business not found")

// Repository handles database operations for businesses
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new businesses repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create inserts a new business
func (r *Repository) Create(ctx context.Context, b *Business) error {
	query := `
		INSERT INTO businesses (id, owner_id, name, category, latitude, longitude,
		       radius_meters, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING rating_average, rating_count, created_at, updated_at
	`
	b.ID = uuid.New()
	b.RadiusMeters = ClampRadius(b.RadiusMeters)
	err := r.db.QueryRow(ctx, query,
		b.ID, b.OwnerID, b.Name, b.Category, b.Latitude, b.Longitude,
		b.RadiusMeters, b.IsActive,
	).Scan(&b.RatingAverage, &b.RatingCount, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create business: %w", err)
	}
	return nil
}

// FindByID retrieves a business by ID
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*Business, error) {
	query := `
		SELECT id, owner_id, name, category, latitude, longitude, radius_meters,
		       rating_average, rating_count, is_active, created_at, updated_at
		FROM businesses WHERE id = $1
	`
	b := &Business{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&b.ID, &b.OwnerID, &b.Name, &b.Category, &b.Latitude, &b.Longitude,
		&b.RadiusMeters, &b.RatingAverage, &b.RatingCount, &b.IsActive,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get business: %w", err)
	}
	return b, nil
}

// RecomputeRating re-aggregates the business rating from approved reviews.
// Full recompute rather than incremental maintenance, so concurrent edits
// and deletes cannot cause the aggregate to drift.
func (r *Repository) RecomputeRating(ctx context.Context, businessID uuid.UUID) (float64, int, error) {
	query := `
		UPDATE businesses SET
			rating_average = agg.avg_rating,
			rating_count = agg.total,
			updated_at = CURRENT_TIMESTAMP
		FROM (
			SELECT COALESCE(AVG(rating), 0) AS avg_rating, COUNT(*) AS total
			FROM reviews
			WHERE business_id = $1 AND status = 'approved'
		) AS agg
		WHERE businesses.id = $1
		RETURNING businesses.rating_average, businesses.rating_count
	`
	var average float64
	var count int
	err := r.db.QueryRow(ctx, query, businessID).Scan(&average, &count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, 0, ErrNotFound
		}
		return 0, 0, fmt.Errorf("failed to recompute business rating: %w", err)
	}
	return average, count, nil
}

// Update persists owner-editable fields
func (r *Repository) Update(ctx context.Context, b *Business) error {
	query := `
		UPDATE businesses SET
			name = $2, category = $3, latitude = $4, longitude = $5,
			radius_meters = $6, is_active = $7, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING updated_at
	`
	b.RadiusMeters = ClampRadius(b.RadiusMeters)
	err := r.db.QueryRow(ctx, query,
		b.ID, b.Name, b.Category, b.Latitude, b.Longitude,
		b.RadiusMeters, b.IsActive,
	).Scan(&b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to update business: %w", err)
	}
	return nil
}
