package reviews

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when no review matches the lookup
	ErrNotFound = errors.New("review not found")
	// ErrDuplicate is returned when the same-day uniqueness constraint
	// rejects an insert. The store constraint is the real invariant; the
	// service-level duplicate check is an optimization.
	ErrDuplicate = errors.New("duplicate review for business today")
)

// Repository handles database operations for reviews
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new reviews repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const reviewColumns = `
	id, author_id, business_id, rating, comment, latitude, longitude,
	verified, status, security, helpful_count, captured_at, created_at, updated_at
`

func scanReview(row pgx.Row) (*Review, error) {
	rv := &Review{}
	err := row.Scan(
		&rv.ID, &rv.AuthorID, &rv.BusinessID, &rv.Rating, &rv.Comment,
		&rv.Latitude, &rv.Longitude, &rv.Verified, &rv.Status, &rv.Security,
		&rv.HelpfulCount, &rv.CapturedAt, &rv.CreatedAt, &rv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return rv, nil
}

// Create inserts a new review
func (r *Repository) Create(ctx context.Context, review *Review) error {
	query := `
		INSERT INTO reviews (id, author_id, business_id, rating, comment,
		       latitude, longitude, verified, status, security, captured_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		review.ID, review.AuthorID, review.BusinessID, review.Rating,
		review.Comment, review.Latitude, review.Longitude, review.Verified,
		review.Status, review.Security, review.CapturedAt,
	).Scan(&review.CreatedAt, &review.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create review: %w", err)
	}
	return nil
}

// FindByID retrieves a review by ID
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*Review, error) {
	query := fmt.Sprintf(`SELECT %s FROM reviews WHERE id = $1`, reviewColumns)
	rv, err := scanReview(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get review: %w", err)
	}
	return rv, nil
}

// FindByActorAndBusinessSince returns the actor's most recent review for a
// business created at or after the given instant, or ErrNotFound.
func (r *Repository) FindByActorAndBusinessSince(ctx context.Context, actorID, businessID uuid.UUID, since time.Time) (*Review, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM reviews
		WHERE author_id = $1 AND business_id = $2 AND created_at >= $3
		ORDER BY created_at DESC
		LIMIT 1
	`, reviewColumns)
	rv, err := scanReview(r.db.QueryRow(ctx, query, actorID, businessID, since))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find review: %w", err)
	}
	return rv, nil
}

// CountByActorSince counts the actor's reviews created at or after the
// given instant.
func (r *Repository) CountByActorSince(ctx context.Context, actorID uuid.UUID, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM reviews WHERE author_id = $1 AND created_at >= $2
	`, actorID, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count reviews: %w", err)
	}
	return count, nil
}

// CountSameDeviceSince counts reviews submitted from a device fingerprint
// at or after the given instant.
func (r *Repository) CountSameDeviceSince(ctx context.Context, fingerprint string, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM reviews
		WHERE security->>'device_fingerprint' = $1 AND created_at >= $2
	`, fingerprint, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count device reviews: %w", err)
	}
	return count, nil
}

// FindAllByBusiness lists a business's reviews with pagination, newest first
func (r *Repository) FindAllByBusiness(ctx context.Context, businessID uuid.UUID, limit, offset int) ([]*Review, int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM reviews WHERE business_id = $1`, businessID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count business reviews: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM reviews
		WHERE business_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, reviewColumns)

	rows, err := r.db.Query(ctx, query, businessID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	items := make([]*Review, 0)
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan review: %w", err)
		}
		items = append(items, rv)
	}
	return items, total, nil
}

// UpdateStatus changes a review's moderation status
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE reviews SET status = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $1
	`, id, status)
	if err != nil {
		return fmt.Errorf("failed to update review status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AddHelpfulVote records a helpfulness vote; repeat votes by the same user
// are silently ignored via the vote table's primary key.
func (r *Repository) AddHelpfulVote(ctx context.Context, reviewID, voterID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO review_helpful_votes (review_id, voter_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, reviewID, voterID)
	if err != nil {
		return fmt.Errorf("failed to record helpful vote: %w", err)
	}
	if tag.RowsAffected() > 0 {
		if _, err := r.db.Exec(ctx, `
			UPDATE reviews SET helpful_count = helpful_count + 1,
				updated_at = CURRENT_TIMESTAMP
			WHERE id = $1
		`, reviewID); err != nil {
			return fmt.Errorf("failed to bump helpful count: %w", err)
		}
	}
	return nil
}
