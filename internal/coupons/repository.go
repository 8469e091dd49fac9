package coupons

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when no coupon matches the lookup
	ErrNotFound = errors.New("coupon not found")
	// ErrConflict is returned when a conditional redeem finds the coupon no
	// longer active
	ErrConflict = errors.New("coupon not redeemable")
)

// Repository handles database operations for coupons and templates
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new coupons repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const couponColumns = `
	id, business_id, user_id, review_id, template_id, code, reward_type,
	reward_value, max_discount_amount, valid_from, valid_until, status,
	redeemed_at, redeemed_by, created_at, updated_at
`

func scanCoupon(row pgx.Row) (*Coupon, error) {
	c := &Coupon{}
	err := row.Scan(
		&c.ID, &c.BusinessID, &c.UserID, &c.ReviewID, &c.TemplateID, &c.Code,
		&c.RewardType, &c.RewardValue, &c.MaxDiscountAmount, &c.ValidFrom,
		&c.ValidUntil, &c.Status, &c.RedeemedAt, &c.RedeemedBy,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Create inserts a minted coupon
func (r *Repository) Create(ctx context.Context, c *Coupon) error {
	query := `
		INSERT INTO coupons (id, business_id, user_id, review_id, template_id,
		       code, reward_type, reward_value, max_discount_amount,
		       valid_from, valid_until, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		c.ID, c.BusinessID, c.UserID, c.ReviewID, c.TemplateID,
		c.Code, c.RewardType, c.RewardValue, c.MaxDiscountAmount,
		c.ValidFrom, c.ValidUntil, c.Status,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create coupon: %w", err)
	}
	return nil
}

// FindByID retrieves a coupon by ID
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*Coupon, error) {
	query := fmt.Sprintf(`SELECT %s FROM coupons WHERE id = $1`, couponColumns)
	c, err := scanCoupon(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get coupon: %w", err)
	}
	return c, nil
}

// FindByCode retrieves a coupon by its scan code
func (r *Repository) FindByCode(ctx context.Context, code string) (*Coupon, error) {
	query := fmt.Sprintf(`SELECT %s FROM coupons WHERE code = $1`, couponColumns)
	c, err := scanCoupon(r.db.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get coupon by code: %w", err)
	}
	return c, nil
}

// ListByUser returns a user's coupons, newest first
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*Coupon, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM coupons
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, couponColumns)

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list coupons: %w", err)
	}
	defer rows.Close()

	items := make([]*Coupon, 0)
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan coupon: %w", err)
		}
		items = append(items, c)
	}
	return items, nil
}

// CodeExists reports whether a code is already taken
func (r *Repository) CodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM coupons WHERE code = $1)`, code,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check coupon code: %w", err)
	}
	return exists, nil
}

// ConditionalRedeem atomically flips an active coupon to redeemed. The status
// guard in the WHERE clause is the at-most-once guarantee: under concurrent
// scans only one UPDATE matches a row.
func (r *Repository) ConditionalRedeem(ctx context.Context, id uuid.UUID, redeemerID uuid.UUID, now time.Time) (*Coupon, error) {
	query := fmt.Sprintf(`
		UPDATE coupons SET
			status = 'redeemed', redeemed_at = $3, redeemed_by = $2,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = 'active'
		RETURNING %s
	`, couponColumns)

	c, err := scanCoupon(r.db.QueryRow(ctx, query, id, redeemerID, now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("failed to redeem coupon: %w", err)
	}
	return c, nil
}

// BulkExpire flips all review-reward coupons past validity to expired and
// returns how many rows changed. Idempotent; a coupon redeemed moments
// earlier is skipped by the status filter.
func (r *Repository) BulkExpire(ctx context.Context, before time.Time) (int, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE coupons SET status = 'expired', updated_at = CURRENT_TIMESTAMP
		WHERE status = 'active' AND valid_until < $1
	`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to expire coupons: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// FindActiveTemplate returns the business's active reward template, or
// ErrNotFound when none is configured.
func (r *Repository) FindActiveTemplate(ctx context.Context, businessID uuid.UUID) (*CouponTemplate, error) {
	query := `
		SELECT id, business_id, reward_type, reward_value, min_purchase_amount,
		       max_discount_amount, redemption_limit, redemption_count,
		       usage_count, is_active, created_at, updated_at
		FROM coupon_templates
		WHERE business_id = $1 AND is_active = true
		ORDER BY created_at DESC
		LIMIT 1
	`
	tpl := &CouponTemplate{}
	err := r.db.QueryRow(ctx, query, businessID).Scan(
		&tpl.ID, &tpl.BusinessID, &tpl.RewardType, &tpl.RewardValue,
		&tpl.MinPurchaseAmount, &tpl.MaxDiscountAmount, &tpl.RedemptionLimit,
		&tpl.RedemptionCount, &tpl.UsageCount, &tpl.IsActive,
		&tpl.CreatedAt, &tpl.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get coupon template: %w", err)
	}
	return tpl, nil
}

// CountRedeemedForTemplate counts redeemed review-reward coupons minted from
// a template.
func (r *Repository) CountRedeemedForTemplate(ctx context.Context, templateID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM coupons
		WHERE template_id = $1 AND status = 'redeemed'
	`, templateID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count redeemed coupons: %w", err)
	}
	return count, nil
}

// IncrementTemplateUsage bumps the advisory mint counter on a template
func (r *Repository) IncrementTemplateUsage(ctx context.Context, templateID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `
		UPDATE coupon_templates SET usage_count = usage_count + 1,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`, templateID)
	if err != nil {
		return fmt.Errorf("failed to increment template usage: %w", err)
	}
	return nil
}

// IncrementTemplateRedemptions bumps the redeemed counter used against the
// redemption limit.
func (r *Repository) IncrementTemplateRedemptions(ctx context.Context, templateID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `
		UPDATE coupon_templates SET redemption_count = redemption_count + 1,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`, templateID)
	if err != nil {
		return fmt.Errorf("failed to increment template redemptions: %w", err)
	}
	return nil
}
