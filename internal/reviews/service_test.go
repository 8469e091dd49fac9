package reviews

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localperks/review-rewards/internal/businesses"
	"github.com/localperks/review-rewards/internal/coupons"
	"github.com/localperks/review-rewards/internal/fraud"
	"github.com/localperks/review-rewards/pkg/common"
	"github.com/localperks/review-rewards/pkg/config"
	"github.com/localperks/review-rewards/pkg/eventbus"
)

type mockReviewRepo struct {
	mu      sync.Mutex
	reviews []*Review

	countByActor int
	duplicate    *Review
	createErr    error
}

func (m *mockReviewRepo) Create(_ context.Context, review *Review) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	review.CreatedAt = time.Now()
	review.UpdatedAt = review.CreatedAt
	m.reviews = append(m.reviews, review)
	return nil
}

func (m *mockReviewRepo) FindByID(_ context.Context, id uuid.UUID) (*Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rv := range m.reviews {
		if rv.ID == id {
			return rv, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockReviewRepo) FindByActorAndBusinessSince(_ context.Context, _, _ uuid.UUID, _ time.Time) (*Review, error) {
	if m.duplicate != nil {
		return m.duplicate, nil
	}
	return nil, ErrNotFound
}

func (m *mockReviewRepo) CountByActorSince(_ context.Context, _ uuid.UUID, _ time.Time) (int, error) {
	return m.countByActor, nil
}

func (m *mockReviewRepo) CountSameDeviceSince(_ context.Context, _ string, _ time.Time) (int, error) {
	return 0, nil
}

func (m *mockReviewRepo) FindAllByBusiness(_ context.Context, businessID uuid.UUID, _, _ int) ([]*Review, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Review
	for _, rv := range m.reviews {
		if rv.BusinessID == businessID {
			out = append(out, rv)
		}
	}
	return out, int64(len(out)), nil
}

func (m *mockReviewRepo) UpdateStatus(_ context.Context, id uuid.UUID, status Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rv := range m.reviews {
		if rv.ID == id {
			rv.Status = status
			return nil
		}
	}
	return ErrNotFound
}

func (m *mockReviewRepo) AddHelpfulVote(_ context.Context, reviewID, _ uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rv := range m.reviews {
		if rv.ID == reviewID {
			rv.HelpfulCount++
			return nil
		}
	}
	return ErrNotFound
}

type mockBusinessDir struct {
	business   *businesses.Business
	recomputes int
	mu         sync.Mutex
}

func (m *mockBusinessDir) Get(_ context.Context, id uuid.UUID) (*businesses.Business, error) {
	if m.business == nil || m.business.ID != id {
		return nil, businesses.ErrNotFound
	}
	return m.business, nil
}

func (m *mockBusinessDir) RecomputeRating(_ context.Context, _ uuid.UUID) (float64, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recomputes++
	return 4.5, 3, nil
}

type mockCouponIssuer struct {
	coupon *coupons.Coupon
	err    error
	calls  int
}

func (m *mockCouponIssuer) Issue(_ context.Context, businessID, userID, reviewID uuid.UUID) (*coupons.Coupon, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if m.coupon == nil {
		now := time.Now()
		m.coupon = &coupons.Coupon{
			ID:         uuid.New(),
			BusinessID: businessID,
			UserID:     userID,
			ReviewID:   reviewID,
			Code:       "HASH-TEST01",
			Status:     coupons.StatusActive,
			ValidFrom:  now,
			ValidUntil: now.Add(2 * time.Hour),
		}
	}
	return m.coupon, nil
}

type mockPublisher struct {
	mu       sync.Mutex
	subjects []string
	events   []string
	done     chan struct{}
	err      error
}

func (m *mockPublisher) Publish(_ context.Context, subject, eventType string, _ interface{}) error {
	m.mu.Lock()
	m.subjects = append(m.subjects, subject)
	m.events = append(m.events, eventType)
	m.mu.Unlock()
	if m.done != nil {
		m.done <- struct{}{}
	}
	return m.err
}

func testConfig() config.FraudConfig {
	return config.FraudConfig{
		MaxGPSAccuracyMeters:  50,
		AnomalyRejectCount:    3,
		MinLocationSamples:    5,
		DeviceReuseFlagCount:  3,
		MaxReviewsPerDay:      5,
		ExpectedVerifySeconds: 30,
		SuspiciousLogCapacity: 100,
	}
}

func testBusiness() *businesses.Business {
	return &businesses.Business{
		ID:           uuid.New(),
		OwnerID:      uuid.New(),
		Name:         "Harbor Coffee",
		Latitude:     40.7128,
		Longitude:    -74.0060,
		RadiusMeters: 50,
		IsActive:     true,
	}
}

func newTestService(repo *mockReviewRepo, dir *mockBusinessDir, issuer *mockCouponIssuer, pub *mockPublisher) *Service {
	cfg := testConfig()
	evaluator := fraud.NewEvaluator(cfg, fraud.NewRecorder(100), repo)
	return NewService(repo, dir, issuer, evaluator, pub, cfg)
}

func cleanRequest(businessID uuid.UUID) *SubmitRequest {
	return &SubmitRequest{
		BusinessID:          businessID,
		Rating:              5,
		Comment:             "great espresso and friendly staff",
		Latitude:            40.7128,
		Longitude:           -74.0060,
		GPSAccuracyMeters:   10,
		VerificationSeconds: 30,
		MotionDetected:      true,
		LocationSampleCount: 10,
		DeviceFingerprint:   "device-xyz",
		Platform:            "ios",
	}
}

func TestSubmit_EndToEndHappyPath(t *testing.T) {
	repo := &mockReviewRepo{}
	dir := &mockBusinessDir{business: testBusiness()}
	issuer := &mockCouponIssuer{}
	pub := &mockPublisher{done: make(chan struct{}, 2)}
	svc := newTestService(repo, dir, issuer, pub)

	author := uuid.New()
	result, err := svc.Submit(context.Background(), author, cleanRequest(dir.business.ID))
	require.NoError(t, err)

	require.NotNil(t, result.Review)
	assert.True(t, result.Review.Verified)
	assert.Equal(t, StatusApproved, result.Review.Status)
	assert.Equal(t, author, result.Review.AuthorID)
	assert.Equal(t, 50.0, result.Review.Security.BusinessRadiusMeters)
	assert.InDelta(t, 0, result.Review.Security.DistanceMeters, 0.001)

	require.NotNil(t, result.Coupon)
	assert.Equal(t, coupons.StatusActive, result.Coupon.Status)
	window := result.Coupon.ValidUntil.Sub(result.Coupon.ValidFrom)
	assert.InDelta(t, (2 * time.Hour).Seconds(), window.Seconds(), 1.0)

	assert.Equal(t, 1, dir.recomputes)

	// both events arrive asynchronously
	for i := 0; i < 2; i++ {
		select {
		case <-pub.done:
		case <-time.After(2 * time.Second):
			t.Fatal("expected event publication")
		}
	}
	assert.ElementsMatch(t, []string{"review.created", "coupon.issued"}, pub.events)
	assert.ElementsMatch(t, []string{eventbus.SubjectReviewCreated, eventbus.SubjectCouponIssued}, pub.subjects)
}

func TestSubmit_FifthReviewAllowedSixthRejected(t *testing.T) {
	dir := &mockBusinessDir{business: testBusiness()}

	repo := &mockReviewRepo{countByActor: 4}
	svc := newTestService(repo, dir, &mockCouponIssuer{}, &mockPublisher{})
	_, err := svc.Submit(context.Background(), uuid.New(), cleanRequest(dir.business.ID))
	assert.NoError(t, err)

	repo = &mockReviewRepo{countByActor: 5}
	svc = newTestService(repo, dir, &mockCouponIssuer{}, &mockPublisher{})
	_, err = svc.Submit(context.Background(), uuid.New(), cleanRequest(dir.business.ID))
	require.Error(t, err)

	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, common.ReasonRateLimited, appErr.Reason)
	assert.Contains(t, appErr.Message, "5")
	assert.Empty(t, repo.reviews)
}

func TestSubmit_DuplicateSameDayRejected(t *testing.T) {
	dir := &mockBusinessDir{business: testBusiness()}
	repo := &mockReviewRepo{duplicate: &Review{ID: uuid.New()}}
	svc := newTestService(repo, dir, &mockCouponIssuer{}, &mockPublisher{})

	_, err := svc.Submit(context.Background(), uuid.New(), cleanRequest(dir.business.ID))
	require.Error(t, err)

	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, common.ReasonDuplicateReview, appErr.Reason)
	assert.Empty(t, repo.reviews)
}

func TestSubmit_DuplicateRaceCaughtByStore(t *testing.T) {
	dir := &mockBusinessDir{business: testBusiness()}
	repo := &mockReviewRepo{createErr: ErrDuplicate}
	svc := newTestService(repo, dir, &mockCouponIssuer{}, &mockPublisher{})

	_, err := svc.Submit(context.Background(), uuid.New(), cleanRequest(dir.business.ID))
	require.Error(t, err)

	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, common.ReasonDuplicateReview, appErr.Reason)
}

func TestSubmit_OutsideGeofenceRejectedWithDistance(t *testing.T) {
	dir := &mockBusinessDir{business: testBusiness()}
	repo := &mockReviewRepo{}
	svc := newTestService(repo, dir, &mockCouponIssuer{}, &mockPublisher{})

	req := cleanRequest(dir.business.ID)
	// roughly 111 km north
	req.Latitude = 41.7128

	_, err := svc.Submit(context.Background(), uuid.New(), req)
	require.Error(t, err)

	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, common.ReasonGeofence, appErr.Reason)
	assert.Regexp(t, `\d+ meters`, appErr.Message)
	assert.Empty(t, repo.reviews)
	assert.Equal(t, 0, dir.recomputes)
}

func TestSubmit_MockLocationAlwaysRejected(t *testing.T) {
	dir := &mockBusinessDir{business: testBusiness()}
	repo := &mockReviewRepo{}
	svc := newTestService(repo, dir, &mockCouponIssuer{}, &mockPublisher{})

	req := cleanRequest(dir.business.ID)
	req.MockLocation = true

	_, err := svc.Submit(context.Background(), uuid.New(), req)
	require.Error(t, err)

	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, common.ReasonMockLocation, appErr.Reason)
	assert.Empty(t, repo.reviews)
}

func TestSubmit_PoorAccuracyRejected(t *testing.T) {
	dir := &mockBusinessDir{business: testBusiness()}
	repo := &mockReviewRepo{}
	svc := newTestService(repo, dir, &mockCouponIssuer{}, &mockPublisher{})

	req := cleanRequest(dir.business.ID)
	req.GPSAccuracyMeters = 80

	_, err := svc.Submit(context.Background(), uuid.New(), req)
	require.Error(t, err)

	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, common.ReasonPoorGPSAccuracy, appErr.Reason)
}

func TestSubmit_SoftSignalsFlagButPersist(t *testing.T) {
	dir := &mockBusinessDir{business: testBusiness()}
	repo := &mockReviewRepo{}
	svc := newTestService(repo, dir, &mockCouponIssuer{}, &mockPublisher{})

	req := cleanRequest(dir.business.ID)
	req.ClientAnomalies = []string{"rooted_device"}
	req.LocationSampleCount = 2

	result, err := svc.Submit(context.Background(), uuid.New(), req)
	require.NoError(t, err)

	assert.Equal(t, StatusFlagged, result.Review.Status)
	assert.True(t, result.Review.Verified)
	assert.Equal(t, 2, result.Review.Security.SuspiciousFlagCount)
}

func TestSubmit_RewardSkippedAtTemplateLimit(t *testing.T) {
	dir := &mockBusinessDir{business: testBusiness()}
	repo := &mockReviewRepo{}
	issuer := &mockCouponIssuer{err: coupons.ErrLimitReached}
	svc := newTestService(repo, dir, issuer, &mockPublisher{})

	result, err := svc.Submit(context.Background(), uuid.New(), cleanRequest(dir.business.ID))
	require.NoError(t, err)

	assert.NotNil(t, result.Review)
	assert.Nil(t, result.Coupon)
	assert.Len(t, repo.reviews, 1)
}

func TestSubmit_CouponFailureDoesNotFailReview(t *testing.T) {
	dir := &mockBusinessDir{business: testBusiness()}
	repo := &mockReviewRepo{}
	issuer := &mockCouponIssuer{err: errors.New("mint failed")}
	svc := newTestService(repo, dir, issuer, &mockPublisher{})

	result, err := svc.Submit(context.Background(), uuid.New(), cleanRequest(dir.business.ID))
	require.NoError(t, err)
	assert.NotNil(t, result.Review)
	assert.Nil(t, result.Coupon)
}

func TestSubmit_PublisherFailureDoesNotFailReview(t *testing.T) {
	dir := &mockBusinessDir{business: testBusiness()}
	repo := &mockReviewRepo{}
	pub := &mockPublisher{done: make(chan struct{}, 2), err: errors.New("nats down")}
	svc := newTestService(repo, dir, &mockCouponIssuer{}, pub)

	result, err := svc.Submit(context.Background(), uuid.New(), cleanRequest(dir.business.ID))
	require.NoError(t, err)
	assert.NotNil(t, result.Review)

	select {
	case <-pub.done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected publish attempt")
	}
}

func TestSubmit_UnknownBusiness(t *testing.T) {
	dir := &mockBusinessDir{}
	repo := &mockReviewRepo{}
	svc := newTestService(repo, dir, &mockCouponIssuer{}, &mockPublisher{})

	_, err := svc.Submit(context.Background(), uuid.New(), cleanRequest(uuid.New()))
	require.Error(t, err)

	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, common.ReasonNotFound, appErr.Reason)
}

func TestModerate_RecomputesRating(t *testing.T) {
	dir := &mockBusinessDir{business: testBusiness()}
	repo := &mockReviewRepo{}
	svc := newTestService(repo, dir, &mockCouponIssuer{}, &mockPublisher{})

	result, err := svc.Submit(context.Background(), uuid.New(), cleanRequest(dir.business.ID))
	require.NoError(t, err)
	require.Equal(t, 1, dir.recomputes)

	err = svc.Moderate(context.Background(), result.Review.ID, StatusRejected)
	require.NoError(t, err)

	assert.Equal(t, StatusRejected, result.Review.Status)
	assert.Equal(t, 2, dir.recomputes)
}
