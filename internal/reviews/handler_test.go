package reviews

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localperks/review-rewards/pkg/validation"
)

func newModerationRouter(svc *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	validation.RegisterCustomValidators()

	router := gin.New()
	router.PUT("/reviews/:id/status", NewHandler(svc).ModerateReview)
	return router
}

func putStatus(t *testing.T, router *gin.Engine, reviewID string, body map[string]interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut, "/reviews/"+reviewID+"/status", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestModerateReview_UpdatesStatus(t *testing.T) {
	repo := &mockReviewRepo{}
	dir := &mockBusinessDir{business: testBusiness()}
	review := &Review{
		ID:         uuid.New(),
		AuthorID:   uuid.New(),
		BusinessID: dir.business.ID,
		Rating:     4,
		Status:     StatusFlagged,
	}
	repo.reviews = append(repo.reviews, review)
	router := newModerationRouter(newTestService(repo, dir, &mockCouponIssuer{}, &mockPublisher{}))

	rec := putStatus(t, router, review.ID.String(), map[string]interface{}{"status": "approved"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, StatusApproved, review.Status)
	assert.Equal(t, 1, dir.recomputes)
}

func TestModerateReview_RejectsUnknownStatus(t *testing.T) {
	repo := &mockReviewRepo{}
	dir := &mockBusinessDir{business: testBusiness()}
	router := newModerationRouter(newTestService(repo, dir, &mockCouponIssuer{}, &mockPublisher{}))

	rec := putStatus(t, router, uuid.NewString(), map[string]interface{}{"status": "published"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "valid review status")
}

func TestModerateReview_RequiresStatus(t *testing.T) {
	router := newModerationRouter(newTestService(&mockReviewRepo{}, &mockBusinessDir{}, &mockCouponIssuer{}, &mockPublisher{}))

	rec := putStatus(t, router, uuid.NewString(), map[string]interface{}{})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "required")
}

func TestModerateReview_UnknownReview(t *testing.T) {
	router := newModerationRouter(newTestService(&mockReviewRepo{}, &mockBusinessDir{business: testBusiness()}, &mockCouponIssuer{}, &mockPublisher{}))

	rec := putStatus(t, router, uuid.NewString(), map[string]interface{}{"status": "rejected"})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
