package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/localperks/review-rewards/pkg/eventbus"
	"github.com/localperks/review-rewards/pkg/logger"
)

// EventHandler consumes review lifecycle events from the bus and fans out
// user notifications. The submission pipeline publishes and moves on; all
// delivery latency lives here.
type EventHandler struct {
	service *Service
}

// NewEventHandler creates an event handler backed by the notification service
func NewEventHandler(service *Service) *EventHandler {
	return &EventHandler{service: service}
}

// RegisterSubscriptions subscribes to review lifecycle events on the bus
func (h *EventHandler) RegisterSubscriptions(ctx context.Context, bus *eventbus.Bus) error {
	if err := bus.Subscribe(ctx, eventbus.SubjectReviewsPattern, "notifications-reviews", h.handleReviewEvent); err != nil {
		return fmt.Errorf("subscribe to review events: %w", err)
	}
	logger.Info("notifications: subscribed to review lifecycle events")
	return nil
}

func (h *EventHandler) handleReviewEvent(ctx context.Context, event *eventbus.Event) error {
	switch event.Type {
	case eventbus.EventReviewCreated:
		return h.onReviewCreated(ctx, event)
	case eventbus.EventCouponIssued:
		return h.onCouponIssued(ctx, event)
	default:
		logger.Debug("notifications: ignoring unknown event type", zap.String("type", event.Type))
		return nil
	}
}

// onReviewCreated tells the business owner a new review arrived
func (h *EventHandler) onReviewCreated(ctx context.Context, event *eventbus.Event) error {
	var data eventbus.ReviewCreatedData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("unmarshal review created: %w", err)
	}

	_, err := h.service.NotifyUser(ctx, data.OwnerID,
		"review_created",
		"New review",
		fmt.Sprintf("%s received a new %d-star review", data.BusinessName, data.Rating),
		map[string]interface{}{
			"review_id":   data.ReviewID.String(),
			"business_id": data.BusinessID.String(),
		},
	)
	if err != nil {
		logger.Warn("failed to notify owner of new review", zap.Error(err))
	}
	return nil
}

// onCouponIssued tells the reviewer their reward is waiting
func (h *EventHandler) onCouponIssued(ctx context.Context, event *eventbus.Event) error {
	var data eventbus.CouponIssuedData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("unmarshal coupon issued: %w", err)
	}

	_, err := h.service.NotifyUser(ctx, data.UserID,
		"coupon_issued",
		"You earned a reward",
		fmt.Sprintf("Thanks for reviewing %s! Your coupon %s is valid until %s", data.BusinessName, data.Code, data.ValidUntil),
		map[string]interface{}{
			"coupon_id":   data.CouponID.String(),
			"code":        data.Code,
			"business_id": data.BusinessID.String(),
			"valid_until": data.ValidUntil,
		},
	)
	if err != nil {
		logger.Warn("failed to notify reviewer of coupon", zap.Error(err))
	}
	return nil
}
