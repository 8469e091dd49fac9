package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/localperks/review-rewards/pkg/logger"
)

// RepositoryInterface abstracts notification persistence
type RepositoryInterface interface {
	Create(ctx context.Context, n *Notification) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status DeliveryStatus, dispatchErr *string) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Notification, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
}

// PushClient delivers a push message to a user's devices. Delivery transport
// (APNs, FCM, web push) is the client's concern.
type PushClient interface {
	Push(ctx context.Context, userID uuid.UUID, title, body string, data map[string]interface{}) error
}

// Service persists notifications and dispatches push delivery asynchronously.
// Dispatch failures are recorded and logged, never surfaced to the caller.
type Service struct {
	repo RepositoryInterface
	push PushClient
}

// NewService creates a new notifications service
func NewService(repo RepositoryInterface, push PushClient) *Service {
	return &Service{repo: repo, push: push}
}

// NotifyUser persists a notification and pushes it in the background
func (s *Service) NotifyUser(ctx context.Context, userID uuid.UUID, notifType, title, body string, data map[string]interface{}) (*Notification, error) {
	n := &Notification{
		ID:     uuid.New(),
		UserID: userID,
		Type:   notifType,
		Title:  title,
		Body:   body,
		Data:   data,
		Status: StatusPending,
	}

	if err := s.repo.Create(ctx, n); err != nil {
		return nil, err
	}

	go s.dispatch(n)

	return n, nil
}

func (s *Service) dispatch(n *Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if s.push == nil {
		return
	}

	if err := s.push.Push(ctx, n.UserID, n.Title, n.Body, n.Data); err != nil {
		logger.Error("push dispatch failed",
			zap.String("notification_id", n.ID.String()),
			zap.String("user_id", n.UserID.String()),
			zap.Error(err))

		errMsg := err.Error()
		if updateErr := s.repo.UpdateStatus(ctx, n.ID, StatusFailed, &errMsg); updateErr != nil {
			logger.Error("failed to record notification failure",
				zap.String("notification_id", n.ID.String()),
				zap.Error(updateErr))
		}
		return
	}

	if err := s.repo.UpdateStatus(ctx, n.ID, StatusSent, nil); err != nil {
		logger.Error("failed to record notification delivery",
			zap.String("notification_id", n.ID.String()),
			zap.Error(err))
	}
}

// ListForUser returns a user's notifications, newest first
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Notification, error) {
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

// MarkRead stamps a notification as read
func (s *Service) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	return s.repo.MarkRead(ctx, id, userID)
}
