package service

import (
	"context"
	"fmt"

	"github.com/yourorg/bloodlink/internal/apperr"
	"github.com/yourorg/bloodlink/internal/cache"
	"github.com/yourorg/bloodlink/internal/model"

	"go.uber.org/zap"
)

// NotificationService derives and delivers per-user notifications from
// request state changes and serves the polling endpoints
type NotificationService struct {
	notificationStore NotificationStore
	countCache        *cache.NotificationCache
	minDonationDays   int
	logger            *zap.Logger
}

// NewNotificationService creates a new notification service
func NewNotificationService(
	notificationStore NotificationStore,
	countCache *cache.NotificationCache,
	minDonationDays int,
	logger *zap.Logger,
) *NotificationService {
	return &NotificationService{
		notificationStore: notificationStore,
		countCache:        countCache,
		minDonationDays:   minDonationDays,
		logger:            logger,
	}
}

// FanOutRequest materializes notifications for every eligible recipient of a
// broadcast and returns how many were notified. Re-running for the same
// request never duplicates deliveries.
func (s *NotificationService) FanOutRequest(ctx context.Context, req *model.Request) (int, error) {
	event := model.EventUrgentRequest
	if req.Type == model.TypeEmergencyAlert {
		event = model.EventEmergencyAlert
	}

	message := fmt.Sprintf("%s needs %d unit(s) of %s blood (%s)",
		req.RequesterName, req.Units, req.BloodGroup, req.Urgency)

	recipients, err := s.notificationStore.FanOut(ctx, req, event, message, s.minDonationDays)
	if err != nil {
		return 0, err
	}

	s.countCache.Invalidate(ctx, recipients...)

	s.logger.Info("Fanned out broadcast",
		zap.String("request_id", req.ID),
		zap.Int("notified", len(recipients)))

	return len(recipients), nil
}

// NotifyUser delivers a single status-change notification, idempotent per
// (user, request, event)
func (s *NotificationService) NotifyUser(ctx context.Context, userID string, requestID *string, event, message string) error {
	if err := s.notificationStore.Notify(ctx, userID, requestID, event, message, nil); err != nil {
		return err
	}

	s.countCache.Invalidate(ctx, userID)
	return nil
}

// SetRequestNotificationStatus flips one recipient's notification for a
// request, used when an accept or ignore flows back onto the originating
// notification
func (s *NotificationService) SetRequestNotificationStatus(ctx context.Context, requestID, userID, status string) error {
	if err := s.notificationStore.SetStatusForRequest(ctx, requestID, userID, status); err != nil {
		return err
	}

	s.countCache.Invalidate(ctx, userID)
	return nil
}

// MarkRequestDeclined registers one recipient's decline on their notification
// for a request. False means the user holds no pending notification, either
// because they were never notified or because they already responded.
func (s *NotificationService) MarkRequestDeclined(ctx context.Context, requestID, userID string) (bool, error) {
	declined, err := s.notificationStore.MarkDeclined(ctx, requestID, userID)
	if err != nil {
		return false, err
	}

	if declined {
		s.countCache.Invalidate(ctx, userID)
	}
	return declined, nil
}

// List retrieves a user's notifications with unread count
func (s *NotificationService) List(ctx context.Context, userID string, limit, offset int) (*model.NotificationListResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	notifications, unread, err := s.notificationStore.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}

	return &model.NotificationListResponse{
		Notifications: notifications,
		Total:         len(notifications),
		Unread:        unread,
	}, nil
}

// UnreadCount returns the number of unread notifications, served from cache
// when possible
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	if count, ok := s.countCache.GetUnread(ctx, userID); ok {
		return count, nil
	}

	count, err := s.notificationStore.UnreadCount(ctx, userID)
	if err != nil {
		return 0, err
	}

	s.countCache.SetUnread(ctx, userID, count)
	return count, nil
}

// MarkRead marks a notification as read. Marking an already-read notification
// is a no-op, not an error.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	notification, err := s.notificationStore.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if notification == nil {
		return apperr.NotFound("notification")
	}
	if notification.UserID != userID {
		return apperr.Forbidden("notification belongs to another user")
	}
	if notification.Status != model.NotificationUnread {
		return nil
	}

	if err := s.notificationStore.SetStatus(ctx, id, model.NotificationRead); err != nil {
		return err
	}

	s.countCache.Invalidate(ctx, userID)
	return nil
}

// MarkAllRead marks every unread notification for a user as read
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int, error) {
	count, err := s.notificationStore.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, err
	}

	s.countCache.Invalidate(ctx, userID)
	return count, nil
}
