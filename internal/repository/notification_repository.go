package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/yourorg/bloodlink/internal/model"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// NotificationRepository handles database operations for notifications
type NotificationRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *sqlx.DB, logger *zap.Logger) *NotificationRepository {
	return &NotificationRepository{
		db:     db,
		logger: logger,
	}
}

// FanOut materializes one notification per eligible donor for a broadcast:
// donors in one of the target cities with the matching blood group whose last
// completed donation is at least minDays old, excluding the requester. The
// unique index on (user_id, request_id, event) makes re-running the fan-out
// for the same request a no-op for already-notified recipients. Returns the
// ids of the newly notified donors.
func (r *NotificationRepository) FanOut(ctx context.Context, req *model.Request, event, message string, minDays int) ([]string, error) {
	query := `
		INSERT INTO notifications (id, user_id, request_id, event, status, message, created_at, expires_at)
		SELECT gen_random_uuid()::text, u.id, $1, $2, $3, $4, $5, $6
		FROM users u
		WHERE u.role = 'donor'
		  AND u.blood_group = $7
		  AND u.city = ANY($8)
		  AND u.id <> $9
		  AND (u.last_donation_at IS NULL OR u.last_donation_at <= $10)
		ON CONFLICT (user_id, request_id, event) DO NOTHING
		RETURNING user_id`

	cutoff := time.Now().AddDate(0, 0, -minDays)

	var recipients []string
	err := r.db.SelectContext(ctx, &recipients, query,
		req.ID,
		event,
		model.NotificationUnread,
		message,
		time.Now(),
		req.ExpiresAt,
		req.BloodGroup,
		pq.Array([]string(req.Cities)),
		req.RequesterID,
		cutoff,
	)
	if err != nil {
		r.logger.Error("Failed to fan out notifications", zap.Error(err))
		return nil, err
	}

	return recipients, nil
}

// Notify inserts a single notification for one recipient, idempotent per
// (user, request, event)
func (r *NotificationRepository) Notify(ctx context.Context, userID string, requestID *string, event, message string, expiresAt *time.Time) error {
	query := `
		INSERT INTO notifications (id, user_id, request_id, event, status, message, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, request_id, event) DO NOTHING`

	_, err := r.db.ExecContext(ctx, query,
		uuid.NewString(),
		userID,
		requestID,
		event,
		model.NotificationUnread,
		message,
		time.Now(),
		expiresAt,
	)
	if err != nil {
		r.logger.Error("Failed to create notification", zap.Error(err))
		return err
	}

	return nil
}

// ListByUser retrieves a user's notifications newest first, skipping expired
// ones, along with the unread count
func (r *NotificationRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Notification, int, error) {
	query := `
		SELECT * FROM notifications
		WHERE user_id = $1
		  AND (expires_at IS NULL OR expires_at > now())
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	var notifications []model.Notification
	if err := r.db.SelectContext(ctx, &notifications, query, userID, limit, offset); err != nil {
		r.logger.Error("Failed to list notifications", zap.Error(err))
		return nil, 0, err
	}

	unread, err := r.UnreadCount(ctx, userID)
	if err != nil {
		return nil, 0, err
	}

	return notifications, unread, nil
}

// UnreadCount retrieves the number of unread, unexpired notifications
func (r *NotificationRepository) UnreadCount(ctx context.Context, userID string) (int, error) {
	query := `
		SELECT COUNT(*) FROM notifications
		WHERE user_id = $1
		  AND status = $2
		  AND (expires_at IS NULL OR expires_at > now())`

	var count int
	if err := r.db.GetContext(ctx, &count, query, userID, model.NotificationUnread); err != nil {
		r.logger.Error("Failed to count unread notifications", zap.Error(err))
		return 0, err
	}

	return count, nil
}

// GetByID retrieves a notification, returning nil when not found
func (r *NotificationRepository) GetByID(ctx context.Context, id string) (*model.Notification, error) {
	query := `SELECT * FROM notifications WHERE id = $1`

	var n model.Notification
	err := r.db.GetContext(ctx, &n, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get notification", zap.Error(err))
		return nil, err
	}

	return &n, nil
}

// SetStatus updates a notification's status. Marking an already-read
// notification read again changes nothing and is not an error.
func (r *NotificationRepository) SetStatus(ctx context.Context, id, status string) error {
	query := `UPDATE notifications SET status = $2 WHERE id = $1`

	_, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		r.logger.Error("Failed to update notification status", zap.Error(err))
		return err
	}

	return nil
}

// SetStatusForRequest updates one recipient's notification for a request,
// used when an accept or ignore flows back onto the originating notification.
// Recorded responses (ACCEPTED, REJECTED) are never overwritten.
func (r *NotificationRepository) SetStatusForRequest(ctx context.Context, requestID, userID, status string) error {
	query := `
		UPDATE notifications
		SET status = $3
		WHERE request_id = $1 AND user_id = $2 AND status IN ($4, $5)`

	_, err := r.db.ExecContext(ctx, query, requestID, userID, status, model.NotificationUnread, model.NotificationRead)
	if err != nil {
		r.logger.Error("Failed to update notification status for request", zap.Error(err))
		return err
	}

	return nil
}

// MarkDeclined flips a recipient's pending notification for a request to
// REJECTED. Only an UNREAD or READ notification counts, so each notified
// recipient's decline registers at most once and a user who was never notified
// registers nothing.
func (r *NotificationRepository) MarkDeclined(ctx context.Context, requestID, userID string) (bool, error) {
	query := `
		UPDATE notifications
		SET status = $3
		WHERE request_id = $1 AND user_id = $2 AND status IN ($4, $5)`

	result, err := r.db.ExecContext(ctx, query, requestID, userID, model.NotificationRejected, model.NotificationUnread, model.NotificationRead)
	if err != nil {
		r.logger.Error("Failed to mark notification declined", zap.Error(err))
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows > 0, nil
}

// MarkAllRead marks every unread notification for a user as read, returning
// the number marked
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string) (int, error) {
	query := `UPDATE notifications SET status = $2 WHERE user_id = $1 AND status = $3`

	result, err := r.db.ExecContext(ctx, query, userID, model.NotificationRead, model.NotificationUnread)
	if err != nil {
		r.logger.Error("Failed to mark all notifications read", zap.Error(err))
		return 0, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	return int(rows), nil
}
