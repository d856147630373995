package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/yourorg/bloodlink/internal/model"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// RequestRepository handles database operations for blood requests
type RequestRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewRequestRepository creates a new request repository
func NewRequestRepository(db *sqlx.DB, logger *zap.Logger) *RequestRepository {
	return &RequestRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new request
func (r *RequestRepository) Create(ctx context.Context, req *model.Request) error {
	query := `
		INSERT INTO requests (
			id, requester_id, requester_name, responder_id, type, blood_group, units,
			urgency, cities, status, patient_name, patient_number, attender_name,
			attender_number, hospital_name, location, created_at, expires_at
		) VALUES (
			:id, :requester_id, :requester_name, :responder_id, :type, :blood_group, :units,
			:urgency, :cities, :status, :patient_name, :patient_number, :attender_name,
			:attender_number, :hospital_name, :location, :created_at, :expires_at
		)`

	_, err := r.db.NamedExecContext(ctx, query, req)
	if err != nil {
		r.logger.Error("Failed to create request", zap.Error(err))
		return err
	}

	return nil
}

// GetByID retrieves a request by id with read-time expiry applied, returning
// nil when not found. Dispatch info is attached when present.
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*model.Request, error) {
	query := `SELECT * FROM requests WHERE id = $1`

	var req model.Request
	err := r.db.GetContext(ctx, &req, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get request", zap.Error(err))
		return nil, err
	}

	req.Status = req.EffectiveStatus(time.Now())

	dispatch, err := r.getDispatch(ctx, id)
	if err != nil {
		return nil, err
	}
	req.Dispatch = dispatch

	return &req, nil
}

// ListForViewer retrieves the role-scoped feed for a viewer. Donors see their
// own requests, requests they accepted, and open broadcasts matching their
// city and blood group. Hospitals see outgoing, incoming, and accepted
// requests. Admins see everything. Broadcasts accepted by someone else are
// hidden from everyone but the acceptor and the requester, and is_outgoing is
// computed per viewer, never stored.
func (r *RequestRepository) ListForViewer(ctx context.Context, viewer *model.User) ([]model.Request, error) {
	var query string
	var args []interface{}

	switch viewer.Role {
	case model.RoleAdmin:
		query = `SELECT * FROM requests ORDER BY created_at DESC`
	case model.RoleDonor:
		query = `
			SELECT * FROM requests
			WHERE requester_id = $1
			   OR accepted_by = $1
			   OR (
				status = 'Active'
				AND accepted_by IS NULL
				AND responder_id IS NULL
				AND blood_group = $2
				AND $3 = ANY(cities)
				AND requester_id <> $1
				AND (expires_at IS NULL OR expires_at > now())
			   )
			ORDER BY created_at DESC`
		args = []interface{}{viewer.ID, viewer.BloodGroup, viewer.City}
	default:
		query = `
			SELECT * FROM requests
			WHERE requester_id = $1
			   OR responder_id = $1
			   OR accepted_by = $1
			ORDER BY created_at DESC`
		args = []interface{}{viewer.ID}
	}

	var requests []model.Request
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		r.logger.Error("Failed to list requests", zap.Error(err))
		return nil, err
	}

	now := time.Now()
	for i := range requests {
		requests[i].Status = requests[i].EffectiveStatus(now)
		requests[i].IsOutgoing = requests[i].RequesterID == viewer.ID
	}

	return requests, nil
}

// Accept atomically claims an open request for an actor. The conditional
// update on accepted_by IS NULL is the serialization point for concurrent
// accepts: exactly one caller sees a row change, every other caller lost the
// race.
func (r *RequestRepository) Accept(ctx context.Context, requestID, actorID, message string) (bool, error) {
	query := `
		UPDATE requests
		SET status = $3, accepted_by = $2, response_message = $4
		WHERE id = $1
		  AND status = $5
		  AND accepted_by IS NULL
		  AND (expires_at IS NULL OR expires_at > now())`

	result, err := r.db.ExecContext(ctx, query, requestID, actorID, model.StatusAccepted, message, model.StatusActive)
	if err != nil {
		r.logger.Error("Failed to accept request", zap.Error(err))
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows == 1, nil
}

// RejectBroadcast registers one recipient's decline of a broadcast. The
// request only flips to Rejected once every notified recipient has declined;
// the counter arithmetic runs in a single statement so concurrent declines
// within a polling window cannot lose updates. Returns nil when the request is
// no longer open, so a decline landing after an accept changes nothing.
func (r *RequestRepository) RejectBroadcast(ctx context.Context, id, reason string) (*model.Request, error) {
	query := `
		UPDATE requests
		SET rejected_count = rejected_count + 1,
		    rejection_reason = $2,
		    status = CASE
			WHEN rejected_count + 1 >= notified_donor_count THEN 'Rejected'
			ELSE status
		    END
		WHERE id = $1 AND status = $3
		RETURNING *`

	var req model.Request
	err := r.db.GetContext(ctx, &req, query, id, reason, model.StatusActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to reject broadcast", zap.Error(err))
		return nil, err
	}

	return &req, nil
}

// UpdateStatus moves a request to status, storing the reason when given. The
// write only lands while the request is still in one of the from statuses;
// false means another transition committed first.
func (r *RequestRepository) UpdateStatus(ctx context.Context, id, status, reason string, from ...string) (bool, error) {
	query := `
		UPDATE requests
		SET status = $2,
		    rejection_reason = CASE WHEN $3 <> '' THEN $3 ELSE rejection_reason END
		WHERE id = $1 AND status = ANY($4)`

	result, err := r.db.ExecContext(ctx, query, id, status, reason, pq.Array(from))
	if err != nil {
		r.logger.Error("Failed to update request status", zap.Error(err))
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows == 1, nil
}

// SetNotifiedCount stores the fan-out size on the request
func (r *RequestRepository) SetNotifiedCount(ctx context.Context, id string, count int) error {
	query := `UPDATE requests SET notified_donor_count = $2 WHERE id = $1`

	_, err := r.db.ExecContext(ctx, query, id, count)
	if err != nil {
		r.logger.Error("Failed to set notified donor count", zap.Error(err))
		return err
	}

	return nil
}

// CreateDispatch records dispatch metadata and moves the request to
// Dispatched. The status flip only lands while the request is still Accepted;
// false means another transition committed first and nothing was written.
func (r *RequestRepository) CreateDispatch(ctx context.Context, info *model.DispatchInfo) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO request_dispatches (request_id, tracking_id, transport, staff_name, dispatched_by, dispatched_at)
		VALUES (:request_id, :tracking_id, :transport, :staff_name, :dispatched_by, :dispatched_at)`

	if _, err := tx.NamedExecContext(ctx, query, info); err != nil {
		r.logger.Error("Failed to create dispatch record", zap.Error(err))
		return false, err
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE requests SET status = $2 WHERE id = $1 AND status = $3`,
		info.RequestID, model.StatusDispatched, model.StatusAccepted,
	)
	if err != nil {
		r.logger.Error("Failed to mark request dispatched", zap.Error(err))
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if rows == 0 {
		return false, nil
	}

	return true, tx.Commit()
}

// Complete marks a request Completed and applies its side effects in one
// transaction: the status flip, the inventory credit for stock transfers, and
// the fulfiller's donation or transfer counters. A request must never read
// Completed without the matching inventory credit. The flip only lands while
// the request is still Accepted or Dispatched; false means another transition
// committed first and no side effects were applied.
func (r *RequestRepository) Complete(ctx context.Context, req *model.Request, fulfiller *model.User, completedAt time.Time) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE requests SET status = $2 WHERE id = $1 AND status = ANY($3)`,
		req.ID, model.StatusCompleted, pq.Array([]string{model.StatusAccepted, model.StatusDispatched}),
	)
	if err != nil {
		r.logger.Error("Failed to mark request completed", zap.Error(err))
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if rows == 0 {
		return false, nil
	}

	if req.Type == model.TypeStockTransfer {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO inventory (hospital_id, blood_group, units, updated_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (hospital_id, blood_group)
			DO UPDATE SET units = inventory.units + $3, updated_at = $4`,
			req.RequesterID, req.BloodGroup, req.Units, completedAt,
		); err != nil {
			r.logger.Error("Failed to credit inventory", zap.Error(err))
			return false, err
		}
	}

	switch fulfiller.Role {
	case model.RoleDonor:
		if _, err := tx.ExecContext(ctx, `
			UPDATE users
			SET last_donation_at = $2, donation_count = donation_count + 1
			WHERE id = $1`,
			fulfiller.ID, completedAt,
		); err != nil {
			r.logger.Error("Failed to record donor completion", zap.Error(err))
			return false, err
		}
	case model.RoleHospital:
		if _, err := tx.ExecContext(ctx,
			`UPDATE users SET transfer_count = transfer_count + 1 WHERE id = $1`,
			fulfiller.ID,
		); err != nil {
			r.logger.Error("Failed to record transfer completion", zap.Error(err))
			return false, err
		}
	}

	return true, tx.Commit()
}

// Delete removes a request; its notifications go with it via cascade
func (r *RequestRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM requests WHERE id = $1`

	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to delete request", zap.Error(err))
		return err
	}

	return nil
}

func (r *RequestRepository) getDispatch(ctx context.Context, requestID string) (*model.DispatchInfo, error) {
	query := `SELECT * FROM request_dispatches WHERE request_id = $1`

	var info model.DispatchInfo
	err := r.db.GetContext(ctx, &info, query, requestID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get dispatch info", zap.Error(err))
		return nil, err
	}

	return &info, nil
}
