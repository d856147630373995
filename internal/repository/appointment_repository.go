package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/yourorg/bloodlink/internal/model"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// AppointmentRepository handles database operations for donation appointments
type AppointmentRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewAppointmentRepository creates a new appointment repository
func NewAppointmentRepository(db *sqlx.DB, logger *zap.Logger) *AppointmentRepository {
	return &AppointmentRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new appointment
func (r *AppointmentRepository) Create(ctx context.Context, appt *model.Appointment) error {
	query := `
		INSERT INTO appointments (id, donor_id, donor_name, hospital_id, blood_group, scheduled_at, status, notes, created_at)
		VALUES (:id, :donor_id, :donor_name, :hospital_id, :blood_group, :scheduled_at, :status, :notes, :created_at)`

	_, err := r.db.NamedExecContext(ctx, query, appt)
	if err != nil {
		r.logger.Error("Failed to create appointment", zap.Error(err))
		return err
	}

	return nil
}

// GetByID retrieves an appointment, returning nil when not found
func (r *AppointmentRepository) GetByID(ctx context.Context, id string) (*model.Appointment, error) {
	query := `SELECT * FROM appointments WHERE id = $1`

	var appt model.Appointment
	err := r.db.GetContext(ctx, &appt, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get appointment", zap.Error(err))
		return nil, err
	}

	return &appt, nil
}

// ListForViewer retrieves appointments where the viewer is the donor or the
// hospital
func (r *AppointmentRepository) ListForViewer(ctx context.Context, viewerID string) ([]model.Appointment, error) {
	query := `
		SELECT * FROM appointments
		WHERE donor_id = $1 OR hospital_id = $1
		ORDER BY scheduled_at DESC`

	var appts []model.Appointment
	if err := r.db.SelectContext(ctx, &appts, query, viewerID); err != nil {
		r.logger.Error("Failed to list appointments", zap.Error(err))
		return nil, err
	}

	return appts, nil
}

// UpdateStatus sets an appointment's status
func (r *AppointmentRepository) UpdateStatus(ctx context.Context, id, status string) error {
	query := `UPDATE appointments SET status = $2 WHERE id = $1`

	_, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		r.logger.Error("Failed to update appointment status", zap.Error(err))
		return err
	}

	return nil
}

// Complete marks an appointment Completed and records the donation on the
// donor in the same transaction, so eligibility always reflects completed
// appointments.
func (r *AppointmentRepository) Complete(ctx context.Context, id, donorID string, completedAt time.Time) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE appointments SET status = $2 WHERE id = $1`,
		id, model.AppointmentCompleted,
	); err != nil {
		r.logger.Error("Failed to mark appointment completed", zap.Error(err))
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE users
		SET last_donation_at = $2, donation_count = donation_count + 1
		WHERE id = $1`,
		donorID, completedAt,
	); err != nil {
		r.logger.Error("Failed to record donation for appointment", zap.Error(err))
		return err
	}

	return tx.Commit()
}
