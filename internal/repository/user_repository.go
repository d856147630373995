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

// UserRepository handles database operations for users
type UserRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sqlx.DB, logger *zap.Logger) *UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new user
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (id, name, email, password_hash, role, blood_group, city, phone, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.BloodGroup,
		user.City,
		user.Phone,
		user.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create user", zap.Error(err))
		return err
	}

	return nil
}

// GetByID retrieves a user by id, returning nil when not found
func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	query := `SELECT * FROM users WHERE id = $1`

	var user model.User
	err := r.db.GetContext(ctx, &user, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get user", zap.Error(err))
		return nil, err
	}

	return &user, nil
}

// GetByEmail retrieves a user by email, returning nil when not found
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT * FROM users WHERE email = $1`

	var user model.User
	err := r.db.GetContext(ctx, &user, query, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get user by email", zap.Error(err))
		return nil, err
	}

	return &user, nil
}

// List retrieves users with pagination, optionally filtered by role
func (r *UserRepository) List(ctx context.Context, role string, limit, offset int) ([]model.User, int, error) {
	countQuery := `SELECT COUNT(*) FROM users WHERE ($1 = '' OR role = $1)`

	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, role); err != nil {
		r.logger.Error("Failed to count users", zap.Error(err))
		return nil, 0, err
	}

	query := `
		SELECT * FROM users
		WHERE ($1 = '' OR role = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	var users []model.User
	if err := r.db.SelectContext(ctx, &users, query, role, limit, offset); err != nil {
		r.logger.Error("Failed to list users", zap.Error(err))
		return nil, 0, err
	}

	return users, total, nil
}

// SearchDonors retrieves donors matching a blood group and city set. When
// eligibleOnly is set, donors whose last completed donation is more recent
// than minDays ago are excluded.
func (r *UserRepository) SearchDonors(ctx context.Context, bloodGroup string, cities []string, eligibleOnly bool, minDays int) ([]model.DonorSearchResult, error) {
	query := `
		SELECT id, name, blood_group, city, phone, last_donation_at, donation_count
		FROM users
		WHERE role = 'donor'
		  AND blood_group = $1
		  AND (cardinality($2::text[]) = 0 OR city = ANY($2))
		  AND ($3 = false OR last_donation_at IS NULL OR last_donation_at <= $4)
		ORDER BY name`

	cutoff := time.Now().AddDate(0, 0, -minDays)

	var donors []model.DonorSearchResult
	err := r.db.SelectContext(ctx, &donors, query, bloodGroup, pq.Array(cities), eligibleOnly, cutoff)
	if err != nil {
		r.logger.Error("Failed to search donors", zap.Error(err))
		return nil, err
	}

	return donors, nil
}

// RecordDonation stamps a completed donation on a donor
func (r *UserRepository) RecordDonation(ctx context.Context, donorID string, at time.Time) error {
	query := `
		UPDATE users
		SET last_donation_at = $2, donation_count = donation_count + 1
		WHERE id = $1`

	_, err := r.db.ExecContext(ctx, query, donorID, at)
	if err != nil {
		r.logger.Error("Failed to record donation", zap.Error(err))
		return err
	}

	return nil
}
