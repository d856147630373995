package repository

import (
	"context"
	"time"

	"github.com/yourorg/bloodlink/internal/model"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// InventoryRepository handles database operations for hospital blood stock
type InventoryRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewInventoryRepository creates a new inventory repository
func NewInventoryRepository(db *sqlx.DB, logger *zap.Logger) *InventoryRepository {
	return &InventoryRepository{
		db:     db,
		logger: logger,
	}
}

// GetByHospital retrieves a hospital's stock, one row per blood group
func (r *InventoryRepository) GetByHospital(ctx context.Context, hospitalID string) ([]model.InventoryItem, error) {
	query := `
		SELECT * FROM inventory
		WHERE hospital_id = $1
		ORDER BY blood_group`

	var items []model.InventoryItem
	if err := r.db.SelectContext(ctx, &items, query, hospitalID); err != nil {
		r.logger.Error("Failed to get inventory", zap.Error(err))
		return nil, err
	}

	return items, nil
}

// Set stores the absolute unit count for one blood group at a hospital
func (r *InventoryRepository) Set(ctx context.Context, hospitalID, bloodGroup string, units int) error {
	query := `
		INSERT INTO inventory (hospital_id, blood_group, units, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (hospital_id, blood_group)
		DO UPDATE SET units = $3, updated_at = $4`

	_, err := r.db.ExecContext(ctx, query, hospitalID, bloodGroup, units, time.Now())
	if err != nil {
		r.logger.Error("Failed to set inventory", zap.Error(err))
		return err
	}

	return nil
}
