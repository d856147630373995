package service

import (
	"context"

	"github.com/yourorg/bloodlink/internal/apperr"
	"github.com/yourorg/bloodlink/internal/model"

	"go.uber.org/zap"
)

// InventoryService manages per-hospital blood stock. Stock-transfer credits
// are applied by the request store inside the completion transaction; this
// service only covers reads and owner adjustments.
type InventoryService struct {
	inventoryStore InventoryStore
	userStore      UserStore
	logger         *zap.Logger
}

// NewInventoryService creates a new inventory service
func NewInventoryService(inventoryStore InventoryStore, userStore UserStore, logger *zap.Logger) *InventoryService {
	return &InventoryService{
		inventoryStore: inventoryStore,
		userStore:      userStore,
		logger:         logger,
	}
}

// Get retrieves a hospital's stock
func (s *InventoryService) Get(ctx context.Context, hospitalID string) (*model.InventoryResponse, error) {
	hospital, err := s.userStore.GetByID(ctx, hospitalID)
	if err != nil {
		return nil, err
	}
	if hospital == nil || hospital.Role != model.RoleHospital {
		return nil, apperr.NotFound("hospital")
	}

	items, err := s.inventoryStore.GetByHospital(ctx, hospitalID)
	if err != nil {
		return nil, err
	}

	return &model.InventoryResponse{HospitalID: hospitalID, Items: items}, nil
}

// Set stores an absolute unit count for one blood group. Only the owning
// hospital or an admin may adjust stock.
func (s *InventoryService) Set(ctx context.Context, actorID, hospitalID string, in *model.InventoryUpdate) error {
	actor, err := s.userStore.GetByID(ctx, actorID)
	if err != nil {
		return err
	}
	if actor == nil {
		return apperr.Unauthorized("unknown user")
	}
	if actor.Role != model.RoleAdmin && actor.ID != hospitalID {
		return apperr.Forbidden("cannot adjust another hospital's stock")
	}

	hospital, err := s.userStore.GetByID(ctx, hospitalID)
	if err != nil {
		return err
	}
	if hospital == nil || hospital.Role != model.RoleHospital {
		return apperr.NotFound("hospital")
	}

	return s.inventoryStore.Set(ctx, hospitalID, in.BloodGroup, in.Units)
}
