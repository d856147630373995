package service

import (
	"context"

	"github.com/yourorg/bloodlink/internal/apperr"
	"github.com/yourorg/bloodlink/internal/model"

	"go.uber.org/zap"
)

// DonorService serves the eligibility search used by hospitals to find donors
// for a blood group and city set
type DonorService struct {
	userStore       UserStore
	minDonationDays int
	logger          *zap.Logger
}

// NewDonorService creates a new donor service
func NewDonorService(userStore UserStore, minDonationDays int, logger *zap.Logger) *DonorService {
	return &DonorService{
		userStore:       userStore,
		minDonationDays: minDonationDays,
		logger:          logger,
	}
}

// Search retrieves donors for a blood group, optionally restricted to cities.
// With eligibleOnly set, donors inside the inter-donation waiting period are
// excluded, using the same rule as broadcast fan-out.
func (s *DonorService) Search(ctx context.Context, bloodGroup string, cities []string, eligibleOnly bool) ([]model.DonorSearchResult, error) {
	if !model.ValidBloodGroup(bloodGroup) {
		return nil, apperr.Validation("invalid blood group %q", bloodGroup)
	}

	return s.userStore.SearchDonors(ctx, bloodGroup, cities, eligibleOnly, s.minDonationDays)
}
