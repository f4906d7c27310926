package services

import (
	"context"

	"github.com/sjperalta/firma-api/internal/models"
	"github.com/sjperalta/firma-api/internal/repository"
)

type DashboardService struct {
	contracts  repository.ContractRepository
	signatures repository.SignatureRequestRepository
}

func NewDashboardService(contracts repository.ContractRepository, signatures repository.SignatureRequestRepository) *DashboardService {
	return &DashboardService{contracts: contracts, signatures: signatures}
}

// Stats aggregates contract and request counts
func (s *DashboardService) Stats(ctx context.Context) (*models.DashboardStats, error) {
	totalContracts, err := s.contracts.Count(ctx)
	if err != nil {
		return nil, err
	}
	requests, err := s.signatures.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &models.DashboardStats{
		TotalContracts:   totalContracts,
		TotalRequests:    requests.Total,
		PendingRequests:  requests.Pending,
		OTPSentRequests:  requests.OTPSent,
		SignedRequests:   requests.Signed,
		RejectedRequests: requests.Rejected,
	}, nil
}
