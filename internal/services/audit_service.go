package services

import (
	"context"
	"fmt"

	"github.com/sjperalta/firma-api/internal/models"
	"github.com/sjperalta/firma-api/internal/repository"
	"gorm.io/datatypes"
)

// ClientInfo identifies the caller of a state-changing operation
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

func (c ClientInfo) ipPtr() *string {
	if c.IPAddress == "" {
		return nil
	}
	return &c.IPAddress
}

func (c ClientInfo) userAgentPtr() *string {
	if c.UserAgent == "" {
		return nil
	}
	return &c.UserAgent
}

type AuditService struct {
	repo repository.AuditRepository
}

func NewAuditService(repo repository.AuditRepository) *AuditService {
	return &AuditService{repo: repo}
}

// newAuditEntry builds an entry. The timestamp is assigned on insert.
func newAuditEntry(requestID, action string, details map[string]interface{}, client ClientInfo) *models.AuditLog {
	if details == nil {
		details = map[string]interface{}{}
	}
	return &models.AuditLog{
		RequestID: requestID,
		Action:    action,
		Details:   datatypes.JSONMap(details),
		IPAddress: client.ipPtr(),
		UserAgent: client.userAgentPtr(),
	}
}

// Record appends an entry outside of any other write
func (s *AuditService) Record(ctx context.Context, requestID, action string, details map[string]interface{}, client ClientInfo) error {
	if err := s.repo.Create(ctx, newAuditEntry(requestID, action, details, client)); err != nil {
		return fmt.Errorf("failed to record audit entry %s: %w", action, err)
	}
	return nil
}

// List returns entries newest first, optionally for a single request
func (s *AuditService) List(ctx context.Context, requestID string) ([]models.AuditLog, error) {
	return s.repo.List(ctx, &repository.AuditQuery{
		RequestID: requestID,
		Limit:     repository.DefaultAuditLimit,
	})
}
