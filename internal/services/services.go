package services

import (
	"github.com/sjperalta/firma-api/internal/config"
	"github.com/sjperalta/firma-api/internal/jobs"
	"github.com/sjperalta/firma-api/internal/repository"
	"github.com/sjperalta/firma-api/internal/storage"
)

// Services holds all service instances
type Services struct {
	Auth             *AuthService
	Contract         *ContractService
	SignatureRequest *SignatureRequestService
	OTP              *OTPService
	Signing          *SigningService
	Integrity        *IntegrityService
	Dashboard        *DashboardService
	Audit            *AuditService
	Notification     *NotificationService
	Export           *ExportService
	Job              *JobService
}

// NewServices creates all service instances
func NewServices(repos *repository.Repositories, worker *jobs.Worker, store storage.DocumentStore, cfg *config.Config) (*Services, error) {
	authSvc, err := NewAuthService(cfg)
	if err != nil {
		return nil, err
	}

	emailSvc := NewEmailService(cfg)
	smsSvc := NewSMSService(cfg.TextMeBotAPIKey, cfg.TextMeBotURL)
	notificationSvc := NewNotificationService(emailSvc, smsSvc, worker, cfg.NotifyTimeout, cfg.OrganizationName, cfg.AppURL)
	auditSvc := NewAuditService(repos.Audit)
	contractSvc := NewContractService(repos.Contract, store)
	integritySvc := NewIntegrityService(repos.Contract, repos.SignatureRequest, store)

	return &Services{
		Auth:             authSvc,
		Contract:         contractSvc,
		SignatureRequest: NewSignatureRequestService(repos, contractSvc, notificationSvc, auditSvc, worker, cfg.SignerTokenTTL),
		OTP:              NewOTPService(repos, notificationSvc, auditSvc, cfg.OTPTTL),
		Signing:          NewSigningService(repos, store, notificationSvc, auditSvc, worker, cfg.OrganizationName),
		Integrity:        integritySvc,
		Dashboard:        NewDashboardService(repos.Contract, repos.SignatureRequest),
		Audit:            auditSvc,
		Notification:     notificationSvc,
		Export:           NewExportService(auditSvc),
		Job:              NewJobService(worker, integritySvc),
	}, nil
}
