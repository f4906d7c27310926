package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"net/mail"
	"strings"
	"time"

	"github.com/sjperalta/firma-api/internal/jobs"
	"github.com/sjperalta/firma-api/internal/models"
	"github.com/sjperalta/firma-api/internal/repository"
	"github.com/sjperalta/firma-api/internal/statemachine"
	"github.com/sjperalta/firma-api/pkg/logger"
)

// signerTokenBytes yields a 43-character URL-safe token
const signerTokenBytes = 32

type SignatureRequestService struct {
	repos       *repository.Repositories
	contractSvc *ContractService
	notifier    *NotificationService
	auditSvc    *AuditService
	worker      *jobs.Worker
	tokenTTL    time.Duration
	now         func() time.Time
}

func NewSignatureRequestService(
	repos *repository.Repositories,
	contractSvc *ContractService,
	notifier *NotificationService,
	auditSvc *AuditService,
	worker *jobs.Worker,
	tokenTTL time.Duration,
) *SignatureRequestService {
	return &SignatureRequestService{
		repos:       repos,
		contractSvc: contractSvc,
		notifier:    notifier,
		auditSvc:    auditSvc,
		worker:      worker,
		tokenTTL:    tokenTTL,
		now:         time.Now,
	}
}

// CreateSignatureRequestInput binds a signer to a contract
type CreateSignatureRequestInput struct {
	ContractID   string
	SignerName   string
	SignerEmail  string
	SignerPhone  *string
	SendViaEmail bool
}

// GenerateSignerToken returns an unguessable URL-safe bearer token
func GenerateSignerToken() (string, error) {
	b := make([]byte, signerTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Create registers a pending request for an existing contract
func (s *SignatureRequestService) Create(ctx context.Context, input CreateSignatureRequestInput, client ClientInfo) (*models.SignatureRequest, error) {
	name := strings.TrimSpace(input.SignerName)
	if name == "" {
		return nil, fmt.Errorf("%w: el nombre del firmante es requerido", ErrInvalidInput)
	}
	email := strings.TrimSpace(input.SignerEmail)
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, fmt.Errorf("%w: correo electrónico inválido", ErrInvalidInput)
	}
	var phone *string
	if input.SignerPhone != nil && strings.TrimSpace(*input.SignerPhone) != "" {
		p := strings.TrimSpace(*input.SignerPhone)
		phone = &p
	}

	contract, err := s.contractSvc.FindByID(ctx, input.ContractID)
	if err != nil {
		return nil, err
	}

	token, err := GenerateSignerToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate signer token: %w", err)
	}

	request := &models.SignatureRequest{
		ContractID:  contract.ID,
		SignerName:  name,
		SignerEmail: email,
		SignerPhone: phone,
		Status:      models.SignatureStatusPending,
		Token:       token,
	}
	if s.tokenTTL > 0 {
		expiresAt := s.now().Add(s.tokenTTL).UTC()
		request.TokenExpiresAt = &expiresAt
	}

	err = s.repos.Tx.WithTx(ctx, func(tx *repository.Repositories) error {
		if err := tx.SignatureRequest.Create(ctx, request); err != nil {
			return fmt.Errorf("failed to save signature request: %w", err)
		}
		return tx.Audit.Create(ctx, newAuditEntry(request.ID, models.AuditActionRequestCreated, map[string]interface{}{
			"contract_id":  contract.ID,
			"signer_email": email,
		}, client))
	})
	if err != nil {
		return nil, err
	}

	if input.SendViaEmail {
		s.sendInvitation(request, contract.Name)
	}

	return request, nil
}

// sendInvitation runs on the worker; its outcome is audited separately
func (s *SignatureRequestService) sendInvitation(request *models.SignatureRequest, contractName string) {
	req := *request
	s.worker.Enqueue(func(ctx context.Context) error {
		sent := s.notifier.SendInvitation(ctx, &req, contractName)
		return s.auditSvc.Record(ctx, req.ID, models.AuditActionInvitationSent, map[string]interface{}{
			"email_sent": sent,
		}, ClientInfo{})
	})
}

// FindByID gets a signature request by ID
func (s *SignatureRequestService) FindByID(ctx context.Context, id string) (*models.SignatureRequest, error) {
	request, err := s.repos.SignatureRequest.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return request, nil
}

// FindByToken resolves a signer token. Expired tokens are not found.
func (s *SignatureRequestService) FindByToken(ctx context.Context, token string) (*models.SignatureRequest, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	request, err := s.repos.SignatureRequest.FindByToken(ctx, token)
	if err != nil {
		return nil, notFound(err)
	}
	if request.TokenExpired(s.now()) {
		return nil, ErrNotFound
	}
	return request, nil
}

// List returns requests newest first
func (s *SignatureRequestService) List(ctx context.Context, query *repository.ListQuery) ([]models.SignatureRequest, int64, error) {
	return s.repos.SignatureRequest.List(ctx, query)
}

// Reject declines a request that has not reached a terminal state
func (s *SignatureRequestService) Reject(ctx context.Context, id, reason string, client ClientInfo) (*models.SignatureRequest, error) {
	request, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	previous := request.Status
	if err := statemachine.NewSignatureRequestFSM(request).Reject(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	err = s.repos.Tx.WithTx(ctx, func(tx *repository.Repositories) error {
		ok, err := tx.SignatureRequest.AdvanceStatus(ctx, id, statemachine.Sources(statemachine.EventReject), models.SignatureStatusRejected)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: la solicitud cambió de estado", ErrInvalidState)
		}
		return tx.Audit.Create(ctx, newAuditEntry(id, models.AuditActionRequestRejected, map[string]interface{}{
			"previous_status": previous,
			"reason":          reason,
		}, client))
	})
	if err != nil {
		return nil, err
	}

	logger.WithContext(ctx).Info("Signature request rejected", "request_id", id, "previous_status", previous)
	return request, nil
}

// OpenDocumentByToken streams the original contract for a signer
func (s *SignatureRequestService) OpenDocumentByToken(ctx context.Context, token string) (*models.Contract, io.ReadCloser, error) {
	request, err := s.FindByToken(ctx, token)
	if err != nil {
		return nil, nil, err
	}
	return s.contractSvc.OpenDocument(ctx, request.ContractID)
}

// OpenCertificateByToken streams the signing certificate once the request is signed
func (s *SignatureRequestService) OpenCertificateByToken(ctx context.Context, token string) (*models.SignatureRequest, io.ReadCloser, error) {
	request, err := s.FindByToken(ctx, token)
	if err != nil {
		return nil, nil, err
	}
	if !request.IsSigned() || request.CertificateFilePath == nil {
		return nil, nil, ErrNotFound
	}
	rc, err := s.contractSvc.openHandle(ctx, *request.CertificateFilePath)
	if err != nil {
		return nil, nil, err
	}
	return request, rc, nil
}
