package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sjperalta/firma-api/internal/jobs"
	"github.com/sjperalta/firma-api/internal/models"
	"github.com/sjperalta/firma-api/internal/repository"
	"github.com/sjperalta/firma-api/internal/statemachine"
	"github.com/sjperalta/firma-api/internal/storage"
	"github.com/sjperalta/firma-api/pkg/logger"
)

// SigningService turns a verified signature request into a signed artifact
type SigningService struct {
	repos        *repository.Repositories
	store        storage.DocumentStore
	notifier     *NotificationService
	auditSvc     *AuditService
	worker       *jobs.Worker
	organization string
	now          func() time.Time
}

func NewSigningService(
	repos *repository.Repositories,
	store storage.DocumentStore,
	notifier *NotificationService,
	auditSvc *AuditService,
	worker *jobs.Worker,
	organization string,
) *SigningService {
	return &SigningService{
		repos:        repos,
		store:        store,
		notifier:     notifier,
		auditSvc:     auditSvc,
		worker:       worker,
		organization: organization,
		now:          time.Now,
	}
}

// SignInput is the signer's submission
type SignInput struct {
	RequestID string
	FormData  map[string]interface{}
	Client    ClientInfo
}

// Sign copies the original, stores the evidence and certificate, and commits the
// otp_sent → signed transition. Of concurrent calls for one request at most one succeeds.
func (s *SigningService) Sign(ctx context.Context, input SignInput) (*models.SignatureRequest, error) {
	request, err := s.repos.SignatureRequest.FindByID(ctx, input.RequestID)
	if err != nil {
		return nil, notFound(err)
	}
	contract, err := s.repos.Contract.FindByID(ctx, request.ContractID)
	if err != nil {
		return nil, notFound(err)
	}

	check := *request
	if err := statemachine.NewSignatureRequestFSM(&check).Sign(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	formData := input.FormData
	if formData == nil {
		formData = map[string]interface{}{}
	}
	signedAt := s.now().UTC()

	var created []string
	cleanup := func() {
		for _, handle := range created {
			if err := s.store.Delete(ctx, handle); err != nil {
				logger.WithContext(ctx).Error("Failed to remove signing artifact", "handle", handle, "error", err)
			}
		}
	}

	signedPath, err := s.store.Copy(ctx, contract.FilePath, storage.DirSigned)
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			return nil, fmt.Errorf("%w: archivo del contrato no encontrado", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to copy contract: %w", err)
	}
	created = append(created, signedPath)

	signedHash, err := storage.HashDocument(ctx, s.store, signedPath)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to hash signed document: %w", err)
	}

	evidence := models.SignatureEvidence{
		RequestID:        request.ID,
		ContractID:       contract.ID,
		SignerName:       request.SignerName,
		SignerEmail:      request.SignerEmail,
		SignerPhone:      request.SignerPhone,
		FormData:         formData,
		SignedAt:         signedAt,
		OTPVerifiedAt:    request.OTPVerifiedAt.UTC(),
		IPAddress:        input.Client.ipPtr(),
		UserAgent:        input.Client.userAgentPtr(),
		OriginalFileHash: contract.FileHash,
	}
	evidenceJSON, err := json.MarshalIndent(evidence, "", "  ")
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to encode evidence: %w", err)
	}
	evidencePath, err := s.store.Save(ctx, bytes.NewReader(evidenceJSON), "evidence.json", storage.DirSigned)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to store evidence: %w", err)
	}
	created = append(created, evidencePath)

	certificate, err := RenderCertificate(CertificateData{
		Organization:     s.organization,
		RequestID:        request.ID,
		ContractName:     contract.Name,
		SignerName:       request.SignerName,
		SignerEmail:      request.SignerEmail,
		SignerPhone:      derefString(request.SignerPhone),
		OTPVerifiedAt:    *request.OTPVerifiedAt,
		SignedAt:         signedAt,
		IPAddress:        input.Client.IPAddress,
		UserAgent:        input.Client.UserAgent,
		OriginalFileHash: contract.FileHash,
		SignedFileHash:   signedHash,
		FormData:         formData,
	})
	if err != nil {
		cleanup()
		return nil, err
	}
	certificatePath, err := s.store.Save(ctx, bytes.NewReader(certificate), "certificate.pdf", storage.DirSigned)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to store certificate: %w", err)
	}
	created = append(created, certificatePath)

	artifact := models.SignedArtifact{
		SignedAt:            signedAt,
		SignedFilePath:      signedPath,
		SignedFileHash:      signedHash,
		EvidenceFilePath:    evidencePath,
		CertificateFilePath: certificatePath,
	}

	err = s.repos.Tx.WithTx(ctx, func(tx *repository.Repositories) error {
		ok, err := tx.SignatureRequest.CompleteSigning(ctx, request.ID, artifact)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: la solicitud ya no puede firmarse", ErrInvalidState)
		}
		return tx.Audit.Create(ctx, newAuditEntry(request.ID, models.AuditActionContractSigned, map[string]interface{}{
			"signed_hash":        signedHash,
			"original_file_hash": contract.FileHash,
			"ip_address":         input.Client.IPAddress,
			"user_agent":         input.Client.UserAgent,
		}, input.Client))
	})
	if err != nil {
		cleanup()
		return nil, err
	}

	request.Status = models.SignatureStatusSigned
	request.SignedAt = &artifact.SignedAt
	request.SignedFilePath = &artifact.SignedFilePath
	request.SignedFileHash = &artifact.SignedFileHash
	request.EvidenceFilePath = &artifact.EvidenceFilePath
	request.CertificateFilePath = &artifact.CertificateFilePath

	logger.WithContext(ctx).Info("Contract signed", "request_id", request.ID, "signed_hash", signedHash)

	s.sendConfirmation(request, contract.Name)
	return request, nil
}

func (s *SigningService) sendConfirmation(request *models.SignatureRequest, contractName string) {
	req := *request
	s.worker.Enqueue(func(ctx context.Context) error {
		sent := s.notifier.SendSignedConfirmation(ctx, &req, contractName)
		return s.auditSvc.Record(ctx, req.ID, models.AuditActionConfirmationSent, map[string]interface{}{
			"email_sent": sent,
		}, ClientInfo{})
	})
}
