package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/sjperalta/firma-api/internal/models"
	"github.com/sjperalta/firma-api/internal/repository"
	"github.com/sjperalta/firma-api/internal/statemachine"
	"github.com/sjperalta/firma-api/pkg/logger"
)

var otpSpace = big.NewInt(1_000_000)

// errOTPConsumed aborts the verify transaction when another caller used the code first
var errOTPConsumed = errors.New("otp already consumed")

// OTPService issues and verifies one-time codes for signature requests
type OTPService struct {
	repos    *repository.Repositories
	notifier *NotificationService
	auditSvc *AuditService
	ttl      time.Duration
	now      func() time.Time
}

func NewOTPService(repos *repository.Repositories, notifier *NotificationService, auditSvc *AuditService, ttl time.Duration) *OTPService {
	return &OTPService{
		repos:    repos,
		notifier: notifier,
		auditSvc: auditSvc,
		ttl:      ttl,
		now:      time.Now,
	}
}

// GenerateOTP returns a uniformly random, zero-padded 6-digit code
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, otpSpace)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// Issue creates a fresh code, delivers it and moves the request to otp_sent.
// The code is never returned; delivery failures only show up in the audit entry.
func (s *OTPService) Issue(ctx context.Context, requestID string, client ClientInfo) error {
	request, err := s.repos.SignatureRequest.FindByID(ctx, requestID)
	if err != nil {
		return notFound(err)
	}

	// Check only: the status is written by the conditional update below
	check := *request
	if err := statemachine.NewSignatureRequestFSM(&check).SendOTP(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	contractName := ""
	if contract, err := s.repos.Contract.FindByID(ctx, request.ContractID); err == nil {
		contractName = contract.Name
	}

	code, err := GenerateOTP()
	if err != nil {
		return fmt.Errorf("failed to generate otp: %w", err)
	}

	otp := &models.OTP{
		RequestID: request.ID,
		Code:      code,
		ExpiresAt: s.now().Add(s.ttl).UTC(),
	}
	if err := s.repos.OTP.Create(ctx, otp); err != nil {
		return fmt.Errorf("failed to save otp: %w", err)
	}

	delivery := s.notifier.SendOTP(ctx, request, contractName, code, s.ttl)

	err = s.repos.Tx.WithTx(ctx, func(tx *repository.Repositories) error {
		ok, err := tx.SignatureRequest.AdvanceStatus(ctx, request.ID,
			statemachine.Sources(statemachine.EventSendOTP), statemachine.Destination(statemachine.EventSendOTP))
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: la solicitud cambió de estado", ErrInvalidState)
		}
		return tx.Audit.Create(ctx, newAuditEntry(request.ID, models.AuditActionOTPSent, map[string]interface{}{
			"email_sent": delivery.EmailSent,
			"sms_sent":   delivery.SMSSent,
			"expires_at": otp.ExpiresAt.Format(time.RFC3339),
		}, client))
	})
	if err != nil {
		return err
	}

	logger.WithContext(ctx).Info("OTP issued", "request_id", request.ID, "email_sent", delivery.EmailSent, "sms_sent", delivery.SMSSent)
	return nil
}

// Verify consumes the newest code when it is unused and matches exactly and marks the request verified.
// Returns ErrInvalidCode or ErrExpiredCode on rejection; both are audited.
func (s *OTPService) Verify(ctx context.Context, requestID, code string, client ClientInfo) error {
	// Wrong code, superseded code, used code and unknown request are the same miss
	otp, err := s.repos.OTP.FindLatest(ctx, requestID)
	if err != nil {
		if err := notFound(err); !errors.Is(err, ErrNotFound) {
			return err
		}
		s.recordFailure(ctx, requestID, models.AuditReasonInvalidOTP, client)
		return ErrInvalidCode
	}
	if otp.Used || subtle.ConstantTimeCompare([]byte(otp.Code), []byte(code)) != 1 {
		s.recordFailure(ctx, requestID, models.AuditReasonInvalidOTP, client)
		return ErrInvalidCode
	}

	now := s.now()
	if otp.IsExpired(now) {
		s.recordFailure(ctx, requestID, models.AuditReasonExpiredOTP, client)
		return ErrExpiredCode
	}

	err = s.repos.Tx.WithTx(ctx, func(tx *repository.Repositories) error {
		used, err := tx.OTP.MarkUsed(ctx, otp.ID, now.UTC())
		if err != nil {
			return err
		}
		if !used {
			return errOTPConsumed
		}

		verified, err := tx.SignatureRequest.MarkOTPVerified(ctx, requestID, now.UTC())
		if err != nil {
			return err
		}
		if !verified {
			return fmt.Errorf("%w: la solicitud no está esperando verificación", ErrInvalidState)
		}

		return tx.Audit.Create(ctx, newAuditEntry(requestID, models.AuditActionOTPVerified, map[string]interface{}{
			"otp_id": otp.ID,
		}, client))
	})

	switch {
	case err == nil:
		logger.WithContext(ctx).Info("OTP verified", "request_id", requestID)
		return nil
	case errors.Is(err, errOTPConsumed):
		s.recordFailure(ctx, requestID, models.AuditReasonInvalidOTP, client)
		return ErrInvalidCode
	case errors.Is(err, ErrInvalidState):
		s.recordFailure(ctx, requestID, ReasonInvalidState, client)
		return err
	default:
		return err
	}
}

func (s *OTPService) recordFailure(ctx context.Context, requestID, reason string, client ClientInfo) {
	err := s.auditSvc.Record(ctx, requestID, models.AuditActionOTPVerificationFailed, map[string]interface{}{
		"reason": reason,
	}, client)
	if err != nil {
		logger.WithContext(ctx).Error("Failed to audit OTP verification failure", "request_id", requestID, "error", err)
	}
}
