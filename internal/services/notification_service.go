package services

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/sjperalta/firma-api/internal/jobs"
	"github.com/sjperalta/firma-api/internal/models"
	"github.com/sjperalta/firma-api/pkg/logger"
)

//go:embed templates/email/*.html
var emailTemplates embed.FS

// DeliveryResult records which channels accepted a notification
type DeliveryResult struct {
	EmailSent bool
	SMSSent   bool
}

// NotificationService renders signer-facing messages and dispatches them on the worker
type NotificationService struct {
	email        EmailSender
	sms          SMSSender
	worker       *jobs.Worker
	timeout      time.Duration
	organization string
	appURL       string
}

func NewNotificationService(email EmailSender, sms SMSSender, worker *jobs.Worker, timeout time.Duration, organization, appURL string) *NotificationService {
	return &NotificationService{
		email:        email,
		sms:          sms,
		worker:       worker,
		timeout:      timeout,
		organization: organization,
		appURL:       appURL,
	}
}

// SendOTP delivers the code by email, and by SMS when a phone is on file.
// Waits at most the configured timeout; a channel still in flight counts as not sent.
func (s *NotificationService) SendOTP(ctx context.Context, request *models.SignatureRequest, contractName, code string, ttl time.Duration) DeliveryResult {
	body, err := renderTemplate("otp_code.html", struct {
		Organization string
		Name         string
		ContractName string
		Code         string
		Minutes      int
	}{
		Organization: s.organization,
		Name:         request.SignerName,
		ContractName: contractName,
		Code:         code,
		Minutes:      int(ttl.Minutes()),
	})

	var emailTask jobs.Task = func(ctx context.Context) bool { return false }
	if err != nil {
		logger.WithContext(ctx).Error("Failed to render OTP email", "request_id", request.ID, "error", err)
	} else {
		to := request.SignerEmail
		emailTask = func(ctx context.Context) bool {
			return s.email.SendEmail(ctx, to, "Código de Verificación - Firma de Contrato", body)
		}
	}

	tasks := []jobs.Task{emailTask}
	if request.SignerPhone != nil && *request.SignerPhone != "" {
		phone := *request.SignerPhone
		text := fmt.Sprintf("%s: Su código de verificación es: %s. Válido por %d minutos.", s.organization, code, int(ttl.Minutes()))
		tasks = append(tasks, func(ctx context.Context) bool {
			return s.sms.SendSMS(ctx, phone, text)
		})
	}

	results := s.worker.RunAll(s.timeout, tasks...)

	result := DeliveryResult{EmailSent: results[0]}
	if len(results) > 1 {
		result.SMSSent = results[1]
	}
	if !result.EmailSent {
		logger.WithContext(ctx).Error("OTP email not delivered", "request_id", request.ID)
	}
	return result
}

// SendSignedConfirmation tells the signer the contract was signed
func (s *NotificationService) SendSignedConfirmation(ctx context.Context, request *models.SignatureRequest, contractName string) bool {
	if request.SignedFileHash == nil || request.SignedAt == nil {
		return false
	}

	verifyURL := ""
	if s.appURL != "" {
		verifyURL = s.appURL + "/verify"
	}

	body, err := renderTemplate("contract_signed.html", struct {
		Organization string
		Name         string
		ContractName string
		SignedAt     string
		SignedHash   string
		VerifyURL    string
	}{
		Organization: s.organization,
		Name:         request.SignerName,
		ContractName: contractName,
		SignedAt:     request.SignedAt.UTC().Format("2006-01-02 15:04:05 UTC"),
		SignedHash:   *request.SignedFileHash,
		VerifyURL:    verifyURL,
	})
	if err != nil {
		logger.WithContext(ctx).Error("Failed to render confirmation email", "request_id", request.ID, "error", err)
		return false
	}

	return s.email.SendEmail(ctx, request.SignerEmail, "Contrato Firmado - "+s.organization, body)
}

// SendInvitation emails the signing link. Returns false when no public URL is configured.
func (s *NotificationService) SendInvitation(ctx context.Context, request *models.SignatureRequest, contractName string) bool {
	if s.appURL == "" {
		logger.WithContext(ctx).Warn("APP_URL is not set, skipping invitation", "request_id", request.ID)
		return false
	}

	body, err := renderTemplate("invitation.html", struct {
		Organization string
		Name         string
		ContractName string
		SignURL      string
	}{
		Organization: s.organization,
		Name:         request.SignerName,
		ContractName: contractName,
		SignURL:      s.SigningURL(request.Token),
	})
	if err != nil {
		logger.WithContext(ctx).Error("Failed to render invitation email", "request_id", request.ID, "error", err)
		return false
	}

	return s.email.SendEmail(ctx, request.SignerEmail, "Solicitud de Firma - "+contractName, body)
}

// SigningURL is the signer-facing link for a token
func (s *NotificationService) SigningURL(token string) string {
	return s.appURL + "/sign/" + token
}

func renderTemplate(name string, data interface{}) (string, error) {
	tmpl, err := template.ParseFS(emailTemplates, "templates/email/"+name)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}

	return buf.String(), nil
}
