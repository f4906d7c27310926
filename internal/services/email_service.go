package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"

	"github.com/resend/resend-go/v2"
	"github.com/sjperalta/firma-api/internal/config"
	"github.com/sjperalta/firma-api/pkg/logger"
)

// EmailSender delivers an HTML email. Failures are reported, never raised.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, htmlBody string) bool
}

type EmailService struct {
	config       *config.Config
	resendClient *resend.Client
}

func NewEmailService(cfg *config.Config) *EmailService {
	client := resend.NewClient(cfg.ResendAPIKey)
	return &EmailService{
		config:       cfg,
		resendClient: client,
	}
}

// checkEmailPreconditions reports whether an email may be sent to `to`.
// A disabled channel is not an error; missing configuration or a bad address is.
func (s *EmailService) checkEmailPreconditions(to, operation string) (bool, error) {
	if !s.config.EnableEmailNotifications {
		logger.Debug(fmt.Sprintf("Email notifications disabled, skipping %s", operation))
		return false, nil
	}
	if s.config.ResendAPIKey == "" {
		return false, errors.New("RESEND_API_KEY is not set")
	}
	if s.config.FromEmail == "" {
		return false, errors.New("FROM_EMAIL is not set")
	}
	if _, err := mail.ParseAddress(to); err != nil {
		return false, fmt.Errorf("invalid recipient %q for %s", to, operation)
	}
	return true, nil
}

// SendEmail sends an HTML email through Resend
func (s *EmailService) SendEmail(ctx context.Context, to, subject, htmlBody string) bool {
	ok, err := s.checkEmailPreconditions(to, subject)
	if err != nil {
		logger.WithContext(ctx).Error("Email not sent", "to", to, "error", err)
		return false
	}
	if !ok {
		return false
	}

	params := &resend.SendEmailRequest{
		From:    s.config.FromEmail,
		To:      []string{to},
		Subject: subject,
		Html:    htmlBody,
	}
	if _, err := s.resendClient.Emails.SendWithContext(ctx, params); err != nil {
		logger.WithContext(ctx).Error(fmt.Sprintf("Failed to send email to %s: %v", to, err))
		return false
	}

	logger.WithContext(ctx).Info(fmt.Sprintf("📧 [Email Sent] To: %s | Subject: %s", to, subject))
	return true
}
