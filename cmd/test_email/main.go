package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/sjperalta/firma-api/internal/config"
	"github.com/sjperalta/firma-api/internal/jobs"
	"github.com/sjperalta/firma-api/internal/models"
	"github.com/sjperalta/firma-api/internal/services"
	"github.com/sjperalta/firma-api/pkg/logger"
)

// Sends the signer emails to a real inbox so templates and the Resend setup
// can be checked by eye.
func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger.Setup("development")

	if !cfg.EmailConfigured() {
		log.Fatal("Email is not configured: set ENABLE_EMAIL_NOTIFICATIONS, RESEND_API_KEY and FROM_EMAIL")
	}

	toEmail := os.Getenv("TEST_EMAIL_TO")
	if toEmail == "" {
		toEmail = "test@example.com"
		log.Println("TEST_EMAIL_TO not set, using test@example.com. Emails might mock or fail if domain not verified.")
	}
	var phone *string
	if p := os.Getenv("TEST_SMS_TO"); p != "" {
		phone = &p
	}

	worker := jobs.NewWorker(2)
	defer worker.Shutdown()

	emailService := services.NewEmailService(cfg)
	smsService := services.NewSMSService(cfg.TextMeBotAPIKey, cfg.TextMeBotURL)
	notifier := services.NewNotificationService(emailService, smsService, worker, cfg.NotifyTimeout, cfg.OrganizationName, cfg.AppURL)

	token, err := services.GenerateSignerToken()
	if err != nil {
		log.Fatalf("Failed to generate token: %v", err)
	}
	request := &models.SignatureRequest{
		ID:          "prueba",
		SignerName:  "Usuario de Prueba",
		SignerEmail: toEmail,
		SignerPhone: phone,
		Token:       token,
	}
	ctx := context.Background()

	log.Printf("Sending OTP to %s...", toEmail)
	result := notifier.SendOTP(ctx, request, "Contrato de Prueba", "123456", cfg.OTPTTL)
	log.Printf("OTP delivery: email=%t sms=%t", result.EmailSent, result.SMSSent)

	if cfg.AppURL != "" {
		log.Printf("Sending invitation to %s...", toEmail)
		log.Printf("Invitation delivered: %t", notifier.SendInvitation(ctx, request, "Contrato de Prueba"))
	}

	log.Printf("Sending signed confirmation to %s...", toEmail)
	log.Printf("Confirmation delivered: %t", notifier.SendSignedConfirmation(ctx, request, "Contrato de Prueba"))
}
