package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sjperalta/firma-api/pkg/logger"
)

// SMSSender delivers a text message. Failures are reported, never raised.
type SMSSender interface {
	SendSMS(ctx context.Context, phone, text string) bool
}

// SMSService sends messages through the TextMeBot HTTP API
type SMSService struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewSMSService(apiKey, baseURL string) *SMSService {
	return &SMSService{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *SMSService) SendSMS(ctx context.Context, phone, text string) bool {
	if s.apiKey == "" {
		logger.WithContext(ctx).Warn("TEXTMEBOT_API_KEY is not set, skipping SMS", "phone", phone)
		return false
	}

	q := url.Values{}
	q.Set("recipient", phone)
	q.Set("apikey", s.apiKey)
	q.Set("text", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		logger.WithContext(ctx).Error("Error building SMS request", "phone", phone, "error", redactURLError(err))
		return false
	}

	resp, err := s.client.Do(req)
	if err != nil {
		logger.WithContext(ctx).Error("Error sending SMS", "phone", phone, "error", redactURLError(err))
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.WithContext(ctx).Error("SMS provider rejected message", "phone", phone, "status", resp.StatusCode)
		return false
	}

	logger.WithContext(ctx).Info(fmt.Sprintf("📱 [SMS Sent] To: %s", phone))
	return true
}

// redactURLError drops the request URL, which carries the API key and the message text
func redactURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s: %w", urlErr.Op, urlErr.Err)
	}
	return err
}
