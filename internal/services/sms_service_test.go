package services

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sjperalta/firma-api/pkg/logger"
	"github.com/stretchr/testify/assert"
)

func TestSMSService_SendSMS(t *testing.T) {
	logger.Setup("test")

	var got map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		got = map[string]string{"recipient": q.Get("recipient"), "apikey": q.Get("apikey"), "text": q.Get("text")}
		if q.Get("recipient") == "+000" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte("Success"))
	}))
	defer server.Close()

	service := NewSMSService("key-123", server.URL)

	assert.True(t, service.SendSMS(context.Background(), "+50499990000", "Su código es 123456"))
	assert.Equal(t, "+50499990000", got["recipient"])
	assert.Equal(t, "key-123", got["apikey"])
	assert.Equal(t, "Su código es 123456", got["text"])

	assert.False(t, service.SendSMS(context.Background(), "+000", "x"))
}

func TestSMSService_NoAPIKey(t *testing.T) {
	logger.Setup("test")

	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	assert.False(t, NewSMSService("", server.URL).SendSMS(context.Background(), "+50499990000", "x"))
	assert.False(t, called)
}

func TestSMSService_UnreachableKeepsSecretsOutOfLogs(t *testing.T) {
	var buf bytes.Buffer
	previous := logger.Log
	logger.Log = slog.New(slog.NewTextHandler(&buf, nil))
	t.Cleanup(func() { logger.Log = previous })

	service := NewSMSService("SECRETKEY", "http://127.0.0.1:1")
	assert.False(t, service.SendSMS(context.Background(), "+50499990000", "Su código es 482913"))

	output := buf.String()
	assert.Contains(t, output, "Error sending SMS")
	assert.NotContains(t, output, "SECRETKEY")
	assert.NotContains(t, output, "apikey")
	assert.NotContains(t, output, "482913")
}
