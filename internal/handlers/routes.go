package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/firma-api/internal/middleware"
	"github.com/sjperalta/firma-api/internal/ratelimit"
)

// RouteConfig carries what route registration needs beyond the handlers
type RouteConfig struct {
	JWTSecret     string
	Limiter       ratelimit.Limiter
	OTPRateLimit  int
	OTPRateWindow time.Duration
}

// Register mounts every API route on the group. Signer routes are public and
// authorised by the request token or id; everything else requires an admin token.
func (h *Handlers) Register(api *gin.RouterGroup, cfg RouteConfig) {
	api.GET("/", h.Health.Root)
	api.GET("/health", h.Health.Index)

	// Authentication (public)
	api.POST("/auth/admin/login", h.Auth.Login)

	// Signer routes (public)
	otpLimit := func(scope string) gin.HandlerFunc {
		return middleware.RateLimit(cfg.Limiter, scope, cfg.OTPRateLimit, cfg.OTPRateWindow, middleware.KeyByJSONField("request_id"))
	}
	signer := api.Group("/signature-requests")
	{
		signer.GET("/token/:token", h.SignatureRequest.ShowByToken)
		signer.GET("/token/:token/document", h.SignatureRequest.Document)
		signer.GET("/token/:token/certificate", h.SignatureRequest.Certificate)
		signer.POST("/send-otp", otpLimit("send-otp"), h.Signing.SendOTP)
		signer.POST("/verify-otp", otpLimit("verify-otp"), h.Signing.VerifyOTP)
		signer.POST("/sign", h.Signing.Sign)
	}
	api.POST("/verify-integrity", h.Integrity.Verify)
	api.POST("/verify-integrity/file", h.Integrity.VerifyFile)

	// Admin routes
	admin := api.Group("")
	admin.Use(middleware.Auth(cfg.JWTSecret), middleware.RequireAdmin())
	{
		admin.GET("/contracts", h.Contract.Index)
		admin.POST("/contracts", h.Contract.Create)
		admin.GET("/contracts/:id", h.Contract.Show)
		admin.GET("/contracts/:id/download", h.Contract.Download)

		admin.GET("/signature-requests", h.SignatureRequest.Index)
		admin.POST("/signature-requests", h.SignatureRequest.Create)
		admin.GET("/signature-requests/:id", h.SignatureRequest.Show)
		admin.POST("/signature-requests/:id/reject", h.SignatureRequest.Reject)

		admin.GET("/audit-logs", h.Audit.Index)
		admin.GET("/audit-logs/export", h.Audit.Export)

		admin.GET("/dashboard/stats", h.Dashboard.Stats)

		admin.GET("/jobs/status", h.Job.Status)
		admin.POST("/jobs/integrity-sweep", h.Job.IntegritySweep)
	}
}
