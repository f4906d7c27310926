package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/firma-api/internal/services"
)

// SigningHandler serves the signer's OTP and signing steps
type SigningHandler struct {
	otpService     *services.OTPService
	signingService *services.SigningService
}

func NewSigningHandler(otpService *services.OTPService, signingService *services.SigningService) *SigningHandler {
	return &SigningHandler{otpService: otpService, signingService: signingService}
}

type SendOTPRequest struct {
	RequestID string `json:"request_id" binding:"required"`
}

type VerifyOTPRequest struct {
	RequestID string `json:"request_id" binding:"required"`
	OTP       string `json:"otp" binding:"required"`
}

type SignRequest struct {
	RequestID string                 `json:"request_id" binding:"required"`
	FormData  map[string]interface{} `json:"form_data"`
}

type OTPResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
}

type SignResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	SignedHash string `json:"signed_hash"`
}

// @Summary Send OTP
// @Description Issues a fresh 6-digit code to the signer by email and, when on file, SMS
// @Tags Signer
// @Accept json
// @Produce json
// @Param request body SendOTPRequest true "Request"
// @Success 200 {object} OTPResponse
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Failure 429 {object} map[string]string
// @Router /signature-requests/send-otp [post]
func (h *SigningHandler) SendOTP(c *gin.Context) {
	var req SendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request_id es requerido"})
		return
	}

	if err := h.otpService.Issue(c.Request.Context(), req.RequestID, clientInfo(c)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, OTPResponse{Success: true, Message: "OTP enviado exitosamente"})
}

// @Summary Verify OTP
// @Description Checks the signer's code. A wrong or expired code is a 200 with success=false.
// @Tags Signer
// @Accept json
// @Produce json
// @Param request body VerifyOTPRequest true "Code"
// @Success 200 {object} OTPResponse
// @Failure 409 {object} map[string]string
// @Failure 429 {object} map[string]string
// @Router /signature-requests/verify-otp [post]
func (h *SigningHandler) VerifyOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request_id y otp son requeridos"})
		return
	}

	err := h.otpService.Verify(c.Request.Context(), req.RequestID, req.OTP, clientInfo(c))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, OTPResponse{Success: true, Message: "OTP verificado exitosamente"})
	case errors.Is(err, services.ErrInvalidCode):
		c.JSON(http.StatusOK, OTPResponse{Message: "Código OTP inválido", Reason: services.ReasonInvalidCode})
	case errors.Is(err, services.ErrExpiredCode):
		c.JSON(http.StatusOK, OTPResponse{Message: "Código OTP expirado", Reason: services.ReasonExpiredCode})
	default:
		respondError(c, err)
	}
}

// @Summary Sign Contract
// @Description Signs the contract after a successful OTP verification
// @Tags Signer
// @Accept json
// @Produce json
// @Param request body SignRequest true "Submission"
// @Success 200 {object} SignResponse
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /signature-requests/sign [post]
func (h *SigningHandler) Sign(c *gin.Context) {
	var req SignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request_id es requerido"})
		return
	}

	signed, err := h.signingService.Sign(c.Request.Context(), services.SignInput{
		RequestID: req.RequestID,
		FormData:  req.FormData,
		Client:    clientInfo(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SignResponse{
		Success:    true,
		Message:    "Contrato firmado exitosamente",
		SignedHash: *signed.SignedFileHash,
	})
}
