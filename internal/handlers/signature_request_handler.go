package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/firma-api/internal/services"
)

type SignatureRequestHandler struct {
	requestService *services.SignatureRequestService
}

func NewSignatureRequestHandler(requestService *services.SignatureRequestService) *SignatureRequestHandler {
	return &SignatureRequestHandler{requestService: requestService}
}

type CreateSignatureRequestRequest struct {
	ContractID   string  `json:"contract_id" binding:"required"`
	SignerName   string  `json:"signer_name" binding:"required"`
	SignerEmail  string  `json:"signer_email" binding:"required,email"`
	SignerPhone  *string `json:"signer_phone"`
	SendViaEmail bool    `json:"send_via_email"`
}

type RejectRequest struct {
	Reason string `json:"reason"`
}

// @Summary List Signature Requests
// @Description Get a paginated list of signature requests, newest first
// @Tags SignatureRequests
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param status query string false "Filter by status"
// @Param contract_id query string false "Filter by contract"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /signature-requests [get]
func (h *SignatureRequestHandler) Index(c *gin.Context) {
	query := parseListQuery(c)
	if status := c.Query("status"); status != "" {
		query.Filters["status"] = status
	}
	if contractID := c.Query("contract_id"); contractID != "" {
		query.Filters["contract_id"] = contractID
	}

	requests, total, err := h.requestService.List(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"signature_requests": requests,
		"pagination":         pagination(query, total),
	})
}

// @Summary Create Signature Request
// @Description Binds a signer to a contract and issues the signer's link token
// @Tags SignatureRequests
// @Accept json
// @Produce json
// @Param request body CreateSignatureRequestRequest true "Signer"
// @Success 201 {object} models.SignatureRequest
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /signature-requests [post]
func (h *SignatureRequestHandler) Create(c *gin.Context) {
	var req CreateSignatureRequestRequest
	if err := BindNestedOrFlat(c, "signature_request", &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Datos de solicitud inválidos"})
		return
	}

	request, err := h.requestService.Create(c.Request.Context(), services.CreateSignatureRequestInput{
		ContractID:   req.ContractID,
		SignerName:   req.SignerName,
		SignerEmail:  req.SignerEmail,
		SignerPhone:  req.SignerPhone,
		SendViaEmail: req.SendViaEmail,
	}, clientInfo(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, request)
}

// @Summary Get Signature Request
// @Tags SignatureRequests
// @Produce json
// @Param id path string true "Signature request ID"
// @Success 200 {object} models.SignatureRequest
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /signature-requests/{id} [get]
func (h *SignatureRequestHandler) Show(c *gin.Context) {
	request, err := h.requestService.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}

// @Summary Reject Signature Request
// @Description Declines a request that is not yet signed
// @Tags SignatureRequests
// @Accept json
// @Produce json
// @Param id path string true "Signature request ID"
// @Param request body RejectRequest false "Reason"
// @Success 200 {object} models.SignatureRequest
// @Failure 409 {object} map[string]string
// @Security BearerAuth
// @Router /signature-requests/{id}/reject [post]
func (h *SignatureRequestHandler) Reject(c *gin.Context) {
	var req RejectRequest
	// The reason is optional; an empty body is fine
	_ = c.ShouldBindJSON(&req)

	request, err := h.requestService.Reject(c.Request.Context(), c.Param("id"), req.Reason, clientInfo(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}

// @Summary Get Signature Request By Token
// @Description Resolves a signer link, including the contract metadata
// @Tags Signer
// @Produce json
// @Param token path string true "Signer token"
// @Success 200 {object} models.SignatureRequest
// @Failure 404 {object} map[string]string
// @Router /signature-requests/token/{token} [get]
func (h *SignatureRequestHandler) ShowByToken(c *gin.Context) {
	request, err := h.requestService.FindByToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}

// @Summary Download Document By Token
// @Tags Signer
// @Produce application/pdf
// @Param token path string true "Signer token"
// @Success 200 {file} file "contract"
// @Failure 404 {object} map[string]string
// @Router /signature-requests/token/{token}/document [get]
func (h *SignatureRequestHandler) Document(c *gin.Context) {
	contract, rc, err := h.requestService.OpenDocumentByToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondError(c, err)
		return
	}
	sendPDF(c, rc, fmt.Sprintf("contrato_%s.pdf", contract.ID))
}

// @Summary Download Signing Certificate
// @Tags Signer
// @Produce application/pdf
// @Param token path string true "Signer token"
// @Success 200 {file} file "certificate"
// @Failure 404 {object} map[string]string
// @Router /signature-requests/token/{token}/certificate [get]
func (h *SignatureRequestHandler) Certificate(c *gin.Context) {
	request, rc, err := h.requestService.OpenCertificateByToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondError(c, err)
		return
	}
	sendPDF(c, rc, fmt.Sprintf("certificado_%s.pdf", request.ID))
}
