package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/firma-api/internal/services"
)

type IntegrityHandler struct {
	integrityService *services.IntegrityService
}

func NewIntegrityHandler(integrityService *services.IntegrityService) *IntegrityHandler {
	return &IntegrityHandler{integrityService: integrityService}
}

type VerifyIntegrityRequest struct {
	FileHash string `json:"file_hash"`
}

// @Summary Verify Integrity
// @Description Looks a SHA-256 digest up among original and signed documents
// @Tags Integrity
// @Accept json
// @Produce json
// @Param request body VerifyIntegrityRequest true "Digest"
// @Success 200 {object} models.IntegrityResult
// @Router /verify-integrity [post]
func (h *IntegrityHandler) Verify(c *gin.Context) {
	var req VerifyIntegrityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file_hash es requerido"})
		return
	}

	result, err := h.integrityService.Verify(c.Request.Context(), req.FileHash)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// @Summary Verify Integrity Of A File
// @Description Hashes the uploaded document and looks the digest up
// @Tags Integrity
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Document"
// @Success 200 {object} map[string]interface{}
// @Router /verify-integrity/file [post]
func (h *IntegrityHandler) VerifyFile(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "El archivo es requerido"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No se pudo leer el archivo"})
		return
	}
	defer file.Close()

	result, hash, err := h.integrityService.VerifyContent(c.Request.Context(), file)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":           result.Valid,
		"message":         result.Message,
		"found_in_system": result.FoundInSystem,
		"source":          result.Source,
		"file_hash":       hash,
	})
}

type DashboardHandler struct {
	dashboardService *services.DashboardService
}

func NewDashboardHandler(dashboardService *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

// @Summary Dashboard Stats
// @Description Aggregate counts over contracts and signature requests
// @Tags Dashboard
// @Produce json
// @Success 200 {object} models.DashboardStats
// @Security BearerAuth
// @Router /dashboard/stats [get]
func (h *DashboardHandler) Stats(c *gin.Context) {
	stats, err := h.dashboardService.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
