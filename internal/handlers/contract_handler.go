package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/firma-api/internal/services"
	"github.com/sjperalta/firma-api/pkg/logger"
)

type ContractHandler struct {
	contractService *services.ContractService
}

func NewContractHandler(contractService *services.ContractService) *ContractHandler {
	return &ContractHandler{contractService: contractService}
}

// @Summary List Contracts
// @Description Get a paginated list of uploaded contracts, newest first
// @Tags Contracts
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /contracts [get]
func (h *ContractHandler) Index(c *gin.Context) {
	query := parseListQuery(c)

	contracts, total, err := h.contractService.List(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"contracts":  contracts,
		"pagination": pagination(query, total),
	})
}

// @Summary Get Contract
// @Tags Contracts
// @Produce json
// @Param id path string true "Contract ID"
// @Success 200 {object} models.Contract
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /contracts/{id} [get]
func (h *ContractHandler) Show(c *gin.Context) {
	contract, err := h.contractService.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, contract)
}

// @Summary Upload Contract
// @Description Uploads a PDF, fingerprints it and extracts its form fields
// @Tags Contracts
// @Accept multipart/form-data
// @Produce json
// @Param name formData string true "Display name"
// @Param description formData string false "Description"
// @Param file formData file true "PDF document"
// @Success 201 {object} models.Contract
// @Failure 400 {object} map[string]string
// @Security BearerAuth
// @Router /contracts [post]
func (h *ContractHandler) Create(c *gin.Context) {
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

	var description *string
	if d := strings.TrimSpace(c.PostForm("description")); d != "" {
		description = &d
	}

	contract, err := h.contractService.Create(c.Request.Context(), services.CreateContractInput{
		Name:        c.PostForm("name"),
		Description: description,
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Content:     file,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, contract)
}

// @Summary Download Contract
// @Description Streams the stored original document
// @Tags Contracts
// @Produce application/pdf
// @Param id path string true "Contract ID"
// @Success 200 {file} file "contract"
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /contracts/{id}/download [get]
func (h *ContractHandler) Download(c *gin.Context) {
	contract, rc, err := h.contractService.OpenDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	sendPDF(c, rc, fmt.Sprintf("contrato_%s.pdf", contract.ID))
}

// sendPDF streams a stored document and closes it
func sendPDF(c *gin.Context, rc io.ReadCloser, filename string) {
	defer func() {
		if err := rc.Close(); err != nil {
			logger.WithContext(c.Request.Context()).Warn("Failed to close document", "error", err)
		}
	}()
	c.DataFromReader(http.StatusOK, -1, "application/pdf", rc, map[string]string{
		"Content-Disposition": fmt.Sprintf(`attachment; filename="%s"`, filename),
	})
}
