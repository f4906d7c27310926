package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/firma-api/internal/services"
)

type AuditHandler struct {
	auditService  *services.AuditService
	exportService *services.ExportService
}

func NewAuditHandler(auditService *services.AuditService, exportService *services.ExportService) *AuditHandler {
	return &AuditHandler{auditService: auditService, exportService: exportService}
}

// @Summary List Audit Logs
// @Description Get audit entries newest first, optionally for one signature request
// @Tags Audit
// @Produce json
// @Param request_id query string false "Signature request ID"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /audit-logs [get]
func (h *AuditHandler) Index(c *gin.Context) {
	logs, err := h.auditService.List(c.Request.Context(), c.Query("request_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"audit_logs": logs})
}

// @Summary Export Audit Logs
// @Description Download audit entries as XLSX (default) or CSV
// @Tags Audit
// @Produce application/octet-stream
// @Param request_id query string false "Signature request ID"
// @Param format query string false "xlsx or csv" default(xlsx)
// @Success 200 {file} file "export"
// @Security BearerAuth
// @Router /audit-logs/export [get]
func (h *AuditHandler) Export(c *gin.Context) {
	requestID := c.Query("request_id")

	var (
		data        []byte
		filename    string
		contentType string
		err         error
	)
	switch c.DefaultQuery("format", "xlsx") {
	case "csv":
		data, filename, err = h.exportService.ExportAuditCSV(c.Request.Context(), requestID)
		contentType = "text/csv"
	case "xlsx":
		data, filename, err = h.exportService.ExportAuditXLSX(c.Request.Context(), requestID)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Formato no soportado"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, contentType, data)
}
