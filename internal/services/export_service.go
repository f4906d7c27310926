package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sjperalta/firma-api/internal/models"
	"github.com/xuri/excelize/v2"
)

var auditExportHeader = []string{"Fecha (UTC)", "Solicitud", "Acción", "Detalles", "IP", "User Agent"}

type ExportService struct {
	auditSvc *AuditService
}

func NewExportService(auditSvc *AuditService) *ExportService {
	return &ExportService{auditSvc: auditSvc}
}

func auditRow(entry models.AuditLog) []string {
	details, _ := json.Marshal(entry.Details)
	return []string{
		entry.Timestamp.UTC().Format(time.RFC3339),
		entry.RequestID,
		entry.Action,
		string(details),
		derefString(entry.IPAddress),
		derefString(entry.UserAgent),
	}
}

func exportFilename(requestID, ext string) string {
	if requestID != "" {
		return fmt.Sprintf("audit_%s_%s.%s", requestID, time.Now().Format("2006-01-02"), ext)
	}
	return fmt.Sprintf("audit_%s.%s", time.Now().Format("2006-01-02"), ext)
}

// ExportAuditCSV renders audit entries newest first as CSV
func (s *ExportService) ExportAuditCSV(ctx context.Context, requestID string) ([]byte, string, error) {
	entries, err := s.auditSvc.List(ctx, requestID)
	if err != nil {
		return nil, "", err
	}

	buf := new(bytes.Buffer)
	writer := csv.NewWriter(buf)
	_ = writer.Write(auditExportHeader)
	for _, entry := range entries {
		_ = writer.Write(auditRow(entry))
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, "", err
	}

	return buf.Bytes(), exportFilename(requestID, "csv"), nil
}

// ExportAuditXLSX renders audit entries newest first as a spreadsheet
func (s *ExportService) ExportAuditXLSX(ctx context.Context, requestID string) ([]byte, string, error) {
	entries, err := s.auditSvc.List(ctx, requestID)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Auditoria"
	_ = f.SetSheetName("Sheet1", sheet)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})

	for col, title := range auditExportHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		_ = f.SetCellValue(sheet, cell, title)
	}
	_ = f.SetCellStyle(sheet, "A1", "F1", headerStyle)
	_ = f.SetColWidth(sheet, "A", "C", 28)
	_ = f.SetColWidth(sheet, "D", "D", 60)

	for i, entry := range entries {
		for col, value := range auditRow(entry) {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			_ = f.SetCellValue(sheet, cell, value)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", err
	}

	return buf.Bytes(), exportFilename(requestID, "xlsx"), nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
