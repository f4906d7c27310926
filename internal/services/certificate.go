package services

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// CertificateData is the content of a signing certificate
type CertificateData struct {
	Organization     string
	RequestID        string
	ContractName     string
	SignerName       string
	SignerEmail      string
	SignerPhone      string
	OTPVerifiedAt    time.Time
	SignedAt         time.Time
	IPAddress        string
	UserAgent        string
	OriginalFileHash string
	SignedFileHash   string
	FormData         map[string]interface{}
}

// RenderCertificate produces a one-page PDF summarising a signature
func RenderCertificate(data CertificateData) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Certificado de Firma", true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, tr("Certificado de Firma Electrónica"))
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 8, tr(data.Organization))
	pdf.Ln(12)

	row := func(label, value string) {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(55, 7, tr(label), "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(0, 7, tr(value), "", "L", false)
	}

	section := func(title string) {
		pdf.Ln(4)
		pdf.SetFont("Arial", "B", 12)
		pdf.Cell(0, 8, tr(title))
		pdf.Ln(9)
	}

	section("Documento")
	row("Contrato:", data.ContractName)
	row("Solicitud:", data.RequestID)
	row("Hash original (SHA-256):", data.OriginalFileHash)
	row("Hash firmado (SHA-256):", data.SignedFileHash)

	section("Firmante")
	row("Nombre:", data.SignerName)
	row("Correo:", data.SignerEmail)
	if data.SignerPhone != "" {
		row("Teléfono:", data.SignerPhone)
	}

	section("Evidencia")
	row("OTP verificado:", data.OTPVerifiedAt.UTC().Format("2006-01-02 15:04:05 UTC"))
	row("Fecha de firma:", data.SignedAt.UTC().Format("2006-01-02 15:04:05 UTC"))
	row("Dirección IP:", orDash(data.IPAddress))
	row("User agent:", orDash(data.UserAgent))

	if len(data.FormData) > 0 {
		section("Datos del formulario")
		keys := make([]string, 0, len(data.FormData))
		for k := range data.FormData {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			row(k+":", fmt.Sprintf("%v", data.FormData[k]))
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render certificate: %w", err)
	}
	return buf.Bytes(), nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
