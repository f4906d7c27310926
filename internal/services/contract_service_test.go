package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sjperalta/firma-api/internal/models"
	"github.com/sjperalta/firma-api/internal/repository"
	"github.com/sjperalta/firma-api/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContractService_Create(t *testing.T) {
	env := newTestEnv(t)
	content := samplePDF(t, "Contrato de compraventa")
	description := "Lote 14, etapa 2"

	contract, err := env.contracts.Create(context.Background(), CreateContractInput{
		Name:        "  Compraventa  ",
		Description: &description,
		Filename:    "compraventa.pdf",
		ContentType: "application/pdf",
		Content:     bytes.NewReader(content),
	})
	require.NoError(t, err)

	sum := sha256.Sum256(content)
	assert.Equal(t, hex.EncodeToString(sum[:]), contract.FileHash)
	assert.Equal(t, "Compraventa", contract.Name)
	assert.True(t, strings.HasPrefix(contract.FilePath, storage.DirContracts+"/"))
	assert.Equal(t, []models.ContractField{}, contract.FieldList())

	_, rc, err := env.contracts.OpenDocument(context.Background(), contract.ID)
	require.NoError(t, err)
	stored, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, content, stored)
}

func TestContractService_CreateValidation(t *testing.T) {
	env := newTestEnv(t)
	pdf := samplePDF(t, "x")

	tests := []struct {
		name  string
		input CreateContractInput
	}{
		{"missing name", CreateContractInput{Filename: "a.pdf", ContentType: "application/pdf", Content: bytes.NewReader(pdf)}},
		{"not a pdf", CreateContractInput{Name: "A", Filename: "a.docx", ContentType: "application/msword", Content: bytes.NewReader(pdf)}},
		{"empty file", CreateContractInput{Name: "A", Filename: "a.pdf", ContentType: "application/pdf", Content: bytes.NewReader(nil)}},
		{"too large", CreateContractInput{Name: "A", Filename: "a.pdf", ContentType: "application/pdf", Content: io.LimitReader(zeroReader{}, storage.MaxFileSize()+1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.contracts.Create(context.Background(), tt.input)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	count, err := env.db.Repositories().Contract.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Zero(t, countFiles(t, filepath.Join(env.storeDir, storage.DirContracts)))
}

func TestContractService_AcceptsPDFExtensionWithGenericType(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.contracts.Create(context.Background(), CreateContractInput{
		Name:        "Genérico",
		Filename:    "contrato.PDF",
		ContentType: "application/octet-stream",
		Content:     bytes.NewReader(samplePDF(t, "x")),
	})
	assert.NoError(t, err)
}

func TestContractService_NotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.contracts.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = env.contracts.OpenDocument(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestContractService_List(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 3; i++ {
		env.createContract(t, samplePDF(t, strings.Repeat("c", i+1)))
	}

	query := repository.NewListQuery()
	query.PerPage = 2
	page, total, err := env.contracts.List(context.Background(), query)
	require.NoError(t, err)
	assert.Len(t, page, 2)
	assert.EqualValues(t, 3, total)

	query.Page = 2
	page, _, err = env.contracts.List(context.Background(), query)
	require.NoError(t, err)
	assert.Len(t, page, 1)
}

func TestDashboardService_Stats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	stats, err := env.dashboard.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.DashboardStats{}, *stats)

	contract := env.createContract(t, samplePDF(t, "panel"))
	env.createRequest(t, contract.ID, nil)
	sent := env.createRequest(t, contract.ID, nil)
	env.issue(t, sent.ID)
	rejected := env.createRequest(t, contract.ID, nil)
	_, err = env.requests.Reject(ctx, rejected.ID, "", ClientInfo{})
	require.NoError(t, err)

	stats, err = env.dashboard.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.TotalContracts)
	assert.EqualValues(t, 3, stats.TotalRequests)
	assert.EqualValues(t, 1, stats.PendingRequests)
	assert.EqualValues(t, 1, stats.OTPSentRequests)
	assert.EqualValues(t, 0, stats.SignedRequests)
	assert.EqualValues(t, 1, stats.RejectedRequests)
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}
