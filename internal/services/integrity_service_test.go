package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sjperalta/firma-api/internal/models"
	"github.com/sjperalta/firma-api/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegrityService_Verify(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	content := samplePDF(t, "integridad")
	contract := env.createContract(t, content)

	t.Run("original", func(t *testing.T) {
		result, err := env.integrity.Verify(ctx, contract.FileHash)
		require.NoError(t, err)
		assert.True(t, result.Valid)
		assert.True(t, result.FoundInSystem)
		assert.Equal(t, models.IntegritySourceOriginal, result.Source)
		assert.Equal(t, "Documento válido - Hash encontrado en contratos originales", result.Message)
	})

	t.Run("uppercase and padded input", func(t *testing.T) {
		result, err := env.integrity.Verify(ctx, "  "+strings.ToUpper(contract.FileHash)+"\n")
		require.NoError(t, err)
		assert.True(t, result.Valid)
	})

	t.Run("unrelated digest", func(t *testing.T) {
		sum := sha256.Sum256([]byte("not a stored document"))
		result, err := env.integrity.Verify(ctx, hex.EncodeToString(sum[:]))
		require.NoError(t, err)
		assert.False(t, result.Valid)
		assert.False(t, result.FoundInSystem)
		assert.Empty(t, result.Source)
		assert.Equal(t, "Hash no encontrado en el sistema", result.Message)
	})

	t.Run("malformed input is not found", func(t *testing.T) {
		for _, input := range []string{"", "abc", strings.Repeat("z", 64), contract.FileHash + "00"} {
			result, err := env.integrity.Verify(ctx, input)
			require.NoError(t, err)
			assert.False(t, result.Valid, input)
		}
	})
}

func TestIntegrityService_VerifySignedOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// A signed artifact whose hash is not also an original
	contract := env.createContract(t, samplePDF(t, "firmado"))
	request := env.createRequest(t, contract.ID, nil)
	signedHash := strings.Repeat("ab", 32)
	stored := env.db.Request(request.ID)
	stored.Status = models.SignatureStatusSigned
	stored.SignedFileHash = &signedHash
	env.db.PutRequest(stored)

	result, err := env.integrity.Verify(ctx, signedHash)
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, models.IntegritySourceSigned, result.Source)
	assert.Equal(t, "Documento válido - Hash encontrado en contratos firmados", result.Message)
}

func TestIntegrityService_VerifyContent(t *testing.T) {
	env := newTestEnv(t)
	content := samplePDF(t, "subida")
	contract := env.createContract(t, content)

	result, hash, err := env.integrity.VerifyContent(context.Background(), bytes.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, contract.FileHash, hash)
	assert.True(t, result.Valid)

	result, _, err = env.integrity.VerifyContent(context.Background(), bytes.NewReader(append(content, ' ')))
	require.NoError(t, err)
	assert.False(t, result.Valid)
}

func TestIntegrityService_VerifyContentAtSizeLimit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// An original of exactly the maximum size
	content := samplePDF(t, "límite")
	content = append(content, bytes.Repeat([]byte{'\n'}, int(storage.MaxFileSize())-len(content))...)
	contract := env.createContract(t, content)

	result, hash, err := env.integrity.VerifyContent(ctx, bytes.NewReader(content))
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, contract.FileHash, hash)

	// Bytes appended past the limit must not be ignored
	tampered := append(append([]byte{}, content...), []byte("TAMPERED")...)
	result, hash, err = env.integrity.VerifyContent(ctx, bytes.NewReader(tampered))
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Nil(t, result)
	assert.Empty(t, hash)
}

func TestIntegrityService_Sweep(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, request := env.verifiedRequest(t)
	_, err := env.signing.Sign(ctx, SignInput{RequestID: request.ID})
	require.NoError(t, err)
	env.createContract(t, samplePDF(t, "otro"))

	report, err := env.integrity.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Checked)
	assert.Zero(t, report.Mismatches)
	assert.Zero(t, report.Missing)

	stored := env.db.Request(request.ID)
	original := env.db.Contract(stored.ContractID)

	require.NoError(t, os.WriteFile(filepath.Join(env.storeDir, filepath.FromSlash(original.FilePath)), []byte("tampered"), 0o644))
	require.NoError(t, os.Remove(filepath.Join(env.storeDir, filepath.FromSlash(*stored.SignedFilePath))))

	report, err = env.integrity.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Checked)
	assert.Equal(t, 1, report.Mismatches)
	assert.Equal(t, 1, report.Missing)

	// Records are untouched
	assert.Equal(t, original.FileHash, env.db.Contract(original.ID).FileHash)
	assert.Equal(t, models.SignatureStatusSigned, env.db.Request(request.ID).Status)
}
