package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sjperalta/firma-api/internal/models"
	"github.com/sjperalta/firma-api/internal/repository"
	"github.com/sjperalta/firma-api/internal/storage"
	"github.com/sjperalta/firma-api/pkg/logger"
	"gorm.io/gorm"
)

const sweepPageSize = 200

// IntegrityService answers whether a hash belongs to a known original or signed artifact
type IntegrityService struct {
	contracts  repository.ContractRepository
	signatures repository.SignatureRequestRepository
	store      storage.DocumentStore
}

func NewIntegrityService(contracts repository.ContractRepository, signatures repository.SignatureRequestRepository, store storage.DocumentStore) *IntegrityService {
	return &IntegrityService{contracts: contracts, signatures: signatures, store: store}
}

func notFoundResult() *models.IntegrityResult {
	return &models.IntegrityResult{
		Valid:         false,
		Message:       "Hash no encontrado en el sistema",
		FoundInSystem: false,
	}
}

// Verify looks the hash up in originals first, then signed artifacts.
// Anything that is not a 64-character hex digest is simply not found.
func (s *IntegrityService) Verify(ctx context.Context, hash string) (*models.IntegrityResult, error) {
	hash = strings.ToLower(strings.TrimSpace(hash))
	if !storage.IsHexDigest(hash) {
		return notFoundResult(), nil
	}

	_, err := s.contracts.FindByFileHash(ctx, hash)
	if err == nil {
		return &models.IntegrityResult{
			Valid:         true,
			Message:       "Documento válido - Hash encontrado en contratos originales",
			FoundInSystem: true,
			Source:        models.IntegritySourceOriginal,
		}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up contracts: %w", err)
	}

	_, err = s.signatures.FindBySignedFileHash(ctx, hash)
	if err == nil {
		return &models.IntegrityResult{
			Valid:         true,
			Message:       "Documento válido - Hash encontrado en contratos firmados",
			FoundInSystem: true,
			Source:        models.IntegritySourceSigned,
		}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up signed documents: %w", err)
	}

	return notFoundResult(), nil
}

// VerifyContent hashes an uploaded document and looks it up.
// Uploads over the contract size limit are rejected, never hashed in part.
func (s *IntegrityService) VerifyContent(ctx context.Context, r io.Reader) (*models.IntegrityResult, string, error) {
	limited := &io.LimitedReader{R: r, N: storage.MaxFileSize() + 1}
	hash, err := storage.Hash(limited)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read upload: %w", err)
	}
	if limited.N == 0 {
		return nil, "", fmt.Errorf("%w: el archivo excede el tamaño máximo de 10MB", ErrInvalidInput)
	}
	result, err := s.Verify(ctx, hash)
	return result, hash, err
}

// SweepReport summarises one integrity sweep
type SweepReport struct {
	Checked    int
	Mismatches int
	Missing    int
}

// Sweep re-hashes every stored original and signed artifact and logs any drift.
// It never modifies records.
func (s *IntegrityService) Sweep(ctx context.Context) (*SweepReport, error) {
	report := &SweepReport{}
	log := logger.WithContext(ctx)

	check := func(kind, id, handle, expected string) {
		report.Checked++
		actual, err := storage.HashDocument(ctx, s.store, handle)
		switch {
		case errors.Is(err, storage.ErrNotExist):
			report.Missing++
			log.Error("Integrity sweep: stored document missing", "kind", kind, "id", id, "handle", handle)
		case err != nil:
			report.Missing++
			log.Error("Integrity sweep: cannot read document", "kind", kind, "id", id, "handle", handle, "error", err)
		case actual != expected:
			report.Mismatches++
			log.Error("Integrity sweep: hash mismatch", "kind", kind, "id", id, "expected", expected, "actual", actual)
		}
	}

	query := repository.NewListQuery()
	query.PerPage = sweepPageSize
	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		contracts, _, err := s.contracts.List(ctx, query)
		if err != nil {
			return report, fmt.Errorf("failed to list contracts: %w", err)
		}
		for _, c := range contracts {
			check("original", c.ID, c.FilePath, c.FileHash)
		}
		if len(contracts) < query.PerPage {
			break
		}
		query.Page++
	}

	query = repository.NewListQuery()
	query.PerPage = sweepPageSize
	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		requests, err := s.signatures.ListSigned(ctx, query)
		if err != nil {
			return report, fmt.Errorf("failed to list signed requests: %w", err)
		}
		for _, r := range requests {
			if r.SignedFilePath == nil || r.SignedFileHash == nil {
				continue
			}
			check("signed", r.ID, *r.SignedFilePath, *r.SignedFileHash)
		}
		if len(requests) < query.PerPage {
			break
		}
		query.Page++
	}

	log.Info("Integrity sweep finished", "checked", report.Checked, "mismatches", report.Mismatches, "missing", report.Missing)
	return report, nil
}
