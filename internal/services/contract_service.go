package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/sjperalta/firma-api/internal/models"
	"github.com/sjperalta/firma-api/internal/repository"
	"github.com/sjperalta/firma-api/internal/storage"
	"github.com/sjperalta/firma-api/pkg/logger"
)

type ContractService struct {
	repo  repository.ContractRepository
	store storage.DocumentStore
}

func NewContractService(repo repository.ContractRepository, store storage.DocumentStore) *ContractService {
	return &ContractService{repo: repo, store: store}
}

// CreateContractInput is an uploaded contract
type CreateContractInput struct {
	Name        string
	Description *string
	Filename    string
	ContentType string
	Content     io.Reader
}

// Create stores the document, fingerprints it and registers the contract
func (s *ContractService) Create(ctx context.Context, input CreateContractInput) (*models.Contract, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: el nombre es requerido", ErrInvalidInput)
	}
	if !isPDF(input.Filename, input.ContentType) {
		return nil, fmt.Errorf("%w: solo se permiten archivos PDF", ErrInvalidInput)
	}

	// One byte over the limit is enough to reject
	content, err := io.ReadAll(io.LimitReader(input.Content, storage.MaxFileSize()+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(content)) > storage.MaxFileSize() {
		return nil, fmt.Errorf("%w: el archivo excede el tamaño máximo de 10MB", ErrInvalidInput)
	}
	if len(content) == 0 {
		return nil, fmt.Errorf("%w: el archivo está vacío", ErrInvalidInput)
	}

	handle, err := s.store.Save(ctx, bytes.NewReader(content), input.Filename, storage.DirContracts)
	if err != nil {
		return nil, fmt.Errorf("failed to store contract: %w", err)
	}

	// Fingerprint what was actually stored
	hash, err := storage.HashDocument(ctx, s.store, handle)
	if err != nil {
		s.discard(ctx, handle)
		return nil, fmt.Errorf("failed to hash contract: %w", err)
	}

	contract := &models.Contract{
		Name:        name,
		Description: input.Description,
		FilePath:    handle,
		FileHash:    hash,
	}

	fields, err := ExtractFormFields(content)
	if err != nil {
		logger.WithContext(ctx).Warn("Could not extract PDF fields", "filename", input.Filename, "error", err)
		fields = nil
	}
	if err := contract.SetFields(fields); err != nil {
		s.discard(ctx, handle)
		return nil, err
	}

	if err := s.repo.Create(ctx, contract); err != nil {
		s.discard(ctx, handle)
		return nil, fmt.Errorf("failed to save contract: %w", err)
	}

	logger.WithContext(ctx).Info("Contract registered", "contract_id", contract.ID, "file_hash", hash, "fields", len(fields))
	return contract, nil
}

// FindByID gets a contract by ID
func (s *ContractService) FindByID(ctx context.Context, id string) (*models.Contract, error) {
	contract, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return contract, nil
}

// List returns contracts newest first
func (s *ContractService) List(ctx context.Context, query *repository.ListQuery) ([]models.Contract, int64, error) {
	return s.repo.List(ctx, query)
}

// OpenDocument streams the stored original
func (s *ContractService) OpenDocument(ctx context.Context, id string) (*models.Contract, io.ReadCloser, error) {
	contract, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.openHandle(ctx, contract.FilePath)
	if err != nil {
		return nil, nil, err
	}
	return contract, rc, nil
}

func (s *ContractService) openHandle(ctx context.Context, handle string) (io.ReadCloser, error) {
	rc, err := s.store.Open(ctx, handle)
	if errors.Is(err, storage.ErrNotExist) {
		return nil, ErrNotFound
	}
	return rc, err
}

func (s *ContractService) discard(ctx context.Context, handle string) {
	if err := s.store.Delete(ctx, handle); err != nil {
		logger.WithContext(ctx).Error("Failed to remove stored document", "handle", handle, "error", err)
	}
}

func isPDF(filename, contentType string) bool {
	if storage.IsValidContentType(contentType) {
		return true
	}
	return strings.EqualFold(filepath.Ext(filename), ".pdf")
}
