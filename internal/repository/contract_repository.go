package repository

import (
	"context"

	"github.com/sjperalta/firma-api/internal/models"
	"gorm.io/gorm"
)

// ContractRepository defines the interface for contract data access
type ContractRepository interface {
	FindByID(ctx context.Context, id string) (*models.Contract, error)
	FindByFileHash(ctx context.Context, hash string) (*models.Contract, error)
	Create(ctx context.Context, contract *models.Contract) error
	List(ctx context.Context, query *ListQuery) ([]models.Contract, int64, error)
	Count(ctx context.Context) (int64, error)
}

type contractRepository struct {
	db *gorm.DB
}

// NewContractRepository creates a new contract repository
func NewContractRepository(db *gorm.DB) ContractRepository {
	return &contractRepository{db: db}
}

func (r *contractRepository) FindByID(ctx context.Context, id string) (*models.Contract, error) {
	var contract models.Contract
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&contract).Error
	if err != nil {
		return nil, err
	}
	return &contract, nil
}

func (r *contractRepository) FindByFileHash(ctx context.Context, hash string) (*models.Contract, error) {
	var contract models.Contract
	err := r.db.WithContext(ctx).
		Where("file_hash = ?", hash).
		Order("created_at ASC").
		First(&contract).Error
	if err != nil {
		return nil, err
	}
	return &contract, nil
}

func (r *contractRepository) Create(ctx context.Context, contract *models.Contract) error {
	return r.db.WithContext(ctx).Create(contract).Error
}

func (r *contractRepository) List(ctx context.Context, query *ListQuery) ([]models.Contract, int64, error) {
	var contracts []models.Contract
	var total int64

	db := r.db.WithContext(ctx).Model(&models.Contract{})

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Order("created_at DESC").
		Offset(query.Offset()).
		Limit(query.PerPage).
		Find(&contracts).Error

	return contracts, total, err
}

func (r *contractRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Contract{}).Count(&count).Error
	return count, err
}
