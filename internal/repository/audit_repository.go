package repository

import (
	"context"

	"github.com/sjperalta/firma-api/internal/models"
	"gorm.io/gorm"
)

// DefaultAuditLimit caps audit listings
const DefaultAuditLimit = 1000

// AuditRepository is append-only: there is no update or delete
type AuditRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	List(ctx context.Context, query *AuditQuery) ([]models.AuditLog, error)
}

// AuditQuery filters audit listings
type AuditQuery struct {
	RequestID string
	Limit     int
}

type auditRepository struct {
	db *gorm.DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// List returns entries newest first
func (r *auditRepository) List(ctx context.Context, query *AuditQuery) ([]models.AuditLog, error) {
	var entries []models.AuditLog

	limit := query.Limit
	if limit <= 0 || limit > DefaultAuditLimit {
		limit = DefaultAuditLimit
	}

	db := r.db.WithContext(ctx).Model(&models.AuditLog{})
	if query.RequestID != "" {
		db = db.Where("request_id = ?", query.RequestID)
	}

	err := db.Order("timestamp DESC").Limit(limit).Find(&entries).Error
	return entries, err
}
