package repository

import (
	"context"
	"time"

	"github.com/sjperalta/firma-api/internal/models"
	"gorm.io/gorm"
)

// SignatureRequestRepository defines the interface for signature request data access.
// Status changes go through conditional updates only: each reports whether a row matched.
type SignatureRequestRepository interface {
	FindByID(ctx context.Context, id string) (*models.SignatureRequest, error)
	FindByToken(ctx context.Context, token string) (*models.SignatureRequest, error)
	FindBySignedFileHash(ctx context.Context, hash string) (*models.SignatureRequest, error)
	Create(ctx context.Context, request *models.SignatureRequest) error
	List(ctx context.Context, query *ListQuery) ([]models.SignatureRequest, int64, error)
	ListSigned(ctx context.Context, query *ListQuery) ([]models.SignatureRequest, error)
	AdvanceStatus(ctx context.Context, id string, from []string, to string) (bool, error)
	MarkOTPVerified(ctx context.Context, id string, at time.Time) (bool, error)
	CompleteSigning(ctx context.Context, id string, artifact models.SignedArtifact) (bool, error)
	Stats(ctx context.Context) (*SignatureRequestStats, error)
}

// SignatureRequestStats holds counts per status
type SignatureRequestStats struct {
	Total    int64
	Pending  int64
	OTPSent  int64
	Signed   int64
	Rejected int64
}

type signatureRequestRepository struct {
	db *gorm.DB
}

// NewSignatureRequestRepository creates a new signature request repository
func NewSignatureRequestRepository(db *gorm.DB) SignatureRequestRepository {
	return &signatureRequestRepository{db: db}
}

func (r *signatureRequestRepository) FindByID(ctx context.Context, id string) (*models.SignatureRequest, error) {
	var request models.SignatureRequest
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *signatureRequestRepository) FindByToken(ctx context.Context, token string) (*models.SignatureRequest, error) {
	var request models.SignatureRequest
	err := r.db.WithContext(ctx).
		Joins("Contract").
		Where("signature_requests.token = ?", token).
		First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *signatureRequestRepository) FindBySignedFileHash(ctx context.Context, hash string) (*models.SignatureRequest, error) {
	var request models.SignatureRequest
	err := r.db.WithContext(ctx).
		Where("signed_file_hash = ? AND status = ?", hash, models.SignatureStatusSigned).
		First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *signatureRequestRepository) Create(ctx context.Context, request *models.SignatureRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *signatureRequestRepository) List(ctx context.Context, query *ListQuery) ([]models.SignatureRequest, int64, error) {
	var requests []models.SignatureRequest
	var total int64

	db := r.db.WithContext(ctx).Model(&models.SignatureRequest{})

	if query.Filters["status"] != "" {
		db = db.Where("status = ?", query.Filters["status"])
	}
	if query.Filters["contract_id"] != "" {
		db = db.Where("contract_id = ?", query.Filters["contract_id"])
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Order("created_at DESC").
		Offset(query.Offset()).
		Limit(query.PerPage).
		Find(&requests).Error

	return requests, total, err
}

func (r *signatureRequestRepository) ListSigned(ctx context.Context, query *ListQuery) ([]models.SignatureRequest, error) {
	var requests []models.SignatureRequest
	err := r.db.WithContext(ctx).
		Where("status = ?", models.SignatureStatusSigned).
		Order("signed_at ASC").
		Offset(query.Offset()).
		Limit(query.PerPage).
		Find(&requests).Error
	return requests, err
}

// AdvanceStatus moves the request to `to` only while its status is one of `from`
func (r *signatureRequestRepository) AdvanceStatus(ctx context.Context, id string, from []string, to string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.SignatureRequest{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// MarkOTPVerified records a successful verification while the request awaits its signature
func (r *signatureRequestRepository) MarkOTPVerified(ctx context.Context, id string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.SignatureRequest{}).
		Where("id = ? AND status = ?", id, models.SignatureStatusOTPSent).
		Updates(map[string]interface{}{
			"otp_verified_at": at,
			"updated_at":      time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// CompleteSigning is the otp_sent → signed transition. Of concurrent callers exactly one matches.
func (r *signatureRequestRepository) CompleteSigning(ctx context.Context, id string, artifact models.SignedArtifact) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.SignatureRequest{}).
		Where("id = ? AND status = ? AND otp_verified_at IS NOT NULL", id, models.SignatureStatusOTPSent).
		Updates(map[string]interface{}{
			"status":                models.SignatureStatusSigned,
			"signed_at":             artifact.SignedAt,
			"signed_file_path":      artifact.SignedFilePath,
			"signed_file_hash":      artifact.SignedFileHash,
			"evidence_file_path":    artifact.EvidenceFilePath,
			"certificate_file_path": artifact.CertificateFilePath,
			"updated_at":            time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *signatureRequestRepository) Stats(ctx context.Context) (*SignatureRequestStats, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.SignatureRequest{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	stats := &SignatureRequestStats{}
	for _, row := range rows {
		stats.Total += row.Count
		switch row.Status {
		case models.SignatureStatusPending:
			stats.Pending = row.Count
		case models.SignatureStatusOTPSent:
			stats.OTPSent = row.Count
		case models.SignatureStatusSigned:
			stats.Signed = row.Count
		case models.SignatureStatusRejected:
			stats.Rejected = row.Count
		}
	}
	return stats, nil
}
