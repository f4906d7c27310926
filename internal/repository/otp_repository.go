package repository

import (
	"context"
	"time"

	"github.com/sjperalta/firma-api/internal/models"
	"gorm.io/gorm"
)

// OTPRepository defines the interface for OTP data access. Records are never deleted.
type OTPRepository interface {
	Create(ctx context.Context, otp *models.OTP) error
	FindLatest(ctx context.Context, requestID string) (*models.OTP, error)
	MarkUsed(ctx context.Context, id string, at time.Time) (bool, error)
}

type otpRepository struct {
	db *gorm.DB
}

// NewOTPRepository creates a new OTP repository
func NewOTPRepository(db *gorm.DB) OTPRepository {
	return &otpRepository{db: db}
}

func (r *otpRepository) Create(ctx context.Context, otp *models.OTP) error {
	return r.db.WithContext(ctx).Create(otp).Error
}

// FindLatest returns the most recently issued record, used or not. Every older record is superseded.
func (r *otpRepository) FindLatest(ctx context.Context, requestID string) (*models.OTP, error) {
	var otp models.OTP
	err := r.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("created_at DESC").
		First(&otp).Error
	if err != nil {
		return nil, err
	}
	return &otp, nil
}

// MarkUsed consumes the record. False means another caller consumed it first.
func (r *otpRepository) MarkUsed(ctx context.Context, id string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.OTP{}).
		Where("id = ? AND used = ?", id, false).
		Updates(map[string]interface{}{
			"used":    true,
			"used_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
