package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OTP is a one-time code issued for a signature request. Records are kept for audit.
type OTP struct {
	ID        string     `gorm:"primaryKey;size:36" json:"id"`
	RequestID string     `gorm:"size:36;not null;index:idx_otps_request_used" json:"request_id"`
	Code      string     `gorm:"size:6;not null" json:"-"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	Used      bool       `gorm:"default:false;not null;index:idx_otps_request_used" json:"used"`
	UsedAt    *time.Time `json:"used_at"`
	CreatedAt time.Time  `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for OTP
func (OTP) TableName() string {
	return "otps"
}

// BeforeCreate assigns the identifier when the caller did not
func (o *OTP) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}

// IsExpired returns true when now is past the expiry instant
func (o *OTP) IsExpired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}
