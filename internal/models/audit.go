package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditLog is an append-only record of a state-changing action on a signature request
type AuditLog struct {
	ID        string            `gorm:"primaryKey;size:36" json:"id"`
	RequestID string            `gorm:"size:36;not null;index" json:"request_id"`
	Action    string            `gorm:"size:64;not null;index" json:"action"`
	Details   datatypes.JSONMap `gorm:"type:jsonb" json:"details" swaggertype:"object"`
	Timestamp time.Time         `gorm:"not null;index" json:"timestamp"`
	IPAddress *string           `gorm:"size:45" json:"ip_address"`
	UserAgent *string           `gorm:"size:255" json:"user_agent"`
}

// TableName specifies the table name for AuditLog
func (AuditLog) TableName() string {
	return "audit_logs"
}

// Audit actions
const (
	AuditActionRequestCreated        = "signature_request_created"
	AuditActionInvitationSent        = "invitation_sent"
	AuditActionOTPSent               = "otp_sent"
	AuditActionOTPVerified           = "otp_verified"
	AuditActionOTPVerificationFailed = "otp_verification_failed"
	AuditActionContractSigned        = "contract_signed"
	AuditActionConfirmationSent      = "signature_confirmation_sent"
	AuditActionRequestRejected       = "signature_request_rejected"
)

// Reasons recorded on otp_verification_failed entries
const (
	AuditReasonInvalidOTP = "invalid_otp"
	AuditReasonExpiredOTP = "expired_otp"
)

// BeforeCreate assigns the identifier and server timestamp
func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now().UTC()
	}
	if a.Details == nil {
		a.Details = datatypes.JSONMap{}
	}
	return nil
}
