package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SignatureRequest binds one signer to one contract
type SignatureRequest struct {
	ID          string  `gorm:"primaryKey;size:36" json:"id"`
	ContractID  string  `gorm:"size:36;not null;index" json:"contract_id"`
	SignerName  string  `gorm:"not null" json:"signer_name"`
	SignerEmail string  `gorm:"not null;index" json:"signer_email"`
	SignerPhone *string `json:"signer_phone"`
	Status      string  `gorm:"size:20;default:pending;not null;index" json:"status"`

	// Token is the signer's bearer credential: generated once, never rotated
	Token          string     `gorm:"size:64;not null;uniqueIndex" json:"token"`
	TokenExpiresAt *time.Time `json:"token_expires_at,omitempty"`

	// OTPVerifiedAt is set in the same transaction that consumes an OTP
	OTPVerifiedAt *time.Time `json:"otp_verified_at"`

	SignedAt            *time.Time `json:"signed_at"`
	SignedFilePath      *string    `json:"signed_file_path"`
	SignedFileHash      *string    `gorm:"size:64;index" json:"signed_file_hash"`
	EvidenceFilePath    *string    `json:"evidence_file_path,omitempty"`
	CertificateFilePath *string    `json:"certificate_file_path,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Associations
	Contract *Contract `gorm:"foreignKey:ContractID" json:"contract,omitempty"`
}

// TableName specifies the table name for SignatureRequest
func (SignatureRequest) TableName() string {
	return "signature_requests"
}

// Signature request status constants
const (
	SignatureStatusPending  = "pending"
	SignatureStatusOTPSent  = "otp_sent"
	SignatureStatusSigned   = "signed"
	SignatureStatusRejected = "rejected"
)

// BeforeCreate assigns the identifier when the caller did not
func (r *SignatureRequest) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Status == "" {
		r.Status = SignatureStatusPending
	}
	return nil
}

// MaySendOTP returns true if an OTP may be issued (first send or re-send)
func (r *SignatureRequest) MaySendOTP() bool {
	return r.Status == SignatureStatusPending || r.Status == SignatureStatusOTPSent
}

// MayVerifyOTP returns true if a submitted code can be checked
func (r *SignatureRequest) MayVerifyOTP() bool {
	return r.Status == SignatureStatusOTPSent
}

// MaySign returns true if the signer has proven possession of an OTP
func (r *SignatureRequest) MaySign() bool {
	return r.Status == SignatureStatusOTPSent && r.OTPVerifiedAt != nil
}

// MayReject returns true if the request has not reached a terminal state
func (r *SignatureRequest) MayReject() bool {
	return r.Status == SignatureStatusPending || r.Status == SignatureStatusOTPSent
}

// IsSigned returns true once the request reached its success state
func (r *SignatureRequest) IsSigned() bool {
	return r.Status == SignatureStatusSigned
}

// TokenExpired reports whether the signer token is no longer usable
func (r *SignatureRequest) TokenExpired(now time.Time) bool {
	return r.TokenExpiresAt != nil && now.After(*r.TokenExpiresAt)
}

// SignedArtifact holds the columns written when a request is signed
type SignedArtifact struct {
	SignedAt            time.Time
	SignedFilePath      string
	SignedFileHash      string
	EvidenceFilePath    string
	CertificateFilePath string
}

// SignatureEvidence is the side record stored next to a signed artifact
type SignatureEvidence struct {
	RequestID        string                 `json:"request_id"`
	ContractID       string                 `json:"contract_id"`
	SignerName       string                 `json:"signer_name"`
	SignerEmail      string                 `json:"signer_email"`
	SignerPhone      *string                `json:"signer_phone,omitempty"`
	FormData         map[string]interface{} `json:"form_data"`
	SignedAt         time.Time              `json:"signed_at"`
	OTPVerifiedAt    time.Time              `json:"otp_verified_at"`
	IPAddress        *string                `json:"ip_address"`
	UserAgent        *string                `json:"user_agent"`
	OriginalFileHash string                 `json:"original_file_hash"`
}
