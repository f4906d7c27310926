package models

// DashboardStats aggregates counts over contracts and signature requests
type DashboardStats struct {
	TotalContracts   int64 `json:"total_contracts"`
	TotalRequests    int64 `json:"total_requests"`
	PendingRequests  int64 `json:"pending_requests"`
	OTPSentRequests  int64 `json:"otp_sent_requests"`
	SignedRequests   int64 `json:"signed_requests"`
	RejectedRequests int64 `json:"rejected_requests"`
}

// IntegrityResult is the outcome of a hash lookup
type IntegrityResult struct {
	Valid         bool   `json:"valid"`
	Message       string `json:"message"`
	FoundInSystem bool   `json:"found_in_system"`
	Source        string `json:"source"`
}

// Integrity sources
const (
	IntegritySourceOriginal = "original"
	IntegritySourceSigned   = "signed"
)
