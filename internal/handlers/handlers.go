package handlers

import (
	"github.com/sjperalta/firma-api/internal/services"
)

// Handlers holds all handler instances
type Handlers struct {
	Health           *HealthHandler
	Auth             *AuthHandler
	Contract         *ContractHandler
	SignatureRequest *SignatureRequestHandler
	Signing          *SigningHandler
	Audit            *AuditHandler
	Integrity        *IntegrityHandler
	Dashboard        *DashboardHandler
	Job              *JobHandler
}

// NewHandlers creates all handler instances
func NewHandlers(svcs *services.Services) *Handlers {
	return &Handlers{
		Health:           NewHealthHandler(),
		Auth:             NewAuthHandler(svcs.Auth),
		Contract:         NewContractHandler(svcs.Contract),
		SignatureRequest: NewSignatureRequestHandler(svcs.SignatureRequest),
		Signing:          NewSigningHandler(svcs.OTP, svcs.Signing),
		Audit:            NewAuditHandler(svcs.Audit, svcs.Export),
		Integrity:        NewIntegrityHandler(svcs.Integrity),
		Dashboard:        NewDashboardHandler(svcs.Dashboard),
		Job:              NewJobHandler(svcs.Job),
	}
}
