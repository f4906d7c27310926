package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repositories holds all repository instances
type Repositories struct {
	Contract         ContractRepository
	SignatureRequest SignatureRequestRepository
	OTP              OTPRepository
	Audit            AuditRepository
	Tx               TxManager
}

// NewRepositories creates all repository instances
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Contract:         NewContractRepository(db),
		SignatureRequest: NewSignatureRequestRepository(db),
		OTP:              NewOTPRepository(db),
		Audit:            NewAuditRepository(db),
		Tx:               &gormTxManager{db: db},
	}
}

// TxManager runs fn with repositories bound to a single database transaction.
// Returning an error from fn rolls the transaction back.
type TxManager interface {
	WithTx(ctx context.Context, fn func(repos *Repositories) error) error
}

type gormTxManager struct {
	db *gorm.DB
}

func (m *gormTxManager) WithTx(ctx context.Context, fn func(repos *Repositories) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}

// ListQuery represents common query parameters
type ListQuery struct {
	Page    int
	PerPage int
	Filters map[string]string
}

// NewListQuery creates a ListQuery with defaults
func NewListQuery() *ListQuery {
	return &ListQuery{
		Page:    1,
		PerPage: 20,
		Filters: make(map[string]string),
	}
}

// Offset returns the row offset for the current page
func (q *ListQuery) Offset() int {
	if q.Page < 1 {
		return 0
	}
	return (q.Page - 1) * q.PerPage
}
