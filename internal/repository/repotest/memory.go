// Package repotest provides in-memory implementations of the repository interfaces for tests.
package repotest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sjperalta/firma-api/internal/models"
	"github.com/sjperalta/firma-api/internal/repository"
	"gorm.io/gorm"
)

// DB is an in-memory stand-in for the database. Conditional updates check and
// write under one lock, like a guarded UPDATE. Transactions are serialized and
// rolled back through an undo journal.
type DB struct {
	mu   sync.Mutex
	txMu sync.Mutex

	contracts map[string]models.Contract
	requests  map[string]models.SignatureRequest
	otps      map[string]models.OTP
	otpOrder  []string
	audits    []models.AuditLog

	failAuditCreate bool
}

// NewDB returns an empty database
func NewDB() *DB {
	return &DB{
		contracts: map[string]models.Contract{},
		requests:  map[string]models.SignatureRequest{},
		otps:      map[string]models.OTP{},
	}
}

type memTx struct {
	undo []func()
}

func (tx *memTx) record(fn func()) {
	if tx != nil {
		tx.undo = append(tx.undo, fn)
	}
}

// Repositories returns repositories that write outside any transaction
func (db *DB) Repositories() *repository.Repositories {
	return db.reposFor(nil)
}

func (db *DB) reposFor(tx *memTx) *repository.Repositories {
	return &repository.Repositories{
		Contract:         &memContractRepo{db: db, tx: tx},
		SignatureRequest: &memSignatureRequestRepo{db: db, tx: tx},
		OTP:              &memOTPRepo{db: db, tx: tx},
		Audit:            &memAuditRepo{db: db, tx: tx},
		Tx:               &memTxManager{db: db},
	}
}

type memTxManager struct {
	db *DB
}

func (m *memTxManager) WithTx(ctx context.Context, fn func(repos *repository.Repositories) error) error {
	m.db.txMu.Lock()
	defer m.db.txMu.Unlock()

	tx := &memTx{}
	if err := fn(m.db.reposFor(tx)); err != nil {
		m.db.mu.Lock()
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
		m.db.mu.Unlock()
		return err
	}
	return nil
}

// AuditsFor returns a request's entries in insertion order
func (db *DB) AuditsFor(requestID string) []models.AuditLog {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []models.AuditLog
	for _, a := range db.audits {
		if a.RequestID == requestID {
			out = append(out, a)
		}
	}
	return out
}

// CountAction counts a request's entries with the given action
func (db *DB) CountAction(requestID, action string) int {
	n := 0
	for _, a := range db.AuditsFor(requestID) {
		if a.Action == action {
			n++
		}
	}
	return n
}

// Request returns the stored row, zero if absent
func (db *DB) Request(id string) models.SignatureRequest {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.requests[id]
}

// OTPsFor returns a request's codes in issue order
func (db *DB) OTPsFor(requestID string) []models.OTP {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []models.OTP
	for _, id := range db.otpOrder {
		if o := db.otps[id]; o.RequestID == requestID {
			out = append(out, o)
		}
	}
	return out
}

// PutRequest overwrites a row, bypassing guards
func (db *DB) PutRequest(r models.SignatureRequest) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.requests[r.ID] = r
}

// Contract returns the stored contract, zero if absent
func (db *DB) Contract(id string) models.Contract {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.contracts[id]
}

// SetFailAuditCreate makes every audit insert fail, to exercise rollbacks
func (db *DB) SetFailAuditCreate(fail bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.failAuditCreate = fail
}

// Contracts

type memContractRepo struct {
	db *DB
	tx *memTx
}

func (r *memContractRepo) FindByID(ctx context.Context, id string) (*models.Contract, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.contracts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &c, nil
}

func (r *memContractRepo) FindByFileHash(ctx context.Context, hash string) (*models.Contract, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, c := range r.db.contracts {
		if c.FileHash == hash {
			c := c
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memContractRepo) Create(ctx context.Context, contract *models.Contract) error {
	_ = contract.BeforeCreate(nil)
	if contract.CreatedAt.IsZero() {
		contract.CreatedAt = time.Now().UTC()
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.contracts[contract.ID] = *contract
	id := contract.ID
	r.tx.record(func() { delete(r.db.contracts, id) })
	return nil
}

func (r *memContractRepo) List(ctx context.Context, query *repository.ListQuery) ([]models.Contract, int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	all := make([]models.Contract, 0, len(r.db.contracts))
	for _, c := range r.db.contracts {
		all = append(all, c)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return paginate(all, query), int64(len(all)), nil
}

func (r *memContractRepo) Count(ctx context.Context) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return int64(len(r.db.contracts)), nil
}

func paginate[T any](all []T, query *repository.ListQuery) []T {
	start := query.Offset()
	if start >= len(all) {
		return []T{}
	}
	end := start + query.PerPage
	if end > len(all) {
		end = len(all)
	}
	return all[start:end]
}

// Signature requests

type memSignatureRequestRepo struct {
	db *DB
	tx *memTx
}

func (r *memSignatureRequestRepo) FindByID(ctx context.Context, id string) (*models.SignatureRequest, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	req, ok := r.db.requests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &req, nil
}

func (r *memSignatureRequestRepo) FindByToken(ctx context.Context, token string) (*models.SignatureRequest, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, req := range r.db.requests {
		if req.Token == token {
			req := req
			if c, ok := r.db.contracts[req.ContractID]; ok {
				req.Contract = &c
			}
			return &req, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memSignatureRequestRepo) FindBySignedFileHash(ctx context.Context, hash string) (*models.SignatureRequest, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, req := range r.db.requests {
		if req.Status == models.SignatureStatusSigned && req.SignedFileHash != nil && *req.SignedFileHash == hash {
			req := req
			return &req, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memSignatureRequestRepo) Create(ctx context.Context, request *models.SignatureRequest) error {
	_ = request.BeforeCreate(nil)
	now := time.Now().UTC()
	request.CreatedAt, request.UpdatedAt = now, now
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.requests[request.ID] = *request
	id := request.ID
	r.tx.record(func() { delete(r.db.requests, id) })
	return nil
}

func (r *memSignatureRequestRepo) sorted(filter func(models.SignatureRequest) bool) []models.SignatureRequest {
	var all []models.SignatureRequest
	for _, req := range r.db.requests {
		if filter(req) {
			all = append(all, req)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return all
}

func (r *memSignatureRequestRepo) List(ctx context.Context, query *repository.ListQuery) ([]models.SignatureRequest, int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	all := r.sorted(func(req models.SignatureRequest) bool {
		if s := query.Filters["status"]; s != "" && req.Status != s {
			return false
		}
		if c := query.Filters["contract_id"]; c != "" && req.ContractID != c {
			return false
		}
		return true
	})
	return paginate(all, query), int64(len(all)), nil
}

func (r *memSignatureRequestRepo) ListSigned(ctx context.Context, query *repository.ListQuery) ([]models.SignatureRequest, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	all := r.sorted(func(req models.SignatureRequest) bool { return req.Status == models.SignatureStatusSigned })
	return paginate(all, query), nil
}

// update applies fn to the stored row when guard holds, journaling the previous row
func (r *memSignatureRequestRepo) update(id string, guard func(models.SignatureRequest) bool, fn func(*models.SignatureRequest)) bool {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	req, ok := r.db.requests[id]
	if !ok || !guard(req) {
		return false
	}
	previous := req
	fn(&req)
	req.UpdatedAt = time.Now().UTC()
	r.db.requests[id] = req
	r.tx.record(func() { r.db.requests[id] = previous })
	return true
}

func (r *memSignatureRequestRepo) AdvanceStatus(ctx context.Context, id string, from []string, to string) (bool, error) {
	return r.update(id, func(req models.SignatureRequest) bool {
		for _, s := range from {
			if req.Status == s {
				return true
			}
		}
		return false
	}, func(req *models.SignatureRequest) {
		req.Status = to
	}), nil
}

func (r *memSignatureRequestRepo) MarkOTPVerified(ctx context.Context, id string, at time.Time) (bool, error) {
	return r.update(id, func(req models.SignatureRequest) bool {
		return req.Status == models.SignatureStatusOTPSent
	}, func(req *models.SignatureRequest) {
		req.OTPVerifiedAt = &at
	}), nil
}

func (r *memSignatureRequestRepo) CompleteSigning(ctx context.Context, id string, artifact models.SignedArtifact) (bool, error) {
	return r.update(id, func(req models.SignatureRequest) bool {
		return req.Status == models.SignatureStatusOTPSent && req.OTPVerifiedAt != nil
	}, func(req *models.SignatureRequest) {
		a := artifact
		req.Status = models.SignatureStatusSigned
		req.SignedAt = &a.SignedAt
		req.SignedFilePath = &a.SignedFilePath
		req.SignedFileHash = &a.SignedFileHash
		req.EvidenceFilePath = &a.EvidenceFilePath
		req.CertificateFilePath = &a.CertificateFilePath
	}), nil
}

func (r *memSignatureRequestRepo) Stats(ctx context.Context) (*repository.SignatureRequestStats, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	stats := &repository.SignatureRequestStats{}
	for _, req := range r.db.requests {
		stats.Total++
		switch req.Status {
		case models.SignatureStatusPending:
			stats.Pending++
		case models.SignatureStatusOTPSent:
			stats.OTPSent++
		case models.SignatureStatusSigned:
			stats.Signed++
		case models.SignatureStatusRejected:
			stats.Rejected++
		}
	}
	return stats, nil
}

// OTPs

type memOTPRepo struct {
	db *DB
	tx *memTx
}

func (r *memOTPRepo) Create(ctx context.Context, otp *models.OTP) error {
	_ = otp.BeforeCreate(nil)
	otp.CreatedAt = time.Now().UTC()
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.otps[otp.ID] = *otp
	r.db.otpOrder = append(r.db.otpOrder, otp.ID)
	id := otp.ID
	r.tx.record(func() {
		delete(r.db.otps, id)
		for i, o := range r.db.otpOrder {
			if o == id {
				r.db.otpOrder = append(r.db.otpOrder[:i], r.db.otpOrder[i+1:]...)
				return
			}
		}
	})
	return nil
}

func (r *memOTPRepo) FindLatest(ctx context.Context, requestID string) (*models.OTP, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for i := len(r.db.otpOrder) - 1; i >= 0; i-- {
		otp := r.db.otps[r.db.otpOrder[i]]
		if otp.RequestID == requestID {
			return &otp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memOTPRepo) MarkUsed(ctx context.Context, id string, at time.Time) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	otp, ok := r.db.otps[id]
	if !ok || otp.Used {
		return false, nil
	}
	previous := otp
	otp.Used = true
	otp.UsedAt = &at
	r.db.otps[id] = otp
	r.tx.record(func() { r.db.otps[id] = previous })
	return true, nil
}

// Audit

type memAuditRepo struct {
	db *DB
	tx *memTx
}

func (r *memAuditRepo) Create(ctx context.Context, entry *models.AuditLog) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.failAuditCreate {
		return gorm.ErrInvalidDB
	}
	_ = entry.BeforeCreate(nil)
	r.db.audits = append(r.db.audits, *entry)
	id := entry.ID
	r.tx.record(func() {
		for i, a := range r.db.audits {
			if a.ID == id {
				r.db.audits = append(r.db.audits[:i], r.db.audits[i+1:]...)
				return
			}
		}
	})
	return nil
}

func (r *memAuditRepo) List(ctx context.Context, query *repository.AuditQuery) ([]models.AuditLog, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []models.AuditLog
	for i := len(r.db.audits) - 1; i >= 0; i-- {
		a := r.db.audits[i]
		if query.RequestID != "" && a.RequestID != query.RequestID {
			continue
		}
		out = append(out, a)
		if query.Limit > 0 && len(out) == query.Limit {
			break
		}
	}
	return out, nil
}
