package services

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/sjperalta/firma-api/internal/jobs"
	"github.com/sjperalta/firma-api/internal/models"
	"github.com/sjperalta/firma-api/internal/repository/repotest"
	"github.com/sjperalta/firma-api/internal/storage"
	"github.com/sjperalta/firma-api/pkg/logger"
	"github.com/stretchr/testify/require"
)

type sentEmail struct {
	To      string
	Subject string
	Body    string
}

type fakeEmailSender struct {
	mu     sync.Mutex
	ok     bool
	delay  time.Duration
	emails []sentEmail
}

func (f *fakeEmailSender) SendEmail(ctx context.Context, to, subject, htmlBody string) bool {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emails = append(f.emails, sentEmail{To: to, Subject: subject, Body: htmlBody})
	return f.ok
}

func (f *fakeEmailSender) sent() []sentEmail {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentEmail(nil), f.emails...)
}

type fakeSMSSender struct {
	mu       sync.Mutex
	ok       bool
	messages []string
}

func (f *fakeSMSSender) SendSMS(ctx context.Context, phone, text string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, phone+"|"+text)
	return f.ok
}

func (f *fakeSMSSender) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.messages...)
}

// testEnv wires the signing workflow over the in-memory database and a temp directory store
type testEnv struct {
	db         *repotest.DB
	store      *storage.LocalStorage
	storeDir   string
	worker     *jobs.Worker
	email      *fakeEmailSender
	sms        *fakeSMSSender
	notifier   *NotificationService
	audit      *AuditService
	contracts  *ContractService
	requests   *SignatureRequestService
	otp        *OTPService
	signing    *SigningService
	integrity  *IntegrityService
	dashboard  *DashboardService
	otpTTL     time.Duration
	clock      *testClock
	lastIssued string
}

type testClock struct {
	mu     sync.Mutex
	offset time.Duration
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Now().Add(c.offset)
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offset += d
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger.Setup("test")

	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)

	worker := jobs.NewWorker(2)
	t.Cleanup(worker.Shutdown)

	db := repotest.NewDB()
	repos := db.Repositories()

	env := &testEnv{
		db:       db,
		store:    store,
		storeDir: dir,
		worker:   worker,
		email:    &fakeEmailSender{ok: true},
		sms:      &fakeSMSSender{ok: true},
		otpTTL:   10 * time.Minute,
		clock:    &testClock{},
	}

	env.notifier = NewNotificationService(env.email, env.sms, worker, time.Second, "Academia Jotuns", "https://firma.example.com")
	env.audit = NewAuditService(repos.Audit)
	env.contracts = NewContractService(repos.Contract, store)
	env.requests = NewSignatureRequestService(repos, env.contracts, env.notifier, env.audit, worker, 0)
	env.otp = NewOTPService(repos, env.notifier, env.audit, env.otpTTL)
	env.signing = NewSigningService(repos, store, env.notifier, env.audit, worker, "Academia Jotuns")
	env.integrity = NewIntegrityService(repos.Contract, repos.SignatureRequest, store)
	env.dashboard = NewDashboardService(repos.Contract, repos.SignatureRequest)

	env.requests.now = env.clock.Now
	env.otp.now = env.clock.Now
	env.signing.now = env.clock.Now

	return env
}

// samplePDF renders a small valid PDF containing text
func samplePDF(t *testing.T, text string) []byte {
	t.Helper()
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "", 12)
	pdf.Cell(40, 10, text)
	var buf bytes.Buffer
	require.NoError(t, pdf.Output(&buf))
	return buf.Bytes()
}

func (e *testEnv) createContract(t *testing.T, content []byte) *models.Contract {
	t.Helper()
	contract, err := e.contracts.Create(context.Background(), CreateContractInput{
		Name:        "Contrato de Servicios",
		Filename:    "contrato.pdf",
		ContentType: "application/pdf",
		Content:     bytes.NewReader(content),
	})
	require.NoError(t, err)
	return contract
}

func (e *testEnv) createRequest(t *testing.T, contractID string, phone *string) *models.SignatureRequest {
	t.Helper()
	request, err := e.requests.Create(context.Background(), CreateSignatureRequestInput{
		ContractID:  contractID,
		SignerName:  "Ana Pérez",
		SignerEmail: "ana@example.com",
		SignerPhone: phone,
	}, ClientInfo{})
	require.NoError(t, err)
	return request
}

// issue sends an OTP and returns the stored code
func (e *testEnv) issue(t *testing.T, requestID string) string {
	t.Helper()
	require.NoError(t, e.otp.Issue(context.Background(), requestID, ClientInfo{}))
	otps := e.db.OTPsFor(requestID)
	require.NotEmpty(t, otps)
	e.lastIssued = otps[len(otps)-1].Code
	return e.lastIssued
}

// verifiedRequest returns a request that may be signed
func (e *testEnv) verifiedRequest(t *testing.T) (*models.Contract, *models.SignatureRequest) {
	t.Helper()
	contract := e.createContract(t, samplePDF(t, "contrato"))
	request := e.createRequest(t, contract.ID, nil)
	code := e.issue(t, request.ID)
	require.NoError(t, e.otp.Verify(context.Background(), request.ID, code, ClientInfo{}))
	return contract, request
}
