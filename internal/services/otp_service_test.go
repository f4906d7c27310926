package services

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sjperalta/firma-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sixDigits = regexp.MustCompile(`^[0-9]{6}$`)

func TestGenerateOTP_Format(t *testing.T) {
	seen := map[string]bool{}
	leadingZero := false
	for i := 0; i < 2000; i++ {
		code, err := GenerateOTP()
		require.NoError(t, err)
		assert.Regexp(t, sixDigits, code)
		seen[code] = true
		if strings.HasPrefix(code, "0") {
			leadingZero = true
		}
	}
	// 2000 draws from a million values: collisions are rare, and ~10% start with 0
	assert.Greater(t, len(seen), 1950)
	assert.True(t, leadingZero, "codes below 100000 must be zero-padded")
}

func TestOTPService_Issue(t *testing.T) {
	env := newTestEnv(t)
	contract := env.createContract(t, samplePDF(t, "otp"))
	request := env.createRequest(t, contract.ID, nil)

	code := env.issue(t, request.ID)

	assert.Equal(t, models.SignatureStatusOTPSent, env.db.Request(request.ID).Status)
	assert.Equal(t, 1, env.db.CountAction(request.ID, models.AuditActionOTPSent))

	otps := env.db.OTPsFor(request.ID)
	require.Len(t, otps, 1)
	assert.False(t, otps[0].Used)
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), otps[0].ExpiresAt, 5*time.Second)

	// Delivered by email only; no phone on file
	emails := env.email.sent()
	require.Len(t, emails, 1)
	assert.Equal(t, "ana@example.com", emails[0].To)
	assert.Contains(t, emails[0].Body, code)
	assert.Empty(t, env.sms.sent())

	entries := env.db.AuditsFor(request.ID)
	last := entries[len(entries)-1]
	assert.Equal(t, models.AuditActionOTPSent, last.Action)
	assert.Equal(t, true, last.Details["email_sent"])
	assert.Equal(t, false, last.Details["sms_sent"])
}

func TestOTPService_IssueWithPhoneSendsSMS(t *testing.T) {
	env := newTestEnv(t)
	contract := env.createContract(t, samplePDF(t, "otp"))
	phone := "+50499990000"
	request := env.createRequest(t, contract.ID, &phone)

	code := env.issue(t, request.ID)

	messages := env.sms.sent()
	require.Len(t, messages, 1)
	assert.True(t, strings.HasPrefix(messages[0], phone+"|"))
	assert.Contains(t, messages[0], code)

	entries := env.db.AuditsFor(request.ID)
	assert.Equal(t, true, entries[len(entries)-1].Details["sms_sent"])
}

func TestOTPService_IssueSurvivesDeliveryFailure(t *testing.T) {
	env := newTestEnv(t)
	env.email.ok = false
	contract := env.createContract(t, samplePDF(t, "otp"))
	request := env.createRequest(t, contract.ID, nil)

	code := env.issue(t, request.ID)

	assert.Equal(t, models.SignatureStatusOTPSent, env.db.Request(request.ID).Status)
	entries := env.db.AuditsFor(request.ID)
	assert.Equal(t, false, entries[len(entries)-1].Details["email_sent"])

	// The undelivered code is still valid
	assert.NoError(t, env.otp.Verify(context.Background(), request.ID, code, ClientInfo{}))
}

func TestOTPService_IssueDoesNotWaitForSlowProvider(t *testing.T) {
	env := newTestEnv(t)
	env.email.delay = 500 * time.Millisecond
	env.notifier.timeout = 50 * time.Millisecond
	contract := env.createContract(t, samplePDF(t, "otp"))
	request := env.createRequest(t, contract.ID, nil)

	start := time.Now()
	env.issue(t, request.ID)
	assert.Less(t, time.Since(start), 400*time.Millisecond)

	assert.Equal(t, models.SignatureStatusOTPSent, env.db.Request(request.ID).Status)
	entries := env.db.AuditsFor(request.ID)
	assert.Equal(t, false, entries[len(entries)-1].Details["email_sent"])
}

func TestOTPService_IssueRejectsTerminalStates(t *testing.T) {
	env := newTestEnv(t)
	contract := env.createContract(t, samplePDF(t, "otp"))

	for _, status := range []string{models.SignatureStatusSigned, models.SignatureStatusRejected} {
		request := env.createRequest(t, contract.ID, nil)
		stored := env.db.Request(request.ID)
		stored.Status = status
		env.db.PutRequest(stored)

		err := env.otp.Issue(context.Background(), request.ID, ClientInfo{})
		assert.ErrorIs(t, err, ErrInvalidState)
		assert.Empty(t, env.db.OTPsFor(request.ID))
		assert.Equal(t, status, env.db.Request(request.ID).Status)
	}

	assert.ErrorIs(t, env.otp.Issue(context.Background(), "missing", ClientInfo{}), ErrNotFound)
}

func TestOTPService_ResendKeepsOTPSent(t *testing.T) {
	env := newTestEnv(t)
	contract := env.createContract(t, samplePDF(t, "otp"))
	request := env.createRequest(t, contract.ID, nil)

	first := env.issue(t, request.ID)
	second := env.issue(t, request.ID)

	assert.Equal(t, models.SignatureStatusOTPSent, env.db.Request(request.ID).Status)
	assert.Equal(t, 2, env.db.CountAction(request.ID, models.AuditActionOTPSent))

	// Only the newest code is valid
	if first != second {
		assert.ErrorIs(t, env.otp.Verify(context.Background(), request.ID, first, ClientInfo{}), ErrInvalidCode)
	}
	assert.NoError(t, env.otp.Verify(context.Background(), request.ID, second, ClientInfo{}))
}

func TestOTPService_SupersededCodeStaysInvalid(t *testing.T) {
	env := newTestEnv(t)
	contract := env.createContract(t, samplePDF(t, "otp"))
	request := env.createRequest(t, contract.ID, nil)

	first := env.issue(t, request.ID)
	second := env.issue(t, request.ID)
	if first == second {
		t.Skip("both draws produced the same code")
	}

	require.NoError(t, env.otp.Verify(context.Background(), request.ID, second, ClientInfo{}))

	// Consuming the newest code does not bring the older one back
	assert.ErrorIs(t, env.otp.Verify(context.Background(), request.ID, first, ClientInfo{}), ErrInvalidCode)
	otps := env.db.OTPsFor(request.ID)
	require.Len(t, otps, 2)
	for _, otp := range otps {
		assert.Equal(t, otp.Code == second, otp.Used)
	}
}

func TestOTPService_VerifyWrongCode(t *testing.T) {
	env := newTestEnv(t)
	contract := env.createContract(t, samplePDF(t, "otp"))
	request := env.createRequest(t, contract.ID, nil)
	code := env.issue(t, request.ID)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	err := env.otp.Verify(context.Background(), request.ID, wrong, ClientInfo{IPAddress: "10.0.0.1"})
	assert.ErrorIs(t, err, ErrInvalidCode)

	entries := env.db.AuditsFor(request.ID)
	last := entries[len(entries)-1]
	assert.Equal(t, models.AuditActionOTPVerificationFailed, last.Action)
	assert.Equal(t, models.AuditReasonInvalidOTP, last.Details["reason"])
	require.NotNil(t, last.IPAddress)
	assert.Equal(t, "10.0.0.1", *last.IPAddress)

	// No normalization: surrounding spaces make it a different code
	assert.ErrorIs(t, env.otp.Verify(context.Background(), request.ID, " "+code, ClientInfo{}), ErrInvalidCode)

	assert.False(t, env.db.OTPsFor(request.ID)[0].Used)
	assert.Nil(t, env.db.Request(request.ID).OTPVerifiedAt)
}

func TestOTPService_VerifyUnknownRequestLooksLikeWrongCode(t *testing.T) {
	env := newTestEnv(t)

	err := env.otp.Verify(context.Background(), "no-such-request", "123456", ClientInfo{})
	assert.ErrorIs(t, err, ErrInvalidCode)

	entries := env.db.AuditsFor("no-such-request")
	require.Len(t, entries, 1)
	assert.Equal(t, models.AuditReasonInvalidOTP, entries[0].Details["reason"])
}

func TestOTPService_VerifyExpired(t *testing.T) {
	env := newTestEnv(t)
	contract := env.createContract(t, samplePDF(t, "otp"))
	request := env.createRequest(t, contract.ID, nil)
	code := env.issue(t, request.ID)

	env.clock.Advance(env.otpTTL + time.Second)

	err := env.otp.Verify(context.Background(), request.ID, code, ClientInfo{})
	assert.ErrorIs(t, err, ErrExpiredCode)

	entries := env.db.AuditsFor(request.ID)
	assert.Equal(t, models.AuditReasonExpiredOTP, entries[len(entries)-1].Details["reason"])

	// Not implicitly consumed: a retry is still expired, not invalid
	assert.False(t, env.db.OTPsFor(request.ID)[0].Used)
	assert.ErrorIs(t, env.otp.Verify(context.Background(), request.ID, code, ClientInfo{}), ErrExpiredCode)

	// A fresh issue recovers
	fresh := env.issue(t, request.ID)
	assert.NoError(t, env.otp.Verify(context.Background(), request.ID, fresh, ClientInfo{}))
}

func TestOTPService_VerifySuccessConsumesCode(t *testing.T) {
	env := newTestEnv(t)
	contract := env.createContract(t, samplePDF(t, "otp"))
	request := env.createRequest(t, contract.ID, nil)
	code := env.issue(t, request.ID)

	require.NoError(t, env.otp.Verify(context.Background(), request.ID, code, ClientInfo{}))

	otp := env.db.OTPsFor(request.ID)[0]
	assert.True(t, otp.Used)
	assert.NotNil(t, otp.UsedAt)
	assert.NotNil(t, env.db.Request(request.ID).OTPVerifiedAt)

	entries := env.db.AuditsFor(request.ID)
	last := entries[len(entries)-1]
	assert.Equal(t, models.AuditActionOTPVerified, last.Action)
	assert.Equal(t, otp.ID, last.Details["otp_id"])

	// Second use of the same code fails
	assert.ErrorIs(t, env.otp.Verify(context.Background(), request.ID, code, ClientInfo{}), ErrInvalidCode)
}

func TestOTPService_VerifyRollsBackWhenAuditFails(t *testing.T) {
	env := newTestEnv(t)
	contract := env.createContract(t, samplePDF(t, "otp"))
	request := env.createRequest(t, contract.ID, nil)
	code := env.issue(t, request.ID)

	env.db.SetFailAuditCreate(true)
	err := env.otp.Verify(context.Background(), request.ID, code, ClientInfo{})
	require.Error(t, err)

	// Neither the consumption nor the verified marker survive without their audit entry
	assert.False(t, env.db.OTPsFor(request.ID)[0].Used)
	assert.Nil(t, env.db.Request(request.ID).OTPVerifiedAt)

	env.db.SetFailAuditCreate(false)
	assert.NoError(t, env.otp.Verify(context.Background(), request.ID, code, ClientInfo{}))
}

func TestOTPService_ConcurrentVerifySucceedsOnce(t *testing.T) {
	env := newTestEnv(t)
	contract := env.createContract(t, samplePDF(t, "otp"))
	request := env.createRequest(t, contract.ID, nil)
	code := env.issue(t, request.ID)

	const n = 20
	var wg sync.WaitGroup
	errs := make([]error, n)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			errs[i] = env.otp.Verify(context.Background(), request.ID, code, ClientInfo{})
		}(i)
	}
	close(start)
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		assert.ErrorIs(t, err, ErrInvalidCode)
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, env.db.CountAction(request.ID, models.AuditActionOTPVerified))
	assert.Equal(t, n-1, env.db.CountAction(request.ID, models.AuditActionOTPVerificationFailed))
}
