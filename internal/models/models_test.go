package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestSignatureRequest_Guards(t *testing.T) {
	verified := time.Now()

	tests := []struct {
		name      string
		request   SignatureRequest
		sendOTP   bool
		verifyOTP bool
		sign      bool
		reject    bool
	}{
		{"pending", SignatureRequest{Status: SignatureStatusPending}, true, false, false, true},
		{"otp sent", SignatureRequest{Status: SignatureStatusOTPSent}, true, true, false, true},
		{"otp verified", SignatureRequest{Status: SignatureStatusOTPSent, OTPVerifiedAt: &verified}, true, true, true, true},
		{"signed", SignatureRequest{Status: SignatureStatusSigned, OTPVerifiedAt: &verified}, false, false, false, false},
		{"rejected", SignatureRequest{Status: SignatureStatusRejected}, false, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.sendOTP, tt.request.MaySendOTP())
			assert.Equal(t, tt.verifyOTP, tt.request.MayVerifyOTP())
			assert.Equal(t, tt.sign, tt.request.MaySign())
			assert.Equal(t, tt.reject, tt.request.MayReject())
		})
	}
}

func TestSignatureRequest_TokenExpired(t *testing.T) {
	now := time.Now()
	r := SignatureRequest{}
	assert.False(t, r.TokenExpired(now.Add(24*365*time.Hour)), "no expiry means never")

	expires := now.Add(time.Hour)
	r.TokenExpiresAt = &expires
	assert.False(t, r.TokenExpired(now))
	assert.False(t, r.TokenExpired(expires))
	assert.True(t, r.TokenExpired(expires.Add(time.Nanosecond)))
}

func TestOTP_IsExpired(t *testing.T) {
	now := time.Now()
	otp := OTP{ExpiresAt: now.Add(10 * time.Minute)}
	assert.False(t, otp.IsExpired(now))
	assert.False(t, otp.IsExpired(otp.ExpiresAt))
	assert.True(t, otp.IsExpired(otp.ExpiresAt.Add(time.Millisecond)))
}

func TestBeforeCreateDefaults(t *testing.T) {
	contract := &Contract{}
	require.NoError(t, contract.BeforeCreate(nil))
	assert.Len(t, contract.ID, 36)
	assert.Equal(t, datatypes.JSON("[]"), contract.Fields)

	request := &SignatureRequest{}
	require.NoError(t, request.BeforeCreate(nil))
	assert.Len(t, request.ID, 36)
	assert.Equal(t, SignatureStatusPending, request.Status)

	kept := &SignatureRequest{ID: "fixed", Status: SignatureStatusOTPSent}
	require.NoError(t, kept.BeforeCreate(nil))
	assert.Equal(t, "fixed", kept.ID)
	assert.Equal(t, SignatureStatusOTPSent, kept.Status)

	entry := &AuditLog{}
	require.NoError(t, entry.BeforeCreate(nil))
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.Timestamp.IsZero())
	assert.NotNil(t, entry.Details)
}

func TestContract_Fields(t *testing.T) {
	c := &Contract{}
	assert.Equal(t, []ContractField{}, c.FieldList())

	fields := []ContractField{{Name: "nombre", Type: "text"}, {Name: "dni", Type: "text"}, {Name: "ciudad", Type: "text"}}
	require.NoError(t, c.SetFields(fields))
	assert.Equal(t, fields, c.FieldList())

	require.NoError(t, c.SetFields(nil))
	assert.JSONEq(t, `[]`, string(c.Fields))

	c.Fields = datatypes.JSON(`{"not":"a list"}`)
	assert.Equal(t, []ContractField{}, c.FieldList())
}

func TestOTP_CodeNeverSerialized(t *testing.T) {
	raw, err := json.Marshal(OTP{ID: "o1", Code: "123456"})
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "123456")
}
