package handlers

import (
	"bytes"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindNestedOrFlat(t *testing.T) {
	gin.SetMode(gin.TestMode)

	phone := "+50499990000"
	tests := []struct {
		name        string
		body        string
		expected    CreateSignatureRequestRequest
		expectError bool
	}{
		{
			name: "Nested under signature_request",
			body: `{"signature_request": {"contract_id": "c-1", "signer_name": "Ana Pérez", "signer_email": "ana@example.com", "signer_phone": "+50499990000", "send_via_email": true}}`,
			expected: CreateSignatureRequestRequest{
				ContractID:   "c-1",
				SignerName:   "Ana Pérez",
				SignerEmail:  "ana@example.com",
				SignerPhone:  &phone,
				SendViaEmail: true,
			},
		},
		{
			name: "Flat body",
			body: `{"contract_id": "c-2", "signer_name": "Luis Gómez", "signer_email": "luis@example.com"}`,
			expected: CreateSignatureRequestRequest{
				ContractID:  "c-2",
				SignerName:  "Luis Gómez",
				SignerEmail: "luis@example.com",
			},
		},
		{
			name: "Flat body with unrelated keys",
			body: `{"origin": "panel", "contract_id": "c-3", "signer_name": "Marta", "signer_email": "marta@example.com"}`,
			expected: CreateSignatureRequestRequest{
				ContractID:  "c-3",
				SignerName:  "Marta",
				SignerEmail: "marta@example.com",
			},
		},
		{
			name:        "Nested missing signer email",
			body:        `{"signature_request": {"contract_id": "c-1", "signer_name": "Ana"}}`,
			expectError: true,
		},
		{
			name:        "Flat missing contract",
			body:        `{"signer_name": "Ana", "signer_email": "ana@example.com"}`,
			expectError: true,
		},
		{
			name:        "Malformed email",
			body:        `{"contract_id": "c-1", "signer_name": "Ana", "signer_email": "ana"}`,
			expectError: true,
		},
		{
			name:        "Wrong field type",
			body:        `{"signature_request": {"contract_id": "c-1", "signer_name": "Ana", "signer_email": "ana@example.com", "send_via_email": "yes"}}`,
			expectError: true,
		},
		{
			name:        "Nested value is not an object",
			body:        `{"signature_request": "c-1"}`,
			expectError: true,
		},
		{
			name:        "Empty body",
			body:        ``,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest("POST", "/api/signature-requests", bytes.NewBufferString(tt.body))
			c.Request.Header.Set("Content-Type", "application/json")

			var result CreateSignatureRequestRequest
			err := BindNestedOrFlat(c, "signature_request", &result)

			if tt.expectError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, result)
			}

			// The body stays readable for later handlers
			rest, err := io.ReadAll(c.Request.Body)
			require.NoError(t, err)
			assert.Equal(t, tt.body, string(rest))
		})
	}
}
