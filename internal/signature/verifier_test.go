package signature

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testHeader = "x-docusign-signature-1"

func sign(key string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestVerifyAcceptsValidSignature(t *testing.T) {
	v := NewVerifier(testHeader, "secret-key", nil)
	body := []byte(`{"event":"envelope-completed","data":{"envelopeId":"abc"}}`)

	r := httptest.NewRequest("POST", "/webhook/docusign", bytes.NewReader(body))
	r.Header.Set(testHeader, sign("secret-key", body))

	assert.NoError(t, v.Verify(r, body))
}

func TestVerifyRejectsMissingHeader(t *testing.T) {
	v := NewVerifier(testHeader, "secret-key", nil)
	body := []byte(`{}`)

	r := httptest.NewRequest("POST", "/webhook/docusign", bytes.NewReader(body))

	err := v.Verify(r, body)
	require.Error(t, err)
	assert.True(t, IsMissing(err))
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	v := NewVerifier(testHeader, "secret-key", nil)
	body := []byte(`{"event":"envelope-completed"}`)

	r := httptest.NewRequest("POST", "/webhook/docusign", bytes.NewReader(body))
	r.Header.Set(testHeader, sign("other-key", body))

	err := v.Verify(r, body)
	require.Error(t, err)
	assert.False(t, IsMissing(err))
}

func TestVerifyRejectsMutatedBody(t *testing.T) {
	v := NewVerifier(testHeader, "secret-key", nil)
	body := []byte(`{"event":"envelope-completed","data":{"envelopeId":"abc"}}`)
	header := sign("secret-key", body)

	// Flipping any single byte of the body must flip acceptance.
	for i := range body {
		mutated := make([]byte, len(body))
		copy(mutated, body)
		mutated[i] ^= 0x01

		r := httptest.NewRequest("POST", "/webhook/docusign", bytes.NewReader(mutated))
		r.Header.Set(testHeader, header)

		assert.Error(t, v.Verify(r, mutated), "mutation at byte %d accepted", i)
	}
}

func TestVerifyRejectsMutatedHeader(t *testing.T) {
	v := NewVerifier(testHeader, "secret-key", nil)
	body := []byte(`{"event":"envelope-completed"}`)
	header := sign("secret-key", body)

	for i := 0; i < len(header); i++ {
		mutated := []byte(header)
		if mutated[i] == 'A' {
			mutated[i] = 'B'
		} else {
			mutated[i] = 'A'
		}

		r := httptest.NewRequest("POST", "/webhook/docusign", bytes.NewReader(body))
		r.Header.Set(testHeader, string(mutated))

		assert.Error(t, v.Verify(r, body), "mutation at byte %d accepted", i)
	}
}

func TestVerifyRejectsLengthMismatchCleanly(t *testing.T) {
	v := NewVerifier(testHeader, "secret-key", nil)
	body := []byte(`{"event":"envelope-completed"}`)

	// A header shorter or longer than the digest must be a plain rejection,
	// never a panic.
	for _, header := range []string{"x", sign("secret-key", body) + "extra", ""} {
		r := httptest.NewRequest("POST", "/webhook/docusign", bytes.NewReader(body))
		if header != "" {
			r.Header.Set(testHeader, header)
		}

		assert.NotPanics(t, func() {
			assert.Error(t, v.Verify(r, body))
		})
	}
}

func TestPreserveRequestBody(t *testing.T) {
	body := []byte("payload bytes")
	r := httptest.NewRequest("POST", "/webhook/docusign", bytes.NewReader(body))

	got, err := PreserveRequestBody(r)
	require.NoError(t, err)
	assert.Equal(t, body, got)

	// The body must still be readable afterwards.
	again, err := PreserveRequestBody(r)
	require.NoError(t, err)
	assert.Equal(t, body, again)
}
