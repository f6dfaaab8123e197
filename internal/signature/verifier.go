// Package signature verifies the authenticity of inbound Connect
// notifications. The e-signature provider signs each delivery with
// HMAC-SHA256 over the raw request body using a pre-shared key and sends the
// base64 digest in a request header.
//
// Verification must run against the exact raw bytes received, before any
// JSON parsing: re-serializing a parsed payload can change the byte sequence
// and invalidate the digest.
package signature

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"net/http"

	"esign-gateway/internal/common/logging"
)

// Verifier checks webhook deliveries against the pre-shared HMAC key.
type Verifier struct {
	header string
	secret []byte
	logger logging.Logger
}

// NewVerifier creates a verifier for the given signature header and shared
// secret.
func NewVerifier(header, secret string, logger logging.Logger) *Verifier {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	return &Verifier{
		header: header,
		secret: []byte(secret),
		logger: logger,
	}
}

// Verify checks that the signature header matches the HMAC-SHA256 digest of
// the raw body. The comparison uses hmac.Equal, which runs in constant time
// and treats a length mismatch as a plain mismatch, so a forged header can
// never be probed byte by byte or crash the handler.
//
// A missing header and a mismatched signature are distinct failures; use
// IsMissing to tell them apart.
func (v *Verifier) Verify(r *http.Request, body []byte) error {
	headerValue := r.Header.Get(v.header)
	if headerValue == "" {
		v.logger.Warn("Webhook delivery without signature header",
			logging.String("header", v.header),
		)
		return NewMissingSignatureError(v.header)
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(headerValue), []byte(expected)) {
		v.logger.Warn("Webhook signature mismatch",
			logging.String("header", v.header),
		)
		return NewVerificationError(v.header, "signature mismatch")
	}

	return nil
}

// PreserveRequestBody reads and preserves the request body for signature
// verification. The digest needs the complete byte sequence, so the whole
// body is buffered before any verification runs.
func PreserveRequestBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}

	// Replace the body with a new reader
	r.Body = io.NopCloser(bytes.NewReader(body))

	return body, nil
}
