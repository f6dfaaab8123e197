package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"esign-gateway/internal/common/logging"
	"esign-gateway/internal/docusign"
	"esign-gateway/internal/envelope"
	"esign-gateway/internal/events"
	"esign-gateway/internal/signature"
	"esign-gateway/internal/store"
)

const (
	testSignatureHeader = "x-docusign-signature-1"
	testHMACKey         = "test-connect-key"
)

type mockSender struct {
	mock.Mock
}

func (m *mockSender) SendEnvelope(ctx context.Context, title string, signers, ccs []envelope.User, products []string) (*docusign.SendResult, error) {
	args := m.Called(ctx, title, signers, ccs, products)
	if result := args.Get(0); result != nil {
		return result.(*docusign.SendResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSender) DownloadDocument(ctx context.Context, envelopeID, documentID string) (io.ReadCloser, string, error) {
	args := m.Called(ctx, envelopeID, documentID)
	if body := args.Get(0); body != nil {
		return body.(io.ReadCloser), args.String(1), args.Error(2)
	}
	return nil, args.String(1), args.Error(2)
}

func testLogger(t *testing.T) logging.Logger {
	t.Helper()
	logger, err := logging.NewZapLogger(logging.LogConfig{
		Level:  logging.ErrorLevel,
		Output: io.Discard,
	})
	require.NoError(t, err)
	return logger
}

// newTestRig wires handlers over a real file-backed store and a mocked vendor
// client, routed the same way the application routes them.
func newTestRig(t *testing.T, sender *mockSender) (*mux.Router, *store.Store) {
	t.Helper()

	logger := testLogger(t)

	path := filepath.Join(t.TempDir(), "DB.json")
	require.NoError(t, store.Init(path))
	st, err := store.Load(path, logger)
	require.NoError(t, err)

	verifier := signature.NewVerifier(testSignatureHeader, testHMACKey, logger)
	reconciler := events.NewReconciler(st, logger)
	h := New(st, sender, verifier, reconciler, logger)

	router := mux.NewRouter()
	router.HandleFunc("/send-envelope", h.SendEnvelope).Methods(http.MethodPost)
	router.HandleFunc("/sent-envelopes", h.ListEnvelopes).Methods(http.MethodGet)
	router.HandleFunc("/sent-envelopes/{envelopeId}", h.GetEnvelope).Methods(http.MethodGet)
	router.HandleFunc("/sent-envelopes/{envelopeId}/download-document", h.DownloadDocument).Methods(http.MethodGet)
	router.HandleFunc("/webhook/docusign", h.DocuSignWebhook).Methods(http.MethodPost)

	return router, st
}

func sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testHMACKey))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func postWebhook(router *mux.Router, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook/docusign", bytes.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func sendRequest(router *mux.Router, payload string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/send-envelope", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestSendEnvelopeSuccess(t *testing.T) {
	sender := &mockSender{}
	sender.On("SendEnvelope", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&docusign.SendResult{
			EnvelopeID: "env-1",
			Recipients: []docusign.Recipient{
				{ID: "tok-signer", Email: "signer@example.com"},
				{ID: "tok-cc", Email: "cc@example.com"},
			},
		}, nil)

	router, st := newTestRig(t, sender)

	rec := sendRequest(router, `{
		"signers": [{"email": "signer@example.com", "name": "Signer One"}],
		"cc_users": [{"email": "cc@example.com", "name": "CC One"}],
		"products": ["widget", "gadget"]
	}`)

	require.Equal(t, http.StatusOK, rec.Code)

	var env envelope.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "env-1", env.EnvelopeID)
	assert.Equal(t, envelope.StatusSent, env.Status)
	require.Len(t, env.Signatures, 1)
	assert.Equal(t, envelope.SignaturePending, env.Signatures[0].Status)

	stored, ok := st.Envelope("env-1")
	require.True(t, ok)
	assert.Equal(t, envelope.StatusSent, stored.Status)

	email, ok := st.LookupRecipient("tok-signer")
	require.True(t, ok)
	assert.Equal(t, "signer@example.com", email)

	email, ok = st.LookupRecipient("tok-cc")
	require.True(t, ok)
	assert.Equal(t, "cc@example.com", email)

	sender.AssertExpectations(t)
}

func TestSendEnvelopeRejectsEmptySigners(t *testing.T) {
	sender := &mockSender{}
	router, _ := newTestRig(t, sender)

	rec := sendRequest(router, `{"signers": [], "products": ["widget"]}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	sender.AssertNotCalled(t, "SendEnvelope", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSendEnvelopeRejectsEmptyProducts(t *testing.T) {
	sender := &mockSender{}
	router, _ := newTestRig(t, sender)

	rec := sendRequest(router, `{
		"signers": [{"email": "signer@example.com", "name": "Signer One"}],
		"products": []
	}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendEnvelopeRejectsInvalidEmail(t *testing.T) {
	sender := &mockSender{}
	router, _ := newTestRig(t, sender)

	rec := sendRequest(router, `{
		"signers": [{"email": "not-an-email", "name": "Signer One"}],
		"products": ["widget"]
	}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	sender.AssertNotCalled(t, "SendEnvelope", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSendEnvelopeRejectsMalformedBody(t *testing.T) {
	sender := &mockSender{}
	router, _ := newTestRig(t, sender)

	rec := sendRequest(router, `{not json`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendEnvelopeVendorFailureEchoesDefinition(t *testing.T) {
	sender := &mockSender{}
	sender.On("SendEnvelope", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, assert.AnError)

	router, st := newTestRig(t, sender)

	rec := sendRequest(router, `{
		"signers": [{"email": "signer@example.com", "name": "Signer One"}],
		"products": ["widget"]
	}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var definition docusign.EnvelopeDefinition
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &definition))
	require.Len(t, definition.Recipients.Signers, 1)
	assert.Equal(t, "signer@example.com", definition.Recipients.Signers[0].Email)

	assert.Empty(t, st.Envelopes())
}

func TestGetEnvelopeUnknownIDIsEmpty(t *testing.T) {
	router, _ := newTestRig(t, &mockSender{})

	req := httptest.NewRequest(http.MethodGet, "/sent-envelopes/no-such-id", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestListEnvelopes(t *testing.T) {
	router, st := newTestRig(t, &mockSender{})

	env := envelope.New("env-1", []envelope.User{{Email: "signer@example.com", Name: "Signer One"}})
	require.NoError(t, st.CreateEnvelope(env))

	req := httptest.NewRequest(http.MethodGet, "/sent-envelopes", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var listed map[string]*envelope.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Contains(t, listed, "env-1")
	assert.Equal(t, envelope.StatusSent, listed["env-1"].Status)
}

func TestDownloadDocument(t *testing.T) {
	sender := &mockSender{}
	sender.On("DownloadDocument", mock.Anything, "env-1", "1").
		Return(io.NopCloser(strings.NewReader("%PDF-1.4 fake")), "application/pdf", nil)

	router, _ := newTestRig(t, sender)

	req := httptest.NewRequest(http.MethodGet, "/sent-envelopes/env-1/download-document", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "%PDF")
}

func TestDownloadDocumentUpstreamFailure(t *testing.T) {
	sender := &mockSender{}
	sender.On("DownloadDocument", mock.Anything, "env-1", "1").
		Return(nil, "", assert.AnError)

	router, _ := newTestRig(t, sender)

	req := httptest.NewRequest(http.MethodGet, "/sent-envelopes/env-1/download-document", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookMissingSignature(t *testing.T) {
	router, _ := newTestRig(t, &mockSender{})

	body := []byte(`{"event":"recipient-completed","data":{"envelopeId":"env-1"}}`)
	rec := postWebhook(router, body, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookInvalidSignature(t *testing.T) {
	router, _ := newTestRig(t, &mockSender{})

	body := []byte(`{"event":"recipient-completed","data":{"envelopeId":"env-1"}}`)
	rec := postWebhook(router, body, map[string]string{
		testSignatureHeader: "bm90LXRoZS1yZWFsLWRpZ2VzdA==",
	})

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestWebhookMalformedPayload(t *testing.T) {
	router, st := newTestRig(t, &mockSender{})

	body := []byte(`{not json`)
	rec := postWebhook(router, body, map[string]string{
		testSignatureHeader: sign(body),
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, st.Envelopes())
}

// seedEnvelope records an envelope and one recipient mapping so webhook
// events have state to reconcile against.
func seedEnvelope(t *testing.T, st *store.Store) {
	t.Helper()
	env := envelope.New("env-1", []envelope.User{{Email: "signer@example.com", Name: "Signer One"}})
	require.NoError(t, st.CreateEnvelope(env))
	require.NoError(t, st.SaveRecipient("tok-signer", "signer@example.com"))
}

func TestWebhookRecipientCompleted(t *testing.T) {
	router, st := newTestRig(t, &mockSender{})
	seedEnvelope(t, st)

	body := []byte(`{"event":"recipient-completed","data":{"envelopeId":"env-1","recipientId":"tok-signer"}}`)
	rec := postWebhook(router, body, map[string]string{
		testSignatureHeader: sign(body),
	})

	require.Equal(t, http.StatusOK, rec.Code)

	// Reconciliation runs after the acknowledgment goes out.
	assert.Eventually(t, func() bool {
		env, ok := st.Envelope("env-1")
		return ok && env.Signatures[0].Status == envelope.SignatureComplete
	}, time.Second, 10*time.Millisecond)
}

func TestWebhookEnvelopeCompleted(t *testing.T) {
	router, st := newTestRig(t, &mockSender{})
	seedEnvelope(t, st)

	body := []byte(`{"event":"envelope-completed","data":{"envelopeId":"env-1"}}`)
	rec := postWebhook(router, body, map[string]string{
		testSignatureHeader: sign(body),
	})

	require.Equal(t, http.StatusOK, rec.Code)

	assert.Eventually(t, func() bool {
		env, ok := st.Envelope("env-1")
		return ok && env.Status == envelope.StatusComplete
	}, time.Second, 10*time.Millisecond)
}

func TestWebhookUnknownRecipientLeavesStateAlone(t *testing.T) {
	router, st := newTestRig(t, &mockSender{})
	seedEnvelope(t, st)

	body := []byte(`{"event":"recipient-completed","data":{"envelopeId":"env-1","recipientId":"never-issued"}}`)
	rec := postWebhook(router, body, map[string]string{
		testSignatureHeader: sign(body),
	})

	require.Equal(t, http.StatusOK, rec.Code)

	// The status never advances for a token this instance never issued.
	time.Sleep(50 * time.Millisecond)
	env, ok := st.Envelope("env-1")
	require.True(t, ok)
	assert.Equal(t, envelope.SignaturePending, env.Signatures[0].Status)
}
