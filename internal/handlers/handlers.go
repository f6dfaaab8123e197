// Package handlers implements the REST surface of the e-signature gateway:
// envelope sending, envelope state queries, and the provider webhook.
package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"esign-gateway/internal/common/logging"
	"esign-gateway/internal/docusign"
	"esign-gateway/internal/envelope"
	"esign-gateway/internal/events"
	"esign-gateway/internal/signature"
	"esign-gateway/internal/store"
)

// EnvelopeSender is the narrow slice of the vendor client the handlers use.
type EnvelopeSender interface {
	SendEnvelope(ctx context.Context, title string, signers, ccs []envelope.User, products []string) (*docusign.SendResult, error)
	DownloadDocument(ctx context.Context, envelopeID, documentID string) (io.ReadCloser, string, error)
}

// Handlers holds the dependencies shared by all HTTP handlers.
type Handlers struct {
	store      *store.Store
	sender     EnvelopeSender
	verifier   *signature.Verifier
	reconciler *events.Reconciler
	logger     logging.Logger
}

// New creates the handler set.
func New(st *store.Store, sender EnvelopeSender, verifier *signature.Verifier, reconciler *events.Reconciler, logger logging.Logger) *Handlers {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	return &Handlers{
		store:      st,
		sender:     sender,
		verifier:   verifier,
		reconciler: reconciler,
		logger:     logger,
	}
}

// respondJSON writes a JSON response with the given status code.
func (h *Handlers) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Warn("Failed to encode response", logging.Err(err))
	}
}

// respondError writes a plain-text error response.
func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	http.Error(w, message, status)
}
