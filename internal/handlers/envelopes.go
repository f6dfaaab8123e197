package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"esign-gateway/internal/common/logging"
	"esign-gateway/internal/common/validation"
	"esign-gateway/internal/docusign"
	"esign-gateway/internal/envelope"
)

// envelopeTitle is the email subject for every envelope this gateway sends.
const envelopeTitle = "Please sign the order acknowledgement"

// SendEnvelopeRequest is the inbound payload for POST /send-envelope.
type SendEnvelopeRequest struct {
	Signers  []UserPayload `json:"signers"`
	CCUsers  []UserPayload `json:"cc_users"`
	Products []string      `json:"products"`
}

// UserPayload is one recipient in a send request.
type UserPayload struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// SendEnvelope handles POST /send-envelope: validate the request, submit the
// envelope to the provider, record the recipient identity mappings, and
// persist the new envelope.
func (h *Handlers) SendEnvelope(w http.ResponseWriter, r *http.Request) {
	var req SendEnvelopeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	v := validation.NewValidator()
	v.RequireNonEmpty(len(req.Signers), "signers")
	v.RequireNonEmpty(len(req.Products), "products")
	for _, user := range req.Signers {
		v.RequireEmail(user.Email, "signer email")
		v.RequireString(user.Name, "signer name")
	}
	for _, user := range req.CCUsers {
		v.RequireEmail(user.Email, "cc email")
	}
	if v.HasErrors() {
		h.respondError(w, http.StatusBadRequest, v.Error().Error())
		return
	}

	signers := toUsers(req.Signers)
	ccs := toUsers(req.CCUsers)

	result, err := h.sender.SendEnvelope(r.Context(), envelopeTitle, signers, ccs, req.Products)
	if err != nil {
		h.logger.Error("Envelope send failed", err,
			logging.Int("signers", len(signers)),
		)
		// Echo the definition the gateway would have sent so the caller can
		// diagnose the rejection.
		definition, _ := docusign.BuildEnvelopeDefinition(envelopeTitle, signers, ccs, req.Products)
		h.respondJSON(w, http.StatusBadRequest, definition)
		return
	}

	// The identity mappings must exist before any webhook for this envelope
	// can be processed, so they are recorded before the response goes out.
	for _, recipient := range result.Recipients {
		if err := h.store.SaveRecipient(recipient.ID, recipient.Email); err != nil {
			h.logger.Error("Failed to record recipient mapping", err,
				logging.String("envelope_id", result.EnvelopeID),
			)
			h.respondError(w, http.StatusInternalServerError, "failed to persist recipient mapping")
			return
		}
	}

	env := envelope.New(result.EnvelopeID, signers)
	if err := h.store.CreateEnvelope(env); err != nil {
		h.logger.Error("Failed to record envelope", err,
			logging.String("envelope_id", result.EnvelopeID),
		)
		h.respondError(w, http.StatusInternalServerError, "failed to persist envelope")
		return
	}

	h.respondJSON(w, http.StatusOK, env)
}

// ListEnvelopes handles GET /sent-envelopes: the full envelope mapping.
func (h *Handlers) ListEnvelopes(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.store.Envelopes())
}

// GetEnvelope handles GET /sent-envelopes/{envelopeId}. An unknown id yields
// an empty 200 rather than a 404, matching what API consumers expect from
// the original surface.
func (h *Handlers) GetEnvelope(w http.ResponseWriter, r *http.Request) {
	envelopeID := mux.Vars(r)["envelopeId"]

	env, ok := h.store.Envelope(envelopeID)
	if !ok {
		w.WriteHeader(http.StatusOK)
		return
	}

	h.respondJSON(w, http.StatusOK, env)
}

// DownloadDocument handles GET /sent-envelopes/{envelopeId}/download-document
// by proxying the first envelope document from the provider.
func (h *Handlers) DownloadDocument(w http.ResponseWriter, r *http.Request) {
	envelopeID := mux.Vars(r)["envelopeId"]

	body, contentType, err := h.sender.DownloadDocument(r.Context(), envelopeID, "1")
	if err != nil {
		h.logger.Error("Document download failed", err,
			logging.String("envelope_id", envelopeID),
		)
		h.respondError(w, http.StatusBadRequest, "failed to download document")
		return
	}
	defer body.Close()

	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn("Interrupted while streaming document",
			logging.String("envelope_id", envelopeID),
			logging.Err(err),
		)
	}
}

func toUsers(payloads []UserPayload) []envelope.User {
	users := make([]envelope.User, 0, len(payloads))
	for _, p := range payloads {
		users = append(users, envelope.User{Email: p.Email, Name: p.Name})
	}
	return users
}
