package handlers

import (
	"net/http"

	"esign-gateway/internal/common/logging"
	"esign-gateway/internal/events"
	"esign-gateway/internal/signature"
)

// DocuSignWebhook handles POST /webhook/docusign. The whole body is buffered
// before anything else because the HMAC digest needs the complete raw byte
// sequence; only after verification succeeds is the payload parsed as JSON.
//
// The response is the delivery acknowledgment: 200 goes out as soon as the
// notification is authenticated and well-formed, and reconciliation runs
// afterwards in its own goroutine. The sender wants a receipt, not a
// reconciliation result.
func (h *Handlers) DocuSignWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := signature.PreserveRequestBody(r)
	if err != nil {
		h.logger.Warn("Failed to read webhook body", logging.Err(err))
		h.respondError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	if err := h.verifier.Verify(r, body); err != nil {
		if signature.IsMissing(err) {
			h.respondError(w, http.StatusBadRequest, "missing signature header")
			return
		}
		h.respondError(w, http.StatusForbidden, "invalid signature")
		return
	}

	evt, err := events.Normalize(body)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid notification payload")
		return
	}

	h.logger.Info("Webhook event received",
		logging.String("event", evt.Raw),
		logging.String("envelope_id", evt.EnvelopeID),
	)

	w.WriteHeader(http.StatusOK)

	go h.reconciler.Apply(evt)
}
