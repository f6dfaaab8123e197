package events

import (
	"esign-gateway/internal/common/logging"
	"esign-gateway/internal/envelope"
)

// EnvelopeStore is the slice of the store the reconciler mutates.
type EnvelopeStore interface {
	LookupRecipient(token string) (string, bool)
	UpdateSignatureStatus(envelopeID, email string, status envelope.SignatureStatus) error
	MarkEnvelopeComplete(envelopeID string) error
}

// Reconciler applies normalized events to the envelope store. It runs after
// the webhook response has been sent; the notification sender only needs a
// receipt acknowledgment, so reconciliation failures are logged and never
// surfaced to any caller.
type Reconciler struct {
	store  EnvelopeStore
	logger logging.Logger
}

// NewReconciler creates a reconciler over the given store.
func NewReconciler(store EnvelopeStore, logger logging.Logger) *Reconciler {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	return &Reconciler{
		store:  store,
		logger: logger,
	}
}

// Apply dispatches a single event. Events are processed synchronously and
// independently; there is no cross-event transaction.
func (r *Reconciler) Apply(evt Event) {
	switch evt.Type {
	case EventRecipientSent:
		r.updateSignature(evt, envelope.SignatureSent)
	case EventRecipientDelivered:
		r.updateSignature(evt, envelope.SignatureDelivered)
	case EventRecipientCompleted:
		r.updateSignature(evt, envelope.SignatureComplete)
	case EventEnvelopeCompleted:
		if err := r.store.MarkEnvelopeComplete(evt.EnvelopeID); err != nil {
			r.logger.Warn("Dropping envelope-completed event",
				logging.String("envelope_id", evt.EnvelopeID),
				logging.Err(err),
			)
		}
	case EventEnvelopeSent, EventRecipientDeclined:
		// Already recorded at send time (envelope-sent) or carries no local
		// state transition (recipient-declined).
		r.logger.Debug("Ignoring event",
			logging.String("event", string(evt.Type)),
			logging.String("envelope_id", evt.EnvelopeID),
		)
	default:
		r.logger.Debug("Ignoring unrecognized event",
			logging.String("event", evt.Raw),
			logging.String("envelope_id", evt.EnvelopeID),
		)
	}
}

// updateSignature resolves the recipient token to an email and updates that
// signature's status. An unresolvable token means the webhook refers to a
// recipient this instance never issued; the event is logged and dropped.
func (r *Reconciler) updateSignature(evt Event, status envelope.SignatureStatus) {
	if evt.RecipientID == "" {
		r.logger.Warn("Recipient event without a recipient id",
			logging.String("event", string(evt.Type)),
			logging.String("envelope_id", evt.EnvelopeID),
		)
		return
	}

	email, ok := r.store.LookupRecipient(evt.RecipientID)
	if !ok {
		r.logger.Warn("Unknown recipient id in event",
			logging.String("event", string(evt.Type)),
			logging.String("envelope_id", evt.EnvelopeID),
			logging.String("recipient_id", evt.RecipientID),
		)
		return
	}

	if err := r.store.UpdateSignatureStatus(evt.EnvelopeID, email, status); err != nil {
		r.logger.Warn("Dropping recipient event",
			logging.String("event", string(evt.Type)),
			logging.String("envelope_id", evt.EnvelopeID),
			logging.Err(err),
		)
	}
}
