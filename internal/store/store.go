// Package store holds the envelope and recipient state for the gateway and
// persists it to a single JSON document.
//
// The store is the single source of truth for envelope state. Every mutation
// takes the write lock, applies the change in memory, and synchronously
// rewrites the whole document, so concurrent webhook and send requests are
// serialized rather than racing on a shared global.
package store

import (
	"sync"

	"esign-gateway/internal/common/errors"
	"esign-gateway/internal/common/logging"
	"esign-gateway/internal/envelope"
)

// Store is the aggregate of sent envelopes and recipient identity mappings.
// Envelopes are keyed by the provider-assigned envelope id; users map the
// recipient tokens issued at send time back to email addresses.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	mu        sync.RWMutex
	envelopes map[string]*envelope.Envelope
	users     map[string]string
	path      string
	logger    logging.Logger
}

// CreateEnvelope records a newly sent envelope and persists the store.
// It fails if an envelope with the same id already exists; an existing
// record is never silently overwritten.
func (s *Store) CreateEnvelope(env *envelope.Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.envelopes[env.EnvelopeID]; exists {
		return errors.ValidationError("envelope already exists").
			WithContext("envelope_id", env.EnvelopeID)
	}

	s.envelopes[env.EnvelopeID] = env.Clone()
	return s.save()
}

// MarkEnvelopeComplete sets the envelope status to COMPLETE and persists the
// store. An unknown envelope id is logged and returned as a not-found error;
// a webhook can reference an id this instance never recorded and that must
// not crash the process. Marking a completed envelope again is a no-op.
func (s *Store) MarkEnvelopeComplete(envelopeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	env, exists := s.envelopes[envelopeID]
	if !exists {
		s.logger.Warn("Cannot mark unknown envelope complete",
			logging.String("envelope_id", envelopeID),
		)
		return errors.NotFoundError("envelope").
			WithContext("envelope_id", envelopeID)
	}

	if env.Status == envelope.StatusComplete {
		return nil
	}

	env.Status = envelope.StatusComplete
	return s.save()
}

// UpdateSignatureStatus replaces the status of the signature belonging to
// email within the envelope. Monotonic progression is not enforced here; the
// event stream is trusted, and re-applying the same status is idempotent.
// An unknown envelope or an email with no matching signature is logged and
// ignored so a stray webhook never fails the request.
func (s *Store) UpdateSignatureStatus(envelopeID, email string, status envelope.SignatureStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	env, exists := s.envelopes[envelopeID]
	if !exists {
		s.logger.Warn("Signature status update for unknown envelope",
			logging.String("envelope_id", envelopeID),
			logging.String("email", email),
		)
		return nil
	}

	for i := range env.Signatures {
		if env.Signatures[i].User.Email != email {
			continue
		}
		if env.Signatures[i].Status == status {
			return nil
		}
		env.Signatures[i].Status = status
		return s.save()
	}

	s.logger.Warn("No signature for email on envelope",
		logging.String("envelope_id", envelopeID),
		logging.String("email", email),
	)
	return nil
}

// SaveRecipient records the mapping from a recipient token to an email
// address and persists the store. The upsert is idempotent.
func (s *Store) SaveRecipient(token, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.users[token]; ok && existing == email {
		return nil
	}

	s.users[token] = email
	return s.save()
}

// LookupRecipient resolves a recipient token to the email it was issued for.
// Absence is a recoverable condition, not an error: the token belongs to a
// recipient this instance never issued.
func (s *Store) LookupRecipient(token string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	email, ok := s.users[token]
	return email, ok
}

// Envelopes returns a copy of the full envelope mapping.
func (s *Store) Envelopes() map[string]*envelope.Envelope {
	s.mu.RLock()
	defer s.mu.RUnlock()

	envelopes := make(map[string]*envelope.Envelope, len(s.envelopes))
	for id, env := range s.envelopes {
		envelopes[id] = env.Clone()
	}
	return envelopes
}

// Envelope returns a copy of a single envelope by id.
func (s *Store) Envelope(envelopeID string) (*envelope.Envelope, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	env, ok := s.envelopes[envelopeID]
	if !ok {
		return nil, false
	}
	return env.Clone(), true
}
