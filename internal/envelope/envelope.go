// Package envelope defines the domain model for e-signature envelopes:
// the users asked to sign, their individual signature progress, and the
// envelope that groups them under the provider-assigned identifier.
package envelope

// User identifies a recipient of an envelope by email and display name.
type User struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Anchor returns the placeholder string embedded in the source document
// that the provider locates and replaces with a signature field.
func (u User) Anchor() string {
	return "**" + u.Email + "**"
}

// SignatureStatus tracks the progress of a single recipient's signature.
type SignatureStatus string

const (
	SignaturePending   SignatureStatus = "PENDING"
	SignatureSent      SignatureStatus = "SENT"
	SignatureDelivered SignatureStatus = "DELIVERED"
	SignatureComplete  SignatureStatus = "COMPLETE"
)

// Signature is one recipient's signature on an envelope. Owned exclusively
// by its parent Envelope and mutated only through the store.
type Signature struct {
	User   User            `json:"user"`
	Status SignatureStatus `json:"status"`
}

// Status is the overall state of an envelope. Transitions are monotonic:
// SENT to COMPLETE, driven by the provider's terminal event.
type Status string

const (
	StatusSent     Status = "SENT"
	StatusComplete Status = "COMPLETE"
)

// Envelope is a single e-signature transaction: one signature per signer,
// in send order, keyed by the provider-assigned envelope identifier.
type Envelope struct {
	EnvelopeID string      `json:"envelopeId"`
	Signatures []Signature `json:"signatures"`
	Status     Status      `json:"status"`
}

// New builds an envelope for a successful send. Every signer starts with a
// PENDING signature and the envelope itself is SENT.
func New(envelopeID string, signers []User) *Envelope {
	signatures := make([]Signature, 0, len(signers))
	for _, user := range signers {
		signatures = append(signatures, Signature{
			User:   user,
			Status: SignaturePending,
		})
	}

	return &Envelope{
		EnvelopeID: envelopeID,
		Signatures: signatures,
		Status:     StatusSent,
	}
}

// Clone returns a deep copy so callers can hand envelopes out without
// exposing the store's internal state to mutation.
func (e *Envelope) Clone() *Envelope {
	signatures := make([]Signature, len(e.Signatures))
	copy(signatures, e.Signatures)

	return &Envelope{
		EnvelopeID: e.EnvelopeID,
		Signatures: signatures,
		Status:     e.Status,
	}
}
