package envelope

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewEnvelope(t *testing.T) {
	env := New("env-1", []User{
		{Email: "a@x.com", Name: "A"},
		{Email: "b@x.com", Name: "B"},
	})

	assert.Equal(t, "env-1", env.EnvelopeID)
	assert.Equal(t, StatusSent, env.Status)
	assert.Len(t, env.Signatures, 2)

	// Signatures keep send order
	assert.Equal(t, "a@x.com", env.Signatures[0].User.Email)
	assert.Equal(t, "b@x.com", env.Signatures[1].User.Email)
	for _, sig := range env.Signatures {
		assert.Equal(t, SignaturePending, sig.Status)
	}
}

func TestAnchorDerivedFromEmail(t *testing.T) {
	user := User{Email: "a@x.com", Name: "A"}
	assert.Equal(t, "**a@x.com**", user.Anchor())
}

func TestCloneIsIndependent(t *testing.T) {
	env := New("env-1", []User{{Email: "a@x.com", Name: "A"}})

	clone := env.Clone()
	clone.Status = StatusComplete
	clone.Signatures[0].Status = SignatureComplete

	assert.Equal(t, StatusSent, env.Status)
	assert.Equal(t, SignaturePending, env.Signatures[0].Status)
}
