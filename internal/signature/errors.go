package signature

import (
	"errors"
	"fmt"
)

// VerificationError represents a signature verification failure
type VerificationError struct {
	Message string
	Header  string
	Missing bool
}

func (e *VerificationError) Error() string {
	if e.Header != "" {
		return fmt.Sprintf("signature verification failed for header %s: %s", e.Header, e.Message)
	}
	return fmt.Sprintf("signature verification failed: %s", e.Message)
}

// NewVerificationError creates a new verification error
func NewVerificationError(header, format string, args ...interface{}) *VerificationError {
	return &VerificationError{
		Header:  header,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewMissingSignatureError creates a verification error for a delivery that
// carries no signature header at all
func NewMissingSignatureError(header string) *VerificationError {
	return &VerificationError{
		Header:  header,
		Message: "missing signature header",
		Missing: true,
	}
}

// IsMissing reports whether err is a verification failure caused by an
// absent signature header rather than a digest mismatch
func IsMissing(err error) bool {
	var verr *VerificationError
	return errors.As(err, &verr) && verr.Missing
}
