package lti

import "errors"

var (
	// ErrInvalidModel indicates malformed coefficients (empty or all-zero
	// polynomials, non-finite values).
	ErrInvalidModel = errors.New("lti: invalid model")

	// ErrImproper indicates a numerator of higher degree than the denominator,
	// which has no state-space realization.
	ErrImproper = errors.New("lti: improper transfer function")

	// ErrNoRoots indicates the eigenvalue solver failed to converge.
	ErrNoRoots = errors.New("lti: root finding did not converge")
)

// ModelError wraps ErrInvalidModel with the offending polynomial.
type ModelError struct {
	Field  string
	Coeffs []float64
	Reason string
}

func (e *ModelError) Error() string {
	return "lti: invalid model: " + e.Field + " " + e.Reason
}

func (e *ModelError) Unwrap() error {
	return ErrInvalidModel
}
