package fulfillment

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrInvalidFilter     = errors.New("invalid filter")
)

type validationError struct {
	message string
}

func (e validationError) Error() string { return e.message }

func newValidationError(msg string) error {
	return validationError{message: msg}
}

// IsValidation reports whether err is a rejected sale submission rather than a store failure.
func IsValidation(err error) bool {
	var v validationError
	return errors.As(err, &v)
}
