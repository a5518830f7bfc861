package services

import "errors"

var (
	// ErrValidation wraps every rejected input. Callers match it with errors.Is
	// and show the wrapped message.
	ErrValidation = errors.New("validation failed")

	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

func validationError(msg string) error {
	return &validation{msg: msg}
}

type validation struct {
	msg string
}

func (v *validation) Error() string        { return v.msg }
func (v *validation) Is(target error) bool { return target == ErrValidation }
