package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrValidation     = errors.New("insufficient content")
	ErrVectorization  = errors.New("no usable terms")
	ErrGeneration     = errors.New("generation failed")
	ErrCacheWrite     = errors.New("cache write failed")
	ErrLockContention = errors.New("generation already in flight")
	ErrCooldown       = errors.New("generation cooling down")
	ErrTemporary      = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// InsufficientContentError tells the caller how many more documents are required.
type InsufficientContentError struct {
	Have   int
	Needed int
}

func (e *InsufficientContentError) Error() string {
	more := e.Needed - e.Have
	if more == 1 {
		return "need 1 more entry"
	}
	return fmt.Sprintf("need %d more entries", more)
}

func (e *InsufficientContentError) Unwrap() error { return ErrValidation }

func NewInsufficientContent(operation string, have, needed int) error {
	return fmt.Errorf("%s: %w", operation, &InsufficientContentError{Have: have, Needed: needed})
}
