package model

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidField       = errors.New("model: invalid field")
	ErrUnknownMessageKind = errors.New("model: unknown message kind")
	ErrInvalidPayload     = errors.New("model: invalid message payload")
)

// ValidationError reports a field outside its permitted range.
type ValidationError struct {
	Field string
	Value int64
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("model: field %s out of range: %d", e.Field, e.Value)
}

func (e ValidationError) Is(target error) bool {
	return target == ErrInvalidField
}
