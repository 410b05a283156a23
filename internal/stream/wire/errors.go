package wire

import (
	"errors"
	"fmt"
)

var ErrLengthLimit = errors.New("wire: declared length exceeds limit")

// LengthLimitError reports a length prefix larger than the caller allows.
type LengthLimitError struct {
	Declared uint64
	Limit    uint64
}

func (e LengthLimitError) Error() string {
	return fmt.Sprintf("wire: declared length %d exceeds limit %d", e.Declared, e.Limit)
}

func (e LengthLimitError) Is(target error) bool {
	return target == ErrLengthLimit
}
