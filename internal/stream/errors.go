package stream

import (
	"errors"
	"fmt"
)

var (
	ErrEncoderState        = errors.New("stream: encoder state error")
	ErrEncoderFailed       = errors.New("stream: encoder failed")
	ErrNegativeDelta       = errors.New("stream: event precedes previous event")
	ErrInvalidExtensionTag = errors.New("stream: tag outside extension range")
	ErrNilEvent            = errors.New("stream: nil event")
	ErrInvalidTrackID      = errors.New("stream: track id is not valid utf-8")

	// ErrNeedMoreData is a suspension, not a failure: feed more bytes and
	// call Next again.
	ErrNeedMoreData = errors.New("stream: need more data")

	ErrBadHeader         = errors.New("stream: bad header")
	ErrProtocolViolation = errors.New("stream: protocol violation")
	ErrUnknownFrameTag   = errors.New("stream: unknown frame tag")
	ErrFrameTooLarge     = errors.New("stream: frame too large")
	ErrTruncated         = errors.New("stream: truncated stream")
	ErrChecksumMismatch  = errors.New("stream: checksum mismatch")
)

// EncoderStateError reports an Encoder call made in the wrong state.
type EncoderStateError struct {
	Op    string
	State string
}

func (e EncoderStateError) Error() string {
	return fmt.Sprintf("stream: %s not allowed while encoder is %s", e.Op, e.State)
}

func (e EncoderStateError) Is(target error) bool {
	return target == ErrEncoderState
}

// DecodeError is a stream-fatal decode failure at a byte offset.
type DecodeError struct {
	Offset int64
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("stream: decode failed at offset %d: %v", e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
