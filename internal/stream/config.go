package stream

import (
	"github.com/danmuck/floww/internal/logging"
	"github.com/danmuck/floww/internal/sheet"
	"github.com/rs/zerolog"
)

const DefaultChunkSize = 32 * 1024

// Limits bound the lengths a frame may declare, on both sides of the codec.
type Limits struct {
	MaxTrackIDBytes uint64
	MaxPayloadBytes uint64
}

func DefaultLimits() Limits {
	return Limits{
		MaxTrackIDBytes: 4 * 1024,
		MaxPayloadBytes: 1024 * 1024,
	}
}

func (l Limits) normalized() Limits {
	def := DefaultLimits()
	if l.MaxTrackIDBytes == 0 {
		l.MaxTrackIDBytes = def.MaxTrackIDBytes
	}
	if l.MaxPayloadBytes == 0 {
		l.MaxPayloadBytes = def.MaxPayloadBytes
	}
	return l
}

type EncoderConfig struct {
	TicksPerBeat uint64
	Limits       Limits
	Logger       *zerolog.Logger
}

func DefaultEncoderConfig() EncoderConfig {
	return EncoderConfig{
		TicksPerBeat: sheet.DefaultTicksPerBeat,
		Limits:       DefaultLimits(),
	}
}

type DecoderConfig struct {
	Limits Limits
	// StrictChecksum turns a StreamEnd checksum mismatch into a fatal error
	// instead of a logged warning.
	StrictChecksum bool
	// ChunkSize is the read size used by DecodeReader.
	ChunkSize int
	Logger    *zerolog.Logger
}

func DefaultDecoderConfig() DecoderConfig {
	return DecoderConfig{
		Limits:    DefaultLimits(),
		ChunkSize: DefaultChunkSize,
	}
}

func componentLogger(l *zerolog.Logger, component string) zerolog.Logger {
	if l != nil {
		return l.With().Str("component", component).Logger()
	}
	return logging.For(component)
}
