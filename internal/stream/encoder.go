package stream

import (
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/danmuck/floww/internal/model"
	"github.com/danmuck/floww/internal/stream/wire"
	"github.com/rs/zerolog"
)

type encoderState int

const (
	encoderIdle encoderState = iota
	encoderStreaming
	encoderTrackOpen
	encoderFinished
	encoderFailed
)

func (s encoderState) String() string {
	switch s {
	case encoderIdle:
		return "not started"
	case encoderStreaming:
		return "between tracks"
	case encoderTrackOpen:
		return "inside a track"
	case encoderFinished:
		return "finished"
	case encoderFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Encoder writes a Floww stream to w one frame at a time. Each frame is
// assembled in full before a single Write, so a rejected call never leaves
// a partial frame behind. A failed Write poisons the encoder.
type Encoder struct {
	w      io.Writer
	cfg    EncoderConfig
	log    zerolog.Logger
	state  encoderState
	last   uint64
	sum    wire.Checksum
	n      int64
	frames int
	buf    []byte
}

func NewEncoder(w io.Writer, cfg EncoderConfig) *Encoder {
	if cfg.TicksPerBeat == 0 {
		cfg.TicksPerBeat = DefaultEncoderConfig().TicksPerBeat
	}
	cfg.Limits = cfg.Limits.normalized()
	return &Encoder{
		w:   w,
		cfg: cfg,
		log: componentLogger(cfg.Logger, "stream.encoder"),
		buf: make([]byte, 0, 64),
	}
}

// Start writes the stream header. It must be the first call.
func (e *Encoder) Start() error {
	if e.state != encoderIdle {
		return e.stateError("start")
	}
	buf := e.buf[:0]
	buf = append(buf, wire.Magic[:]...)
	buf = append(buf, wire.Version)
	buf = wire.AppendUvarint(buf, e.cfg.TicksPerBeat)
	if err := e.emit(buf); err != nil {
		return err
	}
	e.state = encoderStreaming
	return nil
}

// BeginTrack opens a track. Tracks do not nest.
func (e *Encoder) BeginTrack(id string) error {
	if e.state != encoderStreaming {
		return e.stateError("begin_track")
	}
	if uint64(len(id)) > e.cfg.Limits.MaxTrackIDBytes {
		return fmt.Errorf("%w: track id is %d bytes", ErrFrameTooLarge, len(id))
	}
	if !utf8.ValidString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidTrackID, id)
	}
	buf := append(e.buf[:0], byte(wire.TagTrackStart))
	buf = wire.AppendBytes(buf, []byte(id))
	if err := e.emit(buf); err != nil {
		return err
	}
	e.state = encoderTrackOpen
	e.last = 0
	return nil
}

// WriteEvent writes ev as a delta from the previous event of the open track.
func (e *Encoder) WriteEvent(ev model.Event) error {
	if e.state != encoderTrackOpen {
		return e.stateError("write_event")
	}
	if ev == nil {
		return ErrNilEvent
	}
	if err := ev.Validate(); err != nil {
		return err
	}
	at := ev.At()
	if at < e.last {
		return fmt.Errorf("%w: %d < %d", ErrNegativeDelta, at, e.last)
	}
	delta := at - e.last

	buf := e.buf[:0]
	switch v := ev.(type) {
	case model.Note:
		buf = append(buf, byte(wire.TagNote))
		buf = wire.AppendUvarint(buf, delta)
		buf = append(buf, v.Pitch, v.Velocity)
		buf = wire.AppendUvarint(buf, v.Duration)
	case model.Message:
		payload := v.Payload()
		if uint64(len(payload)) > e.cfg.Limits.MaxPayloadBytes {
			return fmt.Errorf("%w: %s payload is %d bytes", ErrFrameTooLarge, v.Kind(), len(payload))
		}
		buf = append(buf, byte(wire.TagMessage))
		buf = wire.AppendUvarint(buf, delta)
		buf = append(buf, byte(v.Kind()))
		buf = wire.AppendBytes(buf, payload)
	default:
		return fmt.Errorf("stream: unsupported event type %T", ev)
	}
	if err := e.emit(buf); err != nil {
		return err
	}
	e.last = at
	return nil
}

// WriteExtension writes a reserved-extension frame that older decoders skip.
func (e *Encoder) WriteExtension(tag wire.Tag, payload []byte) error {
	if e.state != encoderStreaming && e.state != encoderTrackOpen {
		return e.stateError("write_extension")
	}
	if !tag.IsExtension() {
		return fmt.Errorf("%w: 0x%02x", ErrInvalidExtensionTag, uint8(tag))
	}
	if uint64(len(payload)) > e.cfg.Limits.MaxPayloadBytes {
		return fmt.Errorf("%w: extension payload is %d bytes", ErrFrameTooLarge, len(payload))
	}
	buf := append(e.buf[:0], byte(tag))
	buf = wire.AppendBytes(buf, payload)
	return e.emit(buf)
}

// EndTrack closes the open track.
func (e *Encoder) EndTrack() error {
	if e.state != encoderTrackOpen {
		return e.stateError("end_track")
	}
	if err := e.emit(append(e.buf[:0], byte(wire.TagTrackEnd))); err != nil {
		return err
	}
	e.state = encoderStreaming
	return nil
}

// Finish writes StreamEnd and the checksum of everything before it.
func (e *Encoder) Finish() error {
	if e.state != encoderStreaming {
		return e.stateError("finish")
	}
	sum := e.sum
	sum.Update([]byte{byte(wire.TagStreamEnd)})
	buf := append(e.buf[:0], byte(wire.TagStreamEnd))
	buf = wire.AppendChecksum(buf, sum.Sum32())
	if err := e.emit(buf); err != nil {
		return err
	}
	e.sum = sum
	e.state = encoderFinished
	e.log.Debug().
		Int64("bytes", e.n).
		Int("frames", e.frames).
		Uint32("checksum", sum.Sum32()).
		Msg("stream finished")
	return nil
}

// Written is the number of bytes emitted so far.
func (e *Encoder) Written() int64 {
	return e.n
}

// Checksum is the value written by Finish, or zero before Finish.
func (e *Encoder) Checksum() uint32 {
	if e.state != encoderFinished {
		return 0
	}
	return e.sum.Sum32()
}

func (e *Encoder) emit(frame []byte) error {
	n, err := e.w.Write(frame)
	if err == nil && n != len(frame) {
		err = io.ErrShortWrite
	}
	if err != nil {
		e.state = encoderFailed
		e.log.Error().Err(err).Int64("offset", e.n).Msg("stream write failed")
		return fmt.Errorf("%w: %w", ErrEncoderFailed, err)
	}
	e.sum.Update(frame)
	e.n += int64(n)
	e.frames++
	e.buf = frame[:0]
	return nil
}

func (e *Encoder) stateError(op string) error {
	if e.state == encoderFailed {
		return fmt.Errorf("%w: %s after write failure", ErrEncoderFailed, op)
	}
	return EncoderStateError{Op: op, State: e.state.String()}
}
