package stream

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"
	"math"
	"unicode/utf8"

	"github.com/danmuck/floww/internal/model"
	"github.com/danmuck/floww/internal/stream/wire"
	"github.com/rs/zerolog"
)

// DecoderState is the position of a Decoder in the stream grammar.
type DecoderState int

const (
	AwaitingHeader DecoderState = iota
	NoOpenTrack
	TrackOpen
	Finished
	Failed
)

func (s DecoderState) String() string {
	switch s {
	case AwaitingHeader:
		return "awaiting_header"
	case NoOpenTrack:
		return "no_open_track"
	case TrackOpen:
		return "track_open"
	case Finished:
		return "finished"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

const headerFixedLen = len(wire.Magic) + 1

// Decoder is a forward-only cursor over a Floww stream delivered in chunks.
//
// Next parses one frame at a time from the buffered bytes. A frame that is
// not fully buffered is left untouched and ErrNeedMoreData is returned, so
// the same read can be retried after Feed without losing or repeating
// events. Fatal errors are sticky.
type Decoder struct {
	cfg DecoderConfig
	log zerolog.Logger

	state  DecoderState
	err    error
	closed bool

	buf  []byte
	pos  int
	base int64

	version      uint8
	ticksPerBeat uint64
	track        string
	last         uint64
	sum          wire.Checksum
	skipped      int
}

func NewDecoder(cfg DecoderConfig) *Decoder {
	cfg.Limits = cfg.Limits.normalized()
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	return &Decoder{
		cfg: cfg,
		log: componentLogger(cfg.Logger, "stream.decoder"),
	}
}

// Feed appends the next chunk of stream bytes. p is copied.
func (d *Decoder) Feed(p []byte) {
	if d.closed || d.state == Finished || d.state == Failed || len(p) == 0 {
		return
	}
	if d.pos > 0 {
		n := copy(d.buf, d.buf[d.pos:])
		d.buf = d.buf[:n]
		d.base += int64(d.pos)
		d.pos = 0
	}
	d.buf = append(d.buf, p...)
}

// CloseInput marks the source as exhausted. A frame still incomplete after
// this point is reported as ErrTruncated.
func (d *Decoder) CloseInput() {
	d.closed = true
}

func (d *Decoder) State() DecoderState { return d.state }

// Offset is the stream offset of the next unread byte.
func (d *Decoder) Offset() int64 { return d.base + int64(d.pos) }

// Buffered is the number of fed bytes not yet consumed.
func (d *Decoder) Buffered() int { return len(d.buf) - d.pos }

func (d *Decoder) Version() uint8 { return d.version }

func (d *Decoder) TicksPerBeat() uint64 { return d.ticksPerBeat }

// Skipped counts extension frames passed over so far.
func (d *Decoder) Skipped() int { return d.skipped }

// Err is the fatal error that stopped the decoder, if any.
func (d *Decoder) Err() error { return d.err }

// Next returns the next stream event. It returns ErrNeedMoreData when the
// buffered bytes end mid-frame, io.EOF once StreamEnd has been consumed, and
// a *DecodeError for anything fatal.
func (d *Decoder) Next() (model.StreamEvent, error) {
	for {
		switch d.state {
		case Finished:
			return nil, io.EOF
		case Failed:
			return nil, d.err
		}

		offset := d.Offset()
		pending := d.buf[d.pos:]
		var (
			ev  model.StreamEvent
			n   int
			err error
		)
		if d.state == AwaitingHeader {
			n, err = d.readHeader(pending)
		} else {
			ev, n, err = d.readFrame(pending)
		}
		if err != nil {
			if errors.Is(err, wire.ErrShortBuffer) {
				if d.closed {
					return nil, d.fail(offset, fmt.Errorf("%w: %d bytes left in %s", ErrTruncated, len(pending), d.state))
				}
				return nil, ErrNeedMoreData
			}
			return nil, d.fail(offset, err)
		}

		d.sum.Update(pending[:n])
		d.pos += n
		if ev != nil {
			return ev, nil
		}
	}
}

// All yields buffered events until the decoder needs more data, finishes,
// or fails. A fatal error is yielded once as the final pair.
func (d *Decoder) All() iter.Seq2[model.StreamEvent, error] {
	return func(yield func(model.StreamEvent, error) bool) {
		for {
			ev, err := d.Next()
			if errors.Is(err, ErrNeedMoreData) || errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(ev, nil) {
				return
			}
		}
	}
}

func (d *Decoder) fail(offset int64, err error) error {
	d.state = Failed
	d.err = &DecodeError{Offset: offset, Err: err}
	d.log.Debug().Err(err).Int64("offset", offset).Msg("decode halted")
	return d.err
}

func (d *Decoder) readHeader(buf []byte) (int, error) {
	if len(buf) < headerFixedLen {
		if !bytes.HasPrefix(wire.Magic[:], buf[:min(len(buf), len(wire.Magic))]) {
			return 0, fmt.Errorf("%w: bad magic", ErrBadHeader)
		}
		return 0, wire.ErrShortBuffer
	}
	if !bytes.Equal(buf[:len(wire.Magic)], wire.Magic[:]) {
		return 0, fmt.Errorf("%w: bad magic", ErrBadHeader)
	}
	version := buf[len(wire.Magic)]
	if version < wire.MinVersion {
		return 0, fmt.Errorf("%w: unsupported version %d", ErrBadHeader, version)
	}
	tpb, n, err := wire.Uvarint(buf[headerFixedLen:])
	if err != nil {
		if errors.Is(err, wire.ErrShortBuffer) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: ticks per beat: %w", ErrBadHeader, err)
	}
	if tpb == 0 {
		return 0, fmt.Errorf("%w: zero ticks per beat", ErrBadHeader)
	}
	d.version = version
	d.ticksPerBeat = tpb
	d.state = NoOpenTrack
	return headerFixedLen + n, nil
}

// readFrame parses one frame from buf. State is only mutated once the
// whole frame is known to be present and valid.
func (d *Decoder) readFrame(buf []byte) (model.StreamEvent, int, error) {
	if len(buf) == 0 {
		return nil, 0, wire.ErrShortBuffer
	}
	tag := wire.Tag(buf[0])
	body := buf[1:]

	switch {
	case tag == wire.TagTrackStart:
		if d.state != NoOpenTrack {
			return nil, 0, violation("track_start while track %q is open", d.track)
		}
		id, n, err := wire.Bytes(body, d.cfg.Limits.MaxTrackIDBytes)
		if err != nil {
			return nil, 0, frameError(err)
		}
		if !utf8.Valid(id) {
			return nil, 0, violation("track id is not valid utf-8")
		}
		d.track = string(id)
		d.last = 0
		d.state = TrackOpen
		return model.TrackStart{ID: d.track}, 1 + n, nil

	case tag == wire.TagNote:
		if d.state != TrackOpen {
			return nil, 0, violation("note outside a track")
		}
		delta, n, err := wire.Uvarint(body)
		if err != nil {
			return nil, 0, frameError(err)
		}
		if len(body) < n+2 {
			return nil, 0, wire.ErrShortBuffer
		}
		pitch, velocity := body[n], body[n+1]
		duration, m, err := wire.Uvarint(body[n+2:])
		if err != nil {
			return nil, 0, frameError(err)
		}
		at, err := d.advance(delta)
		if err != nil {
			return nil, 0, err
		}
		note := model.Note{Onset: at, Duration: duration, Pitch: pitch, Velocity: velocity}
		if err := note.Validate(); err != nil {
			return nil, 0, fmt.Errorf("%w: %w", ErrProtocolViolation, err)
		}
		d.last = at
		return note, 1 + n + 2 + m, nil

	case tag == wire.TagMessage:
		if d.state != TrackOpen {
			return nil, 0, violation("message outside a track")
		}
		delta, n, err := wire.Uvarint(body)
		if err != nil {
			return nil, 0, frameError(err)
		}
		if len(body) < n+1 {
			return nil, 0, wire.ErrShortBuffer
		}
		kind := model.MessageKind(body[n])
		payload, m, err := wire.Bytes(body[n+1:], d.cfg.Limits.MaxPayloadBytes)
		if err != nil {
			return nil, 0, frameError(err)
		}
		at, err := d.advance(delta)
		if err != nil {
			return nil, 0, err
		}
		msg, err := model.DecodeMessage(kind, at, payload)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %w", ErrProtocolViolation, err)
		}
		d.last = at
		return msg, 1 + n + 1 + m, nil

	case tag == wire.TagTrackEnd:
		if d.state != TrackOpen {
			return nil, 0, violation("track_end without an open track")
		}
		d.state = NoOpenTrack
		return model.TrackEnd{}, 1, nil

	case tag == wire.TagStreamEnd:
		if d.state != NoOpenTrack {
			return nil, 0, violation("stream_end while track %q is open", d.track)
		}
		got, err := wire.ReadChecksum(body)
		if err != nil {
			return nil, 0, err
		}
		sum := d.sum
		sum.Update(buf[:1])
		want := sum.Sum32()
		verified := got == want
		if !verified {
			if d.cfg.StrictChecksum {
				return nil, 0, fmt.Errorf("%w: got 0x%08x want 0x%08x", ErrChecksumMismatch, got, want)
			}
			d.log.Warn().
				Uint32("got", got).
				Uint32("want", want).
				Int64("offset", d.Offset()).
				Msg("stream checksum mismatch")
		}
		d.state = Finished
		return model.StreamEnd{Checksum: got, Verified: verified}, 1 + wire.ChecksumLen, nil

	case tag.IsExtension():
		payload, n, err := wire.Bytes(body, d.cfg.Limits.MaxPayloadBytes)
		if err != nil {
			return nil, 0, frameError(err)
		}
		d.skipped++
		d.log.Debug().
			Uint8("tag", uint8(tag)).
			Int("bytes", len(payload)).
			Int64("offset", d.Offset()).
			Msg("skipped extension frame")
		return nil, 1 + n, nil

	default:
		return nil, 0, fmt.Errorf("%w: 0x%02x", ErrUnknownFrameTag, uint8(tag))
	}
}

func (d *Decoder) advance(delta uint64) (uint64, error) {
	if delta > math.MaxUint64-d.last {
		return 0, violation("timestamp overflow in track %q", d.track)
	}
	return d.last + delta, nil
}

func frameError(err error) error {
	switch {
	case errors.Is(err, wire.ErrShortBuffer):
		return err
	case errors.Is(err, wire.ErrLengthLimit):
		return fmt.Errorf("%w: %w", ErrFrameTooLarge, err)
	default:
		return fmt.Errorf("%w: %w", ErrProtocolViolation, err)
	}
}

func violation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrProtocolViolation, fmt.Sprintf(format, args...))
}
