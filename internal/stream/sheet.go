package stream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/danmuck/floww/internal/model"
	"github.com/danmuck/floww/internal/sheet"
)

// EncodeSheet writes s as a complete stream: header, one TrackStart/TrackEnd
// pair per track in sheet order, StreamEnd. cfg.TicksPerBeat is taken from
// the sheet.
func EncodeSheet(w io.Writer, s *sheet.Sheet, cfg EncoderConfig) error {
	cfg.TicksPerBeat = s.TicksPerBeat
	enc := NewEncoder(w, cfg)
	if err := enc.Start(); err != nil {
		return err
	}
	for _, track := range s.Tracks() {
		if err := enc.BeginTrack(track.ID); err != nil {
			return fmt.Errorf("track %q: %w", track.ID, err)
		}
		for _, ev := range track.Events() {
			if err := enc.WriteEvent(ev); err != nil {
				return fmt.Errorf("track %q: %w", track.ID, err)
			}
		}
		if err := enc.EndTrack(); err != nil {
			return fmt.Errorf("track %q: %w", track.ID, err)
		}
	}
	return enc.Finish()
}

// Encode is EncodeSheet into a fresh buffer.
func Encode(s *sheet.Sheet, cfg EncoderConfig) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodeSheet(&buf, s, cfg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SheetBuilder folds decoded stream events back into a Sheet.
type SheetBuilder struct {
	sheet *sheet.Sheet
	track sheet.TrackHandle
	open  bool
	done  bool
}

func NewSheetBuilder(ticksPerBeat uint64, opts ...sheet.Option) *SheetBuilder {
	opts = append([]sheet.Option{sheet.WithTicksPerBeat(ticksPerBeat)}, opts...)
	return &SheetBuilder{sheet: sheet.New(opts...)}
}

// Apply consumes one stream event.
func (b *SheetBuilder) Apply(ev model.StreamEvent) error {
	switch v := ev.(type) {
	case model.TrackStart:
		h, err := b.sheet.AddTrack(v.ID)
		if err != nil {
			return err
		}
		b.track = h
		b.open = true
	case model.TrackEnd:
		b.open = false
	case model.StreamEnd:
		b.done = true
	case model.Event:
		if !b.open {
			return fmt.Errorf("%w: event outside a track", ErrProtocolViolation)
		}
		return b.sheet.Append(b.track, v)
	default:
		return fmt.Errorf("stream: unsupported stream event %T", ev)
	}
	return nil
}

// Complete reports whether StreamEnd has been applied.
func (b *SheetBuilder) Complete() bool {
	return b.done
}

func (b *SheetBuilder) Sheet() *sheet.Sheet {
	return b.sheet
}

// DecodeSheet decodes a whole in-memory stream into a Sheet. Streams whose
// tracks carry an empty id are legal on the wire and decode event by event
// through Decoder.Next, but a Sheet refuses them, so DecodeSheet and
// ReadSheet fail with sheet.ErrEmptyTrackID.
func DecodeSheet(data []byte, cfg DecoderConfig, opts ...sheet.Option) (*sheet.Sheet, error) {
	d := NewDecoder(cfg)
	d.Feed(data)
	d.CloseInput()
	var b *SheetBuilder
	for {
		ev, err := d.Next()
		if errors.Is(err, io.EOF) {
			return b.Sheet(), nil
		}
		if err != nil {
			return nil, err
		}
		if b == nil {
			b = NewSheetBuilder(d.TicksPerBeat(), opts...)
		}
		if err := b.Apply(ev); err != nil {
			return nil, err
		}
	}
}

// ReadSheet decodes a stream pulled from r into a Sheet.
func ReadSheet(ctx context.Context, r io.Reader, cfg DecoderConfig, opts ...sheet.Option) (*sheet.Sheet, error) {
	var b *SheetBuilder
	d, err := DecodeReader(ctx, r, cfg, func(d *Decoder, ev model.StreamEvent) error {
		if b == nil {
			b = NewSheetBuilder(d.TicksPerBeat(), opts...)
		}
		return b.Apply(ev)
	})
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, fmt.Errorf("%w: no events decoded (state %s)", ErrTruncated, d.State())
	}
	return b.Sheet(), nil
}
