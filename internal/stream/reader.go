package stream

import (
	"context"
	"errors"
	"io"

	"github.com/danmuck/floww/internal/model"
)

// DecodeReader pulls chunks of cfg.ChunkSize from r into a new Decoder and
// hands every decoded event to fn. It returns once StreamEnd is consumed, on
// the first decode or read error, when fn fails, or when ctx is done. Bytes
// after StreamEnd are not read.
func DecodeReader(ctx context.Context, r io.Reader, cfg DecoderConfig, fn func(*Decoder, model.StreamEvent) error) (*Decoder, error) {
	d := NewDecoder(cfg)
	chunk := make([]byte, d.cfg.ChunkSize)
	for {
		for ev, err := range d.All() {
			if err != nil {
				return d, err
			}
			if err := fn(d, ev); err != nil {
				return d, err
			}
		}
		if d.State() == Finished {
			return d, nil
		}
		if err := ctx.Err(); err != nil {
			return d, err
		}

		n, err := r.Read(chunk)
		if n > 0 {
			d.Feed(chunk[:n])
		}
		if errors.Is(err, io.EOF) {
			d.CloseInput()
			continue
		}
		if err != nil {
			return d, err
		}
	}
}
