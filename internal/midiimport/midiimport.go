// Package midiimport turns Standard MIDI Files into Floww events.
//
// Note-on/note-off pairs become Notes (matched first-in first-out per
// channel and key). Control change, program change, pitch bend, tempo and
// marker events become Messages. Everything else is dropped.
package midiimport

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"strings"

	"github.com/danmuck/floww/internal/logging"
	"github.com/danmuck/floww/internal/model"
	"github.com/danmuck/floww/internal/sheet"
	"github.com/danmuck/floww/internal/stream"
	"github.com/rs/zerolog"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

var ErrUnsupportedTimeFormat = errors.New("midiimport: unsupported time format")

const DefaultTrackPrefix = "track"

type Options struct {
	// Validation decides whether out-of-range values fail the import or
	// are clamped.
	Validation model.Validation
	// TrackPrefix names tracks that carry no track-name meta event.
	TrackPrefix string
	// SkipEmpty drops tracks that produce no events.
	SkipEmpty bool
	Logger    *zerolog.Logger
}

func DefaultOptions() Options {
	return Options{
		Validation:  model.Strict,
		TrackPrefix: DefaultTrackPrefix,
	}
}

func (o Options) logger() zerolog.Logger {
	if o.Logger != nil {
		return o.Logger.With().Str("component", "midiimport").Logger()
	}
	return logging.For("midiimport")
}

// Track is one converted MIDI track, events sorted by onset.
type Track struct {
	ID     string
	Events []model.Event
}

// Read parses an SMF and converts every track.
func Read(r io.Reader, opts Options) (uint64, []Track, error) {
	if opts.TrackPrefix == "" {
		opts.TrackPrefix = DefaultTrackPrefix
	}
	log := opts.logger()

	file, err := smf.ReadFrom(r)
	if err != nil {
		return 0, nil, fmt.Errorf("midiimport: read smf: %w", err)
	}
	tpb, err := ticksPerBeat(file.TimeFormat)
	if err != nil {
		return 0, nil, err
	}

	used := make(map[string]struct{}, len(file.Tracks))
	tracks := make([]Track, 0, len(file.Tracks))
	for i, src := range file.Tracks {
		conv, err := convertTrack(src, opts.Validation)
		if err != nil {
			return 0, nil, fmt.Errorf("midiimport: track %d: %w", i, err)
		}
		if conv.skipped > 0 {
			log.Debug().Int("track", i).Int("skipped", conv.skipped).Msg("dropped unsupported midi events")
		}
		if len(conv.events) == 0 && opts.SkipEmpty {
			continue
		}
		name := strings.TrimSpace(conv.name)
		if name == "" {
			name = fmt.Sprintf("%s-%d", opts.TrackPrefix, i)
		}
		id := uniqueID(name, used)
		tracks = append(tracks, Track{ID: id, Events: conv.events})
	}
	log.Debug().Uint64("ticks_per_beat", tpb).Int("tracks", len(tracks)).Msg("midi imported")
	return tpb, tracks, nil
}

// Import reads an SMF into a new Sheet.
func Import(r io.Reader, opts Options, sheetOpts ...sheet.Option) (*sheet.Sheet, error) {
	tpb, tracks, err := Read(r, opts)
	if err != nil {
		return nil, err
	}
	s := sheet.New(append([]sheet.Option{sheet.WithTicksPerBeat(tpb)}, sheetOpts...)...)
	for _, track := range tracks {
		h, err := s.AddTrack(track.ID)
		if err != nil {
			return nil, err
		}
		if err := s.ReplaceEvents(h, track.Events); err != nil {
			return nil, fmt.Errorf("midiimport: track %q: %w", track.ID, err)
		}
	}
	return s, nil
}

// Stream reads an SMF and feeds it straight into a stream encoder writing
// to w, without building a Sheet.
func Stream(r io.Reader, w io.Writer, cfg stream.EncoderConfig, opts Options) (*stream.Encoder, error) {
	tpb, tracks, err := Read(r, opts)
	if err != nil {
		return nil, err
	}
	cfg.TicksPerBeat = tpb
	enc := stream.NewEncoder(w, cfg)
	if err := enc.Start(); err != nil {
		return enc, err
	}
	for _, track := range tracks {
		if err := enc.BeginTrack(track.ID); err != nil {
			return enc, err
		}
		for _, ev := range track.Events {
			if err := enc.WriteEvent(ev); err != nil {
				return enc, fmt.Errorf("midiimport: track %q: %w", track.ID, err)
			}
		}
		if err := enc.EndTrack(); err != nil {
			return enc, err
		}
	}
	return enc, enc.Finish()
}

func ticksPerBeat(tf smf.TimeFormat) (uint64, error) {
	ticks, ok := tf.(smf.MetricTicks)
	if !ok || ticks == 0 {
		return 0, fmt.Errorf("%w: %v", ErrUnsupportedTimeFormat, tf)
	}
	return uint64(ticks), nil
}

type noteKey struct {
	channel uint8
	key     uint8
}

type openNote struct {
	onset    uint64
	velocity uint8
}

type converted struct {
	name    string
	events  []model.Event
	skipped int
}

func convertTrack(track smf.Track, v model.Validation) (converted, error) {
	var (
		out  converted
		abs  uint64
		open = make(map[noteKey][]openNote)
		// note-on order, used to close dangling notes deterministically
		order []noteKey
	)

	add := func(ev model.Event, err error) error {
		if err != nil {
			return err
		}
		out.events = append(out.events, ev)
		return nil
	}

	for _, ev := range track {
		abs += uint64(ev.Delta)
		msg := midi.Message(ev.Message)

		var (
			channel, key, velocity uint8
			controller, value      uint8
			program                uint8
			bend                   int16
			bendAbs                uint16
			bpm                    float64
			text                   string
			err                    error
		)
		switch {
		case msg.GetNoteStart(&channel, &key, &velocity):
			k := noteKey{channel: channel, key: key}
			open[k] = append(open[k], openNote{onset: abs, velocity: velocity})
			order = append(order, k)
		case msg.GetNoteEnd(&channel, &key):
			k := noteKey{channel: channel, key: key}
			pending := open[k]
			if len(pending) == 0 {
				out.skipped++
				continue
			}
			on := pending[0]
			open[k] = pending[1:]
			order = removeFirst(order, k)
			err = add(v.Note(on.onset, abs-on.onset, int(key), int(on.velocity)))
		case msg.GetControlChange(&channel, &controller, &value):
			err = add(v.ControlChange(abs, int(channel), int(controller), int(value)))
		case msg.GetProgramChange(&channel, &program):
			err = add(v.ProgramChange(abs, int(channel), int(program)))
		case msg.GetPitchBend(&channel, &bend, &bendAbs):
			err = add(v.PitchBend(abs, int(channel), int(bend)))
		case ev.Message.GetMetaTempo(&bpm):
			if bpm <= 0 {
				out.skipped++
				continue
			}
			err = add(v.Tempo(abs, int64(math.Round(60_000_000/bpm))))
		case ev.Message.GetMetaMarker(&text):
			err = add(model.Marker{Time: abs, Text: strings.ToValidUTF8(text, "?")}, nil)
		case ev.Message.GetMetaTrackName(&text):
			if out.name == "" {
				out.name = strings.ToValidUTF8(text, "?")
			}
		default:
			out.skipped++
		}
		if err != nil {
			return converted{}, err
		}
	}

	for _, k := range order {
		pending := open[k]
		on := pending[0]
		open[k] = pending[1:]
		note, err := v.Note(on.onset, abs-on.onset, int(k.key), int(on.velocity))
		if err != nil {
			return converted{}, err
		}
		out.events = append(out.events, note)
	}

	slices.SortStableFunc(out.events, func(a, b model.Event) int {
		return cmp.Compare(a.At(), b.At())
	})
	return out, nil
}

func removeFirst(order []noteKey, k noteKey) []noteKey {
	i := slices.Index(order, k)
	if i < 0 {
		return order
	}
	return slices.Delete(order, i, i+1)
}

func uniqueID(name string, used map[string]struct{}) string {
	id := name
	for n := 2; ; n++ {
		if _, taken := used[id]; !taken {
			break
		}
		id = fmt.Sprintf("%s-%d", name, n)
	}
	used[id] = struct{}{}
	return id
}
