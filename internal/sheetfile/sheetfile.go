// Package sheetfile saves and loads whole Sheets as TOML documents.
//
//	format = 1
//	ticks_per_beat = 480
//
//	[[tracks]]
//	id = "piano"
//
//	  [[tracks.events]]
//	  kind = "note"
//	  at = 0
//	  duration = 480
//	  pitch = 60
//	  velocity = 100
//
// Loading re-validates every event and rebuilds the Sheet through its API,
// so a document can never produce a Sheet the API would refuse.
package sheetfile

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/floww/internal/model"
	"github.com/danmuck/floww/internal/sheet"
)

const FormatVersion = 1

var (
	ErrUnsupportedFormat = errors.New("sheetfile: unsupported format")
	ErrUnknownEventKind  = errors.New("sheetfile: unknown event kind")
	ErrValueRange        = errors.New("sheetfile: value out of range")
	ErrUndecodedKeys     = errors.New("sheetfile: unknown keys")
)

const noteKind = "note"

type document struct {
	Format       int        `toml:"format"`
	TicksPerBeat int64      `toml:"ticks_per_beat"`
	Tracks       []trackDoc `toml:"tracks"`
}

type trackDoc struct {
	ID     string     `toml:"id"`
	Events []eventDoc `toml:"events,omitempty"`
}

type eventDoc struct {
	Kind       string `toml:"kind"`
	At         int64  `toml:"at"`
	Duration   int64  `toml:"duration,omitempty"`
	Pitch      int    `toml:"pitch,omitempty"`
	Velocity   int    `toml:"velocity,omitempty"`
	Channel    int    `toml:"channel,omitempty"`
	Controller int    `toml:"controller,omitempty"`
	Value      int    `toml:"value,omitempty"`
	Program    int    `toml:"program,omitempty"`
	Bend       int    `toml:"bend,omitempty"`
	Tempo      int64  `toml:"micros_per_beat,omitempty"`
	Text       string `toml:"text,omitempty"`
}

// Write encodes s as a TOML document.
func Write(w io.Writer, s *sheet.Sheet) error {
	doc, err := toDocument(s)
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(w).Encode(doc); err != nil {
		return fmt.Errorf("sheetfile: encode: %w", err)
	}
	return nil
}

// Read decodes a TOML document into a Sheet. Keys the
// format does not define are rejected.
func Read(r io.Reader, opts ...sheet.Option) (*sheet.Sheet, error) {
	var doc document
	meta, err := toml.NewDecoder(r).Decode(&doc)
	if err != nil {
		return nil, fmt.Errorf("sheetfile: parse: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("%w: %s", ErrUndecodedKeys, strings.Join(keys, ", "))
	}
	return fromDocument(doc, opts...)
}

func Save(path string, s *sheet.Sheet) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("sheetfile: save failed (%s): %w", path, err)
	}
	if err := Write(f, s); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func Load(path string, opts ...sheet.Option) (*sheet.Sheet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("sheetfile: load failed (%s): %w", path, err)
	}
	defer f.Close()
	return Read(f, opts...)
}

func toDocument(s *sheet.Sheet) (document, error) {
	tpb, err := toInt64("ticks_per_beat", s.TicksPerBeat)
	if err != nil {
		return document{}, err
	}
	doc := document{Format: FormatVersion, TicksPerBeat: tpb}
	for _, track := range s.Tracks() {
		td := trackDoc{ID: track.ID}
		for _, ev := range track.Events() {
			ed, err := eventToDoc(ev)
			if err != nil {
				return document{}, fmt.Errorf("sheetfile: track %q: %w", track.ID, err)
			}
			td.Events = append(td.Events, ed)
		}
		doc.Tracks = append(doc.Tracks, td)
	}
	return doc, nil
}

func eventToDoc(ev model.Event) (eventDoc, error) {
	at, err := toInt64("at", ev.At())
	if err != nil {
		return eventDoc{}, err
	}
	ed := eventDoc{At: at}
	switch v := ev.(type) {
	case model.Note:
		dur, err := toInt64("duration", v.Duration)
		if err != nil {
			return eventDoc{}, err
		}
		ed.Kind = noteKind
		ed.Duration = dur
		ed.Pitch = int(v.Pitch)
		ed.Velocity = int(v.Velocity)
	case model.ControlChange:
		ed.Kind = v.Kind().String()
		ed.Channel = int(v.Channel)
		ed.Controller = int(v.Controller)
		ed.Value = int(v.Value)
	case model.ProgramChange:
		ed.Kind = v.Kind().String()
		ed.Channel = int(v.Channel)
		ed.Program = int(v.Program)
	case model.PitchBend:
		ed.Kind = v.Kind().String()
		ed.Channel = int(v.Channel)
		ed.Bend = int(v.Value)
	case model.Tempo:
		ed.Kind = v.Kind().String()
		ed.Tempo = int64(v.MicrosPerBeat)
	case model.Marker:
		ed.Kind = v.Kind().String()
		ed.Text = v.Text
	default:
		return eventDoc{}, fmt.Errorf("%w: %T", ErrUnknownEventKind, ev)
	}
	return ed, nil
}

func fromDocument(doc document, opts ...sheet.Option) (*sheet.Sheet, error) {
	if doc.Format != FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedFormat, doc.Format)
	}
	if doc.TicksPerBeat <= 0 {
		return nil, fmt.Errorf("%w: ticks_per_beat %d", ErrValueRange, doc.TicksPerBeat)
	}
	opts = append([]sheet.Option{sheet.WithTicksPerBeat(uint64(doc.TicksPerBeat))}, opts...)
	s := sheet.New(opts...)
	for i, td := range doc.Tracks {
		h, err := s.AddTrack(td.ID)
		if err != nil {
			return nil, fmt.Errorf("sheetfile: tracks[%d]: %w", i, err)
		}
		for j, ed := range td.Events {
			ev, err := docToEvent(ed)
			if err != nil {
				return nil, fmt.Errorf("sheetfile: tracks[%d].events[%d]: %w", i, j, err)
			}
			if err := s.Append(h, ev); err != nil {
				return nil, fmt.Errorf("sheetfile: tracks[%d].events[%d]: %w", i, j, err)
			}
		}
	}
	return s, nil
}

func docToEvent(ed eventDoc) (model.Event, error) {
	if ed.At < 0 {
		return nil, fmt.Errorf("%w: at %d", ErrValueRange, ed.At)
	}
	at := uint64(ed.At)
	switch ed.Kind {
	case noteKind:
		if ed.Duration < 0 {
			return nil, fmt.Errorf("%w: duration %d", ErrValueRange, ed.Duration)
		}
		return model.NewNote(at, uint64(ed.Duration), ed.Pitch, ed.Velocity)
	case model.KindControlChange.String():
		return model.Strict.ControlChange(at, ed.Channel, ed.Controller, ed.Value)
	case model.KindProgramChange.String():
		return model.Strict.ProgramChange(at, ed.Channel, ed.Program)
	case model.KindPitchBend.String():
		return model.Strict.PitchBend(at, ed.Channel, ed.Bend)
	case model.KindTempo.String():
		return model.Strict.Tempo(at, ed.Tempo)
	case model.KindMarker.String():
		m := model.Marker{Time: at, Text: ed.Text}
		return m, m.Validate()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventKind, ed.Kind)
	}
}

func toInt64(field string, v uint64) (int64, error) {
	if v > math.MaxInt64 {
		return 0, fmt.Errorf("%w: %s %d", ErrValueRange, field, v)
	}
	return int64(v), nil
}
