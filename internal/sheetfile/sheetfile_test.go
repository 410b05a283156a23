package sheetfile

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danmuck/floww/internal/model"
	"github.com/danmuck/floww/internal/sheet"
	"github.com/danmuck/floww/internal/testutil/testlog"
)

func TestWriteReadRoundTrip(t *testing.T) {
	testlog.Start(t)
	src := sampleSheet(t)
	var buf bytes.Buffer
	if err := Write(&buf, src); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("read: %v\n%s", err, buf.String())
	}
	if !got.Equal(src) {
		t.Fatalf("round-trip mismatch: %+v", got.Tracks())
	}
}

func TestSaveLoad(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "song.toml")
	src := sampleSheet(t)
	if err := Save(path, src); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !got.Equal(src) {
		t.Fatalf("loaded sheet differs")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatalf("expected missing file error")
	}
}

func TestReadHandWrittenDocument(t *testing.T) {
	testlog.Start(t)
	doc := `
format = 1
ticks_per_beat = 96

[[tracks]]
id = "bass"

  [[tracks.events]]
  kind = "note"
  at = 0
  duration = 48
  pitch = 40
  velocity = 90

  [[tracks.events]]
  kind = "control_change"
  at = 48
  channel = 1
  controller = 7
  value = 100
`
	s, err := Read(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if s.TicksPerBeat != 96 || s.Len() != 1 {
		t.Fatalf("unexpected sheet: tpb=%d tracks=%d", s.TicksPerBeat, s.Len())
	}
	events := s.Tracks()[0].Events()
	if len(events) != 2 {
		t.Fatalf("unexpected events: %+v", events)
	}
	if events[1] != (model.ControlChange{Time: 48, Channel: 1, Controller: 7, Value: 100}) {
		t.Fatalf("unexpected control change: %+v", events[1])
	}
}

func TestReadRejectsInvalidDocuments(t *testing.T) {
	testlog.Start(t)
	cases := map[string]struct {
		doc  string
		want error
	}{
		"format": {
			doc:  "format = 2\nticks_per_beat = 480\n",
			want: ErrUnsupportedFormat,
		},
		"ticks per beat": {
			doc:  "format = 1\nticks_per_beat = 0\n",
			want: ErrValueRange,
		},
		"unknown key": {
			doc:  "format = 1\nticks_per_beat = 480\ncolour = \"red\"\n",
			want: ErrUndecodedKeys,
		},
		"unknown kind": {
			doc:  "format = 1\nticks_per_beat = 480\n[[tracks]]\nid = \"a\"\n[[tracks.events]]\nkind = \"sysex\"\nat = 0\n",
			want: ErrUnknownEventKind,
		},
		"negative onset": {
			doc:  "format = 1\nticks_per_beat = 480\n[[tracks]]\nid = \"a\"\n[[tracks.events]]\nkind = \"note\"\nat = -1\n",
			want: ErrValueRange,
		},
		"velocity": {
			doc:  "format = 1\nticks_per_beat = 480\n[[tracks]]\nid = \"a\"\n[[tracks.events]]\nkind = \"note\"\nat = 0\nvelocity = 200\n",
			want: model.ErrInvalidField,
		},
		"duplicate track": {
			doc:  "format = 1\nticks_per_beat = 480\n[[tracks]]\nid = \"a\"\n[[tracks]]\nid = \"a\"\n",
			want: sheet.ErrDuplicateTrackID,
		},
		"out of order": {
			doc:  "format = 1\nticks_per_beat = 480\n[[tracks]]\nid = \"a\"\n[[tracks.events]]\nkind = \"marker\"\nat = 10\n[[tracks.events]]\nkind = \"marker\"\nat = 5\n",
			want: sheet.ErrOutOfOrderEvent,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Read(strings.NewReader(tc.doc)); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestReadAutoSortOption(t *testing.T) {
	testlog.Start(t)
	doc := "format = 1\nticks_per_beat = 480\n[[tracks]]\nid = \"a\"\n" +
		"[[tracks.events]]\nkind = \"marker\"\nat = 10\ntext = \"b\"\n" +
		"[[tracks.events]]\nkind = \"marker\"\nat = 5\ntext = \"a\"\n"
	s, err := Read(strings.NewReader(doc), sheet.WithOrdering(sheet.AutoSort))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	events := s.Tracks()[0].Events()
	if events[0].At() != 5 || events[1].At() != 10 {
		t.Fatalf("expected sorted events, got %+v", events)
	}
}

func sampleSheet(t *testing.T) *sheet.Sheet {
	t.Helper()
	s := sheet.New(sheet.WithTicksPerBeat(960))
	lead, err := s.AddTrack("lead")
	if err != nil {
		t.Fatalf("add track: %v", err)
	}
	for _, ev := range []model.Event{
		model.Tempo{Time: 0, MicrosPerBeat: 500000},
		model.ProgramChange{Time: 0, Channel: 2, Program: 81},
		model.Note{Onset: 0, Duration: 240, Pitch: 72, Velocity: 110},
		model.ControlChange{Time: 120, Channel: 2, Controller: 1, Value: 64},
		model.PitchBend{Time: 200, Channel: 2, Value: -8192},
		model.Note{Onset: 240, Duration: 0, Pitch: 0, Velocity: 0},
		model.Marker{Time: 960, Text: "chorus \"two\""},
		model.Note{Onset: 1 << 40, Duration: 1 << 33, Pitch: 127, Velocity: 127},
	} {
		if err := s.Append(lead, ev); err != nil {
			t.Fatalf("append %+v: %v", ev, err)
		}
	}
	if _, err := s.AddTrack("empty"); err != nil {
		t.Fatalf("add track: %v", err)
	}
	return s
}
