// Package sheet owns the in-memory Floww Sheet: ordered tracks of ordered
// timed events.
package sheet

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/danmuck/floww/internal/model"
)

// DefaultTicksPerBeat is used when no resolution is configured.
const DefaultTicksPerBeat = 480

var (
	ErrDuplicateTrackID = errors.New("sheet: duplicate track id")
	ErrEmptyTrackID     = errors.New("sheet: empty track id")
	ErrInvalidTrackID   = errors.New("sheet: track id is not valid utf-8")
	ErrUnknownTrack     = errors.New("sheet: unknown track")
	ErrOutOfOrderEvent  = errors.New("sheet: out of order event")
	ErrNilEvent         = errors.New("sheet: nil event")
)

// OutOfOrderError reports an append whose onset precedes the last onset.
type OutOfOrderError struct {
	TrackID string
	Onset   uint64
	Last    uint64
}

func (e OutOfOrderError) Error() string {
	return fmt.Sprintf("sheet: track %q: onset %d precedes last onset %d", e.TrackID, e.Onset, e.Last)
}

func (e OutOfOrderError) Is(target error) bool {
	return target == ErrOutOfOrderEvent
}

// Ordering decides what Append does with an event that precedes the
// track's last onset.
type Ordering int

const (
	// Reject fails the append with ErrOutOfOrderEvent.
	Reject Ordering = iota
	// AutoSort inserts the event after every event with an onset <= its own.
	AutoSort
)

func (o Ordering) String() string {
	switch o {
	case Reject:
		return "reject"
	case AutoSort:
		return "sort"
	default:
		return "unknown"
	}
}

// ParseOrdering maps a config value onto an Ordering.
func ParseOrdering(raw string) (Ordering, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "reject", "strict":
		return Reject, nil
	case "sort", "auto_sort", "autosort":
		return AutoSort, nil
	default:
		return Reject, fmt.Errorf("sheet: unknown ordering %q", raw)
	}
}

// TrackHandle addresses a track inside the Sheet that created it.
type TrackHandle int

// Track is an ordered event sequence with an id unique in its Sheet.
type Track struct {
	ID     string
	events []model.Event
}

// Events returns a copy of the track's events.
func (t Track) Events() []model.Event {
	out := make([]model.Event, len(t.events))
	copy(out, t.events)
	return out
}

func (t Track) Len() int {
	return len(t.events)
}

// Sheet is the canonical in-memory document. It is not safe for concurrent
// mutation.
type Sheet struct {
	TicksPerBeat uint64
	ordering     Ordering
	tracks       []*Track
	index        map[string]TrackHandle
}

type Option func(*Sheet)

func WithTicksPerBeat(tpb uint64) Option {
	return func(s *Sheet) {
		if tpb > 0 {
			s.TicksPerBeat = tpb
		}
	}
}

func WithOrdering(o Ordering) Option {
	return func(s *Sheet) {
		s.ordering = o
	}
}

func New(opts ...Option) *Sheet {
	s := &Sheet{
		TicksPerBeat: DefaultTicksPerBeat,
		ordering:     Reject,
		index:        make(map[string]TrackHandle),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sheet) Ordering() Ordering {
	return s.ordering
}

// AddTrack appends an empty track.
func (s *Sheet) AddTrack(id string) (TrackHandle, error) {
	if id == "" {
		return 0, ErrEmptyTrackID
	}
	if !utf8.ValidString(id) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTrackID, id)
	}
	if _, ok := s.index[id]; ok {
		return 0, fmt.Errorf("%w: %q", ErrDuplicateTrackID, id)
	}
	h := TrackHandle(len(s.tracks))
	s.tracks = append(s.tracks, &Track{ID: id})
	s.index[id] = h
	return h, nil
}

// Append adds ev to the track, honouring the sheet's ordering policy.
func (s *Sheet) Append(h TrackHandle, ev model.Event) error {
	t, err := s.track(h)
	if err != nil {
		return err
	}
	if ev == nil {
		return ErrNilEvent
	}
	if err := ev.Validate(); err != nil {
		return err
	}
	n := len(t.events)
	if n == 0 || t.events[n-1].At() <= ev.At() {
		t.events = append(t.events, ev)
		return nil
	}
	if s.ordering == Reject {
		return OutOfOrderError{TrackID: t.ID, Onset: ev.At(), Last: t.events[n-1].At()}
	}
	i := sort.Search(n, func(i int) bool { return t.events[i].At() > ev.At() })
	t.events = append(t.events, nil)
	copy(t.events[i+1:], t.events[i:])
	t.events[i] = ev
	return nil
}

// ReplaceEvents swaps a track's contents. The new events go through the
// same validation and ordering policy as Append; on error the track is left
// untouched.
func (s *Sheet) ReplaceEvents(h TrackHandle, events []model.Event) error {
	t, err := s.track(h)
	if err != nil {
		return err
	}
	scratch := New(WithOrdering(s.ordering))
	sh, _ := scratch.AddTrack(t.ID)
	for _, ev := range events {
		if err := scratch.Append(sh, ev); err != nil {
			return err
		}
	}
	t.events = scratch.tracks[sh].events
	return nil
}

// Tracks returns read-only copies of the tracks in insertion order.
func (s *Sheet) Tracks() []Track {
	out := make([]Track, 0, len(s.tracks))
	for _, t := range s.tracks {
		out = append(out, Track{ID: t.ID, events: t.Events()})
	}
	return out
}

func (s *Sheet) Track(h TrackHandle) (Track, error) {
	t, err := s.track(h)
	if err != nil {
		return Track{}, err
	}
	return Track{ID: t.ID, events: t.Events()}, nil
}

func (s *Sheet) Lookup(id string) (TrackHandle, bool) {
	h, ok := s.index[id]
	return h, ok
}

func (s *Sheet) Len() int {
	return len(s.tracks)
}

// Equal reports whether both sheets hold the same resolution and the same
// tracks, event for event.
func (s *Sheet) Equal(other *Sheet) bool {
	if s == nil || other == nil {
		return s == other
	}
	if s.TicksPerBeat != other.TicksPerBeat || len(s.tracks) != len(other.tracks) {
		return false
	}
	for i, t := range s.tracks {
		o := other.tracks[i]
		if t.ID != o.ID || len(t.events) != len(o.events) {
			return false
		}
		for j := range t.events {
			if t.events[j] != o.events[j] {
				return false
			}
		}
	}
	return true
}

func (s *Sheet) track(h TrackHandle) (*Track, error) {
	if int(h) < 0 || int(h) >= len(s.tracks) {
		return nil, fmt.Errorf("%w: handle %d", ErrUnknownTrack, h)
	}
	return s.tracks[h], nil
}
