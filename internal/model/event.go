package model

// Data byte limits shared by notes and channel messages.
const (
	MaxDataValue = 127
	MaxChannel   = 15
)

// StreamEvent is any unit carried by a Floww stream.
type StreamEvent interface {
	streamEvent()
}

// Event is a timed event that can be placed in a track.
type Event interface {
	StreamEvent
	At() uint64
	Validate() error
}

// Note is a pitched event with an onset and a duration, both in ticks.
type Note struct {
	Onset    uint64
	Duration uint64
	Pitch    uint8
	Velocity uint8
}

func (Note) streamEvent() {}

func (n Note) At() uint64 { return n.Onset }

func (n Note) Validate() error {
	if n.Pitch > MaxDataValue {
		return ValidationError{Field: "pitch", Value: int64(n.Pitch)}
	}
	if n.Velocity > MaxDataValue {
		return ValidationError{Field: "velocity", Value: int64(n.Velocity)}
	}
	return nil
}

// NewNote builds a Note, rejecting pitch or velocity outside 0..127.
func NewNote(onset, duration uint64, pitch, velocity int) (Note, error) {
	return Strict.Note(onset, duration, pitch, velocity)
}

// TrackStart opens a track in a stream.
type TrackStart struct {
	ID string
}

func (TrackStart) streamEvent() {}

// TrackEnd closes the open track in a stream.
type TrackEnd struct{}

func (TrackEnd) streamEvent() {}

// StreamEnd terminates a stream. Verified reports whether the trailing
// checksum matched the bytes that preceded it.
type StreamEnd struct {
	Checksum uint32
	Verified bool
}

func (StreamEnd) streamEvent() {}
