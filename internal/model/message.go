package model

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"
)

// MessageKind is the fixed wire tag of a message variant.
type MessageKind uint8

const (
	KindControlChange MessageKind = 0x01
	KindProgramChange MessageKind = 0x02
	KindPitchBend     MessageKind = 0x03
	KindTempo         MessageKind = 0x04
	KindMarker        MessageKind = 0x05
)

const (
	MinPitchBend = -8192
	MaxPitchBend = 8191
)

func (k MessageKind) String() string {
	switch k {
	case KindControlChange:
		return "control_change"
	case KindProgramChange:
		return "program_change"
	case KindPitchBend:
		return "pitch_bend"
	case KindTempo:
		return "tempo"
	case KindMarker:
		return "marker"
	default:
		return fmt.Sprintf("kind(0x%02x)", uint8(k))
	}
}

// Message is a timed non-note event. The variant set is closed: new kinds
// travel as stream extension frames instead.
type Message interface {
	Event
	Kind() MessageKind
	Payload() []byte
	message()
}

// ControlChange is a channel controller update.
type ControlChange struct {
	Time       uint64
	Channel    uint8
	Controller uint8
	Value      uint8
}

// ProgramChange selects a program (instrument) on a channel.
type ProgramChange struct {
	Time    uint64
	Channel uint8
	Program uint8
}

// PitchBend is a signed 14-bit bend centred on zero.
type PitchBend struct {
	Time    uint64
	Channel uint8
	Value   int16
}

// Tempo sets the beat length in microseconds from Time onwards.
type Tempo struct {
	Time          uint64
	MicrosPerBeat uint32
}

// Marker is a free-text cue.
type Marker struct {
	Time uint64
	Text string
}

func (ControlChange) streamEvent() {}
func (ProgramChange) streamEvent() {}
func (PitchBend) streamEvent()     {}
func (Tempo) streamEvent()         {}
func (Marker) streamEvent()        {}

func (ControlChange) message() {}
func (ProgramChange) message() {}
func (PitchBend) message()     {}
func (Tempo) message()         {}
func (Marker) message()        {}

func (m ControlChange) At() uint64 { return m.Time }
func (m ProgramChange) At() uint64 { return m.Time }
func (m PitchBend) At() uint64     { return m.Time }
func (m Tempo) At() uint64         { return m.Time }
func (m Marker) At() uint64        { return m.Time }

func (ControlChange) Kind() MessageKind { return KindControlChange }
func (ProgramChange) Kind() MessageKind { return KindProgramChange }
func (PitchBend) Kind() MessageKind     { return KindPitchBend }
func (Tempo) Kind() MessageKind         { return KindTempo }
func (Marker) Kind() MessageKind        { return KindMarker }

func (m ControlChange) Payload() []byte {
	return []byte{m.Channel, m.Controller, m.Value}
}

func (m ProgramChange) Payload() []byte {
	return []byte{m.Channel, m.Program}
}

func (m PitchBend) Payload() []byte {
	buf := make([]byte, 3)
	buf[0] = m.Channel
	binary.BigEndian.PutUint16(buf[1:3], uint16(m.Value))
	return buf
}

func (m Tempo) Payload() []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, m.MicrosPerBeat)
	return buf
}

func (m Marker) Payload() []byte {
	return []byte(m.Text)
}

func (m ControlChange) Validate() error {
	if m.Channel > MaxChannel {
		return ValidationError{Field: "channel", Value: int64(m.Channel)}
	}
	if m.Controller > MaxDataValue {
		return ValidationError{Field: "controller", Value: int64(m.Controller)}
	}
	if m.Value > MaxDataValue {
		return ValidationError{Field: "value", Value: int64(m.Value)}
	}
	return nil
}

func (m ProgramChange) Validate() error {
	if m.Channel > MaxChannel {
		return ValidationError{Field: "channel", Value: int64(m.Channel)}
	}
	if m.Program > MaxDataValue {
		return ValidationError{Field: "program", Value: int64(m.Program)}
	}
	return nil
}

func (m PitchBend) Validate() error {
	if m.Channel > MaxChannel {
		return ValidationError{Field: "channel", Value: int64(m.Channel)}
	}
	if m.Value < MinPitchBend || m.Value > MaxPitchBend {
		return ValidationError{Field: "bend", Value: int64(m.Value)}
	}
	return nil
}

func (m Tempo) Validate() error {
	if m.MicrosPerBeat == 0 {
		return ValidationError{Field: "micros_per_beat", Value: 0}
	}
	return nil
}

func (m Marker) Validate() error {
	if !utf8.ValidString(m.Text) {
		return ValidationError{Field: "text", Value: int64(len(m.Text))}
	}
	return nil
}

// DecodeMessage rebuilds a message from its kind, timestamp and payload.
func DecodeMessage(kind MessageKind, at uint64, payload []byte) (Message, error) {
	var msg Message
	switch kind {
	case KindControlChange:
		if len(payload) != 3 {
			return nil, payloadSizeError(kind, len(payload))
		}
		msg = ControlChange{Time: at, Channel: payload[0], Controller: payload[1], Value: payload[2]}
	case KindProgramChange:
		if len(payload) != 2 {
			return nil, payloadSizeError(kind, len(payload))
		}
		msg = ProgramChange{Time: at, Channel: payload[0], Program: payload[1]}
	case KindPitchBend:
		if len(payload) != 3 {
			return nil, payloadSizeError(kind, len(payload))
		}
		msg = PitchBend{Time: at, Channel: payload[0], Value: int16(binary.BigEndian.Uint16(payload[1:3]))}
	case KindTempo:
		if len(payload) != 4 {
			return nil, payloadSizeError(kind, len(payload))
		}
		msg = Tempo{Time: at, MicrosPerBeat: binary.BigEndian.Uint32(payload)}
	case KindMarker:
		msg = Marker{Time: at, Text: string(payload)}
	default:
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownMessageKind, uint8(kind))
	}
	if err := msg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	return msg, nil
}

func payloadSizeError(kind MessageKind, got int) error {
	return fmt.Errorf("%w: %s payload is %d bytes", ErrInvalidPayload, kind, got)
}
