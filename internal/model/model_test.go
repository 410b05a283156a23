package model

import (
	"bytes"
	"errors"
	"testing"

	"github.com/danmuck/floww/internal/testutil/testlog"
)

func TestNewNoteRejectsOutOfRangeVelocity(t *testing.T) {
	testlog.Start(t)
	_, err := NewNote(0, 480, 60, 200)
	if !errors.Is(err, ErrInvalidField) {
		t.Fatalf("expected ErrInvalidField, got %v", err)
	}
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if verr.Field != "velocity" || verr.Value != 200 {
		t.Fatalf("unexpected validation error: %+v", verr)
	}
}

func TestNewNoteRejectsNegativePitch(t *testing.T) {
	testlog.Start(t)
	if _, err := NewNote(0, 0, -1, 10); !errors.Is(err, ErrInvalidField) {
		t.Fatalf("expected ErrInvalidField, got %v", err)
	}
}

func TestClampValidationPinsFields(t *testing.T) {
	testlog.Start(t)
	n, err := Clamp.Note(10, 20, 300, -5)
	if err != nil {
		t.Fatalf("clamp note: %v", err)
	}
	if n.Pitch != 127 || n.Velocity != 0 {
		t.Fatalf("unexpected clamped note: %+v", n)
	}
	pb, err := Clamp.PitchBend(0, 20, 9000)
	if err != nil {
		t.Fatalf("clamp bend: %v", err)
	}
	if pb.Channel != MaxChannel || pb.Value != MaxPitchBend {
		t.Fatalf("unexpected clamped bend: %+v", pb)
	}
	tempo, err := Clamp.Tempo(0, 0)
	if err != nil {
		t.Fatalf("clamp tempo: %v", err)
	}
	if tempo.MicrosPerBeat != 1 {
		t.Fatalf("unexpected clamped tempo: %+v", tempo)
	}
}

func TestStrictMessageConstructors(t *testing.T) {
	testlog.Start(t)
	if _, err := Strict.ControlChange(0, 16, 1, 1); !errors.Is(err, ErrInvalidField) {
		t.Fatalf("expected channel error, got %v", err)
	}
	if _, err := Strict.ProgramChange(0, 0, 128); !errors.Is(err, ErrInvalidField) {
		t.Fatalf("expected program error, got %v", err)
	}
	if _, err := Strict.Tempo(0, -1); !errors.Is(err, ErrInvalidField) {
		t.Fatalf("expected tempo error, got %v", err)
	}
	cc, err := Strict.ControlChange(96, 3, 7, 100)
	if err != nil {
		t.Fatalf("control change: %v", err)
	}
	if cc.At() != 96 || cc.Kind() != KindControlChange {
		t.Fatalf("unexpected control change: %+v", cc)
	}
}

func TestMessagePayloadRoundTrip(t *testing.T) {
	testlog.Start(t)
	messages := []Message{
		ControlChange{Time: 1, Channel: 2, Controller: 64, Value: 127},
		ProgramChange{Time: 2, Channel: 9, Program: 33},
		PitchBend{Time: 3, Channel: 0, Value: MinPitchBend},
		PitchBend{Time: 4, Channel: 15, Value: 1234},
		Tempo{Time: 5, MicrosPerBeat: 500000},
		Marker{Time: 6, Text: "chorus"},
		Marker{Time: 7, Text: ""},
	}
	for _, msg := range messages {
		payload := msg.Payload()
		decoded, err := DecodeMessage(msg.Kind(), msg.At(), payload)
		if err != nil {
			t.Fatalf("decode %s: %v", msg.Kind(), err)
		}
		if decoded != msg {
			t.Fatalf("round-trip mismatch: got %+v want %+v", decoded, msg)
		}
		if !bytes.Equal(decoded.Payload(), payload) {
			t.Fatalf("payload mismatch for %s", msg.Kind())
		}
	}
}

func TestDecodeMessageRejectsMalformedPayloads(t *testing.T) {
	testlog.Start(t)
	if _, err := DecodeMessage(KindTempo, 0, []byte{1, 2}); !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
	if _, err := DecodeMessage(KindControlChange, 0, []byte{0, 200, 1}); !errors.Is(err, ErrInvalidField) {
		t.Fatalf("expected ErrInvalidField, got %v", err)
	}
	if _, err := DecodeMessage(KindTempo, 0, []byte{0, 0, 0, 0}); !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("expected zero tempo to fail, got %v", err)
	}
	if _, err := DecodeMessage(MessageKind(0x40), 0, nil); !errors.Is(err, ErrUnknownMessageKind) {
		t.Fatalf("expected ErrUnknownMessageKind, got %v", err)
	}
	if _, err := DecodeMessage(KindMarker, 0, []byte{0xff, 0xfe}); !errors.Is(err, ErrInvalidField) {
		t.Fatalf("expected invalid utf-8 marker to fail, got %v", err)
	}
}
