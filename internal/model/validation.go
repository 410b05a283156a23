package model

import "math"

// Validation selects how constructors treat out-of-range fields.
type Validation int

const (
	// Strict rejects out-of-range fields with a ValidationError.
	Strict Validation = iota
	// Clamp pins out-of-range fields to the nearest legal value.
	Clamp
)

func (v Validation) String() string {
	switch v {
	case Strict:
		return "strict"
	case Clamp:
		return "clamp"
	default:
		return "unknown"
	}
}

func (v Validation) field(name string, value, lo, hi int64) (int64, error) {
	if value >= lo && value <= hi {
		return value, nil
	}
	if v == Clamp {
		return min(max(value, lo), hi), nil
	}
	return 0, ValidationError{Field: name, Value: value}
}

func (v Validation) Note(onset, duration uint64, pitch, velocity int) (Note, error) {
	p, err := v.field("pitch", int64(pitch), 0, MaxDataValue)
	if err != nil {
		return Note{}, err
	}
	vel, err := v.field("velocity", int64(velocity), 0, MaxDataValue)
	if err != nil {
		return Note{}, err
	}
	return Note{Onset: onset, Duration: duration, Pitch: uint8(p), Velocity: uint8(vel)}, nil
}

func (v Validation) ControlChange(at uint64, channel, controller, value int) (ControlChange, error) {
	ch, err := v.field("channel", int64(channel), 0, MaxChannel)
	if err != nil {
		return ControlChange{}, err
	}
	ctl, err := v.field("controller", int64(controller), 0, MaxDataValue)
	if err != nil {
		return ControlChange{}, err
	}
	val, err := v.field("value", int64(value), 0, MaxDataValue)
	if err != nil {
		return ControlChange{}, err
	}
	return ControlChange{Time: at, Channel: uint8(ch), Controller: uint8(ctl), Value: uint8(val)}, nil
}

func (v Validation) ProgramChange(at uint64, channel, program int) (ProgramChange, error) {
	ch, err := v.field("channel", int64(channel), 0, MaxChannel)
	if err != nil {
		return ProgramChange{}, err
	}
	prog, err := v.field("program", int64(program), 0, MaxDataValue)
	if err != nil {
		return ProgramChange{}, err
	}
	return ProgramChange{Time: at, Channel: uint8(ch), Program: uint8(prog)}, nil
}

func (v Validation) PitchBend(at uint64, channel, value int) (PitchBend, error) {
	ch, err := v.field("channel", int64(channel), 0, MaxChannel)
	if err != nil {
		return PitchBend{}, err
	}
	bend, err := v.field("bend", int64(value), MinPitchBend, MaxPitchBend)
	if err != nil {
		return PitchBend{}, err
	}
	return PitchBend{Time: at, Channel: uint8(ch), Value: int16(bend)}, nil
}

func (v Validation) Tempo(at uint64, microsPerBeat int64) (Tempo, error) {
	us, err := v.field("micros_per_beat", microsPerBeat, 1, math.MaxUint32)
	if err != nil {
		return Tempo{}, err
	}
	return Tempo{Time: at, MicrosPerBeat: uint32(us)}, nil
}
