// Package wire holds the Floww Stream byte-level primitives: header
// constants, frame tags, varints and the stream checksum.
package wire

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
	"math/bits"
)

// Magic opens every stream.
var Magic = [4]byte{'F', 'L', 'W', 'W'}

const (
	Version    uint8 = 1
	MinVersion uint8 = 1

	// MaxVarintLen is the longest legal uvarint (a full uint64).
	MaxVarintLen = binary.MaxVarintLen64
	// ChecksumLen is the size of the StreamEnd payload.
	ChecksumLen = 4
)

// Tag is the leading byte of a frame.
type Tag uint8

const (
	TagTrackStart Tag = 0x01
	TagNote       Tag = 0x02
	TagMessage    Tag = 0x03
	TagTrackEnd   Tag = 0x04
	TagStreamEnd  Tag = 0xFF

	ExtensionMin Tag = 0x80
	ExtensionMax Tag = 0xFE
)

func (t Tag) IsExtension() bool {
	return t >= ExtensionMin && t <= ExtensionMax
}

// Known reports whether t is a core tag or inside the extension range.
func (t Tag) Known() bool {
	switch t {
	case TagTrackStart, TagNote, TagMessage, TagTrackEnd, TagStreamEnd:
		return true
	}
	return t.IsExtension()
}

func (t Tag) String() string {
	switch t {
	case TagTrackStart:
		return "track_start"
	case TagNote:
		return "note"
	case TagMessage:
		return "message"
	case TagTrackEnd:
		return "track_end"
	case TagStreamEnd:
		return "stream_end"
	}
	if t.IsExtension() {
		return "extension"
	}
	return "unknown"
}

var (
	ErrShortBuffer      = errors.New("wire: short buffer")
	ErrVarintOverflow   = errors.New("wire: varint overflows uint64")
	ErrVarintNonMinimal = errors.New("wire: varint not minimally encoded")
)

// AppendUvarint appends v as an unsigned LEB128 varint.
func AppendUvarint(buf []byte, v uint64) []byte {
	return binary.AppendUvarint(buf, v)
}

// UvarintLen is the encoded size of v.
func UvarintLen(v uint64) int {
	if v == 0 {
		return 1
	}
	return (bits.Len64(v) + 6) / 7
}

// Uvarint reads a minimal varint from the front of buf. ErrShortBuffer means
// the varint continues past the end of buf.
func Uvarint(buf []byte) (uint64, int, error) {
	v, n := binary.Uvarint(buf)
	switch {
	case n == 0:
		return 0, 0, ErrShortBuffer
	case n < 0:
		return 0, 0, ErrVarintOverflow
	case n != UvarintLen(v):
		return 0, 0, ErrVarintNonMinimal
	}
	return v, n, nil
}

// AppendBytes appends a uvarint length prefix followed by b.
func AppendBytes(buf, b []byte) []byte {
	buf = AppendUvarint(buf, uint64(len(b)))
	return append(buf, b...)
}

// Bytes reads a length-prefixed byte string. The returned slice aliases buf.
// When the prefix declares more than limit bytes, the declared length is
// returned with ErrLengthLimit before any payload is required.
func Bytes(buf []byte, limit uint64) ([]byte, int, error) {
	l, n, err := Uvarint(buf)
	if err != nil {
		return nil, 0, err
	}
	if l > limit {
		return nil, n, LengthLimitError{Declared: l, Limit: limit}
	}
	if uint64(len(buf)-n) < l {
		return nil, 0, ErrShortBuffer
	}
	end := n + int(l)
	return buf[n:end], end, nil
}

// Checksum is the running CRC-32 (IEEE) over every stream byte from the
// magic up to and including the StreamEnd tag.
type Checksum struct {
	sum uint32
}

func (c *Checksum) Update(p []byte) {
	c.sum = crc32.Update(c.sum, crc32.IEEETable, p)
}

func (c *Checksum) Sum32() uint32 {
	return c.sum
}

func AppendChecksum(buf []byte, sum uint32) []byte {
	return binary.BigEndian.AppendUint32(buf, sum)
}

func ReadChecksum(buf []byte) (uint32, error) {
	if len(buf) < ChecksumLen {
		return 0, ErrShortBuffer
	}
	return binary.BigEndian.Uint32(buf[:ChecksumLen]), nil
}
