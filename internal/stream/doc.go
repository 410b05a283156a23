// Package stream owns the Floww Stream codec.
//
// Ownership boundary:
// - Encoder: model events -> framed, delta-encoded bytes
// - Decoder: arbitrary byte chunks -> model stream events
// - sheet helpers and the reader-driven decode loop
//
// Wire layout (byte primitives live in stream/wire):
//
//	header     "FLWW" version(1) uvarint(ticks_per_beat)
//	0x01       track_start  uvarint(len) id
//	0x02       note         uvarint(delta) pitch(1) velocity(1) uvarint(duration)
//	0x03       message      uvarint(delta) kind(1) uvarint(len) payload
//	0x04       track_end
//	0x80..0xFE extension    uvarint(len) payload (skipped)
//	0xFF       stream_end   crc32(4, big-endian)
//
// The checksum is CRC-32 (IEEE) over every byte from the magic through the
// stream_end tag. Deltas are relative to the previous event in the same
// track; the first event of a track deltas from 0.
//
// Encoder and Decoder are single-owner values with no goroutines of their own.
package stream
