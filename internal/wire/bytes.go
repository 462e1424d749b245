// Package wire implements the PostgreSQL v3 wire protocol: byte-level
// primitives, per-message-kind codecs, and the type-byte dispatcher that
// resolves tag collisions by connection side and state.
package wire

import (
	"encoding/binary"
	"fmt"
)

// NeedMoreBytesError reports that a bounded source ran out of bytes before
// satisfying a take request. The cursor is left at the end of the source.
type NeedMoreBytesError struct {
	Short int
}

func (e *NeedMoreBytesError) Error() string {
	return fmt.Sprintf("need %d more bytes", e.Short)
}

// NoNullByteError reports that TakeUntilNull ran off the end of the
// source without finding a terminator.
type NoNullByteError struct{}

func (e *NoNullByteError) Error() string { return "no null byte found" }

// Source is a bounded byte window a codec decodes from. It never reads
// past the body length the framed reader computed for it.
type Source struct {
	buf []byte
	pos int
}

// NewSource wraps buf for sequential decoding.
func NewSource(buf []byte) *Source {
	return &Source{buf: buf}
}

// Left returns the number of unread bytes remaining in the source.
func (s *Source) Left() int {
	return len(s.buf) - s.pos
}

func (s *Source) need(n int) error {
	if s.Left() < n {
		short := n - s.Left()
		s.pos = len(s.buf)
		return &NeedMoreBytesError{Short: short}
	}
	return nil
}

// TakeU8 reads one byte.
func (s *Source) TakeU8() (byte, error) {
	if err := s.need(1); err != nil {
		return 0, err
	}
	b := s.buf[s.pos]
	s.pos++
	return b, nil
}

// TakeU16 reads a big-endian uint16.
func (s *Source) TakeU16() (uint16, error) {
	if err := s.need(2); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(s.buf[s.pos:])
	s.pos += 2
	return v, nil
}

// TakeU32 reads a big-endian uint32.
func (s *Source) TakeU32() (uint32, error) {
	if err := s.need(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(s.buf[s.pos:])
	s.pos += 4
	return v, nil
}

// TakeI16 reads a big-endian int16.
func (s *Source) TakeI16() (int16, error) {
	v, err := s.TakeU16()
	return int16(v), err
}

// TakeI32 reads a big-endian int32.
func (s *Source) TakeI32() (int32, error) {
	v, err := s.TakeU32()
	return int32(v), err
}

// TakeSlice returns a view of the next n bytes without copying. The slice
// aliases the source's backing array and must not be retained past the
// decode call.
func (s *Source) TakeSlice(n int) ([]byte, error) {
	if n < 0 {
		return nil, &NeedMoreBytesError{Short: 0}
	}
	if err := s.need(n); err != nil {
		return nil, err
	}
	b := s.buf[s.pos : s.pos+n]
	s.pos += n
	return b, nil
}

// TakeVec returns a fresh copy of the next n bytes.
func (s *Source) TakeVec(n int) ([]byte, error) {
	b, err := s.TakeSlice(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

// TakeUntilNull returns the bytes up to (excluding) the first 0x00 byte,
// consuming the null byte itself.
func (s *Source) TakeUntilNull() ([]byte, error) {
	for i := s.pos; i < len(s.buf); i++ {
		if s.buf[i] == 0 {
			out := make([]byte, i-s.pos)
			copy(out, s.buf[s.pos:i])
			s.pos = i + 1
			return out, nil
		}
	}
	s.pos = len(s.buf)
	return nil, &NoNullByteError{}
}

// Rest returns a fresh copy of all remaining bytes.
func (s *Source) Rest() []byte {
	b := make([]byte, s.Left())
	copy(b, s.buf[s.pos:])
	s.pos = len(s.buf)
	return b
}

// OutOfSpaceError reports that a bounded target could not fit a put request.
type OutOfSpaceError struct {
	Short int
}

func (e *OutOfSpaceError) Error() string {
	return fmt.Sprintf("out of space by %d bytes", e.Short)
}

// Target is a bounded byte buffer a codec encodes into.
type Target struct {
	buf []byte
	pos int
}

// NewTarget wraps buf for sequential encoding; buf must be pre-sized.
func NewTarget(buf []byte) *Target {
	return &Target{buf: buf}
}

func (t *Target) putNeed(n int) error {
	if len(t.buf)-t.pos < n {
		return &OutOfSpaceError{Short: n - (len(t.buf) - t.pos)}
	}
	return nil
}

// PutU8 writes one byte.
func (t *Target) PutU8(b byte) error {
	if err := t.putNeed(1); err != nil {
		return err
	}
	t.buf[t.pos] = b
	t.pos++
	return nil
}

// PutU32 writes a big-endian uint32.
func (t *Target) PutU32(v uint32) error {
	if err := t.putNeed(4); err != nil {
		return err
	}
	binary.BigEndian.PutUint32(t.buf[t.pos:], v)
	t.pos += 4
	return nil
}
