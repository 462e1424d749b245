package conveyor

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/dbbouncer/pgconvey/internal/wire"
)

// LeftUndecodedError is returned when a body codec consumes fewer bytes
// than the frame's declared length promised.
type LeftUndecodedError struct {
	N int
}

func (e *LeftUndecodedError) Error() string {
	return fmt.Sprintf("%d bytes left undecoded", e.N)
}

// readFull reads exactly len(buf) bytes, reporting io.ErrUnexpectedEOF if
// the stream ends mid-read rather than at its start.
func readFull(r io.Reader, buf []byte) error {
	_, err := io.ReadFull(r, buf)
	return err
}

// readFrame reads one already-tagged frame body: a 4-byte inclusive length
// L, then the L-4 body bytes, decodes them via kind's codec, and returns
// the raw length-plus-body bytes (for forwarding) alongside the decoded
// value. state is
// only consulted by the caller before calling readFrame (to resolve kind);
// readFrame itself is state-agnostic.
func readFrame(r io.Reader, kind wire.Kind) (raw []byte, body interface{}, err error) {
	var lenBuf [4]byte
	if err := readFull(r, lenBuf[:]); err != nil {
		return nil, nil, fmt.Errorf("reading frame length: %w", err)
	}
	length := binary.BigEndian.Uint32(lenBuf[:])
	if length < 4 {
		return nil, nil, fmt.Errorf("frame length %d is smaller than the length field itself", length)
	}
	bodyLen := int(length - 4)
	raw = make([]byte, 4+bodyLen)
	copy(raw, lenBuf[:])
	if bodyLen > 0 {
		if err := readFull(r, raw[4:]); err != nil {
			return nil, nil, fmt.Errorf("reading frame body: %w", err)
		}
	}
	src := wire.NewSource(raw[4:])
	decoded, err := wire.DecodeBody(kind, src)
	if err != nil {
		return nil, nil, fmt.Errorf("decoding %s body: %w", kind, err)
	}
	if left := src.Left(); left > 0 {
		return nil, nil, &LeftUndecodedError{N: left}
	}
	return raw, decoded, nil
}

// readTaggedFrame reads one byte (the already-resolved type tag, consumed
// by the caller while racing the two legs) worth of frame: it re-prepends
// tag to the raw bytes it returns so the caller can forward byte-for-byte.
func readTaggedFrame(r io.Reader, tag byte, kind wire.Kind) (raw []byte, body interface{}, err error) {
	bodyRaw, decoded, err := readFrame(r, kind)
	if err != nil {
		return nil, nil, err
	}
	raw = make([]byte, 1+len(bodyRaw))
	raw[0] = tag
	copy(raw[1:], bodyRaw)
	return raw, decoded, nil
}

// readInitialFrame reads the untagged initial frame: a 4-byte inclusive
// length followed by the body, which DecodeInitial further dispatches into
// Startup, CancelRequest, or TLSRequest.
func readInitialFrame(r io.Reader) (raw []byte, kind wire.Kind, body interface{}, err error) {
	var lenBuf [4]byte
	if err := readFull(r, lenBuf[:]); err != nil {
		return nil, 0, nil, fmt.Errorf("reading initial frame length: %w", err)
	}
	length := binary.BigEndian.Uint32(lenBuf[:])
	if length < 4 {
		return nil, 0, nil, fmt.Errorf("initial frame length %d is smaller than the length field itself", length)
	}
	bodyLen := int(length - 4)
	raw = make([]byte, 4+bodyLen)
	copy(raw, lenBuf[:])
	if bodyLen > 0 {
		if err := readFull(r, raw[4:]); err != nil {
			return nil, 0, nil, fmt.Errorf("reading initial frame body: %w", err)
		}
	}
	src := wire.NewSource(raw[4:])
	kind, body, err = wire.DecodeInitial(src)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("decoding initial frame: %w", err)
	}
	if left := src.Left(); left > 0 {
		return nil, 0, nil, &LeftUndecodedError{N: left}
	}
	return raw, kind, body, nil
}
