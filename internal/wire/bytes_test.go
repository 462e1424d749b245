package wire

import "testing"

func TestSourceTakeU8U16U32(t *testing.T) {
	s := NewSource([]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07})
	b, err := s.TakeU8()
	if err != nil || b != 0x01 {
		t.Fatalf("TakeU8 = %v, %v; want 0x01, nil", b, err)
	}
	u16, err := s.TakeU16()
	if err != nil || u16 != 0x0203 {
		t.Fatalf("TakeU16 = %v, %v; want 0x0203, nil", u16, err)
	}
	u32, err := s.TakeU32()
	if err != nil || u32 != 0x04050607 {
		t.Fatalf("TakeU32 = %v, %v; want 0x04050607, nil", u32, err)
	}
	if left := s.Left(); left != 0 {
		t.Fatalf("Left() = %d, want 0", left)
	}
}

func TestSourceNeedMoreBytes(t *testing.T) {
	s := NewSource([]byte{0x01})
	_, err := s.TakeU32()
	nmb, ok := err.(*NeedMoreBytesError)
	if !ok {
		t.Fatalf("TakeU32 error = %v (%T), want *NeedMoreBytesError", err, err)
	}
	if nmb.Short != 3 {
		t.Fatalf("Short = %d, want 3", nmb.Short)
	}
	if left := s.Left(); left != 0 {
		t.Fatalf("Left() after failed take = %d, want 0 (cursor pinned at end)", left)
	}
}

func TestSourceTakeUntilNull(t *testing.T) {
	s := NewSource([]byte("hello\x00world"))
	got, err := s.TakeUntilNull()
	if err != nil {
		t.Fatalf("TakeUntilNull: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("got %q, want %q", got, "hello")
	}
	if left := s.Left(); left != len("world") {
		t.Fatalf("Left() = %d, want %d", left, len("world"))
	}
}

func TestSourceTakeUntilNullMissingTerminator(t *testing.T) {
	s := NewSource([]byte("no terminator here"))
	_, err := s.TakeUntilNull()
	if _, ok := err.(*NoNullByteError); !ok {
		t.Fatalf("error = %v (%T), want *NoNullByteError", err, err)
	}
}

func TestSourceTakeSliceAliasesBuffer(t *testing.T) {
	buf := []byte{1, 2, 3, 4}
	s := NewSource(buf)
	got, err := s.TakeSlice(2)
	if err != nil {
		t.Fatalf("TakeSlice: %v", err)
	}
	buf[0] = 0xFF
	if got[0] != 0xFF {
		t.Fatalf("TakeSlice did not alias the backing array")
	}
}

func TestSourceTakeVecCopies(t *testing.T) {
	buf := []byte{1, 2, 3, 4}
	s := NewSource(buf)
	got, err := s.TakeVec(2)
	if err != nil {
		t.Fatalf("TakeVec: %v", err)
	}
	buf[0] = 0xFF
	if got[0] == 0xFF {
		t.Fatalf("TakeVec aliased the backing array, want an independent copy")
	}
}

func TestSourceRest(t *testing.T) {
	s := NewSource([]byte{1, 2, 3})
	_, _ = s.TakeU8()
	rest := s.Rest()
	if len(rest) != 2 || rest[0] != 2 || rest[1] != 3 {
		t.Fatalf("Rest() = %v, want [2 3]", rest)
	}
	if left := s.Left(); left != 0 {
		t.Fatalf("Left() after Rest() = %d, want 0", left)
	}
}

func TestTargetPutU8U32(t *testing.T) {
	buf := make([]byte, 5)
	tgt := NewTarget(buf)
	if err := tgt.PutU8(0xAB); err != nil {
		t.Fatalf("PutU8: %v", err)
	}
	if err := tgt.PutU32(0x01020304); err != nil {
		t.Fatalf("PutU32: %v", err)
	}
	want := []byte{0xAB, 0x01, 0x02, 0x03, 0x04}
	for i, b := range want {
		if buf[i] != b {
			t.Fatalf("buf[%d] = %#x, want %#x", i, buf[i], b)
		}
	}
}

func TestTargetOutOfSpace(t *testing.T) {
	buf := make([]byte, 2)
	tgt := NewTarget(buf)
	err := tgt.PutU32(1)
	oos, ok := err.(*OutOfSpaceError)
	if !ok {
		t.Fatalf("PutU32 error = %v (%T), want *OutOfSpaceError", err, err)
	}
	if oos.Short != 2 {
		t.Fatalf("Short = %d, want 2", oos.Short)
	}
}
