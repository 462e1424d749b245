package wire

// Value is a single Bind parameter or DataRow column: either SQL NULL or a
// raw byte string whose interpretation depends on the surrounding format
// code (text or binary).
type Value struct {
	Null  bool
	Bytes []byte
}

func decodeValue(s *Source) (Value, error) {
	n, err := s.TakeI32()
	if err != nil {
		return Value{}, err
	}
	switch {
	case n == -1:
		return Value{Null: true}, nil
	case n >= 0:
		b, err := s.TakeVec(int(n))
		if err != nil {
			return Value{}, err
		}
		return Value{Bytes: b}, nil
	default:
		return Value{}, incorrect("column value length must be >= -1, got %d", n)
	}
}

func decodeFormats(s *Source, count int) ([]uint16, error) {
	out := make([]uint16, count)
	for i := range out {
		v, err := s.TakeU16()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func decodeValues(s *Source, count int) ([]Value, error) {
	out := make([]Value, count)
	for i := range out {
		v, err := decodeValue(s)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func decodeU32Vec(s *Source, count int) ([]uint32, error) {
	out := make([]uint32, count)
	for i := range out {
		v, err := s.TakeU32()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
