package wire

// Bind is the frontend 'B' message.
type Bind struct {
	PreparedStatement string
	Portal            string
	ParameterFormats  []uint16
	ParameterValues   []Value
	ResultFormats     []uint16
}

// DecodeBind decodes the body of a 'B' frontend message.
func DecodeBind(s *Source) (*Bind, error) {
	stmt, err := s.TakeUntilNull()
	if err != nil {
		return nil, err
	}
	portal, err := s.TakeUntilNull()
	if err != nil {
		return nil, err
	}
	paramFormatsCount, err := s.TakeU16()
	if err != nil {
		return nil, err
	}
	paramFormats, err := decodeFormats(s, int(paramFormatsCount))
	if err != nil {
		return nil, err
	}
	paramValuesCount, err := s.TakeU16()
	if err != nil {
		return nil, err
	}
	paramValues, err := decodeValues(s, int(paramValuesCount))
	if err != nil {
		return nil, err
	}
	resultFormatsCount, err := s.TakeU16()
	if err != nil {
		return nil, err
	}
	resultFormats, err := decodeFormats(s, int(resultFormatsCount))
	if err != nil {
		return nil, err
	}
	return &Bind{
		PreparedStatement: string(stmt),
		Portal:            string(portal),
		ParameterFormats:  paramFormats,
		ParameterValues:   paramValues,
		ResultFormats:     resultFormats,
	}, nil
}

// Parse is the frontend 'P' message.
type Parse struct {
	PreparedStatement string
	Query             string
	ParameterTypeOIDs []uint32
}

// DecodeParse decodes the body of a 'P' frontend message.
func DecodeParse(s *Source) (*Parse, error) {
	stmt, err := s.TakeUntilNull()
	if err != nil {
		return nil, err
	}
	query, err := s.TakeUntilNull()
	if err != nil {
		return nil, err
	}
	count, err := s.TakeU16()
	if err != nil {
		return nil, err
	}
	oids, err := decodeU32Vec(s, int(count))
	if err != nil {
		return nil, err
	}
	return &Parse{
		PreparedStatement: string(stmt),
		Query:             string(query),
		ParameterTypeOIDs: oids,
	}, nil
}

// Execute is the frontend 'E' message.
type Execute struct {
	Portal    string
	RowsLimit uint32
}

// DecodeExecute decodes the body of a frontend 'E' message.
func DecodeExecute(s *Source) (*Execute, error) {
	portal, err := s.TakeUntilNull()
	if err != nil {
		return nil, err
	}
	limit, err := s.TakeU32()
	if err != nil {
		return nil, err
	}
	return &Execute{Portal: string(portal), RowsLimit: limit}, nil
}
