package wire

// ErrorOrNoticeFields is the shared body shape of ErrorResponse ('E',
// backend) and NoticeResponse ('N', backend) — a sequence of
// type-byte-prefixed, null-terminated fields terminated by a zero byte.
// https://www.postgresql.org/docs/current/protocol-error-fields.html
type ErrorOrNoticeFields struct {
	LocalizedSeverity []byte
	Severity          []byte
	Code              []byte
	Message           []byte
	Detail            []byte
	Hint              []byte
	Position          []byte
	InternalPosition  []byte
	InternalQuery     []byte
	Where             []byte
	Schema            []byte
	Table             []byte
	Column            []byte
	DataType          []byte
	Constraint        []byte
	File              []byte
	Line              []byte
	Routine           []byte
}

// DecodeErrorOrNoticeFields decodes the shared field list of an 'E' or 'N'
// backend message.
func DecodeErrorOrNoticeFields(s *Source) (*ErrorOrNoticeFields, error) {
	f := &ErrorOrNoticeFields{}
	index := 0
	for {
		tb, err := s.TakeU8()
		if err != nil {
			return nil, err
		}
		if tb == 0 {
			return f, nil
		}
		value, err := s.TakeUntilNull()
		if err != nil {
			return nil, err
		}
		switch tb {
		case 'S':
			f.LocalizedSeverity = value
		case 'V':
			f.Severity = value
		case 'C':
			f.Code = value
		case 'M':
			f.Message = value
		case 'D':
			f.Detail = value
		case 'H':
			f.Hint = value
		case 'P':
			f.Position = value
		case 'p':
			f.InternalPosition = value
		case 'q':
			f.InternalQuery = value
		case 'W':
			f.Where = value
		case 's':
			f.Schema = value
		case 't':
			f.Table = value
		case 'c':
			f.Column = value
		case 'd':
			f.DataType = value
		case 'n':
			f.Constraint = value
		case 'F':
			f.File = value
		case 'L':
			f.Line = value
		case 'R':
			f.Routine = value
		default:
			return nil, unknown("field[%d] has unknown type %d", index, tb)
		}
		index++
	}
}

// ReadyForQueryStatus is the single status byte of a ReadyForQuery message.
type ReadyForQueryStatus int

const (
	StatusIdle ReadyForQueryStatus = iota
	StatusTransaction
	StatusError
)

func (s ReadyForQueryStatus) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusTransaction:
		return "transaction"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// ReadyForQuery is the backend 'Z' message.
type ReadyForQuery struct {
	Status ReadyForQueryStatus
}

// DecodeReadyForQuery decodes the body of a 'Z' backend message.
func DecodeReadyForQuery(s *Source) (*ReadyForQuery, error) {
	b, err := s.TakeU8()
	if err != nil {
		return nil, err
	}
	switch b {
	case 'I':
		return &ReadyForQuery{Status: StatusIdle}, nil
	case 'T':
		return &ReadyForQuery{Status: StatusTransaction}, nil
	case 'E':
		return &ReadyForQuery{Status: StatusError}, nil
	default:
		return nil, unknown("ready-for-query status %q", rune(b))
	}
}

// ParameterStatus is the backend 'S' message.
type ParameterStatus struct {
	Name  string
	Value string
}

// DecodeParameterStatus decodes the body of an 'S' backend message.
func DecodeParameterStatus(s *Source) (*ParameterStatus, error) {
	name, err := s.TakeUntilNull()
	if err != nil {
		return nil, err
	}
	value, err := s.TakeUntilNull()
	if err != nil {
		return nil, err
	}
	return &ParameterStatus{Name: string(name), Value: string(value)}, nil
}

// NegotiateProtocolVersion is the backend 'v' message.
type NegotiateProtocolVersion struct {
	NewestBackendMinor  uint32
	UnrecognizedOptions []string
}

// DecodeNegotiateProtocolVersion decodes the body of a 'v' backend message.
func DecodeNegotiateProtocolVersion(s *Source) (*NegotiateProtocolVersion, error) {
	minor, err := s.TakeU32()
	if err != nil {
		return nil, err
	}
	count, err := s.TakeU32()
	if err != nil {
		return nil, err
	}
	opts := make([]string, count)
	for i := range opts {
		v, err := s.TakeUntilNull()
		if err != nil {
			return nil, err
		}
		opts[i] = string(v)
	}
	return &NegotiateProtocolVersion{NewestBackendMinor: minor, UnrecognizedOptions: opts}, nil
}
