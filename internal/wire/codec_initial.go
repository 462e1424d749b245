package wire

// Version is the declared protocol version at the head of every initial
// (untagged) frontend message.
type Version struct {
	Major uint16
	Minor uint16
}

// StartupParam is one name/value pair of a Startup message's parameter
// list.
type StartupParam struct {
	Name  string
	Value string
}

// Startup is the frontend initial message sent when Version is not one of
// the two magic cancel/SSL sentinels.
type Startup struct {
	Version Version
	Params  []StartupParam
}

// CancelRequest is the frontend initial message sent instead of Startup
// when the version field is the magic pair (1234, 5678).
type CancelRequest struct {
	ProcessID uint32
	SecretKey uint32
}

// TLSRequest is the frontend initial message sent instead of Startup when
// the version field is the magic pair (1234, 5679). It has no body beyond
// the version field.
type TLSRequest struct{}

// DecodeInitial decodes the body of an untagged frontend initial message
// and reports which of Startup, CancelRequest, or TLSRequest it is via the
// returned Kind.
func DecodeInitial(s *Source) (Kind, interface{}, error) {
	major, err := s.TakeU16()
	if err != nil {
		return 0, nil, err
	}
	minor, err := s.TakeU16()
	if err != nil {
		return 0, nil, err
	}
	switch {
	case major == 1234 && minor == 5678:
		pid, err := s.TakeU32()
		if err != nil {
			return 0, nil, err
		}
		secret, err := s.TakeU32()
		if err != nil {
			return 0, nil, err
		}
		return KindCancelRequest, &CancelRequest{ProcessID: pid, SecretKey: secret}, nil
	case major == 1234 && minor == 5679:
		return KindTLSRequest, &TLSRequest{}, nil
	default:
		params, err := decodeStartupParams(s)
		if err != nil {
			return 0, nil, err
		}
		return KindStartup, &Startup{Version: Version{Major: major, Minor: minor}, Params: params}, nil
	}
}

func decodeStartupParams(s *Source) ([]StartupParam, error) {
	var params []StartupParam
	for {
		name, err := s.TakeUntilNull()
		if err != nil {
			return nil, err
		}
		if len(name) == 0 {
			return params, nil
		}
		value, err := s.TakeUntilNull()
		if err != nil {
			return nil, err
		}
		params = append(params, StartupParam{Name: string(name), Value: string(value)})
	}
}
