package wire

// Password is the frontend 'p' message body used for cleartext and MD5
// password responses.
type Password struct {
	Value []byte
}

// DecodePassword decodes the body of a password-response 'p' frontend
// message. Which of Password, GSSResponse, SASLInitialResponse, or
// SASLResponse a 'p' body actually is can only be known from the
// conveyor's state, never by inspecting the bytes themselves.
func DecodePassword(s *Source) (*Password, error) {
	v, err := s.TakeUntilNull()
	if err != nil {
		return nil, err
	}
	return &Password{Value: v}, nil
}

// GSSResponse is the frontend 'p' message body carrying raw GSSAPI bytes.
type GSSResponse struct {
	Data []byte
}

// DecodeGSSResponse decodes the body of a GSSAPI 'p' frontend message.
func DecodeGSSResponse(s *Source) (*GSSResponse, error) {
	return &GSSResponse{Data: s.Rest()}, nil
}

// SASLInitialResponse is the frontend 'p' message body sent in response to
// an AuthenticationSASL challenge.
type SASLInitialResponse struct {
	SelectedMechanism string
	MechanismData     []byte
}

// DecodeSASLInitialResponse decodes the body of a SASL-initial 'p' frontend
// message.
func DecodeSASLInitialResponse(s *Source) (*SASLInitialResponse, error) {
	mech, err := s.TakeUntilNull()
	if err != nil {
		return nil, err
	}
	n, err := s.TakeI32()
	if err != nil {
		return nil, err
	}
	switch {
	case n == -1:
		return &SASLInitialResponse{SelectedMechanism: string(mech)}, nil
	case n >= 0:
		data, err := s.TakeVec(int(n))
		if err != nil {
			return nil, err
		}
		return &SASLInitialResponse{SelectedMechanism: string(mech), MechanismData: data}, nil
	default:
		return nil, incorrect("mechanism data len should be >= -1 but is %d", n)
	}
}

// SASLResponse is the frontend 'p' message body sent for every SASL
// exchange step after the initial one.
type SASLResponse struct {
	MechanismData []byte
}

// DecodeSASLResponse decodes the body of a SASL-continuation 'p' frontend
// message: the whole remaining body, untagged.
func DecodeSASLResponse(s *Source) (*SASLResponse, error) {
	return &SASLResponse{MechanismData: s.Rest()}, nil
}
