package wire

// AuthVariant selects which Authentication sub-message was decoded.
type AuthVariant int

const (
	AuthOk AuthVariant = iota
	AuthKerberosV5
	AuthCleartext
	AuthMD5
	AuthSCMCredential
	AuthGSS
	AuthGSSContinue
	AuthSSPI
	AuthSASL
	AuthSASLContinue
	AuthSASLFinal
)

// Authentication is the backend 'R' message. Its sub-type (first u32 of
// the body) selects which of the fields below is populated.
type Authentication struct {
	Variant          AuthVariant
	MD5Salt          [4]byte
	GSSContinueData  []byte
	SASLMechanisms   []string
	SASLContinueData []byte
	SASLFinalData    []byte
}

// DecodeAuthentication decodes the body of an 'R' backend message.
func DecodeAuthentication(s *Source) (*Authentication, error) {
	sub, err := s.TakeU32()
	if err != nil {
		return nil, err
	}
	switch sub {
	case 0:
		return &Authentication{Variant: AuthOk}, nil
	case 2:
		return &Authentication{Variant: AuthKerberosV5}, nil
	case 3:
		return &Authentication{Variant: AuthCleartext}, nil
	case 5:
		salt, err := s.TakeSlice(4)
		if err != nil {
			return nil, err
		}
		a := &Authentication{Variant: AuthMD5}
		copy(a.MD5Salt[:], salt)
		return a, nil
	case 6:
		return &Authentication{Variant: AuthSCMCredential}, nil
	case 7:
		return &Authentication{Variant: AuthGSS}, nil
	case 8:
		data := s.Rest()
		return &Authentication{Variant: AuthGSSContinue, GSSContinueData: data}, nil
	case 9:
		return &Authentication{Variant: AuthSSPI}, nil
	case 10:
		mechs, err := decodeSASLMechanisms(s)
		if err != nil {
			return nil, err
		}
		return &Authentication{Variant: AuthSASL, SASLMechanisms: mechs}, nil
	case 11:
		data := s.Rest()
		return &Authentication{Variant: AuthSASLContinue, SASLContinueData: data}, nil
	case 12:
		data := s.Rest()
		return &Authentication{Variant: AuthSASLFinal, SASLFinalData: data}, nil
	default:
		return nil, unknown("authentication sub-type %d", sub)
	}
}

func decodeSASLMechanisms(s *Source) ([]string, error) {
	var mechs []string
	for {
		name, err := s.TakeUntilNull()
		if err != nil {
			return nil, err
		}
		if len(name) == 0 {
			return mechs, nil
		}
		mechs = append(mechs, string(name))
	}
}

// BackendKeyData is the backend 'K' message.
type BackendKeyData struct {
	ProcessID uint32
	SecretKey uint32
}

// DecodeBackendKeyData decodes the body of a 'K' backend message.
func DecodeBackendKeyData(s *Source) (*BackendKeyData, error) {
	pid, err := s.TakeU32()
	if err != nil {
		return nil, err
	}
	secret, err := s.TakeU32()
	if err != nil {
		return nil, err
	}
	return &BackendKeyData{ProcessID: pid, SecretKey: secret}, nil
}
