package wire

import "testing"

func TestDecodeErrorOrNoticeFields(t *testing.T) {
	var body []byte
	body = append(body, 'S')
	body = append(body, "ERROR\x00"...)
	body = append(body, 'C')
	body = append(body, "28P01\x00"...)
	body = append(body, 'M')
	body = append(body, "password authentication failed\x00"...)
	body = append(body, 0)

	f, err := DecodeErrorOrNoticeFields(NewSource(body))
	if err != nil {
		t.Fatalf("DecodeErrorOrNoticeFields: %v", err)
	}
	if string(f.LocalizedSeverity) != "ERROR" {
		t.Fatalf("LocalizedSeverity = %q", f.LocalizedSeverity)
	}
	if string(f.Code) != "28P01" {
		t.Fatalf("Code = %q", f.Code)
	}
	if string(f.Message) != "password authentication failed" {
		t.Fatalf("Message = %q", f.Message)
	}
}

func TestDecodeErrorOrNoticeFieldsUnknownFieldType(t *testing.T) {
	var body []byte
	body = append(body, 'Z') // not a recognised field-type byte
	body = append(body, "whatever\x00"...)
	body = append(body, 0)

	_, err := DecodeErrorOrNoticeFields(NewSource(body))
	prob, ok := err.(*Problem)
	if !ok || prob.Kind != Unknown {
		t.Fatalf("err = %v (%T), want *Problem{Kind: Unknown}", err, err)
	}
}

func TestDecodeReadyForQuery(t *testing.T) {
	cases := map[byte]ReadyForQueryStatus{
		'I': StatusIdle,
		'T': StatusTransaction,
		'E': StatusError,
	}
	for b, want := range cases {
		rfq, err := DecodeReadyForQuery(NewSource([]byte{b}))
		if err != nil {
			t.Fatalf("status %q: %v", b, err)
		}
		if rfq.Status != want {
			t.Fatalf("status %q = %v, want %v", b, rfq.Status, want)
		}
	}
}

func TestDecodeReadyForQueryInvalidStatus(t *testing.T) {
	_, err := DecodeReadyForQuery(NewSource([]byte{'?'}))
	prob, ok := err.(*Problem)
	if !ok || prob.Kind != Unknown {
		t.Fatalf("err = %v (%T), want *Problem{Kind: Unknown}", err, err)
	}
}

func TestDecodeParameterStatus(t *testing.T) {
	ps, err := DecodeParameterStatus(NewSource([]byte("server_version\x0016.0\x00")))
	if err != nil {
		t.Fatalf("DecodeParameterStatus: %v", err)
	}
	if ps.Name != "server_version" || ps.Value != "16.0" {
		t.Fatalf("ps = %+v", ps)
	}
}

func TestDecodeNegotiateProtocolVersion(t *testing.T) {
	var body []byte
	body = putU32(body, 2)
	body = putU32(body, 2)
	body = append(body, "unrecognized_option_a\x00"...)
	body = append(body, "unrecognized_option_b\x00"...)

	npv, err := DecodeNegotiateProtocolVersion(NewSource(body))
	if err != nil {
		t.Fatalf("DecodeNegotiateProtocolVersion: %v", err)
	}
	if npv.NewestBackendMinor != 2 {
		t.Fatalf("NewestBackendMinor = %d", npv.NewestBackendMinor)
	}
	want := []string{"unrecognized_option_a", "unrecognized_option_b"}
	if len(npv.UnrecognizedOptions) != len(want) {
		t.Fatalf("options = %v", npv.UnrecognizedOptions)
	}
	for i, o := range want {
		if npv.UnrecognizedOptions[i] != o {
			t.Fatalf("options[%d] = %q, want %q", i, npv.UnrecognizedOptions[i], o)
		}
	}
}
