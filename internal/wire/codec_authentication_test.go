package wire

import "testing"

func TestDecodeAuthenticationOk(t *testing.T) {
	body := putU32(nil, 0)
	a, err := DecodeAuthentication(NewSource(body))
	if err != nil {
		t.Fatalf("DecodeAuthentication: %v", err)
	}
	if a.Variant != AuthOk {
		t.Fatalf("variant = %v, want AuthOk", a.Variant)
	}
}

func TestDecodeAuthenticationMD5(t *testing.T) {
	body := putU32(nil, 5)
	body = append(body, 0xDE, 0xAD, 0xBE, 0xEF)
	a, err := DecodeAuthentication(NewSource(body))
	if err != nil {
		t.Fatalf("DecodeAuthentication: %v", err)
	}
	if a.Variant != AuthMD5 {
		t.Fatalf("variant = %v, want AuthMD5", a.Variant)
	}
	want := [4]byte{0xDE, 0xAD, 0xBE, 0xEF}
	if a.MD5Salt != want {
		t.Fatalf("salt = %x, want %x", a.MD5Salt, want)
	}
}

func TestDecodeAuthenticationSASLMechanisms(t *testing.T) {
	body := putU32(nil, 10)
	body = append(body, "SCRAM-SHA-256\x00SCRAM-SHA-256-PLUS\x00\x00"...)
	a, err := DecodeAuthentication(NewSource(body))
	if err != nil {
		t.Fatalf("DecodeAuthentication: %v", err)
	}
	if a.Variant != AuthSASL {
		t.Fatalf("variant = %v, want AuthSASL", a.Variant)
	}
	want := []string{"SCRAM-SHA-256", "SCRAM-SHA-256-PLUS"}
	if len(a.SASLMechanisms) != len(want) {
		t.Fatalf("mechanisms = %v, want %v", a.SASLMechanisms, want)
	}
	for i, m := range want {
		if a.SASLMechanisms[i] != m {
			t.Fatalf("mechanisms[%d] = %q, want %q", i, a.SASLMechanisms[i], m)
		}
	}
}

func TestDecodeAuthenticationUnknownSubType(t *testing.T) {
	body := putU32(nil, 999)
	_, err := DecodeAuthentication(NewSource(body))
	prob, ok := err.(*Problem)
	if !ok || prob.Kind != Unknown {
		t.Fatalf("err = %v (%T), want *Problem{Kind: Unknown}", err, err)
	}
}

func TestDecodeBackendKeyData(t *testing.T) {
	body := putU32(nil, 123)
	body = putU32(body, 456)
	bkd, err := DecodeBackendKeyData(NewSource(body))
	if err != nil {
		t.Fatalf("DecodeBackendKeyData: %v", err)
	}
	if bkd.ProcessID != 123 || bkd.SecretKey != 456 {
		t.Fatalf("bkd = %+v", bkd)
	}
}
