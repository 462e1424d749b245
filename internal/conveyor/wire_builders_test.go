package conveyor

// Helpers that build raw wire bytes for synthetic peers to write across a
// net.Pipe in conveyor_test.go. These mirror the encodings internal/wire
// decodes, without going through wire.Target: the point of these tests is to
// drive Convey with bytes a real libpq client or postgres backend would
// produce, not to exercise an encoder.

func u16be(v uint16) []byte {
	return []byte{byte(v >> 8), byte(v)}
}

func u32be(v uint32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

func cstr(s string) []byte {
	return append([]byte(s), 0)
}

// frameBody prefixes body with its own 4-byte inclusive length.
func frameBody(body []byte) []byte {
	out := make([]byte, 4+len(body))
	copy(out[4:], body)
	l := u32be(uint32(4 + len(body)))
	copy(out[:4], l)
	return out
}

func tagged(tag byte, body []byte) []byte {
	framed := frameBody(body)
	out := make([]byte, 1+len(framed))
	out[0] = tag
	copy(out[1:], framed)
	return out
}

func initialFrame(major, minor uint16, rest []byte) []byte {
	body := append(append([]byte{}, u16be(major)...), u16be(minor)...)
	body = append(body, rest...)
	return frameBody(body)
}

func startupMessage(major, minor uint16, params [][2]string) []byte {
	var body []byte
	for _, p := range params {
		body = append(body, cstr(p[0])...)
		body = append(body, cstr(p[1])...)
	}
	body = append(body, 0)
	return initialFrame(major, minor, body)
}

func cancelRequestMessage(pid, secret uint32) []byte {
	rest := append(u32be(pid), u32be(secret)...)
	return initialFrame(1234, 5678, rest)
}

func tlsRequestMessage() []byte {
	return initialFrame(1234, 5679, nil)
}

func authOkMessage() []byte {
	return tagged('R', u32be(0))
}

func authMD5Message(salt [4]byte) []byte {
	return tagged('R', append(u32be(5), salt[:]...))
}

func backendKeyDataMessage(pid, secret uint32) []byte {
	return tagged('K', append(u32be(pid), u32be(secret)...))
}

func parameterStatusMessage(name, value string) []byte {
	return tagged('S', append(cstr(name), cstr(value)...))
}

func readyForQueryMessage(status byte) []byte {
	return tagged('Z', []byte{status})
}

func queryMessage(sql string) []byte {
	return tagged('Q', cstr(sql))
}

func passwordMessage(value string) []byte {
	return tagged('p', cstr(value))
}

func errorResponseMessage(severity, code, message string) []byte {
	var body []byte
	body = append(body, 'S')
	body = append(body, cstr(severity)...)
	body = append(body, 'C')
	body = append(body, cstr(code)...)
	body = append(body, 'M')
	body = append(body, cstr(message)...)
	body = append(body, 0)
	return tagged('E', body)
}

func rowDescriptionMessage(names ...string) []byte {
	body := u16be(uint16(len(names)))
	for _, n := range names {
		body = append(body, cstr(n)...)
		body = append(body, u32be(0)...)  // column OID
		body = append(body, u16be(0)...)  // column attr num
		body = append(body, u32be(25)...) // type OID (text)
		body = append(body, u16be(0xFFFF)...)
		body = append(body, u32be(0)...) // type modifier
		body = append(body, u16be(0)...) // format: text
	}
	return tagged('T', body)
}

func valueBody(vals ...[]byte) []byte {
	var body []byte
	for _, v := range vals {
		if v == nil {
			body = append(body, u32be(0xFFFFFFFF)...) // length -1: NULL
			continue
		}
		body = append(body, u32be(uint32(len(v)))...)
		body = append(body, v...)
	}
	return body
}

func dataRowMessage(vals ...[]byte) []byte {
	body := append(u16be(uint16(len(vals))), valueBody(vals...)...)
	return tagged('D', body)
}

func commandCompleteMessage(tag string) []byte {
	return tagged('C', cstr(tag))
}

func emptyQueryResponseMessage() []byte {
	return tagged('I', nil)
}

func terminateMessage() []byte {
	return tagged('X', nil)
}

func parseMessage(stmt, query string) []byte {
	body := append(cstr(stmt), cstr(query)...)
	body = append(body, u16be(0)...)
	return tagged('P', body)
}

func parseCompleteMessage() []byte {
	return tagged('1', nil)
}

func bindMessage(stmt, portal string) []byte {
	body := append(cstr(stmt), cstr(portal)...)
	body = append(body, u16be(0)...) // param formats
	body = append(body, u16be(0)...) // param values
	body = append(body, u16be(0)...) // result formats
	return tagged('B', body)
}

func bindCompleteMessage() []byte {
	return tagged('2', nil)
}

func executeMessage(portal string, limit uint32) []byte {
	body := append(cstr(portal), u32be(limit)...)
	return tagged('E', body)
}

func portalSuspendedMessage() []byte {
	return tagged('s', nil)
}

func syncMessage() []byte {
	return tagged('S', nil)
}
