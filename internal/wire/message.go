package wire

import "fmt"

// Side identifies which leg of the conveyor a message travels on.
type Side int

const (
	Frontend Side = iota
	Backend
)

func (s Side) String() string {
	if s == Frontend {
		return "frontend"
	}
	return "backend"
}

// Kind identifies a decoded message's logical type, independent of its wire
// tag byte (which can be ambiguous — see ResolveTag).
type Kind int

const (
	KindStartup Kind = iota
	KindCancelRequest
	KindTLSRequest

	KindAuthentication
	KindBackendKeyData
	KindBind
	KindBindComplete
	KindParse
	KindParseComplete
	KindExecute
	KindQuery
	KindCommandComplete
	KindDataRow
	KindRowDescription
	KindErrorResponse
	KindNoticeResponse
	KindReadyForQuery
	KindParameterStatus
	KindNegotiateProtocolVersion
	KindPassword
	KindGSSResponse
	KindSASLInitialResponse
	KindSASLResponse
	KindPortalSuspended
	KindEmptyQueryResponse
	KindSync
	KindTerminate
	KindCopyDone
)

//go:generate stringer -type=Kind
func (k Kind) String() string {
	switch k {
	case KindStartup:
		return "Startup"
	case KindCancelRequest:
		return "CancelRequest"
	case KindTLSRequest:
		return "TLSRequest"
	case KindAuthentication:
		return "Authentication"
	case KindBackendKeyData:
		return "BackendKeyData"
	case KindBind:
		return "Bind"
	case KindBindComplete:
		return "BindComplete"
	case KindParse:
		return "Parse"
	case KindParseComplete:
		return "ParseComplete"
	case KindExecute:
		return "Execute"
	case KindQuery:
		return "Query"
	case KindCommandComplete:
		return "CommandComplete"
	case KindDataRow:
		return "DataRow"
	case KindRowDescription:
		return "RowDescription"
	case KindErrorResponse:
		return "ErrorResponse"
	case KindNoticeResponse:
		return "NoticeResponse"
	case KindReadyForQuery:
		return "ReadyForQuery"
	case KindParameterStatus:
		return "ParameterStatus"
	case KindNegotiateProtocolVersion:
		return "NegotiateProtocolVersion"
	case KindPassword:
		return "Password"
	case KindGSSResponse:
		return "GSSResponse"
	case KindSASLInitialResponse:
		return "SASLInitialResponse"
	case KindSASLResponse:
		return "SASLResponse"
	case KindPortalSuspended:
		return "PortalSuspended"
	case KindEmptyQueryResponse:
		return "EmptyQueryResponse"
	case KindSync:
		return "Sync"
	case KindTerminate:
		return "Terminate"
	case KindCopyDone:
		return "CopyDone"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Message pairs a decoded body with the side it arrived on. The Body value
// is borrowed by the observer callback for the duration of one call and
// must not be retained beyond it — see Message.Clone for consumers that
// need to keep a copy.
type Message struct {
	Side Side
	Kind Kind
	Body interface{}
}

// Clone returns a deep copy of m whose Body no longer aliases any buffer
// owned by the conveyor's read step. Observers that retain messages beyond
// the callback must call this first.
func (m Message) Clone() Message {
	return Message{Side: m.Side, Kind: m.Kind, Body: cloneBody(m.Kind, m.Body)}
}

// Problem is the error taxonomy a body codec can raise, distinct from a
// plain I/O failure. Unknown and Incorrect problems are both
// recoverable-by-inspection: the bytes were framed correctly but the
// codec either doesn't recognize a discriminant (Unknown) or found one
// that violates a semantic constraint (Incorrect).
type Problem struct {
	Kind   ProblemKind
	Detail string
}

func (p *Problem) Error() string {
	return fmt.Sprintf("%s: %s", p.Kind, p.Detail)
}

// ProblemKind enumerates the possible Problem.Kind values.
type ProblemKind int

const (
	Incorrect ProblemKind = iota
	Unknown
)

func (k ProblemKind) String() string {
	if k == Incorrect {
		return "incorrect"
	}
	return "unknown"
}

func incorrect(format string, args ...interface{}) error {
	return &Problem{Kind: Incorrect, Detail: fmt.Sprintf(format, args...)}
}

func unknown(format string, args ...interface{}) error {
	return &Problem{Kind: Unknown, Detail: fmt.Sprintf(format, args...)}
}

// LeftUndecodedError reports that a body codec consumed fewer bytes than
// the frame declared. It is always a strict failure — never tolerated.
type LeftUndecodedError struct {
	N int
}

func (e *LeftUndecodedError) Error() string {
	return fmt.Sprintf("%d bytes left undecoded", e.N)
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func cloneBody(kind Kind, body interface{}) interface{} {
	switch b := body.(type) {
	case *Authentication:
		cp := *b
		cp.GSSContinueData = cloneBytes(b.GSSContinueData)
		cp.SASLMechanisms = append([]string(nil), b.SASLMechanisms...)
		cp.SASLContinueData = cloneBytes(b.SASLContinueData)
		cp.SASLFinalData = cloneBytes(b.SASLFinalData)
		return &cp
	case *Bind:
		cp := *b
		cp.ParameterFormats = append([]uint16(nil), b.ParameterFormats...)
		cp.ParameterValues = append([]Value(nil), b.ParameterValues...)
		for i, v := range cp.ParameterValues {
			cp.ParameterValues[i].Bytes = cloneBytes(v.Bytes)
		}
		cp.ResultFormats = append([]uint16(nil), b.ResultFormats...)
		return &cp
	case *Parse:
		cp := *b
		cp.ParameterTypeOIDs = append([]uint32(nil), b.ParameterTypeOIDs...)
		return &cp
	case *DataRow:
		cp := *b
		cp.Columns = append([]Value(nil), b.Columns...)
		for i, v := range cp.Columns {
			cp.Columns[i].Bytes = cloneBytes(v.Bytes)
		}
		return &cp
	case *RowDescription:
		cp := *b
		cp.Fields = append([]Field(nil), b.Fields...)
		return &cp
	case *ErrorOrNoticeFields:
		cp := *b
		return &cp
	case *NegotiateProtocolVersion:
		cp := *b
		cp.UnrecognizedOptions = append([]string(nil), b.UnrecognizedOptions...)
		return &cp
	case *Startup:
		cp := *b
		cp.Params = append([]StartupParam(nil), b.Params...)
		return &cp
	case []byte:
		return cloneBytes(b)
	default:
		// Value types with no nested slices (BackendKeyData, CommandComplete
		// string, ReadyForQuery, ParameterStatus, Query, Password, etc.) copy
		// by value already; interface assignment is enough.
		return body
	}
}
