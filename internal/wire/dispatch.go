package wire

import "fmt"

// UnexpectedTypeError reports a syntactically valid type byte that arrived
// in a state that forbids it.
type UnexpectedTypeError struct {
	State State
	Side  Side
	Tag   byte
}

func (e *UnexpectedTypeError) Error() string {
	return fmt.Sprintf("unexpected type %q from %s in state %s", rune(e.Tag), e.Side, e.State)
}

// UnknownTypeError reports a type byte absent from the dispatch table for
// its side entirely — never produced for bytes that are merely out of
// place for the current state (that's UnexpectedTypeError).
type UnknownTypeError struct {
	Side Side
	Tag  byte
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown type %q from %s", rune(e.Tag), e.Side)
}

// ResolveTag maps an opening type byte to its logical message Kind given
// the side it arrived on and, for the handful of tags whose meaning is
// ambiguous by side alone ('p' from the frontend), the conveyor's current
// state. It never inspects message payload bytes to break a tie — only
// side and state, per the dispatch table.
func ResolveTag(side Side, tag byte, state State) (Kind, error) {
	if side == Frontend {
		return resolveFrontendTag(tag, state)
	}
	return resolveBackendTag(tag)
}

func resolveFrontendTag(tag byte, state State) (Kind, error) {
	switch tag {
	case 'B':
		return KindBind, nil
	case 'P':
		return KindParse, nil
	case 'E':
		return KindExecute, nil
	case 'Q':
		return KindQuery, nil
	case 'S':
		return KindSync, nil
	case 'X':
		return KindTerminate, nil
	case 'c':
		return KindCopyDone, nil
	case 'p':
		switch state {
		case StateAskedCleartextPassword, StateAskedMd5Password:
			return KindPassword, nil
		case StateAskedGssResponse:
			return KindGSSResponse, nil
		case StateAskedSaslInitialResponse:
			return KindSASLInitialResponse, nil
		case StateAskedSaslResponse:
			return KindSASLResponse, nil
		default:
			return 0, &UnexpectedTypeError{State: state, Side: Frontend, Tag: tag}
		}
	default:
		return 0, &UnknownTypeError{Side: Frontend, Tag: tag}
	}
}

func resolveBackendTag(tag byte) (Kind, error) {
	switch tag {
	case 'R':
		return KindAuthentication, nil
	case 'K':
		return KindBackendKeyData, nil
	case '2':
		return KindBindComplete, nil
	case '1':
		return KindParseComplete, nil
	case 'C':
		return KindCommandComplete, nil
	case 'D':
		return KindDataRow, nil
	case 'T':
		return KindRowDescription, nil
	case 'E':
		return KindErrorResponse, nil
	case 'N':
		return KindNoticeResponse, nil
	case 'Z':
		return KindReadyForQuery, nil
	case 'S':
		return KindParameterStatus, nil
	case 'v':
		return KindNegotiateProtocolVersion, nil
	case 's':
		return KindPortalSuspended, nil
	case 'I':
		return KindEmptyQueryResponse, nil
	case 'c':
		return KindCopyDone, nil
	default:
		return 0, &UnknownTypeError{Side: Backend, Tag: tag}
	}
}

// DecodeBody dispatches to the body codec for kind and returns the decoded
// value as an interface{}, ready to be wrapped in a Message.
func DecodeBody(kind Kind, s *Source) (interface{}, error) {
	switch kind {
	case KindAuthentication:
		return DecodeAuthentication(s)
	case KindBackendKeyData:
		return DecodeBackendKeyData(s)
	case KindBind:
		return DecodeBind(s)
	case KindBindComplete:
		return DecodeBindComplete(s)
	case KindParse:
		return DecodeParse(s)
	case KindParseComplete:
		return DecodeParseComplete(s)
	case KindExecute:
		return DecodeExecute(s)
	case KindQuery:
		return DecodeQuery(s)
	case KindCommandComplete:
		return DecodeCommandComplete(s)
	case KindDataRow:
		return DecodeDataRow(s)
	case KindRowDescription:
		return DecodeRowDescription(s)
	case KindErrorResponse, KindNoticeResponse:
		return DecodeErrorOrNoticeFields(s)
	case KindReadyForQuery:
		return DecodeReadyForQuery(s)
	case KindParameterStatus:
		return DecodeParameterStatus(s)
	case KindNegotiateProtocolVersion:
		return DecodeNegotiateProtocolVersion(s)
	case KindPassword:
		return DecodePassword(s)
	case KindGSSResponse:
		return DecodeGSSResponse(s)
	case KindSASLInitialResponse:
		return DecodeSASLInitialResponse(s)
	case KindSASLResponse:
		return DecodeSASLResponse(s)
	case KindPortalSuspended:
		return DecodePortalSuspended(s)
	case KindEmptyQueryResponse:
		return DecodeEmptyQueryResponse(s)
	case KindSync:
		return DecodeSync(s)
	case KindTerminate:
		return DecodeTerminate(s)
	case KindCopyDone:
		return DecodeCopyDone(s)
	default:
		return nil, fmt.Errorf("no codec registered for kind %s", kind)
	}
}
