package conveyor

import (
	"github.com/dbbouncer/pgconvey/internal/wire"
)

func stateIn(state wire.State, set ...wire.State) bool {
	for _, s := range set {
		if state == s {
			return true
		}
	}
	return false
}

var preAuthStates = []wire.State{
	wire.StateGotStartup,
	wire.StateAskedCleartextPassword,
	wire.StateAskedMd5Password,
	wire.StateAskedGssResponse,
	wire.StateAskedSaslInitialResponse,
	wire.StateAskedSaslResponse,
	wire.StateGotCleartextPassword,
	wire.StateGotMd5Password,
	wire.StateGotGssResponse,
	wire.StateGotAnySaslResponse,
	wire.StateFinishedSasl,
}

var simpleQueryStates = []wire.State{
	wire.StateGotSimpleQuery,
	wire.StateAnsweringToSimpleQuery,
	wire.StateCompletedSimpleCommand,
	wire.StateSeenEmptySimpleQuery,
}

var extendedQueryStates = []wire.State{
	wire.StateGotPreparedStatement,
	wire.StateGotBinding,
	wire.StateExecutingExtendedQuery,
	wire.StateAnsweringToExtendedQuery,
	wire.StateCompletedExtendedQuery,
	wire.StateSeenEmptyExtendedQuery,
	wire.StateSuspendedExtendedQuery,
}

var terminalExtendedQueryStates = []wire.State{
	wire.StateCompletedExtendedQuery,
	wire.StateSeenEmptyExtendedQuery,
	wire.StateAbortedExtendedQuery,
	wire.StateAbortedParsingOrBinding,
	wire.StateSuspendedExtendedQuery,
}

// transitionResult is what advance returns: the conveyor's next state, or a
// terminate signal, or an error that aborts the conveyor.
type transitionResult struct {
	next      wire.State
	terminate bool
}

// advance computes the next conveyor state for one successfully decoded
// message, per the steady-state transition table. It never forwards bytes
// or invokes the observer — callers do that uniformly before calling this.
func advance(side wire.Side, kind wire.Kind, body interface{}, state wire.State) (transitionResult, error) {
	if side == wire.Backend && kind == wire.KindAuthentication {
		return advanceAuthentication(body.(*wire.Authentication), state)
	}
	if side == wire.Frontend && isPasswordFamily(kind) {
		return advanceFrontendAuthResponse(kind, state)
	}

	switch {
	case side == wire.Backend && kind == wire.KindBackendKeyData:
		if state == wire.StateAuthenticated {
			return transitionResult{next: wire.StateSentAllBackendParams}, nil
		}
	case side == wire.Backend && kind == wire.KindParameterStatus:
		if state == wire.StateAuthenticated {
			return transitionResult{next: wire.StateAuthenticated}, nil
		}
	case side == wire.Backend && kind == wire.KindNegotiateProtocolVersion:
		if stateIn(state, wire.StateGotStartup, wire.StateAuthenticated) {
			return transitionResult{next: state}, nil
		}
	case side == wire.Backend && kind == wire.KindNoticeResponse:
		return transitionResult{next: state}, nil
	case side == wire.Backend && kind == wire.KindReadyForQuery:
		if stateIn(state,
			wire.StateSentAllBackendParams,
			wire.StateCompletedSimpleCommand,
			wire.StateAbortedSimpleQuery,
			wire.StateSeenEmptySimpleQuery,
			wire.StateAbortedParsingOrBinding,
			wire.StateGotSync,
		) {
			return transitionResult{next: wire.StateReadyForQuery}, nil
		}

	case side == wire.Frontend && kind == wire.KindQuery:
		if state == wire.StateReadyForQuery {
			return transitionResult{next: wire.StateGotSimpleQuery}, nil
		}
	case side == wire.Backend && kind == wire.KindRowDescription:
		if stateIn(state, wire.StateGotSimpleQuery, wire.StateCompletedSimpleCommand) {
			return transitionResult{next: wire.StateAnsweringToSimpleQuery}, nil
		}
	case side == wire.Backend && kind == wire.KindDataRow:
		if state == wire.StateAnsweringToSimpleQuery {
			return transitionResult{next: wire.StateAnsweringToSimpleQuery}, nil
		}
		if stateIn(state, wire.StateAnsweringToExtendedQuery, wire.StateExecutingExtendedQuery) {
			return transitionResult{next: wire.StateAnsweringToExtendedQuery}, nil
		}
	case side == wire.Backend && kind == wire.KindCommandComplete:
		if stateIn(state, wire.StateGotSimpleQuery, wire.StateAnsweringToSimpleQuery, wire.StateCompletedSimpleCommand) {
			return transitionResult{next: wire.StateCompletedSimpleCommand}, nil
		}
		if stateIn(state, wire.StateAnsweringToExtendedQuery, wire.StateExecutingExtendedQuery) {
			return transitionResult{next: wire.StateCompletedExtendedQuery}, nil
		}
	case side == wire.Backend && kind == wire.KindEmptyQueryResponse:
		if state == wire.StateGotSimpleQuery {
			return transitionResult{next: wire.StateSeenEmptySimpleQuery}, nil
		}
		if state == wire.StateExecutingExtendedQuery {
			return transitionResult{next: wire.StateSeenEmptyExtendedQuery}, nil
		}

	case side == wire.Frontend && kind == wire.KindParse:
		if state == wire.StateReadyForQuery {
			return transitionResult{next: wire.StateGotPreparedStatement}, nil
		}
	case side == wire.Backend && kind == wire.KindParseComplete:
		if state == wire.StateGotPreparedStatement {
			return transitionResult{next: wire.StateReadyForQuery}, nil
		}
	case side == wire.Frontend && kind == wire.KindBind:
		if state == wire.StateReadyForQuery {
			return transitionResult{next: wire.StateGotBinding}, nil
		}
	case side == wire.Backend && kind == wire.KindBindComplete:
		if state == wire.StateGotBinding {
			return transitionResult{next: wire.StateReadyForQuery}, nil
		}
	case side == wire.Frontend && kind == wire.KindExecute:
		if stateIn(state, wire.StateReadyForQuery, wire.StateSuspendedExtendedQuery) {
			return transitionResult{next: wire.StateExecutingExtendedQuery}, nil
		}
	case side == wire.Backend && kind == wire.KindPortalSuspended:
		if state == wire.StateAnsweringToExtendedQuery {
			return transitionResult{next: wire.StateSuspendedExtendedQuery}, nil
		}
	case side == wire.Frontend && kind == wire.KindSync:
		if stateIn(state, terminalExtendedQueryStates...) {
			return transitionResult{next: wire.StateGotSync}, nil
		}

	case side == wire.Backend && kind == wire.KindErrorResponse:
		return advanceErrorResponse(state)

	case side == wire.Frontend && kind == wire.KindTerminate:
		if state == wire.StateReadyForQuery {
			return transitionResult{terminate: true}, nil
		}
	}

	return transitionResult{}, &wire.UnexpectedTypeError{State: state, Side: side, Tag: tagFor(side, kind)}
}

func isPasswordFamily(kind wire.Kind) bool {
	switch kind {
	case wire.KindPassword, wire.KindGSSResponse, wire.KindSASLInitialResponse, wire.KindSASLResponse:
		return true
	default:
		return false
	}
}

func advanceFrontendAuthResponse(kind wire.Kind, state wire.State) (transitionResult, error) {
	switch state {
	case wire.StateAskedCleartextPassword:
		if kind == wire.KindPassword {
			return transitionResult{next: wire.StateGotCleartextPassword}, nil
		}
	case wire.StateAskedMd5Password:
		if kind == wire.KindPassword {
			return transitionResult{next: wire.StateGotMd5Password}, nil
		}
	case wire.StateAskedGssResponse:
		if kind == wire.KindGSSResponse {
			return transitionResult{next: wire.StateGotGssResponse}, nil
		}
	case wire.StateAskedSaslInitialResponse:
		if kind == wire.KindSASLInitialResponse {
			return transitionResult{next: wire.StateGotAnySaslResponse}, nil
		}
	case wire.StateAskedSaslResponse:
		if kind == wire.KindSASLResponse {
			return transitionResult{next: wire.StateGotAnySaslResponse}, nil
		}
	}
	return transitionResult{}, &wire.UnexpectedTypeError{State: state, Side: wire.Frontend, Tag: 'p'}
}

func advanceAuthentication(auth *wire.Authentication, state wire.State) (transitionResult, error) {
	switch auth.Variant {
	case wire.AuthOk:
		if stateIn(state, wire.StateGotStartup, wire.StateGotCleartextPassword, wire.StateGotMd5Password, wire.StateGotGssResponse, wire.StateFinishedSasl) {
			return transitionResult{next: wire.StateAuthenticated}, nil
		}
	case wire.AuthCleartext:
		if state == wire.StateGotStartup {
			return transitionResult{next: wire.StateAskedCleartextPassword}, nil
		}
	case wire.AuthMD5:
		if state == wire.StateGotStartup {
			return transitionResult{next: wire.StateAskedMd5Password}, nil
		}
	case wire.AuthGSS, wire.AuthSSPI:
		if state == wire.StateGotStartup {
			return transitionResult{next: wire.StateAskedGssResponse}, nil
		}
	case wire.AuthGSSContinue:
		if state == wire.StateAskedGssResponse {
			return transitionResult{next: wire.StateAskedGssResponse}, nil
		}
	case wire.AuthSASL:
		if state == wire.StateGotStartup {
			return transitionResult{next: wire.StateAskedSaslInitialResponse}, nil
		}
	case wire.AuthSASLContinue:
		if state == wire.StateGotAnySaslResponse {
			return transitionResult{next: wire.StateAskedSaslResponse}, nil
		}
	case wire.AuthSASLFinal:
		if state == wire.StateGotAnySaslResponse {
			return transitionResult{next: wire.StateFinishedSasl}, nil
		}
	case wire.AuthKerberosV5:
		return transitionResult{}, &UnsupportedError{Reason: "Kerberos V5 authentication"}
	case wire.AuthSCMCredential:
		return transitionResult{}, &UnsupportedError{Reason: "SCM credential authentication"}
	}
	return transitionResult{}, &wire.UnexpectedTypeError{State: state, Side: wire.Backend, Tag: 'R'}
}

func advanceErrorResponse(state wire.State) (transitionResult, error) {
	if stateIn(state, preAuthStates...) {
		return transitionResult{terminate: true}, nil
	}
	if stateIn(state, simpleQueryStates...) {
		return transitionResult{next: wire.StateAbortedSimpleQuery}, nil
	}
	if state == wire.StateGotPreparedStatement || state == wire.StateGotBinding {
		return transitionResult{next: wire.StateAbortedParsingOrBinding}, nil
	}
	if stateIn(state, extendedQueryStates...) {
		return transitionResult{next: wire.StateAbortedExtendedQuery}, nil
	}
	return transitionResult{}, &wire.UnexpectedTypeError{State: state, Side: wire.Backend, Tag: 'E'}
}

// tagFor recovers the wire tag byte for an error message; used only to
// populate UnexpectedTypeError with a human-meaningful byte.
func tagFor(side wire.Side, kind wire.Kind) byte {
	tags := map[wire.Kind]byte{
		wire.KindAuthentication:           'R',
		wire.KindBackendKeyData:           'K',
		wire.KindBind:                     'B',
		wire.KindBindComplete:             '2',
		wire.KindParse:                    'P',
		wire.KindParseComplete:            '1',
		wire.KindExecute:                  'E',
		wire.KindQuery:                    'Q',
		wire.KindCommandComplete:          'C',
		wire.KindDataRow:                  'D',
		wire.KindRowDescription:           'T',
		wire.KindErrorResponse:            'E',
		wire.KindNoticeResponse:           'N',
		wire.KindReadyForQuery:            'Z',
		wire.KindParameterStatus:          'S',
		wire.KindNegotiateProtocolVersion: 'v',
		wire.KindPassword:                 'p',
		wire.KindGSSResponse:              'p',
		wire.KindSASLInitialResponse:      'p',
		wire.KindSASLResponse:             'p',
		wire.KindPortalSuspended:          's',
		wire.KindEmptyQueryResponse:       'I',
		wire.KindSync:                     'S',
		wire.KindTerminate:                'X',
		wire.KindCopyDone:                 'c',
	}
	return tags[kind]
}
