package wire

// State is the conveyor's protocol-phase state. The dispatcher consults it
// to resolve type-byte ambiguity; the conveyor advances it after every
// successfully dispatched message.
type State int

const (
	StateGotStartup State = iota
	StateAskedCleartextPassword
	StateAskedMd5Password
	StateAskedGssResponse
	StateAskedSaslInitialResponse
	StateAskedSaslResponse
	StateGotCleartextPassword
	StateGotMd5Password
	StateGotGssResponse
	StateGotAnySaslResponse
	StateFinishedSasl
	StateAuthenticated
	StateSentAllBackendParams
	StateReadyForQuery
	StateGotSimpleQuery
	StateAnsweringToSimpleQuery
	StateCompletedSimpleCommand
	StateSeenEmptySimpleQuery
	StateAbortedSimpleQuery
	StateGotPreparedStatement
	StateGotBinding
	StateExecutingExtendedQuery
	StateAnsweringToExtendedQuery
	StateCompletedExtendedQuery
	StateSeenEmptyExtendedQuery
	StateSuspendedExtendedQuery
	StateAbortedExtendedQuery
	StateAbortedParsingOrBinding
	StateGotSync
)

func (s State) String() string {
	switch s {
	case StateGotStartup:
		return "GotStartup"
	case StateAskedCleartextPassword:
		return "AskedCleartextPassword"
	case StateAskedMd5Password:
		return "AskedMd5Password"
	case StateAskedGssResponse:
		return "AskedGssResponse"
	case StateAskedSaslInitialResponse:
		return "AskedSaslInitialResponse"
	case StateAskedSaslResponse:
		return "AskedSaslResponse"
	case StateGotCleartextPassword:
		return "GotCleartextPassword"
	case StateGotMd5Password:
		return "GotMd5Password"
	case StateGotGssResponse:
		return "GotGssResponse"
	case StateGotAnySaslResponse:
		return "GotAnySaslResponse"
	case StateFinishedSasl:
		return "FinishedSasl"
	case StateAuthenticated:
		return "Authenticated"
	case StateSentAllBackendParams:
		return "SentAllBackendParams"
	case StateReadyForQuery:
		return "ReadyForQuery"
	case StateGotSimpleQuery:
		return "GotSimpleQuery"
	case StateAnsweringToSimpleQuery:
		return "AnsweringToSimpleQuery"
	case StateCompletedSimpleCommand:
		return "CompletedSimpleCommand"
	case StateSeenEmptySimpleQuery:
		return "SeenEmptySimpleQuery"
	case StateAbortedSimpleQuery:
		return "AbortedSimpleQuery"
	case StateGotPreparedStatement:
		return "GotPreparedStatement"
	case StateGotBinding:
		return "GotBinding"
	case StateExecutingExtendedQuery:
		return "ExecutingExtendedQuery"
	case StateAnsweringToExtendedQuery:
		return "AnsweringToExtendedQuery"
	case StateCompletedExtendedQuery:
		return "CompletedExtendedQuery"
	case StateSeenEmptyExtendedQuery:
		return "SeenEmptyExtendedQuery"
	case StateSuspendedExtendedQuery:
		return "SuspendedExtendedQuery"
	case StateAbortedExtendedQuery:
		return "AbortedExtendedQuery"
	case StateAbortedParsingOrBinding:
		return "AbortedParsingOrBinding"
	case StateGotSync:
		return "GotSync"
	default:
		return "State(?)"
	}
}
