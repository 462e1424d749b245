package conveyor

import (
	"testing"

	"github.com/dbbouncer/pgconvey/internal/wire"
)

func TestAdvanceAuthenticationOkFromEveryValidPriorState(t *testing.T) {
	priors := []wire.State{
		wire.StateGotStartup,
		wire.StateGotCleartextPassword,
		wire.StateGotMd5Password,
		wire.StateGotGssResponse,
		wire.StateFinishedSasl,
	}
	for _, prior := range priors {
		res, err := advance(wire.Backend, wire.KindAuthentication, &wire.Authentication{Variant: wire.AuthOk}, prior)
		if err != nil {
			t.Fatalf("prior %s: %v", prior, err)
		}
		if res.next != wire.StateAuthenticated {
			t.Fatalf("prior %s: next = %s, want Authenticated", prior, res.next)
		}
	}
}

func TestAdvanceAuthenticationMD5AsksForPassword(t *testing.T) {
	res, err := advance(wire.Backend, wire.KindAuthentication, &wire.Authentication{Variant: wire.AuthMD5}, wire.StateGotStartup)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if res.next != wire.StateAskedMd5Password {
		t.Fatalf("next = %s, want AskedMd5Password", res.next)
	}
}

func TestAdvanceAuthenticationKerberosUnsupported(t *testing.T) {
	_, err := advance(wire.Backend, wire.KindAuthentication, &wire.Authentication{Variant: wire.AuthKerberosV5}, wire.StateGotStartup)
	if _, ok := err.(*UnsupportedError); !ok {
		t.Fatalf("err = %v (%T), want *UnsupportedError", err, err)
	}
}

func TestAdvancePasswordResponseByState(t *testing.T) {
	res, err := advance(wire.Frontend, wire.KindPassword, &wire.Password{}, wire.StateAskedCleartextPassword)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if res.next != wire.StateGotCleartextPassword {
		t.Fatalf("next = %s, want GotCleartextPassword", res.next)
	}
}

func TestAdvancePasswordResponseWrongStateIsUnexpected(t *testing.T) {
	_, err := advance(wire.Frontend, wire.KindPassword, &wire.Password{}, wire.StateReadyForQuery)
	uerr, ok := err.(*wire.UnexpectedTypeError)
	if !ok {
		t.Fatalf("err = %v (%T), want *wire.UnexpectedTypeError", err, err)
	}
	if uerr.Tag != 'p' {
		t.Fatalf("Tag = %q, want 'p'", uerr.Tag)
	}
}

func TestAdvanceSimpleQueryFlow(t *testing.T) {
	state := wire.StateReadyForQuery

	res, err := advance(wire.Frontend, wire.KindQuery, &wire.Query{SQL: "select 1"}, state)
	mustAdvance(t, res, err, wire.StateGotSimpleQuery)
	state = res.next

	res, err = advance(wire.Backend, wire.KindRowDescription, &wire.RowDescription{}, state)
	mustAdvance(t, res, err, wire.StateAnsweringToSimpleQuery)
	state = res.next

	res, err = advance(wire.Backend, wire.KindDataRow, &wire.DataRow{}, state)
	mustAdvance(t, res, err, wire.StateAnsweringToSimpleQuery)
	state = res.next

	res, err = advance(wire.Backend, wire.KindCommandComplete, &wire.CommandComplete{Tag: "SELECT 1"}, state)
	mustAdvance(t, res, err, wire.StateCompletedSimpleCommand)
	state = res.next

	res, err = advance(wire.Backend, wire.KindReadyForQuery, &wire.ReadyForQuery{}, state)
	mustAdvance(t, res, err, wire.StateReadyForQuery)
	state = res.next

	res, err = advance(wire.Frontend, wire.KindTerminate, &wire.Terminate{}, state)
	if err != nil {
		t.Fatalf("advance Terminate: %v", err)
	}
	if !res.terminate {
		t.Fatalf("Terminate did not set terminate=true")
	}
}

func TestAdvanceExtendedQuerySuspendThenSync(t *testing.T) {
	state := wire.StateReadyForQuery

	res, err := advance(wire.Frontend, wire.KindParse, &wire.Parse{}, state)
	mustAdvance(t, res, err, wire.StateGotPreparedStatement)
	state = res.next

	res, err = advance(wire.Backend, wire.KindParseComplete, &wire.ParseComplete{}, state)
	mustAdvance(t, res, err, wire.StateReadyForQuery)
	state = res.next

	res, err = advance(wire.Frontend, wire.KindBind, &wire.Bind{}, state)
	mustAdvance(t, res, err, wire.StateGotBinding)
	state = res.next

	res, err = advance(wire.Backend, wire.KindBindComplete, &wire.BindComplete{}, state)
	mustAdvance(t, res, err, wire.StateReadyForQuery)
	state = res.next

	res, err = advance(wire.Frontend, wire.KindExecute, &wire.Execute{}, state)
	mustAdvance(t, res, err, wire.StateExecutingExtendedQuery)
	state = res.next

	res, err = advance(wire.Backend, wire.KindDataRow, &wire.DataRow{}, state)
	mustAdvance(t, res, err, wire.StateAnsweringToExtendedQuery)
	state = res.next

	res, err = advance(wire.Backend, wire.KindPortalSuspended, &wire.PortalSuspended{}, state)
	mustAdvance(t, res, err, wire.StateSuspendedExtendedQuery)
	state = res.next

	res, err = advance(wire.Frontend, wire.KindSync, &wire.Sync{}, state)
	mustAdvance(t, res, err, wire.StateGotSync)
	state = res.next

	res, err = advance(wire.Backend, wire.KindReadyForQuery, &wire.ReadyForQuery{}, state)
	mustAdvance(t, res, err, wire.StateReadyForQuery)
}

func TestAdvanceExtendedQuerySuspendThenResume(t *testing.T) {
	state := wire.StateReadyForQuery

	res, err := advance(wire.Frontend, wire.KindParse, &wire.Parse{}, state)
	mustAdvance(t, res, err, wire.StateGotPreparedStatement)
	state = res.next

	res, err = advance(wire.Backend, wire.KindParseComplete, &wire.ParseComplete{}, state)
	mustAdvance(t, res, err, wire.StateReadyForQuery)
	state = res.next

	res, err = advance(wire.Frontend, wire.KindBind, &wire.Bind{}, state)
	mustAdvance(t, res, err, wire.StateGotBinding)
	state = res.next

	res, err = advance(wire.Backend, wire.KindBindComplete, &wire.BindComplete{}, state)
	mustAdvance(t, res, err, wire.StateReadyForQuery)
	state = res.next

	res, err = advance(wire.Frontend, wire.KindExecute, &wire.Execute{}, state)
	mustAdvance(t, res, err, wire.StateExecutingExtendedQuery)
	state = res.next

	res, err = advance(wire.Backend, wire.KindDataRow, &wire.DataRow{}, state)
	mustAdvance(t, res, err, wire.StateAnsweringToExtendedQuery)
	state = res.next

	res, err = advance(wire.Backend, wire.KindPortalSuspended, &wire.PortalSuspended{}, state)
	mustAdvance(t, res, err, wire.StateSuspendedExtendedQuery)
	state = res.next

	// A second Execute resumes the suspended portal instead of going
	// through Sync first.
	res, err = advance(wire.Frontend, wire.KindExecute, &wire.Execute{}, state)
	mustAdvance(t, res, err, wire.StateExecutingExtendedQuery)
	state = res.next

	res, err = advance(wire.Backend, wire.KindDataRow, &wire.DataRow{}, state)
	mustAdvance(t, res, err, wire.StateAnsweringToExtendedQuery)
	state = res.next

	res, err = advance(wire.Backend, wire.KindCommandComplete, &wire.CommandComplete{Tag: "SELECT 1"}, state)
	mustAdvance(t, res, err, wire.StateCompletedExtendedQuery)
	state = res.next

	res, err = advance(wire.Frontend, wire.KindSync, &wire.Sync{}, state)
	mustAdvance(t, res, err, wire.StateGotSync)
	state = res.next

	res, err = advance(wire.Backend, wire.KindReadyForQuery, &wire.ReadyForQuery{}, state)
	mustAdvance(t, res, err, wire.StateReadyForQuery)
}

func TestAdvanceErrorResponsePreAuthTerminates(t *testing.T) {
	res, err := advance(wire.Backend, wire.KindErrorResponse, &wire.ErrorOrNoticeFields{}, wire.StateAskedMd5Password)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if !res.terminate {
		t.Fatalf("pre-auth ErrorResponse did not terminate")
	}
}

func TestAdvanceErrorResponseDuringSimpleQueryAborts(t *testing.T) {
	res, err := advance(wire.Backend, wire.KindErrorResponse, &wire.ErrorOrNoticeFields{}, wire.StateGotSimpleQuery)
	mustAdvance(t, res, err, wire.StateAbortedSimpleQuery)
}

func TestAdvanceErrorResponseDuringBindingAbortsParsingOrBinding(t *testing.T) {
	res, err := advance(wire.Backend, wire.KindErrorResponse, &wire.ErrorOrNoticeFields{}, wire.StateGotBinding)
	mustAdvance(t, res, err, wire.StateAbortedParsingOrBinding)
}

func TestAdvanceErrorResponseDuringExtendedExecutionAborts(t *testing.T) {
	res, err := advance(wire.Backend, wire.KindErrorResponse, &wire.ErrorOrNoticeFields{}, wire.StateExecutingExtendedQuery)
	mustAdvance(t, res, err, wire.StateAbortedExtendedQuery)
}

func mustAdvance(t *testing.T, res transitionResult, err error, want wire.State) {
	t.Helper()
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if res.next != want {
		t.Fatalf("next = %s, want %s", res.next, want)
	}
}
