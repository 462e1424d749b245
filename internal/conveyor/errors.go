package conveyor

import "fmt"

// UnsupportedError reports a recognised but explicitly rejected feature,
// such as the legacy Kerberos or SCM-credential auth variants.
type UnsupportedError struct {
	Reason string
}

func (e *UnsupportedError) Error() string { return "unsupported: " + e.Reason }

// terminated is returned internally by the steady-state loop to signal a
// clean, successful end of the conveyor (Terminate, CancelRequest, or a
// pre-auth ErrorResponse). It is never surfaced to callers of Convey — a
// nil error return means exactly this.
type terminated struct{ reason string }

func (t *terminated) Error() string { return fmt.Sprintf("terminated: %s", t.reason) }
