package wire

// Empty-body messages carry no fields; decoding just confirms the frame had
// no leftover bytes (the conveyor's frame reader already enforces that via
// LeftUndecodedError). Each still gets a distinct type so a Message's Body
// is never nil for these kinds.

// BindComplete is the backend '2' message.
type BindComplete struct{}

// DecodeBindComplete decodes the (empty) body of a '2' backend message.
func DecodeBindComplete(s *Source) (*BindComplete, error) { return &BindComplete{}, nil }

// ParseComplete is the backend '1' message.
type ParseComplete struct{}

// DecodeParseComplete decodes the (empty) body of a '1' backend message.
func DecodeParseComplete(s *Source) (*ParseComplete, error) { return &ParseComplete{}, nil }

// PortalSuspended is the backend 's' message.
type PortalSuspended struct{}

// DecodePortalSuspended decodes the (empty) body of an 's' backend message.
func DecodePortalSuspended(s *Source) (*PortalSuspended, error) { return &PortalSuspended{}, nil }

// EmptyQueryResponse is the backend 'I' message.
type EmptyQueryResponse struct{}

// DecodeEmptyQueryResponse decodes the (empty) body of an 'I' backend message.
func DecodeEmptyQueryResponse(s *Source) (*EmptyQueryResponse, error) {
	return &EmptyQueryResponse{}, nil
}

// Sync is the frontend 'S' message.
type Sync struct{}

// DecodeSync decodes the (empty) body of a frontend 'S' message.
func DecodeSync(s *Source) (*Sync, error) { return &Sync{}, nil }

// Terminate is the frontend 'X' message.
type Terminate struct{}

// DecodeTerminate decodes the (empty) body of an 'X' frontend message.
func DecodeTerminate(s *Source) (*Terminate, error) { return &Terminate{}, nil }

// CopyDone is sent on either side as 'c'.
type CopyDone struct{}

// DecodeCopyDone decodes the (empty) body of a 'c' message.
func DecodeCopyDone(s *Source) (*CopyDone, error) { return &CopyDone{}, nil }
