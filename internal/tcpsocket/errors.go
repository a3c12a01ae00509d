package tcpsocket

import "errors"

// ErrConnectionAborted is surfaced when the peer closed the connection,
// or a write would have raised SIGPIPE (spec.md §4.C, §7).
var ErrConnectionAborted = errors.New("tcpsocket: connection aborted")

// ErrNotOpen is surfaced when an operation is attempted on a socket that
// is closed or has not reached the required state.
var ErrNotOpen = errors.New("tcpsocket: socket not open")
