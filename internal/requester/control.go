package requester

// Control messages shared by every requester-driven thread and by the
// broker's receiver/sender coordination (spec.md §4.G, §4.L). Declaring
// them once here keeps threads and broker from disagreeing on shape.

// TerminationRequest asks a requester-base thread to exit its run loop
// after completing the current iteration.
type TerminationRequest struct{}

// PingRequest asks a requester-base thread to answer liveness with Pong.
type PingRequest struct{}

// PongResponse answers a PingRequest.
type PongResponse struct{}

// OkResponse is the generic acknowledgement for requests that only need
// a yes (e.g. TerminationRequest, ConnectRequest, DisconnectRequest).
type OkResponse struct{}

// ConnectRequest notifies a broker's sender thread that the receiver has
// completed an accept/connect handshake (spec.md §4.L).
type ConnectRequest struct{}

// DisconnectRequest notifies a broker's sender thread that the receiver
// detected a connection abort (spec.md §4.L).
type DisconnectRequest struct{}
