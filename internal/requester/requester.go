// Package requester implements spec.md §4.D: a bounded request queue
// plus a response map keyed by request ID, the sole coordination channel
// between the two halves of a subsystem thread pair (e.g. a broker's
// receiver and sender). Grounded on rkruze-franz-go's broker.go
// correlation-ID request/response bookkeeping — the Kafka wire protocol
// matches responses to requests by correlation ID over a shared
// connection, the same shape as InterThreadRequester, and that pack file
// implements it by hand over channels/mutexes, confirming stdlib
// sync+channels (not a third-party library) is the idiom here.
package requester

import (
	"errors"
	"sync"

	"github.com/adred-codev/netcore/internal/clock"
	"github.com/adred-codev/netcore/internal/waitcond"
)

// ErrOverflow is returned by SendResponse when the bounded response map
// is full (spec.md §7). A full request queue is reported by SendRequest
// returning 0 instead.
var ErrOverflow = errors.New("requester: overflow")

// ErrNoPendingRequest is returned by SendResponse when no request is
// currently held, or it did not require a response.
var ErrNoPendingRequest = errors.New("requester: no pending request awaiting response")

// DefaultCapacity is the default bound on both the request queue and the
// response map (spec.md §3).
const DefaultCapacity = 16

// PendingRequest bundles a request with its response bookkeeping
// (spec.md §3).
type PendingRequest struct {
	ID               uint64
	Message          any
	ResponseRequired bool

	mu           sync.Mutex
	responseSent bool
}

// Logger is the minimal logging capability the requester needs; it is
// satisfied by internal/logging.Logger, kept decoupled here to avoid an
// import cycle between low-level packages and the ambient logging stack.
type Logger interface {
	Warn(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, map[string]any)  {}
func (noopLogger) Error(string, map[string]any) {}

// Requester is a bounded request/response channel between exactly two
// threads: one plays the "requester" role (SendRequest/AwaitResponse),
// the other the "respondent" role (FetchRequest/AwaitRequest/SendResponse).
// The type does not enforce this split — it only documents it, per
// spec.md §3.
type Requester struct {
	capacity int
	logger   Logger

	mu        sync.Mutex
	queue     []*PendingRequest
	responses map[uint64]any
	nextID    uint64
	current   *PendingRequest

	requestCond  *waitcond.Cond
	responseCond *waitcond.Cond
}

// Option configures a Requester at construction.
type Option func(*Requester)

// WithCapacity overrides DefaultCapacity.
func WithCapacity(n int) Option {
	return func(r *Requester) { r.capacity = n }
}

// WithLogger overrides the no-op default logger.
func WithLogger(l Logger) Option {
	return func(r *Requester) { r.logger = l }
}

// New constructs a ready-to-use Requester.
func New(opts ...Option) *Requester {
	r := &Requester{
		capacity:     DefaultCapacity,
		logger:       noopLogger{},
		responses:    make(map[uint64]any),
		requestCond:  waitcond.NewCond(),
		responseCond: waitcond.NewCond(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SendRequest enqueues a request and returns its allocated ID, or 0 on
// overflow (spec.md §4.D). IDs are monotonically increasing positive
// integers that wrap to 1 on overflow (0 is reserved for "none").
func (r *Requester) SendRequest(msg any) uint64 {
	return r.send(msg, true)
}

// SendMessage is fire-and-forget: the request is delivered but no
// response is ever tracked for it.
func (r *Requester) SendMessage(msg any) bool {
	return r.send(msg, false) != 0
}

func (r *Requester) send(msg any, responseRequired bool) uint64 {
	r.mu.Lock()
	if len(r.queue) >= r.capacity {
		r.mu.Unlock()
		return 0
	}
	r.nextID++
	if r.nextID == 0 {
		r.nextID = 1
	}
	id := r.nextID
	r.queue = append(r.queue, &PendingRequest{ID: id, Message: msg, ResponseRequired: responseRequired})
	r.mu.Unlock()
	r.requestCond.WakeOne()
	return id
}

// FetchRequest is the non-blocking poll variant: it rotates the internal
// "current pending" slot and returns the next request, if any.
func (r *Requester) FetchRequest() (*PendingRequest, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fetchLocked()
}

func (r *Requester) fetchLocked() (*PendingRequest, bool) {
	r.discardUnsentLocked()
	if len(r.queue) == 0 {
		r.current = nil
		return nil, false
	}
	next := r.queue[0]
	r.queue = r.queue[1:]
	r.current = next
	return next, true
}

// discardUnsentLocked implements the "discarded pending request" rule: a
// response-required request dropped without a response logs a warning
// and its response slot is considered lost (spec.md §4.D).
func (r *Requester) discardUnsentLocked() {
	if r.current == nil {
		return
	}
	cur := r.current
	cur.mu.Lock()
	sent := cur.responseSent
	cur.mu.Unlock()
	if cur.ResponseRequired && !sent {
		r.logger.Warn("requester: pending request discarded without a response", map[string]any{"request_id": cur.ID})
	}
	r.current = nil
}

// AwaitRequest blocks until a request is available or deadline expires.
func (r *Requester) AwaitRequest(deadline clock.Timestamp) (*PendingRequest, bool) {
	for {
		if pr, ok := r.FetchRequest(); ok {
			return pr, true
		}
		if deadline.IsZero() {
			return nil, false
		}
		if !r.requestCond.WaitDeadline(deadline) {
			return nil, false
		}
		if deadline.Expired() {
			// One more poll after the final wake before giving up.
			if pr, ok := r.FetchRequest(); ok {
				return pr, true
			}
			return nil, false
		}
	}
}

// SendResponse is only valid when a pending request is currently held
// and required a response (spec.md §4.D).
func (r *Requester) SendResponse(response any) error {
	r.mu.Lock()
	cur := r.current
	if cur == nil || !cur.ResponseRequired {
		r.mu.Unlock()
		return ErrNoPendingRequest
	}
	cur.mu.Lock()
	if cur.responseSent {
		cur.mu.Unlock()
		r.mu.Unlock()
		return ErrNoPendingRequest
	}
	cur.responseSent = true
	cur.mu.Unlock()

	if len(r.responses) >= r.capacity {
		r.mu.Unlock()
		r.logger.Error("requester: response map overflow", map[string]any{"request_id": cur.ID})
		return ErrOverflow
	}
	r.responses[cur.ID] = response
	r.mu.Unlock()
	r.responseCond.WakeAll()
	return nil
}

// AwaitResponse scans the response map for id; on miss it waits on the
// internal condition variable until deadline expires. Responses remain
// in the map until fetched (spec.md §4.D).
func (r *Requester) AwaitResponse(id uint64, deadline clock.Timestamp) (any, bool) {
	for {
		r.mu.Lock()
		resp, ok := r.responses[id]
		if ok {
			delete(r.responses, id)
		}
		r.mu.Unlock()
		if ok {
			return resp, true
		}
		if deadline.IsZero() {
			return nil, false
		}
		if !r.responseCond.WaitDeadline(deadline) {
			return nil, false
		}
		if deadline.Expired() {
			r.mu.Lock()
			resp, ok = r.responses[id]
			if ok {
				delete(r.responses, id)
			}
			r.mu.Unlock()
			return resp, ok
		}
	}
}

// Reset drops all queued requests/responses and clears the current
// pending slot. Not thread-safe; intended for teardown only
// (spec.md §4.D).
func (r *Requester) Reset() {
	r.queue = nil
	r.responses = make(map[uint64]any)
	r.current = nil
}
