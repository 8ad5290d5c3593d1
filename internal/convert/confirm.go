package convert

import (
	"sync"
	"time"

	"epconvert/internal/identity"
)

// ConfirmRequest is one pending disambiguation decision. The worker that
// posted it blocks until Reply is called or its timeout elapses.
type ConfirmRequest struct {
	RawText    string
	Candidates []identity.Candidate

	once  sync.Once
	reply chan *identity.Record
}

// Reply delivers the decision: a chosen record, or nil to skip. Only the
// first call has any effect; later calls are ignored, so a reply racing a
// worker timeout is harmless.
func (r *ConfirmRequest) Reply(rec *identity.Record) {
	r.once.Do(func() {
		r.reply <- rec
		close(r.reply)
	})
}

// ConfirmBridge carries disambiguation requests from the conversion worker
// to an interactive frontend. The request channel has capacity one and the
// worker posts synchronously, so at most one request is ever outstanding.
type ConfirmBridge struct {
	mu       sync.Mutex
	closed   bool
	requests chan *ConfirmRequest
	timeout  time.Duration
}

// NewConfirmBridge creates a bridge whose workers wait at most timeout for
// each decision. A timed-out request is treated as "skip".
func NewConfirmBridge(timeout time.Duration) *ConfirmBridge {
	return &ConfirmBridge{
		requests: make(chan *ConfirmRequest, 1),
		timeout:  timeout,
	}
}

// Requests exposes pending disambiguation requests to the frontend. The
// channel is closed by Close, ending a range loop over it.
func (b *ConfirmBridge) Requests() <-chan *ConfirmRequest {
	return b.requests
}

// Close releases the frontend: the request channel is closed and later Hook
// invocations return "skip". Call it once the conversions using the hook
// have returned. Idempotent.
func (b *ConfirmBridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.requests)
}

// post delivers one request to the frontend, waiting at most the bridge
// timeout. The mutex spans the send so Close cannot race it.
func (b *ConfirmBridge) post(req *ConfirmRequest) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false
	}

	timer := time.NewTimer(b.timeout)
	defer timer.Stop()
	select {
	case b.requests <- req:
		return true
	case <-timer.C:
		return false
	}
}

// Hook returns the worker-side confirmation function. It posts one request
// and blocks for the reply; the conversion continues as unidentified when
// the frontend does not answer in time or the bridge is closed.
func (b *ConfirmBridge) Hook() identity.ConfirmFunc {
	return func(rawText string, candidates []identity.Candidate) *identity.Record {
		req := &ConfirmRequest{
			RawText:    rawText,
			Candidates: candidates,
			reply:      make(chan *identity.Record, 1),
		}
		if !b.post(req) {
			return nil
		}

		wait := time.NewTimer(b.timeout)
		defer wait.Stop()
		select {
		case rec := <-req.reply:
			return rec
		case <-wait.C:
			return nil
		}
	}
}
