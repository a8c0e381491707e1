package handlers

import (
	"context"
	"sync"
)

// registry tracks the sessions that are still streaming so they can be canceled when the same page
// asks again, or when the server shuts down.
type registry struct {
	mu       sync.Mutex
	inflight map[string]inflight

	cancelStale bool

	base       context.Context
	cancelBase context.CancelFunc
}

type inflight struct {
	clientID string
	cancel   context.CancelFunc
}

func newRegistry(cancelStale bool) *registry {
	base, cancel := context.WithCancel(context.Background())
	return &registry{
		inflight:    make(map[string]inflight),
		cancelStale: cancelStale,
		base:        base,
		cancelBase:  cancel,
	}
}

// start registers a new session and returns its context together with the IDs of the sessions it
// canceled. Sessions of other clients are never touched.
func (r *registry) start(clientID, sessionID string) (context.Context, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var stale []string
	if r.cancelStale && clientID != "" {
		for id, in := range r.inflight {
			if in.clientID != clientID {
				continue
			}
			in.cancel()
			delete(r.inflight, id)
			stale = append(stale, id)
		}
	}

	ctx, cancel := context.WithCancel(r.base)
	r.inflight[sessionID] = inflight{clientID: clientID, cancel: cancel}
	return ctx, stale
}

// finish releases the context of a session that has ended.
func (r *registry) finish(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if in, ok := r.inflight[sessionID]; ok {
		in.cancel()
		delete(r.inflight, sessionID)
	}
}

func (r *registry) active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.inflight)
}

// shutdown cancels every session, including those started afterwards, and returns how many were
// streaming.
func (r *registry) shutdown() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.inflight)
	r.cancelBase()
	clear(r.inflight)
	return n
}
