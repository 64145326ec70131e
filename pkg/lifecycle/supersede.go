package lifecycle

import (
	"context"
	"sync"
)

// requestClass identifies the two kinds of reissuable long-running request.
type requestClass int

const (
	classLoad requestClass = iota
	classSearch
)

// token ties one in-flight request to the generation it was issued under.
// A token whose generation is no longer the latest for its class is stale
// and its result must be discarded.
type token struct {
	class requestClass
	gen   uint64
}

// supersessionManager hands out per-class generation tokens. Issuing a new
// token for a class invalidates the previous one and cancels its context as
// a best-effort transport abort; correctness relies only on the isCurrent
// check before applying results.
type supersessionManager struct {
	mu      sync.Mutex
	gens    map[requestClass]uint64
	cancels map[requestClass]context.CancelFunc
}

func newSupersessionManager() *supersessionManager {
	return &supersessionManager{
		gens:    make(map[requestClass]uint64),
		cancels: make(map[requestClass]context.CancelFunc),
	}
}

// begin issues a fresh token for the class, cancelling any previous holder.
// The returned context is derived from ctx and is cancelled when a newer
// request of the same class begins.
func (m *supersessionManager) begin(ctx context.Context, class requestClass) (context.Context, token) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cancel, ok := m.cancels[class]; ok {
		cancel()
	}

	m.gens[class]++
	reqCtx, cancel := context.WithCancel(ctx)
	m.cancels[class] = cancel

	return reqCtx, token{class: class, gen: m.gens[class]}
}

// isCurrent reports whether t is still the latest token issued for its class.
func (m *supersessionManager) isCurrent(t token) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gens[t.class] == t.gen
}

// finish releases the cancel func held for a token, if it is still current.
func (m *supersessionManager) finish(t token) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gens[t.class] != t.gen {
		return
	}
	if cancel, ok := m.cancels[t.class]; ok {
		cancel()
		delete(m.cancels, t.class)
	}
}
