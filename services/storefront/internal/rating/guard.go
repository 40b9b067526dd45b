package rating

import "sync"

// Guard keeps the in-memory bookkeeping that prevents duplicate or
// overlapping rating sessions within one tab.
type Guard struct {
	mu      sync.Mutex
	active  string
	being   map[string]struct{}
	ignored map[string]struct{}
}

func NewGuard() *Guard {
	return &Guard{
		being:   make(map[string]struct{}),
		ignored: make(map[string]struct{}),
	}
}

// ShouldProceed claims orderID for a new session. A trigger that arrives while
// another order holds the session is dropped without being remembered, so the
// same order can be prompted again once the active one resolves.
func (g *Guard) ShouldProceed(orderID string) bool {
	if orderID == "" {
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.active != "" && g.active != orderID {
		return false
	}
	if _, ok := g.ignored[orderID]; ok {
		return false
	}
	if _, ok := g.being[orderID]; ok {
		return false
	}

	g.being[orderID] = struct{}{}
	g.active = orderID
	return true
}

// Resolve marks orderID as done for this tab (rated, skipped, closed or found
// already rated) and frees the session slot.
func (g *Guard) Resolve(orderID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.being, orderID)
	g.ignored[orderID] = struct{}{}
	if g.active == orderID {
		g.active = ""
	}
}

// Release frees the session slot held by orderID without marking it done, so
// a later trigger for the same order can open it again.
func (g *Guard) Release(orderID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.being, orderID)
	if g.active == orderID {
		g.active = ""
	}
}

func (g *Guard) IsIgnored(orderID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.ignored[orderID]
	return ok
}

func (g *Guard) IsBeingRated(orderID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.being[orderID]
	return ok
}

// Active returns the order currently holding the session, if any.
func (g *Guard) Active() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}
