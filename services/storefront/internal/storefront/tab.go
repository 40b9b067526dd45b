package storefront

import (
	"context"
	"sync"
	"time"

	"github.com/aquamarinepk/aqm"

	"github.com/appetiteclub/storefront/services/storefront/internal/rating"
)

const (
	eventBufferSize        = 32
	notificationBufferSize = 8
)

// Tab is one open storefront page. It owns the rating controller of that page
// and the signal channels feeding its detector.
type Tab struct {
	ID         string
	Table      string
	URL        string
	CustomerID string
	CreatedAt  time.Time

	controller    *rating.Controller
	cards         *rating.CardSet
	views         *ViewBroadcaster
	events        chan []byte
	notifications chan rating.Notification
	cancel        context.CancelFunc
	done          chan struct{}
	logger        aqm.Logger

	mu        sync.Mutex
	expiresAt time.Time
	closed    bool
}

func (t *Tab) Controller() *rating.Controller {
	return t.controller
}

func (t *Tab) Cards() *rating.CardSet {
	return t.cards
}

func (t *Tab) Views() *ViewBroadcaster {
	return t.views
}

// Dispatch hands a raw completion event to the tab's detector. Events are
// dropped when the tab is closed or not keeping up.
func (t *Tab) Dispatch(data []byte) bool {
	if t.isClosed() {
		return false
	}
	select {
	case t.events <- data:
		return true
	default:
		t.logger.Info("tab event buffer full, dropping completion event", "tab_id", t.ID)
		return false
	}
}

// Notify reports a banner shown by the page.
func (t *Tab) Notify(n rating.Notification) bool {
	if t.isClosed() {
		return false
	}
	select {
	case t.notifications <- n:
		return true
	default:
		t.logger.Info("tab notification buffer full, dropping banner", "tab_id", t.ID)
		return false
	}
}

// Done is closed once the tab's detector has stopped.
func (t *Tab) Done() <-chan struct{} {
	return t.done
}

// ExpiresAt is when the tab expires unless it is used again.
func (t *Tab) ExpiresAt() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.expiresAt
}

func (t *Tab) touch(ttl time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.expiresAt = time.Now().Add(ttl)
}

func (t *Tab) expired(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return now.After(t.expiresAt)
}

func (t *Tab) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func (t *Tab) close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.mu.Unlock()

	t.cancel()
	t.controller.Close()
	t.views.Close()
}
