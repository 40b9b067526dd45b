package storefront

import (
	"sync"

	"github.com/aquamarinepk/aqm"

	"github.com/appetiteclub/storefront/services/storefront/internal/rating"
)

const viewBufferSize = 16

// ViewBroadcaster is the rating.Presenter of one tab. It keeps the last
// rendered view and fans every change out to the tab's SSE connections.
type ViewBroadcaster struct {
	logger aqm.Logger

	mu          sync.RWMutex
	last        rating.ModalView
	subscribers map[string]chan rating.ModalView
	closed      bool
}

func NewViewBroadcaster(logger aqm.Logger) *ViewBroadcaster {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &ViewBroadcaster{
		logger:      logger,
		last:        rating.ModalView{State: string(rating.StateIdle)},
		subscribers: make(map[string]chan rating.ModalView),
	}
}

func (b *ViewBroadcaster) Render(view rating.ModalView) {
	b.publish(view)
}

func (b *ViewBroadcaster) Hide() {
	b.mu.RLock()
	hidden := rating.ModalView{
		State: string(rating.StateIdle),
		Lang:  b.last.Lang,
		Dir:   b.last.Dir,
	}
	b.mu.RUnlock()
	b.publish(hidden)
}

// Last returns the most recent view.
func (b *ViewBroadcaster) Last() rating.ModalView {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.last
}

func (b *ViewBroadcaster) publish(view rating.ModalView) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.last = view

	for subscriberID, ch := range b.subscribers {
		select {
		case ch <- view:
		default:
			b.logger.Info("view subscriber too slow, dropping update", "subscriber_id", subscriberID)
		}
	}
}

// Subscribe registers an SSE connection. The current view is delivered first.
func (b *ViewBroadcaster) Subscribe(subscriberID string) <-chan rating.ModalView {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan rating.ModalView, viewBufferSize)
	if b.closed {
		close(ch)
		return ch
	}
	ch <- b.last
	b.subscribers[subscriberID] = ch
	return ch
}

func (b *ViewBroadcaster) Unsubscribe(subscriberID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subscribers[subscriberID]; ok {
		close(ch)
		delete(b.subscribers, subscriberID)
	}
}

// Close ends every subscription; later renders are ignored.
func (b *ViewBroadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
}

func (b *ViewBroadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
