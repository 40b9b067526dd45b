package storefront

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aquamarinepk/aqm/events"

	"github.com/appetiteclub/storefront/services/storefront/internal/rating"
)

// MockAPI is a mock implementation of rating.API for testing
type MockAPI struct {
	mu          sync.Mutex
	submissions []rating.RatingSubmission

	GetOrderFunc      func(ctx context.Context, orderID string) (*rating.Order, error)
	RatedProductsFunc func(ctx context.Context, orderID string) (map[string]bool, error)
	SubmitRatingFunc  func(ctx context.Context, sub rating.RatingSubmission) error
}

func (m *MockAPI) GetOrder(ctx context.Context, orderID string) (*rating.Order, error) {
	if m.GetOrderFunc != nil {
		return m.GetOrderFunc(ctx, orderID)
	}
	return nil, errors.New("order not configured")
}

func (m *MockAPI) RatedProducts(ctx context.Context, orderID string) (map[string]bool, error) {
	if m.RatedProductsFunc != nil {
		return m.RatedProductsFunc(ctx, orderID)
	}
	return map[string]bool{}, nil
}

func (m *MockAPI) GetProduct(ctx context.Context, productID string) (*rating.Product, error) {
	return nil, rating.NewAPIError(404, "Product not found")
}

func (m *MockAPI) SubmitRating(ctx context.Context, sub rating.RatingSubmission) error {
	m.mu.Lock()
	m.submissions = append(m.submissions, sub)
	m.mu.Unlock()
	if m.SubmitRatingFunc != nil {
		return m.SubmitRatingFunc(ctx, sub)
	}
	return nil
}

func (m *MockAPI) SkipOrder(ctx context.Context, orderID string) error {
	return nil
}

func (m *MockAPI) ExistingRatings(ctx context.Context, orderID string) ([]rating.ExistingRating, error) {
	return nil, nil
}

func (m *MockAPI) Submissions() []rating.RatingSubmission {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]rating.RatingSubmission, len(m.submissions))
	copy(out, m.submissions)
	return out
}

// completedOrder returns a GetOrderFunc serving a completed two-item order.
func completedOrder() func(context.Context, string) (*rating.Order, error) {
	return func(_ context.Context, orderID string) (*rating.Order, error) {
		return &rating.Order{
			ID:     orderID,
			Status: "completed",
			Items: []rating.LineItem{
				{ID: "burger1-abc", Name: "Burger", Image: "/img/burger.png"},
				{ID: "fries1-def", Name: "Fries", Image: "/img/fries.png"},
			},
		}, nil
	}
}

// MockSubscriber implements events.Subscriber for testing
type MockSubscriber struct {
	SubscribeFunc func(ctx context.Context, topic string, handler events.HandlerFunc) error
}

func (m *MockSubscriber) Subscribe(ctx context.Context, topic string, handler events.HandlerFunc) error {
	if m.SubscribeFunc != nil {
		return m.SubscribeFunc(ctx, topic, handler)
	}
	return nil
}

// holdScheduler never fires; pacing timers are irrelevant to these tests.
type holdScheduler struct{}

func (holdScheduler) AfterFunc(time.Duration, func()) {}

func newTestStore(api rating.API) *TabStore {
	return NewTabStore(TabDeps{
		API:       api,
		Scheduler: holdScheduler{},
	}, time.Hour, nil)
}

// waitForView blocks until a view satisfying match is broadcast.
func waitForView(t *testing.T, tab *Tab, match func(rating.ModalView) bool) rating.ModalView {
	t.Helper()
	id := "wait-" + tab.ID
	views := tab.Views().Subscribe(id)
	defer tab.Views().Unsubscribe(id)

	timeout := time.After(2 * time.Second)
	for {
		select {
		case view, ok := <-views:
			if !ok {
				t.Fatal("view channel closed")
			}
			if match(view) {
				return view
			}
		case <-timeout:
			t.Fatalf("timeout waiting for view, last = %+v", tab.Views().Last())
			return rating.ModalView{}
		}
	}
}

func visible(view rating.ModalView) bool {
	return view.Visible && view.State == string(rating.StatePresenting)
}
