package rating

import (
	"context"
	"errors"
	"sync"
	"time"
)

// MockAPI is a mock implementation of API for testing
type MockAPI struct {
	mu          sync.Mutex
	submissions []RatingSubmission
	skipped     []string
	calls       map[string]int

	GetOrderFunc        func(ctx context.Context, orderID string) (*Order, error)
	RatedProductsFunc   func(ctx context.Context, orderID string) (map[string]bool, error)
	GetProductFunc      func(ctx context.Context, productID string) (*Product, error)
	SubmitRatingFunc    func(ctx context.Context, sub RatingSubmission) error
	SkipOrderFunc       func(ctx context.Context, orderID string) error
	ExistingRatingsFunc func(ctx context.Context, orderID string) ([]ExistingRating, error)
}

func NewMockAPI() *MockAPI {
	return &MockAPI{calls: make(map[string]int)}
}

func (m *MockAPI) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[name]++
}

func (m *MockAPI) Calls(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

func (m *MockAPI) Submissions() []RatingSubmission {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]RatingSubmission, len(m.submissions))
	copy(out, m.submissions)
	return out
}

func (m *MockAPI) Skipped() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.skipped))
	copy(out, m.skipped)
	return out
}

func (m *MockAPI) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	m.record("GetOrder")
	if m.GetOrderFunc != nil {
		return m.GetOrderFunc(ctx, orderID)
	}
	return nil, errors.New("order not configured")
}

func (m *MockAPI) RatedProducts(ctx context.Context, orderID string) (map[string]bool, error) {
	m.record("RatedProducts")
	if m.RatedProductsFunc != nil {
		return m.RatedProductsFunc(ctx, orderID)
	}
	return map[string]bool{}, nil
}

func (m *MockAPI) GetProduct(ctx context.Context, productID string) (*Product, error) {
	m.record("GetProduct")
	if m.GetProductFunc != nil {
		return m.GetProductFunc(ctx, productID)
	}
	return nil, NewAPIError(404, "Product not found")
}

func (m *MockAPI) SubmitRating(ctx context.Context, sub RatingSubmission) error {
	m.record("SubmitRating")
	m.mu.Lock()
	m.submissions = append(m.submissions, sub)
	m.mu.Unlock()
	if m.SubmitRatingFunc != nil {
		return m.SubmitRatingFunc(ctx, sub)
	}
	return nil
}

func (m *MockAPI) SkipOrder(ctx context.Context, orderID string) error {
	m.record("SkipOrder")
	m.mu.Lock()
	m.skipped = append(m.skipped, orderID)
	m.mu.Unlock()
	if m.SkipOrderFunc != nil {
		return m.SkipOrderFunc(ctx, orderID)
	}
	return nil
}

func (m *MockAPI) ExistingRatings(ctx context.Context, orderID string) ([]ExistingRating, error) {
	m.record("ExistingRatings")
	if m.ExistingRatingsFunc != nil {
		return m.ExistingRatingsFunc(ctx, orderID)
	}
	return nil, nil
}

// orderWith returns a GetOrderFunc that always serves order.
func orderWith(order *Order) func(context.Context, string) (*Order, error) {
	return func(context.Context, string) (*Order, error) {
		cp := *order
		cp.Items = append([]LineItem(nil), order.Items...)
		return &cp, nil
	}
}

// ManualScheduler records callbacks and runs them only when told to.
type ManualScheduler struct {
	mu      sync.Mutex
	pending []scheduled
}

type scheduled struct {
	delay time.Duration
	fn    func()
}

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

func (s *ManualScheduler) AfterFunc(d time.Duration, f func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, scheduled{delay: d, fn: f})
}

func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *ManualScheduler) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, 0, len(s.pending))
	for _, p := range s.pending {
		out = append(out, p.delay)
	}
	return out
}

// RunAll fires every pending callback in scheduling order. Callbacks
// scheduled while running are kept for the next call.
func (s *ManualScheduler) RunAll() {
	s.mu.Lock()
	due := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, p := range due {
		p.fn()
	}
}

// MockPresenter records what the controller shows.
type MockPresenter struct {
	mu      sync.Mutex
	renders []ModalView
	hides   int
}

func NewMockPresenter() *MockPresenter {
	return &MockPresenter{}
}

func (p *MockPresenter) Render(view ModalView) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.renders = append(p.renders, view)
}

func (p *MockPresenter) Hide() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hides++
}

func (p *MockPresenter) Renders() []ModalView {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]ModalView, len(p.renders))
	copy(out, p.renders)
	return out
}

func (p *MockPresenter) Hides() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hides
}

// MockRequester records every order funnelled into it.
type MockRequester struct {
	mu     sync.Mutex
	orders []string

	RequestRatingFunc func(ctx context.Context, orderID string) (bool, error)
}

func (r *MockRequester) RequestRating(ctx context.Context, orderID string) (bool, error) {
	r.mu.Lock()
	r.orders = append(r.orders, orderID)
	r.mu.Unlock()
	if r.RequestRatingFunc != nil {
		return r.RequestRatingFunc(ctx, orderID)
	}
	return true, nil
}

func (r *MockRequester) Orders() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.orders))
	copy(out, r.orders)
	return out
}
