package rating

import (
	"context"
	"errors"
	"sync"
)

var ErrSnapshotNotFound = errors.New("snapshot not found")

// SnapshotStore keeps the last completed version of orders seen on the
// real-time channel. It backs the reconciler when the order fetch fails.
type SnapshotStore interface {
	Save(ctx context.Context, order Order) error
	Get(ctx context.Context, orderID string) (*Order, error)
}

type MemorySnapshotStore struct {
	mu     sync.RWMutex
	orders map[string]Order
}

func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{orders: make(map[string]Order)}
}

func (s *MemorySnapshotStore) Save(_ context.Context, order Order) error {
	id := order.Key()
	if id == "" {
		return errors.New("snapshot order has no id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[id] = order
	return nil
}

func (s *MemorySnapshotStore) Get(_ context.Context, orderID string) (*Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	order, ok := s.orders[orderID]
	if !ok {
		return nil, ErrSnapshotNotFound
	}
	items := make([]LineItem, len(order.Items))
	copy(items, order.Items)
	order.Items = items
	return &order, nil
}
