package storefront

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/aquamarinepk/aqm"
	"github.com/google/uuid"

	"github.com/appetiteclub/storefront/services/storefront/internal/rating"
)

const (
	DefaultTabTTL      = 2 * time.Hour
	tabCleanupInterval = 5 * time.Minute
)

var (
	ErrTabNotFound = errors.New("tab not found")
	ErrTabExpired  = errors.New("tab expired")
	ErrInvalidURL  = errors.New("invalid tab url")
)

// TabDeps are the collaborators shared by every tab.
type TabDeps struct {
	API       rating.API
	Images    rating.ImageCache
	Snapshots rating.SnapshotStore
	Scheduler rating.Scheduler
	Timings   rating.Timings
}

// OpenTabRequest describes the page a tab was opened on.
type OpenTabRequest struct {
	URL        string            `json:"url"`
	Lang       string            `json:"lang"`
	CustomerID string            `json:"customer_id"`
	Cards      map[string]string `json:"cards"`
}

// TabStore keeps the open tabs and expires the ones that stop calling in.
type TabStore struct {
	deps   TabDeps
	ttl    time.Duration
	logger aqm.Logger

	mu   sync.RWMutex
	tabs map[string]*Tab

	stop chan struct{}
	once sync.Once
}

func NewTabStore(deps TabDeps, ttl time.Duration, logger aqm.Logger) *TabStore {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	if ttl <= 0 {
		ttl = DefaultTabTTL
	}
	if deps.Images == nil {
		deps.Images = rating.NewMemoryImageCache()
	}
	if deps.Snapshots == nil {
		deps.Snapshots = rating.NewMemorySnapshotStore()
	}
	if deps.Scheduler == nil {
		deps.Scheduler = rating.NewTimerScheduler()
	}
	if deps.Timings == (rating.Timings{}) {
		deps.Timings = rating.DefaultTimings()
	}
	return &TabStore{
		deps:   deps,
		ttl:    ttl,
		logger: logger,
		tabs:   make(map[string]*Tab),
		stop:   make(chan struct{}),
	}
}

// Start runs the expiry loop.
func (s *TabStore) Start(ctx context.Context) error {
	go s.cleanup()
	return nil
}

// Stop ends the expiry loop and closes every tab.
func (s *TabStore) Stop(ctx context.Context) error {
	s.once.Do(func() { close(s.stop) })

	s.mu.Lock()
	tabs := make([]*Tab, 0, len(s.tabs))
	for id, tab := range s.tabs {
		tabs = append(tabs, tab)
		delete(s.tabs, id)
	}
	s.mu.Unlock()

	for _, tab := range tabs {
		tab.close()
	}
	return nil
}

// Open registers a tab and starts listening for completion signals on its
// behalf. A rate-order parameter in the URL is consumed by the tab's detector.
func (s *TabStore) Open(req OpenTabRequest) (*Tab, error) {
	raw := strings.TrimSpace(req.URL)
	if raw == "" {
		return nil, ErrInvalidURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	id := uuid.New().String()
	logger := s.logger.With("tab_id", id)

	cards := rating.NewCardSet()
	cards.Replace(req.Cards)
	views := NewViewBroadcaster(logger)

	controller := rating.NewController(rating.ControllerDeps{
		API:        s.deps.API,
		Images:     s.deps.Images,
		Cards:      cards,
		Snapshots:  s.deps.Snapshots,
		Presenter:  views,
		Scheduler:  s.deps.Scheduler,
		Locale:     rating.LocaleFor(req.Lang),
		Timings:    s.deps.Timings,
		CustomerID: strings.TrimSpace(req.CustomerID),
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	tab := &Tab{
		ID:            id,
		Table:         rating.TableFromURL(u),
		URL:           rating.StripRateOrder(u).String(),
		CustomerID:    strings.TrimSpace(req.CustomerID),
		CreatedAt:     time.Now(),
		controller:    controller,
		cards:         cards,
		views:         views,
		events:        make(chan []byte, eventBufferSize),
		notifications: make(chan rating.Notification, notificationBufferSize),
		cancel:        cancel,
		done:          make(chan struct{}),
		logger:        logger,
	}
	tab.touch(s.ttl)

	detector := rating.NewDetector(controller, logger,
		rating.URLSignal{URL: u},
		rating.EventSignal{
			Messages:  tab.events,
			Table:     tab.Table,
			Cache:     s.deps.Images,
			Snapshots: s.deps.Snapshots,
			Logger:    logger,
		},
		rating.BannerSignal{
			Notifications: tab.notifications,
			Scheduler:     s.deps.Scheduler,
			Delay:         s.deps.Timings.Banner,
		},
	)

	s.mu.Lock()
	s.tabs[id] = tab
	s.mu.Unlock()

	go func() {
		defer close(tab.done)
		if err := detector.Run(ctx); err != nil {
			logger.Error("tab detector stopped", "error", err)
		}
	}()

	logger.Info("tab opened", "table", tab.Table, "rate_order", rating.OrderIDFromURL(u) != "")
	return tab, nil
}

// Get returns a live tab and extends its lifetime.
func (s *TabStore) Get(id string) (*Tab, error) {
	s.mu.RLock()
	tab, ok := s.tabs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrTabNotFound
	}

	if tab.expired(time.Now()) {
		s.Close(id)
		return nil, ErrTabExpired
	}

	tab.touch(s.ttl)
	return tab, nil
}

func (s *TabStore) Close(id string) bool {
	s.mu.Lock()
	tab, ok := s.tabs[id]
	delete(s.tabs, id)
	s.mu.Unlock()

	if !ok {
		return false
	}
	tab.close()
	s.logger.Info("tab closed", "tab_id", id)
	return true
}

// ForTable returns the open tabs of a table.
func (s *TabStore) ForTable(table string) []*Tab {
	if table == "" {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var tabs []*Tab
	for _, tab := range s.tabs {
		if tab.Table == table {
			tabs = append(tabs, tab)
		}
	}
	return tabs
}

func (s *TabStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tabs)
}

func (s *TabStore) cleanup() {
	ticker := time.NewTicker(tabCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.expire(now)
		}
	}
}

func (s *TabStore) expire(now time.Time) int {
	s.mu.Lock()
	var expired []*Tab
	for id, tab := range s.tabs {
		if tab.expired(now) {
			expired = append(expired, tab)
			delete(s.tabs, id)
		}
	}
	s.mu.Unlock()

	for _, tab := range expired {
		tab.close()
	}
	if len(expired) > 0 {
		s.logger.Debug("expired tabs", "count", len(expired))
	}
	return len(expired)
}
