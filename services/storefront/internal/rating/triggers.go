package rating

import (
	"context"
	"encoding/json"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/aquamarinepk/aqm"
	"golang.org/x/sync/errgroup"

	"github.com/appetiteclub/storefront/pkg/event"
)

// RateOrderParam is the deep-link query parameter that opens a rating session.
const RateOrderParam = "rate-order"

var (
	tablePathPattern   = regexp.MustCompile(`/table/(\d+)`)
	bannerTitlePattern = regexp.MustCompile(`(?i)order\s+(is\s+)?(finished|completed|ready)|(اكتمل|انتهى|جاهز).*طلب|طلب.*(اكتمل|انتهى|جاهز)`)
	bannerOrderPattern = regexp.MustCompile(`#([A-Za-z0-9_-]+)`)
)

// CompletionSignal is one source of "this order is ready to rate". Observe
// blocks until the source is exhausted or ctx is done and calls fire for
// every order it detects.
type CompletionSignal interface {
	Observe(ctx context.Context, fire func(orderID string)) error
}

// Requester is the single entry point every signal funnels into.
type Requester interface {
	RequestRating(ctx context.Context, orderID string) (bool, error)
}

// OrderIDFromURL returns the rate-order parameter of u.
func OrderIDFromURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	return strings.TrimSpace(u.Query().Get(RateOrderParam))
}

// StripRateOrder returns a copy of u without the rate-order parameter.
func StripRateOrder(u *url.URL) *url.URL {
	if u == nil {
		return nil
	}
	clean := *u
	q := clean.Query()
	if _, ok := q[RateOrderParam]; !ok {
		return &clean
	}
	q.Del(RateOrderParam)
	clean.RawQuery = q.Encode()
	return &clean
}

// TableFromURL extracts the table number from the table or tableNumber query
// parameters, or from a /table/<digits> path segment.
func TableFromURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	q := u.Query()
	for _, key := range []string{"table", "tableNumber"} {
		if v := strings.TrimSpace(q.Get(key)); v != "" {
			return v
		}
	}
	if m := tablePathPattern.FindStringSubmatch(u.Path); m != nil {
		return m[1]
	}
	return ""
}

// URLSignal fires once for the rate-order parameter the tab was opened with.
type URLSignal struct {
	URL *url.URL
}

func (s URLSignal) Observe(_ context.Context, fire func(string)) error {
	if id := OrderIDFromURL(s.URL); id != "" {
		fire(id)
	}
	return nil
}

// EventSignal consumes raw real-time completion messages for one table.
type EventSignal struct {
	Messages  <-chan []byte
	Table     string
	Cache     ImageCache
	Snapshots SnapshotStore
	Logger    aqm.Logger
}

func (s EventSignal) Observe(ctx context.Context, fire func(string)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case data, ok := <-s.Messages:
			if !ok {
				return nil
			}
			if id, ok := s.Accept(ctx, data); ok {
				fire(id)
			}
		}
	}
}

// Accept decodes one message and reports the order to rate, if any. An
// accepted event seeds the image cache and the snapshot store before the
// caller is told about it.
func (s EventSignal) Accept(ctx context.Context, data []byte) (string, bool) {
	log := s.log()

	evt, err := event.ParseOrderCompletedEvent(data)
	if err != nil {
		log.Debug("ignoring malformed completion event", "error", err)
		return "", false
	}
	if !evt.IsCompletion() {
		return "", false
	}
	if s.Table == "" || evt.TableNumber.String() != s.Table {
		log.Debug("ignoring completion for another table", "table", evt.TableNumber.String(), "tab_table", s.Table)
		return "", false
	}

	orderID := evt.ResolveOrderID()
	if orderID == "" {
		log.Debug("completion event without order id")
		return "", false
	}

	if len(evt.Order) > 0 {
		var order Order
		if err := json.Unmarshal(evt.Order, &order); err != nil {
			log.Info("cannot decode completed order payload", "order_id", orderID, "error", err)
		} else {
			s.seed(ctx, orderID, order)
		}
	}

	return orderID, true
}

func (s EventSignal) seed(ctx context.Context, orderID string, order Order) {
	for _, item := range order.Items {
		rememberImage(ctx, s.Cache, item, item.Image)
	}

	if s.Snapshots == nil || len(order.Items) == 0 {
		return
	}
	if order.Key() == "" {
		order.ID = orderID
	}
	if err := s.Snapshots.Save(ctx, order); err != nil {
		s.log().Info("cannot store order snapshot", "order_id", orderID, "error", err)
	}
}

func (s EventSignal) log() aqm.Logger {
	logger := s.Logger
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return logger.With("component", "EventSignal")
}

// Notification is a legacy banner shown by the tab.
type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// OrderFromBanner returns the order announced by a banner, if the banner is
// an order-finished notification.
func OrderFromBanner(n Notification) (string, bool) {
	if !bannerTitlePattern.MatchString(n.Title) {
		return "", false
	}
	m := bannerOrderPattern.FindStringSubmatch(n.Body)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// BannerSignal fires a delayed request for every order-finished banner.
type BannerSignal struct {
	Notifications <-chan Notification
	Scheduler     Scheduler
	Delay         time.Duration
}

func (s BannerSignal) Observe(ctx context.Context, fire func(string)) error {
	scheduler := s.Scheduler
	if scheduler == nil {
		scheduler = NewTimerScheduler()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case n, ok := <-s.Notifications:
			if !ok {
				return nil
			}
			id, ok := OrderFromBanner(n)
			if !ok {
				continue
			}
			scheduler.AfterFunc(s.Delay, func() {
				if ctx.Err() != nil {
					return
				}
				fire(id)
			})
		}
	}
}

// Detector funnels every signal into one Requester.
type Detector struct {
	requester Requester
	signals   []CompletionSignal
	logger    aqm.Logger
}

func NewDetector(requester Requester, logger aqm.Logger, signals ...CompletionSignal) *Detector {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &Detector{
		requester: requester,
		signals:   signals,
		logger:    logger,
	}
}

// Run observes all signals until they are exhausted or ctx is done.
func (d *Detector) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, sig := range d.signals {
		g.Go(func() error {
			return sig.Observe(gctx, func(orderID string) {
				d.request(gctx, orderID)
			})
		})
	}
	return g.Wait()
}

func (d *Detector) request(ctx context.Context, orderID string) {
	if ctx.Err() != nil {
		return
	}
	opened, err := d.requester.RequestRating(ctx, orderID)
	if err != nil {
		d.log().Error("rating request failed", "order_id", orderID, "error", err)
		return
	}
	d.log().Debug("rating requested", "order_id", orderID, "opened", opened)
}

func (d *Detector) log() aqm.Logger {
	return d.logger.With("component", "Detector")
}
