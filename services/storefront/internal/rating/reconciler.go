package rating

import (
	"context"
	"errors"
	"fmt"

	"github.com/aquamarinepk/aqm"
)

// TerminalReason explains why a worklist produced no prompt.
type TerminalReason string

const (
	TerminalNone          TerminalReason = ""
	TerminalOrderRated    TerminalReason = "order_rated"
	TerminalOrderSkipped  TerminalReason = "order_skipped"
	TerminalAllItemsRated TerminalReason = "all_items_rated"
)

// Worklist is the ordered list of items still waiting for a rating.
type Worklist struct {
	OrderID   string
	Items     []LineItem
	Terminal  TerminalReason
	Recovered bool
}

func (w Worklist) IsTerminal() bool {
	return w.Terminal != TerminalNone
}

// Reconciler merges the order with the products already rated for it.
type Reconciler struct {
	api       API
	cache     ImageCache
	snapshots SnapshotStore
	logger    aqm.Logger
}

func NewReconciler(api API, cache ImageCache, snapshots SnapshotStore, logger aqm.Logger) *Reconciler {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &Reconciler{
		api:       api,
		cache:     cache,
		snapshots: snapshots,
		logger:    logger,
	}
}

// BuildWorklist returns the unrated items of orderID in order. Network
// failures never abort it: a failed rated-products fetch counts as nothing
// rated and a failed order fetch falls back to the snapshot or a single
// placeholder item named by tr. A done ctx aborts it with ctx.Err().
func (r *Reconciler) BuildWorklist(ctx context.Context, orderID string, tr Translator) (Worklist, error) {
	if orderID == "" {
		return Worklist{}, fmt.Errorf("missing order id")
	}
	log := r.log()
	wl := Worklist{OrderID: orderID}

	rated, err := r.api.RatedProducts(ctx, orderID)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Worklist{}, ctxErr
		}
		log.Info("cannot fetch rated products, assuming none", "order_id", orderID, "error", err)
		rated = map[string]bool{}
	}

	order, err := r.api.GetOrder(ctx, orderID)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Worklist{}, ctxErr
		}
		log.Info("cannot fetch order, using fallback", "order_id", orderID, "error", err)
		return r.fallback(ctx, orderID, rated, tr), nil
	}

	if order.IsRated {
		wl.Terminal = TerminalOrderRated
		return wl, nil
	}
	if order.RatingSkipped {
		wl.Terminal = TerminalOrderSkipped
		return wl, nil
	}

	items := make([]LineItem, len(order.Items))
	for i, item := range order.Items {
		items[i] = r.backfill(ctx, item)
	}

	wl.Items = filterRated(items, rated)
	if len(wl.Items) == 0 {
		wl.Terminal = TerminalAllItemsRated
	}
	return wl, nil
}

func (r *Reconciler) fallback(ctx context.Context, orderID string, rated map[string]bool, tr Translator) Worklist {
	wl := Worklist{OrderID: orderID, Recovered: true}

	if r.snapshots != nil {
		snap, err := r.snapshots.Get(ctx, orderID)
		switch {
		case err == nil && len(snap.Items) > 0:
			wl.Items = filterRated(snap.Items, rated)
			if len(wl.Items) == 0 {
				wl.Terminal = TerminalAllItemsRated
			}
			return wl
		case err != nil && !errors.Is(err, ErrSnapshotNotFound):
			r.log().Info("cannot read order snapshot", "order_id", orderID, "error", err)
		}
	}

	name := MsgYourOrder
	if tr != nil {
		name = tr.T(MsgYourOrder)
	}
	wl.Items = []LineItem{{ID: orderID, Name: name}}
	return wl
}

// backfill fetches the catalog product once for items without a usable
// image. Failures leave the item as it is.
func (r *Reconciler) backfill(ctx context.Context, item LineItem) LineItem {
	if !IsPlaceholder(item.Image) {
		rememberImage(ctx, r.cache, item, item.Image)
		return item
	}

	product, err := r.api.GetProduct(ctx, item.BaseID())
	if err != nil {
		r.log().Info("cannot backfill product", "product_id", item.BaseID(), "error", err)
		return item
	}

	if !IsPlaceholder(product.Image) {
		item.Image = product.Image
		rememberImage(ctx, r.cache, item, product.Image)
	}
	if item.Name == "" {
		item.Name = product.Name
	}
	if item.NameEn == "" {
		item.NameEn = product.NameEn
	}
	if item.Price == 0 {
		item.Price = product.Price
	}
	return item
}

func filterRated(items []LineItem, rated map[string]bool) []LineItem {
	out := make([]LineItem, 0, len(items))
	for _, item := range items {
		if rated[item.BaseID()] {
			continue
		}
		out = append(out, item)
	}
	return out
}

func (r *Reconciler) log() aqm.Logger {
	return r.logger.With("component", "Reconciler")
}
