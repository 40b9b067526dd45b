package rating

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/aquamarinepk/aqm"
)

const maxCommentLength = 1000

var (
	ErrNoSession     = errors.New("no active rating session")
	ErrNotPresenting = errors.New("rating session is not waiting for input")
	ErrNoRating      = errors.New("no star rating selected")
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
)

// ControllerDeps groups the collaborators of a Controller.
type ControllerDeps struct {
	API        API
	Images     ImageCache
	Cards      CardSource
	Snapshots  SnapshotStore
	Presenter  Presenter
	Scheduler  Scheduler
	Locale     *Locale
	Timings    Timings
	CustomerID string
}

// Controller drives the rating modal of one tab. It owns at most one
// Session at a time.
type Controller struct {
	mu         sync.Mutex
	guard      *Guard
	reconciler *Reconciler
	submitter  *Submitter
	resolver   *ImageResolver
	api        API
	presenter  Presenter
	scheduler  Scheduler
	locale     *Locale
	timings    Timings
	customerID string
	session    *Session
	generation uint64
	logger     aqm.Logger
}

func NewController(deps ControllerDeps, logger aqm.Logger) *Controller {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	if deps.Presenter == nil {
		deps.Presenter = nopPresenter{}
	}
	if deps.Scheduler == nil {
		deps.Scheduler = NewTimerScheduler()
	}
	if deps.Locale == nil {
		deps.Locale = LocaleFor("")
	}
	if deps.Timings == (Timings{}) {
		deps.Timings = DefaultTimings()
	}

	return &Controller{
		guard:      NewGuard(),
		reconciler: NewReconciler(deps.API, deps.Images, deps.Snapshots, logger),
		submitter:  NewSubmitter(deps.API, logger),
		resolver:   NewImageResolver(deps.Images, deps.Cards),
		api:        deps.API,
		presenter:  deps.Presenter,
		scheduler:  deps.Scheduler,
		locale:     deps.Locale,
		timings:    deps.Timings,
		customerID: deps.CustomerID,
		logger:     logger,
	}
}

// Guard exposes the dedup bookkeeping of this tab.
func (c *Controller) Guard() *Guard {
	return c.guard
}

// RequestRating is the single entry point for every completion signal. It
// reports whether a modal was opened.
func (c *Controller) RequestRating(ctx context.Context, orderID string) (bool, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return false, fmt.Errorf("missing order id")
	}
	log := c.log()

	if !c.guard.ShouldProceed(orderID) {
		log.Debug("rating request dropped", "order_id", orderID, "active", c.guard.Active())
		return false, nil
	}

	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.session = &Session{OrderID: orderID, State: StateLoading, generation: gen}
	locale := c.locale
	c.mu.Unlock()

	wl, err := c.reconciler.BuildWorklist(ctx, orderID, locale)

	var images []string
	if err == nil && !wl.IsTerminal() {
		images = make([]string, len(wl.Items))
		for i, item := range wl.Items {
			images[i] = c.resolver.Resolve(ctx, item)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.session
	if s == nil || s.generation != gen {
		log.Debug("rating session closed while loading", "order_id", orderID)
		return false, nil
	}

	if err != nil {
		c.guard.Release(orderID)
		if errors.Is(err, context.Canceled) {
			c.session = nil
			log.Debug("rating request cancelled while loading", "order_id", orderID)
			return false, fmt.Errorf("cannot build worklist: %w", err)
		}
		s.State = StateError
		s.MessageKey = MsgErrorGeneric
		s.IsError = true
		log.Error("cannot build worklist", "order_id", orderID, "error", err)
		c.renderLocked()
		c.scheduler.AfterFunc(c.timings.AutoClose, func() {
			c.autoClose(gen)
		})
		return false, fmt.Errorf("cannot build worklist: %w", err)
	}

	if wl.IsTerminal() {
		c.session = nil
		c.guard.Resolve(orderID)
		log.Info("nothing to rate", "order_id", orderID, "reason", string(wl.Terminal))
		return false, nil
	}

	s.Items = wl.Items
	s.Images = images
	s.Recovered = wl.Recovered
	log.Info("rating session started", "order_id", orderID, "items", len(s.Items), "recovered", wl.Recovered)
	c.presentLocked()
	return true, nil
}

// SelectStar sets the star value of the current item, replacing any
// previous selection.
func (c *Controller) SelectStar(rating int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, err := c.presentingLocked()
	if err != nil {
		return err
	}
	if rating < 1 || rating > 5 {
		return ErrInvalidRating
	}

	s.Rating = rating
	s.MessageKey = ""
	s.IsError = false
	c.renderLocked()
	return nil
}

// SetComment stores the optional comment of the current item.
func (c *Controller) SetComment(comment string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, err := c.presentingLocked()
	if err != nil {
		return err
	}

	comment = strings.TrimSpace(comment)
	if utf8.RuneCountInString(comment) > maxCommentLength {
		comment = string([]rune(comment)[:maxCommentLength])
	}
	s.Comment = comment
	c.renderLocked()
	return nil
}

// Submit sends the rating of the current item and advances the sequence.
// Backend failures do not surface as errors: the item is counted as failed
// and the sequence moves on.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	s, err := c.presentingLocked()
	if err != nil {
		c.mu.Unlock()
		return err
	}
	if s.Rating < 1 {
		s.MessageKey = MsgSelectStar
		s.IsError = true
		c.renderLocked()
		c.mu.Unlock()
		return ErrNoRating
	}

	item, _ := s.Current()
	gen := s.generation
	orderID := s.OrderID
	rating, comment := s.Rating, s.Comment
	customerID := c.customerID
	s.State = StateSubmitting
	c.renderLocked()
	c.mu.Unlock()

	res := c.submitter.Submit(ctx, orderID, item.BaseID(), rating, comment, customerID)

	c.mu.Lock()
	defer c.mu.Unlock()

	s = c.session
	if s == nil || s.generation != gen || s.State != StateSubmitting {
		c.log().Debug("submission resolved after session ended", "order_id", orderID, "outcome", res.Outcome.String())
		return nil
	}

	c.resolveLocked(s, res)
	return nil
}

// Skip abandons the whole remaining worklist of the order. The skip is
// persisted only when a fresh status check confirms the order is completed.
func (c *Controller) Skip(ctx context.Context) error {
	c.mu.Lock()
	s := c.session
	if s == nil {
		c.mu.Unlock()
		return ErrNoSession
	}
	if s.State != StatePresenting && s.State != StateAcknowledging {
		c.mu.Unlock()
		return ErrNotPresenting
	}
	orderID := s.OrderID
	c.closeLocked()
	c.mu.Unlock()

	log := c.log()
	order, err := c.api.GetOrder(ctx, orderID)
	if err != nil {
		log.Info("cannot confirm order status for skip", "order_id", orderID, "error", err)
		return nil
	}
	if !order.IsCompleted() {
		log.Debug("order not completed, skip kept local", "order_id", orderID, "status", order.Status)
		return nil
	}
	if err := c.api.SkipOrder(ctx, orderID); err != nil {
		log.Error("cannot persist rating skip", "order_id", orderID, "error", err)
	}
	return nil
}

// Close is the user dismissing the modal. The order is not prompted again
// in this tab.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return
	}
	c.closeLocked()
}

// SetLocale switches the language of the modal and re-renders it.
func (c *Controller) SetLocale(locale *Locale) {
	if locale == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.locale = locale
	c.renderLocked()
}

// View returns the current modal view.
func (c *Controller) View() ModalView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

func (c *Controller) presentingLocked() (*Session, error) {
	s := c.session
	if s == nil {
		return nil, ErrNoSession
	}
	if s.State != StatePresenting {
		return nil, ErrNotPresenting
	}
	return s, nil
}

func (c *Controller) presentLocked() {
	s := c.session
	s.State = StatePresenting
	s.resetInput()
	c.renderLocked()
}

func (c *Controller) resolveLocked(s *Session, res SubmitResult) {
	s.Index++

	switch res.Outcome {
	case OutcomeAlreadyRated:
		s.State = StateExisting
		s.Existing = res.Existing
		s.MessageKey = MsgAlreadyRated
		s.IsError = false
		c.guard.Resolve(s.OrderID)
		c.renderLocked()
		return
	case OutcomeSubmitted:
		s.Submitted++
		s.MessageKey = MsgThanks
		s.IsError = false
	default:
		s.Failed++
		s.IsError = true
		s.MessageKey = MsgErrorSubmit
		if errors.Is(res.Err, ErrRateLimited) {
			s.MessageKey = MsgErrorRateLimited
		}
		c.log().Info("item rating failed, moving on", "order_id", s.OrderID, "product_id", res.ProductID, "error", res.Err)
	}

	if s.Done() {
		c.finishLocked(s)
		return
	}

	s.State = StateAcknowledging
	c.renderLocked()

	gen := s.generation
	c.scheduler.AfterFunc(c.timings.Advance, func() {
		c.advance(gen)
	})
}

func (c *Controller) advance(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.session
	if s == nil || s.generation != gen || s.State != StateAcknowledging {
		return
	}
	c.presentLocked()
}

func (c *Controller) finishLocked(s *Session) {
	s.State = StateAllDone
	s.MessageKey = MsgAllDone
	s.IsError = false
	c.guard.Resolve(s.OrderID)
	c.log().Info("rating session finished", "order_id", s.OrderID, "submitted", s.Submitted, "failed", s.Failed)
	c.renderLocked()

	gen := s.generation
	c.scheduler.AfterFunc(c.timings.AutoClose, func() {
		c.autoClose(gen)
	})
}

func (c *Controller) autoClose(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.session
	if s == nil || s.generation != gen {
		return
	}
	if s.State != StateAllDone && s.State != StateError {
		return
	}
	c.session = nil
	c.presenter.Hide()
}

func (c *Controller) closeLocked() {
	s := c.session
	if s.State == StateError {
		c.guard.Release(s.OrderID)
	} else {
		c.guard.Resolve(s.OrderID)
	}
	c.session = nil
	c.generation++
	c.presenter.Hide()
}

func (c *Controller) renderLocked() {
	if c.session == nil || c.session.State == StateLoading {
		return
	}
	c.presenter.Render(c.viewLocked())
}

func (c *Controller) viewLocked() ModalView {
	loc := c.locale
	view := ModalView{
		State: string(StateIdle),
		Lang:  loc.Lang,
		Dir:   loc.Direction(),
	}

	s := c.session
	if s == nil {
		return view
	}
	view.State = string(s.State)
	view.OrderID = s.OrderID
	if s.State == StateLoading {
		return view
	}

	view.Visible = true
	view.Title = loc.T(MsgTitle)
	view.Index = s.Index
	view.Total = len(s.Items)
	view.Submitted = s.Submitted
	view.Failed = s.Failed
	view.IsError = s.IsError
	if s.MessageKey != "" {
		view.Message = loc.T(s.MessageKey)
	}

	switch s.State {
	case StatePresenting, StateSubmitting:
		view.Kind = ViewItem
		item, _ := s.Current()
		view.ItemID = item.Key()
		view.ItemName = item.DisplayName(loc.Lang)
		view.Price = item.Price
		view.Image = s.currentImage()
		view.Rating = s.Rating
		view.Comment = s.Comment
		view.CanSubmit = s.State == StatePresenting && s.Rating >= 1
	case StateAcknowledging:
		view.Kind = ViewAcknowledge
	case StateAllDone:
		view.Kind = ViewDone
	case StateExisting:
		view.Kind = ViewExisting
		view.Existing = s.Existing
	case StateError:
		view.Kind = ViewError
	}

	return view
}

func (c *Controller) log() aqm.Logger {
	return c.logger.With("component", "RatingController")
}
