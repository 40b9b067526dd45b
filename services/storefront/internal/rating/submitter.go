package rating

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aquamarinepk/aqm"
	"github.com/go-playground/validator/v10"
)

// Outcome is the resolution of one item submission.
type Outcome int

const (
	OutcomeSubmitted Outcome = iota
	OutcomeAlreadyRated
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSubmitted:
		return "submitted"
	case OutcomeAlreadyRated:
		return "already_rated"
	default:
		return "failed"
	}
}

// SubmitResult is what the sequencer needs to advance.
type SubmitResult struct {
	Outcome   Outcome
	ProductID string
	Recovered bool
	Existing  []ExistingRating
	Err       error
}

// Submitter posts ratings and applies the single product-not-found recovery.
type Submitter struct {
	api      API
	validate *validator.Validate
	now      func() time.Time
	logger   aqm.Logger
}

func NewSubmitter(api API, logger aqm.Logger) *Submitter {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &Submitter{
		api:      api,
		validate: validator.New(),
		now:      time.Now,
		logger:   logger,
	}
}

func (s *Submitter) Submit(ctx context.Context, orderID, productID string, rating int, comment, customerID string) SubmitResult {
	log := s.log()

	sub := RatingSubmission{
		ProductID:  productID,
		OrderID:    orderID,
		Rating:     rating,
		Comment:    comment,
		CustomerID: customerID,
		Timestamp:  s.now().UTC(),
	}
	if err := s.validate.Struct(sub); err != nil {
		return SubmitResult{Outcome: OutcomeFailed, ProductID: productID, Err: fmt.Errorf("invalid rating submission: %w", err)}
	}

	err := s.api.SubmitRating(ctx, sub)
	switch {
	case err == nil:
		return SubmitResult{Outcome: OutcomeSubmitted, ProductID: productID}
	case errors.Is(err, ErrRateLimited):
		log.Info("rating rejected by rate limit", "order_id", orderID, "product_id", productID)
		return SubmitResult{Outcome: OutcomeFailed, ProductID: productID, Err: err}
	case IsAlreadyRated(err):
		return s.alreadyRated(ctx, orderID, productID, false)
	case errors.Is(err, ErrProductNotFound):
		return s.recover(ctx, sub)
	default:
		log.Error("rating submission failed", "order_id", orderID, "product_id", productID, "error", err)
		return SubmitResult{Outcome: OutcomeFailed, ProductID: productID, Err: err}
	}
}

// recover substitutes the first item of the freshly fetched order and
// resubmits exactly once.
func (s *Submitter) recover(ctx context.Context, sub RatingSubmission) SubmitResult {
	log := s.log()

	order, err := s.api.GetOrder(ctx, sub.OrderID)
	if err != nil {
		log.Error("product recovery cannot fetch order", "order_id", sub.OrderID, "error", err)
		return SubmitResult{Outcome: OutcomeFailed, ProductID: sub.ProductID, Err: fmt.Errorf("%w: recovery failed: %v", ErrProductNotFound, err)}
	}
	if len(order.Items) == 0 || order.Items[0].BaseID() == "" {
		return SubmitResult{Outcome: OutcomeFailed, ProductID: sub.ProductID, Err: fmt.Errorf("%w: order has no substitute item", ErrProductNotFound)}
	}

	substitute := order.Items[0].BaseID()
	log.Info("retrying rating with substitute product", "order_id", sub.OrderID, "product_id", sub.ProductID, "substitute", substitute)

	sub.ProductID = substitute
	err = s.api.SubmitRating(ctx, sub)
	switch {
	case err == nil:
		return SubmitResult{Outcome: OutcomeSubmitted, ProductID: substitute, Recovered: true}
	case IsAlreadyRated(err):
		return s.alreadyRated(ctx, sub.OrderID, substitute, true)
	default:
		log.Error("rating resubmission failed", "order_id", sub.OrderID, "product_id", substitute, "error", err)
		return SubmitResult{Outcome: OutcomeFailed, ProductID: substitute, Recovered: true, Err: err}
	}
}

func (s *Submitter) alreadyRated(ctx context.Context, orderID, productID string, recovered bool) SubmitResult {
	existing, err := s.api.ExistingRatings(ctx, orderID)
	if err != nil {
		s.log().Info("cannot load existing ratings", "order_id", orderID, "error", err)
		existing = nil
	}
	return SubmitResult{
		Outcome:   OutcomeAlreadyRated,
		ProductID: productID,
		Recovered: recovered,
		Existing:  existing,
	}
}

func (s *Submitter) log() aqm.Logger {
	return s.logger.With("component", "Submitter")
}
