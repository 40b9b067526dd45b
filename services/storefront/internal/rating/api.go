package rating

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrRateLimited         = errors.New("rate limited")
	ErrProductNotFound     = errors.New("product not found")
	ErrOrderAlreadyRated   = errors.New("order already rated")
	ErrProductAlreadyRated = errors.New("product already rated")
	ErrOrderNotFound       = errors.New("order not found")
)

// API is the slice of the backend REST surface used by the rating workflow.
type API interface {
	GetOrder(ctx context.Context, orderID string) (*Order, error)
	RatedProducts(ctx context.Context, orderID string) (map[string]bool, error)
	GetProduct(ctx context.Context, productID string) (*Product, error)
	SubmitRating(ctx context.Context, sub RatingSubmission) error
	SkipOrder(ctx context.Context, orderID string) error
	ExistingRatings(ctx context.Context, orderID string) ([]ExistingRating, error)
}

// APIError is a non-2xx backend response. It unwraps to one of the sentinel
// errors above when the status or message identifies a known condition.
type APIError struct {
	Status  int
	Message string
	kind    error
}

func NewAPIError(status int, message string) *APIError {
	return &APIError{
		Status:  status,
		Message: message,
		kind:    classify(status, message),
	}
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("unexpected status: %d", e.Status)
	}
	return fmt.Sprintf("unexpected status: %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.kind
}

func classify(status int, message string) error {
	if status == http.StatusTooManyRequests {
		return ErrRateLimited
	}

	msg := strings.ToLower(message)
	switch {
	case strings.Contains(msg, "already rated") || strings.Contains(msg, "already been rated"):
		if strings.Contains(msg, "product") || strings.Contains(msg, "item") {
			return ErrProductAlreadyRated
		}
		return ErrOrderAlreadyRated
	case strings.Contains(msg, "product not found"):
		return ErrProductNotFound
	case strings.Contains(msg, "order not found"):
		return ErrOrderNotFound
	}

	return nil
}

// IsAlreadyRated reports whether err is an order- or product-level conflict.
func IsAlreadyRated(err error) bool {
	return errors.Is(err, ErrOrderAlreadyRated) || errors.Is(err, ErrProductAlreadyRated)
}
