package rating

import (
	"strings"
	"time"

	"github.com/appetiteclub/storefront/pkg/enums/orderstatus"
	"github.com/appetiteclub/storefront/pkg/event"
)

// Order mirrors the order returned by the backend. Only the fields the
// rating workflow reads are decoded.
type Order struct {
	ID            string            `json:"id,omitempty"`
	MongoID       string            `json:"_id,omitempty"`
	Status        string            `json:"status"`
	Items         []LineItem        `json:"items"`
	IsRated       bool              `json:"isRated"`
	RatingSkipped bool              `json:"ratingSkipped"`
	TableNumber   event.TableNumber `json:"tableNumber,omitempty"`
}

// Key returns the order identifier regardless of which field carried it.
func (o Order) Key() string {
	if o.ID != "" {
		return o.ID
	}
	return o.MongoID
}

func (o Order) IsCompleted() bool {
	return orderstatus.IsCompleted(o.Status)
}

// LineItem is a single product inside an order. Exactly one of the three
// identifier fields is expected to be present.
type LineItem struct {
	ID        string  `json:"id,omitempty"`
	ProductID string  `json:"productId,omitempty"`
	MongoID   string  `json:"_id,omitempty"`
	Name      string  `json:"name"`
	NameEn    string  `json:"nameEn,omitempty"`
	Price     float64 `json:"price"`
	Image     string  `json:"image,omitempty"`
}

// Key returns the original identifier of the item. It is the key used for
// local bookkeeping and the image cache.
func (i LineItem) Key() string {
	switch {
	case i.ID != "":
		return i.ID
	case i.ProductID != "":
		return i.ProductID
	default:
		return i.MongoID
	}
}

// BaseID returns the product identifier sent to the rating endpoints.
func (i LineItem) BaseID() string {
	return BaseProductID(i.Key())
}

// DisplayName picks the English name for English tabs when one exists.
func (i LineItem) DisplayName(lang string) string {
	if lang == LangEnglish && i.NameEn != "" {
		return i.NameEn
	}
	if i.Name == "" {
		return i.NameEn
	}
	return i.Name
}

// BaseProductID strips everything from the first dash onward, so that
// "burger1-25827f4d" becomes "burger1".
func BaseProductID(id string) string {
	if idx := strings.Index(id, "-"); idx >= 0 {
		return id[:idx]
	}
	return id
}

// Product is the catalog entry used to backfill line items.
type Product struct {
	ID      string  `json:"id,omitempty"`
	MongoID string  `json:"_id,omitempty"`
	Name    string  `json:"name"`
	NameEn  string  `json:"nameEn,omitempty"`
	Price   float64 `json:"price"`
	Image   string  `json:"image,omitempty"`
}

// RatingSubmission is the body posted to the ratings endpoint.
type RatingSubmission struct {
	ProductID  string    `json:"productId" validate:"required,excludes=-"`
	OrderID    string    `json:"orderId" validate:"required"`
	Rating     int       `json:"rating" validate:"min=1,max=5"`
	Comment    string    `json:"comment,omitempty" validate:"max=1000"`
	CustomerID string    `json:"customerId,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// ExistingRating is a prior rating shown in the read-only view.
type ExistingRating struct {
	ProductID   string    `json:"productId"`
	ProductName string    `json:"productName,omitempty"`
	Rating      int       `json:"rating"`
	Comment     string    `json:"comment,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
}
