package event

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	// OrdersCompletedTopic carries order completion notifications for storefront tabs.
	OrdersCompletedTopic = "orders.completed"

	EventOrderCompleted          = "ORDER_COMPLETED"
	EventOrderCompletedForRating = "order_completed_for_rating"
)

// OrderCompletedEvent is the real-time message sent when an order is ready
// to be rated. The order payload is optional and kept raw so consumers can
// decode it into their own view of an order.
type OrderCompletedEvent struct {
	Type        string          `json:"type"`
	OrderID     string          `json:"orderId,omitempty"`
	TableNumber TableNumber     `json:"tableNumber,omitempty"`
	Order       json.RawMessage `json:"order,omitempty"`
}

// IsCompletion reports whether the event type announces a completed order.
func (e OrderCompletedEvent) IsCompletion() bool {
	return e.Type == EventOrderCompleted || e.Type == EventOrderCompletedForRating
}

// ResolveOrderID returns orderId, falling back to order._id and order.orderId.
func (e OrderCompletedEvent) ResolveOrderID() string {
	if e.OrderID != "" {
		return e.OrderID
	}
	if len(e.Order) == 0 {
		return ""
	}

	var ref struct {
		MongoID string `json:"_id"`
		OrderID string `json:"orderId"`
		ID      string `json:"id"`
	}
	if err := json.Unmarshal(e.Order, &ref); err != nil {
		return ""
	}

	switch {
	case ref.MongoID != "":
		return ref.MongoID
	case ref.OrderID != "":
		return ref.OrderID
	default:
		return ref.ID
	}
}

// NewOrderCompletedEvent builds an ORDER_COMPLETED event for a table.
func NewOrderCompletedEvent(orderID, table string) OrderCompletedEvent {
	return OrderCompletedEvent{
		Type:        EventOrderCompleted,
		OrderID:     orderID,
		TableNumber: TableNumber(strings.TrimSpace(table)),
	}
}

// ParseOrderCompletedEvent decodes a raw message from the completion channel.
func ParseOrderCompletedEvent(data []byte) (OrderCompletedEvent, error) {
	var evt OrderCompletedEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return evt, fmt.Errorf("cannot decode order completed event: %w", err)
	}
	return evt, nil
}

// TableNumber accepts both JSON strings and numbers.
type TableNumber string

func (t *TableNumber) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" || raw == "" {
		*t = ""
		return nil
	}

	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = TableNumber(strings.TrimSpace(s))
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid table number %s", raw)
	}
	*t = TableNumber(n.String())
	return nil
}

func (t TableNumber) String() string {
	return string(t)
}
