package event

import (
	"encoding/json"
	"testing"
)

func TestParseOrderCompletedEvent(t *testing.T) {
	tests := []struct {
		name       string
		msg        string
		wantErr    bool
		wantID     string
		wantTable  TableNumber
		completion bool
	}{
		{name: "topLevelID", msg: `{"type":"ORDER_COMPLETED","orderId":"ord1","tableNumber":"7"}`, wantID: "ord1", wantTable: "7", completion: true},
		{name: "numericTable", msg: `{"type":"order_completed_for_rating","orderId":"ord1","tableNumber":12}`, wantID: "ord1", wantTable: "12", completion: true},
		{name: "nestedMongoID", msg: `{"type":"ORDER_COMPLETED","order":{"_id":"m1","orderId":"o1"}}`, wantID: "m1", completion: true},
		{name: "nestedOrderID", msg: `{"type":"ORDER_COMPLETED","order":{"orderId":"o1"}}`, wantID: "o1", completion: true},
		{name: "nestedID", msg: `{"type":"ORDER_COMPLETED","order":{"id":"i1"}}`, wantID: "i1", completion: true},
		{name: "nullTable", msg: `{"type":"ORDER_COMPLETED","orderId":"ord1","tableNumber":null}`, wantID: "ord1", completion: true},
		{name: "otherType", msg: `{"type":"ORDER_CREATED","orderId":"ord1"}`, wantID: "ord1"},
		{name: "badTable", msg: `{"type":"ORDER_COMPLETED","tableNumber":true}`, wantErr: true},
		{name: "malformed", msg: `{`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evt, err := ParseOrderCompletedEvent([]byte(tt.msg))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseOrderCompletedEvent() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got := evt.ResolveOrderID(); got != tt.wantID {
				t.Errorf("ResolveOrderID() = %q, want %q", got, tt.wantID)
			}
			if evt.TableNumber != tt.wantTable {
				t.Errorf("TableNumber = %q, want %q", evt.TableNumber, tt.wantTable)
			}
			if evt.IsCompletion() != tt.completion {
				t.Errorf("IsCompletion() = %v, want %v", evt.IsCompletion(), tt.completion)
			}
		})
	}
}

func TestNewOrderCompletedEvent(t *testing.T) {
	data, err := json.Marshal(NewOrderCompletedEvent("ord1", " 7 "))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	evt, err := ParseOrderCompletedEvent(data)
	if err != nil {
		t.Fatalf("ParseOrderCompletedEvent() error = %v", err)
	}
	if evt.Type != EventOrderCompleted || evt.OrderID != "ord1" || evt.TableNumber != "7" {
		t.Errorf("event = %+v", evt)
	}
}
