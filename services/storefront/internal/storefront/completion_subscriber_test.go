package storefront

import (
	"context"
	"errors"
	"testing"

	"github.com/aquamarinepk/aqm/events"

	"github.com/appetiteclub/storefront/pkg/event"
)

func TestCompletionSubscriberStart(t *testing.T) {
	tests := []struct {
		name         string
		subscribeErr error
		wantErr      bool
	}{
		{name: "subscribes", subscribeErr: nil, wantErr: false},
		{name: "subscribeFails", subscribeErr: errors.New("nats down"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotTopic string
			sub := &MockSubscriber{
				SubscribeFunc: func(ctx context.Context, topic string, handler events.HandlerFunc) error {
					gotTopic = topic
					return tt.subscribeErr
				},
			}

			s := NewCompletionSubscriber(sub, newTestStore(&MockAPI{}), nil)
			err := s.Start(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Start() error = %v, wantErr %v", err, tt.wantErr)
			}
			if gotTopic != event.OrdersCompletedTopic {
				t.Errorf("topic = %q, want %q", gotTopic, event.OrdersCompletedTopic)
			}
		})
	}
}

func TestCompletionSubscriberRoutesByTable(t *testing.T) {
	store := newTestStore(&MockAPI{})
	defer store.Stop(context.Background())

	seven, _ := store.Open(OpenTabRequest{URL: "https://menu.example.com/?table=7"})
	eight, _ := store.Open(OpenTabRequest{URL: "https://menu.example.com/?table=8"})

	// Keep the detectors from draining the channels so deliveries can be counted.
	seven.cancel()
	eight.cancel()
	<-seven.Done()
	<-eight.Done()

	s := NewCompletionSubscriber(&MockSubscriber{}, store, nil)

	tests := []struct {
		name      string
		msg       string
		wantSeven int
		wantEight int
	}{
		{name: "numericTable", msg: `{"type":"ORDER_COMPLETED","orderId":"ord1","tableNumber":7}`, wantSeven: 1},
		{name: "stringTable", msg: `{"type":"order_completed_for_rating","orderId":"ord2","tableNumber":"8"}`, wantEight: 1},
		{name: "unknownTable", msg: `{"type":"ORDER_COMPLETED","orderId":"ord3","tableNumber":99}`},
		{name: "noTable", msg: `{"type":"ORDER_COMPLETED","orderId":"ord4"}`},
		{name: "notCompletion", msg: `{"type":"ORDER_CREATED","orderId":"ord5","tableNumber":7}`},
		{name: "malformed", msg: `{"type":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.handleEvent(context.Background(), []byte(tt.msg)); err != nil {
				t.Fatalf("handleEvent() error = %v", err)
			}
			if got := drain(seven.events); got != tt.wantSeven {
				t.Errorf("table 7 deliveries = %d, want %d", got, tt.wantSeven)
			}
			if got := drain(eight.events); got != tt.wantEight {
				t.Errorf("table 8 deliveries = %d, want %d", got, tt.wantEight)
			}
		})
	}
}

func drain(ch chan []byte) int {
	n := 0
	for {
		select {
		case <-ch:
			n++
		default:
			return n
		}
	}
}
