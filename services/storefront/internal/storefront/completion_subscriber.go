package storefront

import (
	"context"
	"fmt"

	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/events"

	"github.com/appetiteclub/storefront/pkg/event"
)

// TabRouter finds the open tabs of a table.
type TabRouter interface {
	ForTable(table string) []*Tab
}

// CompletionSubscriber routes order completion events to the tabs of the
// table the order belongs to. Each tab decides for itself whether to rate.
type CompletionSubscriber struct {
	subscriber events.Subscriber
	tabs       TabRouter
	topic      string
	logger     aqm.Logger
}

func NewCompletionSubscriber(subscriber events.Subscriber, tabs TabRouter, logger aqm.Logger) *CompletionSubscriber {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &CompletionSubscriber{
		subscriber: subscriber,
		tabs:       tabs,
		topic:      event.OrdersCompletedTopic,
		logger:     logger,
	}
}

func (s *CompletionSubscriber) Start(ctx context.Context) error {
	s.logger.Info("Starting CompletionSubscriber", "topic", s.topic)

	if err := s.subscriber.Subscribe(ctx, s.topic, s.handleEvent); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", s.topic, err)
	}

	s.logger.Info("CompletionSubscriber started successfully")
	return nil
}

func (s *CompletionSubscriber) Stop(ctx context.Context) error {
	return nil
}

func (s *CompletionSubscriber) handleEvent(ctx context.Context, msg []byte) error {
	evt, err := event.ParseOrderCompletedEvent(msg)
	if err != nil {
		s.logger.Errorf("Failed to unmarshal event: %v", err)
		return nil
	}

	if !evt.IsCompletion() {
		return nil
	}

	table := string(evt.TableNumber)
	if table == "" {
		s.logger.Debug("completion event without table", "order_id", evt.ResolveOrderID())
		return nil
	}

	delivered := 0
	for _, tab := range s.tabs.ForTable(table) {
		if tab.Dispatch(msg) {
			delivered++
		}
	}

	s.logger.Debug("completion event routed", "table", table, "order_id", evt.ResolveOrderID(), "tabs", delivered)
	return nil
}
