package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/events"

	"github.com/appetiteclub/storefront/pkg"
	"github.com/appetiteclub/storefront/pkg/event"
)

// CompleteOrder announces a completed order to the storefront tabs of a table.
// It is the manual counterpart of the order service's completion event.
func CompleteOrder(ctx context.Context, config *aqm.Config, logger aqm.Logger, table, orderID string) error {
	natsURL := config.GetStringOrDef("nats.url", "nats://localhost:4222")

	publisher, err := pkg.NewNATSPublisher(natsURL)
	if err != nil {
		return err
	}
	defer publisher.Close()

	return PublishCompletion(ctx, publisher, logger, table, orderID)
}

// PublishCompletion encodes and publishes one completion event.
func PublishCompletion(ctx context.Context, publisher events.Publisher, logger aqm.Logger, table, orderID string) error {
	table = strings.TrimSpace(table)
	orderID = strings.TrimSpace(orderID)
	if table == "" || orderID == "" {
		return fmt.Errorf("table and order id are required")
	}

	msg, err := json.Marshal(event.NewOrderCompletedEvent(orderID, table))
	if err != nil {
		return fmt.Errorf("encode completion event: %w", err)
	}

	if err := publisher.Publish(ctx, event.OrdersCompletedTopic, msg); err != nil {
		return fmt.Errorf("publish completion event: %w", err)
	}

	logger.Info("Completion event published", "topic", event.OrdersCompletedTopic, "table", table, "order_id", orderID)
	return nil
}
