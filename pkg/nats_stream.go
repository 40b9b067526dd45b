package pkg

import (
	"context"
	"fmt"
	"time"

	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/events"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NATSStream implements events.Subscriber on top of a JetStream durable consumer.
type NATSStream struct {
	conn     *nats.Conn
	stream   jetstream.Stream
	consumer jetstream.Consumer
	consume  jetstream.ConsumeContext
	topic    string
	logger   aqm.Logger
}

// NATSStreamConfig configures a NATSStream instance.
type NATSStreamConfig struct {
	URL          string        // NATS server URL
	StreamName   string        // JetStream stream name (e.g., "ORDER_COMPLETIONS")
	Topic        string        // Subject (e.g., "orders.completed")
	ConsumerName string        // Durable consumer name for this service
	MaxAge       time.Duration // How long to retain events
	MaxMsgs      int64         // Maximum number of messages to retain (0 = unlimited)
	Logger       aqm.Logger
}

// NewNATSStream creates a new NATSStream and ensures the stream and consumer exist.
// Only new messages are delivered: a replayed completion would prompt a
// customer for an order they already dealt with.
func NewNATSStream(ctx context.Context, cfg NATSStreamConfig) (*NATSStream, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}

	conn, err := nats.Connect(cfg.URL, nats.Name("storefront-stream"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	streamConfig := jetstream.StreamConfig{
		Name:     cfg.StreamName,
		Subjects: []string{cfg.Topic},
		MaxAge:   cfg.MaxAge,
	}
	if cfg.MaxMsgs > 0 {
		streamConfig.MaxMsgs = cfg.MaxMsgs
	}

	stream, err := js.CreateOrUpdateStream(ctx, streamConfig)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create/update stream %s: %w", cfg.StreamName, err)
	}

	consumerConfig := jetstream.ConsumerConfig{
		Name:          cfg.ConsumerName,
		Durable:       cfg.ConsumerName,
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverNewPolicy,
		FilterSubject: cfg.Topic,
	}

	consumer, err := stream.CreateOrUpdateConsumer(ctx, consumerConfig)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create/update consumer %s: %w", cfg.ConsumerName, err)
	}

	return &NATSStream{
		conn:     conn,
		stream:   stream,
		consumer: consumer,
		topic:    cfg.Topic,
		logger:   logger,
	}, nil
}

// Subscribe implements events.Subscriber. The topic is fixed by the consumer.
func (s *NATSStream) Subscribe(ctx context.Context, topic string, handler events.HandlerFunc) error {
	if topic != "" && topic != s.topic {
		s.logger.Info("stream consumer bound to a different subject", "requested", topic, "bound", s.topic)
	}

	cc, err := s.consumer.Consume(func(msg jetstream.Msg) {
		if err := handler(ctx, msg.Data()); err != nil {
			s.logger.Error("stream handler failed, requesting redelivery", "error", err)
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("failed to consume %s: %w", s.topic, err)
	}
	s.consume = cc
	return nil
}

// Close stops consumption and closes the NATS connection.
func (s *NATSStream) Close() error {
	if s.consume != nil {
		s.consume.Stop()
	}
	s.conn.Close()
	return nil
}
