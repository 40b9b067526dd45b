package app

import (
	"context"
	"fmt"
	"time"

	"github.com/aquamarinepk/aqm"
	aqmevents "github.com/aquamarinepk/aqm/events"
	"github.com/aquamarinepk/aqm/middleware"

	"github.com/appetiteclub/storefront/pkg"
	"github.com/appetiteclub/storefront/pkg/event"
	"github.com/appetiteclub/storefront/services/storefront/internal/mongo"
	"github.com/appetiteclub/storefront/services/storefront/internal/rating"
	"github.com/appetiteclub/storefront/services/storefront/internal/redis"
	"github.com/appetiteclub/storefront/services/storefront/internal/storefront"
)

const (
	AppName    = "storefront"
	AppVersion = "0.1.0"

	completionStream   = "ORDER_COMPLETIONS"
	completionConsumer = "storefront-rating"
)

// App encapsulates the storefront service application
type App struct {
	config *aqm.Config
	logger aqm.Logger
	micro  *aqm.Micro
}

func New(config *aqm.Config, logger aqm.Logger) (*App, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &App{
		config: config,
		logger: logger,
	}, nil
}

// Initialize sets up all dependencies and components
func (a *App) Initialize(ctx context.Context) error {
	api, err := rating.NewAPIClient(a.config, a.logger)
	if err != nil {
		return fmt.Errorf("cannot setup backend client: %w", err)
	}

	timings, err := LoadTimings(a.config)
	if err != nil {
		return err
	}

	tabTTL, err := duration(a.config, "tabs.ttl", storefront.DefaultTabTTL)
	if err != nil {
		return err
	}

	var lifecycles []interface{}

	deps := storefront.TabDeps{
		API:     api,
		Timings: timings,
	}

	switch backend := a.config.GetStringOrDef("cache.images.backend", "memory"); backend {
	case "redis":
		images := redis.NewImageCache(a.config, a.logger)
		deps.Images = images
		lifecycles = append(lifecycles, images)
	case "memory":
		deps.Images = rating.NewMemoryImageCache()
	default:
		return fmt.Errorf("unknown cache.images.backend %q", backend)
	}

	switch backend := a.config.GetStringOrDef("snapshots.backend", "memory"); backend {
	case "mongo":
		snapshots := mongo.NewSnapshotRepo(a.config, a.logger)
		deps.Snapshots = snapshots
		lifecycles = append(lifecycles, snapshots)
	case "memory":
		deps.Snapshots = rating.NewMemorySnapshotStore()
	default:
		return fmt.Errorf("unknown snapshots.backend %q", backend)
	}

	tabs := storefront.NewTabStore(deps, tabTTL, a.logger)
	lifecycles = append(lifecycles, tabs)

	subscriber, closeSubscriber, err := a.completionSource(ctx)
	if err != nil {
		return err
	}
	completions := storefront.NewCompletionSubscriber(subscriber, tabs, a.logger)
	lifecycles = append(lifecycles, completions, aqm.LifecycleHooks{
		OnStop: func(context.Context) error { return closeSubscriber() },
	})

	handler := storefront.NewHandler(tabs, a.config, a.logger)

	stack := middleware.DefaultStack(middleware.StackOptions{
		Logger: a.logger,
	})

	options := []aqm.Option{
		aqm.WithConfig(a.config),
		aqm.WithLogger(a.logger),
		aqm.WithHTTPMiddleware(stack...),
		aqm.WithHTTPServerModules("web.port", handler),
		aqm.WithLifecycle(lifecycles...),
		aqm.WithHealthChecks(AppName),
	}

	a.micro = aqm.NewMicro(options...)
	return nil
}

// completionSource connects to the completion channel: a JetStream durable
// consumer when nats.stream.enabled is set, core NATS otherwise.
func (a *App) completionSource(ctx context.Context) (aqmevents.Subscriber, func() error, error) {
	natsURL := a.config.GetStringOrDef("nats.url", "nats://localhost:4222")

	streamEnabled, _ := a.config.GetString("nats.stream.enabled")
	if streamEnabled == "true" {
		stream, err := pkg.NewNATSStream(ctx, pkg.NATSStreamConfig{
			URL:          natsURL,
			StreamName:   completionStream,
			Topic:        event.OrdersCompletedTopic,
			ConsumerName: completionConsumer,
			MaxAge:       time.Hour,
			Logger:       a.logger,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("cannot setup NATS stream: %w", err)
		}
		a.logger.Info("NATS stream initialized for order completions", "stream", completionStream)
		return stream, stream.Close, nil
	}

	subscriber, err := pkg.NewNATSSubscriber(natsURL, a.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot connect to NATS subscriber: %w", err)
	}
	return subscriber, subscriber.Close, nil
}

// Run starts the application
func (a *App) Run(ctx context.Context) error {
	a.logger.Infof("Starting %s(%s)", AppName, AppVersion)
	if err := a.micro.Run(ctx); err != nil {
		return err
	}
	a.logger.Infof("%s(%s) stopped", AppName, AppVersion)
	return nil
}

// LoadTimings reads the modal pacing delays, keeping defaults for unset keys.
func LoadTimings(config *aqm.Config) (rating.Timings, error) {
	t := rating.DefaultTimings()

	var err error
	if t.Advance, err = duration(config, "rating.delay.advance", t.Advance); err != nil {
		return t, err
	}
	if t.AutoClose, err = duration(config, "rating.delay.autoclose", t.AutoClose); err != nil {
		return t, err
	}
	if t.Banner, err = duration(config, "rating.delay.banner", t.Banner); err != nil {
		return t, err
	}
	return t, nil
}

func duration(config *aqm.Config, key string, def time.Duration) (time.Duration, error) {
	raw, _ := config.GetString(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
