package bootstrap

import (
	"context"
	"fmt"

	"linkstride-client/internal/apiclient"
	"linkstride-client/internal/config"
	"linkstride-client/internal/controller"
	"linkstride-client/internal/handler"
	"linkstride-client/internal/pkg/logger"
	"linkstride-client/internal/repository/contract"
	"linkstride-client/internal/repository/implementation"
	"linkstride-client/internal/service"
	internalWS "linkstride-client/internal/websocket"
	"linkstride-client/pkg/events"
	pktNats "linkstride-client/pkg/nats"
	"linkstride-client/pkg/retry"
)

const eventBufferSize = 64

type Container struct {
	Logger logger.ILogger

	// Controllers
	AuthController         controller.IAuthController
	LinkController         controller.ILinkController
	SubscriptionController controller.ISubscriptionController
	PaymentController      controller.IPaymentController
	ViewController         controller.IViewController
	PushHandler            *handler.PushHandler

	// Services
	SessionService      service.ISessionService
	SubscriptionService service.ISubscriptionService
	ConsumerService     service.IConsumerService
	RefreshScheduler    *service.RefreshScheduler

	Hub *internalWS.Hub
	Bus *events.Bus

	store     contract.StorageRepository
	publisher *pktNats.Publisher
}

func NewContainer(cfg *config.Config) (*Container, error) {
	// 1. Logging
	appLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())

	// 2. Storage
	store, rdb, err := NewStorage(cfg.Storage, appLogger)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	sessionRepo := implementation.NewSessionRepository(store)

	// 3. Remote API
	apiClient := apiclient.NewClient(apiclient.Config{
		BaseURL:        cfg.API.BaseURL,
		RequestTimeout: cfg.API.RequestTimeout,
		RateLimitRPS:   cfg.API.RateLimitRPS,
		RateLimitBurst: cfg.API.RateLimitBurst,
	}, apiclient.NewStoreTokenSource(store), appLogger)

	// 4. Events
	bus := events.NewBus(eventBufferSize)

	var natsPublisher *pktNats.Publisher
	if cfg.Events.NatsEnabled {
		natsPublisher, err = pktNats.NewPublisher(cfg.Events.NatsURL)
		if err != nil {
			// The mirror is optional; the UI still gets events over the websocket.
			appLogger.Warn("Bootstrap", "NATS unavailable, event mirror disabled", map[string]interface{}{
				"url":   cfg.Events.NatsURL,
				"error": err.Error(),
			})
			natsPublisher = nil
		}
	}

	// 5. Services
	retryOpts := []retry.Option{
		retry.WithMaxRetries(cfg.Subscription.RetryMax),
		retry.WithBaseDelay(cfg.Subscription.RetryBaseDelay),
		retry.WithMaxDelay(cfg.Subscription.RetryMaxDelay),
	}

	subscriptionService := service.NewSubscriptionService(store, sessionRepo, apiClient, bus, appLogger, service.SubscriptionOptions{
		CacheTTL:          cfg.Subscription.CacheTTL,
		PendingPaymentTTL: cfg.Subscription.PendingPaymentTTL,
		FreeLinksPerDay:   cfg.Subscription.FreeLinksPerDay,
		Retry:             retryOpts,
	})
	sessionService := service.NewSessionService(apiClient, sessionRepo, subscriptionService, bus, appLogger, retryOpts...)
	apiClient.OnUnauthorized(sessionService.HandleUnauthorized)

	linkService := service.NewLinkService(apiClient, subscriptionService, appLogger, cfg.Subscription.FreeLinksPerDay, retryOpts...)
	paymentService := service.NewPaymentService(apiClient, sessionService, subscriptionService, appLogger,
		cfg.Payment.IsProduction, cfg.Subscription.FreeLinksPerDay)
	viewService := service.NewViewService(sessionService, subscriptionService, paymentService, appLogger, cfg.Subscription.FreeLinksPerDay)

	// 6. Push delivery
	hubLogger := logger.NewIsolatedLogger(cfg.App.HubLogFilePath)
	hub := internalWS.NewHub(rdb, hubLogger)

	sinks := []service.EventSink{{Name: "websocket", Forward: hub.Broadcast}}
	if natsPublisher != nil {
		sinks = append(sinks, service.EventSink{Name: "nats", Forward: natsPublisher.Publish})
	}
	consumerService := service.NewConsumerService(bus, appLogger, sinks...)

	scheduler := service.NewRefreshScheduler(sessionService, subscriptionService, appLogger, cfg.Subscription.RefreshSchedule)

	return &Container{
		Logger: appLogger,

		AuthController:         controller.NewAuthController(sessionService),
		LinkController:         controller.NewLinkController(linkService, sessionService),
		SubscriptionController: controller.NewSubscriptionController(subscriptionService, sessionService, cfg.Subscription.FreeLinksPerDay),
		PaymentController:      controller.NewPaymentController(paymentService, sessionService),
		ViewController:         controller.NewViewController(viewService),
		PushHandler:            handler.NewPushHandler(sessionService, hub, appLogger),

		SessionService:      sessionService,
		SubscriptionService: subscriptionService,
		ConsumerService:     consumerService,
		RefreshScheduler:    scheduler,

		Hub: hub,
		Bus: bus,

		store:     store,
		publisher: natsPublisher,
	}, nil
}

// Start launches the background workers. They stop when ctx is cancelled.
func (c *Container) Start(ctx context.Context) error {
	go c.Hub.Run(ctx)

	if err := c.ConsumerService.Consume(ctx); err != nil {
		return fmt.Errorf("start event consumer: %w", err)
	}

	return c.RefreshScheduler.Start()
}

// Close releases everything NewContainer opened. Call it after the server has stopped.
func (c *Container) Close(ctx context.Context) error {
	select {
	case <-c.RefreshScheduler.Stop().Done():
	case <-ctx.Done():
	}

	background := make(chan struct{})
	go func() {
		c.SubscriptionService.WaitBackground()
		close(background)
	}()
	select {
	case <-background:
	case <-ctx.Done():
		c.Logger.Warn("Bootstrap", "Closing before background refresh finished", nil)
	}

	if err := c.Bus.Close(); err != nil {
		c.Logger.Warn("Bootstrap", "Failed to close event bus", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if c.publisher != nil {
		c.publisher.Close()
	}

	// The redis store owns the shared client, so this closes the hub relay too.
	return c.store.Close()
}
