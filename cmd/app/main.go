package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/cors"
	"github.com/tsel-ticketmaster/tm-fulfillment/config"
	adminapp_inventory "github.com/tsel-ticketmaster/tm-fulfillment/internal/module/adminapp/inventory"
	adminapp_purchase "github.com/tsel-ticketmaster/tm-fulfillment/internal/module/adminapp/purchase"
	customerapp_inventory "github.com/tsel-ticketmaster/tm-fulfillment/internal/module/customerapp/inventory"
	"github.com/tsel-ticketmaster/tm-fulfillment/internal/module/customerapp/purchasable"
	customerapp_purchase "github.com/tsel-ticketmaster/tm-fulfillment/internal/module/customerapp/purchase"
	"github.com/tsel-ticketmaster/tm-fulfillment/internal/module/customerapp/stripe"
	"github.com/tsel-ticketmaster/tm-fulfillment/internal/module/customerapp/webhook"
	"github.com/tsel-ticketmaster/tm-fulfillment/internal/pkg/jwt"
	internalMiddleware "github.com/tsel-ticketmaster/tm-fulfillment/internal/pkg/middleware"
	"github.com/tsel-ticketmaster/tm-fulfillment/internal/pkg/session"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/applogger"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/gctasks"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/kafka"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/metrics"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/middleware"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/monitoring"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/outbox"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/postgresql"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/pubsub"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/redis"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/server"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/validator"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"golang.org/x/sync/errgroup"
)

var (
	c *config.Config
)

func init() {
	c = config.Get()
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := applogger.GetLogrus()

	mon := monitoring.NewOpenTelemetry(
		logger,
		c.Application.Name,
		c.Application.Environment,
		c.Monitoring.OTLPEndpoint,
		c.Monitoring.OTLPInsecure,
	)

	mon.Start(ctx)

	validate := validator.Get()

	hc := &http.Client{Timeout: c.Application.Timeout}

	jsonWebToken := jwt.NewJSONWebToken(c.JWT.PrivateKey, c.JWT.PublicKey)

	psqldb := postgresql.GetDatabase()
	if err := psqldb.Ping(); err != nil {
		logger.WithContext(ctx).WithError(err).Error()
	}

	publisher := pubsub.PublisherFromKafkaWriter(logger, kafka.NewWriter())

	rc := redis.GetClient()
	if err := rc.Ping(context.Background()).Err(); err != nil {
		logger.WithContext(ctx).WithError(err).Error()
	}

	cloudTask, err := gctasks.NewGCTasks(ctx, logger, c.GCP.ProjectID, c.GCP.Location, c.GCP.ServiceAccount)
	if err != nil {
		logger.WithContext(ctx).WithError(err).Fatal("cloud tasks client could not be created")
	}

	fulfillmentMetrics := metrics.NewFulfillmentMetrics("tm", prometheus.DefaultRegisterer)

	session := session.NewRedisSessionStore(logger, rc)

	customerSessionMiddleware := internalMiddleware.NewCustomerSessionMiddleware(jsonWebToken, session)
	adminSessionMiddleware := internalMiddleware.NewAdminSessionMiddleware(jsonWebToken, session)

	router := mux.NewRouter()
	router.Use(
		otelmux.Middleware(c.Application.Name),
		middleware.HTTPResponseTraceInjection,
		middleware.NewHTTPRequestLogger(logger, c.Application.Debug, http.StatusInternalServerError).Middleware,
	)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	// shared
	purchasableRegistry := purchasable.NewRegistry(map[purchasable.Kind]purchasable.Resolver{
		purchasable.KindEvent:   purchasable.NewCatalogRepository(logger, psqldb, purchasable.KindEvent, "event"),
		purchasable.KindProduct: purchasable.NewCatalogRepository(logger, psqldb, purchasable.KindProduct, "product"),
		purchasable.KindCourse:  purchasable.NewCatalogRepository(logger, psqldb, purchasable.KindCourse, "course"),
	})
	outboxStore := outbox.NewStore(logger, psqldb)

	// customer's app
	customerappInventoryLineRepo := customerapp_inventory.NewInventoryLineRepository(logger, psqldb)
	customerappInventoryUseCase := customerapp_inventory.NewInventoryUseCase(customerapp_inventory.InventoryUseCaseProperty{
		Logger:                  logger,
		Timeout:                 c.Application.Timeout,
		PurchasableRegistry:     purchasableRegistry,
		InventoryLineRepository: customerappInventoryLineRepo,
	})
	customerapp_inventory.InitHTTPHandler(router, validate, customerappInventoryUseCase)

	stripeRepo := stripe.NewStripeRepository(c.Stripe.BaseURL, c.Stripe.SecretKey, logger, hc)
	paymentProvider := customerapp_purchase.NewStripePaymentProvider(customerapp_purchase.StripePaymentProviderProperty{
		Logger:           logger,
		StripeRepository: stripeRepo,
		Metrics:          fulfillmentMetrics,
		SuccessURL:       c.Stripe.SuccessURL,
		CancelURL:        c.Stripe.CancelURL,
	})
	notifier := customerapp_purchase.NewCloudTaskNotifier(logger, cloudTask, c.Fulfillment.NotificationURL, c.Fulfillment.NotificationQueue)

	customerappPurchaseUseCase := customerapp_purchase.NewPurchaseUseCase(customerapp_purchase.PurchaseUseCaseProperty{
		Logger:                    logger,
		Timeout:                   c.Application.Timeout,
		PurchasePaidTopic:         c.Fulfillment.PurchasePaidTopic,
		PurchaseItemRefundedTopic: c.Fulfillment.PurchaseItemRefundedTopic,
		PurchasableRegistry:       purchasableRegistry,
		InventoryLineRepository:   customerappInventoryLineRepo,
		PurchaseRepository:        customerapp_purchase.NewPurchaseRepository(logger, psqldb),
		PurchasedItemRepository:   customerapp_purchase.NewPurchasedItemRepository(logger, psqldb),
		PaymentProvider:           paymentProvider,
		Outbox:                    outboxStore,
		Notifier:                  notifier,
		Metrics:                   fulfillmentMetrics,
	})
	customerapp_purchase.InitHTTPHandler(router, customerSessionMiddleware, validate, customerappPurchaseUseCase)

	webhookUseCase := webhook.NewWebhookUseCase(webhook.WebhookUseCaseProperty{
		Logger:                   logger,
		Timeout:                  c.Application.Timeout,
		Secret:                   c.Stripe.WebhookSecret,
		Tolerance:                c.Stripe.WebhookTolerance,
		EventTTL:                 c.Fulfillment.WebhookEventTTL,
		PurchaseCompleter:        customerappPurchaseUseCase,
		ProcessedEventRepository: webhook.NewProcessedEventRepository(logger, rc),
		Metrics:                  fulfillmentMetrics,
	})
	webhook.InitHTTPHandler(router, webhookUseCase)

	// admin's app
	adminappInventoryUseCase := adminapp_inventory.NewInventoryUseCase(adminapp_inventory.InventoryUseCaseProperty{
		Logger:                  logger,
		Location:                c.Application.Location,
		Timeout:                 c.Application.Timeout,
		PurchasableRegistry:     purchasableRegistry,
		InventoryLineRepository: adminapp_inventory.NewInventoryLineRepository(logger, psqldb),
	})
	adminapp_inventory.InitHTTPHandler(router, adminSessionMiddleware, validate, adminappInventoryUseCase)
	adminapp_purchase.InitHTTPHandler(router, adminSessionMiddleware, validate, customerappPurchaseUseCase)

	handler := middleware.SetChain(
		router,
		cors.New(cors.Options{
			AllowedOrigins:   c.CORS.AllowedOrigins,
			AllowedMethods:   c.CORS.AllowedMethods,
			AllowedHeaders:   c.CORS.AllowedHeaders,
			ExposedHeaders:   c.CORS.ExposedHeaders,
			MaxAge:           c.CORS.MaxAge,
			AllowCredentials: c.CORS.AllowCredentials,
		}).Handler,
	)

	srv := &server.Server{
		Server: http.Server{
			Addr:    fmt.Sprintf(":%d", c.Application.Port),
			Handler: handler,
		},
		Logger: logger,
	}

	hostname, _ := os.Hostname()
	relay := outbox.NewRelay(logger, outboxStore, publisher, outbox.RelayProperty{
		ID:        fmt.Sprintf("%s-%d", hostname, os.Getpid()),
		BatchSize: c.Fulfillment.OutboxBatchSize,
		Interval:  c.Fulfillment.OutboxInterval,
		Lease:     c.Fulfillment.OutboxLease,
		MaxRetry:  c.Fulfillment.OutboxMaxRetry,
	})

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(srv.ListenAndServe)
	g.Go(func() error {
		return relay.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("service stopped with error")
	}

	publisher.Close()
	cloudTask.Close()
	psqldb.Close()
	rc.Close()
	mon.Stop(ctx)
}
