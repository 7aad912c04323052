package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-storefront-orders/internal/address"
	"github.com/ariefcatur/go-storefront-orders/internal/cart"
	"github.com/ariefcatur/go-storefront-orders/internal/catalog"
	"github.com/ariefcatur/go-storefront-orders/internal/checkout"
	"github.com/ariefcatur/go-storefront-orders/internal/config"
	"github.com/ariefcatur/go-storefront-orders/internal/gateway"
	"github.com/ariefcatur/go-storefront-orders/internal/httpx"
	kafkax "github.com/ariefcatur/go-storefront-orders/internal/kafka"
	"github.com/ariefcatur/go-storefront-orders/internal/logx"
	"github.com/ariefcatur/go-storefront-orders/internal/mongox"
	"github.com/ariefcatur/go-storefront-orders/internal/orders"
	"github.com/ariefcatur/go-storefront-orders/internal/postgres"
	"github.com/ariefcatur/go-storefront-orders/internal/redisx"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	lg, err := logx.New(cfg.ServiceName, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	shutdownTracing, err := logx.SetupTracing(cfg.ServiceName)
	if err != nil {
		lg.Fatal("tracing", zap.Error(err))
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	if cfg.RunMigrations {
		if err := postgres.Migrate(cfg.PostgresDSN); err != nil {
			lg.Fatal("migrate", zap.Error(err))
		}
	}
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		lg.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	// Mongo (cart)
	mdb, err := mongox.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		lg.Fatal("mongo connect", zap.Error(err))
	}
	defer func() { _ = mdb.Client().Disconnect(context.Background()) }()
	carts := cart.NewMongoStore(mdb)
	if err := carts.CreateIndexes(ctx); err != nil {
		lg.Warn("cart indexes", zap.Error(err))
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer
	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024, lg)
	prod.Start(ctx)

	catalogRepo := &catalog.Repo{DB: db}
	addressRepo := &address.Repo{DB: db}
	orderRepo := &orders.Repo{DB: db}

	svc := &checkout.Service{
		Gateway: gateway.NewClient(gateway.Config{
			BaseURL:   cfg.Gateway.BaseURL,
			KeyID:     cfg.Gateway.KeyID,
			KeySecret: cfg.Gateway.KeySecret,
			Timeout:   cfg.Gateway.Timeout,
		}, lg),
		Carts:     &cart.Service{Store: carts, Catalog: catalogRepo},
		Addresses: addressRepo,
		Orders:    orderRepo,
		Attempts:  &checkout.AttemptRepo{DB: db},
		Events: &orders.Publisher{
			Producer: prod,
			Service:  cfg.ServiceName,
			TraceID:  logx.TraceID,
		},
		Dedup:         &redisx.Deduper{Client: rdb, Scope: "webhook"},
		Log:           lg.Named("checkout"),
		KeySecret:     cfg.Gateway.KeySecret,
		WebhookSecret: cfg.Gateway.WebhookSecret,
		Currency:      cfg.Gateway.Currency,
	}

	auth := httpx.Auth([]byte(cfg.JWTSecret))
	router := httpx.NewRouter(lg)
	(&httpx.OrdersHandler{
		Checkout: svc,
		Orders:   &orders.QueryService{Orders: orderRepo, Addresses: addressRepo},
		KeyID:    cfg.Gateway.KeyID,
		Auth:     auth,
		Log:      lg,
	}).Register(router)
	(&httpx.CatalogHandler{
		Products:  catalogRepo,
		Addresses: addressRepo,
		Auth:      auth,
		Log:       lg,
	}).Register(router)

	// HTTP server
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           otelhttp.NewHandler(router, cfg.ServiceName),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// graceful shutdown
	go func() {
		lg.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("listen", zap.Error(err))
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	lg.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close()      // tutup inbox -> flush & close writer
	cancel()          // stop producer loop
	prod.WaitClosed() // drain
}
