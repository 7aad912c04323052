package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ariefcatur/go-storefront-orders/internal/address"
	"github.com/ariefcatur/go-storefront-orders/internal/cart"
	"github.com/ariefcatur/go-storefront-orders/internal/catalog"
	"github.com/ariefcatur/go-storefront-orders/internal/checkout"
	"github.com/ariefcatur/go-storefront-orders/internal/config"
	"github.com/ariefcatur/go-storefront-orders/internal/gateway"
	kafkax "github.com/ariefcatur/go-storefront-orders/internal/kafka"
	"github.com/ariefcatur/go-storefront-orders/internal/logx"
	"github.com/ariefcatur/go-storefront-orders/internal/mongox"
	"github.com/ariefcatur/go-storefront-orders/internal/orders"
	"github.com/ariefcatur/go-storefront-orders/internal/postgres"
	"github.com/ariefcatur/go-storefront-orders/internal/redisx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// worker: retry cart clear dari kafka + sweep rekonsiliasi payment.
func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	lg, err := logx.New(cfg.ServiceName+"-worker", cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	shutdownTracing, err := logx.SetupTracing(cfg.ServiceName + "-worker")
	if err != nil {
		lg.Fatal("tracing", zap.Error(err))
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		lg.Fatal("db", zap.Error(err))
	}
	defer db.Close()

	mdb, err := mongox.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		lg.Fatal("mongo", zap.Error(err))
	}
	defer func() { _ = mdb.Client().Disconnect(context.Background()) }()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Producer: sweep juga bisa materialize order -> OrderPlaced / CartClearRequested
	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024, lg)
	prod.Start(ctx)

	catalogRepo := &catalog.Repo{DB: db}
	carts := &cart.Service{Store: cart.NewMongoStore(mdb), Catalog: catalogRepo}
	attempts := &checkout.AttemptRepo{DB: db}

	svc := &checkout.Service{
		Gateway: gateway.NewClient(gateway.Config{
			BaseURL:   cfg.Gateway.BaseURL,
			KeyID:     cfg.Gateway.KeyID,
			KeySecret: cfg.Gateway.KeySecret,
			Timeout:   cfg.Gateway.Timeout,
		}, lg),
		Carts:     carts,
		Addresses: &address.Repo{DB: db},
		Orders:    &orders.Repo{DB: db},
		Attempts:  attempts,
		Events:    &orders.Publisher{Producer: prod, Service: cfg.ServiceName + "-worker", TraceID: logx.TraceID},
		Log:       lg.Named("checkout"),
		Currency:  cfg.Gateway.Currency,
	}

	handler := &checkout.CartClearHandler{
		Carts:       carts,
		Attempts:    attempts,
		Dedup:       &redisx.Deduper{Client: rdb, Scope: "cart-clear"},
		MaxAttempts: cfg.Worker.ClearAttempts,
		Backoff:     200 * time.Millisecond,
		Log:         lg.Named("cart-clear"),
	}
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.Worker.Group, orders.TopicCartClearRequested, cfg.Worker.Workers, lg)

	rec := &checkout.Reconciler{
		Service:  svc,
		After:    cfg.Worker.ReconcileAfter,
		Expiry:   cfg.Worker.IntentExpiry,
		Batch:    cfg.Worker.ReconcileBatch,
		Interval: cfg.Worker.ReconcileInterval,
		Log:      lg.Named("reconcile"),
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		lg.Info("cart clear consumer started",
			zap.String("group", cfg.Worker.Group), zap.String("topic", orders.TopicCartClearRequested),
			zap.Int("workers", cfg.Worker.Workers))
		if err := cons.Start(ctx, handler.Handle); err != nil {
			lg.Error("consumer exit", zap.Error(err))
			cancel()
		}
	}()
	go func() {
		defer wg.Done()
		_ = rec.Run(ctx)
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	lg.Info("shutting down worker")
	cancel()
	wg.Wait()
	prod.Close()
	prod.WaitClosed()
}
