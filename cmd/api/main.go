package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/artivio/marketplace/internal/catalog"
	"github.com/artivio/marketplace/internal/chat"
	"github.com/artivio/marketplace/internal/config"
	"github.com/artivio/marketplace/internal/content"
	"github.com/artivio/marketplace/internal/events"
	"github.com/artivio/marketplace/internal/httpx"
	"github.com/artivio/marketplace/internal/inventory"
	kafkax "github.com/artivio/marketplace/internal/kafka"
	"github.com/artivio/marketplace/internal/notify"
	"github.com/artivio/marketplace/internal/orders"
	"github.com/artivio/marketplace/internal/postgres"
	"github.com/artivio/marketplace/internal/redisx"
	"github.com/artivio/marketplace/internal/users"
)

func newLogger(level string) (*zap.SugaredLogger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	l, err := zc.Build()
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatalw("db connect", "err", err)
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024, logger)
	prod.Start(ctx)

	contentStore, err := content.NewFSStore(cfg.ContentDir)
	if err != nil {
		logger.Fatalw("content store", "err", err)
	}

	catalogStore := &catalog.PGStore{DB: db}
	userRepo := &users.PGRepo{DB: db}
	reconciler := inventory.NewReconciler(catalogStore)
	statusCache := &redisx.StatusCache{Client: rdb}

	chatSvc := &chat.Service{
		Store:    &chat.PGStore{DB: db},
		Users:    userRepo,
		Content:  contentStore,
		Notifier: &notify.RedisPublisher{Client: rdb},
		Log:      logger,
	}
	orderSvc := &orders.Service{
		Ledger:    &orders.PGLedger{DB: db},
		Inventory: reconciler,
		Chats:     chatSvc,
		Cache:     statusCache,
		Events:    &events.KafkaEmitter{Producer: prod, Service: cfg.ServiceName},
		Log:       logger,
	}

	router := httpx.NewRouter()
	(&httpx.ChatHandler{Chats: chatSvc}).Register(router)
	(&httpx.OrdersHandler{Orders: orderSvc, Catalog: catalogStore, Cache: statusCache}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		logger.Infow("http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalw("listen", "err", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	_ = srv.Shutdown(shutdownCtx)
	prod.Close()
	prod.WaitClosed()
}
