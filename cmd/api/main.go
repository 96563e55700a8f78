package main

import (
	"context"
	"errors"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"custom-shop/internal/config"
	"custom-shop/internal/database"
	"custom-shop/internal/handlers"
	"custom-shop/internal/logger"
	"custom-shop/internal/metrics"
	"custom-shop/internal/repository"
	"custom-shop/internal/routes"
	"custom-shop/internal/services"
	"custom-shop/internal/storage"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.LoadConfig()
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		stdlog.Fatalf("building logger: %v", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("configuration loaded",
		zap.String("source", cfg.EnvSource),
		zap.String("store_backend", cfg.StoreBackend))
	for _, w := range cfg.Warnings {
		log.Warn("configuration", zap.String("warning", w))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("opening store", zap.Error(err))
	}
	defer closeStore()

	images, err := storage.NewDiskStore(cfg.UploadDir, cfg.ImageBasePath)
	if err != nil {
		log.Fatal("preparing upload dir", zap.Error(err))
	}

	m := metrics.New()
	productTypes := services.NewProductTypeService(services.ProductTypeServiceDeps{Store: store, Logger: log})
	products := services.NewProductService(services.ProductServiceDeps{Store: store, Images: images, Logger: log, Metrics: m})
	availability := services.NewAvailabilityService(services.AvailabilityServiceDeps{Store: store, Logger: log, Metrics: m})
	cart := services.NewCartService(services.CartServiceDeps{Store: store, Logger: log, Metrics: m, RecentLimit: cfg.CartRecentLimit})

	router := gin.New()
	router.Use(gin.Recovery(), logger.RequestLogger(log, m), handlers.Timeout(cfg.RequestTimeout))
	routes.RegisterRoutes(router, routes.Handlers{
		ProductTypes: handlers.NewProductTypeHandler(productTypes, log),
		Products:     handlers.NewProductHandler(products, availability, log),
		Cart:         handlers.NewCartHandler(cart, log),
		Files:        handlers.NewFileHandler(images, log),
		FilesPath:    cfg.ImageBasePath,
		Metrics:      m,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("server running", zap.String("port", cfg.Port), zap.String("upload_dir", images.Dir()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", zap.Error(err))
	}
}

// openStore elige el backend configurado.
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (repository.Store, func(), error) {
	if cfg.StoreBackend != config.BackendMongo {
		log.Info("using in-memory store")
		return repository.NewMemoryStore(), func() {}, nil
	}

	client, err := database.Connect(ctx, cfg.MongoURI, repository.NewRegistry())
	if err != nil {
		return nil, nil, err
	}
	store := repository.NewMongoStore(client, client.Database(cfg.MongoDB))
	if err := store.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}
	log.Info("connected to mongo", zap.String("database", cfg.MongoDB))
	return store, func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Warn("disconnecting mongo", zap.Error(err))
		}
	}, nil
}
