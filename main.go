package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sales_dashboard/api"
	"sales_dashboard/internal/config"
	"sales_dashboard/internal/docstore"
	"sales_dashboard/internal/sales"
)

type backend interface {
	sales.Storage
	sales.Feed
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Errorf("error loading config: %v", err))
	}

	logger, err := newLogger(cfg.App.Env)
	if err != nil {
		panic(fmt.Errorf("error creating logger: %v", err))
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "production" {
		gin.SetMode(gin.ReleaseMode)
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store backend
	switch cfg.Store.Mode {
	case config.StoreMemory:
		logger.Warn("using in-memory store, data is not persisted")
		store = sales.NewLocalStorage()
	default:
		fs, err := docstore.New(ctx, docstore.Config{
			ProjectID:       cfg.Store.Firebase.ProjectID,
			CredentialsFile: cfg.Store.CredentialsFile,
			Namespace:       cfg.Store.Namespace,
		}, logger.Named("docstore"))
		if err != nil {
			return err
		}
		defer fs.Close()
		store = fs
	}

	board := sales.NewBoard(cfg.Sales.DefaultExchangeRate, cfg.Sales.ResubscribeDelay, logger.Named("board"))
	service := sales.NewService(store, board, logger.Named("sales"), sales.WithLocation(cfg.App.Location()))

	subscriptions := make(chan error, 1)
	go func() { subscriptions <- board.Run(ctx, store) }()

	r := gin.New()
	r.Use(gin.Recovery())
	api.InitRoutes(r, service, logger.Named("http"), api.RouteOptions{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		WriteRPS:       cfg.RateLimit.RequestsPerSecond,
		WriteBurst:     cfg.RateLimit.Burst,
	})

	srv := &http.Server{Addr: ":" + cfg.App.Port, Handler: r}
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr), zap.String("store", cfg.Store.Mode), zap.String("namespace", cfg.Store.Namespace))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("error trying to start server: %w", err)
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			stop()
			<-subscriptions
			return err
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	stop()
	return <-subscriptions
}
