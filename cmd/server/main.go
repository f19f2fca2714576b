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

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gensou-revival/lobby-backend/internal/config"
	"github.com/gensou-revival/lobby-backend/internal/httpapi"
	"github.com/gensou-revival/lobby-backend/internal/lobby"
	"github.com/gensou-revival/lobby-backend/internal/watch"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()

	logCfg := zap.NewProductionConfig()
	logCfg.Level = zap.NewAtomicLevelAt(cfg.ZapLevel())
	logger, err := logCfg.Build()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// All lobby state is volatile: the registry starts empty on every boot.
	reg := lobby.NewRegistry(lobby.WithLogger(logger))
	hub := watch.NewHub(ctx)
	api := httpapi.NewServer(reg, hub, logger, cfg.Title)

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: api.Routes(),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		hub.Inbox() <- watch.Shutdown{}
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return multierr.Append(srv.Shutdown(shutCtx), srv.Close())
	})

	if err := g.Wait(); err != nil {
		logger.Error("server exited", zap.Error(err))
	}
	_ = logger.Sync()
}
