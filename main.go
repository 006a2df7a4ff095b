package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/anvishah1/ForReal/internal/classifier"
	"github.com/anvishah1/ForReal/internal/config"
	"github.com/anvishah1/ForReal/internal/game"
	"github.com/anvishah1/ForReal/internal/handlers"
	"github.com/anvishah1/ForReal/internal/handoff"
	"github.com/anvishah1/ForReal/internal/logging"
	"github.com/anvishah1/ForReal/internal/sessions"
)

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	logger, err := logging.NewLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	client := classifier.New(cfg.ClassifierURL, &http.Client{Timeout: cfg.ClassifierTimeout}, logger)
	pool := initGamePool(cfg.GameImagesDir, logger)
	results := initHandoffStore(ctx, cfg, logger)

	r := gin.Default()
	r.MaxMultipartMemory = handlers.MaxUploadSize

	handlers.RegisterRoutes(r, handlers.Dependencies{
		Sessions:      sessions.NewRegistry(client, pool, nil, cfg.MaxSessions, logger),
		Results:       results,
		Classifier:    client,
		GameImagesDir: cfg.GameImagesDir,
		Logger:        logger,
	})

	server := &http.Server{
		Addr:    cfg.Addr,
		Handler: r,
	}

	logger.Info("ForReal listening",
		zap.String("addr", cfg.Addr),
		zap.String("classifier_url", cfg.ClassifierURL))
	if err := serveHTTPServer(server, cfg.ShutdownTimeout, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func initGamePool(dir string, logger *zap.Logger) *game.Pool {
	if dir == "" {
		return game.DefaultPool()
	}
	pool, err := game.LoadPool(dir, "/game-images")
	if err != nil {
		logger.Fatal("failed to load game images", zap.String("dir", dir), zap.Error(err))
	}
	logger.Info("game images loaded",
		zap.Int("real", len(pool.Real())),
		zap.Int("fake", len(pool.Fake())))
	return pool
}

func initHandoffStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) handoff.Store {
	if cfg.RedisAddr == "" {
		return handoff.NewMemoryStore(cfg.HandoffTTL)
	}

	redisCtx, redisCancel := context.WithTimeout(ctx, 5*time.Second)
	defer redisCancel()
	client, err := handoff.DialRedis(redisCtx, cfg.RedisAddr)
	if err != nil {
		logger.Fatal("redis connection failed", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}
	return handoff.NewRedisStore(handoff.NewRedisCache(client), cfg.HandoffTTL, logger)
}

func serveHTTPServer(server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger) error {
	return serveHTTPServerWithOptions(server, shutdownTimeout, logger, nil, nil)
}

// serveHTTPServerWithOptions serves until the server fails or a signal
// arrives, then waits up to shutdownTimeout for pending requests. A nil
// listener listens on server.Addr; a nil signalCh subscribes to SIGINT and
// SIGTERM.
func serveHTTPServerWithOptions(server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger, listener net.Listener, signalCh <-chan os.Signal) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if listener != nil {
			err = server.Serve(listener)
		} else {
			err = server.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	var (
		sigCh       <-chan os.Signal
		stopSignals func()
	)

	if signalCh != nil {
		sigCh = signalCh
		stopSignals = func() {}
	} else {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		sigCh = ch
		stopSignals = func() {
			signal.Stop(ch)
		}
	}
	defer stopSignals()

	select {
	case err := <-errCh:
		return err
	case sig, ok := <-sigCh:
		if !ok {
			return <-errCh
		}
		logger.Info("received shutdown signal, draining in-flight analyses",
			zap.String("signal", sig.String()),
			zap.Duration("timeout", shutdownTimeout))
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		err := <-errCh
		logger.Info("server stopped")
		return err
	}
}
