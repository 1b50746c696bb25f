// Package server wires configuration, storage and services together and runs
// the HTTP API, the gRPC health endpoint, the analysis worker and the
// background maintenance loops until the process is told to stop.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/jagcoaching/speechcoach/internal/logging"
	"github.com/jagcoaching/speechcoach/internal/server/analysis"
	"github.com/jagcoaching/speechcoach/internal/server/config"
	"github.com/jagcoaching/speechcoach/internal/server/ratelimit"
	"github.com/jagcoaching/speechcoach/internal/server/repositories/repomanager"
	"github.com/jagcoaching/speechcoach/internal/server/rest"
	"github.com/jagcoaching/speechcoach/internal/server/services"

	gs "github.com/jagcoaching/speechcoach/internal/server/grpc"
)

const (
	healthInterval    = 10 * time.Second
	shutdownTimeout   = 10 * time.Second
	workerConcurrency = 4

	// per-address cap on the unauthenticated auth endpoints
	ipRateLimit  = 60
	ipRateWindow = time.Minute
)

type App struct {
	config *config.Config
	logger logging.Logger

	repos       repomanager.RepositoryManager
	userService *services.UserService
	redis       *redis.Client
	queue       *analysis.Queue
	worker      *analysis.Worker

	httpServer *http.Server
	grpcServer *gs.GRPCServer
}

// NewApp validates c, connects storage, runs migrations and builds every
// component. Redis is optional: without it login throttling stays in memory
// and analysis requests are refused.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	repos, err := repomanager.Open(ctx, c.StorageDriver, c.DatabaseDSN, c.MongoDatabase)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := repos.RunMigrations(ctx); err != nil {
		_ = repos.Close(ctx)
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	app := &App{config: c, logger: logger, repos: repos}

	var opts []services.UserServiceOption
	if c.RedisAddr != "" {
		app.redis = redis.NewClient(&redis.Options{Addr: c.RedisAddr})
	}
	if c.LoginRateLimit > 0 {
		var limiter ratelimit.Limiter = ratelimit.NewMemory(c.LoginRateLimit, c.LoginRateWindow)
		if app.redis != nil {
			limiter = ratelimit.NewRedisLimiter(app.redis, c.LoginRateLimit, c.LoginRateWindow, "")
		}
		opts = append(opts, services.WithLoginLimiter(limiter))
	}

	app.userService, err = services.NewUserService(repos, c, logger.With("module", "users"), opts...)
	if err != nil {
		app.close(ctx)
		return nil, err
	}

	var queue services.AnalysisQueue
	if c.RedisAddr != "" {
		app.queue = analysis.NewQueue(asynq.RedisClientOpt{Addr: c.RedisAddr})
		queue = app.queue
	}
	recordings := services.NewRecordingService(repos, services.NewS3Presigner(c), queue, logger.With("module", "recordings"))
	if c.RedisAddr != "" {
		app.worker = analysis.NewWorker(
			asynq.RedisClientOpt{Addr: c.RedisAddr},
			recordings,
			analysis.NewHTTPAnalyzer(c.AnalyzerURL, c.AnalyzerTimeout),
			logger.With("module", "analysis"),
			workerConcurrency,
		)
	}

	app.httpServer = &http.Server{
		Addr: c.EndpointAddrHTTP,
		Handler: rest.NewRouter(rest.Options{
			Sessions:     app.userService,
			Recordings:   recordings,
			Log:          logger.With("module", "http"),
			Production:   c.IsProduction(),
			IPRateLimit:  ipRateLimit,
			IPRateWindow: ipRateWindow,
			Ping:         repos.Ping,

			TrustProxyHeaders: c.TrustProxyHeaders,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	app.grpcServer = gs.NewGRPCServer(c.EndpointAddrGRPC, logger)

	return app, nil
}

// Run serves until SIGINT/SIGTERM/SIGQUIT or ctx cancellation, or until any
// component fails.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()
	defer app.close(context.Background())

	app.logger.Info(ctx, "Starting app...", "storage", app.config.StorageDriver, "env", app.config.Env)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return app.runHTTP(ctx) })
	g.Go(func() error { return app.grpcServer.Run(ctx) })
	g.Go(func() error { app.runHealthLoop(ctx, healthInterval); return nil })
	if app.config.TokenSweepInterval > 0 {
		g.Go(func() error { app.runSweeper(ctx, app.config.TokenSweepInterval); return nil })
	}
	if app.worker != nil {
		g.Go(func() error { return app.worker.Run(ctx) })
	}

	err := g.Wait()
	app.logger.Info(context.Background(), "App stopped")
	return err
}

func (app *App) runHTTP(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		app.logger.Info(ctx, "Starting HTTP server", "address", app.httpServer.Addr)
		if err := app.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	app.logger.Info(ctx, "Stopping HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return app.httpServer.Shutdown(shutdownCtx)
}

// runHealthLoop mirrors storage reachability into the gRPC health status.
func (app *App) runHealthLoop(ctx context.Context, every time.Duration) {
	check := func() {
		err := app.repos.Ping(ctx)
		if err != nil && ctx.Err() == nil {
			app.logger.Warn(ctx, "storage ping failed", "error", err)
		}
		app.grpcServer.SetServing(err == nil)
	}

	check()
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check()
		}
	}
}

// runSweeper periodically deletes expired refresh tokens.
func (app *App) runSweeper(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := app.userService.SweepExpiredTokens(ctx)
			if err != nil {
				app.logger.Error(ctx, "refresh token sweep failed", "error", err)
				continue
			}
			if n > 0 {
				app.logger.Info(ctx, "expired refresh tokens removed", "count", n)
			}
		}
	}
}

func (app *App) close(ctx context.Context) {
	if app.queue != nil {
		if err := app.queue.Close(); err != nil {
			app.logger.Warn(ctx, "closing analysis queue", "error", err)
		}
	}
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Warn(ctx, "closing redis", "error", err)
		}
	}
	if err := app.repos.Close(ctx); err != nil {
		app.logger.Warn(ctx, "closing storage", "error", err)
	}
}
