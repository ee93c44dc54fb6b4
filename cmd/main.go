package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"go-broadcast-relay/internal/application/facade"
	"go-broadcast-relay/internal/infrastructure/config"
	"go-broadcast-relay/internal/infrastructure/hub"
	"go-broadcast-relay/internal/infrastructure/logger"
	"go-broadcast-relay/internal/infrastructure/metrics"
	"go-broadcast-relay/internal/infrastructure/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogrusLogger(cfg.Logger())
	sctx := WithSignal(context.Background())

	reg := metrics.NewRegistry()
	hubInstance := hub.New(log, cfg.Hub(), metrics.NewHubMetrics(reg))
	relay := facade.NewRelayApplicationService(hubInstance, int(cfg.WSMaxMessageSize), log)

	router := InitRouter(cfg, relay, reg, log)
	httpSrv := server.NewHTTPServer(router, server.Options{
		Addr:         cfg.HTTPAddr,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	})

	app := newApplication(cfg, log, httpSrv, hubInstance)
	log.Infof("relay listening on %s (websocket path %s)", cfg.HTTPAddr, cfg.WSPath)
	if err := app.Run(sctx); err != nil {
		log.Errorf("failed to run application: %v", err)
		os.Exit(1)
	}
}

type Application struct {
	cfg     *config.Config
	logger  logger.Logger
	httpSrv server.Server
	hub     *hub.Hub
}

func newApplication(
	cfg *config.Config,
	logger logger.Logger,
	httpSrv server.Server,
	hubInstance *hub.Hub,
) *Application {
	return &Application{
		cfg:     cfg,
		logger:  logger.WithField("app", "relay"),
		httpSrv: httpSrv,
		hub:     hubInstance,
	}
}

func (app *Application) Run(ctx context.Context) error {
	eg := errgroup.Group{}

	eg.Go(func() error {
		return app.httpSrv.Start(ctx)
	})

	eg.Go(func() error {
		<-ctx.Done()
		app.logger.Info("shutting down")

		gracefulshutdownCtx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownTimeout)
		defer cancel()

		// Close client connections first so their handlers can return.
		if err := app.hub.Shutdown(gracefulshutdownCtx); err != nil {
			app.logger.Errorf("failed to stop hub: %v", err)
		}

		return app.httpSrv.Stop(gracefulshutdownCtx)
	})

	return eg.Wait()
}

func WithSignal(pctx context.Context) context.Context {
	ctx, cancel := context.WithCancel(pctx)

	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

		<-sigc

		cancel()
	}()

	return ctx
}
