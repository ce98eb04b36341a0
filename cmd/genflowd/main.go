// genflowd serves the task dispatch and progress API.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mirageworks/genflow"
	"github.com/mirageworks/genflow/config"
	"github.com/mirageworks/genflow/dispatch"
	"github.com/mirageworks/genflow/server"
	"github.com/mirageworks/genflow/store/postgres"
	"github.com/mirageworks/genflow/types"
)

const shutdownTimeout = 10 * time.Second

func main() {
	root := &cobra.Command{
		Use:   "genflowd",
		Short: "genflow task dispatch daemon",
	}

	var mock bool
	serve := &cobra.Command{
		Use:   "serve",
		Short: "run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(mock)
		},
	}
	serve.Flags().BoolVar(&mock, "mock", false, "register static adapters for every known vendor")
	root.AddCommand(serve)

	if err := root.Execute(); err != nil {
		log.Fatalf("genflowd: %v", err)
	}
}

func runServe(mock bool) error {
	// Missing .env is fine; the environment may be set directly.
	if err := godotenv.Load(); err != nil {
		log.Debugf("no .env file loaded: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return errors.Trace(err)
	}
	if len(cfg.APIKeys) == 0 {
		return errors.BadRequestf("GENFLOW_API_KEYS must configure at least one key")
	}

	opts := []types.EngineOption{}
	if cfg.DatabaseDSN == "" {
		log.Warn("GENFLOW_DATABASE_DSN not set, using in-memory store")
		opts = append(opts, types.EnableMemStore())
	} else {
		pgCfg, err := postgres.ParseDSN(cfg.DatabaseDSN)
		if err != nil {
			return errors.Trace(err)
		}
		opts = append(opts, types.WithPostgresConfig(&types.PostgresConfig{
			Host:     pgCfg.Host,
			Port:     pgCfg.Port,
			User:     pgCfg.User,
			Password: pgCfg.Password,
			Database: pgCfg.Database,
			SSLMode:  pgCfg.SSLMode,
		}))
	}
	if cfg.NATSURL != "" {
		opts = append(opts, types.WithNATSURL(cfg.NATSURL))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	opts = append(opts, types.WithContext(ctx))

	engine, err := genflow.NewEngine(opts...)
	if err != nil {
		return errors.Trace(err)
	}
	defer engine.Close()

	if mock {
		if err := registerMockAdapters(engine); err != nil {
			return errors.Trace(err)
		}
	}

	ts := server.NewTaskServer(
		engine.Dispatcher(),
		engine.Broadcaster(),
		server.StaticKeyResolver(cfg.APIKeys),
	)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: ts.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("genflowd listening on %s", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return errors.Trace(err)
	case <-ctx.Done():
	}

	log.Info("genflowd shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return errors.Trace(srv.Shutdown(shutdownCtx))
}

func registerMockAdapters(engine *genflow.Engine) error {
	vendors := []string{
		dispatch.VendorGemini,
		dispatch.VendorGPT,
		dispatch.VendorFlux,
		dispatch.VendorVeo,
		dispatch.VendorKling,
		dispatch.VendorVidu,
		dispatch.VendorClaude,
	}
	for _, vendor := range vendors {
		a := dispatch.NewStaticAdapter(vendor)
		a.Async = dispatch.PollOnly(vendor)
		if err := engine.Registry().Register(vendor, a); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}
