package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/matzehuels/flametower/pkg/config"
	"github.com/matzehuels/flametower/pkg/observability"
	"github.com/matzehuels/flametower/pkg/server"
	"github.com/matzehuels/flametower/pkg/storage"
)

// shutdownTimeout bounds how long in-flight requests may take after a signal.
const shutdownTimeout = 10 * time.Second

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the layout and render API over HTTP",
		Long: `Serve the layout and render API over HTTP.

Documents are posted as JSON, YAML or TOML and come back as layouts or
rendered images. Graphs can be stored and rendered later by id. Storage is
chosen by the [server] config section: memory (default), file or mongo.

  flametower serve --addr :9090
  curl -X POST --data-binary @trace.json localhost:9090/v1/render?format=svg`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.Config.Server
			if addr != "" {
				cfg.Addr = addr
			}
			return c.runServe(cmd.Context(), cfg, noCache)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, cfg config.ServerConfig, noCache bool) error {
	store, err := c.newStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			c.Logger.Warn("close storage", "error", err)
		}
	}()

	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	opts := []server.Option{
		server.WithStore(store),
		server.WithLogger(c.Logger),
		server.WithRenderDefaults(c.Config.Render),
	}
	if cfg.Metrics {
		hooks, err := observability.NewPrometheusHooks(prometheus.DefaultRegisterer)
		if err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
		hooks.Install()
		defer observability.Reset()
		opts = append(opts, server.WithMetrics(prometheus.DefaultGatherer))
	}

	srv := server.New(cfg.Addr, runner, opts...)

	errc := make(chan error, 1)
	go func() { errc <- srv.Run() }()
	printSuccess("Listening on %s", cfg.Addr)
	printDetail("Storage: %s", cfg.Storage)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	c.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// newStore opens the graph store named by cfg.Storage.
func (c *CLI) newStore(ctx context.Context, cfg config.ServerConfig) (storage.Store, error) {
	switch cfg.Storage {
	case config.StorageFile:
		s, err := storage.NewFileStore(cfg.StorageDir)
		if err != nil {
			return nil, err
		}
		c.Logger.Debug("using file storage", "dir", s.Path())
		return s, nil
	case config.StorageMongo:
		s, err := storage.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("connect mongo storage: %w", err)
		}
		c.Logger.Debug("using mongo storage", "database", cfg.MongoDatabase)
		return s, nil
	default:
		return storage.NewMemoryStore(), nil
	}
}
