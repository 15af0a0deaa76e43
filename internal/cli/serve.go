package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flowmend/internal/config"
	"github.com/matzehuels/flowmend/internal/server"
	"github.com/matzehuels/flowmend/pkg/pipeline"
)

func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		backend string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API for repairing, validating, and storing workflows.

The store backend, cache, and timeouts come from flowmend.toml; --addr and
--store override the file. Stop the server with Ctrl-C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if backend != "" {
				cfg.Store.Backend = backend
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			if noCache {
				off := false
				cfg.Cache.Enabled = &off
			}
			return c.runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().StringVar(&backend, "store", "", "store backend: memory, file, redis, mongo")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the repair cache")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, cfg config.Config) error {
	cat, err := c.loadCatalog(cfg)
	if err != nil {
		return err
	}

	st, err := config.OpenStore(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	cch, err := config.OpenCache(ctx, cfg.Cache)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	runner := pipeline.NewRunner(cch, c.Logger)
	defer runner.Close()

	c.Logger.Info("starting server",
		"store", cfg.Store.Backend,
		"cache", cfg.Cache.On(),
		"catalog_types", len(cat.Types()))

	h := server.New(server.Options{
		Runner:       runner,
		Store:        st,
		Catalog:      cat,
		Layout:       cfg.Layout,
		Logger:       c.Logger,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	})
	return server.ListenAndServe(ctx, cfg.Server.Addr, h,
		cfg.Server.ReadTimeout.Duration, cfg.Server.WriteTimeout.Duration, c.Logger)
}
