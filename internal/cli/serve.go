package cli

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/matzehuels/codecity/pkg/observability/prom"
	"github.com/matzehuels/codecity/pkg/server"
)

// serveCommand creates the serve command for the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr      string
		noMetrics bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analysis and layout API over HTTP",
		Long: `Serve the analysis, layout and picking API over HTTP.

Repositories analyzed through the API are saved to the configured store
and shared with the CLI. Prometheus metrics are exposed at /metrics unless
disabled with --no-metrics or server.metrics = false.`,
		Example: `  codecity serve
  codecity serve --addr 127.0.0.1:9000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), addr, noMetrics)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().BoolVar(&noMetrics, "no-metrics", false, "do not expose /metrics")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr string, noMetrics bool) error {
	cfg := c.config()
	if addr != "" {
		cfg.Server.Addr = addr
	}

	runner, err := c.newRunner(ctx, false)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	st, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	opts := []server.Option{
		server.WithLogger(c.Logger),
		server.WithLayout(cfg.Layout.View()),
	}
	if cfg.Server.Metrics && !noMetrics {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m, err := prom.New(reg)
		if err != nil {
			return err
		}
		m.Install()
		opts = append(opts, server.WithMetrics(prom.Handler(reg)))
	}

	printInfo("Serving on %s", StyleLink.Render("http://"+displayAddr(cfg.Server.Addr)))
	printDetail("Store: %s · cache: %s", cfg.Store.Backend, cfg.Cache.Backend)
	return server.New(runner, st, opts...).ListenAndServe(ctx, cfg.Server)
}

func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
