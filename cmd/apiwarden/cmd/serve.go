package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/apiwarden/apiwarden/config"
	"github.com/apiwarden/apiwarden/logging"
	"github.com/apiwarden/apiwarden/metrics"
	"github.com/apiwarden/apiwarden/middleware"
	"github.com/apiwarden/apiwarden/reload"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the validating reverse proxy",
	Long: `Start the reverse proxy: traffic is forwarded to the configured
upstream, and every request/response pair is validated against the
contract. Outcomes are logged and, when metrics are enabled, exported
at /metrics. With contract.watch the contract file is reloaded on
change; a broken edit keeps the previous contract active.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(parent context.Context) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	logger := logging.New(logging.Config{
		Level:  logging.ParseLevel(cfg.Log.Level),
		Format: logging.ParseFormat(cfg.Log.Format),
	})

	holder, err := reload.NewHolder(cfg.Contract.Path, cfg.Validation.Strict)
	if err != nil {
		return err
	}
	doc := holder.Get().Document()
	logger.Info("contract loaded",
		"path", cfg.Contract.Path,
		"title", doc.Title,
		"paths", len(doc.Paths),
		"operations", doc.OperationCount(),
		"strict", cfg.Validation.Strict)

	upstream, err := url.Parse(cfg.Upstream.URL)
	if err != nil {
		return fmt.Errorf("parsing upstream url: %w", err)
	}
	proxy := httputil.NewSingleHostReverseProxy(upstream)

	var recorder metrics.Recorder = metrics.Nop{}
	registry := prometheus.NewRegistry()
	if cfg.Metrics.Enabled {
		recorder = metrics.NewPrometheus(registry)
	}

	opts := []middleware.Option{
		middleware.WithLogger(logger),
		middleware.WithRecorder(recorder),
		middleware.WithSkipPathPrefixes(cfg.Skip.PathPrefixes...),
		middleware.WithSkipMethods(cfg.Skip.Methods...),
		middleware.WithMaxBodyBytes(cfg.Validation.MaxBodyBytes),
	}
	if cfg.Validation.HardMode {
		opts = append(opts, middleware.WithHardMode(cfg.Validation.HardModeGovernance))
	}
	validated := middleware.New(proxy, holder, opts...)

	mux := http.NewServeMux()
	if cfg.Metrics.Enabled {
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}
	mux.Handle("/", validated)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Contract.Watch {
		watcher := reload.NewWatcher(holder, logger, recorder)
		go func() {
			if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("contract watcher stopped", "error", err)
			}
		}()
	}

	server := &http.Server{
		Addr:    cfg.Server.ListenAddr,
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("proxy listening",
			"addr", cfg.Server.ListenAddr,
			"upstream", cfg.Upstream.URL,
			"hard_mode", cfg.Validation.HardMode)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout, err := time.ParseDuration(cfg.Server.ShutdownTimeout)
	if err != nil {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	logger.Info("shutting down", "timeout", timeout)
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
