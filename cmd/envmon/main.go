// Command envmon is the command-line front end of the environmental
// monitoring back office: clients, projects, field sampling, the reference
// catalog, reports and generated Word documents.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"envmon/internal/blob"
	"envmon/internal/config"
	"envmon/internal/core"
	"envmon/internal/docgen"
	"envmon/internal/kv"
	"envmon/internal/logx"
	"envmon/internal/seed"
	"envmon/internal/workflow"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one command line and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{}
	defer a.close()
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, workflow.ErrorNotice(err, err.Error()).String())
		return 1
	}
	return 0
}

// app holds the resources shared by every subcommand. They are opened once
// before the command runs.
type app struct {
	configPath string

	cfg     config.Config
	logger  *logx.Logger
	store   *kv.Store
	svc     *core.Service
	blobs   blob.Store
	docs    *docgen.Generator
	seeder  *seed.Seeder
	seeded  seed.Report
	metrics *core.PrometheusMetricsRecorder
	server  *http.Server
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "envmon",
		Short:         "Environmental monitoring back office",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML config file (default $ENVMON_CONFIG or envmon.yaml)")
	root.AddCommand(
		a.seedCmd(),
		a.validateCmd(),
		a.clientsCmd(),
		a.projectsCmd(),
		a.samplingCmd(),
		a.catalogCmd(),
		a.reportsCmd(),
		a.docsCmd(),
	)
	return root
}

func (a *app) open(ctx context.Context) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	if a.logger, err = logx.New(cfg.Log.Level, cfg.Log.Format); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	store, err := core.OpenPersistentStore(ctx, cfg.KV(), core.NewDefaultRulesEngine(), kv.WithLogger(a.logger.Named("kv")))
	if err != nil {
		return err
	}
	a.store = store.KV()

	opts := []core.Option{
		core.WithLogger(a.logger.Named("core")),
		core.WithTracer(core.NewOTelTracer("envmon")),
	}
	if cfg.Metrics.Addr != "" {
		reg := prometheus.NewRegistry()
		if a.metrics, err = core.NewPrometheusMetricsRecorder(reg); err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
		opts = append(opts, core.WithMetricsRecorder(a.metrics))
		a.serveMetrics(cfg.Metrics.Addr, reg)
	}
	a.svc = core.NewService(store, opts...)

	a.seeder = seed.New(a.store, a.svc, seed.WithLogger(a.logger.Named("seed")))
	if a.seeded, err = a.seeder.InitializeData(ctx); err != nil {
		if !errors.Is(err, seed.ErrLocked) {
			return fmt.Errorf("initialize data: %w", err)
		}
		a.logger.Warn("seeding skipped", "error", err)
	}

	if a.blobs, err = blob.Open(ctx, cfg.Blob); err != nil {
		return fmt.Errorf("open blob store: %w", err)
	}
	a.docs = docgen.NewGenerator(a.svc, a.blobs, docgen.WithLogger(a.logger.Named("docgen")))
	a.logger.Debug("envmon ready", "storage", cfg.Storage.Driver, "blob", string(cfg.Blob.Driver))
	return nil
}

func (a *app) serveMetrics(addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	a.server = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server stopped", "error", err)
		}
	}()
	a.logger.Info("serving metrics", "addr", addr)
}

func (a *app) close() {
	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = a.server.Shutdown(ctx)
		cancel()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil && a.logger != nil {
			a.logger.Warn("close storage", "error", err)
		}
	}
	if a.logger != nil {
		a.logger.Sync()
	}
}

// printJSON writes v indented to the command's output.
func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// notify prints a notice to the command's error stream.
func notify(cmd *cobra.Command, n workflow.Notice) {
	if n.Message != "" {
		fmt.Fprintln(cmd.ErrOrStderr(), n.String())
	}
}

// writeFile stores data at path, or prints it when path is "-".
func writeFile(cmd *cobra.Command, path string, data []byte) error {
	if path == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "wrote", path)
	return nil
}
