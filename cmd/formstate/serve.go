package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/vango-dev/formstate/internal/config"
	"github.com/vango-dev/formstate/internal/errors"
	"github.com/vango-dev/formstate/internal/logging"
	"github.com/vango-dev/formstate/pkg/form"
	"github.com/vango-dev/formstate/pkg/formhttp"
	"github.com/vango-dev/formstate/pkg/middleware"
	"github.com/vango-dev/formstate/pkg/schema"
	"github.com/vango-dev/formstate/pkg/upload"
)

func serveCmd() *cobra.Command {
	var (
		configFile string
		addr       string
		logLevel   string
		watch      bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve forms over HTTP and WebSocket",
		Long: `Serve every schema in the schema directory.

Routes:
  GET  /forms                 list form ids
  GET  /forms/{id}            schema
  POST /forms/{id}/submit     validate and submit
  POST /forms/{id}/validate   validate the fields present
  GET  /forms/{id}/live       WebSocket live session
  GET  /metrics               Prometheus metrics

Without --config, formstate.json is looked up from the working
directory upward; defaults are used when none is found.

With --watch, schema files are reloaded as they change; a file that
fails to parse keeps the previous schemas in service.

Examples:
  formstate serve
  formstate serve --watch
  formstate serve --config deploy/formstate.json --addr :9000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configFile)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, watch)
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to formstate.json")
	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default from formstate.json)")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Reload schemas when files change")

	return cmd
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	cfg, err := config.LoadFromWorkingDir()
	if err == nil {
		return cfg, nil
	}
	if stderrors.Is(err, errors.New("F121")) {
		return config.New(), nil
	}
	return nil, err
}

func runServe(ctx context.Context, cfg *config.Config, watch bool) error {
	logger, err := logging.New(logging.Options{Level: cfg.LogLevel(), File: cfg.Log.File})
	if err != nil {
		return err
	}
	defer logger.Close()
	slog.SetDefault(logger.Logger)

	schemas, err := schema.LoadDir(cfg.SchemasPath())
	if err != nil {
		return err
	}
	if schemas.Len() == 0 {
		logger.Warn("no form schemas found", "dir", cfg.SchemasPath())
	}
	if watch {
		w, err := schema.Watch(ctx, cfg.SchemasPath(), schemas, schema.WithWatchLogger(logger.Logger))
		if err != nil {
			return err
		}
		defer w.Close()
	}

	store, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}

	formOpts := append(cfg.FormOptions(), form.WithTracer(otel.Tracer("formstate/form")))
	serverCfg := formhttp.Config{
		Schemas:      schemas,
		Store:        store,
		FormOptions:  formOpts,
		MaxBodySize:  cfg.Server.MaxBodySize,
		PingInterval: cfg.PingInterval(),
		CheckOrigin:  checkOrigin(cfg.Server.AllowedOrigins),
		Logger:       logger.Logger,
		OnSubmit:     logSubmission(logger.Logger),
	}
	if !cfg.Metrics.Disabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		serverCfg.Metrics = middleware.NewMetrics(
			middleware.WithRegistry(reg),
			middleware.WithNamespace(cfg.Metrics.Namespace),
		)
		serverCfg.FormOptions = append(serverCfg.FormOptions, form.WithMetrics(form.NewMetrics(
			form.WithRegistry(reg),
			form.WithNamespace(cfg.Metrics.Namespace),
		)))
		serverCfg.Gatherer = reg
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           formhttp.New(serverCfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Addr, "forms", schemas.IDs())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// newStore returns the upload store the config selects.
func newStore(ctx context.Context, cfg *config.Config) (upload.Store, error) {
	if !cfg.UseS3() {
		return upload.NewDiskStore(cfg.UploadsPath(), cfg.Uploads.MaxSize)
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Uploads.S3.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Uploads.S3.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return upload.NewS3Store(s3.NewFromConfig(awsCfg), cfg.Uploads.S3.Bucket, cfg.Uploads.S3.Prefix, cfg.Uploads.MaxSize), nil
}

// checkOrigin accepts requests without an Origin, same-host origins, and
// the listed origins.
func checkOrigin(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || set[origin] {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && u.Host == r.Host
	}
}

// logSubmission is the submit handler of a standalone server: it records
// each valid submission in the log.
func logSubmission(logger *slog.Logger) formhttp.SubmitFunc {
	return func(ctx context.Context, formID string, values form.Values, files map[string]*upload.Stored) error {
		attrs := []any{"form", formID, "fields", len(values)}
		for name, f := range files {
			attrs = append(attrs, slog.Group("file."+name, "key", f.Key, "size", f.Size))
		}
		logger.Info("submission received", attrs...)
		return nil
	}
}
