package commands

import (
	"context"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/erraggy/oasgate"
	"github.com/erraggy/oasgate/bridge"
	"github.com/erraggy/oasgate/logging"
	"github.com/erraggy/oasgate/middleware"
	"github.com/erraggy/oasgate/registry"
)

// serveOptions holds the raw command line of the serve command.
type serveOptions struct {
	flags      ServeConfig
	configPath string
	envFile    string
}

func newServeCommand() *cobra.Command {
	opts := &serveOptions{}
	defaults := DefaultServeConfig()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a validating reverse proxy in front of an upstream API",
		Long: `Serve proxies every request to the upstream after validating its parameters
against the API declaration. Invalid requests are answered with 400 and never
reach the upstream. Prometheus metrics are exposed on --metrics-path.

Configuration is read from defaults, then the --config YAML file, then
OASGATE_* environment variables (optionally loaded from --env-file), then
explicit flags.`,
		Example: `  oasgate serve --spec api.yaml --upstream http://127.0.0.1:8080
  oasgate serve --config oasgate.yaml --validate-responses --log-level debug`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.resolve(cmd.Flags().Changed, os.LookupEnv)
			if err != nil {
				return err
			}

			zl, err := logging.NewZap(cfg.LogLevel, cfg.Dev)
			if err != nil {
				return err
			}
			logger := logging.NewZapAdapter(zl)
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return Serve(ctx, cfg, logger)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.flags.Spec, "spec", "", "path to the OpenAPI declaration (YAML or JSON)")
	f.StringVar(&opts.flags.Upstream, "upstream", "", "base URL of the upstream API")
	f.StringVar(&opts.flags.Listen, "listen", defaults.Listen, "address to listen on")
	f.StringVar(&opts.flags.BasePath, "base-path", "", "mount the API here instead of its declared base path")
	f.BoolVar(&opts.flags.ValidateResponses, "validate-responses", false, "validate upstream responses")
	f.BoolVar(&opts.flags.StrictValidation, "strict-validation", false, "reject undeclared query parameters")
	f.BoolVar(&opts.flags.StrictRouting, "strict-routing", false, "answer undeclared paths with 404 instead of proxying them")
	f.DurationVar(&opts.flags.ReceiveTimeout, "receive-timeout", 0, "maximum wait for each part of an upstream response (0 = none)")
	f.Int64Var(&opts.flags.MaxBodySize, "max-body-size", defaults.MaxBodySize, "maximum upstream response body in bytes (0 = unlimited)")
	f.StringVar(&opts.flags.MetricsPath, "metrics-path", defaults.MetricsPath, "path of the Prometheus endpoint (empty disables it)")
	f.DurationVar(&opts.flags.ShutdownTimeout, "shutdown-timeout", defaults.ShutdownTimeout, "grace period for in-flight requests on shutdown")
	f.StringVar(&opts.flags.LogLevel, "log-level", defaults.LogLevel, "log level: debug, info, warn, error")
	f.BoolVar(&opts.flags.Dev, "dev", false, "human readable development logging")
	f.StringVarP(&opts.configPath, "config", "c", "", "YAML config file (default $OASGATE_CONFIG)")
	f.StringVar(&opts.envFile, "env-file", ".env", "file with OASGATE_* variables, ignored when missing unless set explicitly")
	return cmd
}

// resolve builds the effective configuration. changed reports whether a flag
// was set on the command line.
func (o *serveOptions) resolve(changed func(string) bool, lookup func(string) (string, bool)) (*ServeConfig, error) {
	cfg := DefaultServeConfig()

	if o.envFile != "" {
		if err := LoadEnvFile(o.envFile, changed("env-file")); err != nil {
			return nil, err
		}
	}

	configPath := o.configPath
	if configPath == "" {
		configPath, _ = lookup(EnvPrefix + "CONFIG")
	}
	if configPath != "" {
		if err := LoadConfigFile(cfg, configPath); err != nil {
			return nil, err
		}
	}
	if err := ApplyEnv(cfg, lookup); err != nil {
		return nil, err
	}

	f := &o.flags
	overrides := map[string]func(){
		"spec":               func() { cfg.Spec = f.Spec },
		"upstream":           func() { cfg.Upstream = f.Upstream },
		"listen":             func() { cfg.Listen = f.Listen },
		"base-path":          func() { cfg.BasePath = f.BasePath },
		"validate-responses": func() { cfg.ValidateResponses = f.ValidateResponses },
		"strict-validation":  func() { cfg.StrictValidation = f.StrictValidation },
		"strict-routing":     func() { cfg.StrictRouting = f.StrictRouting },
		"receive-timeout":    func() { cfg.ReceiveTimeout = f.ReceiveTimeout },
		"max-body-size":      func() { cfg.MaxBodySize = f.MaxBodySize },
		"metrics-path":       func() { cfg.MetricsPath = f.MetricsPath },
		"shutdown-timeout":   func() { cfg.ShutdownTimeout = f.ShutdownTimeout },
		"log-level":          func() { cfg.LogLevel = f.LogLevel },
		"dev":                func() { cfg.Dev = f.Dev },
	}
	for name, apply := range overrides {
		if changed(name) {
			apply()
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewHandler builds the proxy handler for cfg: the validating middleware in
// front of a reverse proxy to the upstream, plus the metrics endpoint.
func NewHandler(cfg *ServeConfig, logger logging.Logger) (http.Handler, *middleware.API, error) {
	decl, err := loadDeclaration(cfg.Spec)
	if err != nil {
		return nil, nil, err
	}
	upstream, err := url.Parse(cfg.Upstream)
	if err != nil {
		return nil, nil, errors.Wrap(err, "parsing upstream URL")
	}

	proxy := httputil.NewSingleHostReverseProxy(upstream)
	direct := proxy.Director
	proxy.Director = func(r *http.Request) {
		direct(r)
		if r.Header.Get("User-Agent") == "" {
			r.Header.Set("User-Agent", oasgate.UserAgent())
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	mw, err := middleware.New(proxy,
		middleware.WithLogger(logger),
		middleware.WithMetrics(reg),
		middleware.WithStrictRouting(cfg.StrictRouting),
		middleware.WithBridgeOptions(
			bridge.WithMaxBodySize(cfg.MaxBodySize),
			bridge.WithReceiveTimeout(cfg.ReceiveTimeout),
		),
		middleware.WithRegistryOptions(registry.WithStrictValidation(cfg.StrictValidation)),
	)
	if err != nil {
		return nil, nil, err
	}

	apiOpts := []middleware.APIOption{middleware.WithResponseValidation(cfg.ValidateResponses)}
	if cfg.BasePath != "" {
		apiOpts = append(apiOpts, middleware.WithBasePath(cfg.BasePath))
	}
	api, err := mw.AddAPI(decl, apiOpts...)
	if err != nil {
		return nil, nil, err
	}

	mux := http.NewServeMux()
	if cfg.MetricsPath != "" {
		mux.Handle(cfg.MetricsPath, promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	}
	mux.Handle("/", mw)
	return mux, api, nil
}

// Serve runs the proxy on cfg.Listen until ctx is done, then shuts down
// gracefully within cfg.ShutdownTimeout.
func Serve(ctx context.Context, cfg *ServeConfig, logger logging.Logger) error {
	handler, api, err := NewHandler(cfg, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("oasgate listening",
			"listen", cfg.Listen,
			"upstream", cfg.Upstream,
			"base_path", api.BasePath(),
			"operations", api.Registry().Len(),
			"version", oasgate.Version(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "serving")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down", "grace", cfg.ShutdownTimeout.String())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
