// exhandler - fault reporting companion tool
//
// Inspects and maintains the error log written by the reporting pipeline,
// and exercises the pipeline end to end with the demo command.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/NexTeck/ExceptionHandler/pkg/config"
	"github.com/NexTeck/ExceptionHandler/pkg/configstore"
	errsys "github.com/NexTeck/ExceptionHandler/pkg/errors"
	"github.com/NexTeck/ExceptionHandler/pkg/errorlog"
	"github.com/NexTeck/ExceptionHandler/pkg/logger"
	"github.com/NexTeck/ExceptionHandler/pkg/notify"
	"github.com/NexTeck/ExceptionHandler/pkg/reporting"
)

var (
	version   = "0.1.0"
	buildTime = "unknown"
)

type cliConfig struct {
	command      string
	configPath   string
	configOutput string
	logLevel     string
	metricsAddr  string
	verbose      bool
	version      bool
	help         bool
	// show flags
	last        int
	minSeverity string
	// demo flags
	count     int
	severity  string
	withPanic bool
	restart   bool
}

func main() {
	cliCfg := parseFlags()

	if cliCfg.version {
		printVersion()
		return
	}

	if cliCfg.help || cliCfg.command == "" || cliCfg.command == "help" {
		printHelp()
		return
	}

	// Commands that need no configuration
	switch cliCfg.command {
	case "init":
		runInitCommand(cliCfg)
		return
	case "codes":
		printCodes(os.Stdout)
		return
	}

	cfg, err := config.Load(cliCfg.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if cliCfg.logLevel != "" {
		cfg.Logging.Level = cliCfg.logLevel
	}
	if cliCfg.metricsAddr != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Addr = cliCfg.metricsAddr
	}
	setupLogging(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cliCfg.command {
	case "validate":
		fmt.Println("Configuration is valid")
	case "show":
		err = runShowCommand(ctx, cfg, cliCfg, os.Stdout)
	case "clear":
		err = runClearCommand(ctx, cfg, os.Stdout)
	case "demo":
		err = runDemoCommand(ctx, cfg, cliCfg, os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cliCfg.command)
		printHelp()
		os.Exit(2)
	}

	if err != nil {
		logger.Global().ErrorEvent(ctx, "command failed", err, slog.String("command", cliCfg.command))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() cliConfig {
	cfg := cliConfig{}

	flag.StringVar(&cfg.configPath, "config", "", "Path to configuration file")
	flag.StringVar(&cfg.configOutput, "config-output", "", "Output path for 'init' command")
	flag.StringVar(&cfg.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flag.StringVar(&cfg.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while running")
	flag.BoolVar(&cfg.verbose, "v", false, "Verbose logging (sets log level to debug)")
	flag.BoolVar(&cfg.version, "version", false, "Print version and exit")
	flag.BoolVar(&cfg.help, "help", false, "Show help message")

	// show command flags
	flag.IntVar(&cfg.last, "n", 20, "Number of most recent reports to show (0 for all)")
	flag.StringVar(&cfg.minSeverity, "min", "simple", "Minimum severity to show: simple, severe, fatal")
	// demo command flags
	flag.IntVar(&cfg.count, "count", 10, "Number of concurrent reports (demo command)")
	flag.StringVar(&cfg.severity, "severity", "severe", "Severity of demo reports")
	flag.BoolVar(&cfg.withPanic, "panic", false, "Also recover a panic (demo command)")
	flag.BoolVar(&cfg.restart, "restart", false, "Really restart on a fatal report (demo command)")

	flag.Parse()

	// Check for command-line commands (first argument after flags)
	args := flag.Args()
	if len(args) > 0 {
		cfg.command = args[0]
	}

	// Set verbose flag if -v is used
	if cfg.verbose {
		cfg.logLevel = "debug"
	}

	return cfg
}

func setupLogging(cfg config.LoggingConfig) {
	// Initialize the global structured logger
	if err := logger.Initialize(cfg.Level, cfg.Format, cfg.Output); err != nil {
		// Fallback to standard logging if initialization fails
		log.Printf("Warning: Failed to initialize structured logger: %v", err)
		log.Printf("Falling back to standard logging")
	}
}

func printVersion() {
	fmt.Printf("exhandler v%s\n", version)
	fmt.Printf("Build time: %s\n", buildTime)
}

func printHelp() {
	helpText := `USAGE:
    exhandler [flags] <command>

COMMANDS:
    init        Write an example configuration file
    validate    Validate configuration
    show        Print the persisted error log
    clear       Reset the error log to empty
    demo        Report failures concurrently and persist them
    codes       List registered failure codes
    help        Show this help

FLAGS:
    -config string         Path to configuration file
    -config-output string  Output path for 'init'
    -log-level string      Log level: debug, info, warn, error
    -metrics-addr string   Serve Prometheus metrics on this address
    -v                     Verbose logging
    -version               Print version and exit
    -n int                 show: number of recent reports (default 20)
    -min string            show: minimum severity (default simple)
    -count int             demo: number of reports (default 10)
    -severity string       demo: severity of reports (default severe)
    -panic                 demo: also recover a panic
    -restart               demo: really restart on a fatal report

EXAMPLES:
    exhandler init
    exhandler -n 5 -min fatal show
    exhandler -count 100 -metrics-addr :9464 demo
`
	fmt.Print(helpText)
}

func runInitCommand(cliCfg cliConfig) {
	path := cliCfg.configOutput
	if path == "" {
		path = config.ConfigPaths()[0]
	}

	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(os.Stderr, "Configuration already exists: %s\n", path)
		os.Exit(1)
	}

	if err := config.GenerateExampleConfig(path); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write configuration: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Configuration written to %s\n", path)
}

func printCodes(w io.Writer) {
	fmt.Fprintf(w, "%-9s %-10s %s\n", "CODE", "CATEGORY", "MESSAGE")
	for _, def := range errsys.AllCodes() {
		fmt.Fprintf(w, "%-9s %-10s %s\n", def.Code, def.Category, def.Message)
	}
}

func openErrorLog(cfg *config.Config) (*configstore.Store[errorlog.Log], error) {
	return cfg.OpenErrorLog(configstore.WithLogger(logger.Global().WithComponent("errorlog")))
}

func runShowCommand(ctx context.Context, cfg *config.Config, cliCfg cliConfig, w io.Writer) error {
	minSev, err := errsys.ParseSeverity(cliCfg.minSeverity)
	if err != nil {
		return err
	}

	store, err := openErrorLog(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	l, err := store.Load(ctx)
	if errors.Is(err, configstore.ErrNotFound) {
		fmt.Fprintln(w, "No reports recorded")
		return nil
	}
	if err != nil {
		return err
	}

	filtered := &errorlog.Log{Records: l.Filter(minSev)}
	records := filtered.Last(cliCfg.last)
	if len(records) == 0 {
		fmt.Fprintln(w, "No reports recorded")
		return nil
	}

	for _, r := range records {
		fmt.Fprintf(w, "%s  %-6s  %s\n",
			r.CapturedAt.Local().Format(time.DateTime),
			r.Severity,
			errsys.SupportCode(&r.Failure),
		)
		for _, line := range strings.Split(r.Failure.FormatSummary(), "\n") {
			fmt.Fprintf(w, "    %s\n", line)
		}
	}

	counts := l.Counts()
	fmt.Fprintf(w, "\n%d of %d reports shown (simple %d, severe %d, fatal %d)\n",
		len(records), l.Len(),
		counts[errsys.SeveritySimple], counts[errsys.SeveritySevere], counts[errsys.SeverityFatal],
	)
	return nil
}

func runClearCommand(ctx context.Context, cfg *config.Config, w io.Writer) error {
	store, err := openErrorLog(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Save(ctx, errorlog.New()); err != nil {
		return err
	}
	fmt.Fprintln(w, "Error log cleared")
	return nil
}

func buildNotifier(cfg *config.Config, programName string) reporting.Notifier {
	switch cfg.Reporting.Notifier {
	case "log":
		return notify.NewLog(nil)
	case "both":
		return notify.Multi{notify.NewConsole(notify.WithTitle(programName)), notify.NewLog(nil)}
	case "none":
		return notify.Discard{}
	default:
		return notify.NewConsole(notify.WithTitle(programName))
	}
}

// serveMetrics starts the metrics endpoint and returns a function that stops it
func serveMetrics(addr string, reg *prometheus.Registry) func(context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", addr)

	return srv.Shutdown
}

func runDemoCommand(ctx context.Context, cfg *config.Config, cliCfg cliConfig, w io.Writer) error {
	sev, err := errsys.ParseSeverity(cliCfg.severity)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	metrics, err := reporting.NewMetrics(reg)
	if err != nil {
		return err
	}
	if cfg.Metrics.Enabled {
		stopMetrics := serveMetrics(cfg.Metrics.Addr, reg)
		defer stopMetrics(context.Background())
	}

	store, err := openErrorLog(cfg)
	if err != nil {
		return err
	}

	rc := cfg.ToReportingConfig()
	opts := []reporting.Option{
		reporting.WithStore(store),
		reporting.WithNotifier(buildNotifier(cfg, rc.ProgramName)),
		reporting.WithMetrics(metrics),
		reporting.WithLogger(logger.Global().WithComponent("reporting")),
	}
	if !cliCfg.restart {
		opts = append(opts, reporting.WithRestarter(reporting.RestartFunc(func() error {
			fmt.Fprintln(w, "Restart requested (pass -restart to relaunch)")
			return nil
		})))
	}

	svc := reporting.New(rc, opts...)
	if err := svc.Start(ctx); err != nil {
		return err
	}

	settings := demoSettingsStore(configstore.NewFileBackend(demoSettingsDir(cfg), configstore.WithExtension(".toml")), svc)
	if run, err := recordDemoRun(ctx, settings, time.Now()); err == nil {
		fmt.Fprintf(w, "Demo run %d\n", run.Runs)
	} else {
		logger.Warn("demo settings not updated", "error", err)
	}

	demoCause := fmt.Errorf("open ledger: %w", os.ErrPermission)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < cliCfg.count; i++ {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			svc.Report(fmt.Errorf("demo task %d: %w", i, demoCause), "", sev)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if cliCfg.withPanic {
		func() {
			defer svc.Recover("A demo task crashed.", errsys.SeverityFatal)
			var m map[string]int
			m["boom"]++
		}()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := svc.Shutdown(shutdownCtx); err != nil {
		return err
	}

	st := svc.Stats()
	fmt.Fprintf(w, "Reported %d, persisted %d, dropped %d in %d cycles (%d worker runs), worst severity %s\n",
		st.Reports, st.Persisted, st.Dropped, st.Cycles, st.WorkerRuns, st.Severity)
	return nil
}

// demoSettings is the demo's own configuration entry
type demoSettings struct {
	Runs    int       `toml:"runs"`
	LastRun time.Time `toml:"last_run"`
}

// demoSettingsDir keeps the settings next to the error log
func demoSettingsDir(cfg *config.Config) string {
	if cfg.Store.Backend == configstore.BackendFile {
		return cfg.StorePath()
	}
	return filepath.Dir(cfg.StorePath())
}

// demoSettingsStore reports failed default saves through svc
func demoSettingsStore(backend configstore.Backend, svc *reporting.Service) *configstore.Store[demoSettings] {
	return configstore.New[demoSettings](backend, configstore.TOMLCodec{}, "DemoSettings",
		configstore.WithLogger(logger.Global().WithComponent("demo")),
		configstore.WithOnSaveFailure(svc.StoreFailureReporter()),
	)
}

// recordDemoRun counts one more demo run. A failed save of the default
// entry has already been reported by the store's hook.
func recordDemoRun(ctx context.Context, store *configstore.Store[demoSettings], now time.Time) (*demoSettings, error) {
	ds, err := store.LoadOrCreate(ctx, func() *demoSettings { return &demoSettings{} })
	if err != nil {
		return nil, err
	}
	ds.Runs++
	ds.LastRun = now.UTC()
	if err := store.Save(ctx, ds); err != nil {
		return nil, err
	}
	return ds, nil
}
