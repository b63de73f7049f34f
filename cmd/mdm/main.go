package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sigman78/mdm/internal/logger"
	"github.com/sigman78/mdm/internal/mdm"
	"github.com/sigman78/mdm/internal/server"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: mdm [file ...] [options]

Marks <img> elements whose media no longer exists with a "deleted" class.

With files, rewrites them in place (paths are relative to -directory).
Without files, reads content from stdin and writes the result to stdout.
With -serve, runs the save-hook HTTP service instead.

Options:
  -registry-dsn string    PostgreSQL DSN of the media registry (env MDM_REGISTRY_DSN)
  -registry-table string  Registry table name (default: wp_posts)
  -registry-file string   JSON file mapping media ids to kinds (alternative to -registry-dsn)
  -escaped                Attributes are delimited by \" (slashed save data)
  -marker string          Class appended to images with missing media (default: deleted)
  -id-prefix string       Class prefix carrying the media id (default: wp-image-)
  -size-prefix string     Class prefix carrying the size name (default: size-)
  -threads int            Concurrent probes per content blob / files per batch (default: 1)
  -probe-timeout dur      Timeout of a single HEAD probe (default: 30s)
  -probe-rate float       Max HEAD probes per second, 0 = unlimited (default: 0)
  -idempotent             Do not append a marker or fragment that is already present
  -content-field string   Record field rewritten by the save hook (default: post_content)
  -directory string       Root directory for file arguments (default: .)
  -stop-on-error          Stop on the first file that fails (default: continue)
  -serve string           Listen address for the save-hook service, e.g. :8080
  -debug                  Enable verbose debug logging (env MDM_LOG_LEVEL)
  -version                Print version and exit
  -h / -help              Show this help and exit
`)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func main() {
	// ContinueOnError lets us intercept ErrHelp and unknown-flag errors
	// and control the exit code ourselves.
	fs := flag.NewFlagSet("mdm", flag.ContinueOnError)
	fs.Usage = usage

	def := mdm.DefaultConfig()
	var (
		registryDSN   string
		registryTable string
		registryFile  string
		escaped       bool
		marker        string
		idPrefix      string
		sizePrefix    string
		threads       int
		probeTimeout  time.Duration
		probeRate     float64
		idempotent    bool
		contentField  string
		directory     string
		stopOnError   bool
		serveAddr     string
		debug         bool
	)

	fs.StringVar(&registryDSN, "registry-dsn", getEnv("MDM_REGISTRY_DSN", ""), "PostgreSQL DSN of the media registry")
	fs.StringVar(&registryTable, "registry-table", mdm.DefaultPostgresTable().Name, "Registry table name")
	fs.StringVar(&registryFile, "registry-file", "", "JSON file mapping media ids to kinds")
	fs.BoolVar(&escaped, "escaped", false, "Attributes are delimited by escaped quotes")
	fs.StringVar(&marker, "marker", def.MarkerClass, "Class appended to images with missing media")
	fs.StringVar(&idPrefix, "id-prefix", def.IDPrefix, "Class prefix carrying the media id")
	fs.StringVar(&sizePrefix, "size-prefix", def.SizePrefix, "Class prefix carrying the size name")
	fs.IntVar(&threads, "threads", def.Threads, "Concurrent probes / files")
	fs.DurationVar(&probeTimeout, "probe-timeout", def.ProbeTimeout, "Timeout of a single HEAD probe")
	fs.Float64Var(&probeRate, "probe-rate", 0, "Max HEAD probes per second")
	fs.BoolVar(&idempotent, "idempotent", false, "Do not append a marker or fragment twice")
	fs.StringVar(&contentField, "content-field", def.ContentField, "Record field rewritten by the save hook")
	fs.StringVar(&directory, "directory", ".", "Root directory for file arguments")
	fs.BoolVar(&stopOnError, "stop-on-error", false, "Stop on the first failed file")
	fs.StringVar(&serveAddr, "serve", "", "Listen address for the save-hook service")
	fs.BoolVar(&debug, "debug", false, "Enable verbose debug logging")

	// Handle -version / -h / -help before the flag parser so we control the exit code.
	for _, a := range os.Args[1:] {
		if a == "-version" || a == "--version" {
			fmt.Printf("mdm %s (commit %s, built %s)\n", version, commit, date)
			os.Exit(0)
		}
		if a == "-h" || a == "-help" || a == "--help" {
			usage()
			os.Exit(0)
		}
	}

	// Leading file arguments are allowed before flags ("mdm a.html -threads 4");
	// the stdlib flag package stops at the first non-flag argument.
	args := os.Args[1:]
	var files []string
	for len(args) > 0 && args[0] != "" && !strings.HasPrefix(args[0], "-") {
		files = append(files, args[0])
		args = args[1:]
	}
	if err := fs.Parse(args); err != nil {
		// Unknown/malformed flag: fs already printed the error message
		os.Exit(2)
	}
	files = append(files, fs.Args()...)

	if threads <= 0 {
		fmt.Fprintln(os.Stderr, "error: -threads must be greater than 0")
		os.Exit(1)
	}
	if registryDSN != "" && registryFile != "" {
		fmt.Fprintln(os.Stderr, "error: -registry-dsn and -registry-file are mutually exclusive")
		os.Exit(1)
	}
	if serveAddr != "" && len(files) > 0 {
		fmt.Fprintln(os.Stderr, "error: file arguments cannot be combined with -serve")
		os.Exit(1)
	}

	cfg := mdm.Config{
		Quoting:      mdm.QuotePlain,
		IDPrefix:     idPrefix,
		SizePrefix:   sizePrefix,
		MarkerClass:  marker,
		ContentField: contentField,
		Threads:      threads,
		ProbeTimeout: probeTimeout,
		ProbeRate:    probeRate,
		Idempotent:   idempotent,
	}
	if escaped {
		cfg.Quoting = mdm.QuoteEscaped
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	level := logger.ParseLevel(getEnv("MDM_LOG_LEVEL", "info"))
	if debug {
		level = slog.LevelDebug
	}
	log := logger.Init(os.Stderr, level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, log, cfg, registryDSN, registryTable, registryFile, directory, stopOnError, serveAddr, files); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, log *slog.Logger, cfg mdm.Config,
	registryDSN, registryTable, registryFile, directory string,
	stopOnError bool, serveAddr string, files []string) error {

	registry, closeRegistry, err := openRegistry(ctx, registryDSN, registryTable, registryFile)
	if err != nil {
		return err
	}
	defer closeRegistry()

	prober := mdm.NewHTTPProber(cfg)
	defer prober.CloseIdleConnections()

	promReg := prometheus.NewRegistry()
	t, err := mdm.NewTransformer(cfg, registry, prober,
		mdm.WithMetrics(mdm.NewMetrics(promReg)),
		mdm.WithLogger(log),
	)
	if err != nil {
		return err
	}

	switch {
	case serveAddr != "":
		return serve(ctx, log, serveAddr, t, promReg)
	case len(files) > 0:
		store := mdm.NewLocalStorage(directory)
		res, err := t.ProcessFiles(ctx, store, files, mdm.BatchOptions{
			Workers:     cfg.Threads,
			StopOnError: stopOnError,
			Progress:    mdm.NewBatchProgress(os.Stderr, len(files)),
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "%d file(s) processed, %d changed.\n", res.Processed, res.Changed)
		if res.Failed > 0 {
			return fmt.Errorf("%d file(s) failed", res.Failed)
		}
		return nil
	default:
		in, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		_, err = io.WriteString(os.Stdout, t.Transform(ctx, string(in)))
		return err
	}
}

// openRegistry returns the configured registry and its cleanup function.
// With neither a DSN nor a file, no media is ever confirmed by the registry
// and every image is probed.
func openRegistry(ctx context.Context, dsn, table, file string) (mdm.Registry, func(), error) {
	switch {
	case dsn != "":
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("connect registry: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("ping registry: %w", err)
		}
		t := mdm.DefaultPostgresTable()
		t.Name = table
		return mdm.NewPostgresRegistry(pool, t), pool.Close, nil
	case file != "":
		f, err := os.Open(file) //nolint:gosec // G304: path is chosen by the operator
		if err != nil {
			return nil, nil, fmt.Errorf("open registry file: %w", err)
		}
		defer func() { _ = f.Close() }()
		reg, err := mdm.LoadMapRegistry(f)
		if err != nil {
			return nil, nil, err
		}
		return reg, func() {}, nil
	}
	return mdm.NewMapRegistry(), func() {}, nil
}

func serve(ctx context.Context, log *slog.Logger, addr string, t *mdm.Transformer, promReg *prometheus.Registry) error {
	h := server.NewHandler(t, log)
	srv := &http.Server{
		Addr:              addr,
		Handler:           server.NewRouter(h, promReg, promReg, log),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info("Shutting down server")
	return srv.Shutdown(shutdownCtx)
}
