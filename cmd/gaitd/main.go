// Command gaitd serves the gait analysis API: clips are uploaded, queued,
// analysed by a worker pool and polled for results.
//
// Usage:
//
//	gaitd [flags]
//	gaitd migrate <up|down|status|force N>
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
	"sync"
	"syscall"
	"time"

	"tailscale.com/tsweb"

	"github.com/banshee-data/gait.report/internal/api"
	"github.com/banshee-data/gait.report/internal/config"
	"github.com/banshee-data/gait.report/internal/db"
	"github.com/banshee-data/gait.report/internal/gait/pipeline"
	"github.com/banshee-data/gait.report/internal/gait/storage/sqlite"
	"github.com/banshee-data/gait.report/internal/jobs"
	"github.com/banshee-data/gait.report/internal/monitoring"
	"github.com/banshee-data/gait.report/internal/version"
)

type options struct {
	listen      string
	grpcListen  string
	dbPath      string
	uploads     string
	configPath  string
	redisURL    string
	workers     int
	dev         bool
	logLevel    string
	noColor     bool
	showVersion bool
}

func parseFlags(args []string, stderr io.Writer) (*options, []string, error) {
	fs := flag.NewFlagSet("gaitd", flag.ContinueOnError)
	fs.SetOutput(stderr)
	o := &options{}
	fs.StringVar(&o.listen, "listen", ":8080", "HTTP listen address")
	fs.StringVar(&o.grpcListen, "grpc-listen", "", "gRPC health listen address (empty disables)")
	fs.StringVar(&o.dbPath, "db", "gait.db", "SQLite database path")
	fs.StringVar(&o.uploads, "uploads", "uploads", "Directory for uploaded clips")
	fs.StringVar(&o.configPath, "config", "", "Tuning config JSON (default "+config.DefaultConfigPath+" if present)")
	fs.StringVar(&o.redisURL, "redis-url", os.Getenv("REDIS_URL"), "Redis URL for a shared job queue (empty uses an in-process queue)")
	fs.IntVar(&o.workers, "workers", 0, "Worker goroutines (0 uses the config value)")
	fs.BoolVar(&o.dev, "dev", false, "Mount debug pages (tailsql, backup, signal charts) and log at debug level")
	fs.StringVar(&o.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	fs.BoolVar(&o.noColor, "no-color", false, "Disable coloured log output")
	fs.BoolVar(&o.showVersion, "version", false, "Print version and exit")
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	if o.listen == "" {
		return nil, nil, errors.New("listen address is required")
	}
	if o.workers < 0 {
		return nil, nil, fmt.Errorf("invalid -workers %d", o.workers)
	}
	return o, fs.Args(), nil
}

func main() {
	o, rest, err := parseFlags(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatal(err)
	}
	if o.showVersion {
		fmt.Println("gaitd", version.String())
		return
	}

	level, err := monitoring.ParseLevel(o.logLevel)
	if err != nil {
		log.Fatal(err)
	}
	if o.dev && level > slog.LevelDebug {
		level = slog.LevelDebug
	}
	monitoring.UseSlog(monitoring.NewConsoleLogger(os.Stderr, level, !o.noColor))

	if len(rest) > 0 && rest[0] == "migrate" {
		if err := db.RunMigrateCommand(rest[1:], o.dbPath, os.Stdout); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		return
	}
	if len(rest) > 0 {
		log.Fatalf("unknown command %q", rest[0])
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, o); err != nil {
		log.Fatal(err)
	}
	log.Printf("Graceful shutdown complete")
}

func run(parent context.Context, o *options) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	tuning, err := config.LoadOrDefault(o.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	analyzer, err := pipeline.NewFromTuning(tuning, pipeline.OpenCVBackend(), "")
	if err != nil {
		return err
	}

	database, err := db.NewDB(o.dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()
	store := sqlite.NewJobStore(database.DB)

	queue, shared, err := openQueue(ctx, o.redisURL)
	if err != nil {
		return err
	}
	defer queue.Close()

	svc, err := jobs.NewService(store, queue, o.uploads, jobs.WithMaxUploadBytes(tuning.GetMaxUploadBytes()))
	if err != nil {
		return err
	}
	// A shared queue still holds what other processes enqueued; re-queueing
	// from the table would double it.
	if !shared {
		if _, err := svc.Recover(ctx); err != nil {
			return fmt.Errorf("recover jobs: %w", err)
		}
	}

	workers := tuning.GetWorkers()
	if o.workers > 0 {
		workers = o.workers
	}
	notifier := jobs.NewNotifier()
	worker := jobs.NewWorker(store, queue, analyzer, jobs.WorkerConfig{
		Workers:  workers,
		Timeout:  tuning.GetJobTimeout(),
		Notifier: notifier,
	})
	server := api.NewServer(svc, notifier)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()

	janitor := jobs.NewJanitor(store, tuning.GetJobRetention(), jobs.DefaultPurgeInterval, nil)
	wg.Add(1)
	go func() {
		defer wg.Done()
		janitor.Run(ctx)
	}()

	if o.grpcListen != "" {
		probe := api.NewHealthProbe(svc.Health, 10*time.Second, nil)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := probe.Serve(ctx, o.grpcListen); err != nil {
				log.Printf("gRPC health server error: %v", err)
			}
		}()
	}

	mux := http.NewServeMux()
	mux.Handle("/api/", server.Handler())
	if o.dev {
		debug := tsweb.Debugger(mux)
		if err := database.AttachAdminRoutes(debug); err != nil {
			return err
		}
		server.AttachDebugRoutes(debug)
	}

	httpServer := &http.Server{
		Addr:              o.listen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("gaitd %s listening on %s (%d workers)", version.Version, o.listen, workers)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}
	log.Println("shutting down HTTP server...")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	cancel()
	wg.Wait()
	return serveErr
}

func openQueue(ctx context.Context, redisURL string) (jobs.Queue, bool, error) {
	if redisURL == "" {
		return jobs.NewMemoryQueue(), false, nil
	}
	q, err := jobs.NewRedisQueue(ctx, redisURL, jobs.DefaultRedisQueueKey)
	if err != nil {
		return nil, false, err
	}
	log.Printf("using Redis job queue %s", jobs.DefaultRedisQueueKey)
	return q, true, nil
}
