package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/davecgh/go-spew/spew"
	_ "github.com/mattn/go-sqlite3" // CGo-based SQLite driver
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"headway.opentransitsoftware.org/internal/app"
	"headway.opentransitsoftware.org/internal/appconf"
	"headway.opentransitsoftware.org/internal/logging"
)

func main() {
	var cfg appconf.Config
	var sources app.Sources
	var env string
	var dump bool

	flag.StringVar(&sources.GTFSPath, "gtfs", "", "path or URL of the GTFS static zip")
	flag.StringVar(&sources.GTFSAuthHeaderKey, "gtfs-auth-header", "", "header name for authenticated feed downloads (optional)")
	flag.StringVar(&sources.GTFSAuthHeaderValue, "gtfs-auth-value", "", "header value for authenticated feed downloads (optional)")
	flag.StringVar(&sources.TripAttrsPath, "trips-ft", "", "path of the supplemental trips table")
	flag.StringVar(&sources.VehiclesPath, "vehicles-ft", "", "path of the vehicle types table")
	flag.StringVar(&sources.StopTimeAttrsPath, "stop-times-ft", "", "path of the supplemental stop times table (optional)")
	flag.StringVar(&sources.ServiceDate, "service-date", "", "service date as YYYYMMDD (default: today)")
	flag.StringVar(&sources.DBPath, "db", "", "SQLite path to persist the assembled schedule (optional)")
	flag.StringVar(&sources.ReportPath, "report", "", "path to write the load report (optional)")
	flag.StringVar(&cfg.MetricsAddr, "metrics-addr", "", "address to serve Prometheus metrics on (optional)")
	flag.StringVar(&env, "env", "development", "environment (development|test|production)")
	flag.BoolVar(&cfg.Verbose, "verbose", false, "enable debug logging")
	flag.BoolVar(&dump, "dump", false, "dump the assembled schedule to stdout")
	flag.Parse()

	cfg.Env = appconf.EnvFlagToEnvironment(env)

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	application, err := BuildApplication(cfg, sources)
	if err != nil {
		logging.LogError(logger, "invalid configuration", err)
		flag.Usage()
		os.Exit(2)
	}
	defer application.Metrics.Shutdown()

	if cfg.MetricsAddr != "" {
		startMetricsServer(application, cfg.MetricsAddr)
	}

	sched, err := application.Run(context.Background())
	if err != nil {
		logging.LogError(logger, "assembly run failed", err)
		os.Exit(1)
	}

	if dump {
		spew.Fdump(os.Stdout, sched.Trips)
	}
}

// startMetricsServer exposes the custom registry on /metrics. The endpoint
// lives for the duration of the run; there is nothing to serve afterwards.
func startMetricsServer(application *app.Application, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(
		application.Metrics.Registry,
		promhttp.HandlerOpts{},
	))

	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.LogError(application.Logger, "metrics server failed", err)
		}
	}()
}
