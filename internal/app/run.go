package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"headway.opentransitsoftware.org/internal/feed"
	"headway.opentransitsoftware.org/internal/logging"
	"headway.opentransitsoftware.org/internal/schedule"
	"headway.opentransitsoftware.org/internal/tables"
	"headway.opentransitsoftware.org/internal/timeutil"
	"headway.opentransitsoftware.org/scheddb"
)

// Run executes the full pipeline: load sources, assemble, derive dwell and
// headway columns, then persist the schedule and write the load report when
// those outputs are configured. The assembled schedule is returned for
// further inspection.
func (app *Application) Run(ctx context.Context) (*schedule.Schedule, error) {
	serviceDate, err := app.resolveServiceDate()
	if err != nil {
		return nil, err
	}

	in, err := app.loadSources(ctx)
	if err != nil {
		return nil, err
	}

	sched, err := schedule.NewAssembler(serviceDate, app.Metrics).Assemble(*in)
	if err != nil {
		return nil, fmt.Errorf("assembly failed: %w", err)
	}

	if err := sched.ComputeDwellTimes(); err != nil {
		return nil, err
	}
	if err := sched.ComputeHeadways(); err != nil {
		return nil, err
	}

	events := sched.Events()
	if app.Metrics != nil {
		app.Metrics.EventsGenerated.Add(float64(len(events)))
	}
	logging.LogOperation(app.Logger, "events_generated",
		slog.Int("count", len(events)))

	if app.Sources.DBPath != "" {
		if err := app.persist(ctx, sched); err != nil {
			return nil, err
		}
	}

	if app.Sources.ReportPath != "" {
		if err := app.writeReport(sched); err != nil {
			return nil, err
		}
	}

	return sched, nil
}

func (app *Application) resolveServiceDate() (time.Time, error) {
	if app.Sources.ServiceDate == "" {
		return app.Clock.ServiceDate(), nil
	}
	date, err := timeutil.ParseServiceDate(app.Sources.ServiceDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid service date: %w", err)
	}
	return date, nil
}

func (app *Application) loadSources(ctx context.Context) (*schedule.Input, error) {
	start := time.Now()

	var records *feed.Records
	var err error
	if strings.HasPrefix(app.Sources.GTFSPath, "http://") || strings.HasPrefix(app.Sources.GTFSPath, "https://") {
		records, err = feed.Download(ctx, app.Sources.GTFSPath,
			app.Sources.GTFSAuthHeaderKey, app.Sources.GTFSAuthHeaderValue)
	} else {
		records, err = feed.FromFile(app.Sources.GTFSPath)
	}
	if err != nil {
		return nil, err
	}

	tripAttrs, err := tables.FromCSVFile(app.Sources.TripAttrsPath)
	if err != nil {
		return nil, err
	}
	vehicles, err := tables.FromCSVFile(app.Sources.VehiclesPath)
	if err != nil {
		return nil, err
	}

	// The supplemental stop-time table is optional; absence means no
	// overrides, not an error.
	stopTimeAttrs := tables.Table{
		Name: "stop_times_ft.txt",
		Cols: []string{schedule.ColTripID, schedule.ColStopID},
	}
	if app.Sources.StopTimeAttrsPath != "" {
		stopTimeAttrs, err = tables.FromCSVFile(app.Sources.StopTimeAttrsPath)
		if err != nil {
			return nil, err
		}
	}

	if app.Metrics != nil {
		app.Metrics.SourceRows.WithLabelValues("trips").Set(float64(len(records.Trips)))
		app.Metrics.SourceRows.WithLabelValues("stop_times").Set(float64(len(records.StopTimes)))
		app.Metrics.SourceRows.WithLabelValues("calendar").Set(float64(len(records.Calendar)))
		app.Metrics.SourceRows.WithLabelValues("trips_ft").Set(float64(tripAttrs.Len()))
		app.Metrics.SourceRows.WithLabelValues("vehicles_ft").Set(float64(vehicles.Len()))
		app.Metrics.SourceRows.WithLabelValues("stop_times_ft").Set(float64(stopTimeAttrs.Len()))
		app.Metrics.StageDuration.WithLabelValues("load_sources").Observe(time.Since(start).Seconds())
	}

	logging.LogOperation(app.Logger, "sources_loaded",
		slog.Int("trips", len(records.Trips)),
		slog.Int("stop_times", len(records.StopTimes)),
		slog.Int("trip_attrs", tripAttrs.Len()),
		slog.Int("vehicles", vehicles.Len()),
		slog.Int("stop_time_attrs", stopTimeAttrs.Len()),
		slog.Duration("duration", time.Since(start)))

	return &schedule.Input{
		Trips:         records.Trips,
		StopTimes:     records.StopTimes,
		Calendar:      records.Calendar,
		StopIDs:       records.StopIDs,
		TripAttrs:     tripAttrs,
		Vehicles:      vehicles,
		StopTimeAttrs: stopTimeAttrs,
	}, nil
}

func (app *Application) persist(ctx context.Context, sched *schedule.Schedule) error {
	start := time.Now()

	client, err := scheddb.NewClient(scheddb.NewConfig(app.Sources.DBPath, app.Config.Env))
	if err != nil {
		return err
	}
	defer logging.SafeCloseWithLogging(client, app.Logger, "schedule_database")

	if app.Metrics != nil {
		app.Metrics.StartDBStatsCollector(client.DB, 10*time.Second)
	}

	if err := client.Store(ctx, sched); err != nil {
		return err
	}

	if app.Metrics != nil {
		app.Metrics.StageDuration.WithLabelValues("persist").Observe(time.Since(start).Seconds())
	}
	return nil
}

func (app *Application) writeReport(sched *schedule.Schedule) error {
	f, err := os.Create(app.Sources.ReportPath)
	if err != nil {
		return fmt.Errorf("error creating load report file: %w", err)
	}
	defer logging.SafeCloseWithLogging(f, app.Logger, "load_report_file")

	if err := sched.WriteLoadReport(f); err != nil {
		return fmt.Errorf("error writing load report: %w", err)
	}

	logging.LogOperation(app.Logger, "load_report_written",
		slog.String("path", app.Sources.ReportPath))
	return nil
}
