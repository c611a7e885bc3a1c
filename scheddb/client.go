// Package scheddb persists an assembled schedule to SQLite so that
// downstream tooling can query it without re-running assembly.
package scheddb

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // CGo-based SQLite driver

	"headway.opentransitsoftware.org/internal/appconf"
	"headway.opentransitsoftware.org/internal/logging"
	"headway.opentransitsoftware.org/internal/schedule"
)

//go:embed schema.sql
var ddl string

// Client owns the schedule database connection.
type Client struct {
	config Config
	DB     *sql.DB
}

// NewClient opens (or creates) the schedule database and runs the schema
// migration.
func NewClient(config Config) (*Client, error) {
	db, err := createDB(config)
	if err != nil {
		return nil, fmt.Errorf("unable to create DB: %w", err)
	}
	return &Client{config: config, DB: db}, nil
}

func (c *Client) Close() error {
	return c.DB.Close()
}

func (c *Client) GetDBPath() string {
	return c.config.DBPath
}

func createDB(config Config) (*sql.DB, error) {
	if config.Env == appconf.Test && config.DBPath != ":memory:" {
		return nil, fmt.Errorf("test database must use in-memory storage, got path: %s", config.DBPath)
	}

	db, err := sql.Open("sqlite3", config.DBPath)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	if err := configureSQLitePerformance(ctx, db); err != nil {
		return nil, fmt.Errorf("error configuring SQLite performance: %w", err)
	}
	if err := performDatabaseMigration(ctx, db); err != nil {
		return nil, fmt.Errorf("error performing database migration: %w", err)
	}

	configureConnectionPool(db, config)
	return db, nil
}

func performDatabaseMigration(ctx context.Context, db *sql.DB) error {
	statements := strings.Split(ddl, "-- migrate")
	for _, stmt := range statements {
		trimmedStmt := strings.TrimSpace(stmt)
		if trimmedStmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, trimmedStmt); err != nil {
			return fmt.Errorf("error executing DDL statement [%s]: %w", trimmedStmt, err)
		}
	}
	return nil
}

// configureSQLitePerformance applies PRAGMA settings for bulk inserts.
func configureSQLitePerformance(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA cache_size=-64000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}
	return nil
}

// configureConnectionPool caps connections. Each connection to a :memory:
// database gets its own separate database, so in-memory use is limited to a
// single connection.
func configureConnectionPool(db *sql.DB, config Config) {
	if config.DBPath == ":memory:" {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}
}

// Store replaces the database contents with the given schedule. Existing
// rows from a previous assembly run are cleared first.
func (c *Client) Store(ctx context.Context, sched *schedule.Schedule) error {
	logger := slog.Default().With(slog.String("component", "scheddb"))
	startTime := time.Now()

	if err := c.clearAll(ctx); err != nil {
		return fmt.Errorf("error clearing existing schedule data: %w", err)
	}

	if err := c.insertVehicles(ctx, sched); err != nil {
		return fmt.Errorf("unable to store vehicles: %w", err)
	}
	if err := c.insertTrips(ctx, sched); err != nil {
		return fmt.Errorf("unable to store trips: %w", err)
	}
	if err := c.insertServicePeriods(ctx, sched); err != nil {
		return fmt.Errorf("unable to store service periods: %w", err)
	}
	if err := c.bulkInsertStopTimes(ctx, sched.StopTimes); err != nil {
		return fmt.Errorf("unable to store stop times: %w", err)
	}
	if err := c.upsertMetadata(ctx, sched); err != nil {
		return fmt.Errorf("unable to store assembly metadata: %w", err)
	}

	logging.LogOperation(logger, "schedule_stored",
		slog.Int("trips", len(sched.Trips)),
		slog.Int("stop_times", len(sched.StopTimes)),
		slog.Duration("duration", time.Since(startTime)))
	return nil
}

// clearAll deletes in reverse dependency order to respect foreign keys.
func (c *Client) clearAll(ctx context.Context) error {
	for _, table := range []string{"stop_times", "trips", "service_periods", "vehicles", "assembly_metadata"} {
		if _, err := c.DB.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("error clearing %s: %w", table, err)
		}
	}
	return nil
}

func (c *Client) insertVehicles(ctx context.Context, sched *schedule.Schedule) error {
	logger := slog.Default().With(slog.String("component", "scheddb"))

	tx, err := c.DB.Begin()
	if err != nil {
		return err
	}
	defer logging.SafeRollbackWithLogging(tx, logger, "insert_vehicles")

	const query = `INSERT INTO vehicles (
		name, description, seated_capacity, standing_capacity, number_of_doors,
		max_speed, vehicle_length, platform_height, propulsion_type,
		wheelchair_capacity, bicycle_capacity
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	for _, v := range sched.Vehicles {
		_, err := tx.ExecContext(ctx, query,
			v.Name,
			toNullString(v.Description),
			v.SeatedCapacity,
			v.StandingCapacity,
			v.NumberOfDoors,
			toNullFloat64(v.MaxSpeedMPH),
			toNullFloat64(v.LengthFeet),
			toNullFloat64(v.PlatformHeightIn),
			toNullString(v.PropulsionType),
			intPtrToNull(v.WheelchairCapacity),
			intPtrToNull(v.BicycleCapacity),
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (c *Client) insertTrips(ctx context.Context, sched *schedule.Schedule) error {
	logger := slog.Default().With(slog.String("component", "scheddb"))

	logging.LogOperation(logger, "inserting_trips",
		slog.Int("count", len(sched.Trips)))

	tx, err := c.DB.Begin()
	if err != nil {
		return err
	}
	defer logging.SafeRollbackWithLogging(tx, logger, "insert_trips")

	const query = `INSERT INTO trips (
		id, route_id, service_id, direction_id, shape_id, service_type,
		vehicle_name, capacity
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	for _, t := range sched.Trips {
		_, err := tx.ExecContext(ctx, query,
			t.TripID,
			t.RouteID,
			t.ServiceID,
			t.DirectionID,
			toNullString(t.ShapeID),
			int(t.ServiceType),
			toNullString(t.VehicleName),
			t.Capacity,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (c *Client) insertServicePeriods(ctx context.Context, sched *schedule.Schedule) error {
	logger := slog.Default().With(slog.String("component", "scheddb"))

	tx, err := c.DB.Begin()
	if err != nil {
		return err
	}
	defer logging.SafeRollbackWithLogging(tx, logger, "insert_service_periods")

	const query = `INSERT INTO service_periods (
		service_id, start_date, end_date,
		monday, tuesday, wednesday, thursday, friday, saturday, sunday
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	for _, p := range sched.ServicePeriods {
		_, err := tx.ExecContext(ctx, query,
			p.ServiceID,
			p.StartDateStr,
			p.EndDateStr,
			boolToInt(p.Weekdays[time.Monday]),
			boolToInt(p.Weekdays[time.Tuesday]),
			boolToInt(p.Weekdays[time.Wednesday]),
			boolToInt(p.Weekdays[time.Thursday]),
			boolToInt(p.Weekdays[time.Friday]),
			boolToInt(p.Weekdays[time.Saturday]),
			boolToInt(p.Weekdays[time.Sunday]),
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (c *Client) bulkInsertStopTimes(ctx context.Context, stopTimes []*schedule.StopTime) error {
	logger := slog.Default().With(slog.String("component", "bulk_insert"))

	logging.LogOperation(logger, "inserting_stop_times",
		slog.Int("count", len(stopTimes)))

	batchSize := c.config.GetBulkInsertBatchSize()
	const baseQuery = `INSERT INTO stop_times (
		trip_id, stop_id, stop_sequence, arrival_time, departure_time,
		arrival_minutes, departure_minutes, stop_headsign, pickup_type,
		drop_off_type, shape_dist_traveled, timepoint, dwell_time, headway,
		boardings, alightings, load
	) VALUES `

	tx, err := c.DB.Begin()
	if err != nil {
		return err
	}
	defer logging.SafeRollbackWithLogging(tx, logger, "bulk_insert_stop_times")

	for start := 0; start < len(stopTimes); start += batchSize {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		end := start + batchSize
		if end > len(stopTimes) {
			end = len(stopTimes)
		}
		batch := stopTimes[start:end]

		// Multi-row INSERT with placeholders only; values never go into
		// the query string.
		var query strings.Builder
		query.WriteString(baseQuery)
		args := make([]interface{}, 0, len(batch)*17)

		for j, st := range batch {
			if j > 0 {
				query.WriteString(", ")
			}
			query.WriteString("(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")

			args = append(args,
				st.TripID,
				st.StopID,
				st.StopSequence,
				st.Arrival.Raw,
				st.Departure.Raw,
				st.Arrival.Minutes,
				st.Departure.Minutes,
				toNullString(st.Headsign),
				intPtrToNull(st.PickupType),
				intPtrToNull(st.DropOffType),
				floatPtrToNull(st.ShapeDistTraveled),
				intPtrToNull(st.Timepoint),
				st.DwellTimeSec,
				st.HeadwayMin,
				st.Boards,
				st.Alights,
				st.Load,
			)
		}

		if _, err := tx.ExecContext(ctx, query.String(), args...); err != nil {
			return fmt.Errorf("failed to insert stop_times batch: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	logging.LogOperation(logger, "stop_times_inserted",
		slog.Int("count", len(stopTimes)))
	return nil
}

func (c *Client) upsertMetadata(ctx context.Context, sched *schedule.Schedule) error {
	const query = `INSERT INTO assembly_metadata (id, service_date, assembled_at, trip_count, stop_time_count)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			service_date = excluded.service_date,
			assembled_at = excluded.assembled_at,
			trip_count = excluded.trip_count,
			stop_time_count = excluded.stop_time_count`
	_, err := c.DB.ExecContext(ctx, query,
		sched.ServiceDate.Format("20060102"),
		time.Now().Unix(),
		len(sched.Trips),
		len(sched.StopTimes),
	)
	return err
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func toNullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func toNullFloat64(f float64) sql.NullFloat64 {
	if f != 0 {
		return sql.NullFloat64{Float64: f, Valid: true}
	}
	return sql.NullFloat64{}
}

func intPtrToNull(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func floatPtrToNull(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}
