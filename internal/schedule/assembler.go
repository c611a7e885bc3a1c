package schedule

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"headway.opentransitsoftware.org/internal/logging"
	"headway.opentransitsoftware.org/internal/metrics"
	"headway.opentransitsoftware.org/internal/tables"
	"headway.opentransitsoftware.org/internal/timeutil"
)

// Column names of the supplemental source tables. These form the schema
// contract with upstream data producers.
const (
	ColTripID      = "trip_id"
	ColVehicleName = "vehicle_name"

	ColVehicleDescription = "vehicle_description"
	ColSeatedCapacity     = "seated_capacity"
	ColStandingCapacity   = "standing_capacity"
	ColNumberOfDoors      = "number_of_doors"
	ColMaxSpeed           = "max_speed"
	ColVehicleLength      = "vehicle_length"
	ColPlatformHeight     = "platform_height"
	ColPropulsionType     = "propulsion_type"
	ColWheelchairCapacity = "wheelchair_capacity"
	ColBicycleCapacity    = "bicycle_capacity"

	ColStopID            = "stop_id"
	ColStopHeadsign      = "stop_headsign"
	ColPickupType        = "pickup_type"
	ColDropOffType       = "drop_off_type"
	ColShapeDistTraveled = "shape_dist_traveled"
	ColTimepoint         = "timepoint"
)

// TripRecord is one base trip row, as produced by the feed reader.
type TripRecord struct {
	TripID      string
	RouteID     string
	ServiceID   string
	DirectionID int
	ShapeID     string
	ServiceType ServiceType
}

// StopTimeRecord is one base stop-time row. Times are the raw HH:MM:SS
// strings; normalization happens during assembly.
type StopTimeRecord struct {
	TripID        string
	StopID        string
	StopSequence  int
	ArrivalTime   string
	DepartureTime string
}

// CalendarRecord is one service calendar row. Dates are YYYYMMDD strings.
type CalendarRecord struct {
	ServiceID string
	StartDate string
	EndDate   string
	Weekdays  [7]bool
}

// Input carries the immutable source snapshots for one assembly run.
type Input struct {
	Trips     []TripRecord
	StopTimes []StopTimeRecord
	Calendar  []CalendarRecord

	// StopIDs is the set of known stop identifiers. When non-nil, a
	// stop-time row naming a stop outside the set fails assembly.
	StopIDs map[string]struct{}

	// TripAttrs is the supplemental trip table (vehicle assignment).
	TripAttrs tables.Table
	// Vehicles is the vehicle type table.
	Vehicles tables.Table
	// StopTimeAttrs is the optional supplemental stop-time table. It is
	// joined only when it carries columns beyond its two key columns.
	StopTimeAttrs tables.Table
}

// Assembler turns an Input into a Schedule. Assembly is all-or-nothing: the
// first schema, integrity, parse, or lookup failure aborts the run.
type Assembler struct {
	serviceDate time.Time
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// NewAssembler creates an assembler anchored to the given service date.
// serviceDate must be a midnight timestamp. m may be nil.
func NewAssembler(serviceDate time.Time, m *metrics.Metrics) *Assembler {
	return &Assembler{
		serviceDate: serviceDate,
		logger:      slog.Default().With(slog.String("component", "schedule_assembler")),
		metrics:     m,
	}
}

// Assemble validates the source tables, joins them into the canonical trip
// and stop-time tables, normalizes every time value, and builds the
// reverse-lookup indexes.
func (a *Assembler) Assemble(in Input) (*Schedule, error) {
	start := time.Now()

	if err := a.validateSources(in); err != nil {
		a.countFailure("schema")
		return nil, err
	}

	sched := &Schedule{ServiceDate: a.serviceDate}

	vehicles, err := a.buildVehicles(in.Vehicles)
	if err != nil {
		a.countFailure(failureKind(err))
		return nil, err
	}
	sched.Vehicles = vehicles

	if err := a.buildTrips(sched, in.Trips, in.TripAttrs); err != nil {
		a.countFailure(failureKind(err))
		return nil, err
	}

	periods, err := a.buildServicePeriods(in.Calendar)
	if err != nil {
		a.countFailure(failureKind(err))
		return nil, err
	}
	sched.ServicePeriods = periods

	if err := a.buildStopTimes(sched, in.StopTimes, in.StopTimeAttrs, in.StopIDs); err != nil {
		a.countFailure(failureKind(err))
		return nil, err
	}

	sched.buildIndexes()

	if a.metrics != nil {
		a.metrics.AssembledRows.WithLabelValues("trips").Set(float64(len(sched.Trips)))
		a.metrics.AssembledRows.WithLabelValues("stop_times").Set(float64(len(sched.StopTimes)))
		a.metrics.AssembledRows.WithLabelValues("vehicles").Set(float64(len(sched.Vehicles)))
		a.metrics.AssembledRows.WithLabelValues("service_periods").Set(float64(len(sched.ServicePeriods)))
		a.metrics.StageDuration.WithLabelValues("assemble").Observe(time.Since(start).Seconds())
	}

	logging.LogOperation(a.logger, "schedule_assembled",
		slog.Int("trips", len(sched.Trips)),
		slog.Int("stop_times", len(sched.StopTimes)),
		slog.Int("vehicles", len(sched.Vehicles)),
		slog.Int("service_periods", len(sched.ServicePeriods)),
		slog.Duration("duration", time.Since(start)))

	return sched, nil
}

// validateSources fails fast on schema mismatch, before any join.
func (a *Assembler) validateSources(in Input) error {
	if err := in.TripAttrs.RequireColumns(ColTripID, ColVehicleName); err != nil {
		return err
	}
	if err := in.Vehicles.RequireColumns(ColVehicleName); err != nil {
		return err
	}
	return in.StopTimeAttrs.RequireColumns(ColTripID, ColStopID)
}

func (a *Assembler) buildVehicles(t tables.Table) (map[string]*Vehicle, error) {
	out := make(map[string]*Vehicle, t.Len())
	for _, row := range t.Rows {
		name := row[ColVehicleName]
		if _, dup := out[name]; dup {
			return nil, &IntegrityError{Table: t.Name, Key: name, Reason: "duplicate vehicle name"}
		}
		v := &Vehicle{Name: name}
		v.Description, _ = row.Get(ColVehicleDescription)
		v.PropulsionType, _ = row.Get(ColPropulsionType)

		var err error
		if v.SeatedCapacity, err = optionalInt(row, ColSeatedCapacity); err != nil {
			return nil, fmt.Errorf("vehicle %s: %w", name, err)
		}
		if v.StandingCapacity, err = optionalInt(row, ColStandingCapacity); err != nil {
			return nil, fmt.Errorf("vehicle %s: %w", name, err)
		}
		if v.NumberOfDoors, err = optionalInt(row, ColNumberOfDoors); err != nil {
			return nil, fmt.Errorf("vehicle %s: %w", name, err)
		}
		if v.MaxSpeedMPH, err = optionalFloat(row, ColMaxSpeed); err != nil {
			return nil, fmt.Errorf("vehicle %s: %w", name, err)
		}
		if v.LengthFeet, err = optionalFloat(row, ColVehicleLength); err != nil {
			return nil, fmt.Errorf("vehicle %s: %w", name, err)
		}
		if v.PlatformHeightIn, err = optionalFloat(row, ColPlatformHeight); err != nil {
			return nil, fmt.Errorf("vehicle %s: %w", name, err)
		}
		if v.WheelchairCapacity, err = optionalIntPtr(row, ColWheelchairCapacity); err != nil {
			return nil, fmt.Errorf("vehicle %s: %w", name, err)
		}
		if v.BicycleCapacity, err = optionalIntPtr(row, ColBicycleCapacity); err != nil {
			return nil, fmt.Errorf("vehicle %s: %w", name, err)
		}
		out[name] = v
	}
	return out, nil
}

// buildTrips left-joins the base trip records with the supplemental vehicle
// assignment on trip identifier. Every base trip must survive the join.
func (a *Assembler) buildTrips(sched *Schedule, base []TripRecord, attrs tables.Table) error {
	attrsByTrip := make(map[string]tables.Row, attrs.Len())
	for _, row := range attrs.Rows {
		tripID := row[ColTripID]
		if _, dup := attrsByTrip[tripID]; dup {
			// a duplicated attribute row would duplicate trips in the join
			return &IntegrityError{Table: attrs.Name, Key: tripID, Reason: "duplicate trip identifier"}
		}
		attrsByTrip[tripID] = row
	}

	sched.Trips = make([]*Trip, 0, len(base))
	sched.TripsByID = make(map[string]*Trip, len(base))
	for _, rec := range base {
		if _, dup := sched.TripsByID[rec.TripID]; dup {
			return &IntegrityError{Table: "trips", Key: rec.TripID, Reason: "duplicate trip identifier"}
		}
		trip := &Trip{
			TripID:      rec.TripID,
			RouteID:     rec.RouteID,
			ServiceID:   rec.ServiceID,
			DirectionID: rec.DirectionID,
			ShapeID:     rec.ShapeID,
			ServiceType: rec.ServiceType,
		}
		if row, ok := attrsByTrip[rec.TripID]; ok {
			trip.VehicleName = row[ColVehicleName]
			// left join: a trip without a matching vehicle type keeps
			// null vehicle attributes
			if v, ok := sched.Vehicles[trip.VehicleName]; ok {
				trip.Vehicle = v
				trip.Capacity = v.TotalCapacity()
			}
		}
		sched.Trips = append(sched.Trips, trip)
		sched.TripsByID[rec.TripID] = trip
	}

	if len(sched.Trips) != len(base) {
		return &IntegrityError{Table: "trips", Reason: fmt.Sprintf("row count changed during join: %d != %d", len(sched.Trips), len(base))}
	}
	return nil
}

func (a *Assembler) buildServicePeriods(records []CalendarRecord) ([]*ServicePeriod, error) {
	out := make([]*ServicePeriod, 0, len(records))
	for _, rec := range records {
		start, err := timeutil.ParseServiceDate(rec.StartDate)
		if err != nil {
			return nil, fmt.Errorf("service %s: %w", rec.ServiceID, err)
		}
		end, err := timeutil.EndOfServiceDate(rec.EndDate)
		if err != nil {
			return nil, fmt.Errorf("service %s: %w", rec.ServiceID, err)
		}
		if end.Before(start) {
			return nil, &IntegrityError{Table: "calendar", Key: rec.ServiceID, Reason: "start date after end date"}
		}
		out = append(out, &ServicePeriod{
			ServiceID:    rec.ServiceID,
			StartDateStr: rec.StartDate,
			EndDateStr:   rec.EndDate,
			StartDate:    start,
			EndDate:      end,
			Weekdays:     rec.Weekdays,
		})
	}
	return out, nil
}

func (a *Assembler) buildStopTimes(sched *Schedule, base []StopTimeRecord, attrs tables.Table, stopIDs map[string]struct{}) error {
	baseTable := stopTimeTable(base)

	// Join the supplemental attributes only when they carry columns
	// beyond the two join keys; otherwise the base table is used as-is.
	joined := baseTable
	if len(attrs.Cols) > 2 {
		joined = tables.LeftJoin(baseTable, attrs, ColTripID, ColStopID)
		if joined.Len() != baseTable.Len() {
			return &IntegrityError{Table: attrs.Name, Reason: fmt.Sprintf("join changed stop-time row count: %d != %d", joined.Len(), baseTable.Len())}
		}
	}

	sched.StopTimes = make([]*StopTime, 0, joined.Len())
	sched.stopTimeIdx = make(map[stopTimeKey]*StopTime, joined.Len())
	for _, row := range joined.Rows {
		st, err := a.parseStopTime(row)
		if err != nil {
			return err
		}
		if _, known := sched.TripsByID[st.TripID]; !known {
			return &LookupError{Kind: "trip", Key: st.TripID, Ref: "stop-time row"}
		}
		if stopIDs != nil {
			if _, known := stopIDs[st.StopID]; !known {
				return &LookupError{Kind: "stop", Key: st.StopID, Ref: "stop-time row for trip " + st.TripID}
			}
		}
		key := stopTimeKey{st.TripID, st.StopSequence}
		if _, dup := sched.stopTimeIdx[key]; dup {
			return &IntegrityError{
				Table:  "stop_times",
				Key:    fmt.Sprintf("(%s, %d)", st.TripID, st.StopSequence),
				Reason: "duplicate (trip, stop sequence) pair",
			}
		}
		sched.stopTimeIdx[key] = st
		sched.StopTimes = append(sched.StopTimes, st)
	}

	sortStopTimes(sched.StopTimes)
	return a.validateStopOrdering(sched.StopTimes)
}

func (a *Assembler) parseStopTime(row tables.Row) (*StopTime, error) {
	seqStr := row["stop_sequence"]
	seq, err := strconv.Atoi(seqStr)
	if err != nil {
		return nil, &IntegrityError{Table: "stop_times", Key: row[ColTripID], Reason: "non-numeric stop sequence " + strconv.Quote(seqStr)}
	}

	st := &StopTime{
		TripID:       row[ColTripID],
		StopID:       row[ColStopID],
		StopSequence: seq,
	}

	if st.Arrival, err = timeutil.ParseTimeOfDay(row["arrival_time"], a.serviceDate); err != nil {
		return nil, fmt.Errorf("trip %s stop %d: %w", st.TripID, seq, err)
	}
	if st.Departure, err = timeutil.ParseTimeOfDay(row["departure_time"], a.serviceDate); err != nil {
		return nil, fmt.Errorf("trip %s stop %d: %w", st.TripID, seq, err)
	}

	st.Headsign, _ = row.Get(ColStopHeadsign)
	if st.PickupType, err = optionalIntPtr(row, ColPickupType); err != nil {
		return nil, fmt.Errorf("trip %s stop %d: %w", st.TripID, seq, err)
	}
	if st.DropOffType, err = optionalIntPtr(row, ColDropOffType); err != nil {
		return nil, fmt.Errorf("trip %s stop %d: %w", st.TripID, seq, err)
	}
	if st.ShapeDistTraveled, err = optionalFloatPtr(row, ColShapeDistTraveled); err != nil {
		return nil, fmt.Errorf("trip %s stop %d: %w", st.TripID, seq, err)
	}
	if st.Timepoint, err = optionalIntPtr(row, ColTimepoint); err != nil {
		return nil, fmt.Errorf("trip %s stop %d: %w", st.TripID, seq, err)
	}
	return st, nil
}

// validateStopOrdering enforces, per trip: sequences are 1..N with no gaps,
// arrival <= departure at each stop, and departure at stop n is not after
// arrival at stop n+1. stopTimes must already be sorted.
func (a *Assembler) validateStopOrdering(stopTimes []*StopTime) error {
	var prev *StopTime
	for _, st := range stopTimes {
		sameTrip := prev != nil && prev.TripID == st.TripID
		if !sameTrip && st.StopSequence != 1 {
			return &IntegrityError{Table: "stop_times", Key: st.TripID, Reason: fmt.Sprintf("stop sequence starts at %d, want 1", st.StopSequence)}
		}
		if sameTrip && st.StopSequence != prev.StopSequence+1 {
			return &IntegrityError{Table: "stop_times", Key: st.TripID, Reason: fmt.Sprintf("stop sequence jumps from %d to %d", prev.StopSequence, st.StopSequence)}
		}
		if st.Departure.At.Before(st.Arrival.At) {
			return &IntegrityError{
				Table:  "stop_times",
				Key:    fmt.Sprintf("(%s, %d)", st.TripID, st.StopSequence),
				Reason: fmt.Sprintf("departure %s before arrival %s", st.Departure.Raw, st.Arrival.Raw),
			}
		}
		if sameTrip && st.Arrival.At.Before(prev.Departure.At) {
			return &IntegrityError{
				Table:  "stop_times",
				Key:    fmt.Sprintf("(%s, %d)", st.TripID, st.StopSequence),
				Reason: fmt.Sprintf("arrival %s before previous departure %s", st.Arrival.Raw, prev.Departure.Raw),
			}
		}
		prev = st
	}
	return nil
}

func stopTimeTable(records []StopTimeRecord) tables.Table {
	t := tables.Table{
		Name: "stop_times",
		Cols: []string{ColTripID, ColStopID, "stop_sequence", "arrival_time", "departure_time"},
		Rows: make([]tables.Row, 0, len(records)),
	}
	for _, rec := range records {
		t.Rows = append(t.Rows, tables.Row{
			ColTripID:        rec.TripID,
			ColStopID:        rec.StopID,
			"stop_sequence":  strconv.Itoa(rec.StopSequence),
			"arrival_time":   rec.ArrivalTime,
			"departure_time": rec.DepartureTime,
		})
	}
	return t
}

func sortStopTimes(stopTimes []*StopTime) {
	sort.SliceStable(stopTimes, func(i, j int) bool {
		if stopTimes[i].TripID != stopTimes[j].TripID {
			return stopTimes[i].TripID < stopTimes[j].TripID
		}
		return stopTimes[i].StopSequence < stopTimes[j].StopSequence
	})
}

func (a *Assembler) countFailure(kind string) {
	if a.metrics != nil {
		a.metrics.AssemblyFailures.WithLabelValues(kind).Inc()
	}
}

func failureKind(err error) string {
	var integrityErr *IntegrityError
	var lookupErr *LookupError
	var parseErr *timeutil.ParseError
	switch {
	case errors.As(err, &integrityErr):
		return "integrity"
	case errors.As(err, &lookupErr):
		return "lookup"
	case errors.As(err, &parseErr):
		return "time_parse"
	default:
		return "other"
	}
}

func optionalInt(row tables.Row, col string) (int, error) {
	s, ok := row.Get(col)
	if !ok || s == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("column %s: %w", col, err)
	}
	return v, nil
}

func optionalIntPtr(row tables.Row, col string) (*int, error) {
	s, ok := row.Get(col)
	if !ok || s == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("column %s: %w", col, err)
	}
	return &v, nil
}

func optionalFloat(row tables.Row, col string) (float64, error) {
	s, ok := row.Get(col)
	if !ok || s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("column %s: %w", col, err)
	}
	return v, nil
}

func optionalFloatPtr(row tables.Row, col string) (*float64, error) {
	s, ok := row.Get(col)
	if !ok || s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("column %s: %w", col, err)
	}
	return &v, nil
}
