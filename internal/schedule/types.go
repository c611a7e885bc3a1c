// Package schedule assembles heterogeneous tabular transit sources into a
// single validated, time-normalized vehicle schedule and derives the
// per-stop operational metrics and event stream consumed by the
// passenger-assignment simulation.
package schedule

import (
	"fmt"
	"time"

	"headway.opentransitsoftware.org/internal/timeutil"
)

// ServiceType is the vehicle/mode category, numbered like GTFS route types.
type ServiceType int

const (
	ServiceTypeTram     ServiceType = iota // tram, streetcar, light rail
	ServiceTypeSubway                      // subway, metro
	ServiceTypeRail                        // intercity or long-distance rail
	ServiceTypeBus                         //
	ServiceTypeFerry                       //
	ServiceTypeCableCar                    //
	ServiceTypeGondola                     //
)

func (s ServiceType) String() string {
	switch s {
	case ServiceTypeTram:
		return "tram"
	case ServiceTypeSubway:
		return "subway"
	case ServiceTypeRail:
		return "rail"
	case ServiceTypeBus:
		return "bus"
	case ServiceTypeFerry:
		return "ferry"
	case ServiceTypeCableCar:
		return "cable_car"
	case ServiceTypeGondola:
		return "gondola"
	default:
		return fmt.Sprintf("service_type(%d)", int(s))
	}
}

// Operational policy constants. These values are empirical, carried from
// observed door-cycle and scheduling behavior, not structural requirements.
const (
	// DefaultHeadwayMin is assigned to the first departure in each
	// (stop, route, direction) group, which has no predecessor.
	DefaultHeadwayMin = 60.0

	// TramDwellSec is the fixed dwell for tram/streetcar/light-rail
	// service regardless of passenger flow.
	TramDwellSec = 30

	// DwellFloorSec is the fixed door-cycle floor added to the flow term.
	DwellFloorSec = 4

	// BoardSecPerPassenger and AlightSecPerPassenger weight the two
	// passenger flows; the larger product dominates the dwell.
	BoardSecPerPassenger  = 4
	AlightSecPerPassenger = 2
)

// Trip is one scheduled vehicle run. Trips are built once per assembly run
// and are read-only to downstream consumers.
type Trip struct {
	TripID      string
	RouteID     string
	ServiceID   string
	DirectionID int
	ShapeID     string
	ServiceType ServiceType

	// VehicleName joins the trip to its vehicle type. Vehicle is nil when
	// no matching vehicle type exists; that is not an error.
	VehicleName string
	Vehicle     *Vehicle

	// Capacity is the total passenger capacity (seated plus standing) of
	// the assigned vehicle, or 0 when no vehicle is assigned.
	Capacity int
}

// Vehicle describes one distinct vehicle model.
type Vehicle struct {
	Name             string
	Description      string
	SeatedCapacity   int
	StandingCapacity int
	NumberOfDoors    int
	MaxSpeedMPH      float64
	LengthFeet       float64
	PlatformHeightIn float64
	PropulsionType   string

	// Overrides; nil means the source did not supply a value.
	WheelchairCapacity *int
	BicycleCapacity    *int
}

// TotalCapacity is seated plus standing capacity.
func (v *Vehicle) TotalCapacity() int {
	return v.SeatedCapacity + v.StandingCapacity
}

// ServicePeriod is one service calendar entry. EndDate is the last
// representable instant of the end date, so Contains is inclusive at the
// boundary.
type ServicePeriod struct {
	ServiceID    string
	StartDateStr string
	EndDateStr   string
	StartDate    time.Time
	EndDate      time.Time
	Weekdays     [7]bool // indexed by time.Weekday
}

// Contains reports whether t falls inside the service period, inclusive of
// both boundary dates.
func (p *ServicePeriod) Contains(t time.Time) bool {
	return !t.Before(p.StartDate) && !t.After(p.EndDate)
}

// StopTime is one scheduled stop visit, keyed by (trip, stop sequence).
// Arrival and departure carry all three time representations in sync.
type StopTime struct {
	TripID       string
	StopID       string
	StopSequence int

	Arrival   timeutil.TimeOfDay
	Departure timeutil.TimeOfDay

	// Optional attributes; nil/empty means the source did not supply them.
	Headsign          string
	PickupType        *int
	DropOffType       *int
	ShapeDistTraveled *float64
	Timepoint         *int

	// Derived by the metrics engine, not input.
	DwellTimeSec int
	HeadwayMin   float64

	// Simulation results, attached by a later phase and reset between runs.
	Boards  int
	Alights int
	Load    int
}

// EventKind distinguishes the two events generated per stop visit.
type EventKind int

const (
	EventArrival EventKind = iota
	EventDeparture
)

func (k EventKind) String() string {
	if k == EventArrival {
		return "arrival"
	}
	return "departure"
}

// Event is one arrival or departure in the stream handed to the simulation.
// Events are ephemeral: the consumer must sort them by timestamp before use.
type Event struct {
	TripID       string
	StopID       string
	StopSequence int
	Timestamp    time.Time
	Kind         EventKind
}

// StopVisit locates one stop time from a stop's perspective.
type StopVisit struct {
	Trip         *Trip
	StopSequence int
}
