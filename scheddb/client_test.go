package scheddb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"headway.opentransitsoftware.org/internal/appconf"
	"headway.opentransitsoftware.org/internal/schedule"
	"headway.opentransitsoftware.org/internal/tables"
)

func testSchedule(t *testing.T) *schedule.Schedule {
	t.Helper()

	in := schedule.Input{
		Trips: []schedule.TripRecord{
			{TripID: "T1", RouteID: "R1", ServiceID: "WKDY", ShapeID: "SH1", ServiceType: schedule.ServiceTypeBus},
			{TripID: "T2", RouteID: "R1", ServiceID: "WKDY", ServiceType: schedule.ServiceTypeTram},
		},
		StopTimes: []schedule.StopTimeRecord{
			{TripID: "T1", StopID: "S1", StopSequence: 1, ArrivalTime: "08:00:00", DepartureTime: "08:00:30"},
			{TripID: "T1", StopID: "S2", StopSequence: 2, ArrivalTime: "25:07:00", DepartureTime: "25:07:00"},
			{TripID: "T2", StopID: "S1", StopSequence: 1, ArrivalTime: "09:00:00", DepartureTime: "09:00:00"},
		},
		Calendar: []schedule.CalendarRecord{
			{ServiceID: "WKDY", StartDate: "20151101", EndDate: "20151231"},
		},
		StopIDs: map[string]struct{}{"S1": {}, "S2": {}},
		TripAttrs: tables.Table{
			Name: "trips_ft.txt",
			Cols: []string{schedule.ColTripID, schedule.ColVehicleName},
			Rows: []tables.Row{
				{schedule.ColTripID: "T1", schedule.ColVehicleName: "std_bus"},
				{schedule.ColTripID: "T2", schedule.ColVehicleName: "lrv"},
			},
		},
		Vehicles: tables.Table{
			Name: "vehicles_ft.txt",
			Cols: []string{schedule.ColVehicleName, schedule.ColSeatedCapacity, schedule.ColStandingCapacity},
			Rows: []tables.Row{
				{schedule.ColVehicleName: "std_bus", schedule.ColSeatedCapacity: "40", schedule.ColStandingCapacity: "20"},
				{schedule.ColVehicleName: "lrv", schedule.ColSeatedCapacity: "70", schedule.ColStandingCapacity: "80"},
			},
		},
		StopTimeAttrs: tables.Table{
			Name: "stop_times_ft.txt",
			Cols: []string{schedule.ColTripID, schedule.ColStopID},
		},
	}

	serviceDate := time.Date(2015, 11, 23, 0, 0, 0, 0, time.UTC)
	sched, err := schedule.NewAssembler(serviceDate, nil).Assemble(in)
	require.NoError(t, err)
	require.NoError(t, sched.ComputeDwellTimes())
	require.NoError(t, sched.ComputeHeadways())
	return sched
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := NewClient(NewConfig(":memory:", appconf.Test))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestNewClient_TestEnvRequiresInMemory(t *testing.T) {
	_, err := NewClient(NewConfig("/tmp/sched.db", appconf.Test))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "in-memory")
}

func TestStore(t *testing.T) {
	client := newTestClient(t)
	sched := testSchedule(t)

	require.NoError(t, client.Store(context.Background(), sched))

	counts, err := client.TableCounts()
	require.NoError(t, err)
	assert.Equal(t, 2, counts["vehicles"])
	assert.Equal(t, 2, counts["trips"])
	assert.Equal(t, 1, counts["service_periods"])
	assert.Equal(t, 3, counts["stop_times"])
	assert.Equal(t, 1, counts["assembly_metadata"])
}

func TestStore_TripRow(t *testing.T) {
	client := newTestClient(t)
	require.NoError(t, client.Store(context.Background(), testSchedule(t)))

	var routeID, vehicleName string
	var capacity, serviceType int
	err := client.DB.QueryRow(
		"SELECT route_id, vehicle_name, capacity, service_type FROM trips WHERE id = 'T1'").
		Scan(&routeID, &vehicleName, &capacity, &serviceType)
	require.NoError(t, err)

	assert.Equal(t, "R1", routeID)
	assert.Equal(t, "std_bus", vehicleName)
	assert.Equal(t, 60, capacity)
	assert.Equal(t, int(schedule.ServiceTypeBus), serviceType)
}

func TestStore_StopTimeKeepsRawAndMinutes(t *testing.T) {
	client := newTestClient(t)
	require.NoError(t, client.Store(context.Background(), testSchedule(t)))

	var arrival string
	var arrivalMinutes float64
	var dwell int
	err := client.DB.QueryRow(
		"SELECT arrival_time, arrival_minutes, dwell_time FROM stop_times WHERE trip_id = 'T1' AND stop_sequence = 2").
		Scan(&arrival, &arrivalMinutes, &dwell)
	require.NoError(t, err)

	// post-midnight times keep their overflowed form and unwrapped minutes
	assert.Equal(t, "25:07:00", arrival)
	assert.InDelta(t, 1507.0, arrivalMinutes, 1e-9)
	assert.Equal(t, 0, dwell)
}

func TestStore_ReplacesPreviousRun(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.Store(ctx, testSchedule(t)))
	require.NoError(t, client.Store(ctx, testSchedule(t)))

	counts, err := client.TableCounts()
	require.NoError(t, err)
	assert.Equal(t, 2, counts["trips"])
	assert.Equal(t, 3, counts["stop_times"])
}
