package schedule

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"headway.opentransitsoftware.org/internal/tables"
)

func TestWriteLoadReport(t *testing.T) {
	in := resultsInput()
	in.Trips[0].ShapeID = "SH1"
	in.StopTimeAttrs = tables.Table{
		Name: "stop_times_ft.txt",
		Cols: []string{ColTripID, ColStopID, ColShapeDistTraveled},
		Rows: []tables.Row{
			{ColTripID: "T1", ColStopID: "S2", ColShapeDistTraveled: "1520.5"},
		},
	}

	sched, err := NewAssembler(testServiceDate, nil).Assemble(in)
	require.NoError(t, err)
	require.NoError(t, sched.AttachResults([]StopResult{
		{TripID: "T1", StopSequence: 1, Boards: 5, Alights: 0},
		{TripID: "T1", StopSequence: 2, Boards: 2, Alights: 3},
		{TripID: "T1", StopSequence: 3, Boards: 0, Alights: 4},
	}))
	require.NoError(t, sched.ComputeDwellTimes())
	require.NoError(t, sched.ComputeHeadways())

	var buf strings.Builder
	require.NoError(t, sched.WriteLoadReport(&buf))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)

	assert.Equal(t,
		"routeId\tshapeId\ttripId\tdirection\tstopId\ttraveledDist\tdepartureTime\theadway\tdwellTime\tboardings\talightings\tload",
		lines[0])

	first := strings.Split(lines[1], "\t")
	require.Len(t, first, 12)
	assert.Equal(t, "R1", first[0])
	assert.Equal(t, "SH1", first[1])
	assert.Equal(t, "T1", first[2])
	assert.Equal(t, "0", first[3])
	assert.Equal(t, "S1", first[4])
	assert.Equal(t, "-1", first[5], "missing shape distance uses the placeholder")
	assert.Equal(t, "480.00", first[6])
	assert.Equal(t, "60.00", first[7])
	assert.Equal(t, "24", first[8]) // 4 + max(4*5, 2*0)
	assert.Equal(t, "5", first[9])
	assert.Equal(t, "0", first[10])
	assert.Equal(t, "5", first[11])

	second := strings.Split(lines[2], "\t")
	assert.Equal(t, "1520.5", second[5])
	assert.Equal(t, "4", second[11])
}
