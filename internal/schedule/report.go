package schedule

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// loadReportColumns is the header of the per-stop load report consumed by
// downstream analysis tooling. Order is part of the contract.
var loadReportColumns = []string{
	"routeId", "shapeId", "tripId", "direction", "stopId",
	"traveledDist", "departureTime", "headway", "dwellTime",
	"boardings", "alightings", "load",
}

// WriteLoadReport writes the tab-delimited load report: one header line,
// then one row per stop visited, in trip and stop-sequence order. Traveled
// distance uses -1 as the placeholder when the source did not supply a
// shape distance. Departure time and headway are minutes; dwell is seconds.
func (s *Schedule) WriteLoadReport(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(strings.Join(loadReportColumns, "\t") + "\n"); err != nil {
		return fmt.Errorf("error writing load report header: %w", err)
	}

	for _, st := range s.StopTimes {
		trip, ok := s.TripsByID[st.TripID]
		if !ok {
			return &LookupError{Kind: "trip", Key: st.TripID, Ref: "load report row"}
		}

		traveledDist := "-1"
		if st.ShapeDistTraveled != nil {
			traveledDist = strconv.FormatFloat(*st.ShapeDistTraveled, 'f', -1, 64)
		}

		fields := []string{
			trip.RouteID,
			trip.ShapeID,
			trip.TripID,
			strconv.Itoa(trip.DirectionID),
			st.StopID,
			traveledDist,
			formatMinutes(st.Departure.Minutes),
			formatMinutes(st.HeadwayMin),
			strconv.Itoa(st.DwellTimeSec),
			strconv.Itoa(st.Boards),
			strconv.Itoa(st.Alights),
			strconv.Itoa(st.Load),
		}
		if _, err := bw.WriteString(strings.Join(fields, "\t") + "\n"); err != nil {
			return fmt.Errorf("error writing load report row: %w", err)
		}
	}
	return bw.Flush()
}

func formatMinutes(min float64) string {
	return strconv.FormatFloat(min, 'f', 2, 64)
}
