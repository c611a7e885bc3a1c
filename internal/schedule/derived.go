package schedule

import (
	"fmt"
	"sort"
)

// DwellSeconds computes dwell time for one stop visit from passenger flow.
// Tram-family service uses a fixed dwell regardless of flow; this override
// wins even when nobody boards or alights.
func DwellSeconds(boards, alights int, serviceType ServiceType) int {
	if serviceType == ServiceTypeTram {
		return TramDwellSec
	}
	if boards == 0 && alights == 0 {
		return 0
	}
	flow := BoardSecPerPassenger * boards
	if a := AlightSecPerPassenger * alights; a > flow {
		flow = a
	}
	return DwellFloorSec + flow
}

// ComputeDwellTimes fills the dwell-time column across the stop-time table
// from the attached boarding and alighting counts.
func (s *Schedule) ComputeDwellTimes() error {
	before := len(s.StopTimes)
	for _, st := range s.StopTimes {
		trip, ok := s.TripsByID[st.TripID]
		if !ok {
			return &LookupError{Kind: "trip", Key: st.TripID, Ref: "stop-time row"}
		}
		st.DwellTimeSec = DwellSeconds(st.Boards, st.Alights, trip.ServiceType)
	}
	if len(s.StopTimes) != before {
		return &IntegrityError{Table: "stop_times", Reason: fmt.Sprintf("row count changed during dwell computation: %d != %d", len(s.StopTimes), before)}
	}
	return nil
}

// ComputeHeadways fills the headway column: within each (stop, route,
// direction) group, rows are ordered by departure time and each row's
// headway is the gap in minutes to the preceding departure. The first row
// of each group gets the default headway.
func (s *Schedule) ComputeHeadways() error {
	before := len(s.StopTimes)

	type groupKey struct {
		stopID    string
		routeID   string
		direction int
	}
	groups := make(map[groupKey][]*StopTime)
	for _, st := range s.StopTimes {
		trip, ok := s.TripsByID[st.TripID]
		if !ok {
			return &LookupError{Kind: "trip", Key: st.TripID, Ref: "stop-time row"}
		}
		k := groupKey{st.StopID, trip.RouteID, trip.DirectionID}
		groups[k] = append(groups[k], st)
	}

	assigned := 0
	for _, group := range groups {
		// departure minutes are unwrapped past 1440, so this ordering
		// holds across midnight
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Departure.Minutes < group[j].Departure.Minutes
		})
		for i, st := range group {
			if i == 0 {
				st.HeadwayMin = DefaultHeadwayMin
			} else {
				st.HeadwayMin = st.Departure.Minutes - group[i-1].Departure.Minutes
			}
			assigned++
		}
	}

	if assigned != before || len(s.StopTimes) != before {
		return &IntegrityError{Table: "stop_times", Reason: fmt.Sprintf("row count changed during headway computation: %d != %d", assigned, before)}
	}
	return nil
}
