package schedule

import (
	"time"
)

// Schedule is the assembled, validated schedule: the canonical trip and
// stop-time tables plus the reverse-lookup indexes. It is built once per
// assembly run from immutable source snapshots and is read-only afterwards,
// except for the simulation-result fields on StopTime.
type Schedule struct {
	// ServiceDate anchors every time-of-day value in the schedule.
	ServiceDate time.Time

	Trips     []*Trip
	TripsByID map[string]*Trip

	Vehicles map[string]*Vehicle

	ServicePeriods []*ServicePeriod

	// StopTimes is ordered by trip, then stop sequence.
	StopTimes []*StopTime

	// RouteTrips and StopVisits let route and stop entities enumerate the
	// trips that serve them without re-scanning the stop-time table.
	RouteTrips map[string][]*Trip
	StopVisits map[string][]StopVisit

	stopTimeIdx map[stopTimeKey]*StopTime
}

type stopTimeKey struct {
	tripID       string
	stopSequence int
}

// StopTimesForTrip returns the trip's stop times in stop-sequence order.
func (s *Schedule) StopTimesForTrip(tripID string) []*StopTime {
	var out []*StopTime
	for _, st := range s.StopTimes {
		if st.TripID == tripID {
			out = append(out, st)
		}
	}
	return out
}

// NumberOfStops returns how many stops the trip visits.
func (s *Schedule) NumberOfStops(tripID string) int {
	return len(s.StopTimesForTrip(tripID))
}

// StopTimeAt returns the stop time for the (trip, sequence) key.
func (s *Schedule) StopTimeAt(tripID string, stopSequence int) (*StopTime, bool) {
	st, ok := s.stopTimeIdx[stopTimeKey{tripID, stopSequence}]
	return st, ok
}

// ScheduledDeparture returns the scheduled departure for the first visit the
// trip makes to the given stop.
func (s *Schedule) ScheduledDeparture(tripID, stopID string) (time.Time, error) {
	for _, st := range s.StopTimesForTrip(tripID) {
		if st.StopID == stopID {
			return st.Departure.At, nil
		}
	}
	return time.Time{}, &LookupError{Kind: "stop", Key: stopID, Ref: "trip " + tripID}
}

// buildIndexes materializes the reverse-lookup structures in a single pass
// after the trip and stop-time tables are final, so no consumer ever sees
// partially-constructed shared state.
func (s *Schedule) buildIndexes() {
	s.RouteTrips = make(map[string][]*Trip)
	for _, t := range s.Trips {
		s.RouteTrips[t.RouteID] = append(s.RouteTrips[t.RouteID], t)
	}

	s.StopVisits = make(map[string][]StopVisit)
	for _, st := range s.StopTimes {
		trip := s.TripsByID[st.TripID]
		s.StopVisits[st.StopID] = append(s.StopVisits[st.StopID], StopVisit{
			Trip:         trip,
			StopSequence: st.StopSequence,
		})
	}
}
