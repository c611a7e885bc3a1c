package schedule

import "fmt"

// StopResult carries one stop visit's passenger exchange from a simulation
// run back onto the schedule.
type StopResult struct {
	TripID       string
	StopSequence int
	Boards       int
	Alights      int
}

// AttachResults writes simulation results onto the stop-time table and
// recomputes vehicle load as the running balance of boardings and
// alightings along each trip. Results are owned by a single simulation run;
// call ResetResults before attaching a new run's output.
func (s *Schedule) AttachResults(results []StopResult) error {
	for _, r := range results {
		st, ok := s.StopTimeAt(r.TripID, r.StopSequence)
		if !ok {
			return &LookupError{Kind: "trip", Key: fmt.Sprintf("(%s, %d)", r.TripID, r.StopSequence), Ref: "simulation result"}
		}
		st.Boards = r.Boards
		st.Alights = r.Alights
	}

	// StopTimes is ordered by trip then sequence, so a single pass
	// accumulates load per trip.
	load := 0
	lastTrip := ""
	for _, st := range s.StopTimes {
		if st.TripID != lastTrip {
			load = 0
			lastTrip = st.TripID
		}
		load += st.Boards - st.Alights
		st.Load = load
	}
	return nil
}

// ResetResults clears all simulation-owned fields, including the derived
// dwell and headway columns that depend on them.
func (s *Schedule) ResetResults() {
	for _, st := range s.StopTimes {
		st.Boards = 0
		st.Alights = 0
		st.Load = 0
		st.DwellTimeSec = 0
		st.HeadwayMin = 0
	}
}
