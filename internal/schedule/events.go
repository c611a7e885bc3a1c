package schedule

// Events converts the finalized stop-time table into the event stream the
// simulation consumes: exactly two events per stop visit, one arrival and
// one departure. The generator is stateless and deterministic; the produced
// sequence is not sorted, and the consumer must order it by timestamp.
func (s *Schedule) Events() []Event {
	out := make([]Event, 0, 2*len(s.StopTimes))
	for _, st := range s.StopTimes {
		out = append(out,
			Event{
				TripID:       st.TripID,
				StopID:       st.StopID,
				StopSequence: st.StopSequence,
				Timestamp:    st.Arrival.At,
				Kind:         EventArrival,
			},
			Event{
				TripID:       st.TripID,
				StopID:       st.StopID,
				StopSequence: st.StopSequence,
				Timestamp:    st.Departure.At,
				Kind:         EventDeparture,
			})
	}
	return out
}
