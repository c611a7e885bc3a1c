// Package feed extracts the base schedule records from a GTFS static feed.
// It yields plain row records; all joining, validation, and time
// normalization happens in the schedule package.
package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/OneBusAway/go-gtfs"

	"headway.opentransitsoftware.org/internal/logging"
	"headway.opentransitsoftware.org/internal/schedule"
)

// Records are the base rows extracted from one GTFS static feed.
type Records struct {
	Trips     []schedule.TripRecord
	StopTimes []schedule.StopTimeRecord
	Calendar  []schedule.CalendarRecord

	// StopIDs is the set of stop identifiers the feed defines, used to
	// detect dangling stop references during assembly.
	StopIDs map[string]struct{}
}

// FromFile reads and parses a GTFS zip from a local path.
func FromFile(path string) (*Records, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading local GTFS file: %w", err)
	}
	return fromBytes(b)
}

// Download fetches a GTFS zip from a URL. An auth header is attached when
// both key and value are non-empty.
func Download(ctx context.Context, url, authHeaderKey, authHeaderValue string) (*Records, error) {
	const maxStaticSize = 200 * 1024 * 1024
	b, err := fetch(ctx, url, authHeaderKey, authHeaderValue, maxStaticSize)
	if err != nil {
		return nil, err
	}
	return fromBytes(b)
}

func fetch(ctx context.Context, url, authHeaderKey, authHeaderValue string, maxSize int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating GTFS request: %w", err)
	}

	// Add auth header if provided
	if authHeaderKey != "" && authHeaderValue != "" {
		req.Header.Set(authHeaderKey, authHeaderValue)
	}

	client := &http.Client{
		Timeout: 5 * time.Minute,
		Transport: &http.Transport{
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 30 * time.Second,
			IdleConnTimeout:       90 * time.Second,
		}}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error downloading GTFS data: %w", err)
	}
	defer logging.SafeCloseWithLogging(resp.Body,
		slog.Default().With(slog.String("component", "feed_downloader")),
		"http_response_body")

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download GTFS data: received HTTP status %s", resp.Status)
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("error reading GTFS data: %w", err)
	}
	if int64(len(b)) > maxSize {
		return nil, fmt.Errorf("static GTFS response exceeds size limit of %d bytes", maxSize)
	}

	return b, nil
}

func fromBytes(b []byte) (*Records, error) {
	staticData, err := gtfs.ParseStatic(b, gtfs.ParseStaticOptions{})
	if err != nil {
		return nil, fmt.Errorf("error parsing GTFS data: %w", err)
	}
	return fromStatic(staticData), nil
}

func fromStatic(staticData *gtfs.Static) *Records {
	rec := &Records{
		StopIDs: make(map[string]struct{}, len(staticData.Stops)),
	}

	for i := range staticData.Stops {
		rec.StopIDs[staticData.Stops[i].Id] = struct{}{}
	}

	for _, t := range staticData.Trips {
		// shapes.txt is optional in GTFS
		var shapeID string
		if t.Shape != nil {
			shapeID = t.Shape.ID
		}
		rec.Trips = append(rec.Trips, schedule.TripRecord{
			TripID:      t.ID,
			RouteID:     t.Route.Id,
			ServiceID:   t.Service.Id,
			DirectionID: int(t.DirectionId),
			ShapeID:     shapeID,
			ServiceType: schedule.ServiceType(t.Route.Type),
		})

		for _, st := range t.StopTimes {
			rec.StopTimes = append(rec.StopTimes, schedule.StopTimeRecord{
				TripID:        t.ID,
				StopID:        st.Stop.Id,
				StopSequence:  st.StopSequence,
				ArrivalTime:   formatTimeOfDay(st.ArrivalTime),
				DepartureTime: formatTimeOfDay(st.DepartureTime),
			})
		}
	}

	for _, s := range staticData.Services {
		rec.Calendar = append(rec.Calendar, schedule.CalendarRecord{
			ServiceID: s.Id,
			StartDate: s.StartDate.Format("20060102"),
			EndDate:   s.EndDate.Format("20060102"),
			Weekdays: [7]bool{
				time.Sunday:    s.Sunday,
				time.Monday:    s.Monday,
				time.Tuesday:   s.Tuesday,
				time.Wednesday: s.Wednesday,
				time.Thursday:  s.Thursday,
				time.Friday:    s.Friday,
				time.Saturday:  s.Saturday,
			},
		})
	}

	return rec
}

// formatTimeOfDay renders a GTFS time offset as HH:MM:SS, keeping hours of
// 24 and above for post-midnight service.
func formatTimeOfDay(d time.Duration) string {
	secs := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60)
}
