package feed

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"headway.opentransitsoftware.org/internal/schedule"
)

func buildGTFSZip(t *testing.T) []byte {
	t.Helper()

	files := map[string]string{
		"agency.txt": "agency_id,agency_name,agency_url,agency_timezone\n" +
			"A1,Example Transit,https://transit.example,America/Los_Angeles\n",
		"routes.txt": "route_id,agency_id,route_short_name,route_type\n" +
			"R1,A1,1,3\n" +
			"R2,A1,2,0\n",
		"stops.txt": "stop_id,stop_name,stop_lat,stop_lon\n" +
			"S1,First,45.5,-122.6\n" +
			"S2,Second,45.6,-122.7\n",
		"trips.txt": "route_id,service_id,trip_id,direction_id\n" +
			"R1,WKDY,T1,0\n" +
			"R2,WKDY,T2,1\n",
		"stop_times.txt": "trip_id,arrival_time,departure_time,stop_id,stop_sequence\n" +
			"T1,08:00:00,08:00:30,S1,1\n" +
			"T1,08:10:00,08:10:30,S2,2\n" +
			"T2,25:07:00,25:08:00,S1,1\n" +
			"T2,25:20:00,25:20:00,S2,2\n",
		"calendar.txt": "service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date\n" +
			"WKDY,1,1,1,1,1,0,0,20151101,20151231\n",
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := zw.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.zip")
	require.NoError(t, os.WriteFile(path, buildGTFSZip(t), 0o644))

	rec, err := FromFile(path)
	require.NoError(t, err)

	require.Len(t, rec.Trips, 2)
	require.Len(t, rec.StopTimes, 4)
	require.Len(t, rec.Calendar, 1)
	assert.Len(t, rec.StopIDs, 2)
}

func TestFromFile_TripRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.zip")
	require.NoError(t, os.WriteFile(path, buildGTFSZip(t), 0o644))

	rec, err := FromFile(path)
	require.NoError(t, err)

	byID := map[string]schedule.TripRecord{}
	for _, tr := range rec.Trips {
		byID[tr.TripID] = tr
	}

	t1 := byID["T1"]
	assert.Equal(t, "R1", t1.RouteID)
	assert.Equal(t, "WKDY", t1.ServiceID)
	assert.Equal(t, 0, t1.DirectionID)
	assert.Equal(t, schedule.ServiceTypeBus, t1.ServiceType)

	t2 := byID["T2"]
	assert.Equal(t, 1, t2.DirectionID)
	assert.Equal(t, schedule.ServiceTypeTram, t2.ServiceType)
}

func TestFromFile_StopTimeStrings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.zip")
	require.NoError(t, os.WriteFile(path, buildGTFSZip(t), 0o644))

	rec, err := FromFile(path)
	require.NoError(t, err)

	var t1First, t2First schedule.StopTimeRecord
	for _, st := range rec.StopTimes {
		if st.TripID == "T1" && st.StopSequence == 1 {
			t1First = st
		}
		if st.TripID == "T2" && st.StopSequence == 1 {
			t2First = st
		}
	}

	assert.Equal(t, "08:00:00", t1First.ArrivalTime)
	assert.Equal(t, "08:00:30", t1First.DepartureTime)

	// post-midnight times keep the hour-overflow form
	assert.Equal(t, "25:07:00", t2First.ArrivalTime)
	assert.Equal(t, "25:08:00", t2First.DepartureTime)
}

func TestFromFile_Calendar(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.zip")
	require.NoError(t, os.WriteFile(path, buildGTFSZip(t), 0o644))

	rec, err := FromFile(path)
	require.NoError(t, err)

	cal := rec.Calendar[0]
	assert.Equal(t, "WKDY", cal.ServiceID)
	assert.Equal(t, "20151101", cal.StartDate)
	assert.Equal(t, "20151231", cal.EndDate)
	assert.True(t, cal.Weekdays[1])  // Monday
	assert.False(t, cal.Weekdays[0]) // Sunday
}

func TestFromFile_Missing(t *testing.T) {
	_, err := FromFile(filepath.Join(t.TempDir(), "missing.zip"))
	require.Error(t, err)
}

func TestFromFile_NotAZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.zip")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0o644))

	_, err := FromFile(path)
	require.Error(t, err)
}

func TestDownload(t *testing.T) {
	zipBytes := buildGTFSZip(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(zipBytes)
	}))
	defer server.Close()

	rec, err := Download(context.Background(), server.URL, "", "")
	require.NoError(t, err)

	assert.Len(t, rec.Trips, 2)
	assert.Len(t, rec.StopTimes, 4)
	assert.Len(t, rec.Calendar, 1)
}

func TestDownload_AuthHeader(t *testing.T) {
	zipBytes := buildGTFSZip(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-Key") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write(zipBytes)
	}))
	defer server.Close()

	// without the header the server rejects the request
	_, err := Download(context.Background(), server.URL, "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")

	rec, err := Download(context.Background(), server.URL, "X-Api-Key", "secret")
	require.NoError(t, err)
	assert.Len(t, rec.Trips, 2)
}

func TestDownload_Non200Response(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	_, err := Download(context.Background(), server.URL, "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestFetch_SizeCap(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(bytes.Repeat([]byte("x"), 2048))
	}))
	defer server.Close()

	_, err := fetch(context.Background(), server.URL, "", "", 1024)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "size limit")

	// a body exactly at the cap is accepted
	b, err := fetch(context.Background(), server.URL, "", "", 2048)
	require.NoError(t, err)
	assert.Len(t, b, 2048)
}
