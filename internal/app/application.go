package app

import (
	"log/slog"

	"headway.opentransitsoftware.org/internal/appconf"
	"headway.opentransitsoftware.org/internal/clock"
	"headway.opentransitsoftware.org/internal/metrics"
)

// Application holds the dependencies for one assembly run: configuration,
// source locations, and the shared logger, clock, and metrics instances.
type Application struct {
	Config  appconf.Config
	Sources Sources
	Logger  *slog.Logger
	Clock   clock.Clock
	Metrics *metrics.Metrics
}

// Sources names the inputs and outputs of an assembly run.
type Sources struct {
	// GTFSPath is a local zip path or an http(s) URL.
	GTFSPath string

	// GTFSAuthHeaderKey and GTFSAuthHeaderValue, when both set, are sent
	// as a request header on feed downloads.
	GTFSAuthHeaderKey   string
	GTFSAuthHeaderValue string

	// Supplemental table paths. TripAttrsPath and VehiclesPath are
	// required; StopTimeAttrsPath is optional.
	TripAttrsPath     string
	VehiclesPath      string
	StopTimeAttrsPath string

	// ServiceDate is YYYYMMDD. Empty means the clock's current day.
	ServiceDate string

	// DBPath, when set, persists the assembled schedule to SQLite.
	DBPath string

	// ReportPath, when set, writes the tab-delimited load report.
	ReportPath string
}
