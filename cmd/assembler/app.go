package main

import (
	"errors"
	"log/slog"

	"headway.opentransitsoftware.org/internal/app"
	"headway.opentransitsoftware.org/internal/appconf"
	"headway.opentransitsoftware.org/internal/clock"
	"headway.opentransitsoftware.org/internal/metrics"
)

// BuildApplication validates the configuration and wires the shared
// dependencies for an assembly run.
func BuildApplication(cfg appconf.Config, sources app.Sources) (*app.Application, error) {
	if sources.GTFSPath == "" {
		return nil, errors.New("a GTFS feed path or URL is required")
	}
	if sources.TripAttrsPath == "" {
		return nil, errors.New("a supplemental trips table path is required")
	}
	if sources.VehiclesPath == "" {
		return nil, errors.New("a vehicle types table path is required")
	}

	logger := slog.Default().With(slog.String("component", "assembler"))

	return &app.Application{
		Config:  cfg,
		Sources: sources,
		Logger:  logger,
		Clock:   clock.RealClock{},
		Metrics: metrics.NewWithLogger(logger),
	}, nil
}
