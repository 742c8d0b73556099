package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/yegors/wxbridge/internal/config"
	"github.com/yegors/wxbridge/internal/weather"
	"github.com/yegors/wxbridge/pkg/logger"
)

var (
	// Version is injected at build time.
	Version = "dev"
)

func main() {
	configPath := os.Getenv("WXBRIDGE_CONFIG")

	cfg, err := config.LoadWithFallback(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("starting weather bridge", logger.String("version", Version))

	stations, err := weather.LoadStationsFromCSV(cfg.Stations.DatabaseCSVPath)
	if err != nil {
		log.Error("failed to load station database", logger.Error(err))
		os.Exit(1)
	}
	registry := weather.NewRegistry(stations)
	log.Info("station registry loaded", logger.Int("station_count", registry.Len()))

	fetchClient := weather.NewAviationWeatherClient(weather.FetchClientConfig{
		BaseURL:               cfg.Fetch.APIBaseURL,
		RequestTimeoutSeconds: cfg.Fetch.RequestTimeoutSeconds,
		MaxRetries:            cfg.Fetch.MaxRetries,
		RatePerSecond:         cfg.Fetch.RatePerSecond,
		Burst:                 cfg.Fetch.Burst,
	}, log)

	sink, err := weather.NewMmapSink(weather.MmapSinkConfig{
		Path:        cfg.Sink.Path,
		RegionBytes: cfg.Sink.RegionBytes,
	}, cfg.Selector.MaxStations+1, log)
	if err != nil {
		log.Error("failed to open injection sink", logger.Error(err))
		os.Exit(1)
	}
	defer sink.Close()

	var aircraftSource weather.AircraftStateSource
	if cfg.SimulatedAircraft.Enabled {
		aircraftSource = weather.NewSimulatedAircraftSource(
			cfg.SimulatedAircraft.Lat,
			cfg.SimulatedAircraft.Lon,
			cfg.SimulatedAircraft.AltitudeFt,
			cfg.SimulatedAircraft.HeadingDeg,
			cfg.SimulatedAircraft.SpeedKt,
			log,
		)
		log.Info("using simulated aircraft source")
	} else {
		log.Error("no aircraft state source configured; enable simulated_aircraft or wire a real source")
		os.Exit(1)
	}

	engineCfg := weather.EngineConfig{
		TickIntervalSeconds: cfg.Engine.TickIntervalSeconds,
		FetchTimeoutSeconds: cfg.Engine.FetchTimeoutSeconds,
		Selector: weather.SelectorConfig{
			RadiusNM:         cfg.Selector.RadiusNM,
			MaxStations:      cfg.Selector.MaxStations,
			FallbackToGlobal: cfg.Selector.FallbackToGlobal,
		},
		Combine: weather.CombineConfig{
			Mode:                weather.CombiningMode(cfg.Combining.Mode),
			TafFallbackStaleSec: cfg.Combining.TafFallbackStaleSeconds,
		},
		Smoothing: weather.SmoothingConfig{
			TransitionMode:            weather.TransitionMode(cfg.Smoothing.TransitionMode),
			TransitionIntervalSeconds: cfg.Smoothing.TransitionIntervalSeconds,
			MaxWindDirChangeDeg:       cfg.Smoothing.MaxWindDirChangeDeg,
			MaxWindSpeedChangeKt:      cfg.Smoothing.MaxWindSpeedChangeKt,
			MaxQNHChangeHpa:           cfg.Smoothing.MaxQNHChangeHpa,
			MaxVisibilityChangeSM:     cfg.Smoothing.MaxVisibilityChangeSM,
			WindDirStepDeg:            cfg.Smoothing.WindDirStepDeg,
			WindSpeedStepKt:           cfg.Smoothing.WindSpeedStepKt,
			QNHStepHpa:                cfg.Smoothing.QNHStepHpa,
			VisibilityStepM:           cfg.Smoothing.VisibilityStepM,
			CloudChangeThresholdFt:    cfg.Smoothing.CloudChangeThresholdFt,
			ApproachFreezeAltFt:       cfg.Smoothing.ApproachFreezeAltFt,
			BigChangeWindDirDeg:       cfg.Smoothing.BigChangeWindDirDeg,
			BigChangeWindSpeedKt:      cfg.Smoothing.BigChangeWindSpeedKt,
			BigChangeQNHHpa:           cfg.Smoothing.BigChangeQNHHpa,
			BigChangeVisibilitySM:     cfg.Smoothing.BigChangeVisibilitySM,
			VeryBigWindSpeedKt:        cfg.Smoothing.VeryBigWindSpeedKt,
			VeryBigVisibilitySM:       cfg.Smoothing.VeryBigVisibilitySM,
		},
	}

	if err := weather.ValidateEngineConfig(engineCfg); err != nil {
		log.Error("invalid engine configuration", logger.Error(err))
		os.Exit(1)
	}

	engine := weather.NewEngine(engineCfg, registry, aircraftSource, fetchClient, sink, log)
	if err := engine.Start(); err != nil {
		log.Error("failed to start weather engine", logger.Error(err))
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down weather bridge...")
	if err := engine.Stop(); err != nil {
		log.Error("error stopping weather engine", logger.Error(err))
	}
	log.Info("weather bridge stopped")
}
