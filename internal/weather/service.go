package weather

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/yegors/wxbridge/pkg/logger"
)

// EngineConfig bundles every tunable the orchestrator needs beyond the
// sub-component configs it owns directly.
type EngineConfig struct {
	TickIntervalSeconds float64
	FetchTimeoutSeconds float64

	Selector  SelectorConfig
	Combine   CombineConfig
	Smoothing SmoothingConfig
}

// DefaultEngineConfig returns the reference defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		TickIntervalSeconds: 1,
		FetchTimeoutSeconds: 10,
		Selector: SelectorConfig{
			RadiusNM:         50,
			MaxStations:      3,
			FallbackToGlobal: true,
		},
		Combine: CombineConfig{
			Mode:                CombiningMetarTafFallback,
			TafFallbackStaleSec: 300,
		},
		Smoothing: DefaultSmoothingConfig(),
	}
}

// Engine is the single-threaded cooperative orchestrator: one tick runs to
// completion before the next begins, suspending only on the external
// fetch/inject calls. It owns the station registry (read-only), the
// per-scope smoothers, and the external collaborators.
type Engine struct {
	cfg      EngineConfig
	registry *Registry

	aircraft AircraftStateSource
	fetch    FetchProvider
	sink     InjectionSink

	smoothers map[string]*Smoother
	lastTick  time.Time

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
	mu      sync.Mutex

	logger *logger.Logger
}

// NewEngine constructs an Engine. The registry, aircraft source, fetch
// provider, and sink are supplied by the caller (cmd/weatherbridge wires
// concrete implementations).
func NewEngine(cfg EngineConfig, registry *Registry, aircraft AircraftStateSource, fetch FetchProvider, sink InjectionSink, log *logger.Logger) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		cfg:       cfg,
		registry:  registry,
		aircraft:  aircraft,
		fetch:     fetch,
		sink:      sink,
		smoothers: make(map[string]*Smoother),
		ctx:       ctx,
		cancel:    cancel,
		logger:    log.Named("engine"),
	}
}

// Start begins the tick loop in a background goroutine.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return nil
	}

	e.logger.Info("starting weather engine",
		logger.Float64("tick_interval_seconds", e.cfg.TickIntervalSeconds),
		logger.Int("known_stations", e.registry.Len()))

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.runLoop()
	}()

	e.started = true
	return nil
}

// Stop cancels the tick loop and waits for the in-flight tick to finish,
// bounded by FetchTimeoutSeconds.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.started {
		return nil
	}

	e.logger.Info("stopping weather engine")
	e.cancel()
	e.wg.Wait()
	e.started = false
	e.logger.Info("weather engine stopped")
	return nil
}

func (e *Engine) runLoop() {
	interval := time.Duration(e.cfg.TickIntervalSeconds * float64(time.Second))
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.lastTick = time.Now()

	for {
		select {
		case <-e.ctx.Done():
			return
		case now := <-ticker.C:
			elapsed := now.Sub(e.lastTick).Seconds()
			e.lastTick = now
			e.runTick(elapsed)
		}
	}
}

// runTick executes one full cycle: select stations, fetch, parse,
// combine, smooth, synthesize, inject. It never returns an error to the
// caller — every failure is logged and the tick makes forward progress
// with whatever data is available.
func (e *Engine) runTick(elapsedSec float64) {
	runID := uuid.New().String()
	log := e.logger.With(logger.String("run_id", runID))

	ctx, cancel := context.WithTimeout(e.ctx, time.Duration(e.cfg.FetchTimeoutSeconds*float64(time.Second)))
	defer cancel()

	state, ok, err := e.aircraft.FetchState(ctx)
	if err != nil {
		log.Warn("aircraft state fetch failed", logger.Error(err))
		return
	}
	if !ok {
		log.Debug("aircraft state unavailable, skipping tick")
		return
	}

	stations := e.registry.SelectNearest(state.Lat, state.Lon, e.cfg.Selector)
	if len(stations) == 0 {
		log.Debug("no stations selected this tick")
		return
	}

	icaos := make([]string, 0, len(stations))
	for _, s := range stations {
		if s.ICAO != GlobalScope {
			icaos = append(icaos, s.ICAO)
		}
	}

	var fetchErr error
	var metars map[string]RawReport
	var tafs map[string]RawReport

	if len(icaos) > 0 {
		metars, err = e.fetch.FetchMETAR(ctx, icaos)
		if err != nil {
			fetchErr = multierr.Append(fetchErr, fmt.Errorf("metar fetch: %w", err))
		}
		if e.cfg.Combine.Mode != CombiningMetarOnly {
			tafs, err = e.fetch.FetchTAF(ctx, icaos)
			if err != nil {
				fetchErr = multierr.Append(fetchErr, fmt.Errorf("taf fetch: %w", err))
			}
		}
	}
	if fetchErr != nil {
		log.Warn("fetch errors this tick", logger.Error(fetchErr))
	}

	now := time.Now().UTC()

	for _, station := range stations {
		var parsedMetar *ParsedMetar
		var parsedTaf *ParsedTaf

		if raw, ok := metars[station.ICAO]; ok {
			if pm, err := ParseMetar(raw.Text, now); err == nil {
				parsedMetar = &pm
				log.Debug("parsed metar",
					logger.String("icao", station.ICAO),
					logger.String("age", humanize.Time(raw.IssuedAt)))
			} else {
				log.Warn("metar parse failed", logger.String("icao", station.ICAO), logger.Error(err))
			}
		}
		if raw, ok := tafs[station.ICAO]; ok {
			if pt, err := ParseTaf(raw.Text, now); err == nil {
				parsedTaf = &pt
			} else {
				log.Warn("taf parse failed", logger.String("icao", station.ICAO), logger.Error(err))
			}
		}

		target := Combine(station.ICAO, parsedMetar, parsedTaf, e.cfg.Combine, now)
		if target.Provenance == ProvenanceNone {
			continue
		}

		smoother, exists := e.smoothers[station.ICAO]
		if !exists {
			smoother = NewSmoother(station.ICAO, e.cfg.Smoothing)
			e.smoothers[station.ICAO] = smoother
		}

		current, changed := smoother.Tick(target, state, elapsedSec)
		if !changed {
			continue
		}

		metarStr := Synthesize(current, now)
		if err := e.sink.Inject(station.ICAO, PackMetar(metarStr)); err != nil {
			log.Warn("injection failed", logger.String("icao", station.ICAO), logger.Error(err))
			continue
		}
		log.Debug("injected metar", logger.String("icao", station.ICAO), logger.String("metar", metarStr))
	}

	e.pruneStaleSmoothers(stations)
}

// pruneStaleSmoothers drops smoother state for scopes no longer selected,
// so a station that falls out of range doesn't leak memory across a long
// flight.
func (e *Engine) pruneStaleSmoothers(selected []Station) {
	keep := make(map[string]bool, len(selected))
	for _, s := range selected {
		keep[s.ICAO] = true
	}
	for icao := range e.smoothers {
		if !keep[icao] {
			delete(e.smoothers, icao)
		}
	}
}

// ValidateEngineConfig validates an EngineConfig, returning a descriptive
// error for the first invalid field found.
func ValidateEngineConfig(cfg EngineConfig) error {
	if cfg.TickIntervalSeconds <= 0 {
		return fmt.Errorf("tick_interval_seconds must be greater than 0")
	}
	if cfg.FetchTimeoutSeconds <= 0 {
		return fmt.Errorf("fetch_timeout_seconds must be greater than 0")
	}
	if cfg.Selector.RadiusNM <= 0 {
		return fmt.Errorf("radius_nm must be greater than 0")
	}
	if cfg.Selector.MaxStations <= 0 {
		return fmt.Errorf("max_stations must be greater than 0")
	}
	switch cfg.Combine.Mode {
	case CombiningMetarOnly, CombiningMetarTafFallback, CombiningMetarTafAssist:
	default:
		return fmt.Errorf("combining_mode must be one of metar_only, metar_taf_fallback, metar_taf_assist")
	}
	if cfg.Combine.Mode == CombiningMetarTafFallback && cfg.Combine.TafFallbackStaleSec <= 0 {
		return fmt.Errorf("taf_fallback_stale_seconds must be greater than 0 for metar_taf_fallback mode")
	}
	switch cfg.Smoothing.TransitionMode {
	case TransitionStepLimited, TransitionTimeBased:
	default:
		return fmt.Errorf("transition_mode must be step_limited or time_based")
	}
	if cfg.Smoothing.ApproachFreezeAltFt < 0 {
		return fmt.Errorf("approach_freeze_alt_ft must be 0 or greater")
	}
	return nil
}
