package weather

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/yegors/wxbridge/pkg/logger"
)

// SimulatedAircraftSource implements AircraftStateSource by dead-reckoning
// a single track, for local development and testing without a live
// simulator connection. Adapted from the teacher's simulated-aircraft
// dead-reckoning idiom, narrowed to exactly one track: this engine has one
// user aircraft, not a fleet.
type SimulatedAircraftSource struct {
	mu sync.Mutex

	lat, lon   float64
	altitudeFt float64
	headingDeg float64
	speedKt    float64
	onGround   bool

	lastUpdate time.Time
	logger     *logger.Logger
}

// NewSimulatedAircraftSource constructs a source starting at the given
// position, heading, speed, and altitude.
func NewSimulatedAircraftSource(lat, lon, altitudeFt, headingDeg, speedKt float64, log *logger.Logger) *SimulatedAircraftSource {
	return &SimulatedAircraftSource{
		lat:        lat,
		lon:        lon,
		altitudeFt: altitudeFt,
		headingDeg: headingDeg,
		speedKt:    speedKt,
		lastUpdate: time.Now().UTC(),
		logger:     log.Named("simulated-aircraft"),
	}
}

// FetchState advances the track by elapsed wall-clock time and returns the
// new position.
func (s *SimulatedAircraftSource) FetchState(ctx context.Context) (AircraftState, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	dt := now.Sub(s.lastUpdate).Seconds()
	s.lastUpdate = now

	if dt > 0 && s.speedKt > 0 {
		headingRad := (90 - s.headingDeg) * math.Pi / 180
		distanceNM := s.speedKt * dt / 3600
		s.lat += distanceNM * math.Sin(headingRad) / 60
		s.lon += distanceNM * math.Cos(headingRad) / (60 * math.Cos(s.lat*math.Pi/180))
	}

	return AircraftState{
		Lat:           s.lat,
		Lon:           s.lon,
		AltitudeFt:    s.altitudeFt,
		GroundSpeedKt: s.speedKt,
		HeadingDeg:    s.headingDeg,
		OnGround:      s.onGround,
	}, true, nil
}

// SetTarget updates the track's control parameters (heading, speed,
// altitude), e.g. to script a descent for approach-freeze testing.
func (s *SimulatedAircraftSource) SetTarget(headingDeg, speedKt, altitudeFt float64, onGround bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.headingDeg = headingDeg
	s.speedKt = speedKt
	s.altitudeFt = altitudeFt
	s.onGround = onGround
}
