package weather

import (
	"github.com/yegors/wxbridge/internal/geo"
)

// TransitionMode selects whether the smoother limits change per tick
// (StepLimited) or accumulates elapsed time and applies whole steps on a
// fixed cadence (TimeBased).
type TransitionMode string

const (
	TransitionStepLimited TransitionMode = "step_limited"
	TransitionTimeBased   TransitionMode = "time_based"
)

// SmoothingConfig holds every tunable the smoother's per-field rules and
// big-change detection depend on. Defaults mirror the reference
// implementation's validated bounds.
type SmoothingConfig struct {
	TransitionMode             TransitionMode
	TransitionIntervalSeconds  float64

	MaxWindDirChangeDeg   float64
	MaxWindSpeedChangeKt  float64
	MaxQNHChangeHpa       float64
	MaxVisibilityChangeSM float64

	WindDirStepDeg    float64
	WindSpeedStepKt   float64
	QNHStepHpa        float64
	VisibilityStepM   float64

	CloudChangeThresholdFt float64

	ApproachFreezeAltFt float64

	BigChangeWindDirDeg    float64
	BigChangeWindSpeedKt   float64
	BigChangeQNHHpa        float64
	BigChangeVisibilitySM  float64
	VeryBigWindSpeedKt     float64
	VeryBigVisibilitySM    float64
}

// DefaultSmoothingConfig returns the reference defaults.
func DefaultSmoothingConfig() SmoothingConfig {
	return SmoothingConfig{
		TransitionMode:            TransitionStepLimited,
		TransitionIntervalSeconds: 30,

		MaxWindDirChangeDeg:   5,
		MaxWindSpeedChangeKt:  2,
		MaxQNHChangeHpa:       0.5,
		MaxVisibilityChangeSM: 0.5,

		WindDirStepDeg:  5,
		WindSpeedStepKt: 2,
		QNHStepHpa:      0.5,
		VisibilityStepM: 500,

		CloudChangeThresholdFt: 1000,

		ApproachFreezeAltFt: 1000,

		BigChangeWindDirDeg:   30,
		BigChangeWindSpeedKt:  10,
		BigChangeQNHHpa:       5,
		BigChangeVisibilitySM: 5,
		VeryBigWindSpeedKt:    20,
		VeryBigVisibilitySM:   10,
	}
}

// Smoother advances one scope's CurrentWeather toward a TargetWeather,
// tick by tick, under the rules in SmoothingConfig.
type Smoother struct {
	cfg SmoothingConfig

	current        CurrentWeather
	frozen         bool
	secondsAccrued float64
}

// NewSmoother constructs a Smoother for one scope, uninitialized.
func NewSmoother(scope string, cfg SmoothingConfig) *Smoother {
	return &Smoother{
		cfg:     cfg,
		current: CurrentWeather{Scope: scope},
	}
}

// Current returns the smoother's present state.
func (s *Smoother) Current() CurrentWeather {
	return s.current
}

// Tick advances the smoother by one step given the latest target, aircraft
// state, and elapsed seconds since the previous tick. It returns the new
// current state and whether anything changed.
func (s *Smoother) Tick(target TargetWeather, aircraft AircraftState, elapsedSec float64) (CurrentWeather, bool) {
	if !s.current.Initialized {
		s.current.Block = target.Block
		s.current.Initialized = true
		return s.current, true
	}

	big, veryBig := s.detectBigChange(target.Block)

	freeze := aircraft.AltitudeFt <= s.cfg.ApproachFreezeAltFt && !aircraft.OnGround
	s.frozen = freeze

	if freeze && !big {
		return s.current, false
	}

	multiplier := 1.0
	if veryBig {
		multiplier = 50.0
	} else if big {
		multiplier = 10.0
	}

	s.secondsAccrued += elapsedSec
	changed := false

	if s.cfg.TransitionMode == TransitionTimeBased {
		intervals := 0.0
		if s.cfg.TransitionIntervalSeconds > 0 {
			intervals = s.secondsAccrued / s.cfg.TransitionIntervalSeconds
		}
		if intervals >= 1 {
			steps := float64(int(intervals))
			s.secondsAccrued -= steps * s.cfg.TransitionIntervalSeconds
			changed = s.applyStep(target.Block, steps, multiplier) || changed
		}
	} else {
		changed = s.applyStep(target.Block, 1, multiplier) || changed
	}

	return s.current, changed
}

// applyStep applies `steps` worth of per-field step limits, scaled by
// multiplier, clamped so the result never overshoots the target.
func (s *Smoother) applyStep(target WeatherBlock, steps, multiplier float64) bool {
	changed := false
	cur := &s.current.Block

	// Wind direction: shortest-arc, no smoothing while variable on either side.
	if target.Wind.Variable {
		if !cur.Wind.Variable {
			cur.Wind.Variable = true
			cur.Wind.DirDeg = Absent[int]()
			changed = true
		}
	} else if target.Wind.DirDeg.Valid {
		maxStep := s.cfg.WindDirStepDeg
		if s.cfg.TransitionMode == TransitionStepLimited {
			maxStep = s.cfg.MaxWindDirChangeDeg
		}
		maxStep *= steps * multiplier
		if !cur.Wind.DirDeg.Valid {
			cur.Wind.DirDeg = target.Wind.DirDeg
			cur.Wind.Variable = false
			changed = true
		} else {
			next := int(geo.StepTowardDeg(float64(cur.Wind.DirDeg.Value), float64(target.Wind.DirDeg.Value), maxStep))
			if next != cur.Wind.DirDeg.Value {
				cur.Wind.DirDeg = Known(next)
				cur.Wind.Variable = false
				changed = true
			}
		}
	}

	if target.Wind.SpeedKt.Valid {
		maxStep := s.cfg.WindSpeedStepKt
		if s.cfg.TransitionMode == TransitionStepLimited {
			maxStep = s.cfg.MaxWindSpeedChangeKt
		}
		maxStep *= steps * multiplier
		if !cur.Wind.SpeedKt.Valid {
			cur.Wind.SpeedKt = target.Wind.SpeedKt
			changed = true
		} else {
			next := int(geo.StepToward(float64(cur.Wind.SpeedKt.Value), float64(target.Wind.SpeedKt.Value), maxStep))
			if next != cur.Wind.SpeedKt.Value {
				cur.Wind.SpeedKt = Known(next)
				changed = true
			}
		}
	}

	// Gust: stepped like wind speed, dropped when not above the speed.
	prevGust := cur.Wind.GustKt
	if target.Wind.GustKt.Valid && cur.Wind.GustKt.Valid {
		maxStep := s.cfg.WindSpeedStepKt
		if s.cfg.TransitionMode == TransitionStepLimited {
			maxStep = s.cfg.MaxWindSpeedChangeKt
		}
		maxStep *= steps * multiplier
		cur.Wind.GustKt = Known(int(geo.StepToward(float64(cur.Wind.GustKt.Value), float64(target.Wind.GustKt.Value), maxStep)))
	} else {
		cur.Wind.GustKt = target.Wind.GustKt
	}
	if cur.Wind.GustKt.Valid && cur.Wind.SpeedKt.Valid && cur.Wind.GustKt.Value <= cur.Wind.SpeedKt.Value {
		cur.Wind.GustKt = Absent[int]()
	}
	if cur.Wind.GustKt != prevGust {
		changed = true
	}

	if target.QNHHpa.Valid {
		maxStep := s.cfg.QNHStepHpa
		if s.cfg.TransitionMode == TransitionStepLimited {
			maxStep = s.cfg.MaxQNHChangeHpa
		}
		maxStep *= steps * multiplier
		if !cur.QNHHpa.Valid {
			cur.QNHHpa = target.QNHHpa
			changed = true
		} else {
			next := int(geo.StepToward(float64(cur.QNHHpa.Value), float64(target.QNHHpa.Value), maxStep))
			if next != cur.QNHHpa.Value {
				cur.QNHHpa = Known(next)
				changed = true
			}
		}
	}

	if target.VisibilitySM.Valid {
		maxStepM := s.cfg.VisibilityStepM
		if s.cfg.TransitionMode == TransitionStepLimited {
			maxStepM = s.cfg.MaxVisibilityChangeSM * geo.SMToMeters
		}
		maxStepM *= steps * multiplier
		if !cur.VisibilitySM.Valid {
			cur.VisibilitySM = target.VisibilitySM
			changed = true
		} else {
			curM := cur.VisibilitySM.Value * geo.SMToMeters
			targetM := target.VisibilitySM.Value * geo.SMToMeters
			nextM := geo.StepToward(curM, targetM, maxStepM)
			next := nextM / geo.SMToMeters
			if next != cur.VisibilitySM.Value {
				cur.VisibilitySM = Known(next)
				changed = true
			}
		}
	}

	// Temperature/dewpoint: instant, no smoothing.
	if target.TemperatureC.Valid && target.TemperatureC != cur.TemperatureC {
		cur.TemperatureC = target.TemperatureC
		changed = true
	}
	if target.DewpointC.Valid && target.DewpointC != cur.DewpointC {
		cur.DewpointC = target.DewpointC
		changed = true
	}

	if s.smoothClouds(target) {
		changed = true
	}

	if target.WeatherKnown {
		if !sameWeatherTokens(cur.WeatherTokens, target.WeatherTokens) {
			cur.WeatherTokens = target.WeatherTokens
			cur.WeatherKnown = true
			changed = true
		}
	}

	return changed
}

// smoothClouds implements the threshold-based add/remove/interpolate
// contract: a current layer with a same-coverage target layer within
// CloudChangeThresholdFt takes that target layer's base (a move of at most
// the threshold in one tick); a target layer with no such match is added
// outright; a current layer with no matching target layer is removed.
func (s *Smoother) smoothClouds(target WeatherBlock) bool {
	if !target.CloudsKnown {
		return false
	}
	cur := &s.current.Block
	threshold := s.cfg.CloudChangeThresholdFt
	changed := false

	matched := make([]bool, len(target.Clouds))
	next := make([]CloudLayer, 0, len(target.Clouds))

	for _, c := range cur.Clouds {
		bestIdx := -1
		bestDelta := threshold + 1
		for i, t := range target.Clouds {
			if matched[i] || t.Coverage != c.Coverage {
				continue
			}
			delta := t.BaseFt - c.BaseFt
			if delta < 0 {
				delta = -delta
			}
			if float64(delta) < bestDelta {
				bestDelta = float64(delta)
				bestIdx = i
			}
		}
		if bestIdx >= 0 {
			matched[bestIdx] = true
			t := target.Clouds[bestIdx]
			base := c.BaseFt
			if float64(t.BaseFt-c.BaseFt) > threshold {
				base = c.BaseFt + int(threshold)
				changed = true
			} else if float64(c.BaseFt-t.BaseFt) > threshold {
				base = c.BaseFt - int(threshold)
				changed = true
			} else {
				base = t.BaseFt
			}
			next = append(next, CloudLayer{Coverage: c.Coverage, BaseFt: base})
		} else {
			changed = true // layer removed
		}
	}

	for i, t := range target.Clouds {
		if !matched[i] {
			next = append(next, t)
			changed = true
		}
	}

	cur.Clouds = next
	cur.CloudsKnown = true
	return changed
}

func sameWeatherTokens(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// detectBigChange implements the big/very-big change predicate against the
// smoother's current state.
func (s *Smoother) detectBigChange(target WeatherBlock) (big bool, veryBig bool) {
	cur := s.current.Block

	windDirDelta := 0.0
	if cur.Wind.DirDeg.Valid && target.Wind.DirDeg.Valid {
		windDirDelta = geo.ShortestArcDelta(float64(cur.Wind.DirDeg.Value), float64(target.Wind.DirDeg.Value))
		if windDirDelta < 0 {
			windDirDelta = -windDirDelta
		}
	}
	if windDirDelta > s.cfg.BigChangeWindDirDeg {
		big = true
	}

	windSpeedDelta := 0.0
	if cur.Wind.SpeedKt.Valid && target.Wind.SpeedKt.Valid {
		windSpeedDelta = float64(target.Wind.SpeedKt.Value - cur.Wind.SpeedKt.Value)
		if windSpeedDelta < 0 {
			windSpeedDelta = -windSpeedDelta
		}
	}
	if windSpeedDelta > s.cfg.BigChangeWindSpeedKt {
		big = true
	}

	qnhDelta := 0.0
	if cur.QNHHpa.Valid && target.QNHHpa.Valid {
		qnhDelta = float64(target.QNHHpa.Value - cur.QNHHpa.Value)
		if qnhDelta < 0 {
			qnhDelta = -qnhDelta
		}
	}
	if qnhDelta > s.cfg.BigChangeQNHHpa {
		big = true
	}

	visDelta := 0.0
	if cur.VisibilitySM.Valid && target.VisibilitySM.Valid {
		visDelta = target.VisibilitySM.Value - cur.VisibilitySM.Value
		crossesFive := (cur.VisibilitySM.Value < 5) != (target.VisibilitySM.Value < 5)
		if visDelta < 0 {
			visDelta = -visDelta
		}
		if crossesFive || visDelta > s.cfg.BigChangeVisibilitySM {
			big = true
		}
	}

	if cloudClearToOvercast(cur, target) {
		big = true
	}

	if big && (windSpeedDelta > s.cfg.VeryBigWindSpeedKt || visDelta > s.cfg.VeryBigVisibilitySM) {
		veryBig = true
	}

	return big, veryBig
}

func cloudClearToOvercast(cur, target WeatherBlock) bool {
	if !cur.CloudsKnown || !target.CloudsKnown {
		return false
	}
	curClear := len(cur.Clouds) == 0
	targetOvercast := hasOvercast(target.Clouds)
	targetClear := len(target.Clouds) == 0
	curOvercast := hasOvercast(cur.Clouds)

	return (curClear && targetOvercast) || (curOvercast && targetClear)
}

func hasOvercast(layers []CloudLayer) bool {
	for _, l := range layers {
		if l.Coverage == "OVC" {
			return true
		}
	}
	return false
}
