package weather

import "time"

// CombiningMode selects how the combiner reconciles a METAR and a TAF for
// one scope.
type CombiningMode string

const (
	CombiningMetarOnly        CombiningMode = "metar_only"
	CombiningMetarTafFallback CombiningMode = "metar_taf_fallback"
	CombiningMetarTafAssist   CombiningMode = "metar_taf_assist"
)

// CombineConfig parameterizes Combine.
type CombineConfig struct {
	Mode                CombiningMode
	TafFallbackStaleSec float64
}

// Combine merges a parsed METAR and TAF for one scope into a TargetWeather,
// given the current time (used to judge METAR staleness and to select the
// active TAF group). Either input may be nil if the corresponding fetch
// failed or produced nothing.
func Combine(scope string, metar *ParsedMetar, taf *ParsedTaf, cfg CombineConfig, now time.Time) TargetWeather {
	switch cfg.Mode {
	case CombiningMetarTafFallback:
		return combineFallback(scope, metar, taf, cfg, now)
	case CombiningMetarTafAssist:
		return combineAssist(scope, metar, taf, now)
	default:
		return combineMetarOnly(scope, metar)
	}
}

func combineMetarOnly(scope string, metar *ParsedMetar) TargetWeather {
	if metar == nil {
		return TargetWeather{Scope: scope, Provenance: ProvenanceNone}
	}
	return TargetWeather{Scope: scope, Block: metar.Block, Provenance: ProvenanceMETAR}
}

func combineFallback(scope string, metar *ParsedMetar, taf *ParsedTaf, cfg CombineConfig, now time.Time) TargetWeather {
	if metar != nil {
		if issued, ok := metar.IssuedAt.Get(); ok {
			age := now.Sub(issued).Seconds()
			if age <= cfg.TafFallbackStaleSec {
				return TargetWeather{Scope: scope, Block: metar.Block, Provenance: ProvenanceMETAR}
			}
		} else {
			// unknown age: trust the METAR rather than discard good data
			return TargetWeather{Scope: scope, Block: metar.Block, Provenance: ProvenanceMETAR}
		}
	}

	if taf == nil {
		if metar != nil {
			return TargetWeather{Scope: scope, Block: metar.Block, Provenance: ProvenanceMETAR}
		}
		return TargetWeather{Scope: scope, Provenance: ProvenanceNone}
	}

	block := activeTafBlock(taf, now)
	return TargetWeather{Scope: scope, Block: block, Provenance: ProvenanceTAFFallback}
}

func combineAssist(scope string, metar *ParsedMetar, taf *ParsedTaf, now time.Time) TargetWeather {
	if metar == nil {
		if taf == nil {
			return TargetWeather{Scope: scope, Provenance: ProvenanceNone}
		}
		return TargetWeather{Scope: scope, Block: activeTafBlock(taf, now), Provenance: ProvenanceTAFAssist}
	}

	block := metar.Block
	if taf == nil {
		return TargetWeather{Scope: scope, Block: block, Provenance: ProvenanceMETAR}
	}

	tafBlock := activeTafBlock(taf, now)
	assisted := false

	// Wind is taken as an atomic triple: never mix direction from one
	// source with speed from another.
	if !block.Wind.DirDeg.Valid && !block.Wind.Variable && (tafBlock.Wind.DirDeg.Valid || tafBlock.Wind.Variable) {
		block.Wind = tafBlock.Wind
		assisted = true
	}
	if !block.VisibilitySM.Valid && tafBlock.VisibilitySM.Valid {
		block.VisibilitySM = tafBlock.VisibilitySM
		assisted = true
	}
	if !block.CloudsKnown && tafBlock.CloudsKnown {
		block.Clouds = tafBlock.Clouds
		block.CloudsKnown = true
		assisted = true
	}
	if !block.WeatherKnown && tafBlock.WeatherKnown {
		block.WeatherTokens = tafBlock.WeatherTokens
		block.WeatherKnown = true
		assisted = true
	}
	if !block.QNHHpa.Valid && tafBlock.QNHHpa.Valid {
		block.QNHHpa = tafBlock.QNHHpa
		assisted = true
	}

	provenance := ProvenanceMETAR
	if assisted {
		provenance = ProvenanceTAFAssist
	}
	return TargetWeather{Scope: scope, Block: block, Provenance: provenance}
}

// activeTafBlock returns the forecast block in effect at `now`: the most
// recently started FM group at or before now (or the prevailing block if
// none has started), with every BECMG group whose window contains now
// overlaid on it. TEMPO and PROB groups are not applied.
func activeTafBlock(taf *ParsedTaf, now time.Time) WeatherBlock {
	block := taf.Prevailing

	var latestFM *TafGroup
	for i := range taf.Groups {
		g := &taf.Groups[i]
		if g.Kind != TafGroupFM {
			continue
		}
		if !g.From.After(now) {
			if latestFM == nil || g.From.After(latestFM.From) {
				latestFM = g
			}
		}
	}
	if latestFM != nil {
		block = latestFM.Block
	}

	for i := range taf.Groups {
		g := &taf.Groups[i]
		if g.Kind != TafGroupBECMG {
			continue
		}
		if !now.Before(g.From) && now.Before(g.To) {
			block = mergeBlocks(block, g.Block)
		}
	}

	return block
}

// mergeBlocks overlays `overlay`'s known fields onto `base`, used for
// BECMG groups which only specify the fields that change.
func mergeBlocks(base, overlay WeatherBlock) WeatherBlock {
	out := base
	if overlay.Wind.DirDeg.Valid || overlay.Wind.Variable || overlay.Wind.SpeedKt.Valid {
		out.Wind = overlay.Wind
	}
	if overlay.VisibilitySM.Valid {
		out.VisibilitySM = overlay.VisibilitySM
	}
	if overlay.CloudsKnown {
		out.Clouds = overlay.Clouds
		out.CloudsKnown = true
	}
	if overlay.WeatherKnown {
		out.WeatherTokens = overlay.WeatherTokens
		out.WeatherKnown = true
	}
	if overlay.QNHHpa.Valid {
		out.QNHHpa = overlay.QNHHpa
	}
	return out
}
