package weather

import (
	"testing"
	"time"
)

func TestCombineMetarOnly(t *testing.T) {
	now := time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC)
	metar := &ParsedMetar{ICAO: "KJFK", Block: WeatherBlock{Wind: Wind{DirDeg: Known(240), SpeedKt: Known(10)}}}
	tw := Combine("KJFK", metar, nil, CombineConfig{Mode: CombiningMetarOnly}, now)
	if tw.Provenance != ProvenanceMETAR {
		t.Errorf("expected provenance metar, got %v", tw.Provenance)
	}
	if v, ok := tw.Block.Wind.DirDeg.Get(); !ok || v != 240 {
		t.Errorf("expected wind dir 240, got %v", v)
	}
}

func TestCombineMetarOnlyNoData(t *testing.T) {
	now := time.Now()
	tw := Combine("KJFK", nil, nil, CombineConfig{Mode: CombiningMetarOnly}, now)
	if tw.Provenance != ProvenanceNone {
		t.Errorf("expected provenance none, got %v", tw.Provenance)
	}
}

func TestCombineFallbackUsesFreshMetar(t *testing.T) {
	now := time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC)
	metar := &ParsedMetar{
		ICAO:     "KJFK",
		IssuedAt: Known(now.Add(-1 * time.Minute)),
		Block:    WeatherBlock{Wind: Wind{DirDeg: Known(240), SpeedKt: Known(10)}},
	}
	cfg := CombineConfig{Mode: CombiningMetarTafFallback, TafFallbackStaleSec: 300}
	tw := Combine("KJFK", metar, nil, cfg, now)
	if tw.Provenance != ProvenanceMETAR {
		t.Errorf("expected metar provenance for fresh report, got %v", tw.Provenance)
	}
}

func TestCombineFallbackUsesStaleTaf(t *testing.T) {
	now := time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC)
	metar := &ParsedMetar{
		ICAO:     "KJFK",
		IssuedAt: Known(now.Add(-1 * time.Hour)),
		Block:    WeatherBlock{Wind: Wind{DirDeg: Known(240), SpeedKt: Known(10)}},
	}
	taf := &ParsedTaf{
		ICAO:       "KJFK",
		Prevailing: WeatherBlock{Wind: Wind{DirDeg: Known(270), SpeedKt: Known(15)}},
	}
	cfg := CombineConfig{Mode: CombiningMetarTafFallback, TafFallbackStaleSec: 300}
	tw := Combine("KJFK", metar, taf, cfg, now)
	if tw.Provenance != ProvenanceTAFFallback {
		t.Errorf("expected taf-fallback provenance for stale metar, got %v", tw.Provenance)
	}
	if v, ok := tw.Block.Wind.DirDeg.Get(); !ok || v != 270 {
		t.Errorf("expected taf wind dir 270, got %v", v)
	}
}

func TestCombineAssistFillsMissingFields(t *testing.T) {
	now := time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC)
	metar := &ParsedMetar{
		ICAO:  "KJFK",
		Block: WeatherBlock{Wind: Wind{DirDeg: Known(240), SpeedKt: Known(10)}},
	}
	taf := &ParsedTaf{
		ICAO: "KJFK",
		Prevailing: WeatherBlock{
			Wind:         Wind{DirDeg: Known(270), SpeedKt: Known(20)},
			VisibilitySM: Known(6.0),
			QNHHpa:       Known(1020),
		},
	}
	tw := Combine("KJFK", metar, taf, CombineConfig{Mode: CombiningMetarTafAssist}, now)
	if tw.Provenance != ProvenanceTAFAssist {
		t.Errorf("expected taf-assist provenance, got %v", tw.Provenance)
	}
	// wind is atomic; metar's own wind triple must be preserved, not mixed
	if v, ok := tw.Block.Wind.DirDeg.Get(); !ok || v != 240 {
		t.Errorf("expected metar wind dir preserved (240), got %v", v)
	}
	if v, ok := tw.Block.VisibilitySM.Get(); !ok || v != 6.0 {
		t.Errorf("expected visibility filled in from taf (6.0), got %v", v)
	}
	if v, ok := tw.Block.QNHHpa.Get(); !ok || v != 1020 {
		t.Errorf("expected QNH filled in from taf (1020), got %v", v)
	}
}

func TestMergeBlocksOverlaysOnlyKnownFields(t *testing.T) {
	base := WeatherBlock{
		Wind:         Wind{DirDeg: Known(240), SpeedKt: Known(10)},
		VisibilitySM: Known(10.0),
		QNHHpa:       Known(1013),
	}
	overlay := WeatherBlock{
		VisibilitySM: Known(3.0),
	}
	merged := mergeBlocks(base, overlay)
	if v, _ := merged.Wind.DirDeg.Get(); v != 240 {
		t.Errorf("expected wind preserved from base, got %v", v)
	}
	if v, _ := merged.VisibilitySM.Get(); v != 3.0 {
		t.Errorf("expected visibility overlaid, got %v", v)
	}
}
