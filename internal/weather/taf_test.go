package weather

import (
	"testing"
	"time"
)

func TestParseTafBasic(t *testing.T) {
	now := time.Date(2026, 8, 3, 6, 0, 0, 0, time.UTC)
	raw := "TAF KJFK 030530Z 0306/0412 24012KT P6SM FEW040 " +
		"FM031800 27015G25KT P6SM SCT030 " +
		"BECMG 0320/0322 28008KT"
	pt, err := ParseTaf(raw, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pt.ICAO != "KJFK" {
		t.Errorf("expected ICAO KJFK, got %q", pt.ICAO)
	}
	if v, ok := pt.Prevailing.Wind.DirDeg.Get(); !ok || v != 240 {
		t.Errorf("expected prevailing wind dir 240, got %v", v)
	}
	if len(pt.Groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(pt.Groups))
	}
	if pt.Groups[0].Kind != TafGroupFM {
		t.Errorf("expected first group FM, got %v", pt.Groups[0].Kind)
	}
	if v, ok := pt.Groups[0].Block.Wind.SpeedKt.Get(); !ok || v != 15 {
		t.Errorf("expected FM group wind speed 15, got %v", v)
	}
	if pt.Groups[1].Kind != TafGroupBECMG {
		t.Errorf("expected second group BECMG, got %v", pt.Groups[1].Kind)
	}
}

func TestParseTafProbTempo(t *testing.T) {
	now := time.Date(2026, 8, 3, 6, 0, 0, 0, time.UTC)
	raw := "TAF EGLL 030530Z 0306/0412 22010KT 6SM " +
		"PROB30 TEMPO 0308/0310 3SM TSRA BKN015"
	pt, err := ParseTaf(raw, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pt.Groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(pt.Groups))
	}
	g := pt.Groups[0]
	if g.Kind != TafGroupPROB {
		t.Errorf("expected PROB group, got %v", g.Kind)
	}
	if v, ok := g.Probability.Get(); !ok || v != 30 {
		t.Errorf("expected probability 30, got %v", v)
	}
	if v, ok := g.Block.VisibilitySM.Get(); !ok || v != 3 {
		t.Errorf("expected TEMPO visibility 3, got %v", v)
	}
}

func TestParseTafNoICAOFails(t *testing.T) {
	now := time.Now()
	_, err := ParseTaf("TAF 030530Z 0306/0412 24012KT", now)
	if err == nil {
		t.Fatal("expected error for missing ICAO")
	}
}

func TestActiveTafBlockSelectsLatestFM(t *testing.T) {
	now := time.Date(2026, 8, 3, 19, 0, 0, 0, time.UTC)
	taf := ParsedTaf{
		ICAO:       "KJFK",
		Prevailing: WeatherBlock{Wind: Wind{DirDeg: Known(240), SpeedKt: Known(12)}},
		Groups: []TafGroup{
			{Kind: TafGroupFM, From: time.Date(2026, 8, 3, 18, 0, 0, 0, time.UTC), Block: WeatherBlock{Wind: Wind{DirDeg: Known(270), SpeedKt: Known(15)}}},
			{Kind: TafGroupFM, From: time.Date(2026, 8, 4, 3, 0, 0, 0, time.UTC), Block: WeatherBlock{Wind: Wind{DirDeg: Known(300), SpeedKt: Known(20)}}},
		},
	}
	block := activeTafBlock(&taf, now)
	if v, ok := block.Wind.DirDeg.Get(); !ok || v != 270 {
		t.Errorf("expected active FM group wind dir 270, got %v", v)
	}
}
