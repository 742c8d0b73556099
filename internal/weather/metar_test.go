package weather

import (
	"testing"
	"time"
)

func TestParseMetarBasic(t *testing.T) {
	now := time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC)
	pm, err := ParseMetar("KJFK 031851Z 24015G25KT 10SM FEW035 SCT250 22/12 A3005", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pm.ICAO != "KJFK" {
		t.Errorf("expected ICAO KJFK, got %q", pm.ICAO)
	}
	if v, ok := pm.Block.Wind.DirDeg.Get(); !ok || v != 240 {
		t.Errorf("expected wind dir 240, got %v valid=%v", v, ok)
	}
	if v, ok := pm.Block.Wind.SpeedKt.Get(); !ok || v != 15 {
		t.Errorf("expected wind speed 15, got %v", v)
	}
	if v, ok := pm.Block.Wind.GustKt.Get(); !ok || v != 25 {
		t.Errorf("expected gust 25, got %v", v)
	}
	if v, ok := pm.Block.VisibilitySM.Get(); !ok || v != 10 {
		t.Errorf("expected vis 10, got %v", v)
	}
	if len(pm.Block.Clouds) != 2 {
		t.Fatalf("expected 2 cloud layers, got %d", len(pm.Block.Clouds))
	}
	if v, ok := pm.Block.TemperatureC.Get(); !ok || v != 22 {
		t.Errorf("expected temp 22, got %v", v)
	}
	if v, ok := pm.Block.DewpointC.Get(); !ok || v != 12 {
		t.Errorf("expected dewpoint 12, got %v", v)
	}
	if v, ok := pm.Block.QNHHpa.Get(); !ok || v != 1018 {
		t.Errorf("expected QNH 1018 from A3005, got %v", v)
	}
}

func TestParseMetarCAVOK(t *testing.T) {
	now := time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC)
	pm, err := ParseMetar("EGLL 191200Z 24010KT CAVOK 15/10 Q1020", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !pm.CAVOK {
		t.Error("expected CAVOK flag set")
	}
	if v, ok := pm.Block.VisibilitySM.Get(); !ok || v != 10 {
		t.Errorf("expected vis 10 for CAVOK, got %v", v)
	}
	if len(pm.Block.Clouds) != 0 || !pm.Block.CloudsKnown {
		t.Errorf("expected known-empty clouds for CAVOK, got %v known=%v", pm.Block.Clouds, pm.Block.CloudsKnown)
	}
	if len(pm.Block.WeatherTokens) != 0 || !pm.Block.WeatherKnown {
		t.Errorf("expected known-empty weather for CAVOK")
	}
	if v, ok := pm.Block.QNHHpa.Get(); !ok || v != 1020 {
		t.Errorf("expected QNH 1020, got %v", v)
	}
}

func TestParseMetarCalmWindNotVariable(t *testing.T) {
	now := time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC)
	pm, err := ParseMetar("KBOS 031851Z 00000KT 3SM BKN020 10/05 Q1013", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pm.Block.Wind.Variable {
		t.Error("00000KT should not be marked variable")
	}
	if v, ok := pm.Block.Wind.SpeedKt.Get(); !ok || v != 0 {
		t.Errorf("expected calm wind speed 0, got %v", v)
	}
}

func TestParseMetarVRB(t *testing.T) {
	now := time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC)
	pm, err := ParseMetar("KBOS 031851Z VRB03KT 10SM CLR 18/10 Q1013", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !pm.Block.Wind.Variable {
		t.Error("expected variable wind")
	}
	if pm.Block.Wind.DirDeg.Valid {
		t.Error("variable wind should not carry a direction")
	}
}

func TestParseMetarNegativeTemps(t *testing.T) {
	now := time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC)
	pm, err := ParseMetar("CYYZ 031851Z 27012KT 6SM M03/M10 A2992", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, ok := pm.Block.TemperatureC.Get(); !ok || v != -3 {
		t.Errorf("expected temp -3, got %v", v)
	}
	if v, ok := pm.Block.DewpointC.Get(); !ok || v != -10 {
		t.Errorf("expected dewpoint -10, got %v", v)
	}
	if v, ok := pm.Block.QNHHpa.Get(); !ok || v != 1013 {
		t.Errorf("expected QNH 1013 from A2992, got %v", v)
	}
}

func TestParseMetarNoICAOFails(t *testing.T) {
	now := time.Now()
	_, err := ParseMetar("031851Z 24015KT 10SM", now)
	if err == nil {
		t.Fatal("expected error for missing ICAO")
	}
}

func TestParseMetarFractionalVisibility(t *testing.T) {
	now := time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC)
	pm, err := ParseMetar("KBOS 031851Z 24015KT 2 1/2SM BKN015 12/10 Q1010", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, ok := pm.Block.VisibilitySM.Get()
	if !ok || v != 2.5 {
		t.Errorf("expected visibility 2.5SM, got %v", v)
	}
}
