package weather

import (
	"strings"
	"testing"
	"time"
)

func TestSynthesizeBasic(t *testing.T) {
	now := time.Date(2026, 8, 3, 18, 51, 0, 0, time.UTC)
	cw := CurrentWeather{
		Scope: "KJFK",
		Block: WeatherBlock{
			Wind:          Wind{DirDeg: Known(240), SpeedKt: Known(15)},
			VisibilitySM:  Known(10.0),
			Clouds:        []CloudLayer{{Coverage: "FEW", BaseFt: 3500}},
			CloudsKnown:   true,
			TemperatureC:  Known(22),
			DewpointC:     Known(12),
			QNHHpa:        Known(1017),
		},
		Initialized: true,
	}
	out := Synthesize(cw, now)
	if !strings.HasPrefix(out, "METAR KJFK 031851Z 240") {
		t.Errorf("unexpected prefix: %q", out)
	}
	if !strings.Contains(out, "10SM") {
		t.Errorf("expected 10SM visibility, got %q", out)
	}
	if !strings.Contains(out, "FEW035") {
		t.Errorf("expected FEW035 cloud, got %q", out)
	}
	if !strings.Contains(out, "22/12") {
		t.Errorf("expected temp/dew 22/12, got %q", out)
	}
	if !strings.Contains(out, "Q1017") {
		t.Errorf("expected Q1017, got %q", out)
	}
	if len(out) > MaxMetarBytes {
		t.Errorf("synthesized string exceeds max bytes: %d", len(out))
	}
}

func TestSynthesizeGlobalScope(t *testing.T) {
	now := time.Now()
	cw := CurrentWeather{Scope: GlobalScope, Initialized: true}
	out := Synthesize(cw, now)
	if !strings.Contains(out, "GLOB") {
		t.Errorf("expected GLOB in place of GLOBAL, got %q", out)
	}
}

func TestSynthWindAvoidsZeroDirWithSpeed(t *testing.T) {
	w := Wind{DirDeg: Known(0), SpeedKt: Known(15)}
	out := synthWind(w)
	if !strings.HasPrefix(out, "090") {
		t.Errorf("expected forced 090 heading for dir=0 with nonzero speed, got %q", out)
	}
}

func TestSynthWindCalm(t *testing.T) {
	w := Wind{DirDeg: Known(0), SpeedKt: Known(0)}
	out := synthWind(w)
	if out != "00000KT" {
		t.Errorf("expected 00000KT for calm wind, got %q", out)
	}
}

func TestSynthWindVariable(t *testing.T) {
	w := Wind{Variable: true, SpeedKt: Known(5)}
	out := synthWind(w)
	if out != "VRB05KT" {
		t.Errorf("expected VRB05KT, got %q", out)
	}
}

func TestSynthWindGustDroppedWhenNotGreater(t *testing.T) {
	w := Wind{DirDeg: Known(180), SpeedKt: Known(20), GustKt: Known(20)}
	out := synthWind(w)
	if strings.Contains(out, "G") {
		t.Errorf("expected no gust group when gust == speed, got %q", out)
	}
}

func TestSynthVisibilityLowClamp(t *testing.T) {
	if got := synthVisibility(Known(0.1)); got != "M1/4SM" {
		t.Errorf("expected M1/4SM, got %q", got)
	}
}

func TestSynthCloudsUnknownIsClear(t *testing.T) {
	if got := synthClouds(nil, false); got != "CLR" {
		t.Errorf("expected CLR for unknown clouds, got %q", got)
	}
}

func TestSynthCloudsMinBase(t *testing.T) {
	out := synthClouds([]CloudLayer{{Coverage: "BKN", BaseFt: 100}}, true)
	if out != "BKN005" {
		t.Errorf("expected min base 500ft (BKN005), got %q", out)
	}
}

func TestSynthCloudsCapsAtThree(t *testing.T) {
	layers := []CloudLayer{
		{Coverage: "FEW", BaseFt: 1000},
		{Coverage: "SCT", BaseFt: 2000},
		{Coverage: "BKN", BaseFt: 3000},
		{Coverage: "OVC", BaseFt: 4000},
	}
	out := synthClouds(layers, true)
	if strings.Count(out, " ") != 2 {
		t.Errorf("expected exactly 3 layers in output, got %q", out)
	}
}

func TestSynthQNHDefaultsOutOfRange(t *testing.T) {
	if got := synthQNH(Known(2000)); got != "Q1013" {
		t.Errorf("expected default Q1013 for out-of-range QNH, got %q", got)
	}
	if got := synthQNH(Absent[int]()); got != "Q1013" {
		t.Errorf("expected default Q1013 for absent QNH, got %q", got)
	}
}

func TestSynthTempDewDefaultsDewToTemp(t *testing.T) {
	out := synthTempDew(Known(15), Absent[int]())
	if out != "15/15" {
		t.Errorf("expected dewpoint defaulted to temp, got %q", out)
	}
}
