package weather

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// MaxMetarBytes bounds the synthesized string so it always fits the
// 256-byte sink buffer with room for the terminating NUL.
const MaxMetarBytes = 255

// Synthesize renders a CurrentWeather as a canonical METAR string, ready
// to be packed into a NUL-terminated fixed-size buffer by the injection
// sink.
func Synthesize(cw CurrentWeather, now time.Time) string {
	var b strings.Builder
	b.WriteString("METAR ")

	icao := cw.Scope
	if icao == GlobalScope {
		icao = "GLOB"
	}
	b.WriteString(icao)
	b.WriteByte(' ')

	b.WriteString(now.UTC().Format("021504"))
	b.WriteString("Z ")

	b.WriteString(synthWind(cw.Block.Wind))
	b.WriteByte(' ')

	b.WriteString(synthVisibility(cw.Block.VisibilitySM))

	if cw.Block.WeatherKnown && len(cw.Block.WeatherTokens) > 0 {
		b.WriteByte(' ')
		b.WriteString(strings.Join(cw.Block.WeatherTokens, " "))
	}

	b.WriteByte(' ')
	b.WriteString(synthClouds(cw.Block.Clouds, cw.Block.CloudsKnown))

	b.WriteByte(' ')
	b.WriteString(synthTempDew(cw.Block.TemperatureC, cw.Block.DewpointC))

	b.WriteByte(' ')
	b.WriteString(synthQNH(cw.Block.QNHHpa))

	out := b.String()
	if len(out) > MaxMetarBytes {
		out = out[:MaxMetarBytes]
	}
	return out
}

func synthWind(w Wind) string {
	speed := w.SpeedKt.Or(0)
	if w.Variable {
		return fmt.Sprintf("VRB%02dKT", clampWind(speed))
	}

	dir, ok := w.DirDeg.Get()
	if !ok {
		dir = 0
	}
	if speed == 0 {
		return "00000KT"
	}
	// Avoid the ambiguous/illegal 000ddKT form: a reported calm direction
	// with non-zero speed is re-expressed with a nominal 090 heading.
	if dir == 0 {
		dir = 90
	}

	if gust, ok := w.GustKt.Get(); ok && gust > speed {
		return fmt.Sprintf("%03d%02dG%02dKT", dir, clampWind(speed), clampWind(gust))
	}
	return fmt.Sprintf("%03d%02dKT", dir, clampWind(speed))
}

func clampWind(v int) int {
	if v < 0 {
		return 0
	}
	if v > 99 {
		return 99
	}
	return v
}

func synthVisibility(vis Field[float64]) string {
	v, ok := vis.Get()
	if !ok {
		v = 10
	}
	if v >= 10 {
		return "10SM"
	}
	if v < 0.25 {
		return "M1/4SM"
	}
	return fmt.Sprintf("%dSM", int(v+0.5))
}

func synthClouds(layers []CloudLayer, known bool) string {
	if !known || len(layers) == 0 {
		return "CLR"
	}

	sorted := make([]CloudLayer, len(layers))
	copy(sorted, layers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].BaseFt < sorted[j].BaseFt })

	if len(sorted) > 3 {
		sorted = sorted[:3]
	}

	parts := make([]string, 0, len(sorted))
	for _, l := range sorted {
		base := l.BaseFt
		if base < 500 {
			base = 500
		}
		parts = append(parts, fmt.Sprintf("%s%03d", l.Coverage, base/100))
	}
	return strings.Join(parts, " ")
}

func synthTempDew(temp, dew Field[int]) string {
	t, tok := temp.Get()
	d, dok := dew.Get()
	if !tok {
		t = 0
	}
	if !dok {
		d = t
	}
	return fmt.Sprintf("%s/%s", synthTempToken(t), synthTempToken(d))
}

func synthTempToken(v int) string {
	if v < 0 {
		return fmt.Sprintf("M%02d", -v)
	}
	return fmt.Sprintf("%02d", v)
}

func synthQNH(qnh Field[int]) string {
	v, ok := qnh.Get()
	if !ok || v < 870 || v > 1080 {
		v = 1013
	}
	return fmt.Sprintf("Q%04d", v)
}
