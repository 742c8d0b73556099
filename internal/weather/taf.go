package weather

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	reTafHeader   = regexp.MustCompile(`^(TAF)(\s+(AMD|COR))?\s+`)
	reTafValidity = regexp.MustCompile(`^(\d{4})/(\d{4})$`)
	reFM          = regexp.MustCompile(`^FM(\d{6})$`)
	reBecmgTempo  = regexp.MustCompile(`^(\d{2})(\d{2})/(\d{2})(\d{2})$`)
	reProb        = regexp.MustCompile(`^PROB(\d{2})$`)
)

// ParseTaf parses one TAF report, in reference time `now`.
func ParseTaf(raw string, now time.Time) (ParsedTaf, error) {
	line := strings.TrimSpace(raw)
	line = reTafHeader.ReplaceAllString(line, "")

	tokens := joinFractionalVisibility(strings.Fields(line))
	result := ParsedTaf{Raw: raw}

	i := 0
	if i < len(tokens) && reICAO.MatchString(strings.ToUpper(tokens[i])) {
		result.ICAO = strings.ToUpper(tokens[i])
		i++
	}
	if i < len(tokens) && reIssueTime.MatchString(tokens[i]) {
		if t, ok := parseDDHHMMZ(tokens[i], now); ok {
			result.IssuedAt = Known(t)
		}
		i++
	}
	if i < len(tokens) {
		if from, to, ok := parseTafValidity(tokens[i], now); ok {
			result.ValidFrom, result.ValidTo = from, to
			i++
		}
	}

	// Collect the prevailing block: everything up to the first group marker.
	groupStart := len(tokens)
	for j := i; j < len(tokens); j++ {
		if isTafGroupMarker(tokens[j]) {
			groupStart = j
			break
		}
	}
	result.Prevailing = parseWeatherBlock(tokens[i:groupStart])

	// Walk remaining tokens, splitting into groups at each marker.
	j := groupStart
	for j < len(tokens) {
		tok := strings.ToUpper(tokens[j])

		switch {
		case reFM.MatchString(tok):
			m := reFM.FindStringSubmatch(tok)
			from, _ := parseDDHHMMZ(m[1]+"Z", now)
			end := nextGroupMarker(tokens, j+1)
			result.Groups = append(result.Groups, TafGroup{
				Kind:  TafGroupFM,
				From:  from,
				Block: parseWeatherBlock(tokens[j+1 : end]),
			})
			j = end

		case tok == "BECMG" || tok == "TEMPO":
			kind := TafGroupBECMG
			if tok == "TEMPO" {
				kind = TafGroupTEMPO
			}
			from, to := result.ValidFrom, result.ValidTo
			k := j + 1
			if k < len(tokens) {
				if f, t, ok := parseBecmgWindow(tokens[k], now); ok {
					from, to = f, t
					k++
				}
			}
			end := nextGroupMarker(tokens, k)
			result.Groups = append(result.Groups, TafGroup{
				Kind:  kind,
				From:  from,
				To:    to,
				Block: parseWeatherBlock(tokens[k:end]),
			})
			j = end

		case reProb.MatchString(tok):
			m := reProb.FindStringSubmatch(tok)
			pct, _ := strconv.Atoi(m[1])
			from, to := result.ValidFrom, result.ValidTo
			k := j + 1
			if k < len(tokens) && strings.ToUpper(tokens[k]) == "TEMPO" {
				k++
				if k < len(tokens) {
					if f, t, ok := parseBecmgWindow(tokens[k], now); ok {
						from, to = f, t
						k++
					}
				}
			}
			end := nextGroupMarker(tokens, k)
			result.Groups = append(result.Groups, TafGroup{
				Kind:        TafGroupPROB,
				From:        from,
				To:          to,
				Probability: Known(pct),
				Block:       parseWeatherBlock(tokens[k:end]),
			})
			j = end

		default:
			j++
		}
	}

	if result.ICAO == "" {
		return result, &ParseError{Reason: "no ICAO identifier found in TAF"}
	}
	return result, nil
}

func isTafGroupMarker(tok string) bool {
	tok = strings.ToUpper(tok)
	return reFM.MatchString(tok) || tok == "BECMG" || tok == "TEMPO" || reProb.MatchString(tok)
}

func nextGroupMarker(tokens []string, from int) int {
	for i := from; i < len(tokens); i++ {
		if isTafGroupMarker(tokens[i]) {
			return i
		}
	}
	return len(tokens)
}

// parseTafValidity handles both DDHH/DDHH and compact DDHHDDHH forms for
// the header validity window.
func parseTafValidity(tok string, now time.Time) (time.Time, time.Time, bool) {
	if m := reTafValidity.FindStringSubmatch(tok); m != nil {
		return tafDateFromDDHH(m[1], now), tafDateFromDDHH(m[2], now), true
	}
	if len(tok) == 8 {
		return tafDateFromDDHH(tok[0:4], now), tafDateFromDDHH(tok[4:8], now), true
	}
	return time.Time{}, time.Time{}, false
}

func parseBecmgWindow(tok string, now time.Time) (time.Time, time.Time, bool) {
	m := reBecmgTempo.FindStringSubmatch(tok)
	if m == nil {
		return time.Time{}, time.Time{}, false
	}
	fromDay, _ := strconv.Atoi(m[1])
	fromHour, _ := strconv.Atoi(m[2])
	toDay, _ := strconv.Atoi(m[3])
	toHour, _ := strconv.Atoi(m[4])
	from := tafDateFromDDHH(pad2(fromDay)+pad2(fromHour), now)
	to := tafDateFromDDHH(pad2(toDay)+pad2(toHour), now)
	if to.Before(from) {
		to = to.AddDate(0, 0, 1)
	}
	return from, to, true
}

func pad2(v int) string {
	s := strconv.Itoa(v)
	if len(s) < 2 {
		s = "0" + s
	}
	return s
}

// tafDateFromDDHH reconstructs a UTC timestamp from a DDHH fragment, using
// now's month/year and rolling within a +/-15 day window around now to
// handle reports issued near a month boundary (hour 24 denotes midnight of
// the following day, per TAF convention).
func tafDateFromDDHH(ddhh string, now time.Time) time.Time {
	if len(ddhh) != 4 {
		return now
	}
	day, _ := strconv.Atoi(ddhh[0:2])
	hour, _ := strconv.Atoi(ddhh[2:4])

	addDay := 0
	if hour == 24 {
		hour = 0
		addDay = 1
	}

	candidate := time.Date(now.Year(), now.Month(), day, hour, 0, 0, 0, time.UTC).AddDate(0, 0, addDay)

	if candidate.Sub(now) > 15*24*time.Hour {
		candidate = candidate.AddDate(0, -1, 0)
	} else if now.Sub(candidate) > 15*24*time.Hour {
		candidate = candidate.AddDate(0, 1, 0)
	}
	return candidate
}

// parseWeatherBlock parses a run of tokens (wind/visibility/cloud/weather)
// using the same per-family classifiers as the METAR parser, without the
// ICAO/issue-time semantics that don't apply within a TAF group. A Qnnnn
// pressure token, where a TAF carries one, is still read into QNHHpa.
func parseWeatherBlock(tokens []string) WeatherBlock {
	var block WeatherBlock
	for _, raw := range tokens {
		tok := strings.ToUpper(raw)

		switch {
		case tok == "CAVOK":
			block.VisibilitySM = Known(10.0)
			block.Clouds = nil
			block.CloudsKnown = true
			block.WeatherTokens = nil
			block.WeatherKnown = true
		case reWind.MatchString(tok):
			block.Wind = parseWind(tok)
		case reWindVar.MatchString(tok):
			// ignored, as in the METAR parser
		case reVisMeters.MatchString(tok):
			meters, _ := strconv.Atoi(tok)
			block.VisibilitySM = Known(metersToVisSM(meters))
		case reVisSM.MatchString(tok) && tok != "SM":
			if v, ok := parseVisibilitySM(tok); ok {
				block.VisibilitySM = Known(v)
			}
		case reCloud.MatchString(tok):
			m := reCloud.FindStringSubmatch(tok)
			base, _ := strconv.Atoi(m[2])
			block.Clouds = append(block.Clouds, CloudLayer{Coverage: m[1], BaseFt: base * 100})
			block.CloudsKnown = true
		case reVertVis.MatchString(tok):
			m := reVertVis.FindStringSubmatch(tok)
			base, _ := strconv.Atoi(m[1])
			block.Clouds = append(block.Clouds, CloudLayer{Coverage: "OVC", BaseFt: base * 100})
			block.CloudsKnown = true
		case reCloudClear.MatchString(tok):
			block.Clouds = nil
			block.CloudsKnown = true
		case reQNH.MatchString(tok):
			m := reQNH.FindStringSubmatch(tok)
			v, _ := strconv.Atoi(m[1])
			block.QNHHpa = Known(v)
		case rePresentWx.MatchString(tok):
			block.WeatherTokens = append(block.WeatherTokens, tok)
			block.WeatherKnown = true
		}
	}
	return block
}
