package weather

import "context"

// AircraftStateSource is the external collaborator supplying aircraft
// telemetry. The bool return reports whether a state was available this
// call; the engine tolerates absence by skipping the tick.
type AircraftStateSource interface {
	FetchState(ctx context.Context) (AircraftState, bool, error)
}

// FetchProvider is the external collaborator supplying raw METAR/TAF text.
// Missing entries in the returned map are not errors; a scope simply has
// no data this tick.
type FetchProvider interface {
	FetchMETAR(ctx context.Context, icaos []string) (map[string]RawReport, error)
	FetchTAF(ctx context.Context, icaos []string) (map[string]RawReport, error)
}

// InjectionSink is the external collaborator the engine writes synthesized
// METAR strings to, standing in for a simulator's shared-memory offset.
type InjectionSink interface {
	Inject(scope string, metarBytes [256]byte) error
}

// PackMetar copies a METAR string into a fixed 256-byte buffer, NUL
// terminated, with any remaining bytes zero-filled, per the wire contract
// injection sinks expect.
func PackMetar(s string) [256]byte {
	var buf [256]byte
	if len(s) > 255 {
		s = s[:255]
	}
	copy(buf[:], s)
	buf[len(s)] = 0
	return buf
}
