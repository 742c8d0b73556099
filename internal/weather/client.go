package weather

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/yegors/wxbridge/pkg/logger"
)

// FetchClientConfig configures AviationWeatherClient.
type FetchClientConfig struct {
	BaseURL               string
	RequestTimeoutSeconds int
	MaxRetries            int
	RatePerSecond         float64
	Burst                 int
}

// DefaultFetchClientConfig returns sane defaults matching the teacher's
// weather client.
func DefaultFetchClientConfig() FetchClientConfig {
	return FetchClientConfig{
		BaseURL:               "https://aviationweather.gov/api/data",
		RequestTimeoutSeconds: 10,
		MaxRetries:            2,
		RatePerSecond:         2,
		Burst:                 4,
	}
}

// AviationWeatherClient implements FetchProvider against
// aviationweather.gov's raw-text METAR/TAF endpoints, paced by a
// golang.org/x/time/rate limiter so a short tick interval cannot hammer
// the upstream API.
type AviationWeatherClient struct {
	cfg        FetchClientConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *logger.Logger
}

// NewAviationWeatherClient constructs a rate-limited fetch client.
func NewAviationWeatherClient(cfg FetchClientConfig, log *logger.Logger) *AviationWeatherClient {
	return &AviationWeatherClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		logger:  log.Named("fetch-client"),
	}
}

// FetchMETAR fetches raw METAR text for the given ICAOs in a single
// request.
func (c *AviationWeatherClient) FetchMETAR(ctx context.Context, icaos []string) (map[string]RawReport, error) {
	url := fmt.Sprintf("%s/metar?ids=%s&format=raw", c.cfg.BaseURL, strings.Join(icaos, ","))
	body, err := c.fetchWithRetry(ctx, url, "metar")
	if err != nil {
		return nil, err
	}
	return splitRawReports(body), nil
}

// FetchTAF fetches raw TAF text for the given ICAOs in a single request.
func (c *AviationWeatherClient) FetchTAF(ctx context.Context, icaos []string) (map[string]RawReport, error) {
	url := fmt.Sprintf("%s/taf?ids=%s&format=raw", c.cfg.BaseURL, strings.Join(icaos, ","))
	body, err := c.fetchWithRetry(ctx, url, "taf")
	if err != nil {
		return nil, err
	}
	return splitRawReports(body), nil
}

// fetchWithRetry performs the HTTP request with exponential backoff,
// waiting on the rate limiter before every attempt.
func (c *AviationWeatherClient) fetchWithRetry(ctx context.Context, url, kind string) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(500*(1<<uint(attempt-1))) * time.Millisecond
			c.logger.Info("retrying fetch",
				logger.String("kind", kind),
				logger.Int("attempt", attempt),
				logger.String("backoff", backoff.String()))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return "", err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("fetch request failed: %w", err)
			c.logger.Warn("fetch attempt failed", logger.String("kind", kind), logger.Error(err))
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("reading response body: %w", err)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status %d", resp.StatusCode)
			c.logger.Warn("fetch returned non-OK status",
				logger.String("kind", kind), logger.Int("status", resp.StatusCode))
			continue
		}

		return string(body), nil
	}

	return "", lastErr
}

// splitRawReports splits a raw-text response (one report per line) into a
// map keyed by the first 4-letter ICAO-shaped token on each line.
func splitRawReports(body string) map[string]RawReport {
	out := make(map[string]RawReport)
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		idx := -1
		for k, f := range fields {
			if reICAO.MatchString(strings.ToUpper(f)) {
				idx = k
				break
			}
		}
		if idx < 0 {
			continue
		}
		icao := strings.ToUpper(fields[idx])
		issued := time.Time{}
		for _, tok := range fields[idx+1:] {
			if reIssueTime.MatchString(tok) {
				if t, ok := parseDDHHMMZ(tok, time.Now().UTC()); ok {
					issued = t
				}
				break
			}
		}
		out[icao] = RawReport{ICAO: icao, Text: line, IssuedAt: issued}
	}
	return out
}
