// Package scraper is the sink's optional producer: it polls a Prometheus
// exposition-format HTTP endpoint on an interval, converts every sample
// into a Datum, and hands the batch to the sink's send queue. It sits
// outside the ingestion core (spec.md treats producers as external
// collaborators) the same way the original project's poll_prometheus
// command is a client command layered on top of the sink, not part of it.
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/goodmetrics/metricsink/internal/metricsmodel"
	"github.com/prometheus/common/expfmt"
)

// Sink is the subset of the send queue's producer-facing API the scraper
// needs: enqueue a batch, never block, never fail.
type Sink interface {
	Enqueue(batch []metricsmodel.Datum)
}

// Config mirrors the original's poll_prometheus arguments: an endpoint to
// poll, how often, a fixed set of extra dimensions stamped onto every
// datum, and a prefix applied to every metric name before it reaches the
// sink (so scraped metrics don't collide with ones ingested over gRPC).
type Config struct {
	EndpointURL     string
	Interval        time.Duration
	Timeout         time.Duration
	TablePrefix     string
	BonusDimensions map[string]string
}

// Scraper polls Config.EndpointURL on Config.Interval until its context is
// done, converting each scrape into datums delivered to Sink.
type Scraper struct {
	cfg    Config
	sink   Sink
	client *http.Client
}

func New(cfg Config, sink Sink) *Scraper {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Scraper{cfg: cfg, sink: sink, client: &http.Client{Timeout: cfg.Timeout}}
}

// Run polls until ctx is done. A failed scrape is logged and skipped;
// polling never stops because of a single bad response, matching the
// original's "log the error, keep ticking" loop.
func (s *Scraper) Run(ctx context.Context) {
	slog.InfoContext(ctx, "scraper.start", "endpoint", s.cfg.EndpointURL, "interval", s.cfg.Interval)
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		if err := s.scrapeOnce(ctx); err != nil {
			slog.ErrorContext(ctx, "scraper.scrape_failed", "endpoint", s.cfg.EndpointURL, "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scraper) scrapeOnce(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.EndpointURL, nil)
	if err != nil {
		return fmt.Errorf("build scrape request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("scrape %s: %w", s.cfg.EndpointURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("scrape %s: unexpected status %s", s.cfg.EndpointURL, resp.Status)
	}

	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(resp.Body)
	if err != nil {
		return fmt.Errorf("parse exposition format from %s: %w", s.cfg.EndpointURL, err)
	}

	now := uint64(time.Now().UnixNano())
	batch := datumsFromFamilies(families, now, s.cfg.TablePrefix, s.cfg.BonusDimensions)
	if len(batch) > 0 {
		s.sink.Enqueue(batch)
	}
	return nil
}
