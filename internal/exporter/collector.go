// Package exporter publishes the server's KPIs as Prometheus metrics.
package exporter

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"

	"camtrap-cli/internal/logging"
	"camtrap-cli/pkg/models"
)

const (
	scrapeTimeout = 10 * time.Second
	scrapeRetries = 2
)

// lastDetectionLayouts are the timestamp forms /api/summary has been seen to use.
var lastDetectionLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.RFC3339,
}

// Source is the part of the server API scraped on every collection.
type Source interface {
	GetSummary(ctx context.Context) (models.Summary, error)
	GetSpeciesCounts(ctx context.Context) (models.SpeciesCounts, error)
	GetCameras(ctx context.Context) (models.CameraDirectory, error)
}

var (
	upDesc = prometheus.NewDesc(
		"camtrap_up", "Was the last scrape successful.", nil, nil,
	)
	scrapeDurationDesc = prometheus.NewDesc(
		"camtrap_scrape_duration_seconds", "Time taken to scrape API.", nil, nil,
	)
	detectionsDesc = prometheus.NewDesc(
		"camtrap_detections_total", "Detections stored on the server.", nil, nil,
	)
	speciesSeenDesc = prometheus.NewDesc(
		"camtrap_species_seen", "Distinct species detected.", nil, nil,
	)
	camerasActiveDesc = prometheus.NewDesc(
		"camtrap_cameras_active", "Cameras configured on the server.", nil, nil,
	)
	lastDetectionDesc = prometheus.NewDesc(
		"camtrap_last_detection_timestamp_seconds", "Unix time of the newest detection.", nil, nil,
	)
	speciesDetectionsDesc = prometheus.NewDesc(
		"camtrap_species_detections", "Detections per species.", []string{"species", "label"}, nil,
	)
	cameraInfoDesc = prometheus.NewDesc(
		"camtrap_camera_info", "Configured cameras (always 1).", []string{"id", "name", "device"}, nil,
	)
	camerasConfiguredDesc = prometheus.NewDesc(
		"camtrap_cameras_configured", "Cameras registered in the directory.", nil, nil,
	)
)

// Collector scrapes the server on every Prometheus collection.
type Collector struct {
	Source Source
	// Label turns a species id into its display name.
	Label  func(id string) string
	Logger *slog.Logger

	mu sync.Mutex
}

func NewCollector(src Source, label func(string) string, logger *slog.Logger) *Collector {
	return &Collector{Source: src, Label: label, Logger: logging.Module(logger, "exporter")}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- upDesc
	ch <- scrapeDurationDesc
	ch <- detectionsDesc
	ch <- speciesSeenDesc
	ch <- camerasActiveDesc
	ch <- lastDetectionDesc
	ch <- speciesDetectionsDesc
	ch <- cameraInfoDesc
	ch <- camerasConfiguredDesc
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()
	start := time.Now()
	success := 1.0

	ctx, cancel := context.WithTimeout(context.Background(), scrapeTimeout)
	defer cancel()

	// 1. Summary
	if sum, err := withRetry(ctx, c.Source.GetSummary); err == nil {
		ch <- prometheus.MustNewConstMetric(detectionsDesc, prometheus.GaugeValue, float64(sum.Total))
		ch <- prometheus.MustNewConstMetric(speciesSeenDesc, prometheus.GaugeValue, float64(sum.SpeciesCount))
		ch <- prometheus.MustNewConstMetric(camerasActiveDesc, prometheus.GaugeValue, float64(sum.CamerasActive))
		if ts, ok := parseLastDetection(sum); ok {
			ch <- prometheus.MustNewConstMetric(lastDetectionDesc, prometheus.GaugeValue, float64(ts.Unix()))
		}
	} else {
		success = 0.0
		c.Logger.Warn("error scraping summary", "error", err)
	}

	// 2. Species
	if counts, err := withRetry(ctx, c.Source.GetSpeciesCounts); err == nil {
		for id, n := range counts {
			ch <- prometheus.MustNewConstMetric(speciesDetectionsDesc, prometheus.GaugeValue, float64(n), id, c.label(id))
		}
	} else {
		success = 0.0
		c.Logger.Warn("error scraping species counts", "error", err)
	}

	// 3. Cameras
	if cams, err := withRetry(ctx, c.Source.GetCameras); err == nil {
		for _, e := range cams.Cameras() {
			ch <- prometheus.MustNewConstMetric(cameraInfoDesc, prometheus.GaugeValue, 1, e.ID, e.DisplayName(e.ID), e.Device.String())
		}
		ch <- prometheus.MustNewConstMetric(camerasConfiguredDesc, prometheus.GaugeValue, float64(len(cams)))
	} else {
		success = 0.0
		c.Logger.Warn("error scraping cameras", "error", err)
	}

	ch <- prometheus.MustNewConstMetric(upDesc, prometheus.GaugeValue, success)
	ch <- prometheus.MustNewConstMetric(scrapeDurationDesc, prometheus.GaugeValue, time.Since(start).Seconds())
}

func (c *Collector) label(id string) string {
	if c.Label == nil {
		return id
	}
	return c.Label(id)
}

// withRetry retries a failed fetch a couple of times with a short backoff.
func withRetry[T any](ctx context.Context, fetch func(context.Context) (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = time.Second

	var res T
	err := backoff.Retry(func() error {
		var err error
		res, err = fetch(ctx)
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(b, scrapeRetries), ctx))
	return res, err
}

func parseLastDetection(s models.Summary) (time.Time, bool) {
	if s.LastDetection == nil {
		return time.Time{}, false
	}
	for _, layout := range lastDetectionLayouts {
		if t, err := time.ParseInLocation(layout, *s.LastDetection, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
