// Package telemetry exposes tracking statistics as Prometheus metrics
package telemetry

import (
	"github.com/LdDl/benthic-mot/mot"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "benthic"

// TrackerMetrics contains Prometheus metrics of the tracking pipeline.
// It implements mot.Observer.
type TrackerMetrics struct {
	registry prometheus.Registerer

	framesTotal        prometheus.Counter
	candidatesTotal    *prometheus.CounterVec
	detectionsTotal    *prometheus.CounterVec
	matchesTotal       prometheus.Counter
	tracksCreatedTotal prometheus.Counter
	tracksFrozenTotal  prometheus.Counter

	activeTracks  prometheus.Gauge
	restingTracks prometheus.Gauge

	detectionsPerFrame prometheus.Histogram
}

var _ mot.Observer = (*TrackerMetrics)(nil)

// NewTrackerMetrics creates and registers new tracker metrics
func NewTrackerMetrics(registry prometheus.Registerer) (*TrackerMetrics, error) {
	m := &TrackerMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// initMetrics initializes all Prometheus metrics
func (m *TrackerMetrics) initMetrics() {
	m.framesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "frames_total",
		Help:      "Total number of processed frames",
	})

	m.candidatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_total",
			Help:      "Total number of organism candidates produced by blob merging",
		},
		[]string{"type"}, // type: coupled, dark_only, bright_only
	)

	m.detectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detections_total",
			Help:      "Total number of unified detections",
		},
		[]string{"source"}, // source: fused, appearance, motion
	)

	m.matchesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "matches_total",
		Help:      "Total number of detections associated with existing tracks",
	})

	m.tracksCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tracks_created_total",
		Help:      "Total number of created tracks",
	})

	m.tracksFrozenTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tracks_frozen_total",
		Help:      "Total number of tracks frozen after exceeding skip budget",
	})

	m.activeTracks = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_tracks",
		Help:      "Number of tracks taking part in association",
	})

	m.restingTracks = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "resting_tracks",
		Help:      "Number of active tracks currently in rest mode",
	})

	m.detectionsPerFrame = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "detections_per_frame",
		Help:      "Distribution of unified detections per frame",
		Buckets:   prometheus.LinearBuckets(0, 2, 10),
	})
}

// Describe implements the Collector interface
func (m *TrackerMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.framesTotal.Describe(ch)
	m.candidatesTotal.Describe(ch)
	m.detectionsTotal.Describe(ch)
	m.matchesTotal.Describe(ch)
	m.tracksCreatedTotal.Describe(ch)
	m.tracksFrozenTotal.Describe(ch)
	m.activeTracks.Describe(ch)
	m.restingTracks.Describe(ch)
	m.detectionsPerFrame.Describe(ch)
}

// Collect implements the Collector interface
func (m *TrackerMetrics) Collect(ch chan<- prometheus.Metric) {
	m.framesTotal.Collect(ch)
	m.candidatesTotal.Collect(ch)
	m.detectionsTotal.Collect(ch)
	m.matchesTotal.Collect(ch)
	m.tracksCreatedTotal.Collect(ch)
	m.tracksFrozenTotal.Collect(ch)
	m.activeTracks.Collect(ch)
	m.restingTracks.Collect(ch)
	m.detectionsPerFrame.Collect(ch)
}

// ObserveCandidates records merger and fuser output of a frame
func (m *TrackerMetrics) ObserveCandidates(_ int, candidates []mot.OrganismCandidate, detections []mot.UnifiedDetection) {
	for _, c := range candidates {
		m.candidatesTotal.WithLabelValues(c.Type.String()).Inc()
	}
	for _, d := range detections {
		m.detectionsTotal.WithLabelValues(d.Source.String()).Inc()
	}
}

// ObserveStep records association output of a frame
func (m *TrackerMetrics) ObserveStep(result mot.StepResult) {
	m.framesTotal.Inc()
	m.matchesTotal.Add(float64(result.Matched))
	m.tracksCreatedTotal.Add(float64(result.Created))
	m.tracksFrozenTotal.Add(float64(result.Frozen))
	m.detectionsPerFrame.Observe(float64(result.Detections))

	resting := 0
	for _, track := range result.Active {
		if track.IsResting {
			resting++
		}
	}
	m.activeTracks.Set(float64(len(result.Active)))
	m.restingTracks.Set(float64(resting))
}
