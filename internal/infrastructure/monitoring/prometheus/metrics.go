package prometheus

import (
	"strconv"
	"time"

	"github.com/turtacn/molnotation/pkg/errors"
)

// EngineMetrics are the metrics recorded around parsing, matching,
// reactions, the analysis cache and the HTTP layer.
type EngineMetrics struct {
	ParseTotal    CounterVec
	ParseErrors   CounterVec
	ParseDuration HistogramVec
	ParseAtoms    HistogramVec

	MatchDuration HistogramVec

	ReactionsTotal   CounterVec
	ReactionDuration HistogramVec

	CacheHitsTotal   CounterVec
	CacheMissesTotal CounterVec

	JobsTotal      CounterVec
	JobsInFlight   GaugeVec
	CatalogReloads CounterVec

	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
}

var (
	DefaultEngineDurationBuckets = []float64{.0001, .0005, .001, .0025, .005, .01, .025, .05, .1, .5, 1}
	DefaultHTTPDurationBuckets   = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultAtomCountBuckets      = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000}
)

// NewEngineMetrics registers every engine metric on collector.
func NewEngineMetrics(collector MetricsCollector) *EngineMetrics {
	return &EngineMetrics{
		ParseTotal:    collector.RegisterCounter("parse_total", "Notation parse attempts", "result"),
		ParseErrors:   collector.RegisterCounter("parse_errors_total", "Rejected notation by error kind", "kind"),
		ParseDuration: collector.RegisterHistogram("parse_duration_seconds", "Notation parse latency", DefaultEngineDurationBuckets),
		ParseAtoms:    collector.RegisterHistogram("parse_atoms", "Atoms per parsed notation, hydrogens included", DefaultAtomCountBuckets),

		MatchDuration: collector.RegisterHistogram("match_duration_seconds", "Functional group classification latency", DefaultEngineDurationBuckets),

		ReactionsTotal:   collector.RegisterCounter("reactions_total", "Reaction attempts by rule and outcome", "rule", "outcome"),
		ReactionDuration: collector.RegisterHistogram("reaction_duration_seconds", "Reaction latency", DefaultEngineDurationBuckets, "rule"),

		CacheHitsTotal:   collector.RegisterCounter("cache_hits_total", "Analysis cache hits", "cache"),
		CacheMissesTotal: collector.RegisterCounter("cache_misses_total", "Analysis cache misses", "cache"),

		JobsTotal:      collector.RegisterCounter("jobs_total", "Analysis jobs processed by the worker", "status"),
		JobsInFlight:   collector.RegisterGauge("jobs_in_flight", "Analysis jobs currently being processed"),
		CatalogReloads: collector.RegisterCounter("catalog_reloads_total", "Catalog reload attempts", "result"),

		HTTPRequestsTotal:   collector.RegisterCounter("http_requests_total", "HTTP requests", "method", "path", "status_code"),
		HTTPRequestDuration: collector.RegisterHistogram("http_request_duration_seconds", "HTTP request latency", DefaultHTTPDurationBuckets, "method", "path"),
	}
}

// RecordParse records one parse call. err is nil on success; a rejected
// notation is counted under its error kind.
func (m *EngineMetrics) RecordParse(d time.Duration, atoms int, err error) {
	m.ParseDuration.WithLabelValues().Observe(d.Seconds())
	if err != nil {
		m.ParseTotal.WithLabelValues("error").Inc()
		m.ParseErrors.WithLabelValues(errorKind(err)).Inc()
		return
	}
	m.ParseTotal.WithLabelValues("ok").Inc()
	m.ParseAtoms.WithLabelValues().Observe(float64(atoms))
}

// RecordMatch records one classification pass.
func (m *EngineMetrics) RecordMatch(d time.Duration) {
	m.MatchDuration.WithLabelValues().Observe(d.Seconds())
}

// RecordReaction records one Engine.React call under the rule id and an
// outcome derived from err: "applied", "truncated" or the error code.
func (m *EngineMetrics) RecordReaction(rule int, d time.Duration, truncated bool, err error) {
	id := strconv.Itoa(rule)
	outcome := "applied"
	switch {
	case err != nil:
		outcome = string(errors.GetCode(err))
	case truncated:
		outcome = "truncated"
	}
	m.ReactionsTotal.WithLabelValues(id, outcome).Inc()
	m.ReactionDuration.WithLabelValues(id).Observe(d.Seconds())
}

func (m *EngineMetrics) RecordCacheHit(cache string)  { m.CacheHitsTotal.WithLabelValues(cache).Inc() }
func (m *EngineMetrics) RecordCacheMiss(cache string) { m.CacheMissesTotal.WithLabelValues(cache).Inc() }

// RecordJob counts a finished worker job under its outcome.
func (m *EngineMetrics) RecordJob(status string) { m.JobsTotal.WithLabelValues(status).Inc() }

// TrackJob marks a job as in flight until the returned func is called.
func (m *EngineMetrics) TrackJob() func() {
	g := m.JobsInFlight.WithLabelValues()
	g.Inc()
	return g.Dec
}

func (m *EngineMetrics) RecordCatalogReload(err error) {
	if err != nil {
		m.CatalogReloads.WithLabelValues("error").Inc()
		return
	}
	m.CatalogReloads.WithLabelValues("ok").Inc()
}

// RecordHTTPRequest is called by the HTTP metrics middleware. path is the
// route template, never the raw URL.
func (m *EngineMetrics) RecordHTTPRequest(method, path string, status int, d time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

func errorKind(err error) string {
	if pe, ok := errors.AsParseError(err); ok {
		if pe.Kind == errors.KindSemantic {
			return "semantic"
		}
		return "syntax"
	}
	if errors.IsCode(err, errors.ErrCodeMatchTimeout) || errors.IsCode(err, errors.ErrCodeTimeout) {
		return "timeout"
	}
	return "other"
}
