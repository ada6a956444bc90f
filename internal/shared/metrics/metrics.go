package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every collector exposed on /metrics.
var Registry = prometheus.NewRegistry()

var (
	analysisStartedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "analysis_started_total",
		Help: "Total analyses started",
	})
	analysisOutcomeTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "analysis_outcome_total",
		Help: "Analyses by outcome (analyzed, degraded, insufficient_data, failed)",
	}, []string{"outcome", "tier"})
	inferenceFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inference_failures_total",
		Help: "Inference calls that fell back to a degraded result",
	}, []string{"reason"})
	persistFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "analysis_persist_failures_total",
		Help: "Analyses computed but not saved",
	})
	analysisDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "analysis_duration_ms",
		Help:    "Analysis duration in milliseconds",
		Buckets: []float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000},
	})
	coverageHistogram = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "profile_coverage_percentage",
		Help:    "Section coverage of analyzed inputs",
		Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
	})
	workerJobsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "analysis_jobs_total",
		Help: "Queued analysis jobs by result (received, completed, duplicate, failed, dropped)",
	}, []string{"result"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		analysisStartedTotal,
		analysisOutcomeTotal,
		inferenceFailuresTotal,
		persistFailuresTotal,
		analysisDuration,
		coverageHistogram,
		workerJobsTotal,
	)
}

// IncAnalysisStarted increments the started counter.
func IncAnalysisStarted() {
	analysisStartedTotal.Inc()
}

// IncOutcome counts a finished pipeline run.
func IncOutcome(outcome, tier string) {
	analysisOutcomeTotal.WithLabelValues(outcome, tier).Inc()
}

// IncInferenceFailure counts a degraded inference by reason.
func IncInferenceFailure(reason string) {
	inferenceFailuresTotal.WithLabelValues(reason).Inc()
}

// IncPersistFailure counts a failed save.
func IncPersistFailure() {
	persistFailuresTotal.Inc()
}

// ObserveCoverage records the coverage of an evaluated input.
func ObserveCoverage(pct float64) {
	coverageHistogram.Observe(pct)
}

// ObserveAnalysisDuration records an analysis duration.
func ObserveAnalysisDuration(d time.Duration) {
	if d < 0 {
		d = 0
	}
	analysisDuration.Observe(float64(d) / float64(time.Millisecond))
}

// IncJob counts a queued job by result.
func IncJob(result string) {
	workerJobsTotal.WithLabelValues(result).Inc()
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(Registry, promhttp.HandlerOpts{}))
}
