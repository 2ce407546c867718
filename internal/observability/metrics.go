package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type moduleMetrics struct {
	generationTotal    *prometheus.CounterVec
	generationDuration prometheus.Histogram
	activeTasks        prometheus.Gauge

	storeWriteDuration prometheus.Histogram

	judgeVerdictTotal *prometheus.CounterVec
	hookDispatchTotal *prometheus.CounterVec
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			generationTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "generation_total",
					Help: "Total generation tasks by status.",
				},
				[]string{"status"},
			),
			generationDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "generation_duration_seconds",
					Help:    "Generation task duration in seconds.",
					Buckets: prometheus.DefBuckets,
				},
			),
			activeTasks: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "generation_active_tasks",
					Help: "Number of generation tasks currently running.",
				},
			),
			storeWriteDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "thread_store_write_duration_seconds",
					Help:    "Thread store write duration in seconds.",
					Buckets: prometheus.DefBuckets,
				},
			),
			judgeVerdictTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "reflection_judge_verdict_total",
					Help: "Reflection judge verdicts by outcome.",
				},
				[]string{"outcome"},
			),
			hookDispatchTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "hook_dispatch_total",
					Help: "Hook pipeline dispatches by kind.",
				},
				[]string{"kind"},
			),
		}

		prometheus.MustRegister(
			m.generationTotal,
			m.generationDuration,
			m.activeTasks,
			m.storeWriteDuration,
			m.judgeVerdictTotal,
			m.hookDispatchTotal,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

// MetricsHandler exposes the process metrics over HTTP.
func MetricsHandler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

// RecordGeneration records one finished generation task.
func RecordGeneration(status string, d time.Duration) {
	m := getMetrics()
	m.generationTotal.WithLabelValues(status).Inc()
	m.generationDuration.Observe(d.Seconds())
}

// SetActiveTasks sets the running-task gauge.
func SetActiveTasks(n int) {
	getMetrics().activeTasks.Set(float64(n))
}

// RecordStoreWrite records one thread store write.
func RecordStoreWrite(d time.Duration) {
	getMetrics().storeWriteDuration.Observe(d.Seconds())
}

// RecordJudgeVerdict records one reflection judge outcome.
func RecordJudgeVerdict(outcome string) {
	getMetrics().judgeVerdictTotal.WithLabelValues(outcome).Inc()
}

// RecordHookDispatch records one hook pipeline dispatch.
func RecordHookDispatch(kind string) {
	getMetrics().hookDispatchTotal.WithLabelValues(kind).Inc()
}
