package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	hybridAnalysis = "hybrid_analysis"

	// Job metrics
	jobsTotal         = "jobs_total"
	jobsRunning       = "jobs_running"
	recordsTotal      = "records_processed_total"
	eventsTotal       = "progress_events_total"
	sweeperEvictTotal = "sweeper_evictions_total"

	// Labels
	jobStateLabel     = "state"
	recordResultLabel = "result"
	eventOutcomeLabel = "outcome"
	evictedKindLabel  = "kind"
)

var jobsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: hybridAnalysis,
		Name:      jobsTotal,
		Help:      "number of analysis jobs by terminal/initial state transition",
	},
	[]string{jobStateLabel},
)

var jobsRunningMetric = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Subsystem: hybridAnalysis,
		Name:      jobsRunning,
		Help:      "number of jobs currently in processing state",
	},
)

var recordsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: hybridAnalysis,
		Name:      recordsTotal,
		Help:      "number of records run through the scoring pipeline",
	},
	[]string{recordResultLabel},
)

var eventsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: hybridAnalysis,
		Name:      eventsTotal,
		Help:      "number of progress events published to subscribers",
	},
	[]string{eventOutcomeLabel},
)

var sweeperEvictionsMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: hybridAnalysis,
		Name:      sweeperEvictTotal,
		Help:      "number of files and jobs evicted by the retention sweeper",
	},
	[]string{evictedKindLabel},
)

func IncreaseJobStateMetric(state string) {
	jobsTotalMetric.With(prometheus.Labels{jobStateLabel: state}).Inc()
}

func UpdateRunningJobsMetric(delta float64) {
	jobsRunningMetric.Add(delta)
}

func IncreaseRecordsMetric(result string) {
	recordsTotalMetric.With(prometheus.Labels{recordResultLabel: result}).Inc()
}

func IncreaseEventsMetric(outcome string) {
	eventsTotalMetric.With(prometheus.Labels{eventOutcomeLabel: outcome}).Inc()
}

func IncreaseEvictionsMetric(kind string) {
	sweeperEvictionsMetric.With(prometheus.Labels{evictedKindLabel: kind}).Inc()
}

func init() {
	registerMetrics()
}

func registerMetrics() {
	prometheus.MustRegister(jobsTotalMetric)
	prometheus.MustRegister(jobsRunningMetric)
	prometheus.MustRegister(recordsTotalMetric)
	prometheus.MustRegister(eventsTotalMetric)
	prometheus.MustRegister(sweeperEvictionsMetric)
}
