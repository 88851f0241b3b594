package metrics

import "time"

// Common metric names
const (
	MetricExperimentDuration = "experiment_duration_seconds"
	MetricExperimentSuccess  = "experiment_success_count"
	MetricExperimentFailure  = "experiment_failure_count"
)

// Outcome label values
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// RecordExperiment records the duration and outcome of one experiment.
func RecordExperiment(collector *Collector, d time.Duration, ok bool, timestamp time.Time) {
	outcome := OutcomeSuccess
	counter := MetricExperimentSuccess
	if !ok {
		outcome = OutcomeFailure
		counter = MetricExperimentFailure
	}
	collector.Record(MetricExperimentDuration, d.Seconds(), timestamp, OutcomeLabels(outcome))
	collector.Record(counter, 1, timestamp, nil)
}

// OutcomeLabels creates a labels map for an experiment outcome
func OutcomeLabels(outcome string) map[string]string {
	return map[string]string{
		"outcome": outcome,
	}
}

// Count returns the sum of a counter metric.
func Count(collector *Collector, name string) int {
	agg := collector.Aggregate(name)
	if agg == nil {
		return 0
	}
	return int(agg.Sum)
}
