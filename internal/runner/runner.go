// Package runner executes experiments one after another, isolating each
// failure so a single bad parameter combination never aborts the run.
package runner

import (
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/GoSim-25-26J-441/gridrun/internal/metrics"
	"github.com/GoSim-25-26J-441/gridrun/pkg/logger"
	"github.com/GoSim-25-26J-441/gridrun/pkg/record"
)

// ErrPanic marks a failure caused by a panicking experiment.
var ErrPanic = errors.New("experiment panicked")

// Experiment computes result fields for one parameter record.
type Experiment interface {
	Run(params *record.Record) (*record.Record, error)
}

// Func adapts a plain function to Experiment.
type Func func(params *record.Record) (*record.Record, error)

func (f Func) Run(params *record.Record) (*record.Record, error) {
	return f(params)
}

// Recorder receives completed result records.
type Recorder interface {
	AddRecord(rec *record.Record) error
}

// Progress is called after every attempt with the 1-based count of attempted
// experiments and the constant total.
type Progress func(completed, total int)

// LogProgress is the default Progress. It emits one debug line per experiment.
func LogProgress(completed, total int) {
	logger.Debug("experiment", "completed", completed, "total", total)
}

// ExperimentError is the failure of a single experiment.
type ExperimentError struct {
	Params *record.Record
	Err    error
}

func (e *ExperimentError) Error() string {
	return fmt.Sprintf("experiment %s failed: %v", e.Params, e.Err)
}

func (e *ExperimentError) Unwrap() error {
	return e.Err
}

// Outcome is the result of one attempt: Result is set on success and Err on
// failure, never both.
type Outcome struct {
	Index    int
	Params   *record.Record
	Result   *record.Record
	Err      *ExperimentError
	Duration time.Duration
}

// OK reports whether the attempt succeeded.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Summary describes a finished run.
type Summary struct {
	Total     int
	Completed int
	Failed    int
	Elapsed   time.Duration
	Durations *metrics.Aggregation
}

// Attempt runs exp on a copy of params and merges its result fields into
// another copy, result values winning on name collisions. Errors and panics become a
// failed Outcome.
func Attempt(exp Experiment, params *record.Record) (out Outcome) {
	out.Params = params
	start := time.Now()
	defer func() {
		out.Duration = time.Since(start)
		if r := recover(); r != nil {
			logger.Debug("experiment panic stack", "stack", string(debug.Stack()))
			out.Result = nil
			out.Err = &ExperimentError{Params: params, Err: fmt.Errorf("%w: %v", ErrPanic, r)}
		}
	}()

	result, err := exp.Run(params.Clone())
	if err != nil {
		out.Err = &ExperimentError{Params: params, Err: err}
		return out
	}
	rec := params.Clone()
	rec.Merge(result)
	out.Result = rec
	return out
}

// Run attempts every experiment in order and adds each successful result to
// sink. A failed experiment, or a sink that rejects its record, is logged
// with the offending parameters and counted; the run always continues.
// A nil progress means LogProgress.
func Run(experiments []*record.Record, exp Experiment, sink Recorder, progress Progress) *Summary {
	if progress == nil {
		progress = LogProgress
	}
	collector := metrics.NewCollector()
	collector.Start()

	total := len(experiments)
	summary := &Summary{Total: total}
	for i, params := range experiments {
		out := Attempt(exp, params)
		out.Index = i
		if out.OK() {
			if err := sink.AddRecord(out.Result); err != nil {
				out.Err = &ExperimentError{Params: params, Err: fmt.Errorf("add record: %w", err)}
			}
		}

		if out.OK() {
			summary.Completed++
		} else {
			summary.Failed++
			logger.Error("experiment failed",
				"index", i,
				"params", params,
				"error", out.Err.Err,
			)
		}
		metrics.RecordExperiment(collector, out.Duration, out.OK(), time.Now())
		progress(i+1, total)
	}

	collector.Stop()
	summary.Elapsed = collector.Elapsed()
	summary.Durations = collector.Aggregate(metrics.MetricExperimentDuration)
	return summary
}
