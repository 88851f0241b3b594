// Package task binds an experiment function to a parameter grid and runs the
// whole grid, or one batch of it, into a sink.
package task

import (
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/gridrun/internal/batch"
	"github.com/GoSim-25-26J-441/gridrun/internal/grid"
	"github.com/GoSim-25-26J-441/gridrun/internal/metrics"
	"github.com/GoSim-25-26J-441/gridrun/internal/runner"
	"github.com/GoSim-25-26J-441/gridrun/pkg/logger"
	"github.com/GoSim-25-26J-441/gridrun/pkg/record"
)

// ErrTaskRunning is returned when Run or RunBatch is called on a task that is running.
var ErrTaskRunning = errors.New("task is already running")

// State is the lifecycle state of a Task.
type State string

const (
	StateConfigured   State = "configured"
	StateMaterialized State = "materialized"
	StateRunning      State = "running"
)

// Report describes one finished Run or RunBatch.
type Report struct {
	RunID      string               `json:"run_id,omitempty"`
	Function   string               `json:"function"`
	Table      string               `json:"table,omitempty"`
	Batch      int                  `json:"batch,omitempty"`
	NBatch     int                  `json:"n_batch,omitempty"`
	Total      int                  `json:"total"`
	Completed  int                  `json:"completed"`
	Failed     int                  `json:"failed"`
	Elapsed    time.Duration        `json:"elapsed_ns"`
	Durations  *metrics.Aggregation `json:"durations,omitempty"`
	StartedAt  time.Time            `json:"started_at"`
	FinishedAt time.Time            `json:"finished_at"`
}

// Task runs one experiment over every point of a parameter grid. The grid is
// expanded once and cached, so every run and every batch of the same Task
// sees the same experiment order.
type Task struct {
	name string
	exp  runner.Experiment
	spec *grid.Spec

	mu          sync.Mutex
	state       State
	experiments []*record.Record
}

// New creates a task running exp over spec.
func New(exp runner.Experiment, spec *grid.Spec) *Task {
	if spec == nil {
		spec = grid.NewSpec()
	}
	return &Task{
		name:  experimentName(exp),
		exp:   exp,
		spec:  spec,
		state: StateConfigured,
	}
}

// NewFunc creates a task from a plain function.
func NewFunc(fn func(*record.Record) (*record.Record, error), spec *grid.Spec) *Task {
	return New(runner.Func(fn), spec)
}

// WithName overrides the function name used in logs and reports.
func (t *Task) WithName(name string) *Task {
	t.name = name
	return t
}

// Name returns the function name.
func (t *Task) Name() string {
	return t.name
}

// Spec returns the parameter specification.
func (t *Task) Spec() *grid.Spec {
	return t.spec
}

// State returns the current lifecycle state.
func (t *Task) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Experiments returns the expanded grid, computing it on first use.
func (t *Task) Experiments() []*record.Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.materializeLocked()
	return t.experiments
}

// Len returns the number of experiments in the grid.
func (t *Task) Len() int {
	return len(t.Experiments())
}

func (t *Task) materializeLocked() {
	if t.experiments != nil {
		return
	}
	t.experiments = grid.Expand(t.spec)
	if t.state == StateConfigured {
		t.state = StateMaterialized
	}
}

// Run attempts every experiment of the grid, writing results to sink.
func (t *Task) Run(sink runner.Recorder, progress runner.Progress) (*Report, error) {
	experiments, err := t.begin()
	if err != nil {
		return nil, err
	}
	defer t.end()

	logger.Info("running task", "function", t.name, "experiments", len(experiments))
	report := t.execute(experiments, sink, progress)
	logger.Info("task done",
		"function", t.name,
		"completed", report.Completed,
		"failed", report.Failed,
		"elapsed", report.Elapsed.Round(time.Millisecond).String(),
	)
	return report, nil
}

// RunBatch attempts only the experiments of the 1-based batch out of nBatch.
// Invalid batch arguments fail with batch.ErrInvalidArgument before sink is
// touched.
func (t *Task) RunBatch(b, nBatch int, sink runner.Recorder, progress runner.Progress) (*Report, error) {
	r, err := t.BatchRange(b, nBatch)
	if err != nil {
		return nil, err
	}
	experiments, err := t.begin()
	if err != nil {
		return nil, err
	}
	defer t.end()

	slice := experiments[r.Start:r.End]
	logger.Info("running task batch",
		"function", t.name,
		"batch", b,
		"n_batch", nBatch,
		"range", r.String(),
		"experiments", len(slice),
	)
	report := t.execute(slice, sink, progress)
	report.Batch = b
	report.NBatch = nBatch
	logger.Info("task batch done",
		"function", t.name,
		"batch", b,
		"completed", report.Completed,
		"failed", report.Failed,
		"elapsed", report.Elapsed.Round(time.Millisecond).String(),
	)
	return report, nil
}

// BatchRange returns the experiment index range of the 1-based batch.
func (t *Task) BatchRange(b, nBatch int) (batch.Range, error) {
	r, err := batch.Position(b, nBatch, t.Len())
	if err != nil {
		return batch.Range{}, fmt.Errorf("task %s: %w", t.name, err)
	}
	return r, nil
}

func (t *Task) begin() ([]*record.Record, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == StateRunning {
		return nil, fmt.Errorf("%w: %s", ErrTaskRunning, t.name)
	}
	t.materializeLocked()
	t.state = StateRunning
	return t.experiments, nil
}

func (t *Task) end() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = StateMaterialized
}

func (t *Task) execute(experiments []*record.Record, sink runner.Recorder, progress runner.Progress) *Report {
	started := time.Now()
	summary := runner.Run(experiments, t.exp, sink, progress)
	return &Report{
		Function:   t.name,
		Total:      summary.Total,
		Completed:  summary.Completed,
		Failed:     summary.Failed,
		Elapsed:    summary.Elapsed,
		Durations:  summary.Durations,
		StartedAt:  started,
		FinishedAt: time.Now(),
	}
}

// experimentName returns the bare function name of a Func, or the type name
// of any other Experiment.
func experimentName(exp runner.Experiment) string {
	if fn, ok := exp.(runner.Func); ok && fn != nil {
		name := runtime.FuncForPC(reflect.ValueOf(fn).Pointer()).Name()
		if i := strings.LastIndex(name, "/"); i >= 0 {
			name = name[i+1:]
		}
		if i := strings.Index(name, "."); i >= 0 {
			name = name[i+1:]
		}
		return name
	}
	t := reflect.TypeOf(exp)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "<nil>"
	}
	return t.Name()
}

// ProgressEvery returns a Progress that logs at info level each time another
// pct percent of the experiments has been attempted, and on completion.
func ProgressEvery(pct int) runner.Progress {
	if pct <= 0 {
		pct = 10
	}
	next := pct
	return func(completed, total int) {
		if total == 0 {
			return
		}
		done := completed * 100 / total
		if done >= next || completed == total {
			logger.Info("progress", "completed", completed, "total", total, "percent", done)
			next = (done/pct + 1) * pct
		}
	}
}
