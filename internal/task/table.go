package task

import (
	"github.com/GoSim-25-26J-441/gridrun/internal/runner"
	"github.com/GoSim-25-26J-441/gridrun/internal/sink"
	"github.com/GoSim-25-26J-441/gridrun/internal/store"
	"github.com/GoSim-25-26J-441/gridrun/pkg/logger"
)

// TableTask is a Task whose results go to a named table of a store. Each
// finished run is added to the store's run log.
type TableTask struct {
	*Task
	store *store.Store
	table string

	// Overwrite drops the table before a full Run. Batches always append.
	Overwrite bool
}

// NewTableTask wraps t so its results are written to table in st.
func NewTableTask(st *store.Store, table string, t *Task) *TableTask {
	return &TableTask{Task: t, store: st, table: table}
}

// Table returns the table name.
func (tt *TableTask) Table() string {
	return tt.table
}

// Run runs the whole grid into the table.
func (tt *TableTask) Run(progress runner.Progress) (*Report, error) {
	dst, err := sink.NewTable(tt.store, tt.table, tt.Overwrite)
	if err != nil {
		return nil, err
	}
	report, err := tt.Task.Run(dst, progress)
	if err != nil {
		return nil, err
	}
	tt.logRun(report)
	return report, nil
}

// RunBatch runs one batch of the grid into the table.
func (tt *TableTask) RunBatch(b, nBatch int, progress runner.Progress) (*Report, error) {
	if _, err := tt.BatchRange(b, nBatch); err != nil {
		return nil, err
	}
	dst, err := sink.NewTable(tt.store, tt.table, false)
	if err != nil {
		return nil, err
	}
	report, err := tt.Task.RunBatch(b, nBatch, dst, progress)
	if err != nil {
		return nil, err
	}
	tt.logRun(report)
	return report, nil
}

func (tt *TableTask) logRun(report *Report) {
	report.Table = tt.table
	run := report.StoreRun()
	if err := tt.store.RecordRun(run); err != nil {
		logger.Warn("failed to record run", "function", report.Function, "error", err)
		return
	}
	report.RunID = run.ID
}

// StoreRun converts the report into a run log entry.
func (r *Report) StoreRun() *store.Run {
	return &store.Run{
		ID:             r.RunID,
		Function:       r.Function,
		Table:          r.Table,
		Batch:          r.Batch,
		NBatch:         r.NBatch,
		Total:          r.Total,
		Completed:      r.Completed,
		Failed:         r.Failed,
		ElapsedSeconds: r.Elapsed.Seconds(),
		Durations:      r.Durations,
		StartedAt:      r.StartedAt,
		FinishedAt:     r.FinishedAt,
	}
}
