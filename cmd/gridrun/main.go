// Command gridrun runs the experiment tasks of a plan file, or one batch of
// them, and stores the results in a local database or on a gridd server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/GoSim-25-26J-441/gridrun/internal/experiments"
	"github.com/GoSim-25-26J-441/gridrun/internal/notify"
	"github.com/GoSim-25-26J-441/gridrun/internal/plot"
	"github.com/GoSim-25-26J-441/gridrun/internal/rpc"
	"github.com/GoSim-25-26J-441/gridrun/internal/sink"
	"github.com/GoSim-25-26J-441/gridrun/internal/store"
	"github.com/GoSim-25-26J-441/gridrun/internal/task"
	"github.com/GoSim-25-26J-441/gridrun/pkg/config"
	"github.com/GoSim-25-26J-441/gridrun/pkg/frame"
	"github.com/GoSim-25-26J-441/gridrun/pkg/logger"
)

var errUsage = errors.New("usage error")

type options struct {
	configPath string
	taskName   string
	all        bool
	batch      int
	nBatch     int
	logLevel   string
	logFile    string
	logDir     string
	overwrite  bool
	remote     string

	list     bool
	show     bool
	table    string
	plotPath string
	x        string
	y        string
	color    string
	row      string
	column   string
	xlog     bool
	ylog     bool
}

func parseFlags(args []string, output io.Writer) (*options, error) {
	o := &options{}
	fs := flag.NewFlagSet("gridrun", flag.ContinueOnError)
	fs.SetOutput(output)

	fs.StringVar(&o.configPath, "config", "config/plan.yaml", "plan file")
	fs.StringVar(&o.taskName, "task", "", "task to run (required when the plan has several tasks)")
	fs.BoolVar(&o.all, "all", false, "run every task of the plan")
	fs.IntVar(&o.batch, "batch", 0, "1-based batch to run (requires -n-batch)")
	fs.IntVar(&o.nBatch, "n-batch", 0, "number of batches the grid is split into")
	fs.StringVar(&o.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	fs.StringVar(&o.logFile, "log-file", "", "append logs to this file")
	fs.StringVar(&o.logDir, "log-dir", "", "write logs to a per-task file in this directory")
	fs.BoolVar(&o.overwrite, "overwrite", false, "drop the result table before a full run")
	fs.StringVar(&o.remote, "remote", "", "gRPC address of a gridd server to send results to")

	fs.BoolVar(&o.list, "list", false, "list the plan's tasks and exit")
	fs.BoolVar(&o.show, "show", false, "print the result table and exit")
	fs.StringVar(&o.table, "table", "", "result table for -show and -plot (default: the task's table)")
	fs.StringVar(&o.plotPath, "plot", "", "plot the result table to this .png or .svg file and exit")
	fs.StringVar(&o.x, "x", "", "x column for -plot")
	fs.StringVar(&o.y, "y", "", "comma separated y columns for -plot")
	fs.StringVar(&o.color, "color", "", "color column for -plot")
	fs.StringVar(&o.row, "row", "", "facet row column for -plot")
	fs.StringVar(&o.column, "column", "", "facet column column for -plot")
	fs.BoolVar(&o.xlog, "xlog", false, "log scale x axis for -plot")
	fs.BoolVar(&o.ylog, "ylog", false, "log scale y axis for -plot")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %w", errUsage, err)
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("%w: unexpected arguments %v", errUsage, fs.Args())
	}
	if (o.batch == 0) != (o.nBatch == 0) {
		return nil, fmt.Errorf("%w: -batch and -n-batch must be given together", errUsage)
	}
	if o.all && o.taskName != "" {
		return nil, fmt.Errorf("%w: -task and -all are mutually exclusive", errUsage)
	}
	if o.logFile != "" && o.logDir != "" {
		return nil, fmt.Errorf("%w: -log-file and -log-dir are mutually exclusive", errUsage)
	}
	if o.plotPath != "" && (o.x == "" || o.y == "") {
		return nil, fmt.Errorf("%w: -plot requires -x and -y", errUsage)
	}
	return o, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout)
	stop()
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		logger.Error("gridrun failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	opts, err := parseFlags(args, stdout)
	if err != nil {
		return err
	}

	plan, err := config.LoadPlan(opts.configPath)
	if err != nil {
		return err
	}
	settings, err := config.LoadSettings(opts.configPath)
	if err != nil {
		return err
	}
	applyOverrides(settings, opts)

	if opts.list {
		return listTasks(plan, stdout)
	}

	reporting := opts.show || opts.plotPath != ""
	var selected []*config.TaskSpec
	if !reporting || opts.table == "" {
		selected, err = selectTasks(plan, opts)
		if err != nil {
			return err
		}
	}

	closeLog, err := setupLogging(settings, opts, selected)
	if err != nil {
		return err
	}
	defer closeLog()

	b, err := openBackend(settings, opts)
	if err != nil {
		return err
	}
	defer b.Close()

	if reporting {
		table, err := reportTable(opts, selected)
		if err != nil {
			return err
		}
		f, err := b.frame(ctx, table)
		if err != nil {
			return err
		}
		if opts.show {
			f.WriteTable(stdout)
		}
		if opts.plotPath != "" {
			return savePlot(f, opts)
		}
		return nil
	}

	notifier := notify.NewNotifier()
	for _, ts := range selected {
		logger.Info("running task", "task", ts.Name, "function", ts.Function, "table", ts.TableName())
		report, err := b.runTask(ctx, ts, opts)
		if err != nil {
			return fmt.Errorf("task %s: %w", ts.Name, err)
		}
		fmt.Fprintf(stdout, "%s: %d/%d completed, %d failed in %s (table %s)\n",
			ts.Name, report.Completed, report.Total, report.Failed, report.Elapsed.Round(time.Millisecond), report.Table)

		if settings.CallbackURL != "" {
			if err := notifier.Notify(ctx, settings.CallbackURL, settings.CallbackSecret, report.StoreRun()); err != nil {
				logger.Warn("run notification failed", "task", ts.Name, "error", err)
			}
		}
	}
	return nil
}

func applyOverrides(s *config.Settings, o *options) {
	if o.logLevel != "" {
		s.LogLevel = o.logLevel
	}
	if o.logFile != "" {
		s.LogFile, s.LogDir = o.logFile, ""
	}
	if o.logDir != "" {
		s.LogDir, s.LogFile = o.logDir, ""
	}
}

func listTasks(plan *config.Plan, w io.Writer) error {
	for i := range plan.Tasks {
		ts := &plan.Tasks[i]
		spec, err := ts.Spec()
		if err != nil {
			return fmt.Errorf("task %s: %w", ts.Name, err)
		}
		fmt.Fprintf(w, "%s\tfunction=%s\ttable=%s\texperiments=%d\n",
			ts.Name, ts.Function, ts.TableName(), spec.Size())
	}
	return nil
}

func selectTasks(plan *config.Plan, o *options) ([]*config.TaskSpec, error) {
	switch {
	case o.all:
		out := make([]*config.TaskSpec, len(plan.Tasks))
		for i := range plan.Tasks {
			out[i] = &plan.Tasks[i]
		}
		return out, nil
	case o.taskName != "":
		ts, ok := plan.Task(o.taskName)
		if !ok {
			return nil, fmt.Errorf("%w: unknown task %q (have %s)", errUsage, o.taskName, strings.Join(plan.TaskNames(), ", "))
		}
		return []*config.TaskSpec{ts}, nil
	case len(plan.Tasks) == 1:
		return []*config.TaskSpec{&plan.Tasks[0]}, nil
	}
	return nil, fmt.Errorf("%w: plan has several tasks, pass -task or -all (have %s)", errUsage, strings.Join(plan.TaskNames(), ", "))
}

func reportTable(o *options, selected []*config.TaskSpec) (string, error) {
	if o.table != "" {
		return o.table, nil
	}
	if len(selected) != 1 {
		return "", fmt.Errorf("%w: -show and -plot need one task or -table", errUsage)
	}
	return selected[0].TableName(), nil
}

// setupLogging installs the default logger and returns a function releasing
// its file, if any.
func setupLogging(s *config.Settings, o *options, selected []*config.TaskSpec) (func(), error) {
	path := s.LogFile
	if s.LogDir != "" {
		if err := os.MkdirAll(s.LogDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory %s: %w", s.LogDir, err)
		}
		path = filepath.Join(s.LogDir, logFileName(o, selected))
	}
	if path == "" {
		logger.SetDefault(logger.NewText(s.LogLevel, os.Stderr))
		return func() {}, nil
	}
	l, closer, err := logger.NewFile(s.LogLevel, path)
	if err != nil {
		return nil, err
	}
	logger.SetDefault(l)
	return func() { _ = closer.Close() }, nil
}

func logFileName(o *options, selected []*config.TaskSpec) string {
	name := "all_tasks"
	if len(selected) == 1 && !o.all {
		name = selected[0].Name
	}
	if o.nBatch > 0 {
		name = fmt.Sprintf("%s_batch_%d_of_%d", name, o.batch, o.nBatch)
	}
	return name + ".log"
}

func savePlot(f *frame.Frame, o *options) error {
	fig, err := plot.QPlot(f, plot.Options{
		X: o.x,
		Y: strings.Split(o.y, ","),
		Aesthetics: plot.Aesthetics{
			Row:    o.row,
			Column: o.column,
			Color:  o.color,
		},
		XLog: o.xlog,
		YLog: o.ylog,
	})
	if err != nil {
		return err
	}
	if err := fig.Save(o.plotPath); err != nil {
		return err
	}
	logger.Info("plot saved", "path", o.plotPath, "rows", fig.Rows(), "cols", fig.Cols())
	return nil
}

// backend is where results go: a local store, or a gridd server when conn
// is set.
type backend struct {
	store *store.Store
	conn  *grpc.ClientConn
}

func openBackend(s *config.Settings, o *options) (*backend, error) {
	if o.remote != "" {
		conn, err := grpc.NewClient(o.remote, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to %s: %w", o.remote, err)
		}
		return &backend{conn: conn}, nil
	}
	st, err := store.Open(s.DatabaseURL)
	if err != nil {
		return nil, err
	}
	return &backend{store: st}, nil
}

func (b *backend) Close() error {
	if b.conn != nil {
		return b.conn.Close()
	}
	return b.store.Close()
}

func (b *backend) frame(ctx context.Context, table string) (*frame.Frame, error) {
	if b.conn != nil {
		return rpc.NewRecordClient(b.conn).ListRecords(ctx, table)
	}
	return b.store.GetTable(table)
}

func (b *backend) runTask(ctx context.Context, ts *config.TaskSpec, o *options) (*task.Report, error) {
	fn, err := experiments.Lookup(ts.Function)
	if err != nil {
		return nil, err
	}
	spec, err := ts.Spec()
	if err != nil {
		return nil, err
	}
	t := task.NewFunc(fn, spec).WithName(ts.Function)
	overwrite := ts.Overwrite || o.overwrite
	progress := task.ProgressEvery(10)

	if b.conn == nil {
		tt := task.NewTableTask(b.store, ts.TableName(), t)
		tt.Overwrite = overwrite
		if o.nBatch > 0 {
			return tt.RunBatch(o.batch, o.nBatch, progress)
		}
		return tt.Run(progress)
	}

	if o.nBatch > 0 {
		if _, err := t.BatchRange(o.batch, o.nBatch); err != nil {
			return nil, err
		}
	}
	// batches share the table, so only a full run may drop it
	dst, err := sink.NewRemote(ctx, b.conn, ts.TableName(), overwrite && o.nBatch == 0)
	if err != nil {
		return nil, err
	}
	var report *task.Report
	if o.nBatch > 0 {
		report, err = t.RunBatch(o.batch, o.nBatch, dst, progress)
	} else {
		report, err = t.Run(dst, progress)
	}
	if err != nil {
		return nil, err
	}
	report.Table = ts.TableName()
	report.RunID = store.NewRunID()
	return report, nil
}
