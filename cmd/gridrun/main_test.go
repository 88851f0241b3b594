package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoSim-25-26J-441/gridrun/internal/notify"
	"github.com/GoSim-25-26J-441/gridrun/internal/store"
)

const planBody = `
tasks:
  - name: sum
    function: sum
    table: sums
    parameters:
      a: [1, 2]
      b: [10, 20]
  - name: mean
    function: gaussian_mean
    parameters:
      n_samples: [10, 20]
      seed: {range: "0:2:1"}
`

// writePlan writes a plan whose settings point at a database in dir.
func writePlan(t *testing.T, dir, extraSettings string) (planPath, dbPath string) {
	t.Helper()
	dbPath = filepath.Join(dir, "results.db")
	settings := "settings:\n  database_url: " + dbPath + "\n" + extraSettings
	planPath = filepath.Join(dir, "plan.yaml")
	require.NoError(t, os.WriteFile(planPath, []byte(settings+planBody), 0o644))
	return planPath, dbPath
}

func TestParseFlagsErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"batch without n-batch", []string{"-batch", "1"}},
		{"task and all", []string{"-task", "sum", "-all"}},
		{"log file and dir", []string{"-log-file", "a.log", "-log-dir", "logs"}},
		{"plot without axes", []string{"-plot", "out.png"}},
		{"positional", []string{"extra"}},
		{"unknown flag", []string{"-nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseFlags(tt.args, &bytes.Buffer{})
			assert.ErrorIs(t, err, errUsage)
		})
	}

	_, err := parseFlags([]string{"-h"}, &bytes.Buffer{})
	assert.True(t, errors.Is(err, flag.ErrHelp))
}

func TestListTasks(t *testing.T) {
	plan, _ := writePlan(t, t.TempDir(), "")
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-config", plan, "-list"}, &out))
	assert.Equal(t,
		"sum\tfunction=sum\ttable=sums\texperiments=4\n"+
			"mean\tfunction=gaussian_mean\ttable=mean\texperiments=6\n",
		out.String())
}

func TestRunRequiresTaskChoice(t *testing.T) {
	plan, _ := writePlan(t, t.TempDir(), "")
	err := run(context.Background(), []string{"-config", plan}, &bytes.Buffer{})
	assert.ErrorIs(t, err, errUsage)

	err = run(context.Background(), []string{"-config", plan, "-task", "missing"}, &bytes.Buffer{})
	assert.ErrorIs(t, err, errUsage)
}

func TestRunTaskIntoStore(t *testing.T) {
	dir := t.TempDir()
	plan, dbPath := writePlan(t, dir, "")

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-config", plan, "-task", "sum"}, &out))
	assert.Contains(t, out.String(), "sum: 4/4 completed, 0 failed")

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	f, err := st.GetTable("sums")
	require.NoError(t, err)
	require.Equal(t, 4, f.Len())
	sums, err := f.Float64s("sum")
	require.NoError(t, err)
	assert.Equal(t, []float64{11, 21, 12, 22}, sums)

	runs, err := st.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "sum", runs[0].Function)
	assert.Equal(t, "sums", runs[0].Table)
}

func TestRunBatchesAppend(t *testing.T) {
	dir := t.TempDir()
	plan, dbPath := writePlan(t, dir, "")
	logDir := filepath.Join(dir, "logs")

	for _, b := range []string{"2", "1", "3"} {
		args := []string{"-config", plan, "-task", "mean", "-batch", b, "-n-batch", "3", "-log-dir", logDir}
		require.NoError(t, run(context.Background(), args, &bytes.Buffer{}))
	}
	_, err := os.Stat(filepath.Join(logDir, "mean_batch_1_of_3.log"))
	assert.NoError(t, err)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()
	f, err := st.GetTable("mean")
	require.NoError(t, err)
	assert.Equal(t, 6, f.Len())

	err = run(context.Background(), []string{"-config", plan, "-task", "mean", "-batch", "4", "-n-batch", "3"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestShowAndPlot(t *testing.T) {
	dir := t.TempDir()
	plan, _ := writePlan(t, dir, "")
	ctx := context.Background()
	require.NoError(t, run(ctx, []string{"-config", plan, "-all"}, &bytes.Buffer{}))

	var out bytes.Buffer
	require.NoError(t, run(ctx, []string{"-config", plan, "-task", "sum", "-show"}, &out))
	assert.Contains(t, out.String(), "created_on")
	assert.Contains(t, out.String(), "22")

	png := filepath.Join(dir, "sums.png")
	args := []string{"-config", plan, "-table", "sums", "-plot", png, "-x", "b", "-y", "sum", "-color", "a"}
	require.NoError(t, run(ctx, args, &bytes.Buffer{}))
	info, err := os.Stat(png)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	err = run(ctx, []string{"-config", plan, "-table", "nothing", "-show"}, &bytes.Buffer{})
	assert.ErrorIs(t, err, store.ErrTableNotFound)
}

func TestRunNotifiesCallback(t *testing.T) {
	var mu sync.Mutex
	var got []notify.Payload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p notify.Payload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		mu.Lock()
		got = append(got, p)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()
	u, err := url.Parse(server.URL)
	require.NoError(t, err)

	callback := "  callback_url: http://localhost:" + u.Port() + "/runs/{run_id}\n"
	plan, _ := writePlan(t, t.TempDir(), callback)
	require.NoError(t, run(context.Background(), []string{"-config", plan, "-task", "sum", "-overwrite"}, &bytes.Buffer{}))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.Equal(t, "sum", got[0].Function)
	assert.Equal(t, 4, got[0].Completed)
	assert.False(t, strings.Contains(got[0].RunID, "{"), "run id %q", got[0].RunID)
	assert.NotEmpty(t, got[0].RunID)
}
