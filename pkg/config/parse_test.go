package config

import (
	"math"
	"reflect"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestParsePlanYAMLString(t *testing.T) {
	yamlText := `
tasks:
  - name: sums
    function: sum
    parameters:
      b: [10, 20]
      a: [1, 2]
      label: run
`
	plan, err := ParsePlanYAMLString(yamlText)
	if err != nil {
		t.Fatalf("ParsePlanYAMLString failed: %v", err)
	}
	if len(plan.Tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(plan.Tasks))
	}
	task := plan.Tasks[0]
	if task.TableName() != "sums" {
		t.Fatalf("expected table to default to task name, got %q", task.TableName())
	}

	var names []string
	for _, p := range task.Parameters {
		names = append(names, p.Name)
	}
	if want := []string{"b", "a", "label"}; !reflect.DeepEqual(names, want) {
		t.Fatalf("expected parameter order %v, got %v", want, names)
	}
	if got := task.Parameters[2].Value; got != "run" {
		t.Fatalf("expected scalar 'run', got %#v", got)
	}
	if got := task.Parameters[0].Value; !reflect.DeepEqual(got, []any{10, 20}) {
		t.Fatalf("expected [10 20], got %#v", got)
	}
}

func TestTaskSpecExpands(t *testing.T) {
	plan, err := ParsePlanYAMLString(`
tasks:
  - name: sums
    function: sum
    table: results
    overwrite: true
    parameters:
      a: [1, 2]
      b: {range: "10:30:10"}
`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	task, ok := plan.Task("sums")
	if !ok {
		t.Fatal("task sums not found")
	}
	if !task.Overwrite || task.TableName() != "results" {
		t.Fatalf("unexpected task fields: %+v", task)
	}
	spec, err := task.Spec()
	if err != nil {
		t.Fatalf("Spec failed: %v", err)
	}
	if spec.Size() != 6 {
		t.Fatalf("expected 6 experiments, got %d", spec.Size())
	}
	first := spec.Experiments()[0]
	if got := first.Keys(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("expected keys [a b], got %v", got)
	}
	if b, _ := first.Get("b"); b != 10 {
		t.Fatalf("expected int 10 for b, got %#v", b)
	}
}

func TestParseGenerators(t *testing.T) {
	plan, err := ParsePlanYAMLString(`
tasks:
  - name: gen
    function: sum
    parameters:
      lin: {linspace: [0, 1, 5]}
      log: {logspace: [-2, 0, 3]}
      frange: {range: "0.1:0.5:0.1"}
`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	params := plan.Tasks[0].Parameters

	lin := params[0].Value.([]any)
	if want := []any{0.0, 0.25, 0.5, 0.75, 1.0}; !reflect.DeepEqual(lin, want) {
		t.Fatalf("linspace: expected %v, got %v", want, lin)
	}

	logv := params[1].Value.([]any)
	for i, want := range []float64{0.01, 0.1, 1} {
		if got := logv[i].(float64); math.Abs(got-want) > 1e-12 {
			t.Fatalf("logspace[%d]: expected %g, got %g", i, want, got)
		}
	}

	fr := params[2].Value.([]any)
	if want := []any{0.1, 0.2, 0.3, 0.4, 0.5}; !reflect.DeepEqual(fr, want) {
		t.Fatalf("float range: expected %v, got %v", want, fr)
	}
}

func TestParsePlanYAMLInvalid(t *testing.T) {
	tests := []struct {
		name     string
		yamlText string
		wantErr  string
	}{
		{"No tasks", `tasks: []`, "at least one task"},
		{"Empty name", `
tasks:
  - function: sum`, "name cannot be empty"},
		{"Duplicate task", `
tasks:
  - {name: a, function: sum}
  - {name: a, function: sum}`, "duplicate task name"},
		{"Missing function", `
tasks:
  - name: a`, "function cannot be empty"},
		{"Bad table", `
tasks:
  - {name: a, function: sum, table: "my table"}`, "invalid table name"},
		{"Duplicate parameter", `
tasks:
  - name: a
    function: sum
    parameters:
      x: 1
      x: 2`, "duplicate parameter"},
		{"Reserved parameter", `
tasks:
  - name: a
    function: sum
    parameters:
      id: 1`, "reserved"},
		{"Parameters not a mapping", `
tasks:
  - name: a
    function: sum
    parameters: [1, 2]`, "must be a mapping"},
		{"Unknown generator", `
tasks:
  - name: a
    function: sum
    parameters:
      x: {arange: [0, 1]}`, "unknown generator"},
		{"Bad range", `
tasks:
  - name: a
    function: sum
    parameters:
      x: {range: "1:2"}`, "invalid range format"},
		{"Linspace arity", `
tasks:
  - name: a
    function: sum
    parameters:
      x: {linspace: [0, 1]}`, "expects [lo, hi, n]"},
		{"Fractional count", `
tasks:
  - name: a
    function: sum
    parameters:
      x: {linspace: [0, 1, 2.5]}`, "must be an integer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePlanYAMLString(tt.yamlText)
			if err == nil {
				t.Fatalf("expected error for %s", tt.name)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestParametersMarshalKeepsOrder(t *testing.T) {
	params := Parameters{
		{Name: "z", Value: 1},
		{Name: "a", Value: []any{1, 2}},
	}
	out, err := yaml.Marshal(params)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if want := "z: 1\na:\n    - 1\n    - 2\n"; string(out) != want {
		t.Fatalf("expected %q, got %q", want, string(out))
	}
}

func TestPlanTaskNames(t *testing.T) {
	plan := &Plan{Tasks: []TaskSpec{{Name: "b"}, {Name: "a"}}}
	if got := plan.TaskNames(); !reflect.DeepEqual(got, []string{"b", "a"}) {
		t.Fatalf("expected [b a], got %v", got)
	}
	if _, ok := plan.Task("missing"); ok {
		t.Fatal("expected missing task lookup to fail")
	}
}
