// Package experiments holds the named experiment functions a plan file can
// refer to.
package experiments

import (
	"fmt"
	"sort"
	"sync"

	"github.com/GoSim-25-26J-441/gridrun/internal/runner"
	"github.com/GoSim-25-26J-441/gridrun/pkg/record"
)

var (
	mu       sync.RWMutex
	registry = map[string]runner.Func{
		"teacher_student": TeacherStudent,
		"gaussian_mean":   GaussianMean,
		"sum":             Sum,
	}
)

// Register adds fn under name. Names must be unique.
func Register(name string, fn runner.Func) error {
	if name == "" || fn == nil {
		return fmt.Errorf("experiment name and function are required")
	}
	mu.Lock()
	defer mu.Unlock()
	if _, exists := registry[name]; exists {
		return fmt.Errorf("experiment already registered: %s", name)
	}
	registry[name] = fn
	return nil
}

// Lookup returns the experiment registered under name.
func Lookup(name string) (runner.Func, error) {
	mu.RLock()
	defer mu.RUnlock()
	fn, ok := registry[name]
	if !ok {
		return nil, &UnknownExperimentError{Name: name}
	}
	return fn, nil
}

// Names returns the registered names, sorted.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// UnknownExperimentError indicates an unregistered experiment name
type UnknownExperimentError struct {
	Name string
}

func (e *UnknownExperimentError) Error() string {
	return "unknown experiment: " + e.Name
}

// Sum adds every numeric parameter into "sum".
func Sum(params *record.Record) (*record.Record, error) {
	total := 0.0
	for _, v := range params.All() {
		switch v.(type) {
		case string, bool:
			continue
		}
		if x, ok := record.ToFloat64(v); ok {
			total += x
		}
	}
	return record.Of("sum", total), nil
}

func floatParam(p *record.Record, name string, def float64) (float64, error) {
	if !p.Has(name) {
		return def, nil
	}
	return p.Float64(name)
}

func intParam(p *record.Record, name string, def int) (int, error) {
	if !p.Has(name) {
		return def, nil
	}
	return p.Int(name)
}
