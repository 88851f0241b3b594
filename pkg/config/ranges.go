package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// maxGenerated bounds the number of values a single generator may produce.
const maxGenerated = 10000

// ParseRange expands a "min:max:step" string into its values, max inclusive.
// When all three parts are integers the values are ints, otherwise float64.
func ParseRange(s string) ([]any, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return nil, fmt.Errorf("invalid range format %q: expected min:max:step", s)
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	if ints, ok := parseInts(parts); ok {
		values, err := GenerateIntRange(ints[0], ints[1], ints[2])
		if err != nil {
			return nil, err
		}
		out := make([]any, len(values))
		for i, v := range values {
			out[i] = v
		}
		return out, nil
	}

	var bounds [3]float64
	for i, name := range []string{"min", "max", "step"} {
		v, err := strconv.ParseFloat(parts[i], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s value %q: %w", name, parts[i], err)
		}
		bounds[i] = v
	}
	values, err := GenerateRange(bounds[0], bounds[1], bounds[2])
	if err != nil {
		return nil, err
	}
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out, nil
}

func parseInts(parts []string) ([3]int, bool) {
	var out [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return out, false
		}
		out[i] = v
	}
	return out, true
}

// GenerateRange returns min, min+step, ... up to max inclusive. Values are
// rounded to 1e-9 to absorb floating point accumulation.
func GenerateRange(min, max, step float64) ([]float64, error) {
	if err := checkFinite(min, max, step); err != nil {
		return nil, err
	}
	if step <= 0 {
		return nil, fmt.Errorf("step must be positive, got %g", step)
	}
	if min > max {
		return nil, fmt.Errorf("min %g is greater than max %g", min, max)
	}
	count := math.Floor((max-min)/step+1e-9) + 1
	if count > maxGenerated {
		return nil, fmt.Errorf("range %g:%g:%g yields %g values (limit %d)", min, max, step, count, maxGenerated)
	}
	out := make([]float64, int(count))
	for i := range out {
		out[i] = math.Round((min+float64(i)*step)*1e9) / 1e9
	}
	return out, nil
}

// GenerateIntRange returns min, min+step, ... up to max inclusive.
func GenerateIntRange(min, max, step int) ([]int, error) {
	if step <= 0 {
		return nil, fmt.Errorf("step must be positive, got %d", step)
	}
	if min > max {
		return nil, fmt.Errorf("min %d is greater than max %d", min, max)
	}
	// max-min wraps for wide ranges; the unsigned difference does not.
	count := (uint64(max)-uint64(min))/uint64(step) + 1
	if count > maxGenerated {
		return nil, fmt.Errorf("range %d:%d:%d yields %d values (limit %d)", min, max, step, count, maxGenerated)
	}
	out := make([]int, count)
	for i := range out {
		out[i] = min + i*step
	}
	return out, nil
}

func checkFinite(values ...float64) error {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("range bound %g is not finite", v)
		}
	}
	return nil
}

// Linspace returns n evenly spaced values from lo to hi inclusive.
func Linspace(lo, hi float64, n int) ([]float64, error) {
	if err := checkFinite(lo, hi); err != nil {
		return nil, err
	}
	if n < 1 || n > maxGenerated {
		return nil, fmt.Errorf("linspace count must be between 1 and %d, got %d", maxGenerated, n)
	}
	if n == 1 {
		return []float64{lo}, nil
	}
	return floats.Span(make([]float64, n), lo, hi), nil
}

// Logspace returns n values spaced evenly on a log scale from 10^lo to 10^hi.
func Logspace(lo, hi float64, n int) ([]float64, error) {
	if err := checkFinite(lo, hi); err != nil {
		return nil, err
	}
	if n < 1 || n > maxGenerated {
		return nil, fmt.Errorf("logspace count must be between 1 and %d, got %d", maxGenerated, n)
	}
	if n == 1 {
		return []float64{math.Pow(10, lo)}, nil
	}
	return floats.LogSpan(make([]float64, n), math.Pow(10, lo), math.Pow(10, hi)), nil
}
