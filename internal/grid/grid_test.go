package grid

import (
	"testing"

	"github.com/GoSim-25-26J-441/gridrun/pkg/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestAsValues(t *testing.T) {
	testCases := []struct {
		name     string
		input    any
		expected []any
	}{
		{"any_slice_passthrough", []any{1, "a", 2.5}, []any{1, "a", 2.5}},
		{"float_slice", []float64{0.1, 0.2}, []any{0.1, 0.2}},
		{"int_slice", []int{3, 1, 2}, []any{3, 1, 2}},
		{"string_slice", []string{"x", "y"}, []any{"x", "y"}},
		{"array", [2]int{7, 8}, []any{7, 8}},
		{"scalar_int", 5, []any{5}},
		{"scalar_float", 0.5, []any{0.5}},
		{"string_is_scalar", "abc", []any{"abc"}},
		{"bytes_is_scalar", []byte("ab"), []any{[]byte("ab")}},
		{"bool", true, []any{true}},
		{"nil", nil, []any{nil}},
		{"map_is_scalar", map[string]int{"a": 1}, []any{map[string]int{"a": 1}}},
		{"vector", mat.NewVecDense(3, []float64{1, 2, 3}), []any{1.0, 2.0, 3.0}},
		{"empty_slice", []int{}, []any{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, AsValues(tc.input))
		})
	}
}

func TestAsValuesAnySliceIsSameSlice(t *testing.T) {
	in := []any{1, 2}
	out := AsValues(in)
	require.Len(t, out, 2)
	out[0] = 99
	assert.Equal(t, 99, in[0], "[]any should pass through unchanged")
}

func TestExpandEndToEndOrder(t *testing.T) {
	spec, err := SpecOf("a", []int{1, 2}, "b", []int{10, 20})
	require.NoError(t, err)

	got := spec.Experiments()
	want := [][2]int{{1, 10}, {1, 20}, {2, 10}, {2, 20}}
	require.Len(t, got, len(want))
	for i, w := range want {
		a, _ := got[i].Get("a")
		b, _ := got[i].Get("b")
		assert.Equal(t, w[0], a, "experiment %d a", i)
		assert.Equal(t, w[1], b, "experiment %d b", i)
		assert.Equal(t, []string{"a", "b"}, got[i].Keys())
	}
}

func TestExpandCardinality(t *testing.T) {
	testCases := []struct {
		name  string
		kv    []any
		count int
	}{
		{"single_scalars", []any{"a", 1, "b", "x"}, 1},
		{"two_by_three", []any{"a", []int{1, 2}, "b", []string{"x", "y", "z"}}, 6},
		{"three_dims", []any{"a", []int{1, 2}, "b", []int{1, 2, 3}, "c", []float64{0, 1, 2, 3}}, 24},
		{"scalar_with_list", []any{"a", 3, "b", []int{1, 2, 3, 4, 5}}, 5},
		{"empty_dimension", []any{"a", []int{}, "b", []int{1, 2}}, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			spec, err := SpecOf(tc.kv...)
			require.NoError(t, err)
			assert.Equal(t, tc.count, spec.Size())

			got := Expand(spec)
			require.Len(t, got, tc.count)
			for _, exp := range got {
				assert.Equal(t, spec.Names(), exp.Keys())
			}
		})
	}
}

func TestExpandEmptySpec(t *testing.T) {
	got := Expand(NewSpec())
	require.Len(t, got, 1)
	assert.Equal(t, 0, got[0].Len())
}

func TestExpandDeterministic(t *testing.T) {
	spec, err := SpecOf("x", []float64{0.1, 0.2, 0.3}, "y", []string{"p", "q"}, "z", 7)
	require.NoError(t, err)

	first := Expand(spec)
	second := Expand(spec)
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.True(t, first[i].Equal(second[i]), "experiment %d differs", i)
	}
}

func TestExpandNoDeduplication(t *testing.T) {
	spec, err := SpecOf("a", []int{1, 1}, "b", []int{2, 2})
	require.NoError(t, err)

	got := Expand(spec)
	require.Len(t, got, 4)
	for _, exp := range got {
		assert.True(t, exp.Equal(record.Of("a", 1, "b", 2)))
	}
}

func TestExpandLastParameterFastest(t *testing.T) {
	spec, err := SpecOf("slow", []string{"s0", "s1"}, "fast", []int{0, 1, 2})
	require.NoError(t, err)

	var fast []any
	for _, exp := range Expand(spec) {
		v, _ := exp.Get("fast")
		fast = append(fast, v)
	}
	assert.Equal(t, []any{0, 1, 2, 0, 1, 2}, fast)
}

func TestSpecAddValidation(t *testing.T) {
	s := NewSpec()
	require.NoError(t, s.Add("a", 1))
	assert.Error(t, s.Add("a", 2), "duplicate name")
	assert.Error(t, s.Add("", 2), "empty name")

	_, err := SpecOf("a")
	assert.Error(t, err)
	_, err = SpecOf(1, 2)
	assert.Error(t, err)
}
