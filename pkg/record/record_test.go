package record

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSetKeepsInsertionOrder(t *testing.T) {
	r := New()
	r.Set("b", 1)
	r.Set("a", 2)
	r.Set("b", 3)

	if diff := cmp.Diff([]string{"b", "a"}, r.Keys()); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
	if v, _ := r.Get("b"); v != 3 {
		t.Fatalf("expected b=3, got %v", v)
	}
}

func TestZeroValueUsable(t *testing.T) {
	var r Record
	r.Set("x", 1.5)
	if r.Len() != 1 {
		t.Fatalf("expected 1 field, got %d", r.Len())
	}
}

func TestMergeOverridesAndAppends(t *testing.T) {
	params := Of("a", 1, "b", 10)
	result := Of("b", 99, "sum", 11)

	params.Merge(result)

	if diff := cmp.Diff([]string{"a", "b", "sum"}, params.Keys()); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
	if v, _ := params.Get("b"); v != 99 {
		t.Fatalf("expected result value to win on collision, got %v", v)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	orig := Of("a", 1)
	c := orig.Clone()
	c.Set("a", 2)
	c.Set("extra", true)

	if v, _ := orig.Get("a"); v != 1 {
		t.Fatalf("clone mutated original: a=%v", v)
	}
	if orig.Has("extra") {
		t.Fatal("clone added field to original")
	}
}

func TestDelete(t *testing.T) {
	r := Of("a", 1, "b", 2, "c", 3)
	r.Delete("b")
	r.Delete("missing")
	if diff := cmp.Diff([]string{"a", "c"}, r.Keys()); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
}

func TestFromMapSortsKeys(t *testing.T) {
	r := FromMap(map[string]any{"z": 1, "a": 2, "m": 3})
	if diff := cmp.Diff([]string{"a", "m", "z"}, r.Keys()); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
}

func TestOfPanicsOnOddArgs(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	Of("a")
}

func TestJSONRoundTripPreservesOrder(t *testing.T) {
	r := Of("zeta", 1, "alpha", "x", "mid", []any{1.0, 2.0})

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if string(data) != `{"zeta":1,"alpha":"x","mid":[1,2]}` {
		t.Fatalf("unexpected JSON: %s", data)
	}

	var back Record
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if !r.Equal(&back) {
		t.Fatalf("round trip mismatch: %v vs %v", r, &back)
	}
}

func TestUnmarshalRejectsNonObject(t *testing.T) {
	var r Record
	if err := json.Unmarshal([]byte(`[1,2]`), &r); err == nil {
		t.Fatal("expected error for JSON array")
	}
}

func TestLogValueIsGroup(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	log.Info("failed", "params", Of("a", 1, "b", "x"))

	out := buf.String()
	if !strings.Contains(out, "params.a=1") || !strings.Contains(out, "params.b=x") {
		t.Fatalf("expected grouped attrs, got: %s", out)
	}
}

func TestString(t *testing.T) {
	if got := Of("a", 1, "b", 2.5).String(); got != "{a=1 b=2.5}" {
		t.Fatalf("unexpected String(): %s", got)
	}
}

func TestNumericAccessors(t *testing.T) {
	r := Of("n", 10, "f", 0.5, "s", "abc", "whole", 4.0)

	if v, err := r.Float64("n"); err != nil || v != 10 {
		t.Fatalf("Float64(n) = %v, %v", v, err)
	}
	if _, err := r.Float64("s"); err == nil {
		t.Fatal("expected error for non-numeric field")
	}
	if _, err := r.Float64("missing"); err == nil {
		t.Fatal("expected error for missing field")
	}
	if v, err := r.Int("whole"); err != nil || v != 4 {
		t.Fatalf("Int(whole) = %v, %v", v, err)
	}
	if _, err := r.Int("f"); err == nil {
		t.Fatal("expected error for non-integral float")
	}
}

func TestValuesEqualAndCompare(t *testing.T) {
	if !ValuesEqual(1, 1.0) {
		t.Error("expected 1 == 1.0")
	}
	if ValuesEqual("1", 1) {
		t.Error("expected string and number to differ")
	}
	if !ValuesEqual([]any{1, "a"}, []any{1, "a"}) {
		t.Error("expected equal slices")
	}

	tests := []struct {
		a, b any
		want int
	}{
		{nil, 1, -1},
		{1, nil, 1},
		{1, 2.5, -1},
		{3, 2, 1},
		{2, 2.0, 0},
		{1, "a", -1},
		{"b", "a", 1},
	}
	for _, tt := range tests {
		if got := Compare(tt.a, tt.b); got != tt.want {
			t.Errorf("Compare(%v, %v) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
