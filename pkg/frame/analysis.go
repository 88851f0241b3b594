package frame

import (
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/GoSim-25-26J-441/gridrun/pkg/logger"
	"github.com/GoSim-25-26J-441/gridrun/pkg/record"
)

// Gather melts the given columns into two columns: varName holds the former
// column name and valueName its value. The remaining columns are kept as
// identifiers. Output rows are grouped by melted column, then by input row.
func Gather(f *Frame, melted []string, valueName, varName string) (*Frame, error) {
	for _, c := range melted {
		if !f.HasColumn(c) {
			return nil, fmt.Errorf("unknown column %q", c)
		}
	}
	if valueName == "" {
		valueName = "value"
	}
	if varName == "" {
		varName = "variable"
	}

	var ids []string
	for _, c := range f.columns {
		if !slices.Contains(melted, c) {
			ids = append(ids, c)
		}
	}

	out := make([]*record.Record, 0, len(melted)*len(f.rows))
	for _, m := range melted {
		for _, r := range f.rows {
			row := record.New()
			for _, id := range ids {
				v, _ := r.Get(id)
				row.Set(id, v)
			}
			row.Set(varName, m)
			v, _ := r.Get(m)
			row.Set(valueName, v)
			out = append(out, row)
		}
	}
	return FromRecords(out), nil
}

// GatherMatch melts every column named "{valueName}_{var}". The result holds
// the cell in valueName and the {var} suffix in varName.
func GatherMatch(f *Frame, valueName, varName string) (*Frame, error) {
	prefix := regexp.MustCompile("^" + regexp.QuoteMeta(valueName) + `_(\w+)`)
	var melted []string
	suffix := make(map[string]string)
	for _, c := range f.columns {
		if m := prefix.FindStringSubmatch(c); m != nil {
			melted = append(melted, c)
			suffix[c] = m[1]
		}
	}
	if len(melted) == 0 {
		return nil, fmt.Errorf("no column matches %s_*", valueName)
	}

	g, err := Gather(f, melted, valueName, varName)
	if err != nil {
		return nil, err
	}
	for _, r := range g.rows {
		v, _ := r.Get(varName)
		r.Set(varName, suffix[v.(string)])
	}
	return g, nil
}

// CountRecords groups rows by keys and returns one row per group with the
// group's key values and its size in "count", sorted by key values. Rows with
// a nil key value are left out.
func CountRecords(f *Frame, keys []string) (*Frame, error) {
	for _, k := range keys {
		if !f.HasColumn(k) {
			return nil, fmt.Errorf("unknown column %q", k)
		}
	}

	type group struct {
		values []any
		count  int
	}
	groups := make(map[string]*group)
	var order []*group
rows:
	for _, r := range f.rows {
		values := make([]any, len(keys))
		for i, k := range keys {
			v, _ := r.Get(k)
			if v == nil {
				continue rows
			}
			values[i] = v
		}
		id := rowKey(values)
		g, ok := groups[id]
		if !ok {
			g = &group{values: values}
			groups[id] = g
			order = append(order, g)
		}
		g.count++
	}

	slices.SortStableFunc(order, func(a, b *group) int {
		for i := range a.values {
			if c := record.Compare(a.values[i], b.values[i]); c != 0 {
				return c
			}
		}
		return 0
	})

	out := make([]*record.Record, len(order))
	for i, g := range order {
		row := record.New()
		for j, k := range keys {
			row.Set(k, g.values[j])
		}
		row.Set("count", g.count)
		out[i] = row
	}
	return FromRecords(out), nil
}

// Duplicated marks every row whose values over subset occur more than once.
// An empty subset compares all columns.
func Duplicated(f *Frame, subset []string) []bool {
	if len(subset) == 0 {
		subset = f.columns
	}
	ids := make([]string, len(f.rows))
	counts := make(map[string]int)
	for i, r := range f.rows {
		values := make([]any, len(subset))
		for j, c := range subset {
			values[j], _ = r.Get(c)
		}
		ids[i] = rowKey(values)
		counts[ids[i]]++
	}
	out := make([]bool, len(f.rows))
	for i, id := range ids {
		out[i] = counts[id] > 1
	}
	return out
}

// CheckDuplicates logs how many rows are duplicated over subset and, when
// keys are given, the duplicate counts grouped by keys. It returns the
// number of duplicated rows.
func CheckDuplicates(f *Frame, subset, keys []string) (int, error) {
	dup := Duplicated(f, subset)
	n := 0
	for _, d := range dup {
		if d {
			n++
		}
	}
	if n == 0 {
		logger.Info("no duplicates")
		return 0, nil
	}

	logger.Warn("duplicates found", "count", n)
	if len(keys) > 0 {
		i := 0
		dupFrame := f.FilterFunc(func(*record.Record) bool {
			keep := dup[i]
			i++
			return keep
		})
		byKeys, err := CountRecords(dupFrame, keys)
		if err != nil {
			return n, err
		}
		for _, r := range byKeys.Records() {
			logger.Warn("duplicates by key", slog.Any("group", r))
		}
	}
	return n, nil
}

// rowKey identifies a tuple of values. Numbers are keyed by value so 1 and
// 1.0 fall in the same group.
func rowKey(values []any) string {
	var b strings.Builder
	for i, v := range values {
		if i > 0 {
			b.WriteByte(0)
		}
		switch val := v.(type) {
		case nil:
			b.WriteString("nil")
		case string:
			b.WriteString("s:" + val)
		case bool:
			b.WriteString("b:" + strconv.FormatBool(val))
		default:
			if x, ok := record.ToFloat64(val); ok {
				b.WriteString("n:" + strconv.FormatFloat(x, 'g', -1, 64))
			} else {
				fmt.Fprintf(&b, "%T:%v", val, val)
			}
		}
	}
	return b.String()
}
