// Package batch splits an ordered experiment list into contiguous,
// near-equal slices so independent workers can each run one of them.
package batch

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument is returned for batch counts or positions out of range.
var ErrInvalidArgument = errors.New("invalid argument")

// Range is the half-open index interval [Start, End).
type Range struct {
	Start int
	End   int
}

// Len returns the number of indices covered.
func (r Range) Len() int {
	return r.End - r.Start
}

func (r Range) String() string {
	return fmt.Sprintf("[%d, %d)", r.Start, r.End)
}

// Partition splits [0, nTotal) into nBatch contiguous ranges. The first
// nTotal%nBatch ranges hold one extra element.
func Partition(nTotal, nBatch int) ([]Range, error) {
	if nBatch < 1 {
		return nil, fmt.Errorf("%w: n_batch must be at least 1, got %d", ErrInvalidArgument, nBatch)
	}
	if nBatch > nTotal {
		return nil, fmt.Errorf("%w: n_batch (%d) exceeds number of experiments (%d)", ErrInvalidArgument, nBatch, nTotal)
	}

	q, r := nTotal/nBatch, nTotal%nBatch
	ranges := make([]Range, nBatch)
	start := 0
	for i := range ranges {
		size := q
		if i < r {
			size++
		}
		ranges[i] = Range{Start: start, End: start + size}
		start += size
	}
	return ranges, nil
}

// Position returns the range of the 1-based batch out of nBatch.
func Position(batch, nBatch, nTotal int) (Range, error) {
	if batch < 1 || batch > nBatch {
		return Range{}, fmt.Errorf("%w: batch %d out of range [1, %d]", ErrInvalidArgument, batch, nBatch)
	}
	ranges, err := Partition(nTotal, nBatch)
	if err != nil {
		return Range{}, err
	}
	return ranges[batch-1], nil
}
