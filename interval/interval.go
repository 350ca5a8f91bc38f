package interval

import (
	"fmt"
	"math"
	"sort"
)

// PosType is the coordinate type used throughout this module.
type PosType int32

const posTypeMax = math.MaxInt32

// Interval is a 0-based half-open range [Start, End).
type Interval struct {
	Start PosType
	End   PosType
}

// Len returns the number of positions covered by iv.
func (iv Interval) Len() PosType {
	return iv.End - iv.Start
}

func (iv Interval) String() string {
	return fmt.Sprintf("[%d,%d)", iv.Start, iv.End)
}

// Block describes one merged interval the way BED12 blockSizes/blockStarts
// do: a length, and an offset from the leftmost merged start.
type Block struct {
	Size   PosType
	Offset PosType
}

// Merge returns the union of ivs as a sorted sequence of disjoint intervals.
// An interval whose start is <= the end of the interval accumulated so far is
// folded into it, so [a, b) and [b, c) become [a, c).  ivs is not modified.
//
// Merge panics if ivs is empty; callers always pass the blocks of at least one
// read.
func Merge(ivs []Interval) []Interval {
	if len(ivs) == 0 {
		panic("internal error: interval.Merge called with an empty interval set")
	}
	sorted := make([]Interval, len(ivs))
	copy(sorted, ivs)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End < sorted[j].End
	})

	// merged shares storage with sorted.  The write index never passes the read
	// index.
	merged := sorted[:0]
	cur := sorted[0]
	for _, iv := range sorted[1:] {
		if iv.Start > cur.End {
			merged = append(merged, cur)
			cur = iv
			continue
		}
		if iv.End > cur.End {
			cur.End = iv.End
		}
	}
	return append(merged, cur)
}

// MergeBlocks merges ivs (see Merge) and returns the leftmost merged start
// along with the merged intervals expressed as (size, offset-from-origin)
// blocks.
func MergeBlocks(ivs []Interval) (origin PosType, blocks []Block) {
	merged := Merge(ivs)
	origin = merged[0].Start
	blocks = make([]Block, len(merged))
	for i, iv := range merged {
		blocks[i] = Block{Size: iv.Len(), Offset: iv.Start - origin}
	}
	return origin, blocks
}

// BlocksToIntervals converts blocks produced by MergeBlocks back to absolute
// coordinates.
func BlocksToIntervals(origin PosType, blocks []Block) []Interval {
	ivs := make([]Interval, len(blocks))
	for i, b := range blocks {
		ivs[i] = Interval{Start: origin + b.Offset, End: origin + b.Offset + b.Size}
	}
	return ivs
}
